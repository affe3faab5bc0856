package coordinator

import (
	"context"
	"errors"
	"fmt"
	"html"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/Ancillary-AGI/titan-sub001/internal/infrastructure/monitoring"
	"github.com/Ancillary-AGI/titan-sub001/internal/security/classifier"
	"github.com/Ancillary-AGI/titan-sub001/internal/security/events"
	"github.com/Ancillary-AGI/titan-sub001/internal/security/isolation"
	"github.com/Ancillary-AGI/titan-sub001/internal/security/policy"
	"github.com/Ancillary-AGI/titan-sub001/internal/security/threat"
)

// Action is the outcome of a renderer hook
type Action string

const (
	ActionAllow    Action = "allow"
	ActionBlock    Action = "block"
	ActionSanitize Action = "sanitize"
)

// Decision answers the navigation hook
type Decision struct {
	Action Action       `json:"action"`
	Level  threat.Level `json:"level"`
	Reason string       `json:"reason,omitempty"`
	// SubstitutePage replaces the response body of a blocked navigation
	SubstitutePage string `json:"substitutePage,omitempty"`
	// Headers carry the CSP for the page when enforcement is on
	Headers map[string]string `json:"headers,omitempty"`
}

// InterceptNavigation decides whether a tab may fetch rawURL. Navigations
// outside the tab's domain lists or classified high and above are blocked;
// medium pages are loaded sanitized.
func (c *Coordinator) InterceptNavigation(ctx context.Context, tabID, rawURL string) Decision {
	c.track(tabID)
	settings := c.Settings()
	p := c.policies.Effective(tabID, rawURL)
	level := c.CheckURLSafety(rawURL)

	host, ok := classifier.Hostname(rawURL)
	if !ok || !policy.Allowed(p, host) {
		reason := "Navigation blocked by sandbox policy"
		c.record(events.New(threat.UnauthorizedAccess, threat.Medium, tabID, rawURL, reason, true).
			WithMetadata(map[string]string{"hook": "navigation", "sandbox": p.Level.String()}))
		c.log.Info("navigation blocked", zap.String("tab", tabID), zap.String("url", rawURL), zap.String("reason", "policy"))
		// malformed URLs keep their classification
		if ok {
			level = threat.Max(level, threat.Medium)
		}
		return Decision{
			Action:         ActionBlock,
			Level:          level,
			Reason:         reason,
			SubstitutePage: blockedPage(rawURL, reason),
		}
	}

	if settings.PhishingProtection && level.AtLeast(threat.High) {
		typ, reason := navigationThreat(level)
		c.record(events.New(typ, level, tabID, rawURL, reason, true).
			WithMetadata(map[string]string{"hook": "navigation", "host": host}))
		c.log.Info("navigation blocked", zap.String("tab", tabID), zap.String("url", rawURL), zap.Stringer("level", level))
		return Decision{
			Action:         ActionBlock,
			Level:          level,
			Reason:         reason,
			SubstitutePage: blockedPage(rawURL, reason),
		}
	}

	d := Decision{Action: ActionAllow, Level: level}
	if settings.PhishingProtection && level == threat.Medium {
		d.Action = ActionSanitize
		d.Reason = "Suspicious address, active content will be stripped"
	}
	if settings.CSPEnforcement {
		d.Headers = policy.GenerateCSPHeaders(p)
	}
	return d
}

func navigationThreat(level threat.Level) (threat.EventType, string) {
	if level == threat.Critical {
		return threat.SuspiciousDownload, "Known malware distribution site"
	}
	return threat.PhishingAttempt, "Known or suspected phishing site"
}

func blockedPage(rawURL, reason string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>Page blocked</title></head>
<body><h1>This page has been blocked</h1><p>%s</p><p><code>%s</code></p></body></html>`,
		html.EscapeString(reason), html.EscapeString(rawURL))
}

// DownloadDecision answers the download hook
type DownloadDecision struct {
	Action   Action       `json:"action"`
	Level    threat.Level `json:"level"`
	Reasons  []string     `json:"reasons"`
	SHA256   string       `json:"sha256,omitempty"`
	MIMEType string       `json:"mimeType,omitempty"`
}

// InterceptDownload classifies a download for a tab. Downloads are blocked
// when the tab's policy forbids them or, with malware protection on, when
// classified high and above.
func (c *Coordinator) InterceptDownload(ctx context.Context, tabID, sourceURL, filename string, data []byte) DownloadDecision {
	c.track(tabID)
	settings := c.Settings()
	if !settings.DownloadScanning {
		data = nil
	}

	report := c.classifier.InspectDownload(sourceURL, filename, data)
	p := c.policies.Effective(tabID, sourceURL)

	d := DownloadDecision{
		Action:   ActionAllow,
		Level:    report.Level,
		Reasons:  append([]string{}, report.Reasons...),
		SHA256:   report.SHA256,
		MIMEType: report.DetectedMIME,
	}
	switch {
	case !p.Downloads:
		d.Action = ActionBlock
		d.Reasons = append(d.Reasons, "downloads disabled by sandbox policy")
	case settings.MalwareProtection && report.Level.AtLeast(threat.High):
		d.Action = ActionBlock
	}
	blocked := d.Action == ActionBlock

	md := map[string]string{"hook": "download", "filename": filename}
	if report.SHA256 != "" {
		md["sha256"] = report.SHA256
	}
	if len(d.Reasons) > 0 {
		md["reasons"] = strings.Join(d.Reasons, "; ")
	}

	switch {
	case report.Level.AtLeast(threat.Medium):
		c.record(events.New(threat.SuspiciousDownload, report.Level, tabID, sourceURL,
			"Suspicious download: "+filename, blocked).WithMetadata(md))
	case blocked:
		c.record(events.New(threat.UnauthorizedAccess, threat.Low, tabID, sourceURL,
			"Download blocked by sandbox policy: "+filename, true).WithMetadata(md))
	}
	if blocked {
		c.log.Info("download blocked", zap.String("tab", tabID), zap.String("file", filename), zap.Stringer("level", report.Level))
	}
	return d
}

// FormCheck answers the form submission hook
type FormCheck struct {
	Blocked    bool     `json:"blocked"`
	XSSFields  []string `json:"xssFields"`
	SQLiFields []string `json:"sqliFields"`
}

// CheckFormInput runs the injection predicates over submitted fields and
// records one blocked event per detected attack class
func (c *Coordinator) CheckFormInput(ctx context.Context, tabID, pageURL string, fields map[string]string) FormCheck {
	c.track(tabID)
	check := FormCheck{XSSFields: []string{}, SQLiFields: []string{}}
	for name, value := range fields {
		if classifier.DetectXSS(value) {
			check.XSSFields = append(check.XSSFields, name)
		}
		if classifier.DetectSQLInjection(value) {
			check.SQLiFields = append(check.SQLiFields, name)
		}
	}
	sort.Strings(check.XSSFields)
	sort.Strings(check.SQLiFields)

	if len(check.XSSFields) > 0 {
		c.record(events.New(threat.XSSAttempt, threat.High, tabID, pageURL,
			"Cross-site scripting payload in form input", true).
			WithMetadata(map[string]string{"hook": "form", "fields": strings.Join(check.XSSFields, ",")}))
	}
	if len(check.SQLiFields) > 0 {
		c.record(events.New(threat.SQLInjection, threat.High, tabID, pageURL,
			"SQL injection payload in form input", true).
			WithMetadata(map[string]string{"hook": "form", "fields": strings.Join(check.SQLiFields, ",")}))
	}
	check.Blocked = len(check.XSSFields) > 0 || len(check.SQLiFields) > 0
	return check
}

// InspectContent deep-scans page content of a tab and records each finding
func (c *Coordinator) InspectContent(ctx context.Context, tabID, pageURL, content string) classifier.ScanResult {
	c.track(tabID)
	result := c.PerformDeepScan(pageURL, content)
	for _, f := range result.Threats {
		c.record(events.New(f.Type, f.Level, tabID, pageURL, f.Description, false).
			WithMetadata(map[string]string{"hook": "content", "category": string(f.Category)}))
	}
	return result
}

// SanitizeHTML strips active content inside the tab's isolated context.
// Tabs at the maximum sandbox level get the strict allow-list pass too.
func (c *Coordinator) SanitizeHTML(ctx context.Context, tabID, markup string) (string, error) {
	c.track(tabID)
	timer := monitoring.NewTimer(c.metrics, "sanitize")
	strict := c.policies.Get(tabID).Level == threat.SandboxMaximum
	out, err := c.isolation.Sanitize(ctx, tabID, markup, strict)
	timer.StopErr(err)
	return out, err
}

// ExecuteScript runs a script inside the tab's isolated context. Tabs whose
// policy forbids JavaScript are refused; scripts that exceed the time
// limit are recorded as malicious.
func (c *Coordinator) ExecuteScript(ctx context.Context, tabID, script string) (isolation.Reply, error) {
	c.track(tabID)
	if !c.policies.CheckPermission(tabID, policy.JavaScript) {
		c.record(events.New(threat.CSPViolation, threat.Low, tabID, "",
			"Script execution refused by sandbox policy", true).
			WithMetadata(map[string]string{"hook": "execute"}))
		return isolation.Reply{}, ErrJavaScriptDisabled
	}

	timer := monitoring.NewTimer(c.metrics, "execute")
	reply, err := c.isolation.Execute(ctx, tabID, script)
	timer.StopErr(err)

	var execErr *isolation.ExecutionError
	if errors.As(err, &execErr) && execErr.Fault {
		c.record(events.New(threat.MaliciousScript, threat.Medium, tabID, "",
			"Isolated script exceeded its time limit", true).
			WithMetadata(map[string]string{"hook": "execute", "message_id": execErr.MessageID.String()}))
	}
	return reply, err
}
