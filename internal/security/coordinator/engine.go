package coordinator

import (
	"context"
	"fmt"
	"time"

	"github.com/Ancillary-AGI/titan-sub001/internal/infrastructure/monitoring"
	"github.com/Ancillary-AGI/titan-sub001/internal/security/classifier"
	"github.com/Ancillary-AGI/titan-sub001/internal/security/events"
	"github.com/Ancillary-AGI/titan-sub001/internal/security/isolation"
	"github.com/Ancillary-AGI/titan-sub001/internal/security/policy"
	"github.com/Ancillary-AGI/titan-sub001/internal/security/threat"
)

// CheckURLSafety classifies a URL. Results are memoized per URL.
func (c *Coordinator) CheckURLSafety(rawURL string) threat.Level {
	if c.urlCache != nil {
		if level, ok := c.urlCache.Get(rawURL); ok {
			c.observeURL(level, true)
			return level
		}
	}
	level := c.classifier.CheckURL(rawURL)
	if c.urlCache != nil {
		c.urlCache.Add(rawURL, level)
	}
	c.observeURL(level, false)
	return level
}

func (c *Coordinator) observeURL(level threat.Level, cached bool) {
	if c.metrics != nil {
		c.metrics.RecordURLCheck(level.String(), cached)
	}
}

// AnalyzeDownload classifies a download without recording anything
func (c *Coordinator) AnalyzeDownload(sourceURL, filename string, data []byte) threat.Level {
	return c.classifier.AnalyzeDownload(sourceURL, filename, data)
}

// IsURLAllowed applies the tab's domain lists to rawURL
func (c *Coordinator) IsURLAllowed(tabID, rawURL string) bool {
	return c.policies.IsURLAllowed(tabID, rawURL)
}

// CheckPermission reports one capability of the tab's policy
func (c *Coordinator) CheckPermission(tabID string, capability policy.Capability) bool {
	return c.policies.CheckPermission(tabID, capability)
}

// GenerateCSPHeaders synthesizes the CSP and companion headers for p
func (c *Coordinator) GenerateCSPHeaders(p policy.Policy) map[string]string {
	return policy.GenerateCSPHeaders(p)
}

// DetectXSS reports whether input carries a cross-site scripting payload
func (c *Coordinator) DetectXSS(input string) bool {
	return classifier.DetectXSS(input)
}

// DetectSQLInjection reports whether input carries an SQL injection payload
func (c *Coordinator) DetectSQLInjection(input string) bool {
	return classifier.DetectSQLInjection(input)
}

// PerformDeepScan scans page content without recording anything
func (c *Coordinator) PerformDeepScan(pageURL, content string) classifier.ScanResult {
	timer := monitoring.NewTimer(c.metrics, "deep_scan")
	defer timer.Stop("ok")
	return c.classifier.DeepScan(pageURL, content)
}

// GetThreatScore returns the tab's current score
func (c *Coordinator) GetThreatScore(tabID string) int {
	return c.events.ThreatScore(tabID)
}

// GenerateSecurityReport summarizes events in [start, end]
func (c *Coordinator) GenerateSecurityReport(start, end time.Time) events.Report {
	return c.events.GenerateReport(start, end)
}

// Events returns logged events matching f
func (c *Coordinator) Events(f events.Filter) []events.Event {
	return c.events.Events(f)
}

// ClearContextEvents drops a tab's events and resets its score
func (c *Coordinator) ClearContextEvents(tabID string) int {
	n := c.events.ClearContext(tabID)
	if c.metrics != nil {
		c.metrics.ForgetContext(tabID)
	}
	return n
}

// Subscribe streams newly logged events
func (c *Coordinator) Subscribe(buffer int) (<-chan events.Event, func()) {
	return c.events.Subscribe(buffer)
}

// SetSandboxPolicy installs an explicit policy for a tab and persists it
// as the last applied policy document
func (c *Coordinator) SetSandboxPolicy(ctx context.Context, tabID string, p policy.Policy) error {
	if tabID == "" {
		return fmt.Errorf("%w: empty tab id", ErrInvalidPolicy)
	}
	if !p.Level.Valid() {
		return fmt.Errorf("%w: sandbox level %d", ErrInvalidPolicy, int(p.Level))
	}
	c.policies.Set(tabID, p)
	c.track(tabID)
	return c.persistPolicy(ctx, tabID, p)
}

// GetSandboxPolicy returns the tab's explicit policy or the default-level policy
func (c *Coordinator) GetSandboxPolicy(tabID string) policy.Policy {
	return c.policies.Get(tabID)
}

// RemoveSandboxPolicy drops the tab's explicit policy and its isolated context
func (c *Coordinator) RemoveSandboxPolicy(tabID string) {
	c.policies.Remove(tabID)
}

// CreateIsolatedContext starts the tab's isolated context. A failure
// leaves the tab in degraded mode and wraps isolation.ErrIsolationUnavailable.
func (c *Coordinator) CreateIsolatedContext(tabID string) error {
	c.track(tabID)
	return c.isolation.Create(tabID)
}

// DisposeIsolatedContext tears down the tab's isolated context
func (c *Coordinator) DisposeIsolatedContext(tabID string) {
	c.isolation.Dispose(tabID)
}

// IsolationDegraded returns why the tab runs without isolation, or nil
func (c *Coordinator) IsolationDegraded(tabID string) error {
	return c.isolation.Degraded(tabID)
}

// HasIsolatedContext reports whether the tab has a live isolated context
func (c *Coordinator) HasIsolatedContext(tabID string) bool {
	return c.isolation.Has(tabID)
}

var _ policy.Disposer = (*isolation.Manager)(nil)
