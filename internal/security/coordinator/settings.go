package coordinator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Ancillary-AGI/titan-sub001/internal/security/policy"
	"github.com/Ancillary-AGI/titan-sub001/internal/security/threat"
	"github.com/Ancillary-AGI/titan-sub001/internal/storage/kv"
)

// Keys used in the key-value store
const (
	SettingsKey = "security.settings"
	PolicyKey   = "security.policy"
)

// SecuritySettings are the global toggles of the engine
type SecuritySettings struct {
	// PhishingProtection lets URL classification block navigations
	PhishingProtection bool `json:"phishingProtection"`
	// MalwareProtection lets download analysis block downloads
	MalwareProtection bool `json:"malwareProtection"`
	// DownloadScanning inspects payload bytes (size, hash, MIME sniffing)
	DownloadScanning bool `json:"downloadScanning"`
	// CSPEnforcement attaches CSP headers to navigation decisions
	CSPEnforcement      bool                `json:"cspEnforcement"`
	ThreatMonitor       bool                `json:"threatMonitor"`
	DefaultSandboxLevel threat.SandboxLevel `json:"defaultSandboxLevel"`
}

// DefaultSettings enables every protection at the basic sandbox level
func DefaultSettings() SecuritySettings {
	return SecuritySettings{
		PhishingProtection:  true,
		MalwareProtection:   true,
		DownloadScanning:    true,
		CSPEnforcement:      true,
		ThreatMonitor:       true,
		DefaultSandboxLevel: threat.SandboxBasic,
	}
}

// PolicyDocument is the last policy applied through SetSandboxPolicy
type PolicyDocument struct {
	TabID     string        `json:"tabId"`
	Policy    policy.Policy `json:"policy"`
	AppliedAt time.Time     `json:"appliedAt"`
}

// Settings returns the current settings
func (c *Coordinator) Settings() SecuritySettings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings
}

// LoadSettings applies persisted settings. A missing or undecodable
// document leaves the current settings in place.
func (c *Coordinator) LoadSettings(ctx context.Context) SecuritySettings {
	var s SecuritySettings
	if err := kv.GetJSON(ctx, c.store, SettingsKey, &s); err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			c.log.Debug("persisted settings unreadable, using defaults", zap.Error(err))
		}
		return c.Settings()
	}
	if !s.DefaultSandboxLevel.Valid() {
		c.log.Debug("persisted settings carry an invalid sandbox level, using defaults")
		return c.Settings()
	}
	c.apply(s)
	return s
}

// UpdateSettings applies and persists s. The settings take effect even
// when persisting fails.
func (c *Coordinator) UpdateSettings(ctx context.Context, s SecuritySettings) error {
	if !s.DefaultSandboxLevel.Valid() {
		return fmt.Errorf("%w: sandbox level %d", ErrInvalidPolicy, int(s.DefaultSandboxLevel))
	}
	c.apply(s)
	if err := kv.PutJSON(ctx, c.store, SettingsKey, s); err != nil {
		return fmt.Errorf("persist settings: %w", err)
	}
	return nil
}

func (c *Coordinator) apply(s SecuritySettings) {
	c.mu.Lock()
	prev := c.settings
	c.settings = s
	runCtx := c.runCtx
	closed := c.closed
	c.mu.Unlock()

	c.policies.SetDefaultLevel(s.DefaultSandboxLevel)

	if closed || runCtx == nil || prev.ThreatMonitor == s.ThreatMonitor {
		return
	}
	if s.ThreatMonitor {
		if err := c.monitor.Start(runCtx); err != nil {
			c.log.Warn("threat monitor not started", zap.Error(err))
		}
		return
	}
	c.monitor.Stop()
}

// LastAppliedPolicy returns the persisted policy document
func (c *Coordinator) LastAppliedPolicy(ctx context.Context) (PolicyDocument, bool) {
	var doc PolicyDocument
	if err := kv.GetJSON(ctx, c.store, PolicyKey, &doc); err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			c.log.Debug("persisted policy unreadable", zap.Error(err))
		}
		return PolicyDocument{}, false
	}
	return doc, true
}

func (c *Coordinator) persistPolicy(ctx context.Context, tabID string, p policy.Policy) error {
	doc := PolicyDocument{TabID: tabID, Policy: p, AppliedAt: c.now().UTC()}
	if err := kv.PutJSON(ctx, c.store, PolicyKey, doc); err != nil {
		return fmt.Errorf("persist policy: %w", err)
	}
	return nil
}
