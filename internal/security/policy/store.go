package policy

import (
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/Ancillary-AGI/titan-sub001/internal/security/patterns"
	"github.com/Ancillary-AGI/titan-sub001/internal/security/threat"
)

// Disposer tears down the isolated execution context of a tab
type Disposer interface {
	Dispose(tabID string)
}

// Option configures a Store
type Option func(*Store)

// WithDisposer registers the isolation teardown called by Remove
func WithDisposer(d Disposer) Option {
	return func(s *Store) {
		s.disposer = d
	}
}

// Store maps browsing contexts to sandbox policies
type Store struct {
	mu           sync.RWMutex
	overrides    map[string]Policy
	defaultLevel threat.SandboxLevel
	lib          *patterns.Library
	disposer     Disposer
}

// NewStore creates a policy store
func NewStore(lib *patterns.Library, defaultLevel threat.SandboxLevel, opts ...Option) *Store {
	if lib == nil {
		lib = patterns.Default()
	}
	if !defaultLevel.Valid() {
		defaultLevel = threat.SandboxBasic
	}
	s := &Store{
		overrides:    make(map[string]Policy),
		defaultLevel: defaultLevel,
		lib:          lib,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Set installs an explicit policy for a tab, the highest precedence source
func (s *Store) Set(tabID string, p Policy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[tabID] = p.Clone()
}

// Get returns the tab's explicit policy, else the default level policy
func (s *Store) Get(tabID string) Policy {
	if p, ok := s.Lookup(tabID); ok {
		return p
	}
	return DefaultPolicy(s.DefaultLevel())
}

// Lookup returns the tab's explicit policy, if any
func (s *Store) Lookup(tabID string) (Policy, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.overrides[tabID]
	if !ok {
		return Policy{}, false
	}
	return p.Clone(), true
}

// Remove drops a tab's explicit policy and disposes its isolated context.
// Removing an unknown tab is a no-op apart from the dispose call.
func (s *Store) Remove(tabID string) {
	s.mu.Lock()
	delete(s.overrides, tabID)
	disposer := s.disposer
	s.mu.Unlock()

	if disposer != nil {
		disposer.Dispose(tabID)
	}
}

// Tabs returns the tabs holding explicit policies, sorted
func (s *Store) Tabs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tabs := make([]string, 0, len(s.overrides))
	for tab := range s.overrides {
		tabs = append(tabs, tab)
	}
	sort.Strings(tabs)
	return tabs
}

// DefaultLevel returns the global default sandbox level
func (s *Store) DefaultLevel() threat.SandboxLevel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.defaultLevel
}

// SetDefaultLevel changes the global default. Invalid levels are ignored.
func (s *Store) SetDefaultLevel(level threat.SandboxLevel) {
	if !level.Valid() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaultLevel = level
}

// LevelForDomain maps trusted sites to basic, trackers to maximum and
// everything else to the global default.
func (s *Store) LevelForDomain(domain string) threat.SandboxLevel {
	switch {
	case s.lib.IsTracker(domain):
		return threat.SandboxMaximum
	case s.lib.IsTrusted(domain):
		return threat.SandboxBasic
	default:
		return s.DefaultLevel()
	}
}

// PolicyForDomain returns the default policy of LevelForDomain
func (s *Store) PolicyForDomain(domain string) Policy {
	return DefaultPolicy(s.LevelForDomain(domain))
}

// Effective resolves the policy for a tab navigating to rawURL
func (s *Store) Effective(tabID, rawURL string) Policy {
	if p, ok := s.Lookup(tabID); ok {
		return p
	}
	host, ok := hostOf(rawURL)
	if !ok {
		return DefaultPolicy(s.DefaultLevel())
	}
	return s.PolicyForDomain(host)
}

// IsURLAllowed applies the tab's block-list and allow-list to rawURL.
// Unparsable URLs are never allowed.
func (s *Store) IsURLAllowed(tabID, rawURL string) bool {
	host, ok := hostOf(rawURL)
	if !ok {
		return false
	}
	return Allowed(s.Get(tabID), host)
}

// CheckPermission reports one capability flag of the tab's policy
func (s *Store) CheckPermission(tabID string, capability Capability) bool {
	return s.Get(tabID).Allows(capability)
}

// Allowed applies a policy's domain lists to a host
func Allowed(p Policy, host string) bool {
	host = strings.ToLower(host)
	for _, blocked := range p.BlockedDomains {
		blocked = strings.ToLower(strings.TrimSpace(blocked))
		if blocked != "" && strings.Contains(host, blocked) {
			return false
		}
	}
	if len(p.AllowedDomains) == 0 {
		return true
	}
	for _, allowed := range p.AllowedDomains {
		if hostMatches(host, strings.ToLower(strings.TrimSpace(allowed))) {
			return true
		}
	}
	return false
}

// hostMatches accepts an exact host, a subdomain, or a glob such as *.example.com
func hostMatches(host, pattern string) bool {
	if pattern == "" {
		return false
	}
	if host == pattern || strings.HasSuffix(host, "."+pattern) {
		return true
	}
	ok, err := doublestar.Match(pattern, host)
	return err == nil && ok
}

func hostOf(rawURL string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Scheme == "" {
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	return host, host != ""
}
