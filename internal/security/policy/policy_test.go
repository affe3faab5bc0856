package policy

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ancillary-AGI/titan-sub001/internal/security/threat"
)

type recordingDisposer struct {
	mu   sync.Mutex
	tabs []string
}

func (r *recordingDisposer) Dispose(tabID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tabs = append(r.tabs, tabID)
}

func TestDefaultPolicy(t *testing.T) {
	tests := []struct {
		level      threat.SandboxLevel
		javascript bool
		downloads  bool
		clipboard  bool
		fullscreen bool
		others     bool
	}{
		{threat.SandboxNone, true, true, true, true, true},
		{threat.SandboxBasic, true, true, true, true, false},
		{threat.SandboxStrict, true, false, false, false, false},
		{threat.SandboxMaximum, false, false, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			p := DefaultPolicy(tt.level)
			assert.Equal(t, tt.level, p.Level)
			assert.Equal(t, tt.javascript, p.JavaScript)
			assert.Equal(t, tt.downloads, p.Downloads)
			assert.Equal(t, tt.clipboard, p.Clipboard)
			assert.Equal(t, tt.fullscreen, p.Fullscreen)
			for _, c := range []Capability{Plugins, Popups, FileAccess, Camera, Microphone, Geolocation, Notifications} {
				assert.Equal(t, tt.others, p.Allows(c), c)
			}
		})
	}
}

func TestPolicyClone(t *testing.T) {
	p := Policy{
		AllowedDomains: []string{"example.com"},
		CSPOverrides:   map[string]string{"img-src": "'self'"},
	}
	c := p.Clone()
	c.AllowedDomains[0] = "changed.com"
	c.CSPOverrides["img-src"] = "*"

	assert.Equal(t, "example.com", p.AllowedDomains[0])
	assert.Equal(t, "'self'", p.CSPOverrides["img-src"])
}

func TestStorePrecedence(t *testing.T) {
	s := NewStore(nil, threat.SandboxStrict)

	assert.Equal(t, DefaultPolicy(threat.SandboxStrict), s.Get("tab-1"))
	assert.Equal(t, threat.SandboxBasic, s.Effective("tab-1", "https://github.com/org/repo").Level)
	assert.Equal(t, threat.SandboxMaximum, s.Effective("tab-1", "https://ads.example.com/banner").Level)
	assert.Equal(t, threat.SandboxMaximum, s.Effective("tab-1", "https://cdn.doubleclick.net/x").Level)
	assert.Equal(t, threat.SandboxStrict, s.Effective("tab-1", "https://example.org").Level)
	assert.Equal(t, threat.SandboxStrict, s.Effective("tab-1", "::bad::").Level)

	override := DefaultPolicy(threat.SandboxNone)
	s.Set("tab-1", override)
	assert.Equal(t, override, s.Get("tab-1"))
	assert.Equal(t, override, s.Effective("tab-1", "https://ads.example.com/banner"))
	assert.Equal(t, []string{"tab-1"}, s.Tabs())

	s.SetDefaultLevel(threat.SandboxMaximum)
	assert.Equal(t, DefaultPolicy(threat.SandboxMaximum), s.Get("tab-2"))
	s.SetDefaultLevel(threat.SandboxLevel(42))
	assert.Equal(t, threat.SandboxMaximum, s.DefaultLevel())
}

func TestStoreSetCopiesPolicy(t *testing.T) {
	s := NewStore(nil, threat.SandboxBasic)
	p := Policy{AllowedDomains: []string{"example.com"}}
	s.Set("tab", p)
	p.AllowedDomains[0] = "evil.com"

	got := s.Get("tab")
	assert.Equal(t, []string{"example.com"}, got.AllowedDomains)

	got.AllowedDomains[0] = "other.com"
	assert.Equal(t, []string{"example.com"}, s.Get("tab").AllowedDomains)
}

func TestStoreRemove(t *testing.T) {
	d := &recordingDisposer{}
	s := NewStore(nil, threat.SandboxBasic, WithDisposer(d))

	s.Set("tab", DefaultPolicy(threat.SandboxMaximum))
	s.Remove("tab")
	s.Remove("tab")

	_, ok := s.Lookup("tab")
	assert.False(t, ok)
	assert.Equal(t, DefaultPolicy(threat.SandboxBasic), s.Get("tab"))
	assert.Equal(t, []string{"tab", "tab"}, d.tabs)
}

func TestIsURLAllowed(t *testing.T) {
	s := NewStore(nil, threat.SandboxBasic)
	s.Set("listed", Policy{
		AllowedDomains: []string{"example.com", "*.docs.internal"},
		BlockedDomains: []string{"bad"},
	})
	s.Set("blocked-only", Policy{BlockedDomains: []string{"tracker"}})

	tests := []struct {
		tab  string
		url  string
		want bool
	}{
		{"unset", "https://anything.net", true},
		{"unset", "not a url", false},
		{"unset", "http://", false},
		{"listed", "https://example.com/a", true},
		{"listed", "https://www.example.com/a", true},
		{"listed", "https://api.docs.internal/v1", true},
		{"listed", "https://docs.internal.evil.com", false},
		{"listed", "https://other.org", false},
		{"listed", "https://bad.example.com", false},
		{"blocked-only", "https://mytracker.io/p", false},
		{"blocked-only", "https://news.example", true},
	}

	for _, tt := range tests {
		t.Run(tt.tab+" "+tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, s.IsURLAllowed(tt.tab, tt.url))
		})
	}
}

func TestCheckPermission(t *testing.T) {
	s := NewStore(nil, threat.SandboxBasic)

	assert.True(t, s.CheckPermission("tab", JavaScript))
	assert.True(t, s.CheckPermission("tab", Clipboard))
	assert.False(t, s.CheckPermission("tab", Camera))
	assert.False(t, s.CheckPermission("tab", Capability("teleport")))

	s.Set("tab", Policy{Camera: true})
	assert.True(t, s.CheckPermission("tab", Camera))
	assert.False(t, s.CheckPermission("tab", JavaScript))

	perms := DefaultPolicy(threat.SandboxNone).Permissions()
	assert.Len(t, perms, len(Capabilities))
	for c, allowed := range perms {
		assert.True(t, allowed, c)
	}
}

func TestGenerateCSPHeaders(t *testing.T) {
	t.Run("basic", func(t *testing.T) {
		headers := GenerateCSPHeaders(DefaultPolicy(threat.SandboxBasic))
		assert.Equal(t,
			"default-src 'self'; script-src 'self' 'unsafe-inline' 'unsafe-eval'; style-src 'self' 'unsafe-inline'; "+
				"img-src 'self' data: https:; font-src 'self' https:; connect-src 'self' https:; "+
				"media-src 'none'; frame-src 'self'; object-src 'none'",
			headers[HeaderCSP])
		assert.Equal(t, "nosniff", headers[HeaderContentTypeOptions])
		assert.Equal(t, "SAMEORIGIN", headers[HeaderFrameOptions])
		assert.Equal(t, "1; mode=block", headers[HeaderXSSProtection])
		assert.Equal(t, "strict-origin-when-cross-origin", headers[HeaderReferrerPolicy])
		assert.Len(t, headers, 5)
	})

	t.Run("maximum forbids scripts", func(t *testing.T) {
		csp := GenerateCSPHeaders(DefaultPolicy(threat.SandboxMaximum))[HeaderCSP]
		assert.Contains(t, csp, "script-src 'none'")
		assert.Contains(t, csp, "object-src 'none'")
	})

	t.Run("none permits media and plugins", func(t *testing.T) {
		csp := GenerateCSPHeaders(DefaultPolicy(threat.SandboxNone))[HeaderCSP]
		assert.Contains(t, csp, "media-src 'self' blob: mediastream:")
		assert.Contains(t, csp, "object-src 'self'")
	})

	t.Run("directive order", func(t *testing.T) {
		csp := GenerateCSPHeaders(DefaultPolicy(threat.SandboxStrict))[HeaderCSP]
		parts := strings.Split(csp, "; ")
		require.Len(t, parts, 9)
		names := make([]string, len(parts))
		for i, part := range parts {
			names[i] = strings.Fields(part)[0]
		}
		assert.Equal(t, []string{
			"default-src", "script-src", "style-src", "img-src", "font-src",
			"connect-src", "media-src", "frame-src", "object-src",
		}, names)
	})

	t.Run("overrides", func(t *testing.T) {
		p := DefaultPolicy(threat.SandboxMaximum)
		p.CSPOverrides = map[string]string{
			"img-src":                   "'self'",
			"script-src":                "*",
			"upgrade-insecure-requests": "",
			"base-uri":                  "'none'",
		}
		csp := GenerateCSPHeaders(p)[HeaderCSP]
		assert.Contains(t, csp, "img-src 'self';")
		assert.Contains(t, csp, "script-src 'none'")
		assert.True(t, strings.HasSuffix(csp, "; base-uri 'none'; upgrade-insecure-requests"), csp)
	})

	t.Run("overrides cannot re-enable scripts", func(t *testing.T) {
		p := DefaultPolicy(threat.SandboxMaximum)
		p.CSPOverrides = map[string]string{
			"default-src":     "'self' 'unsafe-eval'",
			"script-src-elem": "'unsafe-eval'",
			"Script-Src-Attr": "'unsafe-inline'",
			"worker-src":      "'unsafe-eval' 'unsafe-inline'",
			"style-src":       "'self' 'unsafe-inline' 'unsafe-eval'",
		}
		csp := GenerateCSPHeaders(p)[HeaderCSP]
		assert.NotContains(t, csp, "'unsafe-eval'")
		assert.NotContains(t, csp, "script-src-")
		assert.NotContains(t, csp, "worker-src")
		assert.Contains(t, csp, "default-src 'self';")
		assert.Contains(t, csp, "style-src 'self' 'unsafe-inline';")
		assert.Contains(t, csp, "script-src 'none'")
	})

	t.Run("scripts allowed keep script overrides", func(t *testing.T) {
		p := DefaultPolicy(threat.SandboxBasic)
		p.CSPOverrides = map[string]string{"script-src-elem": "'self' 'unsafe-eval'"}
		csp := GenerateCSPHeaders(p)[HeaderCSP]
		assert.True(t, strings.HasSuffix(csp, "; script-src-elem 'self' 'unsafe-eval'"), csp)
	})

	t.Run("case variant overrides are deterministic", func(t *testing.T) {
		p := DefaultPolicy(threat.SandboxStrict)
		p.CSPOverrides = map[string]string{
			"img-src":    "a.example",
			"IMG-SRC":    "b.example",
			"worker-src": "x",
			"Worker-Src": "y",
		}
		want := GenerateCSPHeaders(p)[HeaderCSP]
		for i := 0; i < 200; i++ {
			require.Equal(t, want, GenerateCSPHeaders(p)[HeaderCSP])
		}
		assert.Contains(t, want, "img-src a.example;")
		assert.NotContains(t, want, "b.example")
		assert.Equal(t, 1, strings.Count(want, "worker-src"))
		assert.True(t, strings.HasSuffix(want, "; worker-src x"), want)
	})
}
