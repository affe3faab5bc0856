package policy

import (
	"sort"
	"strings"
)

// Response header names emitted by GenerateCSPHeaders
const (
	HeaderCSP                = "Content-Security-Policy"
	HeaderContentTypeOptions = "X-Content-Type-Options"
	HeaderFrameOptions       = "X-Frame-Options"
	HeaderXSSProtection      = "X-XSS-Protection"
	HeaderReferrerPolicy     = "Referrer-Policy"
)

type directive struct {
	name  string
	value string
}

// GenerateCSPHeaders builds the Content-Security-Policy header for a policy
// together with the fixed companion headers.
//
// Overrides replace a directive's value in place; directives the base list
// does not carry are appended in name order. While JavaScript is disabled
// script-src* overrides are ignored and script-enabling source keywords are
// stripped from the remaining override values.
func GenerateCSPHeaders(p Policy) map[string]string {
	directives := baseDirectives(p)
	overrides := normalizeOverrides(p.CSPOverrides, p.JavaScript)

	for i := range directives {
		if value, ok := overrides[directives[i].name]; ok {
			directives[i].value = value
			delete(overrides, directives[i].name)
		}
	}
	extra := make([]string, 0, len(overrides))
	for name := range overrides {
		extra = append(extra, name)
	}
	sort.Strings(extra)
	for _, name := range extra {
		directives = append(directives, directive{name: name, value: overrides[name]})
	}

	parts := make([]string, 0, len(directives))
	for _, d := range directives {
		if d.value == "" {
			parts = append(parts, d.name)
			continue
		}
		parts = append(parts, d.name+" "+d.value)
	}

	return map[string]string{
		HeaderCSP:                strings.Join(parts, "; "),
		HeaderContentTypeOptions: "nosniff",
		HeaderFrameOptions:       "SAMEORIGIN",
		HeaderXSSProtection:      "1; mode=block",
		HeaderReferrerPolicy:     "strict-origin-when-cross-origin",
	}
}

func baseDirectives(p Policy) []directive {
	script := "'none'"
	if p.JavaScript {
		script = "'self' 'unsafe-inline' 'unsafe-eval'"
	}
	media := "'none'"
	if p.Camera || p.Microphone {
		media = "'self' blob: mediastream:"
	}
	object := "'none'"
	if p.Plugins {
		object = "'self'"
	}

	return []directive{
		{"default-src", "'self'"},
		{"script-src", script},
		{"style-src", "'self' 'unsafe-inline'"},
		{"img-src", "'self' data: https:"},
		{"font-src", "'self' https:"},
		{"connect-src", "'self' https:"},
		{"media-src", media},
		{"frame-src", "'self'"},
		{"object-src", object},
	}
}

// scriptKeywords enable script execution and never survive a policy with
// JavaScript disabled
var scriptKeywords = map[string]bool{
	"'unsafe-eval'":      true,
	"'wasm-unsafe-eval'": true,
	"'unsafe-hashes'":    true,
	"'unsafe-inline'":    true,
}

// normalizeOverrides keys overrides by lowercased directive name. Raw keys
// are applied in sorted order so the last of several case variants wins.
func normalizeOverrides(raw map[string]string, javaScript bool) map[string]string {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]string, len(keys))
	for _, k := range keys {
		name := strings.ToLower(strings.TrimSpace(k))
		if name == "" {
			continue
		}
		value := strings.TrimSpace(raw[k])
		if !javaScript {
			if strings.HasPrefix(name, "script-src") {
				continue
			}
			stripped := stripScriptKeywords(value, strings.HasPrefix(name, "style-src"))
			if stripped == "" && value != "" {
				continue
			}
			value = stripped
		}
		out[name] = value
	}
	return out
}

// stripScriptKeywords drops script keywords from a source list. Inline
// styles stay permitted on style directives.
func stripScriptKeywords(value string, style bool) string {
	fields := strings.Fields(value)
	kept := fields[:0]
	for _, f := range fields {
		kw := strings.ToLower(f)
		if style && kw == "'unsafe-inline'" {
			kept = append(kept, f)
			continue
		}
		if !scriptKeywords[kw] {
			kept = append(kept, f)
		}
	}
	return strings.Join(kept, " ")
}
