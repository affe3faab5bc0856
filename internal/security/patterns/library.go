package patterns

import (
	"path"
	"strings"
)

// Library is an immutable collection of threat patterns
type Library struct {
	malicious  map[string]struct{}
	phishing   map[string]struct{}
	extensions map[string]struct{}
	hashes     map[string]struct{}
	trusted    []string
	trackers   []string
}

var defaultLibrary = NewLibrary(Lists{})

// Lists supplies additional entries merged over the built-in sets
type Lists struct {
	MaliciousDomains    []string
	PhishingDomains     []string
	DangerousExtensions []string
	MalwareHashes       []string
	TrustedDomains      []string
	TrackerPrefixes     []string
}

// Default returns the library built from the bundled lists
func Default() *Library {
	return defaultLibrary
}

// NewLibrary builds a library from the bundled lists plus extra entries
func NewLibrary(extra Lists) *Library {
	return &Library{
		malicious:  toSet(normalizeDomain, maliciousDomains, extra.MaliciousDomains),
		phishing:   toSet(normalizeDomain, phishingDomains, extra.PhishingDomains),
		extensions: toSet(normalizeExtension, dangerousExtensions, extra.DangerousExtensions),
		hashes:     toSet(strings.ToLower, malwareHashes, extra.MalwareHashes),
		trusted:    normalizeAll(normalizeDomain, trustedDomains, extra.TrustedDomains),
		trackers:   normalizeAll(strings.ToLower, trackerPrefixes, extra.TrackerPrefixes),
	}
}

// IsMalicious reports an exact match against the malicious domain set
func (l *Library) IsMalicious(domain string) bool {
	_, ok := l.malicious[normalizeDomain(domain)]
	return ok
}

// IsPhishing reports an exact match against the phishing domain set
func (l *Library) IsPhishing(domain string) bool {
	_, ok := l.phishing[normalizeDomain(domain)]
	return ok
}

// IsKnownMalwareHash reports whether the hex digest is a known malware sample
func (l *Library) IsKnownMalwareHash(digest string) bool {
	_, ok := l.hashes[strings.ToLower(digest)]
	return ok
}

// IsDangerousExtension reports whether filename ends in a dangerous extension
func (l *Library) IsDangerousExtension(filename string) bool {
	ext := normalizeExtension(path.Ext(filename))
	if ext == "" {
		return false
	}
	_, ok := l.extensions[ext]
	return ok
}

// IsTrusted reports whether domain equals or is a subdomain of a trusted site
func (l *Library) IsTrusted(domain string) bool {
	domain = normalizeDomain(domain)
	for _, t := range l.trusted {
		if domain == t || strings.HasSuffix(domain, "."+t) {
			return true
		}
	}
	return false
}

// IsTracker reports whether domain starts with an ad/tracking/analytics prefix
func (l *Library) IsTracker(domain string) bool {
	domain = normalizeDomain(domain)
	for _, p := range l.trackers {
		if strings.HasPrefix(domain, p) {
			return true
		}
	}
	return strings.Contains(domain, "doubleclick")
}

// DomainCount returns the size of the malicious and phishing sets
func (l *Library) DomainCount() (malicious, phishing int) {
	return len(l.malicious), len(l.phishing)
}

// MaliciousDomains returns the malicious set, unordered
func (l *Library) MaliciousDomains() []string {
	return keys(l.malicious)
}

// PhishingDomains returns the phishing set, unordered
func (l *Library) PhishingDomains() []string {
	return keys(l.phishing)
}

func normalizeDomain(d string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(d)), ".")
}

func normalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

func toSet(norm func(string) string, lists ...[]string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, list := range lists {
		for _, item := range list {
			if n := norm(item); n != "" {
				set[n] = struct{}{}
			}
		}
	}
	return set
}

func normalizeAll(norm func(string) string, lists ...[]string) []string {
	var out []string
	for _, list := range lists {
		for _, item := range list {
			if n := norm(item); n != "" {
				out = append(out, n)
			}
		}
	}
	return out
}

func keys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}
