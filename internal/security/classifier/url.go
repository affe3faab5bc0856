package classifier

import (
	"net/url"
	"strings"

	"github.com/Ancillary-AGI/titan-sub001/internal/security/patterns"
	"github.com/Ancillary-AGI/titan-sub001/internal/security/threat"
)

// CheckURL classifies a URL. Malformed URLs resolve to threat.Low.
func (c *Classifier) CheckURL(rawURL string) threat.Level {
	host, ok := Hostname(rawURL)
	if !ok {
		return threat.Low
	}

	switch {
	case c.source.IsMalicious(host):
		return threat.Critical
	case c.source.IsPhishing(host):
		return threat.High
	case patterns.HasSuspiciousShape(host):
		return threat.Medium
	case patterns.HasPhishingIndicators(rawURL):
		return threat.Medium
	default:
		return threat.None
	}
}

// Hostname extracts the lowercase host of an absolute URL
func Hostname(rawURL string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Scheme == "" {
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", false
	}
	return host, true
}
