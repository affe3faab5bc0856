package intel

import "github.com/Ancillary-AGI/titan-sub001/internal/security/patterns"

// Source answers reputation questions about domains and payload digests.
// Implementations must be safe for concurrent use.
type Source interface {
	IsMalicious(domain string) bool
	IsPhishing(domain string) bool
	IsKnownMalwareHash(digest string) bool
}

var _ Source = (*patterns.Library)(nil)

// Merge combines sources; a positive answer from any source wins
func Merge(sources ...Source) Source {
	flat := make(multiSource, 0, len(sources))
	for _, s := range sources {
		if s != nil {
			flat = append(flat, s)
		}
	}
	return flat
}

type multiSource []Source

func (m multiSource) IsMalicious(domain string) bool {
	for _, s := range m {
		if s.IsMalicious(domain) {
			return true
		}
	}
	return false
}

func (m multiSource) IsPhishing(domain string) bool {
	for _, s := range m {
		if s.IsPhishing(domain) {
			return true
		}
	}
	return false
}

func (m multiSource) IsKnownMalwareHash(digest string) bool {
	for _, s := range m {
		if s.IsKnownMalwareHash(digest) {
			return true
		}
	}
	return false
}
