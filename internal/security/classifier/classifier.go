package classifier

import (
	"github.com/Ancillary-AGI/titan-sub001/internal/security/intel"
	"github.com/Ancillary-AGI/titan-sub001/internal/security/patterns"
)

// Classifier evaluates URLs, downloads and content against threat patterns
type Classifier struct {
	lib    *patterns.Library
	source intel.Source
}

// New creates a classifier. A nil library selects the bundled one; a nil
// source falls back to the library's own domain and hash sets.
func New(lib *patterns.Library, source intel.Source) *Classifier {
	if lib == nil {
		lib = patterns.Default()
	}
	if source == nil {
		source = lib
	}
	return &Classifier{lib: lib, source: source}
}

// Library returns the pattern library in use
func (c *Classifier) Library() *patterns.Library {
	return c.lib
}
