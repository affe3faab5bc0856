package isolation

import (
	"sync"

	"github.com/microcosm-cc/bluemonday"

	"github.com/Ancillary-AGI/titan-sub001/internal/security/patterns"
)

var (
	strictPolicy     *bluemonday.Policy
	strictPolicyOnce sync.Once
)

// Sanitize strips script blocks, inline event handler attributes and
// javascript: URL schemes from markup.
func Sanitize(html string) string {
	html = patterns.ScriptBlock.ReplaceAllString(html, "")
	html = patterns.EventHandlerAttr.ReplaceAllString(html, "")
	return patterns.JavaScriptScheme.ReplaceAllString(html, "")
}

// SanitizeStrict applies Sanitize followed by an allow-list pass that only
// keeps user-content safe elements and attributes.
func SanitizeStrict(html string) string {
	strictPolicyOnce.Do(func() {
		strictPolicy = bluemonday.UGCPolicy()
	})
	return strictPolicy.Sanitize(Sanitize(html))
}
