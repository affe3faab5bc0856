package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Ancillary-AGI/titan-sub001/internal/security/policy"
)

// GetPolicy returns a tab's effective policy
func (h *Handlers) GetPolicy(c *gin.Context) {
	tab := c.Param("tab")
	ok(c, gin.H{"tabId": tab, "policy": h.security.GetSandboxPolicy(tab)})
}

// SetPolicy installs an explicit policy for a tab
func (h *Handlers) SetPolicy(c *gin.Context) {
	var p policy.Policy
	if !bindJSON(c, &p) {
		return
	}
	tab := c.Param("tab")
	if err := h.security.SetSandboxPolicy(c.Request.Context(), tab, p); err != nil {
		fail(c, statusFor(err), err)
		return
	}
	ok(c, gin.H{"tabId": tab, "policy": h.security.GetSandboxPolicy(tab)})
}

// RemovePolicy drops a tab's explicit policy and its isolated context
func (h *Handlers) RemovePolicy(c *gin.Context) {
	tab := c.Param("tab")
	h.security.RemoveSandboxPolicy(tab)
	ok(c, gin.H{"tabId": tab})
}

// IsURLAllowed applies a tab's domain lists to the url query parameter
func (h *Handlers) IsURLAllowed(c *gin.Context) {
	rawURL := c.Query("url")
	if rawURL == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"success": false, "error": "url is required"})
		return
	}
	ok(c, gin.H{"url": rawURL, "allowed": h.security.IsURLAllowed(c.Param("tab"), rawURL)})
}

// CheckPermission reports one capability flag. Unknown capabilities are denied.
func (h *Handlers) CheckPermission(c *gin.Context) {
	capability := policy.Capability(c.Param("capability"))
	ok(c, gin.H{
		"capability": capability,
		"allowed":    h.security.CheckPermission(c.Param("tab"), capability),
	})
}

// GenerateCSP synthesizes headers for a posted policy
func (h *Handlers) GenerateCSP(c *gin.Context) {
	var p policy.Policy
	if !bindJSON(c, &p) {
		return
	}
	ok(c, gin.H{"headers": h.security.GenerateCSPHeaders(p)})
}

// TabCSP synthesizes headers for the policy of the tab query parameter
func (h *Handlers) TabCSP(c *gin.Context) {
	tab := c.Query("tab")
	ok(c, gin.H{"tabId": tab, "headers": h.security.GenerateCSPHeaders(h.security.GetSandboxPolicy(tab))})
}
