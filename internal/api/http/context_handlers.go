package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Ancillary-AGI/titan-sub001/internal/security/isolation"
	"github.com/Ancillary-AGI/titan-sub001/internal/security/monitor"
)

// CreateContext starts a tab's isolated context. A tab that cannot get
// one is reported as degraded, not as a failure.
func (h *Handlers) CreateContext(c *gin.Context) {
	tab := c.Param("tab")
	err := h.security.CreateIsolatedContext(tab)
	switch {
	case err == nil:
		ok(c, gin.H{"tabId": tab, "isolated": true})
	case errors.Is(err, isolation.ErrIsolationUnavailable):
		c.JSON(http.StatusAccepted, gin.H{
			"success":  true,
			"tabId":    tab,
			"isolated": false,
			"degraded": err.Error(),
		})
	default:
		fail(c, statusFor(err), err)
	}
}

// CloseContext releases everything held for a tab
func (h *Handlers) CloseContext(c *gin.Context) {
	tab := c.Param("tab")
	h.security.CloseContext(tab)
	ok(c, gin.H{"tabId": tab})
}

// DisposeIsolation tears down only the isolated context
func (h *Handlers) DisposeIsolation(c *gin.Context) {
	tab := c.Param("tab")
	h.security.DisposeIsolatedContext(tab)
	ok(c, gin.H{"tabId": tab})
}

// ClearEvents drops a tab's events and score
func (h *Handlers) ClearEvents(c *gin.Context) {
	tab := c.Param("tab")
	ok(c, gin.H{"tabId": tab, "cleared": h.security.ClearContextEvents(tab)})
}

// SanitizeRequest carries markup to clean
type SanitizeRequest struct {
	HTML string `json:"html"`
}

// Sanitize cleans markup in the tab's isolated context
func (h *Handlers) Sanitize(c *gin.Context) {
	var req SanitizeRequest
	if !bindJSON(c, &req) {
		return
	}
	out, err := h.security.SanitizeHTML(c.Request.Context(), c.Param("tab"), req.HTML)
	if err != nil {
		fail(c, statusFor(err), err)
		return
	}
	ok(c, gin.H{"html": out})
}

// ExecuteRequest carries a script
type ExecuteRequest struct {
	Script string `json:"script" binding:"required"`
}

// Execute runs a script in the tab's isolated context
func (h *Handlers) Execute(c *gin.Context) {
	var req ExecuteRequest
	if !bindJSON(c, &req) {
		return
	}
	reply, err := h.security.ExecuteScript(c.Request.Context(), c.Param("tab"), req.Script)
	if err != nil {
		var execErr *isolation.ExecutionError
		if errors.As(err, &execErr) {
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
				"success": false,
				"error":   execErr.Message,
				"timeout": execErr.Fault,
				"console": reply.Console,
			})
			return
		}
		fail(c, statusFor(err), err)
		return
	}
	ok(c, gin.H{
		"value":      reply.Value,
		"console":    reply.Console,
		"durationMs": reply.Duration.Milliseconds(),
	})
}

// SignalsRequest is a renderer signal report
type SignalsRequest struct {
	URL             string    `json:"url"`
	CPUUsage        float64   `json:"cpuUsage"`
	ActiveWorkers   int       `json:"activeWorkers"`
	WASMModules     int       `json:"wasmModules"`
	RequestRate     float64   `json:"requestRate"`
	RequestHistory  []float64 `json:"requestHistory"`
	StorageReads    int       `json:"storageReads"`
	ThirdPartyPosts int       `json:"thirdPartyPosts"`
	OutboundBytes   int64     `json:"outboundBytes"`
}

// ReportSignals stores renderer signals for the next monitor sweep
func (h *Handlers) ReportSignals(c *gin.Context) {
	var req SignalsRequest
	if !bindJSON(c, &req) {
		return
	}
	tab := c.Param("tab")
	h.security.Signals().Report(tab, monitor.Signals{
		URL:             req.URL,
		CPUUsage:        req.CPUUsage,
		ActiveWorkers:   req.ActiveWorkers,
		WASMModules:     req.WASMModules,
		RequestRate:     req.RequestRate,
		RequestHistory:  req.RequestHistory,
		StorageReads:    req.StorageReads,
		ThirdPartyPosts: req.ThirdPartyPosts,
		OutboundBytes:   req.OutboundBytes,
	})
	ok(c, gin.H{"tabId": tab})
}
