package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Ancillary-AGI/titan-sub001/internal/security/classifier"
)

// URLRequest names a URL, optionally within a tab
type URLRequest struct {
	TabID string `json:"tabId"`
	URL   string `json:"url" binding:"required"`
}

// CheckURL classifies a URL
func (h *Handlers) CheckURL(c *gin.Context) {
	var req URLRequest
	if !bindJSON(c, &req) {
		return
	}
	resp := gin.H{"url": req.URL, "level": h.security.CheckURLSafety(req.URL)}
	if req.TabID != "" {
		resp["allowed"] = h.security.IsURLAllowed(req.TabID, req.URL)
	}
	ok(c, resp)
}

// Navigate runs the navigation hook for a tab
func (h *Handlers) Navigate(c *gin.Context) {
	var req URLRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.TabID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"success": false, "error": "tabId is required"})
		return
	}
	ok(c, gin.H{"decision": h.security.InterceptNavigation(c.Request.Context(), req.TabID, req.URL)})
}

// DownloadRequest describes a download. Data is base64 in JSON.
type DownloadRequest struct {
	TabID    string `json:"tabId"`
	URL      string `json:"url"`
	Filename string `json:"filename" binding:"required"`
	Data     []byte `json:"data"`
}

// AnalyzeDownload classifies a download. With a tab id the download hook
// runs and the decision is returned too.
func (h *Handlers) AnalyzeDownload(c *gin.Context) {
	var req DownloadRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.TabID == "" {
		ok(c, gin.H{"level": h.security.AnalyzeDownload(req.URL, req.Filename, req.Data)})
		return
	}
	d := h.security.InterceptDownload(c.Request.Context(), req.TabID, req.URL, req.Filename, req.Data)
	ok(c, gin.H{"level": d.Level, "decision": d})
}

// ScanRequest carries page content to deep-scan
type ScanRequest struct {
	TabID   string `json:"tabId"`
	URL     string `json:"url"`
	Content string `json:"content" binding:"required"`
}

// Scan deep-scans content. With a tab id the findings are recorded.
func (h *Handlers) Scan(c *gin.Context) {
	var req ScanRequest
	if !bindJSON(c, &req) {
		return
	}
	if len(req.Content) > classifier.MaxScanSize {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"success": false, "error": "content exceeds scan limit"})
		return
	}

	var result classifier.ScanResult
	if req.TabID != "" {
		result = h.security.InspectContent(c.Request.Context(), req.TabID, req.URL, req.Content)
	} else {
		result = h.security.PerformDeepScan(req.URL, req.Content)
	}
	ok(c, gin.H{
		"threats":         result.Threats,
		"recommendations": result.Recommendations,
		"riskScore":       result.RiskScore,
		"level":           result.MaxLevel(),
	})
}

// InputRequest is either a single input or a form submission
type InputRequest struct {
	Input  *string           `json:"input"`
	TabID  string            `json:"tabId"`
	URL    string            `json:"url"`
	Fields map[string]string `json:"fields"`
}

// ValidateInput runs the injection predicates
func (h *Handlers) ValidateInput(c *gin.Context) {
	var req InputRequest
	if !bindJSON(c, &req) {
		return
	}
	switch {
	case req.Fields != nil:
		ok(c, gin.H{"form": h.security.CheckFormInput(c.Request.Context(), req.TabID, req.URL, req.Fields)})
	case req.Input != nil:
		ok(c, gin.H{
			"xss":          h.security.DetectXSS(*req.Input),
			"sqlInjection": h.security.DetectSQLInjection(*req.Input),
		})
	default:
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"success": false, "error": "input or fields is required"})
	}
}
