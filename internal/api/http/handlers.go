package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Ancillary-AGI/titan-sub001/internal/infrastructure/monitoring"
	"github.com/Ancillary-AGI/titan-sub001/internal/security/coordinator"
	"github.com/Ancillary-AGI/titan-sub001/internal/security/isolation"
)

// MaxBodyBytes bounds request bodies on the security routes
const MaxBodyBytes = 160 << 20

// Version is reported by the root endpoint
const Version = "0.1.0"

// Handlers contains all HTTP handlers
type Handlers struct {
	security *coordinator.Coordinator
	metrics  *monitoring.Metrics
	log      *zap.Logger
}

// NewHandlers creates a new handler set. metrics may be nil.
func NewHandlers(security *coordinator.Coordinator, metrics *monitoring.Metrics, log *zap.Logger) *Handlers {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handlers{security: security, metrics: metrics, log: log}
}

// Register mounts every route on r
func (h *Handlers) Register(r gin.IRouter) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)

	sec := r.Group("/security", limitBody(MaxBodyBytes))

	sec.POST("/check-url", h.CheckURL)
	sec.POST("/analyze-download", h.AnalyzeDownload)
	sec.POST("/scan", h.Scan)
	sec.POST("/validate-input", h.ValidateInput)
	sec.POST("/navigate", h.Navigate)

	sec.GET("/policies/:tab", h.GetPolicy)
	sec.PUT("/policies/:tab", h.SetPolicy)
	sec.DELETE("/policies/:tab", h.RemovePolicy)
	sec.GET("/policies/:tab/allowed", h.IsURLAllowed)
	sec.GET("/policies/:tab/permissions/:capability", h.CheckPermission)
	sec.GET("/csp", h.TabCSP)
	sec.POST("/csp", h.GenerateCSP)

	sec.POST("/contexts/:tab", h.CreateContext)
	sec.DELETE("/contexts/:tab", h.CloseContext)
	sec.DELETE("/contexts/:tab/isolation", h.DisposeIsolation)
	sec.DELETE("/contexts/:tab/events", h.ClearEvents)
	sec.POST("/contexts/:tab/sanitize", h.Sanitize)
	sec.POST("/contexts/:tab/execute", h.Execute)
	sec.POST("/contexts/:tab/signals", h.ReportSignals)

	sec.GET("/score/:tab", h.ThreatScore)
	sec.GET("/events", h.ListEvents)
	sec.GET("/report", h.Report)
	sec.GET("/report/export", h.ExportReport)
	sec.GET("/settings", h.GetSettings)
	sec.PUT("/settings", h.UpdateSettings)

	if h.metrics != nil {
		r.GET("/metrics/json", h.MetricsJSON)
	}
}

// Root handles the service banner
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "titan security engine",
		"version": Version,
	})
}

// Health reports engine state
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"engine":   h.security.Stats(),
		"settings": h.security.Settings(),
		"time":     time.Now().UTC(),
	})
}

func limitBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}

func ok(c *gin.Context, payload gin.H) {
	payload["success"] = true
	c.JSON(http.StatusOK, payload)
}

func fail(c *gin.Context, status int, err error) {
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   err.Error(),
	})
}

func bindJSON(c *gin.Context, out any) bool {
	if err := c.ShouldBindJSON(out); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			fail(c, http.StatusRequestEntityTooLarge, err)
			return false
		}
		fail(c, http.StatusBadRequest, err)
		return false
	}
	return true
}

// statusFor maps engine errors to HTTP status codes
func statusFor(err error) int {
	var execErr *isolation.ExecutionError
	switch {
	case errors.Is(err, coordinator.ErrInvalidPolicy):
		return http.StatusBadRequest
	case errors.Is(err, coordinator.ErrJavaScriptDisabled):
		return http.StatusForbidden
	case errors.As(err, &execErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, isolation.ErrContextDisposed):
		return http.StatusConflict
	case errors.Is(err, isolation.ErrIsolationUnavailable), errors.Is(err, isolation.ErrManagerClosed),
		errors.Is(err, coordinator.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, isolation.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
