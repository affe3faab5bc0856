package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Ancillary-AGI/titan-sub001/internal/infrastructure/monitoring"
	"github.com/Ancillary-AGI/titan-sub001/internal/security/coordinator"
)

// MetricsSnapshot combines request metrics with engine state
type MetricsSnapshot struct {
	Timestamp time.Time                  `json:"timestamp"`
	Server    monitoring.MetricsSnapshot `json:"server"`
	Engine    coordinator.Stats          `json:"engine"`
	Scores    map[string]int             `json:"scores"`
	Summary   MetricsSummary             `json:"summary"`
}

// MetricsSummary provides high-level figures for dashboards
type MetricsSummary struct {
	ErrorRate      float64 `json:"errorRate"`
	BlockRate      float64 `json:"blockRate"`
	MaxThreatScore int     `json:"maxThreatScore"`
	HighRiskTabs   int     `json:"highRiskTabs"`
}

// HighRiskScore marks a tab as high risk in the summary
const HighRiskScore = 100

// MetricsJSON returns the aggregated metrics snapshot
func (h *Handlers) MetricsJSON(c *gin.Context) {
	server := h.metrics.Snapshot()
	scores := h.security.EventLog().Scores()

	summary := MetricsSummary{}
	if server.TotalRequests > 0 {
		summary.ErrorRate = float64(server.TotalErrors) / float64(server.TotalRequests)
	}
	if server.EventsRecorded > 0 {
		summary.BlockRate = float64(server.BlockedActions) / float64(server.EventsRecorded)
	}
	for _, score := range scores {
		if score > summary.MaxThreatScore {
			summary.MaxThreatScore = score
		}
		if score >= HighRiskScore {
			summary.HighRiskTabs++
		}
	}

	ok(c, gin.H{"metrics": MetricsSnapshot{
		Timestamp: time.Now().UTC(),
		Server:    server,
		Engine:    h.security.Stats(),
		Scores:    scores,
		Summary:   summary,
	}})
}
