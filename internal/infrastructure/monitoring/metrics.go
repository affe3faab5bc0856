package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "titan"

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Security metrics
	EventsTotal       *prometheus.CounterVec
	BlockedTotal      *prometheus.CounterVec
	URLChecks         *prometheus.CounterVec
	URLCacheHits      prometheus.Counter
	OperationDuration *prometheus.HistogramVec
	ThreatScore       *prometheus.GaugeVec

	// Monitor metrics
	Sweeps        *prometheus.CounterVec
	SweepDuration prometheus.Histogram

	// Isolation metrics
	IsolatedContexts prometheus.Gauge
	BreakerState     *prometheus.GaugeVec

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	startTime time.Time

	// Snapshot for JSON API
	snapshot MetricsSnapshot

	mu sync.RWMutex
}

// MetricsSnapshot holds current metric values for JSON API
type MetricsSnapshot struct {
	TotalRequests     int64   `json:"totalRequests"`
	TotalErrors       int64   `json:"totalErrors"`
	AvgLatencyMs      float64 `json:"avgLatencyMs"`
	EventsRecorded    int64   `json:"eventsRecorded"`
	BlockedActions    int64   `json:"blockedActions"`
	IsolatedContexts  int64   `json:"isolatedContexts"`
	ActiveConnections int64   `json:"activeConnections"`
	Sweeps            int64   `json:"sweeps"`
	UptimeSeconds     float64 `json:"uptimeSeconds"`

	totalDuration float64
}

// NewMetrics creates a metrics collector on its own registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		EventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "security_events_total",
				Help:      "Security events recorded by type and severity",
			},
			[]string{"type", "level"},
		),
		BlockedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "security_blocked_total",
				Help:      "Actions blocked by the policy engine",
			},
			[]string{"type"},
		),
		URLChecks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "security_url_checks_total",
				Help:      "URL safety checks by resulting level",
			},
			[]string{"level"},
		),
		URLCacheHits: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "security_url_cache_hits_total",
				Help:      "URL safety checks answered from cache",
			},
		),
		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "security_operation_duration_seconds",
				Help:      "Duration of security operations",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5},
			},
			[]string{"operation", "status"},
		),
		ThreatScore: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "security_threat_score",
				Help:      "Current threat score per browsing context",
			},
			[]string{"context"},
		),

		Sweeps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "monitor_sweeps_total",
				Help:      "Behavioral monitor sweeps",
			},
			[]string{"result"},
		),
		SweepDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "monitor_sweep_duration_seconds",
				Help:      "Behavioral monitor sweep duration in seconds",
				Buckets:   []float64{.001, .01, .05, .1, .5, 1, 5, 15, 30},
			},
		),

		IsolatedContexts: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "isolation_contexts",
				Help:      "Live isolated execution contexts",
			},
		),
		BreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "isolation_breaker_state",
				Help:      "Circuit breaker state (0 closed, 1 half-open, 2 open)",
			},
			[]string{"breaker"},
		),

		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "ws_connections",
				Help:      "Number of active WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ws_messages_total",
				Help:      "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),
	}

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Server uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Registry returns the registry the metrics are registered on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.totalDuration += duration.Seconds()
	if status != "" && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordEvent records a logged security event
func (m *Metrics) RecordEvent(eventType, level string, blocked bool) {
	m.EventsTotal.WithLabelValues(eventType, level).Inc()
	if blocked {
		m.BlockedTotal.WithLabelValues(eventType).Inc()
	}

	m.mu.Lock()
	m.snapshot.EventsRecorded++
	if blocked {
		m.snapshot.BlockedActions++
	}
	m.mu.Unlock()
}

// RecordURLCheck records a URL classification
func (m *Metrics) RecordURLCheck(level string, cached bool) {
	m.URLChecks.WithLabelValues(level).Inc()
	if cached {
		m.URLCacheHits.Inc()
	}
}

// RecordOperation records the duration of a security operation
func (m *Metrics) RecordOperation(operation, status string, duration time.Duration) {
	m.OperationDuration.WithLabelValues(operation, status).Observe(duration.Seconds())
}

// SetThreatScore sets the threat score gauge of one context
func (m *Metrics) SetThreatScore(contextID string, score int) {
	m.ThreatScore.WithLabelValues(contextID).Set(float64(score))
}

// ForgetContext drops per-context series
func (m *Metrics) ForgetContext(contextID string) {
	m.ThreatScore.DeleteLabelValues(contextID)
}

// RecordSweep records a monitor sweep
func (m *Metrics) RecordSweep(failed int, duration time.Duration) {
	result := "ok"
	if failed > 0 {
		result = "partial"
	}
	m.Sweeps.WithLabelValues(result).Inc()
	m.SweepDuration.Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.Sweeps++
	m.mu.Unlock()
}

// SetIsolatedContexts sets the number of live isolated contexts
func (m *Metrics) SetIsolatedContexts(count int) {
	m.IsolatedContexts.Set(float64(count))
	m.mu.Lock()
	m.snapshot.IsolatedContexts = int64(count)
	m.mu.Unlock()
}

// SetBreakerState records a breaker state as 0, 1 or 2
func (m *Metrics) SetBreakerState(name string, state int) {
	m.BreakerState.WithLabelValues(name).Set(float64(state))
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
	m.mu.Lock()
	m.snapshot.ActiveConnections++
	m.mu.Unlock()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
	m.mu.Lock()
	m.snapshot.ActiveConnections--
	m.mu.Unlock()
}

// Snapshot returns current values for the JSON API
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	s := m.snapshot
	m.mu.RUnlock()

	if s.TotalRequests > 0 {
		s.AvgLatencyMs = s.totalDuration / float64(s.TotalRequests) * 1000
	}
	s.UptimeSeconds = time.Since(m.startTime).Seconds()
	s.totalDuration = 0
	return s
}
