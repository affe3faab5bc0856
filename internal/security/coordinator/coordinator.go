package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/Ancillary-AGI/titan-sub001/internal/infrastructure/monitoring"
	"github.com/Ancillary-AGI/titan-sub001/internal/security/classifier"
	"github.com/Ancillary-AGI/titan-sub001/internal/security/events"
	"github.com/Ancillary-AGI/titan-sub001/internal/security/intel"
	"github.com/Ancillary-AGI/titan-sub001/internal/security/isolation"
	"github.com/Ancillary-AGI/titan-sub001/internal/security/monitor"
	"github.com/Ancillary-AGI/titan-sub001/internal/security/patterns"
	"github.com/Ancillary-AGI/titan-sub001/internal/security/policy"
	"github.com/Ancillary-AGI/titan-sub001/internal/security/threat"
	"github.com/Ancillary-AGI/titan-sub001/internal/storage/kv"
)

var (
	ErrInvalidPolicy      = errors.New("invalid sandbox policy")
	ErrJavaScriptDisabled = errors.New("javascript is disabled by sandbox policy")
	ErrClosed             = errors.New("coordinator is closed")
)

// Config tunes the engine
type Config struct {
	DefaultLevel    threat.SandboxLevel
	MonitorInterval time.Duration
	Isolation       isolation.Config
	URLCacheSize    int
	EventRetention  int
}

// DefaultConfig returns the production defaults
func DefaultConfig() Config {
	return Config{
		DefaultLevel:    threat.SandboxBasic,
		MonitorInterval: monitor.DefaultInterval,
		Isolation:       isolation.DefaultConfig(),
		URLCacheSize:    4096,
		EventRetention:  events.DefaultRetention,
	}
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithLogger sets the logger
func WithLogger(log *zap.Logger) Option {
	return func(c *Coordinator) {
		if log != nil {
			c.log = log
		}
	}
}

// WithLibrary replaces the bundled pattern library
func WithLibrary(lib *patterns.Library) Option {
	return func(c *Coordinator) {
		if lib != nil {
			c.lib = lib
		}
	}
}

// WithIntel adds an external threat-intelligence source consulted next to the library
func WithIntel(source intel.Source) Option {
	return func(c *Coordinator) { c.source = source }
}

// WithStore sets the key-value store for settings persistence
func WithStore(store kv.Store) Option {
	return func(c *Coordinator) {
		if store != nil {
			c.store = store
		}
	}
}

// WithMetrics records engine activity on m
func WithMetrics(m *monitoring.Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// WithSignalSource replaces the push-based signal board as the monitor's input
func WithSignalSource(source monitor.SignalSource) Option {
	return func(c *Coordinator) { c.signals = source }
}

// WithClock sets the event clock
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// Coordinator composes the classifier, policy store, isolation manager,
// event log and monitor
type Coordinator struct {
	log     *zap.Logger
	now     func() time.Time
	lib     *patterns.Library
	source  intel.Source
	store   kv.Store
	metrics *monitoring.Metrics
	signals monitor.SignalSource
	board   *SignalBoard

	classifier *classifier.Classifier
	policies   *policy.Store
	isolation  *isolation.Manager
	events     *events.Log
	monitor    *monitor.Monitor
	urlCache   *lru.Cache[string, threat.Level]

	mu       sync.Mutex
	settings SecuritySettings
	known    map[string]struct{}
	runCtx   context.Context
	closed   bool
}

// New builds a coordinator. Settings start at their defaults with the
// configured sandbox level; call LoadSettings to apply persisted ones.
func New(cfg Config, opts ...Option) *Coordinator {
	c := &Coordinator{
		log:   zap.NewNop(),
		now:   time.Now,
		lib:   patterns.Default(),
		store: kv.NewMemory(),
		board: NewSignalBoard(),
		known: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.signals == nil {
		c.signals = c.board
	}
	if !cfg.DefaultLevel.Valid() {
		cfg.DefaultLevel = threat.SandboxBasic
	}

	c.settings = DefaultSettings()
	c.settings.DefaultSandboxLevel = cfg.DefaultLevel

	c.classifier = classifier.New(c.lib, c.source)
	c.events = events.NewLog(
		events.WithLogger(c.log.Named("events")),
		events.WithClock(c.now),
		events.WithRetention(cfg.EventRetention),
	)
	c.isolation = isolation.NewManager(cfg.Isolation,
		isolation.WithLogger(c.log.Named("isolation")),
		isolation.WithObserver(c.observeIsolation),
	)
	c.policies = policy.NewStore(c.lib, cfg.DefaultLevel, policy.WithDisposer(c.isolation))
	c.monitor = monitor.New(c.signals, monitor.RegistryFunc(c.Contexts), recorder{c},
		monitor.WithInterval(cfg.MonitorInterval),
		monitor.WithLogger(c.log.Named("monitor")),
		monitor.WithSweepObserver(c.observeSweep),
	)

	if cfg.URLCacheSize > 0 {
		cache, err := lru.New[string, threat.Level](cfg.URLCacheSize)
		if err != nil {
			c.log.Warn("URL cache disabled", zap.Error(err))
		} else {
			c.urlCache = cache
		}
	}
	return c
}

// Start launches the background monitor when the threat monitor setting is on.
// The monitor stops when ctx is cancelled or Close is called.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.runCtx = ctx
	enabled := c.settings.ThreatMonitor
	c.mu.Unlock()

	if !enabled {
		return nil
	}
	if err := c.monitor.Start(ctx); err != nil && !errors.Is(err, monitor.ErrAlreadyRunning) {
		return fmt.Errorf("start monitor: %w", err)
	}
	return nil
}

// Close stops the monitor, tears down every isolated context and ends event streams
func (c *Coordinator) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.monitor.Stop()
	err := c.isolation.Close()
	c.events.Close()
	return err
}

// EventLog exposes the event log for queries and subscriptions
func (c *Coordinator) EventLog() *events.Log {
	return c.events
}

// Monitor exposes the background monitor
func (c *Coordinator) Monitor() *monitor.Monitor {
	return c.monitor
}

// Signals exposes the push-based signal board
func (c *Coordinator) Signals() *SignalBoard {
	return c.board
}

// Contexts lists every browsing context the engine knows about
func (c *Coordinator) Contexts() []string {
	seen := make(map[string]struct{})
	c.mu.Lock()
	for tab := range c.known {
		seen[tab] = struct{}{}
	}
	c.mu.Unlock()
	for _, tab := range c.policies.Tabs() {
		seen[tab] = struct{}{}
	}
	for _, tab := range c.isolation.Tabs() {
		seen[tab] = struct{}{}
	}
	for _, tab := range c.events.Contexts() {
		seen[tab] = struct{}{}
	}
	for _, tab := range c.board.Tabs() {
		seen[tab] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for tab := range seen {
		out = append(out, tab)
	}
	sort.Strings(out)
	return out
}

// CloseContext releases everything held for a browsing context: its
// isolated context, policy override, events, threat multiset and score
func (c *Coordinator) CloseContext(tabID string) {
	c.policies.Remove(tabID)
	cleared := c.events.ClearContext(tabID)
	c.board.Forget(tabID)

	c.mu.Lock()
	delete(c.known, tabID)
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.ForgetContext(tabID)
	}
	c.log.Debug("context closed", zap.String("tab", tabID), zap.Int("events_cleared", cleared))
}

// Stats summarizes engine state for health checks
type Stats struct {
	Contexts         int    `json:"contexts"`
	IsolatedContexts int    `json:"isolatedContexts"`
	Events           int    `json:"events"`
	MonitorRunning   bool   `json:"monitorRunning"`
	IsolationBreaker string `json:"isolationBreaker"`
	PolicyOverrides  int    `json:"policyOverrides"`
	EvictedEvents    int    `json:"evictedEvents"`
}

// Stats returns a snapshot of engine state
func (c *Coordinator) Stats() Stats {
	return Stats{
		Contexts:         len(c.Contexts()),
		IsolatedContexts: c.isolation.Count(),
		Events:           c.events.Len(),
		MonitorRunning:   c.monitor.Running(),
		IsolationBreaker: c.isolation.BreakerState().String(),
		PolicyOverrides:  len(c.policies.Tabs()),
		EvictedEvents:    c.events.Evicted(),
	}
}

func (c *Coordinator) track(tabID string) {
	if tabID == "" {
		return
	}
	c.mu.Lock()
	c.known[tabID] = struct{}{}
	c.mu.Unlock()
}

// record appends an event, rescores its tab and updates metrics
func (c *Coordinator) record(e events.Event) events.Event {
	e = c.events.Append(e)
	c.track(e.TabID)
	if c.metrics != nil {
		c.metrics.RecordEvent(e.Type.String(), e.Level.String(), e.Blocked)
		c.metrics.SetThreatScore(e.TabID, c.events.ThreatScore(e.TabID))
	}
	return e
}

func (c *Coordinator) observeIsolation(live int) {
	if c.metrics == nil {
		return
	}
	c.metrics.SetIsolatedContexts(live)
	c.metrics.SetBreakerState("isolation", int(c.isolation.BreakerState()))
}

func (c *Coordinator) observeSweep(res monitor.SweepResult) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordSweep(res.Failed, res.Duration)
	for tab, score := range c.events.Scores() {
		c.metrics.SetThreatScore(tab, score)
	}
}

// recorder routes monitor findings through the coordinator
type recorder struct{ c *Coordinator }

func (r recorder) Append(e events.Event) events.Event { return r.c.record(e) }

func (r recorder) UpdateThreatScore(tabID string) int {
	score := r.c.events.UpdateThreatScore(tabID)
	if r.c.metrics != nil {
		r.c.metrics.SetThreatScore(tabID, score)
	}
	return score
}
