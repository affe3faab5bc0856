package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Ancillary-AGI/titan-sub001/internal/security/events"
)

// DefaultInterval is the sweep period
const DefaultInterval = 30 * time.Second

var ErrAlreadyRunning = errors.New("monitor already running")

// SweepResult summarizes one sweep
type SweepResult struct {
	Scanned  int
	Failed   int
	Findings int
	Duration time.Duration
}

// Option configures a Monitor
type Option func(*Monitor)

// WithInterval sets the sweep period
func WithInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithLogger sets the monitor logger
func WithLogger(log *zap.Logger) Option {
	return func(m *Monitor) {
		if log != nil {
			m.log = log
		}
	}
}

// WithSweepObserver is called after every sweep
func WithSweepObserver(fn func(SweepResult)) Option {
	return func(m *Monitor) {
		m.observe = fn
	}
}

// Monitor runs the periodic threat sweep
type Monitor struct {
	source   SignalSource
	registry Registry
	recorder Recorder
	interval time.Duration
	log      *zap.Logger
	observe  func(SweepResult)

	sweepMu sync.Mutex
	active  map[string]map[Heuristic]bool

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a monitor
func New(source SignalSource, registry Registry, recorder Recorder, opts ...Option) *Monitor {
	m := &Monitor{
		source:   source,
		registry: registry,
		recorder: recorder,
		interval: DefaultInterval,
		log:      zap.NewNop(),
		active:   make(map[string]map[Heuristic]bool),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Interval returns the sweep period
func (m *Monitor) Interval() time.Duration {
	return m.interval
}

// Start launches the sweep loop. It runs until ctx is cancelled or Stop.
func (m *Monitor) Start(ctx context.Context) error {
	m.runMu.Lock()
	defer m.runMu.Unlock()

	if m.cancel != nil {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	go m.loop(ctx, m.done)

	m.log.Info("Threat monitor started", zap.Duration("interval", m.interval))
	return nil
}

// Stop ends the sweep loop and waits for an in-progress sweep to finish
func (m *Monitor) Stop() {
	m.runMu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.runMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	m.log.Info("Threat monitor stopped")
}

// Running reports whether the loop is active
func (m *Monitor) Running() bool {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	return m.cancel != nil
}

func (m *Monitor) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(ctx)
		}
	}
}

// Sweep scans every registered context once
func (m *Monitor) Sweep(ctx context.Context) SweepResult {
	m.sweepMu.Lock()
	defer m.sweepMu.Unlock()

	start := time.Now()
	var result SweepResult

	tabs := m.registry.Contexts()
	seen := make(map[string]struct{}, len(tabs))
	for _, tab := range tabs {
		if ctx.Err() != nil {
			break
		}
		seen[tab] = struct{}{}
		result.Scanned++

		n, err := m.scan(ctx, tab)
		result.Findings += n
		if err != nil {
			result.Failed++
			m.log.Warn("Context scan failed", zap.String("tab_id", tab), zap.Error(err))
		}
		m.recorder.UpdateThreatScore(tab)
	}

	for tab := range m.active {
		if _, ok := seen[tab]; !ok {
			delete(m.active, tab)
		}
	}

	result.Duration = time.Since(start)
	if m.observe != nil {
		m.observe(result)
	}
	return result
}

// scan runs the heuristics for one context; m.sweepMu must be held
func (m *Monitor) scan(ctx context.Context, tab string) (findings int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	signals, err := m.source.Signals(ctx, tab)
	if err != nil {
		return 0, err
	}

	fired := make(map[Heuristic]bool)
	for _, f := range Evaluate(signals) {
		fired[f.Heuristic] = true
		if m.active[tab][f.Heuristic] {
			continue
		}
		m.recorder.Append(events.New(f.Type, f.Level, tab, signals.URL, f.Description, false).
			WithMetadata(map[string]string{"heuristic": string(f.Heuristic), "source": "monitor"}))
		findings++
	}
	m.active[tab] = fired
	return findings, nil
}
