package isolation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Ancillary-AGI/titan-sub001/internal/infrastructure/resilience"
	"github.com/Ancillary-AGI/titan-sub001/internal/shared/id"
)

// Option configures a Manager
type Option func(*Manager)

// WithLogger sets the manager logger
func WithLogger(log *zap.Logger) Option {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

// WithObserver is called with the live context count after every change
func WithObserver(fn func(live int)) Option {
	return func(m *Manager) {
		m.observe = fn
	}
}

// Manager owns one isolated context per browsing context
type Manager struct {
	config  Config
	log     *zap.Logger
	breaker *resilience.Breaker
	factory runtimeFactory
	observe func(live int)

	mu       sync.Mutex
	contexts map[string]*isolatedContext
	degraded map[string]error
	closed   bool
}

// NewManager creates an isolation manager
func NewManager(config Config, opts ...Option) *Manager {
	defaults := DefaultConfig()
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.MaxContexts <= 0 {
		config.MaxContexts = defaults.MaxContexts
	}
	if config.QueueSize <= 0 {
		config.QueueSize = defaults.QueueSize
	}

	m := &Manager{
		config:   config,
		log:      zap.NewNop(),
		factory:  newRuntime,
		contexts: make(map[string]*isolatedContext),
		degraded: make(map[string]error),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.breaker = resilience.New("isolation", resilience.Settings{
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to resilience.State) {
			m.log.Warn("Isolation breaker state changed",
				zap.String("breaker", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to))
		},
	})
	return m
}

// Create starts the isolated context of a tab. Creating an existing context
// is a no-op. On failure the tab is left in degraded mode and the error
// wraps ErrIsolationUnavailable.
func (m *Manager) Create(tabID string) error {
	_, err := m.acquire(tabID)
	return err
}

func (m *Manager) acquire(tabID string) (*isolatedContext, error) {
	if c, err := m.lookup(tabID); c != nil || err != nil {
		return c, err
	}

	// built without m.mu held; capacity and the tab are re-checked below
	rt, err := resilience.Call(m.breaker, func() (*runtime, error) {
		return m.factory(m.config)
	})

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrManagerClosed
	}
	if err != nil {
		return nil, m.degrade(tabID, err)
	}
	if c := m.live(tabID); c != nil {
		return c, nil
	}
	if len(m.contexts) >= m.config.MaxContexts {
		return nil, m.degrade(tabID, ErrResourceExhausted)
	}

	c := startContext(tabID, rt, m.config, m.factory, m.log)
	m.contexts[tabID] = c
	delete(m.degraded, tabID)
	m.notify()
	return c, nil
}

// lookup returns the live context of tabID, or nil with no error when a
// new one may be built
func (m *Manager) lookup(tabID string) (*isolatedContext, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrManagerClosed
	}
	if c := m.live(tabID); c != nil {
		return c, nil
	}
	if len(m.contexts) >= m.config.MaxContexts {
		return nil, m.degrade(tabID, ErrResourceExhausted)
	}
	return nil, nil
}

// live returns the running context of tabID, dropping a finished one;
// m.mu must be held
func (m *Manager) live(tabID string) *isolatedContext {
	c, ok := m.contexts[tabID]
	if !ok {
		return nil
	}
	select {
	case <-c.done:
		delete(m.contexts, tabID)
		return nil
	default:
		return c
	}
}

// degrade records the failure for tabID; m.mu must be held
func (m *Manager) degrade(tabID string, cause error) error {
	m.degraded[tabID] = cause
	m.log.Warn("Isolation unavailable, running degraded",
		zap.String("tab_id", tabID),
		zap.Int("live_contexts", len(m.contexts)),
		zap.Error(cause))
	return fmt.Errorf("%w: %w", ErrIsolationUnavailable, cause)
}

// Dispose tears down a tab's isolated context. In-flight callers receive
// ErrContextDisposed. Disposing an unknown tab is a no-op.
func (m *Manager) Dispose(tabID string) {
	m.mu.Lock()
	c, ok := m.contexts[tabID]
	delete(m.contexts, tabID)
	delete(m.degraded, tabID)
	if ok {
		m.notify()
	}
	m.mu.Unlock()

	if ok {
		c.dispose()
		m.log.Debug("Isolated context disposed",
			zap.String("tab_id", tabID),
			zap.Duration("lifetime", time.Since(c.created)))
	}
}

// Send delivers a message to the tab's isolated context, creating it on demand
func (m *Manager) Send(ctx context.Context, tabID string, msg Message) (Reply, error) {
	c, err := m.acquire(tabID)
	if err != nil {
		return Reply{}, err
	}
	if msg.ID == "" {
		msg.ID = id.NewMessageID()
	}

	reply, err := c.send(ctx, msg)
	if err != nil {
		return Reply{}, err
	}
	if reply.Err != "" {
		return reply, &ExecutionError{
			TabID:     tabID,
			MessageID: reply.ID,
			Kind:      reply.Kind,
			Message:   reply.Err,
			Fault:     reply.Timeout,
		}
	}
	return reply, nil
}

// Execute evaluates a script inside the tab's isolated context. Degraded
// tabs never run scripts.
func (m *Manager) Execute(ctx context.Context, tabID, script string) (Reply, error) {
	return m.Send(ctx, tabID, Message{Kind: KindExecuteScript, Payload: script})
}

// Sanitize cleans markup inside the tab's isolated context. When isolation
// is unavailable the same sanitization runs in-process.
func (m *Manager) Sanitize(ctx context.Context, tabID, html string, strict bool) (string, error) {
	reply, err := m.Send(ctx, tabID, Message{Kind: KindProcessHTML, Payload: html, Strict: strict})
	if errors.Is(err, ErrIsolationUnavailable) {
		if strict {
			return SanitizeStrict(html), nil
		}
		return Sanitize(html), nil
	}
	if err != nil {
		return "", err
	}
	return reply.HTML, nil
}

// Has reports whether the tab has a live isolated context
func (m *Manager) Has(tabID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.contexts[tabID]
	return ok
}

// Degraded returns the creation failure of a tab running without
// isolation, or nil when the tab is not degraded.
func (m *Manager) Degraded(tabID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.degraded[tabID]
}

// Count returns the number of live isolated contexts
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.contexts)
}

// Tabs returns the tabs with live isolated contexts, sorted
func (m *Manager) Tabs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	tabs := make([]string, 0, len(m.contexts))
	for tab := range m.contexts {
		tabs = append(tabs, tab)
	}
	sort.Strings(tabs)
	return tabs
}

// BreakerState reports the creation breaker state
func (m *Manager) BreakerState() resilience.State {
	return m.breaker.State()
}

// Close disposes every context and waits briefly for the workers to exit
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	contexts := m.contexts
	m.contexts = make(map[string]*isolatedContext)
	m.notify()
	m.mu.Unlock()

	for _, c := range contexts {
		c.dispose()
	}
	for tab, c := range contexts {
		if !c.wait(m.config.Timeout) {
			m.log.Warn("Isolated worker did not exit", zap.String("tab_id", tab))
		}
	}
	return nil
}

// notify reports the live count; m.mu must be held
func (m *Manager) notify() {
	if m.observe != nil {
		m.observe(len(m.contexts))
	}
}
