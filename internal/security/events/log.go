package events

import (
	"maps"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Ancillary-AGI/titan-sub001/internal/security/threat"
	"github.com/Ancillary-AGI/titan-sub001/internal/shared/id"
)

// DefaultRetention keeps every event; a positive retention bounds the log
const DefaultRetention = 0

// Option configures a Log
type Option func(*Log)

// WithLogger sets the log's logger
func WithLogger(log *zap.Logger) Option {
	return func(l *Log) {
		if log != nil {
			l.log = log
		}
	}
}

// WithClock overrides the time source used for events without a timestamp
func WithClock(now func() time.Time) Option {
	return func(l *Log) {
		l.now = now
	}
}

// WithRetention caps stored events; the oldest are dropped first and
// counted by Evicted. Threat multisets keep counting dropped events.
// Zero or less keeps every event.
func WithRetention(n int) Option {
	return func(l *Log) {
		l.retention = max(n, 0)
	}
}

// Log stores security events and per-tab threat aggregates
type Log struct {
	log       *zap.Logger
	now       func() time.Time
	retention int

	mu      sync.RWMutex
	events  []Event
	evicted int
	threats map[string]map[threat.Category]int
	scores  map[string]int
	subs    map[uint64]chan Event
	nextSub uint64
}

// NewLog creates an empty event log
func NewLog(opts ...Option) *Log {
	l := &Log{
		log:       zap.NewNop(),
		now:       time.Now,
		retention: DefaultRetention,
		threats:   make(map[string]map[threat.Category]int),
		scores:    make(map[string]int),
		subs:      make(map[uint64]chan Event),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append records an event, updates its tab's multiset and score, and
// publishes it to subscribers. Missing ids and timestamps are filled in.
func (l *Log) Append(e Event) Event {
	if e.ID == "" {
		e.ID = id.NewEventID()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = l.now()
	}
	e.Metadata = maps.Clone(e.Metadata)

	l.mu.Lock()
	defer l.mu.Unlock()

	l.events = append(l.events, e)
	if over := len(l.events) - l.retention; l.retention > 0 && over > 0 {
		if l.evicted == 0 {
			l.log.Warn("Event retention reached, evicting oldest events",
				zap.Int("retention", l.retention))
		}
		l.evicted += over
		l.log.Debug("Evicted events",
			zap.Int("count", over),
			zap.Int("total_evicted", l.evicted))
		l.events = append(l.events[:0:0], l.events[over:]...)
	}

	multiset, ok := l.threats[e.TabID]
	if !ok {
		multiset = make(map[threat.Category]int)
		l.threats[e.TabID] = multiset
	}
	multiset[e.Type.Category()]++
	l.recompute(e.TabID)

	for subID, ch := range l.subs {
		select {
		case ch <- e:
		default:
			l.log.Debug("Dropping event for slow subscriber",
				zap.Uint64("subscriber", subID),
				zap.String("event_id", e.ID.String()))
		}
	}
	return e
}

// Evicted returns how many events retention has dropped
func (l *Log) Evicted() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.evicted
}

// UpdateThreatScore recomputes the tab's score from its multiset
func (l *Log) UpdateThreatScore(tabID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.recompute(tabID)
}

// recompute derives the score; l.mu must be held for writing
func (l *Log) recompute(tabID string) int {
	multiset, ok := l.threats[tabID]
	if !ok {
		return 0
	}
	score := 0
	for category, count := range multiset {
		score += category.Weight() * count
	}
	l.scores[tabID] = score
	return score
}

// ThreatScore returns the last computed score, zero for unknown tabs
func (l *Log) ThreatScore(tabID string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.scores[tabID]
}

// Scores returns a snapshot of every tab's score
func (l *Log) Scores() map[string]int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return maps.Clone(l.scores)
}

// Threats returns a copy of the tab's threat multiset
func (l *Log) Threats(tabID string) map[threat.Category]int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return maps.Clone(l.threats[tabID])
}

// Contexts returns every tab holding a threat multiset, sorted
func (l *Log) Contexts() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	tabs := make([]string, 0, len(l.threats))
	for tab := range l.threats {
		tabs = append(tabs, tab)
	}
	sort.Strings(tabs)
	return tabs
}

// Events returns matching events oldest first
func (l *Log) Events(f Filter) []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := []Event{}
	for _, e := range l.events {
		if f.matches(e) {
			out = append(out, e)
		}
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[len(out)-f.Limit:]
	}
	return out
}

// Len returns the number of stored events
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}

// ClearContext drops a tab's events, multiset and score together
func (l *Log) ClearContext(tabID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.events[:0:0]
	removed := 0
	for _, e := range l.events {
		if e.TabID == tabID {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	l.events = kept
	delete(l.threats, tabID)
	delete(l.scores, tabID)
	return removed
}

// Subscribe returns a stream of newly appended events. Events are dropped
// for subscribers whose buffer is full. cancel closes the stream.
func (l *Log) Subscribe(buffer int) (stream <-chan Event, cancel func()) {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan Event, buffer)

	l.mu.Lock()
	subID := l.nextSub
	l.nextSub++
	l.subs[subID] = ch
	l.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			if _, ok := l.subs[subID]; ok {
				delete(l.subs, subID)
				close(ch)
			}
		})
	}
}

// Close ends every subscription
func (l *Log) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for subID, ch := range l.subs {
		close(ch)
		delete(l.subs, subID)
	}
}
