package coordinator

import (
	"context"
	"slices"
	"sync"

	"github.com/Ancillary-AGI/titan-sub001/internal/security/monitor"
)

// SignalBoard holds the latest renderer signals per context. The renderer
// pushes with Report; the monitor reads on each sweep.
type SignalBoard struct {
	mu      sync.RWMutex
	signals map[string]monitor.Signals
}

// NewSignalBoard creates an empty board
func NewSignalBoard() *SignalBoard {
	return &SignalBoard{signals: make(map[string]monitor.Signals)}
}

// Report replaces the signals of a tab
func (b *SignalBoard) Report(tabID string, s monitor.Signals) {
	s.RequestHistory = slices.Clone(s.RequestHistory)
	b.mu.Lock()
	b.signals[tabID] = s
	b.mu.Unlock()
}

// Forget drops a tab's signals
func (b *SignalBoard) Forget(tabID string) {
	b.mu.Lock()
	delete(b.signals, tabID)
	b.mu.Unlock()
}

// Tabs lists the tabs with reported signals
func (b *SignalBoard) Tabs() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	tabs := make([]string, 0, len(b.signals))
	for tab := range b.signals {
		tabs = append(tabs, tab)
	}
	return tabs
}

// Signals returns the last report for a tab, or zero signals
func (b *SignalBoard) Signals(ctx context.Context, tabID string) (monitor.Signals, error) {
	if err := ctx.Err(); err != nil {
		return monitor.Signals{}, err
	}
	b.mu.RLock()
	s := b.signals[tabID]
	b.mu.RUnlock()
	s.RequestHistory = slices.Clone(s.RequestHistory)
	return s, nil
}
