package monitor

import (
	"context"

	"github.com/Ancillary-AGI/titan-sub001/internal/security/events"
)

// Signals are the renderer's observations of one browsing context since
// the previous sweep
type Signals struct {
	URL string

	// CPU usage in percent of one core, averaged over the sweep period
	CPUUsage      float64
	ActiveWorkers int
	WASMModules   int

	// RequestRate is requests per minute; RequestHistory holds earlier
	// rates used as the anomaly baseline
	RequestRate    float64
	RequestHistory []float64

	StorageReads    int
	ThirdPartyPosts int
	OutboundBytes   int64
}

// SignalSource is the renderer collaborator that reports signals
type SignalSource interface {
	Signals(ctx context.Context, tabID string) (Signals, error)
}

// Registry lists the contexts a sweep visits
type Registry interface {
	Contexts() []string
}

// RegistryFunc adapts a function to Registry
type RegistryFunc func() []string

func (f RegistryFunc) Contexts() []string { return f() }

// Recorder stores findings and owns threat scores
type Recorder interface {
	Append(e events.Event) events.Event
	UpdateThreatScore(tabID string) int
}
