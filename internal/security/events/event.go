package events

import (
	"maps"
	"time"

	"github.com/Ancillary-AGI/titan-sub001/internal/security/threat"
	"github.com/Ancillary-AGI/titan-sub001/internal/shared/id"
)

// Event is an immutable security event record
type Event struct {
	ID          id.EventID        `json:"id"`
	Type        threat.EventType  `json:"type"`
	Level       threat.Level      `json:"level"`
	TabID       string            `json:"tabId"`
	URL         string            `json:"url"`
	Description string            `json:"description"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
	Blocked     bool              `json:"blocked"`
}

// New creates an event with a fresh id and the current time
func New(typ threat.EventType, level threat.Level, tabID, url, description string, blocked bool) Event {
	return Event{
		ID:          id.NewEventID(),
		Type:        typ,
		Level:       level,
		TabID:       tabID,
		URL:         url,
		Description: description,
		Timestamp:   time.Now(),
		Blocked:     blocked,
	}
}

// WithMetadata returns a copy of e carrying metadata
func (e Event) WithMetadata(md map[string]string) Event {
	e.Metadata = maps.Clone(md)
	return e
}

// Filter selects events. Zero fields match everything.
type Filter struct {
	TabID    string
	Types    []threat.EventType
	MinLevel threat.Level
	Since    time.Time
	Until    time.Time
	Blocked  *bool
	Limit    int // newest events win when the result is truncated
}

func (f Filter) matches(e Event) bool {
	if f.TabID != "" && e.TabID != f.TabID {
		return false
	}
	if !e.Level.AtLeast(f.MinLevel) {
		return false
	}
	if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && e.Timestamp.After(f.Until) {
		return false
	}
	if f.Blocked != nil && e.Blocked != *f.Blocked {
		return false
	}
	if len(f.Types) == 0 {
		return true
	}
	for _, t := range f.Types {
		if t == e.Type {
			return true
		}
	}
	return false
}
