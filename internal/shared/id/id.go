// Package id generates identifiers for security events, reports and
// isolation messages.
//
// Events and reports carry prefixed ULIDs so they sort by creation time
// (evt_01J..., rpt_01J...). Isolation messages carry random UUIDs used only
// to correlate a reply with its request.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// EventID identifies a security event
type EventID string

// ReportID identifies a generated security report
type ReportID string

// MessageID correlates an isolation request with its reply
type MessageID string

const (
	EventPrefix  = "evt"
	ReportPrefix = "rpt"
)

// Generator produces monotonic ULIDs
type Generator struct {
	mu      sync.Mutex
	entropy io.Reader
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the process-wide generator
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator backed by crypto/rand. Identifiers
// minted within the same millisecond stay strictly increasing.
func NewGenerator() *Generator {
	return NewGeneratorWithEntropy(ulid.Monotonic(rand.Reader, 0))
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.Generate().String())
}

// NewEventID generates a security event id
func NewEventID() EventID {
	return EventID(Default().GenerateWithPrefix(EventPrefix))
}

// NewReportID generates a report id
func NewReportID() ReportID {
	return ReportID(Default().GenerateWithPrefix(ReportPrefix))
}

// NewMessageID generates an isolation correlation id
func NewMessageID() MessageID {
	return MessageID(uuid.NewString())
}

func (id EventID) String() string   { return string(id) }
func (id ReportID) String() string  { return string(id) }
func (id MessageID) String() string { return string(id) }

// Timestamp extracts the creation time of a prefixed or bare ULID
func Timestamp(id string) (time.Time, error) {
	if i := strings.LastIndexByte(id, '_'); i >= 0 {
		id = id[i+1:]
	}
	parsed, err := ulid.Parse(id)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}

// IsValid reports whether id is a prefixed or bare ULID
func IsValid(id string) bool {
	_, err := Timestamp(id)
	return err == nil
}
