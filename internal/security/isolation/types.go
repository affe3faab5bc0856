package isolation

import (
	"errors"
	"fmt"
	"time"

	"github.com/Ancillary-AGI/titan-sub001/internal/shared/id"
)

var (
	ErrContextDisposed      = errors.New("isolated context disposed")
	ErrIsolationUnavailable = errors.New("isolation unavailable")
	ErrResourceExhausted    = errors.New("isolated context limit reached")
	ErrTimeout              = errors.New("isolated execution timed out")
	ErrManagerClosed        = errors.New("isolation manager closed")
	ErrUnknownMessage       = errors.New("unknown message kind")
)

// Config controls isolated context creation and execution
type Config struct {
	Timeout          time.Duration // per message
	MaxContexts      int           // live contexts across all tabs
	MaxCallStackSize int
	EnableConsole    bool
	QueueSize        int // pending messages per context
}

// DefaultConfig returns production defaults
func DefaultConfig() Config {
	return Config{
		Timeout:          5 * time.Second,
		MaxContexts:      64,
		MaxCallStackSize: 1024,
		EnableConsole:    true,
		QueueSize:        16,
	}
}

// Kind is the type of message an isolated context accepts
type Kind int

const (
	KindExecuteScript Kind = iota
	KindProcessHTML
)

func (k Kind) String() string {
	switch k {
	case KindExecuteScript:
		return "executeScript"
	case KindProcessHTML:
		return "processHTML"
	default:
		return "unknown"
	}
}

// Message is a request to an isolated context
type Message struct {
	ID      id.MessageID
	Kind    Kind
	Payload string
	// Strict adds an allow-list sanitizer pass after pattern stripping
	Strict bool
}

// LogEntry is one console call made by an isolated script
type LogEntry struct {
	Level   string    `json:"level"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// Reply answers a Message. Err is set when processing failed.
type Reply struct {
	ID       id.MessageID  `json:"id"`
	Kind     Kind          `json:"kind"`
	Value    any           `json:"value,omitempty"`
	HTML     string        `json:"html,omitempty"`
	Console  []LogEntry    `json:"console,omitempty"`
	Duration time.Duration `json:"duration"`
	Err      string        `json:"error,omitempty"`
	Timeout  bool          `json:"timeout,omitempty"`
}

// ExecutionError is a failure reported by an isolated context
type ExecutionError struct {
	TabID     string
	MessageID id.MessageID
	Kind      Kind
	Message   string
	// Fault marks failures caused by the processed content itself, such as
	// runaway scripts, rather than ordinary script errors
	Fault bool
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("isolated %s in %s failed: %s", e.Kind, e.TabID, e.Message)
}
