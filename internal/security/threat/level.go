package threat

import (
	"fmt"
	"strings"
)

// Level is an ordered severity classification
type Level int

const (
	None Level = iota
	Low
	Medium
	High
	Critical
)

// Levels lists every level in ascending order
var Levels = []Level{None, Low, Medium, High, Critical}

// String returns the lowercase level name
func (l Level) String() string {
	switch l {
	case None:
		return "none"
	case Low:
		return "low"
	case Medium:
		return "medium"
	case High:
		return "high"
	case Critical:
		return "critical"
	default:
		return "unknown"
	}
}

// AtLeast reports whether l ranks at or above other
func (l Level) AtLeast(other Level) bool {
	return l >= other
}

// Valid reports whether l is one of the declared levels
func (l Level) Valid() bool {
	return l >= None && l <= Critical
}

// Max returns the highest of the given levels, None for no input
func Max(levels ...Level) Level {
	max := None
	for _, l := range levels {
		if l > max {
			max = l
		}
	}
	return max
}

// ParseLevel converts a level name to a Level
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none":
		return None, nil
	case "low":
		return Low, nil
	case "medium":
		return Medium, nil
	case "high":
		return High, nil
	case "critical":
		return Critical, nil
	default:
		return None, fmt.Errorf("unknown threat level %q", s)
	}
}

// MarshalText encodes the level by name
func (l Level) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("invalid threat level %d", int(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText decodes a level name
func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
