package threat

import (
	"fmt"
	"strings"
)

// SandboxLevel orders the default isolation policies from permissive to restrictive
type SandboxLevel int

const (
	SandboxNone SandboxLevel = iota
	SandboxBasic
	SandboxStrict
	SandboxMaximum
)

// String returns the sandbox level name
func (s SandboxLevel) String() string {
	switch s {
	case SandboxNone:
		return "none"
	case SandboxBasic:
		return "basic"
	case SandboxStrict:
		return "strict"
	case SandboxMaximum:
		return "maximum"
	default:
		return "unknown"
	}
}

// Valid reports whether s is a declared sandbox level
func (s SandboxLevel) Valid() bool {
	return s >= SandboxNone && s <= SandboxMaximum
}

// ParseSandboxLevel converts a name to a SandboxLevel
func ParseSandboxLevel(s string) (SandboxLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none":
		return SandboxNone, nil
	case "basic":
		return SandboxBasic, nil
	case "strict":
		return SandboxStrict, nil
	case "maximum":
		return SandboxMaximum, nil
	default:
		return SandboxBasic, fmt.Errorf("unknown sandbox level %q", s)
	}
}

// MarshalText encodes the sandbox level by name
func (s SandboxLevel) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid sandbox level %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes a sandbox level name
func (s *SandboxLevel) UnmarshalText(text []byte) error {
	parsed, err := ParseSandboxLevel(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Decode lets envconfig read a SandboxLevel by name
func (s *SandboxLevel) Decode(value string) error {
	return s.UnmarshalText([]byte(value))
}
