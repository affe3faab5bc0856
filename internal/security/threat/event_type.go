package threat

import "fmt"

// EventType is the kind of a security event
type EventType int

const (
	MaliciousScript EventType = iota
	SuspiciousDownload
	PhishingAttempt
	DataExfiltration
	UnauthorizedAccess
	CSPViolation
	XSSAttempt
	SQLInjection
	Clickjacking
	Cryptojacking
)

// EventTypes lists every event type in declaration order
var EventTypes = []EventType{
	MaliciousScript,
	SuspiciousDownload,
	PhishingAttempt,
	DataExfiltration,
	UnauthorizedAccess,
	CSPViolation,
	XSSAttempt,
	SQLInjection,
	Clickjacking,
	Cryptojacking,
}

// String returns the camelCase event type name
func (t EventType) String() string {
	switch t {
	case MaliciousScript:
		return "maliciousScript"
	case SuspiciousDownload:
		return "suspiciousDownload"
	case PhishingAttempt:
		return "phishingAttempt"
	case DataExfiltration:
		return "dataExfiltration"
	case UnauthorizedAccess:
		return "unauthorizedAccess"
	case CSPViolation:
		return "cspViolation"
	case XSSAttempt:
		return "xssAttempt"
	case SQLInjection:
		return "sqlInjection"
	case Clickjacking:
		return "clickjacking"
	case Cryptojacking:
		return "cryptojacking"
	default:
		return "unknown"
	}
}

// Valid reports whether t is a declared event type
func (t EventType) Valid() bool {
	return t >= MaliciousScript && t <= Cryptojacking
}

// Category maps an event type onto the threat multiset key it feeds
func (t EventType) Category() Category {
	switch t {
	case SuspiciousDownload:
		return CategoryMalware
	case PhishingAttempt:
		return CategoryPhishing
	case Cryptojacking:
		return CategoryCryptojacking
	case MaliciousScript:
		return CategorySuspiciousScript
	case DataExfiltration:
		return CategoryTracking
	case UnauthorizedAccess:
		return CategoryUnauthorizedAccess
	case CSPViolation:
		return CategoryCSPViolation
	case XSSAttempt:
		return CategoryXSS
	case SQLInjection:
		return CategorySQLInjection
	case Clickjacking:
		return CategoryClickjacking
	default:
		return CategoryUnknown
	}
}

// ParseEventType converts an event type name to an EventType
func ParseEventType(s string) (EventType, error) {
	for _, t := range EventTypes {
		if t.String() == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown event type %q", s)
}

// MarshalText encodes the event type by name
func (t EventType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid event type %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText decodes an event type name
func (t *EventType) UnmarshalText(text []byte) error {
	parsed, err := ParseEventType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
