package policy

import (
	"maps"
	"slices"

	"github.com/Ancillary-AGI/titan-sub001/internal/security/threat"
)

// Capability names a single sandbox permission flag
type Capability string

const (
	JavaScript    Capability = "javascript"
	Plugins       Capability = "plugins"
	Popups        Capability = "popups"
	Downloads     Capability = "downloads"
	FileAccess    Capability = "fileAccess"
	Camera        Capability = "camera"
	Microphone    Capability = "microphone"
	Geolocation   Capability = "geolocation"
	Notifications Capability = "notifications"
	Clipboard     Capability = "clipboard"
	Fullscreen    Capability = "fullscreen"
)

// Capabilities lists every capability flag
var Capabilities = []Capability{
	JavaScript, Plugins, Popups, Downloads, FileAccess, Camera,
	Microphone, Geolocation, Notifications, Clipboard, Fullscreen,
}

// Policy is the sandbox configuration of one browsing context.
// Treat it as a value: the store hands out copies.
type Policy struct {
	Level threat.SandboxLevel `json:"level"`

	JavaScript    bool `json:"javascript"`
	Plugins       bool `json:"plugins"`
	Popups        bool `json:"popups"`
	Downloads     bool `json:"downloads"`
	FileAccess    bool `json:"fileAccess"`
	Camera        bool `json:"camera"`
	Microphone    bool `json:"microphone"`
	Geolocation   bool `json:"geolocation"`
	Notifications bool `json:"notifications"`
	Clipboard     bool `json:"clipboard"`
	Fullscreen    bool `json:"fullscreen"`

	AllowedDomains []string          `json:"allowedDomains,omitempty"`
	BlockedDomains []string          `json:"blockedDomains,omitempty"`
	CSPOverrides   map[string]string `json:"cspOverrides,omitempty"`
}

// DefaultPolicy returns the fixed policy of a sandbox level. Unknown
// levels get the maximum policy.
func DefaultPolicy(level threat.SandboxLevel) Policy {
	switch level {
	case threat.SandboxNone:
		return Policy{
			Level:         level,
			JavaScript:    true,
			Plugins:       true,
			Popups:        true,
			Downloads:     true,
			FileAccess:    true,
			Camera:        true,
			Microphone:    true,
			Geolocation:   true,
			Notifications: true,
			Clipboard:     true,
			Fullscreen:    true,
		}
	case threat.SandboxBasic:
		return Policy{
			Level:      level,
			JavaScript: true,
			Downloads:  true,
			Clipboard:  true,
			Fullscreen: true,
		}
	case threat.SandboxStrict:
		return Policy{Level: level, JavaScript: true}
	default:
		return Policy{Level: threat.SandboxMaximum}
	}
}

// Allows reports the flag for a capability name. Unknown names are denied.
func (p Policy) Allows(capability Capability) bool {
	switch capability {
	case JavaScript:
		return p.JavaScript
	case Plugins:
		return p.Plugins
	case Popups:
		return p.Popups
	case Downloads:
		return p.Downloads
	case FileAccess:
		return p.FileAccess
	case Camera:
		return p.Camera
	case Microphone:
		return p.Microphone
	case Geolocation:
		return p.Geolocation
	case Notifications:
		return p.Notifications
	case Clipboard:
		return p.Clipboard
	case Fullscreen:
		return p.Fullscreen
	default:
		return false
	}
}

// Permissions returns every capability flag keyed by name
func (p Policy) Permissions() map[Capability]bool {
	out := make(map[Capability]bool, len(Capabilities))
	for _, c := range Capabilities {
		out[c] = p.Allows(c)
	}
	return out
}

// Clone returns a deep copy
func (p Policy) Clone() Policy {
	p.AllowedDomains = slices.Clone(p.AllowedDomains)
	p.BlockedDomains = slices.Clone(p.BlockedDomains)
	p.CSPOverrides = maps.Clone(p.CSPOverrides)
	return p
}
