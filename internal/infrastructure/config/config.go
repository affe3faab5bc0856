package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/Ancillary-AGI/titan-sub001/internal/security/threat"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	Security  SecurityConfig
	Intel     IntelConfig
	Storage   StorageConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// SecurityConfig holds policy engine configuration.
type SecurityConfig struct {
	DefaultLevel        threat.SandboxLevel `envconfig:"SECURITY_DEFAULT_LEVEL" default:"basic"`
	MonitorEnabled      bool                `envconfig:"SECURITY_MONITOR_ENABLED" default:"true"`
	MonitorInterval     time.Duration       `envconfig:"SECURITY_MONITOR_INTERVAL" default:"30s"`
	IsolationTimeout    time.Duration       `envconfig:"SECURITY_ISOLATION_TIMEOUT" default:"5s"`
	MaxIsolatedContexts int                 `envconfig:"SECURITY_MAX_ISOLATED_CONTEXTS" default:"64"`
	URLCacheSize        int                 `envconfig:"SECURITY_URL_CACHE_SIZE" default:"4096"`
	// EventRetention bounds the in-memory event log; 0 keeps every event
	EventRetention int `envconfig:"SECURITY_EVENT_RETENTION" default:"0"`
}

// IntelConfig holds threat feed configuration. Empty values keep the
// built-in lists only.
type IntelConfig struct {
	FeedDir     string        `envconfig:"INTEL_FEED_DIR"`
	FeedURL     string        `envconfig:"INTEL_FEED_URL"`
	FeedTimeout time.Duration `envconfig:"INTEL_FEED_TIMEOUT" default:"10s"`
}

// StorageConfig selects the settings store. An empty Dir keeps settings in memory.
type StorageConfig struct {
	Dir string `envconfig:"STORAGE_DIR"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "0.0.0.0",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		Security: SecurityConfig{
			DefaultLevel:        threat.SandboxBasic,
			MonitorEnabled:      true,
			MonitorInterval:     30 * time.Second,
			IsolationTimeout:    5 * time.Second,
			MaxIsolatedContexts: 64,
			URLCacheSize:        4096,
		},
		Intel: IntelConfig{
			FeedTimeout: 10 * time.Second,
		},
	}
}
