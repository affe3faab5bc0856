// Package config provides 12-factor configuration management for the
// security policy server.
//
// Configuration is loaded from environment variables with sensible defaults.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host)
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting configuration
//   - Security: default sandbox level, monitor period, isolation limits
//   - Intel: threat feed directory and URL
//   - Storage: settings store directory
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Server running on %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//
// Environment Variables:
//   - PORT, HOST
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
//   - SECURITY_DEFAULT_LEVEL, SECURITY_MONITOR_ENABLED, SECURITY_MONITOR_INTERVAL
//   - SECURITY_ISOLATION_TIMEOUT, SECURITY_MAX_ISOLATED_CONTEXTS, SECURITY_URL_CACHE_SIZE
//   - SECURITY_EVENT_RETENTION (0 keeps every event)
//   - INTEL_FEED_DIR, INTEL_FEED_URL, INTEL_FEED_TIMEOUT
//   - STORAGE_DIR
package config
