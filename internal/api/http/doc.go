// Package http exposes the security engine over a JSON REST API.
//
// Endpoints:
//   - Health: / and /health
//   - Classification: /security/check-url, /security/analyze-download,
//     /security/scan, /security/validate-input, /security/navigate
//   - Policies: /security/policies/:tab (GET/PUT/DELETE), /security/policies/:tab/allowed,
//     /security/policies/:tab/permissions/:capability, /security/csp
//   - Contexts: /security/contexts/:tab (POST/DELETE), /security/contexts/:tab/sanitize,
//     /security/contexts/:tab/execute, /security/contexts/:tab/signals
//   - Events: /security/events, /security/score/:tab, /security/report,
//     /security/report/export, /security/settings
//   - Metrics: /metrics/json
//
// Responses carry "success": true with the payload, or "success": false
// with an "error" message.
//
// Example Usage:
//
//	handlers := http.NewHandlers(engine, metrics, logger)
//	handlers.Register(router)
package http
