// Package main is the entry point for the security policy engine server.
//
// The server classifies URLs, downloads and page content, holds per-tab
// sandbox policies, runs scripts and sanitization in isolated contexts, and
// records security events that feed threat scores and reports.
//
// Architecture:
//
//	Renderer hooks → HTTP API → Coordinator → Classifier / Policies / Isolation
//	                                        → Event log → WebSocket stream
//	                         Threat monitor ↗
//
// The server provides:
//   - REST API for classification, policies and isolated contexts
//   - WebSocket streaming of security events
//   - Prometheus metrics and a JSON metrics summary
//   - Persisted security settings
//
// Configuration:
//   - Environment variables (12-factor)
//   - CLI flags (override env vars)
//   - Defaults for development
//
// Usage:
//
//	# Production mode
//	PORT=8000 INTEL_FEED_DIR=/etc/titan/feeds ./server
//
//	# Development mode (colored logs, debug level)
//	./server -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
