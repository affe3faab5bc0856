// Package server wires configuration, logging, metrics, threat feeds and
// the security coordinator into a gin HTTP server with graceful shutdown.
package server
