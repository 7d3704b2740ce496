// Package server provides the HTTP API for monitoring and management:
// health and status endpoints, sanitized configuration, Prometheus metrics,
// and management actions for test-tone playback and remote capture stop.
package server
