// Package metrics defines the Prometheus instrumentation for the bridge:
// link state, frame routing, GPS telemetry, capture sessions and the HTTP API.
package metrics
