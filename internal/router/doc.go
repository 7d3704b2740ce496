// Package router dispatches classified inbound frames: text commands drive
// liveness, capture control and telemetry; audio chunks flow to the active
// capture session. Dispatch is strictly in arrival order.
package router
