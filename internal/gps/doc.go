// Package gps decodes the device's GPS telemetry commands into structured
// position/velocity fixes.
package gps
