package gps

import (
	"fmt"
	"strconv"
	"strings"
)

// noFixMarker is what the device reports while it has no satellite lock.
const noFixMarker = "NO_FIX"

// Fix is one decoded position/velocity reading in decimal degrees, meters
// and km/h. Valid is false for NO_FIX and for telemetry that could not be
// decoded at all. Immutable once constructed; each fix replaces the last.
type Fix struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
	AltitudeM float64 `json:"altitude_m"`
	SpeedKmh  float64 `json:"speed_kmh"`
	Valid     bool    `json:"valid"`
}

// Decode parses the text following the GPS: prefix. NO_FIX yields an invalid
// fix with a nil error. Telemetry with fewer than four comma-separated fields
// yields an invalid fix and an error the caller may log; it is never a hard
// failure. Individual fields that fail to parse default to 0.0 so partial
// corruption degrades the fix instead of discarding the whole update.
func Decode(raw string) (Fix, error) {
	if raw == noFixMarker {
		return Fix{}, nil
	}

	fields := strings.Split(raw, ",")
	if len(fields) < 4 {
		return Fix{}, fmt.Errorf("expected 4 telemetry fields, got %d", len(fields))
	}

	return Fix{
		Latitude:  parseField(fields[0]),
		Longitude: parseField(fields[1]),
		AltitudeM: parseField(fields[2]),
		SpeedKmh:  parseField(fields[3]),
		Valid:     true,
	}, nil
}

// parseField parses one decimal field, locale-independent, 0.0 on failure.
func parseField(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

// String returns a compact human-readable rendering for status displays.
func (f Fix) String() string {
	if !f.Valid {
		return "no fix"
	}
	return fmt.Sprintf("%.6f,%.6f alt=%.1fm speed=%.1fkm/h",
		f.Latitude, f.Longitude, f.AltitudeM, f.SpeedKmh)
}
