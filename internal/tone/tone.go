package tone

import (
	"encoding/binary"
	"math"
)

// Spec describes one synthesized tone. Amplitude is a full-scale fraction;
// values above 1.0 are allowed and clamp at the 16-bit limits.
type Spec struct {
	SampleRate int     // Hz
	Duration   float64 // seconds
	Frequency  float64 // Hz
	Amplitude  float64
}

// Generate produces round(SampleRate*Duration) signed 16-bit little-endian
// mono sine samples. Pure and deterministic for identical input.
func Generate(spec Spec) []byte {
	n := int(math.Round(float64(spec.SampleRate) * spec.Duration))
	if n <= 0 {
		return nil
	}

	out := make([]byte, n*2)
	step := 2 * math.Pi * spec.Frequency / float64(spec.SampleRate)
	for i := 0; i < n; i++ {
		v := math.Round(spec.Amplitude * math.Sin(step*float64(i)) * 32767)
		if v > math.MaxInt16 {
			v = math.MaxInt16
		} else if v < math.MinInt16 {
			v = math.MinInt16
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(v)))
	}
	return out
}

// NumSamples returns the sample count Generate would produce for spec.
func NumSamples(spec Spec) int {
	n := int(math.Round(float64(spec.SampleRate) * spec.Duration))
	if n < 0 {
		return 0
	}
	return n
}
