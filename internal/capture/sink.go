package capture

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Sink is an append-capable byte sink for captured audio. Sync forces
// written data to durable storage.
type Sink interface {
	io.WriteCloser
	Sync() error
}

// fileSink persists raw PCM to a regular file.
type fileSink struct {
	f *os.File
}

// NewFileSink creates (or truncates) a capture file named after the given
// timestamp and capture ID. The directory is created if missing. The file
// holds headerless 16-bit little-endian mono PCM.
func NewFileSink(dir, captureID string, start time.Time) (Sink, string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, "", fmt.Errorf("failed to create capture directory %s: %w", dir, err)
	}

	name := fmt.Sprintf("capture_%s_%s.pcm", start.Format("20060102_150405"), captureID)
	path := filepath.Join(dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create capture file %s: %w", path, err)
	}

	return &fileSink{f: f}, path, nil
}

func (s *fileSink) Write(p []byte) (int, error) {
	return s.f.Write(p)
}

func (s *fileSink) Sync() error {
	return s.f.Sync()
}

func (s *fileSink) Close() error {
	return s.f.Close()
}
