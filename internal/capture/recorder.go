package capture

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/skypro1111/duplex-audio-bridge/internal/config"
	"github.com/skypro1111/duplex-audio-bridge/internal/metrics"
)

// Recorder owns the single capture session slot. A REC_START while a session
// is already recording resets: the active session is finalized through the
// normal stop path and a fresh one begins, so a device reboot mid-capture
// never appends two takes into one file.
type Recorder struct {
	outputDir     string
	chunkSize     int
	flushInterval time.Duration
	logger        *slog.Logger
	metrics       *metrics.Metrics

	// sinkFactory is swappable for tests.
	sinkFactory func(captureID string, start time.Time) (Sink, string, error)

	mu     sync.Mutex
	active *Session
}

// NewRecorder creates a recorder writing capture files under cfg.OutputDir.
func NewRecorder(cfg config.CaptureConfig, logger *slog.Logger, m *metrics.Metrics) *Recorder {
	r := &Recorder{
		outputDir:     cfg.OutputDir,
		chunkSize:     cfg.ChunkSize,
		flushInterval: cfg.GetFlushInterval(),
		logger:        logger,
		metrics:       m,
	}
	r.sinkFactory = func(captureID string, start time.Time) (Sink, string, error) {
		return NewFileSink(r.outputDir, captureID, start)
	}
	return r
}

// Start begins a new capture session. Sink creation failure aborts the start
// and is returned to the caller; no session exists afterwards.
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev := r.active; prev != nil {
		r.active = nil
		r.logger.Warn("Record start received while recording, resetting session",
			slog.String("capture_id", prev.id),
		)
		prev.finalize("restarted")
	}

	captureID := uuid.NewString()[:8]
	now := time.Now()

	sink, path, err := r.sinkFactory(captureID, now)
	if err != nil {
		return fmt.Errorf("failed to open capture sink: %w", err)
	}

	r.active = newSession(captureID, path, sink, r.chunkSize, r.flushInterval, r.logger, r.metrics)
	r.metrics.RecordCaptureStarted()

	r.logger.Info("Capture started",
		slog.String("capture_id", captureID),
		slog.String("file", path),
	)

	return nil
}

// Stop finalizes the active session, if any, and returns its statistics.
// The second return value is false when no session was recording. The reason
// is only used for the finalization log line.
func (r *Recorder) Stop(reason string) (Stats, bool) {
	r.mu.Lock()
	s := r.active
	r.active = nil
	r.mu.Unlock()

	if s == nil {
		return Stats{}, false
	}

	return s.finalize(reason), true
}

// AddChunk routes one audio chunk to the active session. Returns false when
// no session is recording; the chunk is then discarded by the caller.
func (r *Recorder) AddChunk(data []byte) bool {
	r.mu.Lock()
	s := r.active
	r.mu.Unlock()

	if s == nil {
		return false
	}

	s.AddChunk(data)
	return true
}

// Recording reports whether a session is currently active.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active != nil
}

// Stats returns a snapshot of the active session. The second return value is
// false when idle.
func (r *Recorder) Stats() (Stats, bool) {
	r.mu.Lock()
	s := r.active
	r.mu.Unlock()

	if s == nil {
		return Stats{}, false
	}
	return s.Stats(), true
}
