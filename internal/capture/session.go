package capture

import (
	"log/slog"
	"sync"
	"time"

	"github.com/skypro1111/duplex-audio-bridge/internal/metrics"
)

// DefaultChunkSize is the only audio chunk length the device emits. Chunks
// of any other length are counted as dropped and never reach the sink.
const DefaultChunkSize = 256

// DefaultFlushInterval is the pending-queue drain period while recording.
const DefaultFlushInterval = 100 * time.Millisecond

// Stats is a snapshot of one capture session, live or finalized.
type Stats struct {
	ID             string        `json:"id"`
	File           string        `json:"file"`
	TotalBytes     uint64        `json:"total_bytes"`
	ValidPackets   uint64        `json:"valid_packets"`
	DroppedPackets uint64        `json:"dropped_packets"`
	SinkBytes      uint64        `json:"sink_bytes"`
	PendingChunks  int           `json:"pending_chunks"`
	StartTime      time.Time     `json:"start_time"`
	Duration       time.Duration `json:"duration"`
}

// Session is one active recording. It validates chunks, queues them in
// arrival order, and drains the queue to the sink on a fixed interval. The
// flush loop runs in its own goroutine; all shared state sits behind mu.
type Session struct {
	id        string
	file      string
	sink      Sink
	chunkSize int
	logger    *slog.Logger
	metrics   *metrics.Metrics

	startTime time.Time

	mu             sync.Mutex
	totalBytes     uint64
	validPackets   uint64
	droppedPackets uint64
	sinkBytes      uint64
	pending        [][]byte
	closed         bool

	stopFlush chan struct{}
	flushDone chan struct{}
}

// newSession starts the flush scheduler immediately.
func newSession(id, file string, sink Sink, chunkSize int, flushInterval time.Duration,
	logger *slog.Logger, m *metrics.Metrics) *Session {

	s := &Session{
		id:        id,
		file:      file,
		sink:      sink,
		chunkSize: chunkSize,
		logger:    logger,
		metrics:   m,
		startTime: time.Now(),
		stopFlush: make(chan struct{}),
		flushDone: make(chan struct{}),
	}

	go s.flushLoop(flushInterval)

	return s
}

// AddChunk records one inbound audio chunk. The byte counter includes
// chunks that are then rejected for size mismatch; that matches the device
// firmware's own byte accounting, so both ends report the same number.
// Only well-formed chunks are queued for the sink.
func (s *Session) AddChunk(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.totalBytes += uint64(len(data))

	if len(data) != s.chunkSize {
		s.droppedPackets++
		s.metrics.RecordPacketDropped()
		s.logger.Warn("Dropping malformed audio chunk",
			slog.String("capture_id", s.id),
			slog.Int("size", len(data)),
			slog.Int("expected_size", s.chunkSize),
		)
		return
	}

	s.validPackets++

	buf := make([]byte, len(data))
	copy(buf, data)
	s.pending = append(s.pending, buf)
}

// flushLoop drains the pending queue on a fixed period until the session is
// finalized. A failed flush leaves the unwritten chunks queued; the next
// tick retries the whole backlog.
func (s *Session) flushLoop(interval time.Duration) {
	defer close(s.flushDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Debug("Capture flush loop started",
		slog.String("capture_id", s.id),
		slog.Duration("interval", interval),
	)

	for {
		select {
		case <-s.stopFlush:
			s.logger.Debug("Capture flush loop stopping", slog.String("capture_id", s.id))
			return
		case <-ticker.C:
			s.flush()
		}
	}
}

// flush drains the pending queue to the sink and forces durability.
// Flushing an empty queue is a no-op.
func (s *Session) flush() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.flushLocked(); err != nil {
		s.metrics.RecordFlushError()
		s.logger.Warn("Capture flush failed, retrying on next tick",
			slog.String("capture_id", s.id),
			slog.Int("pending_chunks", len(s.pending)),
			slog.String("error", err.Error()),
		)
	}
}

// flushLocked writes queued chunks to the sink in arrival order, then syncs.
// On a write error the failed chunk and everything after it stay queued.
// Callers must hold mu.
func (s *Session) flushLocked() error {
	if len(s.pending) == 0 {
		return nil
	}

	for len(s.pending) > 0 {
		chunk := s.pending[0]
		if _, err := s.sink.Write(chunk); err != nil {
			return err
		}
		s.sinkBytes += uint64(len(chunk))
		s.metrics.RecordCaptureBytesWritten(len(chunk))
		s.pending = s.pending[1:]
	}

	return s.sink.Sync()
}

// finalize stops the flush scheduler, performs one last synchronous flush,
// closes the sink and reports aggregate statistics. Safe to call once; the
// caller (Recorder) guarantees that.
func (s *Session) finalize(reason string) Stats {
	close(s.stopFlush)
	<-s.flushDone

	s.mu.Lock()
	s.closed = true
	if err := s.flushLocked(); err != nil {
		s.metrics.RecordFlushError()
		s.logger.Error("Final capture flush failed",
			slog.String("capture_id", s.id),
			slog.Int("unwritten_chunks", len(s.pending)),
			slog.String("error", err.Error()),
		)
	}
	if err := s.sink.Close(); err != nil {
		s.logger.Warn("Error closing capture sink",
			slog.String("capture_id", s.id),
			slog.String("error", err.Error()),
		)
	}
	stats := s.statsLocked()
	s.mu.Unlock()

	attrs := []any{
		slog.String("capture_id", stats.ID),
		slog.String("file", stats.File),
		slog.String("reason", reason),
		slog.Uint64("packets", stats.ValidPackets),
		slog.Float64("kilobytes_written", float64(stats.SinkBytes)/1024),
		slog.Float64("elapsed_seconds", stats.Duration.Seconds()),
	}
	if stats.DroppedPackets > 0 {
		attrs = append(attrs, slog.Uint64("dropped_packets", stats.DroppedPackets))
	}
	s.logger.Info("Capture finished", attrs...)

	s.metrics.RecordCaptureFinished(stats.Duration.Seconds())

	return stats
}

// Stats returns a snapshot of the session counters.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statsLocked()
}

// statsLocked builds a Stats snapshot. Callers must hold mu.
func (s *Session) statsLocked() Stats {
	return Stats{
		ID:             s.id,
		File:           s.file,
		TotalBytes:     s.totalBytes,
		ValidPackets:   s.validPackets,
		DroppedPackets: s.droppedPackets,
		SinkBytes:      s.sinkBytes,
		PendingChunks:  len(s.pending),
		StartTime:      s.startTime,
		Duration:       time.Since(s.startTime),
	}
}
