package router

import (
	"log/slog"
	"sync"
	"time"

	"github.com/skypro1111/duplex-audio-bridge/internal/capture"
	"github.com/skypro1111/duplex-audio-bridge/internal/command"
	"github.com/skypro1111/duplex-audio-bridge/internal/frame"
	"github.com/skypro1111/duplex-audio-bridge/internal/gps"
	"github.com/skypro1111/duplex-audio-bridge/internal/metrics"
)

// Sender writes one outbound chunk to the device without blocking the
// inbound path.
type Sender interface {
	Send(p []byte) error
}

// Router classifies each inbound delivery and routes it to the matching
// handler. Dispatch must be called from a single goroutine so frames are
// processed strictly in arrival order; the observable state behind mu may
// be read concurrently by the status API.
type Router struct {
	logger   *slog.Logger
	metrics  *metrics.Metrics
	recorder *capture.Recorder
	sender   Sender

	mu             sync.RWMutex
	lastFix        gps.Fix
	lastFixAt      time.Time
	lastPong       time.Time
	playbackActive bool
	textFrames     uint64
	audioFrames    uint64
	discardedAudio uint64
	unrecognized   uint64
}

// Stats is the router's observable state for monitoring.
type Stats struct {
	LastFix        gps.Fix   `json:"last_fix"`
	LastFixAt      time.Time `json:"last_fix_at"`
	LastPong       time.Time `json:"last_pong"`
	PlaybackActive bool      `json:"playback_active"`
	TextFrames     uint64    `json:"text_frames"`
	AudioFrames    uint64    `json:"audio_frames"`
	DiscardedAudio uint64    `json:"discarded_audio"`
	Unrecognized   uint64    `json:"unrecognized"`
}

// New creates a router. The recorder is the single capture session slot
// owned by the connection controller; the sender is the controller itself.
func New(logger *slog.Logger, m *metrics.Metrics, recorder *capture.Recorder, sender Sender) *Router {
	return &Router{
		logger:   logger,
		metrics:  m,
		recorder: recorder,
		sender:   sender,
	}
}

// Dispatch classifies one inbound delivery and routes it. Never returns an
// error: malformed input degrades to a logged condition and the stream
// continues.
func (r *Router) Dispatch(chunk []byte) {
	f := frame.Classify(chunk)

	switch f.Kind {
	case frame.KindText:
		if f.Text == "" {
			return // blank delivery, nothing to do
		}
		r.mu.Lock()
		r.textFrames++
		r.mu.Unlock()
		r.handleCommand(command.Parse(f.Text))

	case frame.KindAudio:
		r.mu.Lock()
		r.audioFrames++
		r.mu.Unlock()
		r.metrics.RecordAudioChunk()
		r.handleAudio(f.Data)
	}
}

func (r *Router) handleCommand(cmd command.Command) {
	r.metrics.RecordCommand(cmd.Type.String())

	switch cmd.Type {
	case command.TypePing:
		if err := r.sender.Send([]byte(command.WirePong)); err != nil {
			r.logger.Warn("Failed to answer PING", slog.String("error", err.Error()))
		}

	case command.TypePong:
		r.mu.Lock()
		r.lastPong = time.Now()
		r.mu.Unlock()
		r.logger.Debug("Liveness pong received")

	case command.TypeRecordStart:
		if err := r.recorder.Start(); err != nil {
			r.logger.Error("Failed to start capture", slog.String("error", err.Error()))
		}

	case command.TypeRecordStop:
		if _, ok := r.recorder.Stop("device stop"); !ok {
			r.logger.Warn("Record stop received with no active capture")
		}

	case command.TypeGPS:
		r.handleGPS(cmd.Payload)

	case command.TypePlaybackStarted:
		r.mu.Lock()
		r.playbackActive = true
		r.mu.Unlock()
		r.logger.Info("Device playback started")

	case command.TypePlaybackStopped:
		r.mu.Lock()
		r.playbackActive = false
		r.mu.Unlock()
		r.logger.Info("Device playback stopped")

	case command.TypeAudioAck:
		r.logger.Info("Instruction audio acknowledged by device")

	case command.TypeUnrecognized:
		r.mu.Lock()
		r.unrecognized++
		r.mu.Unlock()
		r.metrics.RecordUnrecognizedCommand()
		r.logger.Warn("Unrecognized command", slog.String("raw", cmd.Raw))
	}
}

func (r *Router) handleGPS(payload string) {
	fix, err := gps.Decode(payload)
	if err != nil {
		r.logger.Warn("Malformed GPS telemetry",
			slog.String("raw", payload),
			slog.String("error", err.Error()),
		)
	}

	r.mu.Lock()
	r.lastFix = fix
	r.lastFixAt = time.Now()
	r.mu.Unlock()

	r.metrics.RecordGPSUpdate(fix.Valid)

	if fix.Valid {
		r.logger.Debug("GPS fix updated", slog.String("fix", fix.String()))
	}
}

// handleAudio routes audio to the active session. Audio with no session
// recording is discarded without touching session counters.
func (r *Router) handleAudio(data []byte) {
	if r.recorder.AddChunk(data) {
		return
	}

	r.mu.Lock()
	r.discardedAudio++
	r.mu.Unlock()
	r.metrics.RecordAudioDiscarded()
	r.logger.Debug("Discarding audio chunk outside capture session",
		slog.Int("size", len(data)),
	)
}

// Snapshot returns the router's observable state.
func (r *Router) Snapshot() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return Stats{
		LastFix:        r.lastFix,
		LastFixAt:      r.lastFixAt,
		LastPong:       r.lastPong,
		PlaybackActive: r.playbackActive,
		TextFrames:     r.textFrames,
		AudioFrames:    r.audioFrames,
		DiscardedAudio: r.discardedAudio,
		Unrecognized:   r.unrecognized,
	}
}
