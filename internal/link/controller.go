package link

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/skypro1111/duplex-audio-bridge/internal/capture"
	"github.com/skypro1111/duplex-audio-bridge/internal/command"
	"github.com/skypro1111/duplex-audio-bridge/internal/config"
	"github.com/skypro1111/duplex-audio-bridge/internal/metrics"
	"github.com/skypro1111/duplex-audio-bridge/internal/router"
	"github.com/skypro1111/duplex-audio-bridge/internal/tone"
	"github.com/skypro1111/duplex-audio-bridge/internal/transport"
)

// Status is the externally visible connection state.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
)

// instructionChunkSize paces the PCM payload after an INSTRUCTION header so
// a multi-second tone never floods the outbound queue in one burst.
const instructionChunkSize = 1024

// instructionPaceDelay is the gap between paced payload chunks.
const instructionPaceDelay = 10 * time.Millisecond

// Controller owns the transport handle and the single capture session slot.
// Inbound chunks are read and dispatched by one goroutine in strict arrival
// order; outbound sends go through a buffered queue drained by a write pump,
// so a slow link never blocks the reader.
type Controller struct {
	cfg      config.TransportConfig
	logger   *slog.Logger
	metrics  *metrics.Metrics
	recorder *capture.Recorder
	router   *router.Router

	mu          sync.Mutex
	status      Status
	conn        transport.Conn
	outbound    chan []byte
	cancel      context.CancelFunc
	connectedAt time.Time
	bytesIn     uint64
	bytesOut    uint64
	chunksIn    uint64

	wg sync.WaitGroup
}

// Stats is a snapshot of link-level counters for monitoring.
type Stats struct {
	Status      Status    `json:"status"`
	Target      string    `json:"target"`
	ConnectedAt time.Time `json:"connected_at"`
	BytesIn     uint64    `json:"bytes_in"`
	BytesOut    uint64    `json:"bytes_out"`
	ChunksIn    uint64    `json:"chunks_in"`
}

// NewController creates a controller. The router is constructed here because
// the controller is both the router's sender and the owner of its recorder.
func NewController(cfg config.TransportConfig, logger *slog.Logger, m *metrics.Metrics,
	recorder *capture.Recorder) *Controller {

	c := &Controller{
		cfg:      cfg,
		logger:   logger,
		metrics:  m,
		recorder: recorder,
		status:   StatusDisconnected,
	}
	c.router = router.New(logger, m, recorder, c)
	return c
}

// Connect establishes the transport and starts the inbound listener. A
// single attempt: failure is reported to the caller, never retried here.
func (c *Controller) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.status != StatusDisconnected {
		c.mu.Unlock()
		return fmt.Errorf("connect while %s", c.status)
	}
	c.status = StatusConnecting
	c.mu.Unlock()

	dialCtx, dialCancel := context.WithTimeout(ctx, c.cfg.GetDialTimeout())
	defer dialCancel()

	conn, err := transport.Dial(dialCtx, c.cfg.Target, c.cfg.ReadBufferSize)
	if err != nil {
		c.mu.Lock()
		c.status = StatusDisconnected
		c.mu.Unlock()
		return fmt.Errorf("failed to connect to %s: %w", c.cfg.Target, err)
	}

	runCtx, cancel := context.WithCancel(context.Background())

	c.mu.Lock()
	c.conn = conn
	c.outbound = make(chan []byte, c.cfg.SendQueueSize)
	c.cancel = cancel
	c.status = StatusConnected
	c.connectedAt = time.Now()
	c.bytesIn, c.bytesOut, c.chunksIn = 0, 0, 0
	c.mu.Unlock()

	c.metrics.SetLinkConnected(true)

	c.wg.Add(2)
	go c.readLoop(conn)
	go c.writePump(runCtx, conn)

	if interval := c.cfg.GetPingInterval(); interval > 0 {
		c.wg.Add(1)
		go c.pingLoop(runCtx, interval)
	}

	c.logger.Info("Link established", slog.String("target", c.cfg.Target))

	return nil
}

// Disconnect finalizes any active capture and tears the transport down.
// Idempotent.
func (c *Controller) Disconnect() {
	c.shutdown("disconnect requested")
	c.wg.Wait()
}

// Send queues one outbound chunk. Never blocks: a full queue is a reported
// error, not a stall of the inbound listener.
func (c *Controller) Send(p []byte) error {
	c.mu.Lock()
	status := c.status
	out := c.outbound
	c.mu.Unlock()

	if status != StatusConnected {
		return fmt.Errorf("link is %s", status)
	}

	buf := make([]byte, len(p))
	copy(buf, p)

	select {
	case out <- buf:
		return nil
	default:
		c.metrics.RecordSendError()
		return fmt.Errorf("send queue full (%d pending)", cap(out))
	}
}

// Ping sends one liveness probe.
func (c *Controller) Ping() error {
	return c.Send([]byte(command.WirePing))
}

// StopRecording asks the device to stop capturing. The device confirms with
// REC_STOP, which finalizes the session through the normal inbound path.
func (c *Controller) StopRecording() error {
	return c.Send([]byte(command.WireStopRecord))
}

// SendInstruction transmits a synthesized tone to the device: the length
// header first, then the PCM payload in paced chunks after the settle delay.
func (c *Controller) SendInstruction(ctx context.Context, spec tone.Spec, settle time.Duration) error {
	pcm := tone.Generate(spec)
	if len(pcm) == 0 {
		return fmt.Errorf("tone spec produced no samples")
	}

	if err := c.Send([]byte(command.InstructionHeader(len(pcm)))); err != nil {
		return fmt.Errorf("failed to send instruction header: %w", err)
	}

	c.logger.Info("Sending instruction audio",
		slog.Int("payload_bytes", len(pcm)),
		slog.Duration("settle_delay", settle),
	)

	if err := sleepCtx(ctx, settle); err != nil {
		return err
	}

	for off := 0; off < len(pcm); off += instructionChunkSize {
		end := off + instructionChunkSize
		if end > len(pcm) {
			end = len(pcm)
		}

		if err := c.Send(pcm[off:end]); err != nil {
			return fmt.Errorf("failed to send instruction payload at offset %d: %w", off, err)
		}

		if end < len(pcm) {
			if err := sleepCtx(ctx, instructionPaceDelay); err != nil {
				return err
			}
		}
	}

	return nil
}

// Status returns the current connection status.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Stats returns a snapshot of link counters.
func (c *Controller) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Status:      c.status,
		Target:      c.cfg.Target,
		ConnectedAt: c.connectedAt,
		BytesIn:     c.bytesIn,
		BytesOut:    c.bytesOut,
		ChunksIn:    c.chunksIn,
	}
}

// RouterSnapshot exposes the router's observable state for the status API.
func (c *Controller) RouterSnapshot() router.Stats {
	return c.router.Snapshot()
}

// readLoop is the single inbound listener. Every chunk goes to the router
// in arrival order; read termination of any kind tears the link down and
// finalizes the capture exactly like an explicit stop.
func (c *Controller) readLoop(conn transport.Conn) {
	defer c.wg.Done()

	for {
		chunk, err := conn.ReadChunk()
		if err != nil {
			c.mu.Lock()
			wasConnected := c.status == StatusConnected
			c.mu.Unlock()

			if wasConnected {
				c.logger.Warn("Link read failed", slog.String("error", err.Error()))
				c.shutdown("connection lost")
			}
			return
		}

		c.mu.Lock()
		c.chunksIn++
		c.bytesIn += uint64(len(chunk))
		c.mu.Unlock()
		c.metrics.RecordChunkIn(len(chunk))

		c.router.Dispatch(chunk)
	}
}

// writePump drains the outbound queue onto the transport.
func (c *Controller) writePump(ctx context.Context, conn transport.Conn) {
	defer c.wg.Done()

	c.mu.Lock()
	out := c.outbound
	c.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return
		case data := <-out:
			if err := conn.WriteChunk(data); err != nil {
				c.metrics.RecordSendError()
				c.logger.Warn("Link write failed",
					slog.Int("size", len(data)),
					slog.String("error", err.Error()),
				)
				continue
			}

			c.mu.Lock()
			c.bytesOut += uint64(len(data))
			c.mu.Unlock()
			c.metrics.RecordBytesOut(len(data))
		}
	}
}

// pingLoop sends periodic liveness probes while connected.
func (c *Controller) pingLoop(ctx context.Context, interval time.Duration) {
	defer c.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Ping(); err != nil {
				c.logger.Debug("Liveness ping not sent", slog.String("error", err.Error()))
			}
		}
	}
}

// shutdown moves the controller to Disconnected, closes the transport and
// finalizes any active capture through the same path as an explicit stop.
// Safe to call from any goroutine, any number of times.
func (c *Controller) shutdown(reason string) {
	c.mu.Lock()
	if c.status != StatusConnected {
		c.mu.Unlock()
		return
	}
	c.status = StatusDisconnected
	conn := c.conn
	cancel := c.cancel
	c.conn = nil
	c.cancel = nil
	c.mu.Unlock()

	cancel()
	if err := conn.Close(); err != nil {
		c.logger.Debug("Error closing transport", slog.String("error", err.Error()))
	}

	c.metrics.SetLinkConnected(false)

	c.recorder.Stop(reason)

	c.logger.Info("Link closed", slog.String("reason", reason))
}

// sleepCtx waits for d unless ctx is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
