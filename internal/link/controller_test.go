package link

import (
	"context"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/skypro1111/duplex-audio-bridge/internal/capture"
	"github.com/skypro1111/duplex-audio-bridge/internal/config"
	"github.com/skypro1111/duplex-audio-bridge/internal/tone"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testHarness wires a controller to a local TCP endpoint acting as the device.
type testHarness struct {
	ctrl       *Controller
	recorder   *capture.Recorder
	device     net.Conn
	captureDir string
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		accepted <- conn
	}()

	captureDir := t.TempDir()
	recorder := capture.NewRecorder(config.CaptureConfig{
		OutputDir:       captureDir,
		ChunkSize:       256,
		FlushIntervalMs: 20,
		SampleRate:      16000,
	}, testLogger(), nil)

	ctrl := NewController(config.TransportConfig{
		Target:         "tcp://" + ln.Addr().String(),
		DialTimeout:    5,
		ReadBufferSize: 4096,
		SendQueueSize:  64,
		PingInterval:   0,
	}, testLogger(), nil, recorder)

	if err := ctrl.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	t.Cleanup(ctrl.Disconnect)

	var device net.Conn
	select {
	case device = <-accepted:
	case <-time.After(2 * time.Second):
		t.Fatal("device accept timed out")
	}
	t.Cleanup(func() { device.Close() })

	return &testHarness{
		ctrl:       ctrl,
		recorder:   recorder,
		device:     device,
		captureDir: captureDir,
	}
}

// deviceSend writes one delivery from the fake device side.
func (h *testHarness) deviceSend(t *testing.T, data []byte) {
	t.Helper()
	if _, err := h.device.Write(data); err != nil {
		t.Fatalf("device write error: %v", err)
	}
}

// deviceRead reads up to n bytes from the fake device side with a deadline.
func (h *testHarness) deviceRead(t *testing.T, n int) []byte {
	t.Helper()
	h.device.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, n)
	got, err := h.device.Read(buf)
	if err != nil {
		t.Fatalf("device read error: %v", err)
	}
	return buf[:got]
}

// waitFor polls cond until it holds or the timeout elapses.
func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func audioChunk(b byte) []byte {
	chunk := make([]byte, 256)
	for i := range chunk {
		chunk[i] = b
	}
	return chunk
}

func TestControllerConnectAndStatus(t *testing.T) {
	h := newTestHarness(t)

	if got := h.ctrl.Status(); got != StatusConnected {
		t.Errorf("Status() = %v, want %v", got, StatusConnected)
	}

	stats := h.ctrl.Stats()
	if stats.ConnectedAt.IsZero() {
		t.Error("ConnectedAt not set after Connect")
	}

	// A second connect on a live link is rejected.
	if err := h.ctrl.Connect(context.Background()); err == nil {
		t.Error("Connect() on a connected link expected error")
	}
}

func TestControllerRecordLifecycleOverWire(t *testing.T) {
	h := newTestHarness(t)

	h.deviceSend(t, []byte("REC_START\n"))
	waitFor(t, 2*time.Second, "capture start", h.recorder.Recording)

	h.deviceSend(t, audioChunk(0x5A))
	waitFor(t, 2*time.Second, "audio chunk", func() bool {
		stats, ok := h.recorder.Stats()
		return ok && stats.ValidPackets == 1
	})

	h.deviceSend(t, []byte("REC_STOP\n"))
	waitFor(t, 2*time.Second, "capture stop", func() bool { return !h.recorder.Recording() })

	files, err := filepath.Glob(filepath.Join(h.captureDir, "capture_*.pcm"))
	if err != nil || len(files) != 1 {
		t.Fatalf("capture files = %v (err %v), want exactly one", files, err)
	}

	data, err := os.ReadFile(files[0])
	if err != nil {
		t.Fatalf("failed to read capture file: %v", err)
	}
	if len(data) != 256 || data[0] != 0x5A {
		t.Errorf("capture file has %d bytes starting %#x, want the 256-byte chunk", len(data), data[0])
	}
}

func TestControllerAnswersPing(t *testing.T) {
	h := newTestHarness(t)

	h.deviceSend(t, []byte("PING\n"))

	if got := string(h.deviceRead(t, 16)); got != "PONG\n" {
		t.Errorf("device received %q, want %q", got, "PONG\n")
	}
}

func TestControllerStopRecordingRequest(t *testing.T) {
	h := newTestHarness(t)

	if err := h.ctrl.StopRecording(); err != nil {
		t.Fatalf("StopRecording() error: %v", err)
	}

	if got := string(h.deviceRead(t, 16)); got != "STOP_REC\n" {
		t.Errorf("device received %q, want %q", got, "STOP_REC\n")
	}
}

func TestControllerConnectionLossFinalizesCapture(t *testing.T) {
	h := newTestHarness(t)

	h.deviceSend(t, []byte("REC_START\n"))
	waitFor(t, 2*time.Second, "capture start", h.recorder.Recording)

	h.deviceSend(t, audioChunk(0x11))
	waitFor(t, 2*time.Second, "audio chunk", func() bool {
		stats, ok := h.recorder.Stats()
		return ok && stats.ValidPackets == 1
	})

	// The device drops the link mid-capture; the session is finalized the
	// same way an explicit stop would.
	h.device.Close()

	waitFor(t, 2*time.Second, "link teardown", func() bool {
		return h.ctrl.Status() == StatusDisconnected && !h.recorder.Recording()
	})

	files, _ := filepath.Glob(filepath.Join(h.captureDir, "capture_*.pcm"))
	if len(files) != 1 {
		t.Fatalf("capture files = %v, want exactly one", files)
	}
	data, err := os.ReadFile(files[0])
	if err != nil {
		t.Fatalf("failed to read capture file: %v", err)
	}
	if len(data) != 256 {
		t.Errorf("capture file has %d bytes, want 256 flushed on teardown", len(data))
	}
}

func TestControllerSendInstruction(t *testing.T) {
	h := newTestHarness(t)

	// 160 samples of 16-bit PCM is a 320-byte payload, sent as one chunk.
	spec := tone.Spec{SampleRate: 16000, Duration: 0.01, Frequency: 440, Amplitude: 0.5}

	done := make(chan error, 1)
	go func() {
		done <- h.ctrl.SendInstruction(context.Background(), spec, 20*time.Millisecond)
	}()

	h.device.SetReadDeadline(time.Now().Add(2 * time.Second))

	header := make([]byte, len("INSTRUCTION:320\n"))
	if _, err := io.ReadFull(h.device, header); err != nil {
		t.Fatalf("failed to read instruction header: %v", err)
	}
	if string(header) != "INSTRUCTION:320\n" {
		t.Fatalf("header = %q, want %q", header, "INSTRUCTION:320\n")
	}

	payload := make([]byte, 320)
	if _, err := io.ReadFull(h.device, payload); err != nil {
		t.Fatalf("failed to read instruction payload: %v", err)
	}

	if err := <-done; err != nil {
		t.Fatalf("SendInstruction() error: %v", err)
	}
}

func TestControllerSendWhileDisconnected(t *testing.T) {
	h := newTestHarness(t)

	h.ctrl.Disconnect()

	if err := h.ctrl.Send([]byte("PING\n")); err == nil {
		t.Error("Send() on a disconnected link expected error")
	}
}

func TestControllerDisconnectIdempotent(t *testing.T) {
	h := newTestHarness(t)

	h.ctrl.Disconnect()
	h.ctrl.Disconnect()

	if got := h.ctrl.Status(); got != StatusDisconnected {
		t.Errorf("Status() = %v, want %v", got, StatusDisconnected)
	}
}
