package capture

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/skypro1111/duplex-audio-bridge/internal/config"
)

func testCaptureConfig(t *testing.T) config.CaptureConfig {
	t.Helper()
	return config.CaptureConfig{
		OutputDir:       t.TempDir(),
		ChunkSize:       256,
		FlushIntervalMs: 20,
		SampleRate:      16000,
	}
}

func TestRecorderLifecycle(t *testing.T) {
	r := NewRecorder(testCaptureConfig(t), testLogger(), nil)

	if r.Recording() {
		t.Fatal("Recording() = true before Start")
	}
	if ok := r.AddChunk(chunkOf(0x01)); ok {
		t.Error("AddChunk() accepted audio with no session")
	}

	if err := r.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if !r.Recording() {
		t.Fatal("Recording() = false after Start")
	}

	if ok := r.AddChunk(chunkOf(0x01)); !ok {
		t.Error("AddChunk() rejected audio during session")
	}
	r.AddChunk(chunkOf(0x02))

	stats, ok := r.Stop("test")
	if !ok {
		t.Fatal("Stop() reported no active session")
	}
	if r.Recording() {
		t.Error("Recording() = true after Stop")
	}
	if stats.ValidPackets != 2 {
		t.Errorf("ValidPackets = %d, want 2", stats.ValidPackets)
	}

	// The capture file holds exactly the valid chunks, in order.
	data, err := os.ReadFile(stats.File)
	if err != nil {
		t.Fatalf("failed to read capture file: %v", err)
	}
	want := append(chunkOf(0x01), chunkOf(0x02)...)
	if !bytes.Equal(data, want) {
		t.Errorf("capture file has %d bytes, want the 512 recorded bytes in order", len(data))
	}
}

func TestRecorderStopWithoutSession(t *testing.T) {
	r := NewRecorder(testCaptureConfig(t), testLogger(), nil)

	if _, ok := r.Stop("test"); ok {
		t.Error("Stop() reported an active session on an idle recorder")
	}
}

func TestRecorderStartWhileRecordingResets(t *testing.T) {
	r := NewRecorder(testCaptureConfig(t), testLogger(), nil)

	if err := r.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	r.AddChunk(chunkOf(0x01))

	firstStats, ok := r.Stats()
	if !ok {
		t.Fatal("Stats() reported no active session")
	}

	// A second start finalizes the first take and begins a fresh one.
	if err := r.Start(); err != nil {
		t.Fatalf("second Start() error: %v", err)
	}
	if !r.Recording() {
		t.Fatal("Recording() = false after reset")
	}

	secondStats, ok := r.Stats()
	if !ok {
		t.Fatal("Stats() reported no active session after reset")
	}
	if secondStats.ID == firstStats.ID {
		t.Error("reset did not produce a new capture ID")
	}
	if secondStats.ValidPackets != 0 {
		t.Errorf("new session ValidPackets = %d, want 0", secondStats.ValidPackets)
	}

	// The first take was flushed and closed on its own file.
	data, err := os.ReadFile(firstStats.File)
	if err != nil {
		t.Fatalf("failed to read first capture file: %v", err)
	}
	if len(data) != 256 {
		t.Errorf("first capture file has %d bytes, want 256", len(data))
	}

	r.Stop("test")
}

func TestRecorderSinkFailureAbortsStart(t *testing.T) {
	cfg := testCaptureConfig(t)
	r := NewRecorder(cfg, testLogger(), nil)
	r.sinkFactory = func(captureID string, start time.Time) (Sink, string, error) {
		return nil, "", os.ErrPermission
	}

	if err := r.Start(); err == nil {
		t.Fatal("Start() expected error from failing sink factory")
	}
	if r.Recording() {
		t.Error("Recording() = true after failed Start")
	}
}
