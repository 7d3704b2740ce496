package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/skypro1111/duplex-audio-bridge/internal/capture"
	"github.com/skypro1111/duplex-audio-bridge/internal/config"
	"github.com/skypro1111/duplex-audio-bridge/internal/link"
	"github.com/skypro1111/duplex-audio-bridge/internal/metrics"
	"github.com/skypro1111/duplex-audio-bridge/internal/tone"
)

// HTTPServer provides HTTP API endpoints for monitoring and management
type HTTPServer struct {
	server     *http.Server
	logger     *slog.Logger
	config     *config.Config
	controller *link.Controller
	recorder   *capture.Recorder
	metrics    *metrics.Metrics

	// Server state
	startTime time.Time
	mu        sync.RWMutex
}

// NewHTTPServer creates a new HTTP API server
func NewHTTPServer(cfg config.HTTPConfig, logger *slog.Logger,
	appConfig *config.Config, controller *link.Controller, recorder *capture.Recorder, m *metrics.Metrics) *HTTPServer {

	h := &HTTPServer{
		logger:     logger,
		config:     appConfig,
		controller: controller,
		recorder:   recorder,
		metrics:    m,
		startTime:  time.Now(),
	}

	// Create HTTP server with routes
	mux := http.NewServeMux()
	h.setupRoutes(mux)

	h.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Address, cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return h
}

// setupRoutes configures HTTP API routes
func (h *HTTPServer) setupRoutes(mux *http.ServeMux) {
	// Health check endpoint
	mux.HandleFunc("/health", h.withMetrics("/health", h.handleHealth))

	// Link and capture status
	mux.HandleFunc("/status", h.withMetrics("/status", h.handleStatus))

	// Configuration endpoint
	mux.HandleFunc("/config", h.withMetrics("/config", h.handleConfig))

	// Management actions
	mux.HandleFunc("/test-tone", h.withMetrics("/test-tone", h.handleTestTone))
	mux.HandleFunc("/record/stop", h.withMetrics("/record/stop", h.handleRecordStop))

	// Prometheus metrics endpoint (no metrics needed for metrics endpoint)
	mux.Handle("/metrics", promhttp.Handler())

	// Root endpoint with API documentation
	mux.HandleFunc("/", h.withMetrics("/", h.handleRoot))
}

// withMetrics wraps an HTTP handler with metrics collection
func (h *HTTPServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		// Create a response writer wrapper to capture status code
		ww := &responseWriter{ResponseWriter: w, statusCode: 200}

		// Call the original handler
		handler(ww, r)

		// Record metrics
		duration := time.Since(startTime).Seconds()
		statusCode := fmt.Sprintf("%d", ww.statusCode)

		h.metrics.RecordHTTPRequest(r.Method, endpoint, statusCode, duration)

		// Record error if status code indicates an error
		if ww.statusCode >= 400 {
			errorType := "client_error"
			if ww.statusCode >= 500 {
				errorType = "server_error"
			}
			h.metrics.RecordHTTPError(r.Method, endpoint, errorType)
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the HTTP server
func (h *HTTPServer) Start() error {
	h.logger.Info("Starting HTTP API server",
		slog.String("address", h.server.Addr),
	)

	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("Stopping HTTP API server...")

	return h.server.Shutdown(ctx)
}

// handleHealth implements the /health endpoint
func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(h.startTime)
	linkStats := h.controller.Stats()
	routerStats := h.controller.RouterSnapshot()

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    uptime.String(),
		"service": map[string]interface{}{
			"name":    "duplex-audio-bridge",
			"version": "1.0.0",
		},
		"components": map[string]interface{}{
			"link": map[string]interface{}{
				"status":    string(linkStats.Status),
				"target":    linkStats.Target,
				"chunks_in": linkStats.ChunksIn,
				"bytes_in":  linkStats.BytesIn,
				"bytes_out": linkStats.BytesOut,
			},
			"capture": map[string]interface{}{
				"recording": h.recorder.Recording(),
			},
			"router": map[string]interface{}{
				"text_frames":  routerStats.TextFrames,
				"audio_frames": routerStats.AudioFrames,
				"unrecognized": routerStats.Unrecognized,
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

// handleStatus implements the /status endpoint
func (h *HTTPServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(h.startTime)

	status := map[string]interface{}{
		"uptime":    uptime.String(),
		"timestamp": time.Now().UTC(),
		"link":      h.controller.Stats(),
		"router":    h.controller.RouterSnapshot(),
	}

	if captureStats, ok := h.recorder.Stats(); ok {
		status["capture"] = captureStats
	} else {
		status["capture"] = nil
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}

// handleConfig implements the /config endpoint
func (h *HTTPServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Return sanitized configuration
	sanitizedConfig := map[string]interface{}{
		"transport": map[string]interface{}{
			"target":           h.config.Transport.Target,
			"dial_timeout":     h.config.Transport.DialTimeout,
			"read_buffer_size": h.config.Transport.ReadBufferSize,
			"send_queue_size":  h.config.Transport.SendQueueSize,
			"ping_interval":    h.config.Transport.PingInterval,
		},
		"capture": map[string]interface{}{
			"output_dir":        h.config.Capture.OutputDir,
			"chunk_size":        h.config.Capture.ChunkSize,
			"flush_interval_ms": h.config.Capture.FlushIntervalMs,
			"sample_rate":       h.config.Capture.SampleRate,
		},
		"tone": map[string]interface{}{
			"sample_rate":     h.config.Tone.SampleRate,
			"duration":        h.config.Tone.Duration,
			"frequency":       h.config.Tone.Frequency,
			"amplitude":       h.config.Tone.Amplitude,
			"settle_delay_ms": h.config.Tone.SettleDelayMs,
		},
		"logging": map[string]interface{}{
			"level":  h.config.Logging.Level,
			"format": h.config.Logging.Format,
			"output": h.config.Logging.Output,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sanitizedConfig)
}

// handleTestTone implements the POST /test-tone endpoint. It synthesizes the
// configured tone and streams it to the device as an instruction.
func (h *HTTPServer) handleTestTone(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	spec := tone.Spec{
		SampleRate: h.config.Tone.SampleRate,
		Duration:   h.config.Tone.Duration,
		Frequency:  h.config.Tone.Frequency,
		Amplitude:  h.config.Tone.Amplitude,
	}

	// The send is paced over the tone's duration, so run it detached and
	// answer immediately.
	go func() {
		if err := h.controller.SendInstruction(context.Background(), spec, h.config.Tone.GetSettleDelay()); err != nil {
			h.logger.Error("Test tone delivery failed", slog.String("error", err.Error()))
		}
	}()

	response := map[string]interface{}{
		"status":        "sending",
		"payload_bytes": tone.NumSamples(spec) * 2,
		"duration":      spec.Duration,
		"frequency":     spec.Frequency,
		"timestamp":     time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(response)
}

// handleRecordStop implements the POST /record/stop endpoint. It asks the
// device to stop; finalization happens when the device confirms.
func (h *HTTPServer) handleRecordStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !h.recorder.Recording() {
		http.Error(w, "No active capture session", http.StatusConflict)
		return
	}

	if err := h.controller.StopRecording(); err != nil {
		h.logger.Error("Failed to request record stop", slog.String("error", err.Error()))
		http.Error(w, "Failed to send stop request", http.StatusBadGateway)
		return
	}

	response := map[string]interface{}{
		"status":    "stop_requested",
		"timestamp": time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(response)
}

// handleRoot implements the / endpoint with API documentation
func (h *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	apiDoc := map[string]interface{}{
		"service": "Duplex Audio Bridge",
		"version": "1.0.0",
		"endpoints": map[string]interface{}{
			"GET /":             "API documentation",
			"GET /health":       "Service health check",
			"GET /status":       "Link, router and capture status",
			"GET /config":       "Get service configuration",
			"GET /metrics":      "Prometheus metrics",
			"POST /test-tone":   "Send the configured test tone to the device",
			"POST /record/stop": "Ask the device to stop the active capture",
		},
		"timestamp": time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(apiDoc)
}
