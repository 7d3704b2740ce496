package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/skypro1111/duplex-audio-bridge/internal/capture"
	"github.com/skypro1111/duplex-audio-bridge/internal/config"
	"github.com/skypro1111/duplex-audio-bridge/internal/link"
	"github.com/skypro1111/duplex-audio-bridge/internal/metrics"
	"github.com/skypro1111/duplex-audio-bridge/internal/server"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "duplex-audio-bridge"
	serviceVersion    = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	// Log service startup
	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	// Log configuration summary
	logger.Info("Configuration loaded",
		slog.String("target", cfg.Transport.Target),
		slog.Int("dial_timeout", cfg.Transport.DialTimeout),
		slog.Int("send_queue_size", cfg.Transport.SendQueueSize),
		slog.String("output_dir", cfg.Capture.OutputDir),
		slog.Int("chunk_size", cfg.Capture.ChunkSize),
		slog.Int("flush_interval_ms", cfg.Capture.FlushIntervalMs),
		slog.Int("sample_rate", cfg.Capture.SampleRate),
		slog.String("log_level", cfg.Logging.Level),
	)

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics()
	logger.Info("Prometheus metrics initialized")

	// Initialize the capture recorder (single session slot)
	recorder := capture.NewRecorder(cfg.Capture, logger, appMetrics)
	logger.Info("Capture recorder initialized",
		slog.String("output_dir", cfg.Capture.OutputDir),
		slog.Duration("flush_interval", cfg.Capture.GetFlushInterval()),
	)

	// Initialize the connection controller
	controller := link.NewController(cfg.Transport, logger, appMetrics, recorder)
	logger.Info("Connection controller initialized")

	// Initialize HTTP API server (if enabled)
	var httpServer *server.HTTPServer
	if cfg.HTTP.Enabled {
		httpServer = server.NewHTTPServer(cfg.HTTP, logger, cfg, controller, recorder, appMetrics)
		logger.Info("HTTP API server initialized",
			slog.String("address", fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port)),
		)
	}

	// Establish the device link
	if err := controller.Connect(ctx); err != nil {
		logger.Error("Failed to connect to device", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start HTTP server (if enabled)
	if httpServer != nil {
		if err := httpServer.Start(); err != nil {
			logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Service started successfully, waiting for signals...",
		slog.String("target", cfg.Transport.Target),
	)

	// Wait for shutdown signal
	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("Context cancelled, shutting down")
	}

	logger.Info("Starting graceful shutdown...")

	// Stop HTTP server first (stop accepting new requests)
	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := httpServer.Stop(shutdownCtx); err != nil {
			logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
		}
	}

	// Tear the link down; any active capture is finalized on the way out
	controller.Disconnect()

	// Get final statistics
	stats := controller.Stats()
	routerStats := controller.RouterSnapshot()
	logger.Info("Final link statistics",
		slog.Uint64("chunks_in", stats.ChunksIn),
		slog.Uint64("bytes_in", stats.BytesIn),
		slog.Uint64("bytes_out", stats.BytesOut),
		slog.Uint64("text_frames", routerStats.TextFrames),
		slog.Uint64("audio_frames", routerStats.AudioFrames),
		slog.Uint64("unrecognized", routerStats.Unrecognized),
	)

	logger.Info("Service stopped")
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	// Parse log level
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo // default fallback
	}

	// Configure handler options
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug, // Add source info for debug level
	}

	// Determine output destination
	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		// Assume it's a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	// Create handler based on format
	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	case "text", "":
		handler = slog.NewTextHandler(output, opts)
	default:
		// Default to text format
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
