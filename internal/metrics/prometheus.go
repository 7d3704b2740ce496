package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the duplex audio bridge.
// A nil *Metrics is valid and records nothing, which keeps unit tests free
// of default-registry collisions.
type Metrics struct {
	// Link metrics
	LinkConnected prometheus.Gauge
	ChunksIn      prometheus.Counter
	BytesIn       prometheus.Counter
	BytesOut      prometheus.Counter
	SendErrors    prometheus.Counter

	// Frame routing metrics
	TextCommands         *prometheus.CounterVec
	AudioChunks          prometheus.Counter
	AudioDiscarded       prometheus.Counter
	UnrecognizedCommands prometheus.Counter

	// GPS metrics
	GPSFixes prometheus.Counter
	GPSNoFix prometheus.Counter

	// Capture metrics
	CapturesStarted     prometheus.Counter
	CapturesFinished    prometheus.Counter
	CaptureBytesWritten prometheus.Counter
	PacketsDropped      prometheus.Counter
	FlushErrors         prometheus.Counter
	CaptureDuration     prometheus.Histogram

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		LinkConnected: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "bridge_link_connected",
			Help: "1 while the device link is established, 0 otherwise",
		}),
		ChunksIn: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bridge_chunks_received_total",
			Help: "Total number of inbound link deliveries",
		}),
		BytesIn: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bridge_bytes_received_total",
			Help: "Total inbound bytes from the device link",
		}),
		BytesOut: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bridge_bytes_sent_total",
			Help: "Total outbound bytes written to the device link",
		}),
		SendErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bridge_send_errors_total",
			Help: "Total failed or rejected outbound sends",
		}),

		TextCommands: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_commands_total",
			Help: "Total parsed text commands by type",
		}, []string{"type"}),
		AudioChunks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bridge_audio_chunks_total",
			Help: "Total inbound deliveries classified as audio",
		}),
		AudioDiscarded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bridge_audio_discarded_total",
			Help: "Total audio chunks received with no capture session active",
		}),
		UnrecognizedCommands: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bridge_unrecognized_commands_total",
			Help: "Total text commands that matched no vocabulary rule",
		}),

		GPSFixes: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bridge_gps_fixes_total",
			Help: "Total valid GPS fixes decoded",
		}),
		GPSNoFix: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bridge_gps_no_fix_total",
			Help: "Total NO_FIX or undecodable GPS updates",
		}),

		CapturesStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bridge_captures_started_total",
			Help: "Total capture sessions started",
		}),
		CapturesFinished: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bridge_captures_finished_total",
			Help: "Total capture sessions finalized",
		}),
		CaptureBytesWritten: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bridge_capture_bytes_written_total",
			Help: "Total audio bytes persisted to capture files",
		}),
		PacketsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bridge_capture_packets_dropped_total",
			Help: "Total audio chunks dropped for size mismatch during capture",
		}),
		FlushErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bridge_capture_flush_errors_total",
			Help: "Total failed flush attempts (retried on the next tick)",
		}),
		CaptureDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "bridge_capture_duration_seconds",
			Help:    "Duration of finalized capture sessions",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1s to ~17 minutes
		}),

		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bridge_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// SetLinkConnected sets the link state gauge.
func (m *Metrics) SetLinkConnected(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.LinkConnected.Set(1)
	} else {
		m.LinkConnected.Set(0)
	}
}

// RecordChunkIn records one inbound delivery of n bytes.
func (m *Metrics) RecordChunkIn(n int) {
	if m == nil {
		return
	}
	m.ChunksIn.Inc()
	m.BytesIn.Add(float64(n))
}

// RecordBytesOut records n bytes written to the link.
func (m *Metrics) RecordBytesOut(n int) {
	if m == nil {
		return
	}
	m.BytesOut.Add(float64(n))
}

// RecordSendError increments the send error counter.
func (m *Metrics) RecordSendError() {
	if m == nil {
		return
	}
	m.SendErrors.Inc()
}

// RecordCommand records one parsed command by type name.
func (m *Metrics) RecordCommand(cmdType string) {
	if m == nil {
		return
	}
	m.TextCommands.WithLabelValues(cmdType).Inc()
}

// RecordAudioChunk increments the audio chunk counter.
func (m *Metrics) RecordAudioChunk() {
	if m == nil {
		return
	}
	m.AudioChunks.Inc()
}

// RecordAudioDiscarded increments the out-of-session audio counter.
func (m *Metrics) RecordAudioDiscarded() {
	if m == nil {
		return
	}
	m.AudioDiscarded.Inc()
}

// RecordUnrecognizedCommand increments the unrecognized command counter.
func (m *Metrics) RecordUnrecognizedCommand() {
	if m == nil {
		return
	}
	m.UnrecognizedCommands.Inc()
}

// RecordGPSUpdate records one decoded GPS update.
func (m *Metrics) RecordGPSUpdate(valid bool) {
	if m == nil {
		return
	}
	if valid {
		m.GPSFixes.Inc()
	} else {
		m.GPSNoFix.Inc()
	}
}

// RecordCaptureStarted increments the captures started counter.
func (m *Metrics) RecordCaptureStarted() {
	if m == nil {
		return
	}
	m.CapturesStarted.Inc()
}

// RecordCaptureFinished records a finalized capture session.
func (m *Metrics) RecordCaptureFinished(durationSeconds float64) {
	if m == nil {
		return
	}
	m.CapturesFinished.Inc()
	m.CaptureDuration.Observe(durationSeconds)
}

// RecordCaptureBytesWritten records n bytes persisted to the sink.
func (m *Metrics) RecordCaptureBytesWritten(n int) {
	if m == nil {
		return
	}
	m.CaptureBytesWritten.Add(float64(n))
}

// RecordPacketDropped increments the size-mismatch drop counter.
func (m *Metrics) RecordPacketDropped() {
	if m == nil {
		return
	}
	m.PacketsDropped.Inc()
}

// RecordFlushError increments the flush error counter.
func (m *Metrics) RecordFlushError() {
	if m == nil {
		return
	}
	m.FlushErrors.Inc()
}

// RecordHTTPRequest records an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error.
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	if m == nil {
		return
	}
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
