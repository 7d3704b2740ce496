package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete bridge configuration
type Config struct {
	Transport TransportConfig `yaml:"transport"`
	HTTP      HTTPConfig      `yaml:"http"`
	Capture   CaptureConfig   `yaml:"capture"`
	Tone      ToneConfig      `yaml:"tone"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// TransportConfig describes the device link
type TransportConfig struct {
	Target         string `yaml:"target"`           // tcp://host:port, ws:// or wss:// URL
	DialTimeout    int    `yaml:"dial_timeout"`     // seconds
	ReadBufferSize int    `yaml:"read_buffer_size"` // bytes, per-read scratch buffer
	SendQueueSize  int    `yaml:"send_queue_size"`  // outbound chunks buffered before Send rejects
	PingInterval   int    `yaml:"ping_interval"`    // seconds between outbound PINGs, 0 disables
}

// HTTPConfig contains HTTP API server configuration
type HTTPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// CaptureConfig contains audio capture parameters
type CaptureConfig struct {
	OutputDir       string `yaml:"output_dir"`
	ChunkSize       int    `yaml:"chunk_size"`        // bytes per well-formed audio chunk
	FlushIntervalMs int    `yaml:"flush_interval_ms"` // pending-queue drain period
	SampleRate      int    `yaml:"sample_rate"`       // Hz, implied rate of the persisted PCM
}

// ToneConfig describes the outbound self-test tone
type ToneConfig struct {
	SampleRate    int     `yaml:"sample_rate"` // Hz
	Duration      float64 `yaml:"duration"`    // seconds
	Frequency     float64 `yaml:"frequency"`   // Hz
	Amplitude     float64 `yaml:"amplitude"`   // full-scale fraction
	SettleDelayMs int     `yaml:"settle_delay_ms"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.Transport.Validate(); err != nil {
		return fmt.Errorf("transport config: %w", err)
	}

	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Capture.Validate(); err != nil {
		return fmt.Errorf("capture config: %w", err)
	}

	if err := c.Tone.Validate(); err != nil {
		return fmt.Errorf("tone config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates transport configuration
func (t *TransportConfig) Validate() error {
	if t.Target == "" {
		return fmt.Errorf("target cannot be empty")
	}

	if !strings.HasPrefix(t.Target, "tcp://") &&
		!strings.HasPrefix(t.Target, "ws://") &&
		!strings.HasPrefix(t.Target, "wss://") {
		return fmt.Errorf("target must use tcp://, ws:// or wss:// scheme, got '%s'", t.Target)
	}

	if t.DialTimeout < 1 {
		return fmt.Errorf("dial_timeout must be at least 1 second, got %d", t.DialTimeout)
	}

	if t.ReadBufferSize < 1024 {
		return fmt.Errorf("read_buffer_size must be at least 1024 bytes, got %d", t.ReadBufferSize)
	}

	if t.SendQueueSize < 1 {
		return fmt.Errorf("send_queue_size must be at least 1, got %d", t.SendQueueSize)
	}

	if t.PingInterval < 0 {
		return fmt.Errorf("ping_interval cannot be negative, got %d", t.PingInterval)
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Enabled {
		if h.Port < 1 || h.Port > 65535 {
			return fmt.Errorf("http port must be between 1 and 65535, got %d", h.Port)
		}

		if h.Address == "" {
			return fmt.Errorf("http address cannot be empty when HTTP is enabled")
		}
	}

	return nil
}

// Validate validates capture configuration
func (a *CaptureConfig) Validate() error {
	if a.OutputDir == "" {
		return fmt.Errorf("output_dir cannot be empty")
	}

	if a.ChunkSize != 256 {
		return fmt.Errorf("chunk_size must be 256 bytes for the device framing, got %d", a.ChunkSize)
	}

	if a.FlushIntervalMs < 10 || a.FlushIntervalMs > 5000 {
		return fmt.Errorf("flush_interval_ms must be between 10 and 5000, got %d", a.FlushIntervalMs)
	}

	if a.SampleRate != 16000 {
		return fmt.Errorf("sample_rate must be 16000 Hz for device audio, got %d", a.SampleRate)
	}

	return nil
}

// Validate validates tone configuration
func (t *ToneConfig) Validate() error {
	if t.SampleRate < 1 {
		return fmt.Errorf("sample_rate must be positive, got %d", t.SampleRate)
	}

	if t.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %f", t.Duration)
	}

	if t.Frequency <= 0 {
		return fmt.Errorf("frequency must be positive, got %f", t.Frequency)
	}

	if t.Amplitude < 0 || t.Amplitude > 1 {
		return fmt.Errorf("amplitude must be between 0 and 1, got %f", t.Amplitude)
	}

	if t.SettleDelayMs < 0 {
		return fmt.Errorf("settle_delay_ms cannot be negative, got %d", t.SettleDelayMs)
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// GetDialTimeout returns the dial timeout as a time.Duration
func (t *TransportConfig) GetDialTimeout() time.Duration {
	return time.Duration(t.DialTimeout) * time.Second
}

// GetPingInterval returns the liveness ping interval as a time.Duration
func (t *TransportConfig) GetPingInterval() time.Duration {
	return time.Duration(t.PingInterval) * time.Second
}

// GetFlushInterval returns the pending-queue flush period as a time.Duration
func (a *CaptureConfig) GetFlushInterval() time.Duration {
	return time.Duration(a.FlushIntervalMs) * time.Millisecond
}

// GetSettleDelay returns the pre-payload settle delay as a time.Duration
func (t *ToneConfig) GetSettleDelay() time.Duration {
	return time.Duration(t.SettleDelayMs) * time.Millisecond
}
