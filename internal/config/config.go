// Package config holds the runtime parameters for the preview server and
// the loaders that fill them from files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the preview server. Load starts from
// Default and overlays the file, so keys absent from a config file keep
// their default values.
type Config struct {
	// Addr is the listen address of the HTTP API.
	Addr string `json:"addr" yaml:"addr" toml:"addr"`
	// HighWatermark is the soft per-conversation subscriber bound.
	HighWatermark int `json:"high_watermark" yaml:"high_watermark" toml:"high_watermark"`
	// MaxEventBytes caps the request body of the event ingress endpoint.
	MaxEventBytes int64 `json:"max_event_bytes" yaml:"max_event_bytes" toml:"max_event_bytes"`
	// StreamBuffer is the per-client buffer of the SSE and websocket
	// bridges. A client that falls this far behind starts losing events.
	StreamBuffer int `json:"stream_buffer" yaml:"stream_buffer" toml:"stream_buffer"`
	// ShutdownGraceSeconds bounds how long the server waits for in-flight
	// requests on shutdown.
	ShutdownGraceSeconds int `json:"shutdown_grace_seconds" yaml:"shutdown_grace_seconds" toml:"shutdown_grace_seconds"`
	// CORSOrigins lists the origins allowed to call the API from a browser.
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level" yaml:"log_level" toml:"log_level"`
	// PrettyLogs switches the log sink to a human readable console writer.
	PrettyLogs bool `json:"pretty_logs" yaml:"pretty_logs" toml:"pretty_logs"`
}

// Default returns the configuration previewd starts from.
func Default() Config {
	return Config{
		Addr:                 ":8999",
		HighWatermark:        100,
		MaxEventBytes:        1 << 20,
		StreamBuffer:         64,
		ShutdownGraceSeconds: 10,
		CORSOrigins:          []string{"*"},
		LogLevel:             "info",
	}
}

// Load reads a configuration file based on its extension, overlaying it on
// Default. Supports .yaml/.yml, .json and .toml. An empty path returns
// Default unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}

	return cfg, nil
}

// FromEnv overlays PREVIEW_* environment variables on cfg and returns the
// result. Unset and unparsable variables leave the current value alone.
func FromEnv(cfg Config) Config {
	if v := os.Getenv("PREVIEW_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v, ok := envInt("PREVIEW_HIGH_WATERMARK"); ok {
		cfg.HighWatermark = v
	}
	if v, ok := envInt64("PREVIEW_MAX_EVENT_BYTES"); ok {
		cfg.MaxEventBytes = v
	}
	if v, ok := envInt("PREVIEW_STREAM_BUFFER"); ok {
		cfg.StreamBuffer = v
	}
	if v, ok := envInt("PREVIEW_SHUTDOWN_GRACE_SECONDS"); ok {
		cfg.ShutdownGraceSeconds = v
	}
	if v := os.Getenv("PREVIEW_CORS_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		for i, origin := range origins {
			origins[i] = strings.TrimSpace(origin)
		}
		cfg.CORSOrigins = origins
	}
	if v := os.Getenv("PREVIEW_LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv("PREVIEW_PRETTY_LOGS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.PrettyLogs = b
		}
	}
	return cfg
}

// Validate reports the first nonsensical parameter.
func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr is required")
	}
	if c.HighWatermark < 1 {
		return fmt.Errorf("high_watermark must be positive, got %d", c.HighWatermark)
	}
	if c.MaxEventBytes < 1 {
		return fmt.Errorf("max_event_bytes must be positive, got %d", c.MaxEventBytes)
	}
	if c.StreamBuffer < 1 {
		return fmt.Errorf("stream_buffer must be positive, got %d", c.StreamBuffer)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	return nil
}

func envInt(name string) (int, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envInt64(name string) (int64, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
