package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ":8999", cfg.Addr)
	assert.Equal(t, 100, cfg.HighWatermark)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
}

func TestLoad(t *testing.T) {
	t.Run("empty path returns defaults", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("yaml", func(t *testing.T) {
		p := writeTempFile(t, "cfg.yaml", "addr: :7070\nhigh_watermark: 16\nlog_level: debug\n")
		cfg, err := Load(p)
		require.NoError(t, err)
		assert.Equal(t, ":7070", cfg.Addr)
		assert.Equal(t, 16, cfg.HighWatermark)
		assert.Equal(t, "debug", cfg.LogLevel)
		// Keys the file does not mention keep their defaults.
		assert.Equal(t, Default().MaxEventBytes, cfg.MaxEventBytes)
	})

	t.Run("json", func(t *testing.T) {
		p := writeTempFile(t, "cfg.json", `{"addr":":7071","stream_buffer":8}`)
		cfg, err := Load(p)
		require.NoError(t, err)
		assert.Equal(t, ":7071", cfg.Addr)
		assert.Equal(t, 8, cfg.StreamBuffer)
	})

	t.Run("toml", func(t *testing.T) {
		p := writeTempFile(t, "cfg.toml", "addr = \":7072\"\npretty_logs = true\n")
		cfg, err := Load(p)
		require.NoError(t, err)
		assert.Equal(t, ":7072", cfg.Addr)
		assert.True(t, cfg.PrettyLogs)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		p := writeTempFile(t, "cfg.txt", "addr = :1")
		_, err := Load(p)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported config extension")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
	})
}

func TestFromEnv(t *testing.T) {
	t.Setenv("PREVIEW_ADDR", ":9001")
	t.Setenv("PREVIEW_HIGH_WATERMARK", "3")
	t.Setenv("PREVIEW_CORS_ORIGINS", "https://app.example.com, https://other.example.com")
	t.Setenv("PREVIEW_LOG_LEVEL", "WARN")
	t.Setenv("PREVIEW_PRETTY_LOGS", "true")
	t.Setenv("PREVIEW_STREAM_BUFFER", "not-a-number")

	cfg := FromEnv(Default())
	assert.Equal(t, ":9001", cfg.Addr)
	assert.Equal(t, 3, cfg.HighWatermark)
	assert.Equal(t, []string{"https://app.example.com", "https://other.example.com"}, cfg.CORSOrigins)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.True(t, cfg.PrettyLogs)
	// Unparsable values keep the default.
	assert.Equal(t, Default().StreamBuffer, cfg.StreamBuffer)
}

func TestValidate(t *testing.T) {
	valid := Default()
	require.NoError(t, valid.Validate())

	for name, mutate := range map[string]func(*Config){
		"empty addr":             func(c *Config) { c.Addr = "" },
		"zero high watermark":    func(c *Config) { c.HighWatermark = 0 },
		"negative event bytes":   func(c *Config) { c.MaxEventBytes = -1 },
		"zero stream buffer":     func(c *Config) { c.StreamBuffer = 0 },
		"unknown log level":      func(c *Config) { c.LogLevel = "verbose" },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
