package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-topology/pkg/logging"
	"github.com/dd0wney/cluso-topology/pkg/validation"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "topoeditor.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, DefaultAddr, cfg.Server.Addr)
	assert.Equal(t, BackendMemory, cfg.IOTool.Backend)
	assert.Equal(t, DefaultEventBuffer, cfg.Events.Buffer)
	assert.Equal(t, DefaultNNGTimeout, cfg.IOTool.NNG.Timeout)
	assert.Equal(t, logging.InfoLevel, cfg.LogLevel())
	assert.NoError(t, cfg.Validate())
}

func TestLoad_YAML(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9090"
  shutdown_timeout: 30s
  allowed_origins: ["https://editor.example.com"]
logging:
  level: debug
iotool:
  backend: badger
  badger:
    dir: /var/lib/topo
    gc_interval: 1m
events:
  buffer: 16
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, []string{"https://editor.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, logging.DebugLevel, cfg.LogLevel())
	assert.Equal(t, BackendBadger, cfg.IOTool.Backend)
	assert.Equal(t, "/var/lib/topo", cfg.IOTool.Badger.Dir)
	assert.Equal(t, time.Minute, cfg.IOTool.Badger.GCInterval)
	assert.Equal(t, 16, cfg.Events.Buffer)
	// Unset values still receive defaults
	assert.Equal(t, DefaultReadTimeout, cfg.Server.ReadTimeout)
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultAddr, cfg.Server.Addr)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := Load(writeConfig(t, "server: [unterminated"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse config")
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := Load(writeConfig(t, "iotool:\n  backend: ftp\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "iotool.backend")
	})
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"TOPO_ADDR":              ":7000",
		"TOPO_LOG_LEVEL":         "warn",
		"TOPO_IOTOOL_BACKEND":    "s3",
		"TOPO_S3_BUCKET":         "topologies",
		"TOPO_S3_USE_PATH_STYLE": "true",
		"TOPO_NNG_TIMEOUT":       "250ms",
		"TOPO_ALLOWED_ORIGINS":   "https://a.example.com, https://b.example.com,",
		"TOPO_EVENT_BUFFER":      "8",
	}

	cfg := &Config{Server: ServerConfig{Addr: ":1"}}
	require.NoError(t, cfg.applyEnv(func(k string) string { return env[k] }))
	cfg.applyDefaults()

	assert.Equal(t, ":7000", cfg.Server.Addr, "env overrides file values")
	assert.Equal(t, logging.WarnLevel, cfg.LogLevel())
	assert.Equal(t, BackendS3, cfg.IOTool.Backend)
	assert.Equal(t, "topologies", cfg.IOTool.S3.Bucket)
	assert.True(t, cfg.IOTool.S3.UsePathStyle)
	assert.Equal(t, 250*time.Millisecond, cfg.IOTool.NNG.Timeout)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 8, cfg.Events.Buffer)
	assert.NoError(t, cfg.Validate())
}

func TestApplyEnv_Invalid(t *testing.T) {
	env := map[string]string{
		"TOPO_NNG_TIMEOUT":      "soon",
		"TOPO_BADGER_IN_MEMORY": "maybe",
		"TOPO_EVENT_BUFFER":     "lots",
	}

	cfg := &Config{}
	err := cfg.applyEnv(func(k string) string { return env[k] })
	require.Error(t, err)
	for key := range env {
		assert.True(t, strings.Contains(err.Error(), key), "error should mention %s", key)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"tiny shutdown timeout", func(c *Config) { c.Server.ShutdownTimeout = time.Millisecond }, "server.shutdown_timeout"},
		{"buffer out of range", func(c *Config) { c.Events.Buffer = 1 << 20 }, "events.buffer"},
		{"s3 without bucket", func(c *Config) { c.IOTool.Backend = BackendS3 }, "iotool.s3.bucket"},
		{"s3 half credentials", func(c *Config) {
			c.IOTool.Backend = BackendS3
			c.IOTool.S3.Bucket = "b"
			c.IOTool.S3.AccessKeyID = "AKIA"
		}, "iotool.s3.access_key_id"},
		{"badger in memory needs no dir", func(c *Config) {
			c.IOTool.Backend = BackendBadger
			c.IOTool.Badger.Dir = ""
			c.IOTool.Badger.InMemory = true
		}, ""},
		{"badger on disk needs dir", func(c *Config) {
			c.IOTool.Backend = BackendBadger
			c.IOTool.Badger.Dir = ""
		}, "iotool.badger.dir"},
		{"nng timeout too small", func(c *Config) {
			c.IOTool.Backend = BackendNNG
			c.IOTool.NNG.Timeout = time.Microsecond
		}, "iotool.nng.timeout"},
		{"nng address without scheme", func(c *Config) {
			c.IOTool.Backend = BackendNNG
			c.IOTool.NNG.Addr = "127.0.0.1:40899"
		}, "iotool.nng.addr"},
		{"nng unknown scheme", func(c *Config) {
			c.IOTool.Backend = BackendNNG
			c.IOTool.NNG.Addr = "udp://127.0.0.1:40899"
		}, "iotool.nng.addr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, validation.ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
