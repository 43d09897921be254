// Package config loads the topology editor configuration from a YAML file
// with TOPO_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-topology/pkg/logging"
	"github.com/dd0wney/cluso-topology/pkg/validation"
)

// IO-Tool backends.
const (
	BackendMemory = "memory"
	BackendBadger = "badger"
	BackendS3     = "s3"
	BackendNNG    = "nng"
)

// Default configuration values
const (
	DefaultAddr            = ":8080"
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
	DefaultEventBuffer     = 64
	DefaultNNGAddr         = "tcp://127.0.0.1:40899"
	DefaultNNGTimeout      = 5 * time.Second
	DefaultBadgerDir       = "./data/iotool"
	DefaultGCInterval      = 5 * time.Minute
)

// nngSchemes are the mangos transports registered by nngtool.
var nngSchemes = []string{"tcp", "ipc", "inproc", "ws", "wss", "tls+tcp"}

// Config is the complete process configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
	IOTool  IOToolConfig  `yaml:"iotool"`
	Events  EventsConfig  `yaml:"events"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// IOToolConfig selects and configures the IO-Tool backend.
type IOToolConfig struct {
	Backend string       `yaml:"backend"`
	Badger  BadgerConfig `yaml:"badger"`
	S3      S3Config     `yaml:"s3"`
	NNG     NNGConfig    `yaml:"nng"`
}

// BadgerConfig configures the embedded badger backend.
type BadgerConfig struct {
	Dir        string        `yaml:"dir"`
	InMemory   bool          `yaml:"in_memory"`
	GCInterval time.Duration `yaml:"gc_interval"`
}

// S3Config configures the S3 backend. Credentials fall back to the
// default AWS chain when empty.
type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	UsePathStyle    bool   `yaml:"use_path_style"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// NNGConfig configures the remote IO-Tool transport. Addr is dialed by the
// editor and listened on by `iotool serve`.
type NNGConfig struct {
	Addr    string        `yaml:"addr"`
	Timeout time.Duration `yaml:"timeout"`
}

// EventsConfig configures the change event bus.
type EventsConfig struct {
	Buffer int `yaml:"buffer"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads path (optional), applies TOPO_* overrides and defaults, and
// validates the result.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	c.Server.Addr = validation.DefaultOr(c.Server.Addr, DefaultAddr)
	c.Server.ReadTimeout = validation.DefaultOrDuration(c.Server.ReadTimeout, DefaultReadTimeout)
	c.Server.WriteTimeout = validation.DefaultOrDuration(c.Server.WriteTimeout, DefaultWriteTimeout)
	c.Server.ShutdownTimeout = validation.DefaultOrDuration(c.Server.ShutdownTimeout, DefaultShutdownTimeout)

	c.Logging.Level = validation.DefaultOr(c.Logging.Level, "info")

	c.IOTool.Backend = validation.DefaultOr(c.IOTool.Backend, BackendMemory)
	c.IOTool.Badger.Dir = validation.DefaultOr(c.IOTool.Badger.Dir, DefaultBadgerDir)
	c.IOTool.Badger.GCInterval = validation.DefaultOrDuration(c.IOTool.Badger.GCInterval, DefaultGCInterval)
	c.IOTool.NNG.Addr = validation.DefaultOr(c.IOTool.NNG.Addr, DefaultNNGAddr)
	c.IOTool.NNG.Timeout = validation.DefaultOrDuration(c.IOTool.NNG.Timeout, DefaultNNGTimeout)

	c.Events.Buffer = validation.DefaultOrInt(c.Events.Buffer, DefaultEventBuffer)
}

// applyEnv overlays TOPO_* variables. getenv is injected for tests.
func (c *Config) applyEnv(getenv func(string) string) error {
	var errs []error

	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v := getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	boolean := func(key string, dst *bool) {
		if v := getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	str("TOPO_ADDR", &c.Server.Addr)
	dur("TOPO_SHUTDOWN_TIMEOUT", &c.Server.ShutdownTimeout)
	if origins := getenv("TOPO_ALLOWED_ORIGINS"); origins != "" {
		c.Server.AllowedOrigins = splitAndTrim(origins, ",")
	}
	str("TOPO_LOG_LEVEL", &c.Logging.Level)

	str("TOPO_IOTOOL_BACKEND", &c.IOTool.Backend)
	str("TOPO_BADGER_DIR", &c.IOTool.Badger.Dir)
	boolean("TOPO_BADGER_IN_MEMORY", &c.IOTool.Badger.InMemory)
	str("TOPO_S3_BUCKET", &c.IOTool.S3.Bucket)
	str("TOPO_S3_PREFIX", &c.IOTool.S3.Prefix)
	str("TOPO_S3_REGION", &c.IOTool.S3.Region)
	str("TOPO_S3_ENDPOINT", &c.IOTool.S3.Endpoint)
	boolean("TOPO_S3_USE_PATH_STYLE", &c.IOTool.S3.UsePathStyle)
	str("TOPO_S3_ACCESS_KEY_ID", &c.IOTool.S3.AccessKeyID)
	str("TOPO_S3_SECRET_ACCESS_KEY", &c.IOTool.S3.SecretAccessKey)
	str("TOPO_NNG_ADDR", &c.IOTool.NNG.Addr)
	dur("TOPO_NNG_TIMEOUT", &c.IOTool.NNG.Timeout)

	if v := getenv("TOPO_EVENT_BUFFER"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid TOPO_EVENT_BUFFER: %w", err))
		} else {
			c.Events.Buffer = n
		}
	}

	return errors.Join(errs...)
}

// Validate checks the configuration after defaults are applied.
func (c *Config) Validate() error {
	cv := validation.NewConfigValidator("Config")

	cv.Required("server.addr", c.Server.Addr).
		MinDuration("server.shutdown_timeout", c.Server.ShutdownTimeout, time.Second).
		OneOf("logging.level", strings.ToLower(c.Logging.Level), []string{"debug", "info", "warn", "warning", "error"}).
		OneOf("iotool.backend", c.IOTool.Backend, []string{BackendMemory, BackendBadger, BackendS3, BackendNNG}).
		RangeInt("events.buffer", c.Events.Buffer, 1, 65536)

	cv.When(c.IOTool.Backend == BackendBadger && !c.IOTool.Badger.InMemory, func(v *validation.ConfigValidator) {
		v.Required("iotool.badger.dir", c.IOTool.Badger.Dir)
	})
	cv.When(c.IOTool.Backend == BackendS3, func(v *validation.ConfigValidator) {
		v.Required("iotool.s3.bucket", c.IOTool.S3.Bucket).
			Paired("iotool.s3.access_key_id", c.IOTool.S3.AccessKeyID,
				"iotool.s3.secret_access_key", c.IOTool.S3.SecretAccessKey)
	})
	cv.When(c.IOTool.Backend == BackendNNG, func(v *validation.ConfigValidator) {
		v.Endpoint("iotool.nng.addr", c.IOTool.NNG.Addr, nngSchemes...).
			MinDuration("iotool.nng.timeout", c.IOTool.NNG.Timeout, 10*time.Millisecond)
	})

	return cv.Validate()
}

// LogLevel returns the parsed logging level.
func (c *Config) LogLevel() logging.Level {
	return logging.ParseLevel(c.Logging.Level)
}

func splitAndTrim(s string, sep string) []string {
	parts := strings.Split(s, sep)
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
