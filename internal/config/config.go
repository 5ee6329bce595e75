// Package config loads botctl settings from a YAML file overlaid with
// BOTCTL_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/felixgeelhaar/botctl/internal/log"
)

// Session storage backends.
const (
	BackendFile      = "file"
	BackendEncrypted = "encrypted"
	BackendRedis     = "redis"
	BackendMemory    = "memory"
)

// Output formats.
const (
	OutputTable = "table"
	OutputJSON  = "json"
	OutputYAML  = "yaml"
)

// Config is the complete botctl configuration.
type Config struct {
	API       APIConfig       `yaml:"api"`
	Session   SessionConfig   `yaml:"session"`
	Log       LogConfig       `yaml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Output    string          `yaml:"output" env:"BOTCTL_OUTPUT" env-default:"table" env-description:"default output format: table, json or yaml"`
}

// APIConfig locates the backend.
type APIConfig struct {
	URL     string        `yaml:"url" env:"BOTCTL_API_URL" env-default:"http://localhost:8000" env-description:"base URL of the bot platform API"`
	Timeout time.Duration `yaml:"timeout" env:"BOTCTL_TIMEOUT" env-default:"30s" env-description:"timeout of a single API request"`
}

// SessionConfig selects where the token and profile are kept.
type SessionConfig struct {
	Backend string `yaml:"backend" env:"BOTCTL_SESSION_BACKEND" env-default:"file" env-description:"session storage: file, encrypted, redis or memory"`
	Dir     string `yaml:"dir" env:"BOTCTL_SESSION_DIR" env-description:"directory of the file and encrypted backends"`

	// Passphrase is only read from the environment.
	Passphrase string      `yaml:"-" json:"-" env:"BOTCTL_SESSION_PASSPHRASE" env-description:"passphrase of the encrypted backend"`
	Redis      RedisConfig `yaml:"redis"`
}

// RedisConfig configures the redis session backend.
type RedisConfig struct {
	Addr        string        `yaml:"addr" env:"BOTCTL_REDIS_ADDR" env-default:"localhost:6379" env-description:"redis address of the redis backend"`
	Username    string        `yaml:"username" env:"BOTCTL_REDIS_USERNAME"`
	Password    string        `yaml:"-" json:"-" env:"BOTCTL_REDIS_PASSWORD"`
	DB          int           `yaml:"db" env:"BOTCTL_REDIS_DB"`
	Prefix      string        `yaml:"prefix" env-default:"botctl"`
	DialTimeout time.Duration `yaml:"dial_timeout" env-default:"5s"`
	Timeout     time.Duration `yaml:"timeout" env-default:"3s"`
}

// LogConfig configures diagnostics on stderr.
type LogConfig struct {
	Level  string `yaml:"level" env:"BOTCTL_LOG_LEVEL" env-default:"warn" env-description:"log level: debug, info, warn or error"`
	Format string `yaml:"format" env:"BOTCTL_LOG_FORMAT" env-default:"text" env-description:"log format: text or json"`
}

// TelemetryConfig configures optional tracing and metrics export.
type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"BOTCTL_OTLP_ENDPOINT" env-description:"OTLP/HTTP endpoint for request traces"`
	MetricsFile  string `yaml:"metrics_file" env:"BOTCTL_METRICS_FILE" env-description:"write Prometheus metrics to this file on exit"`
}

// DefaultPath returns the config file location: BOTCTL_CONFIG, or
// ~/.botctl/config.yaml.
func DefaultPath() string {
	if p := os.Getenv("BOTCTL_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(homeDir(), ".botctl", "config.yaml")
}

// DefaultSessionDir returns the directory used when session.dir is unset.
func DefaultSessionDir() string {
	return filepath.Join(homeDir(), ".botctl", "sessions")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

// Load reads path, or DefaultPath when path is empty. A missing file is
// not an error; the environment and defaults still apply.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	var cfg Config
	_, err := os.Stat(path)
	switch {
	case err == nil:
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("reading environment: %w", err)
		}
	default:
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the defaults overlaid with the environment, without
// reading a file. Malformed variables fall back to their defaults.
func Default() *Config {
	var cfg Config
	_ = cleanenv.ReadEnv(&cfg)
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	if c.Session.Dir == "" {
		c.Session.Dir = DefaultSessionDir()
	}
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.API.Validate(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := c.Session.Validate(); err != nil {
		return fmt.Errorf("session: %w", err)
	}
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	if err := ValidateOutput(c.Output); err != nil {
		return err
	}
	return nil
}

// Validate checks the API settings.
func (a *APIConfig) Validate() error {
	u, err := url.Parse(a.URL)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", a.URL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("url must be an absolute http(s) URL, got %q", a.URL)
	}
	if a.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", a.Timeout)
	}
	return nil
}

// Validate checks the session settings.
func (s *SessionConfig) Validate() error {
	switch s.Backend {
	case BackendFile, BackendMemory:
	case BackendEncrypted:
		if s.Passphrase == "" {
			return fmt.Errorf("the encrypted backend needs BOTCTL_SESSION_PASSPHRASE")
		}
	case BackendRedis:
		if s.Redis.Addr == "" {
			return fmt.Errorf("redis.addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("invalid backend: %q (must be file, encrypted, redis, or memory)", s.Backend)
	}
	return nil
}

// Validate checks the log settings.
func (l *LogConfig) Validate() error {
	_, err := l.Logger()
	return err
}

// Logger converts the settings into a logger configuration.
func (l *LogConfig) Logger() (log.Config, error) {
	level, err := log.ParseLevel(l.Level)
	if err != nil {
		return log.Config{}, err
	}
	format, err := log.ParseFormat(l.Format)
	if err != nil {
		return log.Config{}, err
	}
	cfg := log.DefaultConfig()
	cfg.Level = level
	cfg.Format = format
	return cfg, nil
}

// ValidateOutput checks an output format name.
func ValidateOutput(output string) error {
	switch output {
	case OutputTable, OutputJSON, OutputYAML:
		return nil
	default:
		return fmt.Errorf("invalid output format: %q (must be table, json, or yaml)", output)
	}
}

// DescribeEnv writes the supported environment variables to w.
func DescribeEnv(w io.Writer) {
	var cfg Config
	header := "Environment variables:"
	cleanenv.FUsage(w, &cfg, &header)()
}
