package server

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML either as a
// duration string ("10s", "1m30s") or as a bare integer number of
// seconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var secs int64
	if err := value.Decode(&secs); err == nil {
		*d = Duration(time.Duration(secs) * time.Second)
		return nil
	}

	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("server: invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config holds the server configuration, loadable from YAML.
type Config struct {
	// Addr is the TCP listen address for the wire protocol.
	Addr string `yaml:"addr"`

	// MetricsAddr is the HTTP listen address for Prometheus /metrics.
	// Empty disables the metrics listener.
	MetricsAddr string `yaml:"metrics_addr"`

	// DataDir is the directory database files are created in
	// ("<data_dir>/<name>.db" plus the ".del" tombstone log).
	DataDir string `yaml:"data_dir"`

	// DefaultCapacity is the row capacity used when a SELECT_DB creates
	// a new database.
	DefaultCapacity int `yaml:"default_capacity"`

	// MaxNameLength bounds the database name carried by SELECT_DB.
	MaxNameLength int `yaml:"max_name_length"`

	// RateLimit is the per-connection command budget in commands per
	// second. Zero disables throttling.
	RateLimit float64 `yaml:"rate_limit"`

	// RateBurst is the burst size for RateLimit. Defaults to the
	// integer part of RateLimit (at least 1) when zero.
	RateBurst int `yaml:"rate_burst"`

	// ShutdownTimeout bounds how long a graceful shutdown waits for
	// in-flight connections.
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// DefaultConfig returns the configuration used when no file or flags
// override it. The 100000-row default capacity matches what the wire
// protocol's SELECT_DB historically provisioned.
func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		DataDir:         ".",
		DefaultCapacity: 100000,
		MaxNameLength:   255,
		ShutdownTimeout: Duration(10 * time.Second),
	}
}

// LoadConfig reads a YAML config file over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("server: parse config %s: %w", path, err)
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.Addr == "" {
		return fmt.Errorf("server: addr must not be empty")
	}
	if c.DefaultCapacity <= 0 {
		return fmt.Errorf("server: default_capacity must be positive, got %d", c.DefaultCapacity)
	}
	if c.MaxNameLength <= 0 {
		return fmt.Errorf("server: max_name_length must be positive, got %d", c.MaxNameLength)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("server: rate_limit must not be negative")
	}
	return nil
}
