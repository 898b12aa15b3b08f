package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
addr: "127.0.0.1:9000"
metrics_addr: "127.0.0.1:9100"
data_dir: "/var/lib/redboxdb"
default_capacity: 50000
rate_limit: 1000
shutdown_timeout: 30s
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Addr)
	assert.Equal(t, "127.0.0.1:9100", cfg.MetricsAddr)
	assert.Equal(t, "/var/lib/redboxdb", cfg.DataDir)
	assert.Equal(t, 50000, cfg.DefaultCapacity)
	assert.Equal(t, float64(1000), cfg.RateLimit)
	assert.Equal(t, Duration(30*time.Second), cfg.ShutdownTimeout)
	// Unset fields keep their defaults.
	assert.Equal(t, 255, cfg.MaxNameLength)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"EmptyAddr", func(c *Config) { c.Addr = "" }},
		{"ZeroCapacity", func(c *Config) { c.DefaultCapacity = 0 }},
		{"NegativeRateLimit", func(c *Config) { c.RateLimit = -1 }},
		{"ZeroNameLength", func(c *Config) { c.MaxNameLength = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.validate())
		})
	}
}
