package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	t.Setenv(EnvVar, "")
	cfg := Default()

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 30, cfg.DurationMinutes)
	assert.Equal(t, 100*time.Millisecond, cfg.Cadence())
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 2*time.Second, cfg.BackoffBase)
	require.NoError(t, cfg.Validate())

	addr, err := cfg.Address()
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8000/ws/study", addr)
}

func TestEnvironmentFromEnv(t *testing.T) {
	t.Setenv(EnvVar, "production")
	addr, err := Default().Address()
	require.NoError(t, err)
	assert.Equal(t, Environments["production"], addr)
}

func TestExplicitAddressWins(t *testing.T) {
	cfg := Default()
	cfg.Environment = "nowhere"
	cfg.TargetAddress = "ws://10.0.0.2:9000/ws"

	addr, err := cfg.Address()
	require.NoError(t, err)
	assert.Equal(t, "ws://10.0.0.2:9000/ws", addr)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown environment", func(c *Config) { c.Environment = "staging" }},
		{"zero duration", func(c *Config) { c.DurationMinutes = 0 }},
		{"negative cadence", func(c *Config) { c.CaptureCadence = -time.Second }},
		{"fps too high", func(c *Config) { c.Camera.FrameRate = 120 }},
		{"quality zero", func(c *Config) { c.Quality = 0 }},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }},
		{"zero backoff", func(c *Config) { c.BackoffBase = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Environment = "development"
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "focuslink.yaml")
	data := `
environment: production
duration_minutes: 45
capture_cadence: 250ms
camera:
  device: pattern
  width: 320
  height: 240
auto_stop: true
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 45, cfg.DurationMinutes)
	assert.Equal(t, 250*time.Millisecond, cfg.Cadence())
	assert.Equal(t, "pattern", cfg.Camera.Device)
	assert.Equal(t, 320, cfg.Camera.Width)
	assert.Equal(t, 10, cfg.Camera.FrameRate, "unset fields keep defaults")
	assert.True(t, cfg.AutoStop)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("duration_minutes: [1, 2"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.DurationMinutes)
}
