package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned by Validate for any rejected field.
var ErrInvalidConfig = errors.New("invalid config")

// EnvVar selects the environment when no -env flag is given.
const EnvVar = "FOCUSLINK_ENV"

// Environments maps an environment name to its scoring service endpoint.
var Environments = map[string]string{
	"development": "ws://localhost:8000/ws/study",
	"production":  "wss://focus.example.com/ws/study",
}

// CameraConfig holds the ideal capture constraints. The device may deliver
// something else; frames are downscaled before encoding.
type CameraConfig struct {
	Device    string `yaml:"device"` // OpenCV index ("0") or "pattern"
	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`
	FrameRate int    `yaml:"frame_rate"`
}

// Config holds all runtime configuration. It is treated as immutable once a
// session has been created from it.
type Config struct {
	Environment     string        `yaml:"environment"`
	TargetAddress   string        `yaml:"target_address"`
	DurationMinutes int           `yaml:"duration_minutes"`
	CaptureCadence  time.Duration `yaml:"capture_cadence"`
	Camera          CameraConfig  `yaml:"camera"`

	Quality         int `yaml:"quality"`           // JPEG quality (1-100)
	MinEncodedBytes int `yaml:"min_encoded_bytes"` // payloads at or below are dropped
	MinFrameWidth   int `yaml:"min_frame_width"`
	MinFrameHeight  int `yaml:"min_frame_height"`

	MaxRetries  int           `yaml:"max_retries"`
	BackoffBase time.Duration `yaml:"backoff_base"`
	AutoStop    bool          `yaml:"auto_stop"`

	MetricsAddr string `yaml:"metrics_addr"`
	Headless    bool   `yaml:"headless"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	env := os.Getenv(EnvVar)
	if env == "" {
		env = "development"
	}
	return &Config{
		Environment:     env,
		DurationMinutes: 30,
		Camera: CameraConfig{
			Device:    "0",
			Width:     640,
			Height:    480,
			FrameRate: 10,
		},
		Quality:         80,
		MinEncodedBytes: 1000,
		MinFrameWidth:   100,
		MinFrameHeight:  100,
		MaxRetries:      3,
		BackoffBase:     2 * time.Second,
	}
}

// Load reads a YAML file over the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Address returns the explicit target address, or the endpoint of the
// selected environment.
func (c *Config) Address() (string, error) {
	if c.TargetAddress != "" {
		return c.TargetAddress, nil
	}
	addr, ok := Environments[c.Environment]
	if !ok {
		return "", fmt.Errorf("%w: unknown environment %q", ErrInvalidConfig, c.Environment)
	}
	return addr, nil
}

// Cadence returns the capture interval, derived from the camera frame rate
// when not set explicitly.
func (c *Config) Cadence() time.Duration {
	if c.CaptureCadence > 0 {
		return c.CaptureCadence
	}
	if c.Camera.FrameRate > 0 {
		return time.Second / time.Duration(c.Camera.FrameRate)
	}
	return 100 * time.Millisecond
}

// Validate checks every field a session depends on.
func (c *Config) Validate() error {
	if _, err := c.Address(); err != nil {
		return err
	}
	if c.DurationMinutes <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %d", ErrInvalidConfig, c.DurationMinutes)
	}
	if c.CaptureCadence < 0 {
		return fmt.Errorf("%w: capture cadence must be positive, got %s", ErrInvalidConfig, c.CaptureCadence)
	}
	if c.Camera.FrameRate < 0 || c.Camera.FrameRate > 60 {
		return fmt.Errorf("%w: frame rate must be 1-60, got %d", ErrInvalidConfig, c.Camera.FrameRate)
	}
	if c.Quality < 1 || c.Quality > 100 {
		return fmt.Errorf("%w: quality must be 1-100, got %d", ErrInvalidConfig, c.Quality)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: max retries must not be negative", ErrInvalidConfig)
	}
	if c.BackoffBase <= 0 {
		return fmt.Errorf("%w: backoff base must be positive", ErrInvalidConfig)
	}
	return nil
}
