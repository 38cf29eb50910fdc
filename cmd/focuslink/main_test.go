package main

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/junsooki/FocusLink/internal/camera"
	"github.com/junsooki/FocusLink/internal/camera/cv"
	"github.com/junsooki/FocusLink/internal/channel"
	"github.com/junsooki/FocusLink/internal/config"
	"github.com/junsooki/FocusLink/internal/media"
	"github.com/junsooki/FocusLink/internal/session"
)

func TestConfigCommandAppliesFlags(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"config", "--url", "ws://127.0.0.1:9000/ws/study", "--duration", "45", "--device", "pattern", "--cadence", "250ms", "--auto-stop"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.Execute())

	var cfg config.Config
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &cfg))
	assert.Equal(t, "ws://127.0.0.1:9000/ws/study", cfg.TargetAddress)
	assert.Equal(t, 45, cfg.DurationMinutes)
	assert.Equal(t, "pattern", cfg.Camera.Device)
	assert.Equal(t, "250ms", cfg.CaptureCadence.String())
	assert.True(t, cfg.AutoStop)
	assert.Equal(t, 3, cfg.MaxRetries)
}

func TestOpenDevice(t *testing.T) {
	assert.Equal(t, &camera.Pattern{}, openDevice("pattern"))
	assert.Equal(t, &camera.Pattern{Black: true}, openDevice("black"))
	assert.Equal(t, &cv.Device{Source: 1}, openDevice("1"))
	assert.Equal(t, &cv.Device{Source: "rtsp://cam/stream"}, openDevice("rtsp://cam/stream"))
}

func TestFinished(t *testing.T) {
	acqErr := fmt.Errorf("%w: no device", media.ErrAcquisition)
	tests := []struct {
		name string
		in   session.Status
		want bool
	}{
		{"connecting", session.Status{State: channel.Connecting}, false},
		{"connected", session.Status{State: channel.Connected}, false},
		{"disconnected", session.Status{State: channel.Disconnected}, true},
		{"retrying", session.Status{State: channel.Erroring, ErrorCount: 2, LastError: errors.New("reset")}, false},
		{"exhausted", session.Status{State: channel.Erroring, ErrorCount: 4, LastError: errors.New("reset")}, true},
		{"no camera", session.Status{State: channel.Erroring, LastError: acqErr}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, finished(tt.in, 3))
		})
	}
}
