package media

import (
	"context"
	"errors"

	"github.com/junsooki/FocusLink/internal/capture"
)

var (
	// ErrAcquisition wraps any failure to open the camera: permission denied,
	// no device, or the device rejecting the constraints.
	ErrAcquisition = errors.New("camera acquisition failed")

	// ErrNotReady is returned by Sample until the sink holds a frame.
	ErrNotReady = errors.New("video sink not ready")

	// ErrStreamClosed is returned by Stream.Read after Close.
	ErrStreamClosed = errors.New("stream closed")
)

// Constraints are the ideal capture parameters requested from a device.
type Constraints struct {
	Width     int
	Height    int
	FrameRate int
}

// DefaultConstraints mirror a 640x480 webcam at 10 fps.
var DefaultConstraints = Constraints{Width: 640, Height: 480, FrameRate: 10}

// Device opens camera streams.
type Device interface {
	Open(ctx context.Context, c Constraints) (Stream, error)
}

// Stream is an open camera stream. Read blocks until the next frame is
// available. Close stops the underlying tracks.
type Stream interface {
	Read() (*capture.Frame, error)
	Close() error
}
