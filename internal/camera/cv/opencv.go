package cv

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/junsooki/FocusLink/internal/camera"
	"github.com/junsooki/FocusLink/internal/capture"
	"github.com/junsooki/FocusLink/internal/media"
	"github.com/junsooki/FocusLink/internal/permissions"
)

// Device opens a camera through gocv's VideoCapture. Source is a device
// index or a file/stream URL.
type Device struct {
	Source any
}

// Open implements media.Device.
func (d *Device) Open(ctx context.Context, c media.Constraints) (media.Stream, error) {
	if !permissions.EnsureCamera() {
		return nil, fmt.Errorf("%w (%s)", camera.ErrPermissionDenied, permissions.CameraStatus())
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vc, err := gocv.OpenVideoCapture(d.Source)
	if err != nil {
		return nil, fmt.Errorf("open camera %v: %w", d.Source, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("camera %v not available", d.Source)
	}

	if c.Width > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(c.Width))
	}
	if c.Height > 0 {
		vc.Set(gocv.VideoCaptureFrameHeight, float64(c.Height))
	}
	if c.FrameRate > 0 {
		vc.Set(gocv.VideoCaptureFPS, float64(c.FrameRate))
	}

	return &cvStream{vc: vc, mat: gocv.NewMat()}, nil
}

type cvStream struct {
	mu     sync.Mutex
	vc     *gocv.VideoCapture
	mat    gocv.Mat
	closed bool
}

func (s *cvStream) Read() (*capture.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, media.ErrStreamClosed
	}
	if ok := s.vc.Read(&s.mat); !ok {
		return nil, errors.New("camera read failed")
	}
	if s.mat.Empty() {
		return nil, nil
	}

	img, err := s.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}
	return capture.NewFrame(toRGBA(img), time.Now()), nil
}

func (s *cvStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.mat.Close()
	return s.vc.Close()
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(b)
	draw.Draw(rgba, b, img, b.Min, draw.Src)
	return rgba
}
