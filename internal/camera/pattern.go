package camera

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/junsooki/FocusLink/internal/capture"
	"github.com/junsooki/FocusLink/internal/media"
)

// Pattern generates a moving gradient at the requested size and frame rate.
// With Black set it emits all-zero frames, like a covered lens.
type Pattern struct {
	Black bool
}

// Open implements media.Device.
func (p *Pattern) Open(ctx context.Context, c media.Constraints) (media.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.Width <= 0 {
		c.Width = media.DefaultConstraints.Width
	}
	if c.Height <= 0 {
		c.Height = media.DefaultConstraints.Height
	}
	if c.FrameRate <= 0 {
		c.FrameRate = media.DefaultConstraints.FrameRate
	}
	return &patternStream{
		black:    p.Black,
		c:        c,
		interval: time.Second / time.Duration(c.FrameRate),
		closed:   make(chan struct{}),
	}, nil
}

type patternStream struct {
	black    bool
	c        media.Constraints
	interval time.Duration
	n        int

	once   sync.Once
	closed chan struct{}
}

func (s *patternStream) Read() (*capture.Frame, error) {
	select {
	case <-s.closed:
		return nil, media.ErrStreamClosed
	case <-time.After(s.interval):
	}

	img := image.NewRGBA(image.Rect(0, 0, s.c.Width, s.c.Height))
	if !s.black {
		s.n++
		fill(img, s.n)
	}
	return capture.NewFrame(img, time.Now()), nil
}

func (s *patternStream) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

func fill(img *image.RGBA, shift int) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			i := img.PixOffset(x, y)
			img.Pix[i] = uint8(x + shift)
			img.Pix[i+1] = uint8(y + shift)
			img.Pix[i+2] = uint8(x ^ y)
			img.Pix[i+3] = 0xff
		}
	}
}
