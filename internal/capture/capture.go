package capture

import (
	"image"
	"time"
)

// Frame represents one sampled camera image. Frames are ephemeral: they are
// produced by the media sink and consumed immediately by the pipeline.
type Frame struct {
	Image     *image.RGBA
	Width     int
	Height    int
	Timestamp time.Time
}

// NewFrame wraps img, taking the dimensions from its bounds.
func NewFrame(img *image.RGBA, ts time.Time) *Frame {
	b := img.Bounds()
	return &Frame{
		Image:     img,
		Width:     b.Dx(),
		Height:    b.Dy(),
		Timestamp: ts,
	}
}
