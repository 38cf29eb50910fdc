package encoder

import (
	"bytes"
	"errors"
	"image"
	"image/jpeg"
	"math"

	"golang.org/x/image/draw"
)

// ErrEmptyImage is returned for nil or zero-sized input.
var ErrEmptyImage = errors.New("empty image")

var (
	_ Encoder = (*JPEGEncoder)(nil)
	_ Encoder = (*DataURL)(nil)
)

// JPEGEncoder encodes frames as JPEG, downscaling anything larger than the
// configured bounds first.
type JPEGEncoder struct {
	quality   int
	maxWidth  int
	maxHeight int
}

// NewJPEGEncoder creates a JPEG encoder. quality is clamped to 1-100.
// maxWidth and maxHeight bound the encoded size; zero disables scaling.
func NewJPEGEncoder(quality, maxWidth, maxHeight int) *JPEGEncoder {
	return &JPEGEncoder{
		quality:   min(max(quality, 1), 100),
		maxWidth:  maxWidth,
		maxHeight: maxHeight,
	}
}

// Quality returns the clamped JPEG quality.
func (e *JPEGEncoder) Quality() int {
	return e.quality
}

func (e *JPEGEncoder) Encode(img *image.RGBA) ([]byte, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrEmptyImage
	}
	src := e.scale(img)

	var buf bytes.Buffer
	buf.Grow(64 * 1024)
	err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: e.Quality()})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e *JPEGEncoder) scale(img *image.RGBA) image.Image {
	b := img.Bounds()
	w, h := fitWithin(b.Dx(), b.Dy(), e.maxWidth, e.maxHeight)
	if w == b.Dx() && h == b.Dy() {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// fitWithin returns w x h shrunk to fit maxW x maxH with the aspect ratio
// kept. Zero bounds are ignored. Images are never enlarged.
func fitWithin(w, h, maxW, maxH int) (int, int) {
	scale := 1.0
	if maxW > 0 && w > maxW {
		scale = float64(maxW) / float64(w)
	}
	if maxH > 0 && h > maxH {
		if s := float64(maxH) / float64(h); s < scale {
			scale = s
		}
	}
	if scale >= 1 {
		return w, h
	}
	nw, nh := int(math.Round(float64(w)*scale)), int(math.Round(float64(h)*scale))
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	return nw, nh
}
