package encoder

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: uint8(x ^ y), A: 255})
		}
	}
	return img
}

func TestQualityClamp(t *testing.T) {
	assert.Equal(t, 1, NewJPEGEncoder(-5, 0, 0).Quality())
	assert.Equal(t, 100, NewJPEGEncoder(500, 0, 0).Quality())
	assert.Equal(t, 30, NewJPEGEncoder(30, 0, 0).Quality())
}

func TestEncodeProducesJPEG(t *testing.T) {
	data, err := NewJPEGEncoder(80, 0, 0).Encode(gradient(200, 150))
	require.NoError(t, err)

	img, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())
	assert.Equal(t, 150, img.Bounds().Dy())
}

func TestEncodeDownscales(t *testing.T) {
	data, err := NewJPEGEncoder(80, 640, 480).Encode(gradient(1280, 720))
	require.NoError(t, err)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 640, cfg.Width)
	assert.Equal(t, 360, cfg.Height)
}

func TestEncodeEmpty(t *testing.T) {
	_, err := NewJPEGEncoder(80, 0, 0).Encode(nil)
	assert.ErrorIs(t, err, ErrEmptyImage)

	_, err = NewJPEGEncoder(80, 0, 0).Encode(image.NewRGBA(image.Rect(0, 0, 0, 0)))
	assert.ErrorIs(t, err, ErrEmptyImage)
}

func TestFitWithin(t *testing.T) {
	tests := []struct {
		w, h, maxW, maxH int
		wantW, wantH     int
	}{
		{640, 480, 640, 480, 640, 480},
		{320, 240, 640, 480, 320, 240},
		{1920, 1080, 640, 480, 640, 360},
		{480, 1920, 640, 480, 120, 480},
		{1000, 1000, 0, 0, 1000, 1000},
		{1000, 10, 100, 0, 100, 1},
	}
	for _, tt := range tests {
		w, h := fitWithin(tt.w, tt.h, tt.maxW, tt.maxH)
		assert.Equal(t, tt.wantW, w, "%dx%d in %dx%d", tt.w, tt.h, tt.maxW, tt.maxH)
		assert.Equal(t, tt.wantH, h, "%dx%d in %dx%d", tt.w, tt.h, tt.maxW, tt.maxH)
	}
}

func TestDataURL(t *testing.T) {
	out, err := NewDataURL(NewJPEGEncoder(80, 0, 0)).Encode(gradient(120, 120))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), JPEGDataURLPrefix))
	assert.Greater(t, len(out), 1000)
}

type failingEncoder struct{}

func (failingEncoder) Encode(*image.RGBA) ([]byte, error) { return nil, ErrEmptyImage }

func TestDataURLPropagatesEncodeError(t *testing.T) {
	var enc Encoder = NewDataURL(failingEncoder{})
	_, err := enc.Encode(gradient(10, 10))
	assert.ErrorIs(t, err, ErrEmptyImage)
}
