package capture

import (
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func solid(w, h int, c color.RGBA) *Frame {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return NewFrame(img, time.Now())
}

func TestIsValidRejectsAllZero(t *testing.T) {
	for _, size := range [][2]int{{100, 100}, {640, 480}, {1920, 1080}, {10, 10}} {
		f := NewFrame(image.NewRGBA(image.Rect(0, 0, size[0], size[1])), time.Now())
		assert.False(t, IsValid(f, 100, 100), "%dx%d black frame", size[0], size[1])
	}
}

func TestIsValidRejectsSmallDimensions(t *testing.T) {
	gray := color.RGBA{R: 128, G: 128, B: 128, A: 255}
	assert.False(t, IsValid(solid(99, 480, gray), 100, 100))
	assert.False(t, IsValid(solid(640, 99, gray), 100, 100))
	assert.False(t, IsValid(solid(50, 50, gray), 100, 100))
	assert.True(t, IsValid(solid(100, 100, gray), 100, 100))
}

func TestIsValidAnyChannelCounts(t *testing.T) {
	for _, c := range []color.RGBA{
		{R: 1}, {G: 1}, {B: 1}, {A: 1},
	} {
		f := NewFrame(image.NewRGBA(image.Rect(0, 0, 200, 200)), time.Now())
		f.Image.SetRGBA(199, 199, c)
		assert.True(t, IsValid(f, 100, 100), "single sample %v", c)
	}
}

func TestIsValidNil(t *testing.T) {
	assert.False(t, IsValid(nil, 100, 100))
	assert.False(t, IsValid(&Frame{Width: 200, Height: 200}, 100, 100))
}

func TestIsValidSubImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 400, 400))
	img.SetRGBA(10, 10, color.RGBA{R: 255, A: 255})

	sub := img.SubImage(image.Rect(200, 200, 400, 400)).(*image.RGBA)
	assert.False(t, IsValid(NewFrame(sub, time.Now()), 100, 100), "content outside the sub-rect is ignored")

	sub = img.SubImage(image.Rect(0, 0, 200, 200)).(*image.RGBA)
	assert.True(t, IsValid(NewFrame(sub, time.Now()), 100, 100))
}

func TestValidatorUsesFloor(t *testing.T) {
	v := Validator{MinWidth: 320, MinHeight: 240}
	gray := color.RGBA{R: 9, A: 255}
	assert.False(t, v.Valid(solid(200, 200, gray)))
	assert.True(t, v.Valid(solid(320, 240, gray)))
	assert.True(t, DefaultValidator.Valid(solid(100, 100, gray)))
}
