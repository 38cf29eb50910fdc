package decoder

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/draw"
	"image/jpeg"
	"strings"
)

// ErrNotDataURL is returned when a payload lacks the data URL header.
var ErrNotDataURL = errors.New("payload is not a base64 data URL")

// JPEGDecoder decodes JPEG bytes into *image.RGBA.
type JPEGDecoder struct{}

func NewJPEGDecoder() *JPEGDecoder {
	return &JPEGDecoder{}
}

func (d *JPEGDecoder) Decode(data []byte) (*image.RGBA, error) {
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	// Convert to RGBA if needed.
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba, nil
	}
	b := img.Bounds()
	rgba := image.NewRGBA(b)
	draw.Draw(rgba, b, img, b.Min, draw.Src)
	return rgba, nil
}

// DataURLDecoder decodes "data:image/jpeg;base64,..." frame payloads.
type DataURLDecoder struct {
	jpeg JPEGDecoder
}

func NewDataURLDecoder() *DataURLDecoder {
	return &DataURLDecoder{}
}

func (d *DataURLDecoder) Decode(data []byte) (*image.RGBA, error) {
	s := string(data)
	if !strings.HasPrefix(s, "data:") {
		return nil, ErrNotDataURL
	}
	comma := strings.IndexByte(s, ',')
	if comma < 0 || !strings.HasSuffix(s[:comma], ";base64") {
		return nil, ErrNotDataURL
	}
	raw, err := base64.StdEncoding.DecodeString(s[comma+1:])
	if err != nil {
		return nil, err
	}
	return d.jpeg.Decode(raw)
}
