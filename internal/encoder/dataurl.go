package encoder

import (
	"encoding/base64"
	"image"
)

// JPEGDataURLPrefix starts every outbound frame payload.
const JPEGDataURLPrefix = "data:image/jpeg;base64,"

// DataURL wraps a JPEG encoder so that its output is a base64 data URL, the
// text form the scoring service expects for each frame.
type DataURL struct {
	jpeg Encoder
}

// NewDataURL wraps e, which must produce JPEG bytes.
func NewDataURL(e Encoder) *DataURL {
	return &DataURL{jpeg: e}
}

func (d *DataURL) Encode(img *image.RGBA) ([]byte, error) {
	raw, err := d.jpeg.Encode(img)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(JPEGDataURLPrefix)+base64.StdEncoding.EncodedLen(len(raw)))
	n := copy(out, JPEGDataURLPrefix)
	base64.StdEncoding.Encode(out[n:], raw)
	return out, nil
}
