package encoder

import "image"

// Encoder turns a captured frame into an outbound payload.
type Encoder interface {
	Encode(img *image.RGBA) ([]byte, error)
}
