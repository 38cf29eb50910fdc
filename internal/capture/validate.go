package capture

// Minimum dimensions a frame must reach to be forwarded.
const (
	DefaultMinWidth  = 100
	DefaultMinHeight = 100
)

// Validator rejects frames from a camera that is not yet initialised or is
// blacked out.
type Validator struct {
	MinWidth  int
	MinHeight int
}

// DefaultValidator uses the 100x100 floor.
var DefaultValidator = Validator{MinWidth: DefaultMinWidth, MinHeight: DefaultMinHeight}

// Valid reports whether f passes the gate.
func (v Validator) Valid(f *Frame) bool {
	return IsValid(f, v.MinWidth, v.MinHeight)
}

// IsValid reports whether f is at least minWidth x minHeight and has at least
// one nonzero R, G, B or A sample.
func IsValid(f *Frame, minWidth, minHeight int) bool {
	if f == nil || f.Image == nil {
		return false
	}
	if f.Width < minWidth || f.Height < minHeight {
		return false
	}
	return hasContent(f)
}

func hasContent(f *Frame) bool {
	img := f.Image
	b := img.Bounds()
	if b.Dx() < f.Width || b.Dy() < f.Height {
		return false
	}
	for y := 0; y < f.Height; y++ {
		off := img.PixOffset(b.Min.X, b.Min.Y+y)
		row := img.Pix[off : off+f.Width*4]
		for i := 0; i < len(row); i += 4 {
			if row[i] != 0 || row[i+1] != 0 || row[i+2] != 0 || row[i+3] != 0 {
				return true
			}
		}
	}
	return false
}
