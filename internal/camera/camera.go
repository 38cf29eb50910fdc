package camera

import (
	"errors"
	"strconv"
	"strings"
)

// ErrPermissionDenied is returned when the OS refuses camera access.
var ErrPermissionDenied = errors.New("camera permission denied")

// Kind classifies a device spec string.
type Kind int

const (
	KindOpenCV Kind = iota
	KindPattern
	KindBlack
)

// ParseSpec resolves a device spec: "pattern" and "black" select the
// synthetic generator, an integer selects an OpenCV device index, anything
// else is an OpenCV file or stream URL. The returned source is an int or a
// string suitable for gocv.OpenVideoCapture.
func ParseSpec(spec string) (Kind, any) {
	switch strings.ToLower(strings.TrimSpace(spec)) {
	case "pattern":
		return KindPattern, nil
	case "black":
		return KindBlack, nil
	}
	if id, err := strconv.Atoi(strings.TrimSpace(spec)); err == nil {
		return KindOpenCV, id
	}
	return KindOpenCV, spec
}
