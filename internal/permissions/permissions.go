package permissions

// Status mirrors the platform authorization states.
type Status int

const (
	StatusNotDetermined Status = 0
	StatusRestricted    Status = 1
	StatusDenied        Status = 2
	StatusAuthorized    Status = 3
)

func (s Status) String() string {
	switch s {
	case StatusNotDetermined:
		return "not-determined"
	case StatusRestricted:
		return "restricted"
	case StatusDenied:
		return "denied"
	case StatusAuthorized:
		return "authorized"
	}
	return "unknown"
}

// EnsureCamera asks for camera access if the user has not decided yet and
// reports whether the device may be opened. An undetermined status counts as
// allowed since the prompt is still pending.
func EnsureCamera() bool {
	return ensure(CameraStatus(), RequestCamera)
}

func ensure(s Status, request func() bool) bool {
	switch s {
	case StatusAuthorized:
		return true
	case StatusNotDetermined:
		request()
		return true
	}
	return false
}
