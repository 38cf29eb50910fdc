//go:build !darwin

package permissions

// CameraStatus always reports authorized: access control is left to the
// device node permissions on this platform.
func CameraStatus() Status {
	return StatusAuthorized
}

// RequestCamera is a no-op that reports access as granted.
func RequestCamera() bool {
	return true
}
