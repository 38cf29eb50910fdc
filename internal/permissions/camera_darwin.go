package permissions

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework AVFoundation -framework Foundation
#import <AVFoundation/AVFoundation.h>

// AVAuthorizationStatus: 0 not determined, 1 restricted, 2 denied, 3 authorized.
int cameraAuthorizationStatus() {
    return (int)[AVCaptureDevice authorizationStatusForMediaType:AVMediaTypeVideo];
}

void requestCameraAccess() {
    [AVCaptureDevice requestAccessForMediaType:AVMediaTypeVideo completionHandler:^(BOOL granted) {}];
}
*/
import "C"

// CameraStatus returns the current camera authorization status.
func CameraStatus() Status {
	return Status(C.cameraAuthorizationStatus())
}

// RequestCamera prompts the user for camera access. Returns true if access
// was already granted. Otherwise macOS shows the permission dialog.
func RequestCamera() bool {
	if CameraStatus() == StatusAuthorized {
		return true
	}
	C.requestCameraAccess()
	return false
}
