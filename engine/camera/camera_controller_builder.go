package camera

import "github.com/Carmen-Shannon/oxy-2d/engine/window"

// CameraControllerOption is a functional option for configuring a CameraController.
type CameraControllerOption func(*cameraControllerImpl)

// WithPanButton sets the mouse button that drags the view.
//
// Parameters:
//   - button: the pan button
//
// Returns:
//   - CameraControllerOption: functional option to set the pan button
func WithPanButton(button window.MouseButton) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.panButton = button
	}
}

// WithZoomSpeed sets the zoom exponent per scroll unit. Non-positive values are ignored.
//
// Parameters:
//   - speed: the zoom speed
//
// Returns:
//   - CameraControllerOption: functional option to set the zoom speed
func WithZoomSpeed(speed float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		if speed > 0 {
			cc.zoomSpeed = speed
		}
	}
}
