package camera

import "github.com/Carmen-Shannon/oxy-2d/common"

// CameraBuilderOption is a functional option for configuring a Camera.
type CameraBuilderOption func(*cameraImpl)

// WithPosition sets the world point shown at the viewport center.
//
// Parameters:
//   - x, y: world coordinates
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera position
func WithPosition(x, y float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.position = [2]float32{x, y}
	}
}

// WithZoom sets the initial zoom factor.
//
// Parameters:
//   - zoom: the zoom factor, clamped to the zoom bounds
//
// Returns:
//   - CameraBuilderOption: a function that sets the zoom
func WithZoom(zoom float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.zoom = zoom
	}
}

// WithZoomBounds sets the allowed zoom range. Invalid ranges are ignored.
//
// Parameters:
//   - min: smallest zoom factor, greater than zero
//   - max: largest zoom factor, at least min
//
// Returns:
//   - CameraBuilderOption: a function that sets the zoom bounds
func WithZoomBounds(min, max float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		if min > 0 && max >= min {
			c.minZoom, c.maxZoom = min, max
		}
	}
}

// WithRotation sets the initial rotation in radians.
func WithRotation(angle float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.rotation = angle
	}
}

// WithViewport sets the viewport size the view is centered in. Defaults to 800x600.
//
// Parameters:
//   - size: the viewport size in pixels
//
// Returns:
//   - CameraBuilderOption: a function that sets the viewport
func WithViewport(size common.Size) CameraBuilderOption {
	return func(c *cameraImpl) {
		if size.Valid() {
			c.viewport = size
		}
	}
}
