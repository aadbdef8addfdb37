package camera

import (
	"sync"

	"github.com/chewxy/math32"

	"github.com/Carmen-Shannon/oxy-2d/engine/window"
)

// CameraController drives a Camera from pointer input: dragging with the pan button moves the view and
// scrolling zooms around the cursor.
type CameraController interface {
	// Camera returns the controlled camera.
	Camera() Camera

	// Attach installs the controller as the window's mouse button, mouse move and scroll callbacks.
	// Callbacks previously registered for those events are replaced.
	//
	// Parameters:
	//   - w: the window to read input from
	Attach(w window.Window)

	// HandleMouseButton starts or ends a drag.
	//
	// Parameters:
	//   - button: the button that changed
	//   - down: true on press
	//   - x, y: the cursor position in pixels
	HandleMouseButton(button window.MouseButton, down bool, x, y float32)

	// HandleMouseMove pans the camera while a drag is active.
	//
	// Parameters:
	//   - x, y: the cursor position in pixels
	HandleMouseMove(x, y float32)

	// HandleScroll zooms around the last cursor position.
	//
	// Parameters:
	//   - delta: scroll amount (positive = zoom in)
	HandleScroll(delta float32)

	// Dragging reports whether a pan drag is active.
	Dragging() bool

	// ZoomSpeed returns the zoom speed multiplier.
	//
	// Returns:
	//   - float32: the exponent applied per scroll unit
	ZoomSpeed() float32
}

type cameraControllerImpl struct {
	mu *sync.Mutex

	camera    Camera
	panButton window.MouseButton
	zoomSpeed float32

	dragging bool
	cursor   [2]float32
}

// Compile-time interface compliance check
var _ CameraController = &cameraControllerImpl{}

// NewCameraController creates a controller for cam. Panning uses the left button and each scroll unit
// zooms by a factor of e^0.1 unless configured otherwise.
//
// Parameters:
//   - cam: the camera to drive
//   - options: functional options to configure the controller
//
// Returns:
//   - CameraController: the newly created controller
func NewCameraController(cam Camera, options ...CameraControllerOption) CameraController {
	cc := &cameraControllerImpl{
		mu:        &sync.Mutex{},
		camera:    cam,
		panButton: window.MouseButtonLeft,
		zoomSpeed: 0.1,
	}
	for _, option := range options {
		option(cc)
	}
	return cc
}

func (cc *cameraControllerImpl) Camera() Camera {
	return cc.camera
}

func (cc *cameraControllerImpl) Attach(w window.Window) {
	w.SetMouseButtonCallback(cc.HandleMouseButton)
	w.SetMouseMoveCallback(cc.HandleMouseMove)
	w.SetScrollCallback(cc.HandleScroll)
}

func (cc *cameraControllerImpl) HandleMouseButton(button window.MouseButton, down bool, x, y float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.cursor = [2]float32{x, y}
	if button == cc.panButton {
		cc.dragging = down
	}
}

func (cc *cameraControllerImpl) HandleMouseMove(x, y float32) {
	cc.mu.Lock()
	dx, dy := x-cc.cursor[0], y-cc.cursor[1]
	cc.cursor = [2]float32{x, y}
	dragging := cc.dragging
	cc.mu.Unlock()

	if dragging {
		cc.camera.Pan(dx, dy)
	}
}

func (cc *cameraControllerImpl) HandleScroll(delta float32) {
	cc.mu.Lock()
	x, y := cc.cursor[0], cc.cursor[1]
	speed := cc.zoomSpeed
	cc.mu.Unlock()

	cc.camera.ZoomAt(math32.Exp(delta*speed), x, y)
}

func (cc *cameraControllerImpl) Dragging() bool {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.dragging
}

func (cc *cameraControllerImpl) ZoomSpeed() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.zoomSpeed
}
