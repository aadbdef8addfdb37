package window

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// MouseButton identifies a mouse button in MouseButtonCallback events.
type MouseButton int

const (
	MouseButtonLeft MouseButton = iota
	MouseButtonRight
	MouseButtonMiddle
)

// Window provides platform windowing and input event handling for the renderer's presentation surface.
// Wraps platform-specific window implementations with a common interface. A Window must be created and
// polled on the thread that owns the platform event loop.
type Window interface {
	// SetResizeCallback sets the function called when the drawable size changes.
	//
	// Parameters:
	//   - callback: function receiving new width and height in pixels
	SetResizeCallback(callback func(width, height int))

	// SetKeyCallback sets the callback for key events.
	//
	// Parameters:
	//   - callback: function receiving the platform key code and whether the key went down (press or repeat)
	SetKeyCallback(callback func(keyCode uint32, down bool))

	// SetScrollCallback sets the callback for mouse scroll wheel events.
	//
	// Parameters:
	//   - callback: function receiving scroll delta (positive = up, negative = down)
	SetScrollCallback(callback func(delta float32))

	// SetMouseButtonCallback sets the callback for mouse button events.
	//
	// Parameters:
	//   - callback: function receiving the button, whether it went down and the cursor position in pixels
	SetMouseButtonCallback(callback func(button MouseButton, down bool, x, y float32))

	// SetMouseMoveCallback sets the callback for mouse movement.
	//
	// Parameters:
	//   - callback: function receiving the cursor position in pixels
	SetMouseMoveCallback(callback func(x, y float32))

	// SurfaceDescriptor returns a wgpu.SurfaceDescriptor suitable for creating a WebGPU surface.
	// The descriptor is platform-appropriate (Windows HWND, X11 Xlib, Wayland, macOS Metal, etc.)
	// and is created by the wgpuglfw bridge from the underlying GLFW window.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the platform-specific surface descriptor, or nil if window is not initialized
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// IsRunning returns true if the window is still active.
	//
	// Returns:
	//   - bool: true if window is running, false if closed
	IsRunning() bool

	// PollEvents processes pending platform events without blocking and dispatches the registered
	// callbacks.
	//
	// Returns:
	//   - bool: false once the window was asked to close
	PollEvents() bool

	// Close closes the window and releases platform resources.
	//
	// Returns:
	//   - error: error if close operation fails
	Close() error

	// Width returns the current drawable width in pixels.
	//
	// Returns:
	//   - int: width in pixels
	Width() int

	// Height returns the current drawable height in pixels.
	//
	// Returns:
	//   - int: height in pixels
	Height() int
}

// engineWindow is the implementation of the Window interface.
// Holds window configuration, GLFW state, and event callbacks.
type engineWindow struct {
	// title is the window title displayed in the title bar.
	title string

	// maxWidth and maxHeight bound the window size during resize. Zero leaves the size unbounded.
	maxWidth  int
	maxHeight int

	// minWidth and minHeight bound the window size during resize.
	minWidth  int
	minHeight int

	// width is the current drawable width in pixels.
	width int

	// height is the current drawable height in pixels.
	height int

	resizable     bool
	closeOnEscape bool

	// internalWindow holds the platform-specific window data (glfwWindow).
	internalWindow any

	onResize      func(width, height int)
	onKey         func(keyCode uint32, down bool)
	onScroll      func(delta float32)
	onMouseButton func(button MouseButton, down bool, x, y float32)
	onMouseMove   func(x, y float32)
}

var _ Window = &engineWindow{}

// newEngineWindow applies the defaults and options without creating the platform window.
func newEngineWindow(options ...WindowBuilderOption) *engineWindow {
	w := &engineWindow{
		title:         "oxy-2d",
		minWidth:      320,
		minHeight:     200,
		width:         1280,
		height:        720,
		resizable:     true,
		closeOnEscape: true,
	}
	for _, opt := range options {
		opt(w)
	}
	w.width = clampDimension(w.width, w.minWidth, w.maxWidth)
	w.height = clampDimension(w.height, w.minHeight, w.maxHeight)
	return w
}

// NewWindow creates and shows a new Window with the specified options.
// Applies default values first, then each option in order. Panics if the platform window cannot be created.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the open window
func NewWindow(options ...WindowBuilderOption) Window {
	w := newEngineWindow(options...)
	if err := newPlatformWindow(w); err != nil {
		panic(fmt.Sprintf("failed to create platform window: %v", err))
	}
	return w
}

// clampDimension keeps v within [lo, hi]; a non-positive hi means no upper bound.
func clampDimension(v, lo, hi int) int {
	if v < lo {
		v = lo
	}
	if hi > 0 && v > hi {
		v = hi
	}
	return v
}

func (w *engineWindow) SetResizeCallback(callback func(width, height int)) {
	w.onResize = callback
}

func (w *engineWindow) SetKeyCallback(callback func(keyCode uint32, down bool)) {
	w.onKey = callback
}

func (w *engineWindow) SetScrollCallback(callback func(delta float32)) {
	w.onScroll = callback
}

func (w *engineWindow) SetMouseButtonCallback(callback func(button MouseButton, down bool, x, y float32)) {
	w.onMouseButton = callback
}

func (w *engineWindow) SetMouseMoveCallback(callback func(x, y float32)) {
	w.onMouseMove = callback
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return platformGetSurfaceDescriptor(w)
}

func (w *engineWindow) IsRunning() bool {
	return platformIsRunningCheck(w)
}

func (w *engineWindow) PollEvents() bool {
	return platformProcessMessages(w)
}

func (w *engineWindow) Close() error {
	return platformCloseWindow(w)
}

func (w *engineWindow) Width() int {
	return w.width
}

func (w *engineWindow) Height() int {
	return w.height
}

// resized records a new drawable size and notifies the resize callback.
func (w *engineWindow) resized(width, height int) {
	if width == w.width && height == w.height {
		return
	}
	w.width = width
	w.height = height
	if w.onResize != nil {
		w.onResize(width, height)
	}
}
