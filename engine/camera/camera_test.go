package camera

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"

	"github.com/Carmen-Shannon/oxy-2d/common"
	"github.com/Carmen-Shannon/oxy-2d/engine/window"
)

const eps = 1e-3

func assertPoint(t *testing.T, wantX, wantY, x, y float32) {
	t.Helper()
	assert.InDelta(t, wantX, x, eps)
	assert.InDelta(t, wantY, y, eps)
}

func TestCameraCentersPosition(t *testing.T) {
	c := NewCamera()
	x, y := c.WorldToScreen(0, 0)
	assertPoint(t, 400, 300, x, y)

	c.SetPosition(100, 50)
	x, y = c.WorldToScreen(100, 50)
	assertPoint(t, 400, 300, x, y)
	x, y = c.ScreenToWorld(400, 300)
	assertPoint(t, 100, 50, x, y)
}

func TestCameraZoomAndRotation(t *testing.T) {
	c := NewCamera(WithZoom(2))
	x, y := c.WorldToScreen(10, 0)
	assertPoint(t, 420, 300, x, y)

	c.SetZoom(1)
	c.SetRotation(math32.Pi / 2)
	x, y = c.WorldToScreen(10, 0)
	assertPoint(t, 400, 310, x, y)

	c.SetPosition(-30, 12)
	c.SetZoom(3)
	sx, sy := c.WorldToScreen(7, -4)
	x, y = c.ScreenToWorld(sx, sy)
	assertPoint(t, 7, -4, x, y)
}

func TestCameraZoomClamp(t *testing.T) {
	c := NewCamera(WithZoomBounds(0.5, 4), WithZoom(10))
	assert.Equal(t, float32(4), c.Zoom())

	c.SetZoom(0)
	assert.Equal(t, float32(0.5), c.Zoom())

	c.ZoomAt(-1, 0, 0)
	assert.Equal(t, float32(0.5), c.Zoom())

	d := NewCamera(WithZoomBounds(3, 1))
	assert.Equal(t, float32(0.05), d.MinZoom())
	assert.Equal(t, float32(50), d.MaxZoom())
}

func TestCameraZoomAtKeepsAnchor(t *testing.T) {
	c := NewCamera()
	c.ZoomAt(2, 600, 300)
	assert.Equal(t, float32(2), c.Zoom())
	x, y := c.ScreenToWorld(600, 300)
	assertPoint(t, 200, 0, x, y)
	px, py := c.Position()
	assertPoint(t, 100, 0, px, py)
}

func TestCameraPan(t *testing.T) {
	c := NewCamera(WithZoom(2))
	c.Pan(10, 0)
	x, y := c.Position()
	assertPoint(t, -5, 0, x, y)

	r := NewCamera(WithRotation(math32.Pi / 2))
	r.Pan(10, 0)
	x, y = r.WorldToScreen(0, 0)
	assertPoint(t, 410, 300, x, y)
}

func TestCameraBoundsAndViewport(t *testing.T) {
	c := NewCamera(WithZoom(2))
	b := c.Bounds()
	assert.InDelta(t, -200, b.X, eps)
	assert.InDelta(t, -150, b.Y, eps)
	assert.InDelta(t, 400, b.W, eps)
	assert.InDelta(t, 300, b.H, eps)

	c.SetViewport(common.Size{})
	assert.Equal(t, common.Size{W: 800, H: 600}, c.Viewport())
	c.SetViewport(common.Size{W: 200, H: 100})
	x, y := c.WorldToScreen(0, 0)
	assertPoint(t, 100, 50, x, y)
}

type inputWindow struct {
	window.Window
	button func(window.MouseButton, bool, float32, float32)
	move   func(float32, float32)
	scroll func(float32)
}

func (w *inputWindow) SetMouseButtonCallback(cb func(window.MouseButton, bool, float32, float32)) {
	w.button = cb
}

func (w *inputWindow) SetMouseMoveCallback(cb func(float32, float32)) { w.move = cb }

func (w *inputWindow) SetScrollCallback(cb func(float32)) { w.scroll = cb }

func (w *inputWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor { return nil }

func TestControllerDragAndScroll(t *testing.T) {
	cam := NewCamera()
	cc := NewCameraController(cam, WithZoomSpeed(0.5))
	w := &inputWindow{}
	cc.Attach(w)

	w.button(window.MouseButtonRight, true, 100, 100)
	w.move(120, 100)
	assert.False(t, cc.Dragging())
	x, y := cam.Position()
	assertPoint(t, 0, 0, x, y)

	w.button(window.MouseButtonLeft, true, 100, 100)
	w.move(110, 120)
	assert.True(t, cc.Dragging())
	x, y = cam.Position()
	assertPoint(t, -10, -20, x, y)

	w.button(window.MouseButtonLeft, false, 110, 120)
	w.move(200, 200)
	x, y = cam.Position()
	assertPoint(t, -10, -20, x, y)

	bx, by := cam.ScreenToWorld(200, 200)
	w.scroll(1)
	assert.InDelta(t, math32.Exp(0.5), cam.Zoom(), eps)
	ax, ay := cam.ScreenToWorld(200, 200)
	assertPoint(t, bx, by, ax, ay)

	w.scroll(-1)
	assert.InDelta(t, 1, cam.Zoom(), eps)
	assert.Equal(t, float32(0.5), cc.ZoomSpeed())
	assert.Same(t, cam, cc.Camera())
}
