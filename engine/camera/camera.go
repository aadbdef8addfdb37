package camera

import (
	"sync"

	"github.com/chewxy/math32"
	"golang.org/x/image/math/f32"

	"github.com/Carmen-Shannon/oxy-2d/common"
)

type cameraImpl struct {
	mu *sync.Mutex

	position [2]float32
	zoom     float32
	rotation float32
	viewport common.Size

	minZoom float32
	maxZoom float32

	view    f32.Mat3
	inverse f32.Mat3
}

// Camera defines the interface for a 2D camera.
// The camera centers its position in the viewport and maps world coordinates to pixels through its
// zoom and rotation. The view matrix is meant for Renderer.SetTransform. Safe for concurrent use.
type Camera interface {
	// Position returns the world point shown at the viewport center.
	//
	// Returns:
	//   - x, y: world coordinates
	Position() (x, y float32)

	// SetPosition moves the camera so that (x, y) is shown at the viewport center.
	//
	// Parameters:
	//   - x, y: world coordinates
	SetPosition(x, y float32)

	// Zoom returns the current zoom factor. 1 maps one world unit to one pixel.
	//
	// Returns:
	//   - float32: the zoom factor
	Zoom() float32

	// SetZoom sets the zoom factor, clamped to the zoom bounds.
	//
	// Parameters:
	//   - zoom: the zoom factor
	SetZoom(zoom float32)

	// ZoomAt multiplies the zoom by factor while keeping the world point under the screen point (sx, sy)
	// fixed.
	//
	// Parameters:
	//   - factor: the zoom multiplier, ignored when not positive
	//   - sx, sy: the anchor in viewport pixels
	ZoomAt(factor, sx, sy float32)

	// MinZoom returns the smallest allowed zoom factor.
	MinZoom() float32

	// MaxZoom returns the largest allowed zoom factor.
	MaxZoom() float32

	// Rotation returns the camera rotation in radians.
	Rotation() float32

	// SetRotation sets the camera rotation in radians.
	//
	// Parameters:
	//   - angle: the rotation in radians
	SetRotation(angle float32)

	// Viewport returns the viewport size the view is centered in.
	//
	// Returns:
	//   - common.Size: the viewport size in pixels
	Viewport() common.Size

	// SetViewport sets the viewport size, usually from the window resize callback.
	//
	// Parameters:
	//   - size: the viewport size in pixels
	SetViewport(size common.Size)

	// Pan moves the camera so the view follows a drag of (dx, dy) screen pixels.
	//
	// Parameters:
	//   - dx, dy: the drag distance in pixels
	Pan(dx, dy float32)

	// View returns the world to viewport matrix.
	//
	// Returns:
	//   - f32.Mat3: the view matrix
	View() f32.Mat3

	// ScreenToWorld maps a viewport pixel to world coordinates.
	//
	// Parameters:
	//   - sx, sy: viewport coordinates in pixels
	//
	// Returns:
	//   - x, y: world coordinates
	ScreenToWorld(sx, sy float32) (x, y float32)

	// WorldToScreen maps a world point to viewport pixels.
	//
	// Parameters:
	//   - x, y: world coordinates
	//
	// Returns:
	//   - sx, sy: viewport coordinates in pixels
	WorldToScreen(x, y float32) (sx, sy float32)

	// Bounds returns the axis-aligned world rectangle covering the viewport, for culling.
	//
	// Returns:
	//   - common.Rect: the visible world area
	Bounds() common.Rect
}

var _ Camera = &cameraImpl{}

// NewCamera creates a new Camera at the world origin with a zoom of 1.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:       &sync.Mutex{},
		zoom:     1,
		minZoom:  0.05,
		maxZoom:  50,
		viewport: common.Size{W: 800, H: 600},
	}
	for _, option := range options {
		option(c)
	}
	c.zoom = c.clampZoom(c.zoom)
	c.updateMatrices()
	return c
}

// updateMatrices recomputes the view and its inverse. Caller must hold the mutex or own c exclusively.
func (c *cameraImpl) updateMatrices() {
	hw, hh := float32(c.viewport.W)/2, float32(c.viewport.H)/2
	c.view = common.Mul3(common.Mul3(common.Mul3(
		common.Translation3(-c.position[0], -c.position[1]),
		common.Scale3(c.zoom, c.zoom)),
		common.Rotation3(c.rotation)),
		common.Translation3(hw, hh))
	c.inverse = common.Mul3(common.Mul3(common.Mul3(
		common.Translation3(-hw, -hh),
		common.Rotation3(-c.rotation)),
		common.Scale3(1/c.zoom, 1/c.zoom)),
		common.Translation3(c.position[0], c.position[1]))
}

func (c *cameraImpl) clampZoom(z float32) float32 {
	return math32.Max(c.minZoom, math32.Min(c.maxZoom, z))
}

func (c *cameraImpl) Position() (x, y float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position[0], c.position[1]
}

func (c *cameraImpl) SetPosition(x, y float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.position = [2]float32{x, y}
	c.updateMatrices()
}

func (c *cameraImpl) Zoom() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.zoom
}

func (c *cameraImpl) SetZoom(zoom float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.zoom = c.clampZoom(zoom)
	c.updateMatrices()
}

func (c *cameraImpl) ZoomAt(factor, sx, sy float32) {
	if factor <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	bx, by := common.TransformPoint(c.inverse, sx, sy)
	c.zoom = c.clampZoom(c.zoom * factor)
	c.updateMatrices()
	ax, ay := common.TransformPoint(c.inverse, sx, sy)
	c.position[0] += bx - ax
	c.position[1] += by - ay
	c.updateMatrices()
}

func (c *cameraImpl) MinZoom() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.minZoom
}

func (c *cameraImpl) MaxZoom() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxZoom
}

func (c *cameraImpl) Rotation() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rotation
}

func (c *cameraImpl) SetRotation(angle float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rotation = angle
	c.updateMatrices()
}

func (c *cameraImpl) Viewport() common.Size {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewport
}

func (c *cameraImpl) SetViewport(size common.Size) {
	if !size.Valid() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.viewport = size
	c.updateMatrices()
}

func (c *cameraImpl) Pan(dx, dy float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// Screen deltas rotate back into world space; translation rows are ignored.
	wx, wy := common.TransformPoint(common.Rotation3(-c.rotation), dx/c.zoom, dy/c.zoom)
	c.position[0] -= wx
	c.position[1] -= wy
	c.updateMatrices()
}

func (c *cameraImpl) View() f32.Mat3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

func (c *cameraImpl) ScreenToWorld(sx, sy float32) (x, y float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return common.TransformPoint(c.inverse, sx, sy)
}

func (c *cameraImpl) WorldToScreen(x, y float32) (sx, sy float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return common.TransformPoint(c.view, x, y)
}

func (c *cameraImpl) Bounds() common.Rect {
	c.mu.Lock()
	defer c.mu.Unlock()
	w, h := float32(c.viewport.W), float32(c.viewport.H)
	minX, minY := math32.Inf(1), math32.Inf(1)
	maxX, maxY := math32.Inf(-1), math32.Inf(-1)
	for _, p := range [4][2]float32{{0, 0}, {w, 0}, {0, h}, {w, h}} {
		x, y := common.TransformPoint(c.inverse, p[0], p[1])
		minX, minY = math32.Min(minX, x), math32.Min(minY, y)
		maxX, maxY = math32.Max(maxX, x), math32.Max(maxY, y)
	}
	return common.Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}
