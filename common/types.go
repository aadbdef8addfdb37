// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"image/color"

	"github.com/chewxy/math32"
)

// Point is a 2D position in pixels.
type Point struct {
	X, Y float32
}

// Size is an integer extent in pixels, used for targets, viewports and textures.
type Size struct {
	W, H int
}

// Valid reports whether both dimensions are strictly positive.
func (s Size) Valid() bool {
	return s.W > 0 && s.H > 0
}

// Rect is an axis-aligned rectangle in pixels. A Rect with a non-positive width or height is empty.
type Rect struct {
	X, Y, W, H float32
}

// RectFromSize returns the rect anchored at the origin covering s.
func RectFromSize(s Size) Rect {
	return Rect{W: float32(s.W), H: float32(s.H)}
}

// Left returns the minimum X of the rect.
func (r Rect) Left() float32 { return r.X }

// Top returns the minimum Y of the rect.
func (r Rect) Top() float32 { return r.Y }

// Right returns the maximum X of the rect.
func (r Rect) Right() float32 { return r.X + r.W }

// Bottom returns the maximum Y of the rect.
func (r Rect) Bottom() float32 { return r.Y + r.H }

// Empty reports whether the rect covers no area.
func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// Intersect returns the overlapping area of r and o, or the zero Rect when they do not overlap.
//
// Parameters:
//   - o: the rect to intersect with
//
// Returns:
//   - Rect: the intersection of both rects
func (r Rect) Intersect(o Rect) Rect {
	left := math32.Max(r.Left(), o.Left())
	top := math32.Max(r.Top(), o.Top())
	right := math32.Min(r.Right(), o.Right())
	bottom := math32.Min(r.Bottom(), o.Bottom())
	if right <= left || bottom <= top {
		return Rect{}
	}
	return Rect{X: left, Y: top, W: right - left, H: bottom - top}
}

// Snapped rounds the rect outwards to whole pixels and clamps negative origins to zero,
// yielding the integer rectangle used for scissor and viewport commands.
//
// Returns:
//   - x, y, w, h: the pixel aligned rectangle
func (r Rect) Snapped() (x, y, w, h uint32) {
	left := math32.Max(0, math32.Floor(r.Left()))
	top := math32.Max(0, math32.Floor(r.Top()))
	right := math32.Max(left, math32.Ceil(r.Right()))
	bottom := math32.Max(top, math32.Ceil(r.Bottom()))
	return uint32(left), uint32(top), uint32(right - left), uint32(bottom - top)
}

// Color is an 8-bit per channel RGBA color with straight (non-premultiplied) alpha.
type Color struct {
	R, G, B, A uint8
}

var (
	// White is the default draw color.
	White = Color{255, 255, 255, 255}
	// Black is the default clear color of the primary target.
	Black = Color{0, 0, 0, 255}
	// Transparent is the clear color of off-screen targets.
	Transparent = Color{}
)

var _ color.Color = Color{}

// RGBA implements color.Color, returning alpha-premultiplied 16-bit channels.
func (c Color) RGBA() (r, g, b, a uint32) {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}.RGBA()
}

// Float returns the color as normalized float32 channels in RGBA order.
func (c Color) Float() [4]float32 {
	return [4]float32{
		float32(c.R) / 255,
		float32(c.G) / 255,
		float32(c.B) / 255,
		float32(c.A) / 255,
	}
}

// WithOpacity scales the alpha channel by opacity, clamped to [0, 1].
//
// Parameters:
//   - opacity: the multiplier applied to the alpha channel
//
// Returns:
//   - Color: the color with the scaled alpha channel
func (c Color) WithOpacity(opacity float32) Color {
	o := math32.Min(1, math32.Max(0, opacity))
	c.A = uint8(math32.Round(float32(c.A) * o))
	return c
}

// ColorFromFloat builds a Color from normalized channels, clamping each to [0, 1].
func ColorFromFloat(r, g, b, a float32) Color {
	conv := func(v float32) uint8 {
		return uint8(math32.Round(math32.Min(1, math32.Max(0, v)) * 255))
	}
	return Color{conv(r), conv(g), conv(b), conv(a)}
}

// TextureStagingData holds RGBA pixel data for a texture pending GPU upload.
type TextureStagingData struct {
	// Pixels is the byte slice representing the actual pixel data for the texture. It should be in RGBA format, with 4 bytes per pixel.
	Pixels []byte
	// Width is the width of the texture in pixels.
	Width uint32
	// Height is the height of the texture in pixels.
	Height uint32
}

// Valid reports whether the staging data describes a non-empty image whose pixel slice matches its dimensions.
func (t TextureStagingData) Valid() bool {
	return t.Width > 0 && t.Height > 0 && uint64(len(t.Pixels)) == uint64(t.Width)*uint64(t.Height)*4
}
