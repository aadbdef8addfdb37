// Package geometry accumulates the vertices produced by immediate-mode draw calls into growable,
// CPU-side buffers, one per vertex layout. Buffers keep their capacity across frames so steady
// state recording does not allocate.
package geometry

import (
	"github.com/Carmen-Shannon/oxy-2d/common"
	"github.com/Carmen-Shannon/oxy-2d/engine/renderer/backend"
)

// Layout selects one of the closed set of vertex layouts.
type Layout int

const (
	// LayoutSolid is position plus per-vertex color.
	LayoutSolid Layout = iota
	// LayoutTextured is position, texture coordinate and tint.
	LayoutTextured
)

func (l Layout) String() string {
	if l == LayoutTextured {
		return "textured"
	}
	return "solid"
}

// SolidVertex is a colored 2D vertex.
type SolidVertex struct {
	X, Y       float32
	R, G, B, A float32
}

// TexturedVertex is a textured and tinted 2D vertex.
type TexturedVertex struct {
	X, Y       float32
	U, V       float32
	R, G, B, A float32
}

const (
	// SolidVertexSize is the byte size of a SolidVertex.
	SolidVertexSize = 24
	// TexturedVertexSize is the byte size of a TexturedVertex.
	TexturedVertexSize = 32

	// DefaultInitialCapacity is the initial number of vertices reserved per layout.
	DefaultInitialCapacity = 2048
)

// Stride returns the byte size of one vertex in the layout.
func (l Layout) Stride() uint64 {
	if l == LayoutTextured {
		return TexturedVertexSize
	}
	return SolidVertexSize
}

// VertexLayout describes the layout to the GPU backend. Locations match the vertex inputs of the
// built-in shaders.
func (l Layout) VertexLayout() backend.VertexLayout {
	if l == LayoutTextured {
		return backend.VertexLayout{
			Stride: TexturedVertexSize,
			Attributes: []backend.VertexAttribute{
				{Format: backend.VertexFormatFloat32x2, Offset: 0, Location: 0},
				{Format: backend.VertexFormatFloat32x2, Offset: 8, Location: 1},
				{Format: backend.VertexFormatFloat32x4, Offset: 16, Location: 2},
			},
		}
	}
	return backend.VertexLayout{
		Stride: SolidVertexSize,
		Attributes: []backend.VertexAttribute{
			{Format: backend.VertexFormatFloat32x2, Offset: 0, Location: 0},
			{Format: backend.VertexFormatFloat32x4, Offset: 8, Location: 1},
		},
	}
}

// Solid builds a solid vertex from a position and a color.
func Solid(x, y float32, c common.Color) SolidVertex {
	f := c.Float()
	return SolidVertex{X: x, Y: y, R: f[0], G: f[1], B: f[2], A: f[3]}
}

// Textured builds a textured vertex from a position, a texture coordinate and a tint.
func Textured(x, y, u, v float32, c common.Color) TexturedVertex {
	f := c.Float()
	return TexturedVertex{X: x, Y: y, U: u, V: v, R: f[0], G: f[1], B: f[2], A: f[3]}
}

// Accumulator collects the vertices of one frame target.
type Accumulator interface {
	// AppendSolid reserves n solid vertices at the end of the solid region.
	// The returned view is only valid until the next append; callers write into it immediately.
	//
	// Parameters:
	//   - n: the number of vertices to reserve
	//
	// Returns:
	//   - int: the vertex offset of the first reserved vertex, stable until Reset
	//   - []SolidVertex: a writable view of the n reserved vertices
	AppendSolid(n int) (int, []SolidVertex)

	// AppendTextured reserves n textured vertices at the end of the textured region.
	// The returned view is only valid until the next append; callers write into it immediately.
	//
	// Parameters:
	//   - n: the number of vertices to reserve
	//
	// Returns:
	//   - int: the vertex offset of the first reserved vertex, stable until Reset
	//   - []TexturedVertex: a writable view of the n reserved vertices
	AppendTextured(n int) (int, []TexturedVertex)

	// SolidAt returns the solid vertex at index i.
	SolidAt(i int) SolidVertex

	// TexturedAt returns the textured vertex at index i.
	TexturedAt(i int) TexturedVertex

	// Len returns the number of vertices appended to a layout since the last Reset.
	//
	// Parameters:
	//   - layout: the vertex layout
	//
	// Returns:
	//   - int: the logical vertex count
	Len(layout Layout) int

	// Cap returns the number of vertices a layout can hold before it reallocates.
	//
	// Parameters:
	//   - layout: the vertex layout
	//
	// Returns:
	//   - int: the vertex capacity
	Cap(layout Layout) int

	// Bytes returns a view of a layout's appended vertices as raw little-endian bytes. The view shares
	// memory with the accumulator and must not be retained across appends.
	//
	// Parameters:
	//   - layout: the vertex layout
	//
	// Returns:
	//   - []byte: the vertex bytes, nil when empty
	Bytes(layout Layout) []byte

	// Grows returns the number of reallocations performed since construction.
	Grows() int

	// Reset rewinds every layout to zero vertices while keeping capacity.
	Reset()
}

type accumulator struct {
	initialCapacity int
	solid           []SolidVertex
	textured        []TexturedVertex
	grows           int
}

var _ Accumulator = &accumulator{}

// NewAccumulator creates an Accumulator with DefaultInitialCapacity vertices per layout.
//
// Parameters:
//   - opts: a variadic list of AccumulatorBuilderOption functions
//
// Returns:
//   - Accumulator: the new accumulator
func NewAccumulator(opts ...AccumulatorBuilderOption) Accumulator {
	a := &accumulator{
		initialCapacity: DefaultInitialCapacity,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.solid = make([]SolidVertex, 0, a.initialCapacity)
	a.textured = make([]TexturedVertex, 0, a.initialCapacity)
	return a
}

// nextCapacity grows geometrically with a floor so that small buffers do not reallocate on every append.
func nextCapacity(current, required int) int {
	return max(current*3/2, current+DefaultInitialCapacity, required)
}

func appendVertices[T any](a *accumulator, buf []T, n int) ([]T, int, []T) {
	offset := len(buf)
	required := offset + n
	if required > cap(buf) {
		grown := make([]T, offset, nextCapacity(cap(buf), required))
		copy(grown, buf)
		buf = grown
		a.grows++
	}
	buf = buf[:required]
	view := buf[offset:required]
	clear(view)
	return buf, offset, view
}

func (a *accumulator) AppendSolid(n int) (int, []SolidVertex) {
	if n <= 0 {
		return len(a.solid), nil
	}
	var offset int
	var view []SolidVertex
	a.solid, offset, view = appendVertices(a, a.solid, n)
	return offset, view
}

func (a *accumulator) AppendTextured(n int) (int, []TexturedVertex) {
	if n <= 0 {
		return len(a.textured), nil
	}
	var offset int
	var view []TexturedVertex
	a.textured, offset, view = appendVertices(a, a.textured, n)
	return offset, view
}

func (a *accumulator) SolidAt(i int) SolidVertex {
	return a.solid[i]
}

func (a *accumulator) TexturedAt(i int) TexturedVertex {
	return a.textured[i]
}

func (a *accumulator) Len(layout Layout) int {
	if layout == LayoutTextured {
		return len(a.textured)
	}
	return len(a.solid)
}

func (a *accumulator) Cap(layout Layout) int {
	if layout == LayoutTextured {
		return cap(a.textured)
	}
	return cap(a.solid)
}

func (a *accumulator) Bytes(layout Layout) []byte {
	if layout == LayoutTextured {
		return common.SliceToBytes(a.textured)
	}
	return common.SliceToBytes(a.solid)
}

func (a *accumulator) Grows() int {
	return a.grows
}

func (a *accumulator) Reset() {
	a.solid = a.solid[:0]
	a.textured = a.textured[:0]
}
