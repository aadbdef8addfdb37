package state

import (
	"golang.org/x/image/math/f32"

	"github.com/Carmen-Shannon/oxy-2d/common"
	"github.com/Carmen-Shannon/oxy-2d/engine/renderer/pipeline"
)

// Dirty is a bitmask of render state fields that changed since the last snapshot.
type Dirty uint32

const (
	DirtyResolution Dirty = 1 << iota
	DirtyViewport
	DirtyTransform
	DirtyProjection
	DirtyColor
	DirtyOpacity
	DirtyLineWidth
	DirtyPointSize
	DirtyBlendMode
	DirtyClipRect
	DirtyPipelineID

	// DirtyAll marks every field, used for the first snapshot of a frame.
	DirtyAll = DirtyResolution | DirtyViewport | DirtyTransform | DirtyProjection | DirtyColor |
		DirtyOpacity | DirtyLineWidth | DirtyPointSize | DirtyBlendMode | DirtyClipRect | DirtyPipelineID
)

// Has reports whether every bit of f is set.
func (d Dirty) Has(f Dirty) bool {
	return d&f == f
}

// State is a frozen copy of everything that affects how a draw command is rendered.
type State struct {
	Resolution common.Size
	Viewport   common.Rect
	Transform  f32.Mat3
	Projection f32.Mat3
	Color      common.Color
	Opacity    float32
	LineWidth  float32
	PointSize  float32
	BlendMode  pipeline.BlendMode
	// ClipRect is the scissor rectangle. An empty rect disables scissoring.
	ClipRect   common.Rect
	PipelineID int

	// Changed holds the fields that differ from the previous snapshot. It is meaningless on the
	// working copy.
	Changed Dirty
}

// diff returns the fields whose values differ between a and b.
func diff(a, b State) Dirty {
	var d Dirty
	if a.Resolution != b.Resolution {
		d |= DirtyResolution
	}
	if a.Viewport != b.Viewport {
		d |= DirtyViewport
	}
	if a.Transform != b.Transform {
		d |= DirtyTransform
	}
	if a.Projection != b.Projection {
		d |= DirtyProjection
	}
	if a.Color != b.Color {
		d |= DirtyColor
	}
	if a.Opacity != b.Opacity {
		d |= DirtyOpacity
	}
	if a.LineWidth != b.LineWidth {
		d |= DirtyLineWidth
	}
	if a.PointSize != b.PointSize {
		d |= DirtyPointSize
	}
	if a.BlendMode != b.BlendMode {
		d |= DirtyBlendMode
	}
	if a.ClipRect != b.ClipRect {
		d |= DirtyClipRect
	}
	if a.PipelineID != b.PipelineID {
		d |= DirtyPipelineID
	}
	return d
}

// Defaults returns the initial state for a target of the given resolution.
//
// Parameters:
//   - resolution: the target size in pixels
//
// Returns:
//   - State: white, opaque, normal blending, identity transform and a pixel projection
func Defaults(resolution common.Size) State {
	return State{
		Resolution: resolution,
		Viewport:   common.RectFromSize(resolution),
		Transform:  common.Identity3(),
		Projection: common.Ortho2D(float32(resolution.W), float32(resolution.H)),
		Color:      common.White,
		Opacity:    1,
		LineWidth:  1,
		PointSize:  1,
		BlendMode:  pipeline.BlendNormal,
	}
}

// ProjectionTransform combines a state's transform and projection and packs the result for the
// u_ProjectionTransform uniform.
//
// Parameters:
//   - s: the state
//
// Returns:
//   - [16]float32: column-major 4x4 matrix
func ProjectionTransform(s State) [16]float32 {
	return common.PackMat3(common.Mul3(s.Transform, s.Projection))
}

// ResolvedColor returns the state color with the opacity applied.
func (s State) ResolvedColor() common.Color {
	return s.Color.WithOpacity(s.Opacity)
}
