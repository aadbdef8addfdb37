package state

import (
	"errors"
	"fmt"

	"golang.org/x/image/math/f32"

	"github.com/Carmen-Shannon/oxy-2d/common"
	"github.com/Carmen-Shannon/oxy-2d/engine/renderer/pipeline"
)

var (
	// ErrStateStackOverflow is returned by Push when the configured maximum depth is reached.
	ErrStateStackOverflow = errors.New("state: stack overflow")

	// ErrStateStackUnderflow is returned by Pop on an empty stack.
	ErrStateStackUnderflow = errors.New("state: stack underflow")
)

type stack struct {
	cur       State
	dirty     Dirty
	snapshots []State
	saved     []State
	maxDepth  int
}

// Stack is the painter's render state: a working copy with dirty tracking, the per-frame list of
// frozen snapshots referenced by draw commands, and a push/pop stack of saved states.
type Stack interface {
	SetColor(c common.Color)
	SetOpacity(opacity float32)
	SetLineWidth(width float32)
	SetPointSize(size float32)
	SetBlendMode(mode pipeline.BlendMode)
	SetTransform(m f32.Mat3)
	Translate(x, y float32)
	Scale(x, y float32)
	Rotate(angle float32)
	SetProjection(m f32.Mat3)
	ResetProjection()
	// SetResolution changes the target resolution and resets the projection to match it.
	SetResolution(size common.Size)
	SetViewport(r common.Rect)
	SetClipRect(r common.Rect)
	ResetClipRect()
	SetPipelineID(id int)

	// Snapshot freezes the working state if anything changed and returns its id. Without changes
	// the id of the last snapshot is returned.
	//
	// Returns:
	//   - uint32: the snapshot id, valid until the next ResetFrame
	Snapshot() uint32

	// State looks up a snapshot.
	//
	// Parameters:
	//   - id: a snapshot id returned by Snapshot
	//
	// Returns:
	//   - State: the frozen state
	//   - bool: false if the id was not issued this frame
	State(id uint32) (State, bool)

	// Current returns the working state.
	//
	// Returns:
	//   - State: a copy of the working state
	Current() State

	// Dirty returns the fields changed since the last snapshot.
	//
	// Returns:
	//   - Dirty: the pending dirty bits
	Dirty() Dirty

	// Push saves the working state.
	//
	// Parameters:
	//   - resetAfter: restore color, projection, transform and blend mode to their defaults after saving
	//
	// Returns:
	//   - error: ErrStateStackOverflow when a maximum depth is configured and reached
	Push(resetAfter bool) error

	// Pop restores the most recently saved state.
	//
	// Parameters:
	//   - resetAfter: reset to defaults instead of restoring the saved fields
	//
	// Returns:
	//   - error: ErrStateStackUnderflow on an empty stack
	Pop(resetAfter bool) error

	// Depth returns the number of saved states.
	//
	// Returns:
	//   - int: the stack depth
	Depth() int

	// Len returns the number of snapshots issued this frame.
	//
	// Returns:
	//   - int: the snapshot count
	Len() int

	// ResetFrame returns the working state to its defaults for the resolution, clears the saved
	// states and restarts snapshot ids with the default state as id 0.
	//
	// Parameters:
	//   - resolution: the primary target size
	ResetFrame(resolution common.Size)
}

var _ Stack = &stack{}

// NewStack creates a state stack for a target of the given resolution.
//
// Parameters:
//   - resolution: the initial resolution
//   - opts: builder options
//
// Returns:
//   - Stack: the stack with snapshot 0 holding the defaults
func NewStack(resolution common.Size, opts ...StackBuilderOption) Stack {
	s := &stack{}
	for _, opt := range opts {
		opt(s)
	}
	s.ResetFrame(resolution)
	return s
}

func (s *stack) SetColor(c common.Color) {
	if s.cur.Color == c {
		return
	}
	s.cur.Color = c
	s.dirty |= DirtyColor
}

func (s *stack) SetOpacity(opacity float32) {
	opacity = min(max(opacity, 0), 1)
	if s.cur.Opacity == opacity {
		return
	}
	s.cur.Opacity = opacity
	s.dirty |= DirtyOpacity
}

func (s *stack) SetLineWidth(width float32) {
	if width <= 0 || s.cur.LineWidth == width {
		return
	}
	s.cur.LineWidth = width
	s.dirty |= DirtyLineWidth
}

func (s *stack) SetPointSize(size float32) {
	if size <= 0 || s.cur.PointSize == size {
		return
	}
	s.cur.PointSize = size
	s.dirty |= DirtyPointSize
}

func (s *stack) SetBlendMode(mode pipeline.BlendMode) {
	if !mode.Valid() || s.cur.BlendMode == mode {
		return
	}
	s.cur.BlendMode = mode
	s.dirty |= DirtyBlendMode
}

func (s *stack) SetTransform(m f32.Mat3) {
	if s.cur.Transform == m {
		return
	}
	s.cur.Transform = m
	s.dirty |= DirtyTransform
}

func (s *stack) Translate(x, y float32) {
	s.SetTransform(common.Mul3(s.cur.Transform, common.Translation3(x, y)))
}

func (s *stack) Scale(x, y float32) {
	s.SetTransform(common.Mul3(s.cur.Transform, common.Scale3(x, y)))
}

func (s *stack) Rotate(angle float32) {
	s.SetTransform(common.Mul3(s.cur.Transform, common.Rotation3(angle)))
}

func (s *stack) SetProjection(m f32.Mat3) {
	if s.cur.Projection == m {
		return
	}
	s.cur.Projection = m
	s.dirty |= DirtyProjection
}

func (s *stack) ResetProjection() {
	s.SetProjection(common.Ortho2D(float32(s.cur.Resolution.W), float32(s.cur.Resolution.H)))
}

func (s *stack) SetResolution(size common.Size) {
	if s.cur.Resolution == size {
		return
	}
	s.cur.Resolution = size
	s.dirty |= DirtyResolution
	s.ResetProjection()
}

func (s *stack) SetViewport(r common.Rect) {
	if s.cur.Viewport == r {
		return
	}
	s.cur.Viewport = r
	s.dirty |= DirtyViewport
}

func (s *stack) SetClipRect(r common.Rect) {
	if s.cur.ClipRect == r {
		return
	}
	s.cur.ClipRect = r
	s.dirty |= DirtyClipRect
}

func (s *stack) ResetClipRect() {
	s.SetClipRect(common.Rect{})
}

func (s *stack) SetPipelineID(id int) {
	if s.cur.PipelineID == id {
		return
	}
	s.cur.PipelineID = id
	s.dirty |= DirtyPipelineID
}

func (s *stack) Snapshot() uint32 {
	s.dirty = s.pending()
	if s.dirty == 0 && len(s.snapshots) > 0 {
		return uint32(len(s.snapshots) - 1)
	}
	frozen := s.cur
	frozen.Changed = s.dirty
	s.snapshots = append(s.snapshots, frozen)
	s.dirty = 0
	return uint32(len(s.snapshots) - 1)
}

// pending narrows the dirty bits to fields that still differ from the last snapshot, so a value
// changed and then restored is not reported.
func (s *stack) pending() Dirty {
	if s.dirty == 0 || len(s.snapshots) == 0 {
		return s.dirty
	}
	return s.dirty & diff(s.snapshots[len(s.snapshots)-1], s.cur)
}

func (s *stack) State(id uint32) (State, bool) {
	if int(id) >= len(s.snapshots) {
		return State{}, false
	}
	return s.snapshots[id], true
}

func (s *stack) Current() State {
	return s.cur
}

func (s *stack) Dirty() Dirty {
	return s.pending()
}

func (s *stack) Push(resetAfter bool) error {
	if s.maxDepth > 0 && len(s.saved) >= s.maxDepth {
		return fmt.Errorf("%w: depth %d", ErrStateStackOverflow, s.maxDepth)
	}
	s.saved = append(s.saved, s.cur)
	if resetAfter {
		s.reset()
	}
	return nil
}

func (s *stack) Pop(resetAfter bool) error {
	if len(s.saved) == 0 {
		return ErrStateStackUnderflow
	}
	prev := s.saved[len(s.saved)-1]
	s.saved = s.saved[:len(s.saved)-1]

	if resetAfter {
		s.reset()
		return nil
	}
	s.SetResolution(prev.Resolution)
	s.SetViewport(prev.Viewport)
	s.SetTransform(prev.Transform)
	s.SetProjection(prev.Projection)
	s.SetColor(prev.Color)
	s.SetOpacity(prev.Opacity)
	s.SetLineWidth(prev.LineWidth)
	s.SetPointSize(prev.PointSize)
	s.SetBlendMode(prev.BlendMode)
	s.SetClipRect(prev.ClipRect)
	s.SetPipelineID(prev.PipelineID)
	return nil
}

func (s *stack) Depth() int {
	return len(s.saved)
}

func (s *stack) Len() int {
	return len(s.snapshots)
}

func (s *stack) ResetFrame(resolution common.Size) {
	s.cur = Defaults(resolution)
	s.dirty = 0
	s.saved = s.saved[:0]

	first := s.cur
	first.Changed = DirtyAll
	s.snapshots = append(s.snapshots[:0], first)
}

func (s *stack) reset() {
	s.SetColor(common.White)
	s.ResetProjection()
	s.SetTransform(common.Identity3())
	s.SetBlendMode(pipeline.BlendNormal)
}
