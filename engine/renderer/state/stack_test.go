package state

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-2d/common"
	"github.com/Carmen-Shannon/oxy-2d/engine/renderer/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var res = common.Size{W: 800, H: 600}

func TestDefaults(t *testing.T) {
	s := NewStack(res)
	cur := s.Current()
	assert.Equal(t, common.White, cur.Color)
	assert.Equal(t, float32(1), cur.Opacity)
	assert.Equal(t, float32(1), cur.LineWidth)
	assert.Equal(t, float32(1), cur.PointSize)
	assert.Equal(t, pipeline.BlendNormal, cur.BlendMode)
	assert.Equal(t, common.Identity3(), cur.Transform)
	assert.True(t, cur.ClipRect.Empty())
	assert.Equal(t, common.Rect{W: 800, H: 600}, cur.Viewport)

	assert.Equal(t, 1, s.Len())
	assert.Equal(t, uint32(0), s.Snapshot())
	first, ok := s.State(0)
	require.True(t, ok)
	assert.Equal(t, DirtyAll, first.Changed)
}

func TestIdenticalSettersAllocateNoSnapshot(t *testing.T) {
	s := NewStack(res)
	red := common.Color{R: 255, A: 255}

	s.SetColor(red)
	id := s.Snapshot()
	assert.Equal(t, uint32(1), id)

	for range 10 {
		s.SetColor(red)
		s.SetOpacity(1)
		s.SetBlendMode(pipeline.BlendNormal)
		s.SetResolution(res)
		assert.Equal(t, Dirty(0), s.Dirty())
		assert.Equal(t, id, s.Snapshot())
	}
	assert.Equal(t, 2, s.Len())
}

func TestSnapshotRecordsChangedFields(t *testing.T) {
	s := NewStack(res)
	s.SetLineWidth(3)
	s.SetClipRect(common.Rect{X: 1, Y: 1, W: 10, H: 10})
	id := s.Snapshot()

	snap, ok := s.State(id)
	require.True(t, ok)
	assert.True(t, snap.Changed.Has(DirtyLineWidth|DirtyClipRect))
	assert.False(t, snap.Changed.Has(DirtyColor))
	assert.Equal(t, float32(3), snap.LineWidth)

	s.SetLineWidth(5)
	frozen, _ := s.State(id)
	assert.Equal(t, float32(3), frozen.LineWidth, "snapshots are frozen")

	_, ok = s.State(99)
	assert.False(t, ok)
}

func TestPushPopRestoresColor(t *testing.T) {
	s := NewStack(res)
	orig := common.Color{R: 10, G: 20, B: 30, A: 40}
	s.SetColor(orig)
	require.NoError(t, s.Push(false))
	s.SetColor(common.Color{R: 200, A: 255})
	s.Translate(5, 5)
	require.NoError(t, s.Pop(false))

	assert.Equal(t, orig, s.Current().Color)
	assert.Equal(t, common.Identity3(), s.Current().Transform)
	assert.Equal(t, 0, s.Depth())
}

func TestRestoredValuesAllocateNoSnapshot(t *testing.T) {
	s := NewStack(res)
	red := common.Color{R: 255, A: 255}
	blue := common.Color{B: 255, A: 255}

	s.SetColor(red)
	id := s.Snapshot()

	require.NoError(t, s.Push(false))
	s.SetColor(blue)
	s.Translate(4, 4)
	s.SetPipelineID(3)
	require.NoError(t, s.Pop(false))
	assert.Equal(t, Dirty(0), s.Dirty())
	assert.Equal(t, id, s.Snapshot())

	s.SetColor(blue)
	s.SetColor(red)
	assert.Equal(t, id, s.Snapshot())
	assert.Equal(t, 2, s.Len())

	s.SetColor(blue)
	s.SetOpacity(0.5)
	s.SetOpacity(1)
	assert.Equal(t, DirtyColor, s.Dirty())
	next := s.Snapshot()
	snap, ok := s.State(next)
	require.True(t, ok)
	assert.Equal(t, DirtyColor, snap.Changed)
	assert.Equal(t, blue, snap.Color)
}

func TestPipelineIDTracked(t *testing.T) {
	s := NewStack(res)
	s.SetPipelineID(2)
	assert.Equal(t, DirtyPipelineID, s.Dirty())

	require.NoError(t, s.Push(false))
	s.SetPipelineID(0)
	require.NoError(t, s.Pop(false))
	assert.Equal(t, 2, s.Current().PipelineID)

	snap, _ := s.State(s.Snapshot())
	assert.Equal(t, 2, snap.PipelineID)
	assert.Equal(t, DirtyPipelineID, snap.Changed)
}

func TestPushWithResetRestoresDefaults(t *testing.T) {
	s := NewStack(res)
	s.SetColor(common.Black)
	s.SetBlendMode(pipeline.BlendAdd)
	s.Scale(2, 2)

	require.NoError(t, s.Push(true))
	cur := s.Current()
	assert.Equal(t, common.White, cur.Color)
	assert.Equal(t, pipeline.BlendNormal, cur.BlendMode)
	assert.Equal(t, common.Identity3(), cur.Transform)

	require.NoError(t, s.Pop(false))
	assert.Equal(t, common.Black, s.Current().Color)
	assert.Equal(t, pipeline.BlendAdd, s.Current().BlendMode)
}

func TestStackBounds(t *testing.T) {
	s := NewStack(res, WithMaxDepth(2))
	require.NoError(t, s.Push(false))
	require.NoError(t, s.Push(false))
	assert.ErrorIs(t, s.Push(false), ErrStateStackOverflow)
	require.NoError(t, s.Pop(false))
	require.NoError(t, s.Pop(false))
	assert.ErrorIs(t, s.Pop(false), ErrStateStackUnderflow)

	unbounded := NewStack(res)
	for range 1000 {
		require.NoError(t, unbounded.Push(false))
	}
	assert.Equal(t, 1000, unbounded.Depth())
}

func TestResetFrameRestartsIDs(t *testing.T) {
	s := NewStack(res)
	s.SetColor(common.Black)
	s.Snapshot()
	s.SetOpacity(0.5)
	s.Snapshot()
	require.NoError(t, s.Push(false))

	s.ResetFrame(common.Size{W: 100, H: 50})
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 0, s.Depth())
	assert.Equal(t, uint32(0), s.Snapshot())
	assert.Equal(t, common.Size{W: 100, H: 50}, s.Current().Resolution)
	assert.Equal(t, common.White, s.Current().Color)
}

func TestSetResolutionResetsProjection(t *testing.T) {
	s := NewStack(res)
	s.SetProjection(common.Identity3())
	s.Snapshot()

	s.SetResolution(common.Size{W: 200, H: 100})
	assert.True(t, s.Dirty().Has(DirtyResolution|DirtyProjection))
	assert.Equal(t, common.Ortho2D(200, 100), s.Current().Projection)
}

func TestProjectionTransform(t *testing.T) {
	s := NewStack(res)
	s.Translate(400, 300)
	m := ProjectionTransform(s.Current())

	// the translated origin lands on the center of clip space
	x := m[12]
	y := m[13]
	assert.InDelta(t, 0, x, 1e-6)
	assert.InDelta(t, 0, y, 1e-6)
	assert.Equal(t, float32(2.0/800), m[0])
	assert.Equal(t, float32(-2.0/600), m[5])
	assert.Equal(t, float32(1), m[15])
}

func TestOpacityClampedAndResolved(t *testing.T) {
	s := NewStack(res)
	s.SetOpacity(2)
	assert.Equal(t, float32(1), s.Current().Opacity)
	s.SetOpacity(0.5)
	s.SetColor(common.Color{R: 255, A: 200})
	assert.Equal(t, uint8(100), s.Current().ResolvedColor().A)

	s.SetLineWidth(-1)
	s.SetBlendMode(pipeline.BlendMode(42))
	assert.Equal(t, float32(1), s.Current().LineWidth)
	assert.Equal(t, pipeline.BlendNormal, s.Current().BlendMode)
}
