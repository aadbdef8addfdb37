package command

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-2d/common"
	"github.com/Carmen-Shannon/oxy-2d/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-2d/engine/renderer/geometry"
	"github.com/Carmen-Shannon/oxy-2d/engine/renderer/texture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedSource struct {
	id uint32
}

func (s *fixedSource) Snapshot() uint32 { return s.id }

func TestRecordKeepsOrderAndStateIDs(t *testing.T) {
	src := &fixedSource{}
	q := NewQueue(src)

	q.RecordSolid(backend.PrimitiveLineList, 2)
	src.id = 3
	q.RecordSolid(backend.PrimitiveTriangleList, 3)
	tex, err := texture.New(common.TextureStagingData{Pixels: make([]byte, 4), Width: 1, Height: 1})
	require.NoError(t, err)
	q.RecordTextured(backend.PrimitiveTriangleList, 6, tex)
	src.id = 4
	q.RecordSolid(backend.PrimitivePointList, 1)

	cmds := q.Commands()
	require.Len(t, cmds, 4)
	assert.Equal(t, []backend.Primitive{
		backend.PrimitiveLineList, backend.PrimitiveTriangleList, backend.PrimitiveTriangleList, backend.PrimitivePointList,
	}, []backend.Primitive{cmds[0].Primitive, cmds[1].Primitive, cmds[2].Primitive, cmds[3].Primitive})
	assert.Equal(t, []uint32{0, 3, 3, 4}, []uint32{cmds[0].StateID, cmds[1].StateID, cmds[2].StateID, cmds[3].StateID})

	assert.Equal(t, uint32(0), cmds[0].VertexOffset)
	assert.Equal(t, uint32(2), cmds[1].VertexOffset)
	assert.Equal(t, uint32(0), cmds[2].VertexOffset, "textured vertices live in their own region")
	assert.Equal(t, uint32(5), cmds[3].VertexOffset)
	assert.Same(t, tex, cmds[2].Texture)
	assert.Nil(t, cmds[0].Texture)

	assert.Equal(t, 6, q.Vertices(geometry.LayoutSolid))
	assert.Equal(t, 6, q.Vertices(geometry.LayoutTextured))
}

func TestReplayReproducesRecordedVertices(t *testing.T) {
	q := NewQueue(&fixedSource{}, WithAccumulator(geometry.NewAccumulator(geometry.WithInitialCapacity(4))))

	var want [][]geometry.SolidVertex
	for i := range 20 {
		n := i%5 + 1
		view := q.RecordSolid(backend.PrimitiveLineStrip, n)
		written := make([]geometry.SolidVertex, n)
		for j := range view {
			view[j] = geometry.Solid(float32(i), float32(j), common.Color{R: uint8(i), A: 255})
			written[j] = view[j]
		}
		want = append(want, written)
	}

	for i, cmd := range q.Commands() {
		assert.Equal(t, want[i], q.ReplaySolid(cmd))
		assert.Nil(t, q.ReplayTextured(cmd))
	}
}

func TestRecordNonPositiveCountIsNoop(t *testing.T) {
	q := NewQueue(&fixedSource{})
	assert.Nil(t, q.RecordSolid(backend.PrimitivePointList, 0))
	assert.Nil(t, q.RecordTextured(backend.PrimitivePointList, -1, nil))
	assert.Equal(t, 0, q.Len())
}

func TestResetTrimsAfterQuietFrame(t *testing.T) {
	q := NewQueue(&fixedSource{}, WithTrimFloor(8))
	for range 100 {
		q.RecordSolid(backend.PrimitivePointList, 1)
	}
	grown := q.Cap()
	require.Greater(t, grown, 8)

	q.Reset()
	assert.Equal(t, 0, q.Len())
	assert.Equal(t, grown, q.Cap(), "a busy frame keeps its capacity")
	assert.Equal(t, 0, q.Vertices(geometry.LayoutSolid))

	q.RecordSolid(backend.PrimitivePointList, 1)
	q.Reset()
	assert.Equal(t, 8, q.Cap(), "a quiet frame shrinks to the floor")
}
