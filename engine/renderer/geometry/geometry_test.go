package geometry

import (
	"encoding/binary"
	"math"
	"testing"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-2d/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVertexSizesMatchLayouts(t *testing.T) {
	assert.Equal(t, uintptr(SolidVertexSize), unsafe.Sizeof(SolidVertex{}))
	assert.Equal(t, uintptr(TexturedVertexSize), unsafe.Sizeof(TexturedVertex{}))
	assert.Equal(t, uint64(SolidVertexSize), LayoutSolid.VertexLayout().Stride)
	assert.Equal(t, uint64(TexturedVertexSize), LayoutTextured.VertexLayout().Stride)
}

func TestAppendSizesAndOffsets(t *testing.T) {
	a := NewAccumulator(WithInitialCapacity(4))
	counts := []int{3, 1, 7, 2, 20}

	total := 0
	var ranges [][2]int
	for _, n := range counts {
		offset, view := a.AppendSolid(n)
		require.Len(t, view, n)
		assert.Equal(t, total, offset)
		ranges = append(ranges, [2]int{offset, offset + n})
		total += n
	}
	assert.Equal(t, total, a.Len(LayoutSolid))
	assert.Equal(t, 0, a.Len(LayoutTextured))

	for i := 1; i < len(ranges); i++ {
		assert.Equal(t, ranges[i-1][1], ranges[i][0], "views must be contiguous and disjoint")
	}
}

func TestAppendedViewsDoNotOverlap(t *testing.T) {
	a := NewAccumulator(WithInitialCapacity(2))
	for i := range 10 {
		_, view := a.AppendSolid(3)
		for j := range view {
			view[j] = SolidVertex{X: float32(i), Y: float32(j)}
		}
	}
	for i := range 10 {
		for j := range 3 {
			v := a.SolidAt(i*3 + j)
			assert.Equal(t, float32(i), v.X)
			assert.Equal(t, float32(j), v.Y)
		}
	}
}

func TestResetReproducesOffsets(t *testing.T) {
	a := NewAccumulator(WithInitialCapacity(8))
	record := func() []int {
		var offsets []int
		for _, n := range []int{4, 6, 1, 9} {
			o, _ := a.AppendTextured(n)
			offsets = append(offsets, o)
			o, _ = a.AppendSolid(n * 2)
			offsets = append(offsets, o)
		}
		return offsets
	}

	first := record()
	capBefore := a.Cap(LayoutSolid)
	a.Reset()
	assert.Equal(t, 0, a.Len(LayoutSolid))
	assert.Equal(t, 0, a.Len(LayoutTextured))
	assert.Equal(t, capBefore, a.Cap(LayoutSolid), "reset keeps capacity")

	grows := a.Grows()
	second := record()
	assert.Equal(t, first, second)
	assert.Equal(t, grows, a.Grows(), "same appends after reset must not reallocate")
}

func TestGrowthIsLogarithmic(t *testing.T) {
	a := NewAccumulator()
	total := 0
	for range 100_000 {
		a.AppendSolid(5)
		total += 5
	}
	bound := int(math.Ceil(math.Log(float64(total)/DefaultInitialCapacity)/math.Log(1.5))) + 1
	assert.LessOrEqual(t, a.Grows(), bound)
	assert.GreaterOrEqual(t, a.Cap(LayoutSolid), total)
}

func TestNextCapacity(t *testing.T) {
	tests := []struct {
		name              string
		current, required int
		want              int
	}{
		{"floor dominates small buffers", 100, 101, 2148},
		{"geometric growth", 10_000, 10_001, 15_000},
		{"large request", 2048, 50_000, 50_000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, nextCapacity(tt.current, tt.required))
		})
	}
}

func TestBytesAreLittleEndianFloats(t *testing.T) {
	a := NewAccumulator()
	_, view := a.AppendSolid(1)
	view[0] = Solid(1.5, -2, common.Color{R: 255, G: 0, B: 0, A: 255})

	raw := a.Bytes(LayoutSolid)
	require.Len(t, raw, SolidVertexSize)
	assert.Equal(t, float32(1.5), math.Float32frombits(binary.LittleEndian.Uint32(raw[0:4])))
	assert.Equal(t, float32(-2), math.Float32frombits(binary.LittleEndian.Uint32(raw[4:8])))
	assert.Equal(t, float32(1), math.Float32frombits(binary.LittleEndian.Uint32(raw[8:12])))
	assert.Nil(t, a.Bytes(LayoutTextured))
}

func TestAppendNonPositiveIsNoop(t *testing.T) {
	a := NewAccumulator()
	offset, view := a.AppendSolid(0)
	assert.Equal(t, 0, offset)
	assert.Nil(t, view)
	assert.Equal(t, 0, a.Len(LayoutSolid))
}
