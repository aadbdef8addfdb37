package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/image/math/f32"
)

func TestMul3Identity(t *testing.T) {
	m := f32.Mat3{1, 2, 3, 4, 5, 6, 7, 8, 9}
	assert.Equal(t, m, Mul3(m, Identity3()))
	assert.Equal(t, m, Mul3(Identity3(), m))
}

func TestTranslateThenScale(t *testing.T) {
	// translate first, then scale: (1,1) -> (11,21) -> (22,42)
	m := Mul3(Translation3(10, 20), Scale3(2, 2))
	x, y := TransformPoint(m, 1, 1)
	assert.InDelta(t, 22, x, 1e-5)
	assert.InDelta(t, 42, y, 1e-5)
}

func TestOrtho2DCorners(t *testing.T) {
	p := Ortho2D(800, 600)

	x, y := TransformPoint(p, 0, 0)
	assert.InDelta(t, -1, x, 1e-6)
	assert.InDelta(t, 1, y, 1e-6)

	x, y = TransformPoint(p, 800, 600)
	assert.InDelta(t, 1, x, 1e-6)
	assert.InDelta(t, -1, y, 1e-6)

	assert.Equal(t, Identity3(), Ortho2D(0, 600))
}

func TestRotation3QuarterTurn(t *testing.T) {
	x, y := TransformPoint(Rotation3(3.14159265/2), 1, 0)
	assert.InDelta(t, 0, x, 1e-5)
	assert.InDelta(t, 1, y, 1e-5)
}

func TestPackMat3MatchesRowVectorProduct(t *testing.T) {
	m := Mul3(Translation3(5, 7), Ortho2D(100, 50))
	packed := PackMat3(m)

	// column-major mat4 * vec4(x, y, 0, 1)
	px, py := float32(30), float32(10)
	var out [4]float32
	in := [4]float32{px, py, 0, 1}
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			out[row] += packed[col*4+row] * in[col]
		}
	}
	wantX, wantY := TransformPoint(m, px, py)
	assert.InDelta(t, wantX, out[0]/out[3], 1e-6)
	assert.InDelta(t, wantY, out[1]/out[3], 1e-6)
	assert.Equal(t, float32(0), out[2])
}

func TestSliceToBytes(t *testing.T) {
	assert.Nil(t, SliceToBytes([]float32{}))

	b := SliceToBytes([]uint32{0x04030201, 0x08070605})
	assert.Len(t, b, 8)

	type pair struct{ A, B float32 }
	assert.Len(t, StructToBytes(&pair{1, 2}), 8)
}
