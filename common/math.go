package common

import (
	"unsafe"

	"github.com/chewxy/math32"
	"golang.org/x/image/math/f32"
)

// 2D transforms use the row-vector convention: a point p is mapped by p' = p * M,
// so translations live in the last row and M = A * B applies A first, then B.

// Identity3 returns the 3x3 identity matrix.
func Identity3() f32.Mat3 {
	return f32.Mat3{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	}
}

// Mul3 multiplies two row-major 3x3 matrices.
//
// Parameters:
//   - a: left-hand matrix
//   - b: right-hand matrix
//
// Returns:
//   - f32.Mat3: the product a * b
func Mul3(a, b f32.Mat3) f32.Mat3 {
	var out f32.Mat3
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			out[r*3+c] = a[r*3]*b[c] + a[r*3+1]*b[3+c] + a[r*3+2]*b[6+c]
		}
	}
	return out
}

// Translation3 returns a matrix translating points by (x, y).
func Translation3(x, y float32) f32.Mat3 {
	return f32.Mat3{
		1, 0, 0,
		0, 1, 0,
		x, y, 1,
	}
}

// Scale3 returns a matrix scaling points by (sx, sy) around the origin.
func Scale3(sx, sy float32) f32.Mat3 {
	return f32.Mat3{
		sx, 0, 0,
		0, sy, 0,
		0, 0, 1,
	}
}

// Rotation3 returns a matrix rotating points by angle radians around the origin.
// With the y axis pointing down, positive angles rotate clockwise on screen.
func Rotation3(angle float32) f32.Mat3 {
	s, c := math32.Sincos(angle)
	return f32.Mat3{
		c, s, 0,
		-s, c, 0,
		0, 0, 1,
	}
}

// Ortho2D returns the projection that maps pixel coordinates with a top-left origin
// onto clip space: (0,0) goes to (-1,1) and (w,h) goes to (1,-1).
//
// Parameters:
//   - w: viewport width in pixels
//   - h: viewport height in pixels
//
// Returns:
//   - f32.Mat3: the projection matrix, or identity when either dimension is zero
func Ortho2D(w, h float32) f32.Mat3 {
	if w == 0 || h == 0 {
		return Identity3()
	}
	return f32.Mat3{
		2 / w, 0, 0,
		0, -2 / h, 0,
		-1, 1, 1,
	}
}

// TransformPoint maps (x, y) through m.
func TransformPoint(m f32.Mat3, x, y float32) (float32, float32) {
	w := x*m[2] + y*m[5] + m[8]
	if w == 0 {
		w = 1
	}
	return (x*m[0] + y*m[3] + m[6]) / w, (x*m[1] + y*m[4] + m[7]) / w
}

// PackMat3 expands a 2D matrix into a column-major 4x4 suitable for a WGSL mat4x4<f32> uniform.
// The z row and column are the identity, so mvp * vec4(x, y, 0, 1) equals (x, y, 1) * m.
//
// Parameters:
//   - m: the 3x3 matrix to pack
//
// Returns:
//   - [16]float32: the packed 4x4 matrix
func PackMat3(m f32.Mat3) [16]float32 {
	return [16]float32{
		m[0], m[1], 0, m[2],
		m[3], m[4], 0, m[5],
		0, 0, 1, 0,
		m[6], m[7], 0, m[8],
	}
}

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), int(size)*len(data))
}

// StructToBytes reinterprets a pointer to a struct as a raw byte slice using unsafe.
// The returned slice has length equal to the struct's size in memory.
//
// Parameters:
//   - v: pointer to the struct to reinterpret
//
// Returns:
//   - []byte: byte slice view of the struct's memory
func StructToBytes[T any](v *T) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), int(unsafe.Sizeof(*v)))
}
