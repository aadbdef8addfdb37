package shader

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var (
	// ErrUnknownUniform is returned when a uniform field name is not part of the layout.
	ErrUnknownUniform = errors.New("shader: unknown uniform field")

	// ErrUniformOverflow is returned when a value is larger than the field it is written to.
	ErrUniformOverflow = errors.New("shader: value does not fit uniform field")
)

// ProjectionTransformUniform is the field of the built-in uniform block that holds the 2D projection.
const ProjectionTransformUniform = "u_ProjectionTransform"

// UniformBlockName is the variable name of the built-in uniform block.
const UniformBlockName = "uniforms"

// UniformField is one top level member of a uniform struct.
type UniformField struct {
	Name     string
	TypeName string
	Offset   uint64
	Size     uint64
}

// UniformLayout is the resolved byte layout of a uniform buffer binding.
type UniformLayout struct {
	Name     string
	TypeName string
	Group    uint32
	Binding  uint32
	Size     uint64
	Fields   []UniformField
}

// Field looks up a member by name.
func (l UniformLayout) Field(name string) (UniformField, bool) {
	for _, f := range l.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return UniformField{}, false
}

// Offset returns the byte offset of a member.
func (l UniformLayout) Offset(name string) (uint64, bool) {
	f, ok := l.Field(name)
	return f.Offset, ok
}

// UniformBlock packs values into a byte image of a uniform layout.
type UniformBlock struct {
	layout UniformLayout
	data   []byte
}

// NewUniformBlock allocates a zeroed block sized to the layout.
func NewUniformBlock(layout UniformLayout) *UniformBlock {
	return &UniformBlock{
		layout: layout,
		data:   make([]byte, layout.Size),
	}
}

// Layout returns the layout the block packs against.
func (b *UniformBlock) Layout() UniformLayout {
	return b.layout
}

// SetFloats writes float values starting at the offset of the named field.
//
// Parameters:
//   - name: the field name
//   - values: the values to write, little endian
//
// Returns:
//   - error: ErrUnknownUniform or ErrUniformOverflow
func (b *UniformBlock) SetFloats(name string, values ...float32) error {
	f, ok := b.layout.Field(name)
	if !ok {
		return fmt.Errorf("%w %q in %s", ErrUnknownUniform, name, b.layout.TypeName)
	}
	if uint64(len(values))*4 > f.Size {
		return fmt.Errorf("%w: %d floats into %s %s", ErrUniformOverflow, len(values), f.TypeName, name)
	}
	for i, v := range values {
		binary.LittleEndian.PutUint32(b.data[f.Offset+uint64(i)*4:], math.Float32bits(v))
	}
	return nil
}

// SetMat4 writes a column-major 4x4 matrix into the named field.
func (b *UniformBlock) SetMat4(name string, m [16]float32) error {
	return b.SetFloats(name, m[:]...)
}

// Bytes returns the packed block. The slice aliases the block's storage.
func (b *UniformBlock) Bytes() []byte {
	return b.data
}
