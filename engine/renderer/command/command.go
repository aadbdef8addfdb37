// Package command records draw calls in submission order. Every command references a range of the
// target's geometry accumulator and the render state snapshot that was current when it was recorded.
package command

import (
	"github.com/Carmen-Shannon/oxy-2d/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-2d/engine/renderer/geometry"
	"github.com/Carmen-Shannon/oxy-2d/engine/renderer/texture"
)

// DefaultTrimFloor is the command capacity below which the queue never shrinks.
const DefaultTrimFloor = 1024

// DrawCommand is one recorded draw. It is immutable once recorded.
type DrawCommand struct {
	Primitive    backend.Primitive
	Layout       geometry.Layout
	VertexOffset uint32
	VertexCount  uint32
	StateID      uint32
	// Texture is set for textured draws only.
	Texture *texture.Texture
}

// StateSource yields the id of the render state snapshot current at record time.
type StateSource interface {
	// Snapshot freezes pending state changes and returns the current snapshot id.
	//
	// Returns:
	//   - uint32: the snapshot id
	Snapshot() uint32
}

// Queue holds the draw commands of one frame target.
type Queue interface {
	// RecordSolid appends count solid vertices and a command drawing them.
	//
	// Parameters:
	//   - prim: the primitive topology
	//   - count: the number of vertices
	//
	// Returns:
	//   - []geometry.SolidVertex: the vertices to fill, valid until the next record call
	RecordSolid(prim backend.Primitive, count int) []geometry.SolidVertex

	// RecordTextured appends count textured vertices and a command drawing them with tex.
	//
	// Parameters:
	//   - prim: the primitive topology
	//   - count: the number of vertices
	//   - tex: the texture to sample
	//
	// Returns:
	//   - []geometry.TexturedVertex: the vertices to fill, valid until the next record call
	RecordTextured(prim backend.Primitive, count int, tex *texture.Texture) []geometry.TexturedVertex

	// Commands returns the recorded commands in record order. The slice is owned by the queue.
	//
	// Returns:
	//   - []DrawCommand: the commands
	Commands() []DrawCommand

	// Len returns the number of recorded commands.
	Len() int

	// Cap returns the command capacity.
	Cap() int

	// Vertices returns the number of vertices in the accumulator for the layout.
	//
	// Parameters:
	//   - layout: the vertex layout
	//
	// Returns:
	//   - int: the vertex count
	Vertices(layout geometry.Layout) int

	// Accumulator returns the geometry accumulator the commands point into.
	Accumulator() geometry.Accumulator

	// ReplaySolid returns a copy of the vertices drawn by a solid command.
	ReplaySolid(cmd DrawCommand) []geometry.SolidVertex

	// ReplayTextured returns a copy of the vertices drawn by a textured command.
	ReplayTextured(cmd DrawCommand) []geometry.TexturedVertex

	// Reset clears the commands and the accumulator for the next frame, shrinking the command
	// capacity when the last frame used less than a quarter of it.
	Reset()
}

type queue struct {
	source      StateSource
	accumulator geometry.Accumulator
	commands    []DrawCommand
	trimFloor   int
}

var _ Queue = &queue{}

// NewQueue creates a Queue that stamps commands with snapshot ids from source.
//
// Parameters:
//   - source: the render state snapshot source
//   - opts: a variadic list of QueueBuilderOption functions
//
// Returns:
//   - Queue: the new queue
func NewQueue(source StateSource, opts ...QueueBuilderOption) Queue {
	q := &queue{
		source:    source,
		trimFloor: DefaultTrimFloor,
	}
	for _, opt := range opts {
		opt(q)
	}
	if q.accumulator == nil {
		q.accumulator = geometry.NewAccumulator()
	}
	q.commands = make([]DrawCommand, 0, q.trimFloor)
	return q
}

func (q *queue) RecordSolid(prim backend.Primitive, count int) []geometry.SolidVertex {
	if count <= 0 {
		return nil
	}
	offset, view := q.accumulator.AppendSolid(count)
	q.commands = append(q.commands, DrawCommand{
		Primitive:    prim,
		Layout:       geometry.LayoutSolid,
		VertexOffset: uint32(offset),
		VertexCount:  uint32(count),
		StateID:      q.source.Snapshot(),
	})
	return view
}

func (q *queue) RecordTextured(prim backend.Primitive, count int, tex *texture.Texture) []geometry.TexturedVertex {
	if count <= 0 {
		return nil
	}
	offset, view := q.accumulator.AppendTextured(count)
	q.commands = append(q.commands, DrawCommand{
		Primitive:    prim,
		Layout:       geometry.LayoutTextured,
		VertexOffset: uint32(offset),
		VertexCount:  uint32(count),
		StateID:      q.source.Snapshot(),
		Texture:      tex,
	})
	return view
}

func (q *queue) Commands() []DrawCommand {
	return q.commands
}

func (q *queue) Len() int {
	return len(q.commands)
}

func (q *queue) Cap() int {
	return cap(q.commands)
}

func (q *queue) Vertices(layout geometry.Layout) int {
	return q.accumulator.Len(layout)
}

func (q *queue) Accumulator() geometry.Accumulator {
	return q.accumulator
}

func (q *queue) ReplaySolid(cmd DrawCommand) []geometry.SolidVertex {
	if cmd.Layout != geometry.LayoutSolid {
		return nil
	}
	out := make([]geometry.SolidVertex, cmd.VertexCount)
	for i := range out {
		out[i] = q.accumulator.SolidAt(int(cmd.VertexOffset) + i)
	}
	return out
}

func (q *queue) ReplayTextured(cmd DrawCommand) []geometry.TexturedVertex {
	if cmd.Layout != geometry.LayoutTextured {
		return nil
	}
	out := make([]geometry.TexturedVertex, cmd.VertexCount)
	for i := range out {
		out[i] = q.accumulator.TexturedAt(int(cmd.VertexOffset) + i)
	}
	return out
}

func (q *queue) Reset() {
	peak := len(q.commands)
	clear(q.commands)
	if c := cap(q.commands); c > q.trimFloor && peak < c/4 {
		q.commands = make([]DrawCommand, 0, max(q.trimFloor, peak*2))
	} else {
		q.commands = q.commands[:0]
	}
	q.accumulator.Reset()
}
