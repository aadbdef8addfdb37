package command

import "github.com/Carmen-Shannon/oxy-2d/engine/renderer/geometry"

// QueueBuilderOption is a functional option applied to the queue during NewQueue.
type QueueBuilderOption func(*queue)

// WithTrimFloor sets the command capacity the queue keeps even after quiet frames.
//
// Parameters:
//   - n: the minimum command capacity, ignored when not positive
//
// Returns:
//   - QueueBuilderOption: a function that applies the trim floor option to a queue
func WithTrimFloor(n int) QueueBuilderOption {
	return func(q *queue) {
		if n > 0 {
			q.trimFloor = n
		}
	}
}

// WithAccumulator sets the geometry accumulator the queue appends vertices to.
//
// Parameters:
//   - a: the accumulator to use
//
// Returns:
//   - QueueBuilderOption: a function that applies the accumulator option to a queue
func WithAccumulator(a geometry.Accumulator) QueueBuilderOption {
	return func(q *queue) {
		q.accumulator = a
	}
}
