package geometry

// AccumulatorBuilderOption is a functional option applied to the accumulator during NewAccumulator.
type AccumulatorBuilderOption func(*accumulator)

// WithInitialCapacity sets the number of vertices initially reserved for each layout.
//
// Parameters:
//   - n: the initial capacity in vertices, ignored when not positive
//
// Returns:
//   - AccumulatorBuilderOption: a function that applies the capacity option to an accumulator
func WithInitialCapacity(n int) AccumulatorBuilderOption {
	return func(a *accumulator) {
		if n > 0 {
			a.initialCapacity = n
		}
	}
}
