package state

// StackBuilderOption is a functional option used to configure a Stack during construction.
type StackBuilderOption func(*stack)

// WithMaxDepth bounds the number of saved states. Zero or negative leaves the stack unbounded.
//
// Parameters:
//   - depth: the maximum number of nested Push calls
//
// Returns:
//   - StackBuilderOption: a function that sets the bound
func WithMaxDepth(depth int) StackBuilderOption {
	return func(s *stack) {
		s.maxDepth = depth
	}
}
