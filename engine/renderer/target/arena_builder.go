package target

import "github.com/Carmen-Shannon/oxy-2d/common"

// ArenaBuilderOption is a functional option used to configure an Arena during construction.
type ArenaBuilderOption func(*arena)

// WithFramesInFlight sets the number of upload slots per target.
//
// Parameters:
//   - n: frames in flight
//
// Returns:
//   - ArenaBuilderOption: a function that sets the slot count
func WithFramesInFlight(n int) ArenaBuilderOption {
	return func(a *arena) {
		if n > 0 {
			a.framesInFlight = n
		}
	}
}

// WithSlack sets the upload buffer growth headroom in bytes.
func WithSlack(bytes uint64) ArenaBuilderOption {
	return func(a *arena) {
		a.slack = bytes
	}
}

// WithSmoothTargets selects linear filtering when off-screen targets are sampled.
func WithSmoothTargets(smooth bool) ArenaBuilderOption {
	return func(a *arena) {
		a.smooth = smooth
	}
}

// WithPrimaryClearColor sets the color the primary target is cleared to.
//
// Parameters:
//   - c: the clear color
//
// Returns:
//   - ArenaBuilderOption: a function that sets the clear color
func WithPrimaryClearColor(c common.Color) ArenaBuilderOption {
	return func(a *arena) {
		a.primaryClear = c
	}
}
