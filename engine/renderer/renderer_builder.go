package renderer

import (
	"github.com/Carmen-Shannon/oxy-2d/common"
	"github.com/Carmen-Shannon/oxy-2d/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-2d/engine/renderer/shader"
)

// RendererBuilderOption is a function that configures a renderer before it creates its resources.
type RendererBuilderOption func(*renderer)

// WithDevice uses an existing device instead of creating one for the backend type. The renderer does
// not release an injected device when creation fails.
//
// Parameters:
//   - device: the device to render with
//
// Returns:
//   - RendererBuilderOption: a function that applies the device to the renderer
func WithDevice(device backend.Device) RendererBuilderOption {
	return func(r *renderer) {
		r.device = device
	}
}

// WithCompiler replaces the default SPIR-V compiling shader compiler.
func WithCompiler(compiler shader.Compiler) RendererBuilderOption {
	return func(r *renderer) {
		r.compiler = compiler
	}
}

// WithFramesInFlight sets how many frames may be recorded before the oldest must have completed.
// Values below one are ignored.
//
// Parameters:
//   - n: the number of frames in flight
//
// Returns:
//   - RendererBuilderOption: a function that applies the frame count to the renderer
func WithFramesInFlight(n int) RendererBuilderOption {
	return func(r *renderer) {
		if n > 0 {
			r.framesInFlight = n
		}
	}
}

// WithMaxStateDepth limits the render state stack. Zero means unbounded.
func WithMaxStateDepth(depth int) RendererBuilderOption {
	return func(r *renderer) {
		r.maxStateDepth = depth
	}
}

// WithClearColor sets the clear color of the primary target.
func WithClearColor(c common.Color) RendererBuilderOption {
	return func(r *renderer) {
		r.clearColor = c
	}
}

// WithSlack sets the extra bytes reserved whenever a vertex buffer grows.
func WithSlack(bytes uint64) RendererBuilderOption {
	return func(r *renderer) {
		r.slack = bytes
	}
}

// WithSmoothFrameBuffers selects linear (true) or nearest (false) filtering when frame buffers are drawn.
func WithSmoothFrameBuffers(smooth bool) RendererBuilderOption {
	return func(r *renderer) {
		r.smoothTargets = smooth
	}
}

// WithPresentMode sets the swapchain present mode of the WebGPU backend.
//
// Parameters:
//   - mode: the present mode
//
// Returns:
//   - RendererBuilderOption: a function that forwards the present mode to the device
func WithPresentMode(mode backend.PresentMode) RendererBuilderOption {
	return func(r *renderer) {
		r.deviceOptions = append(r.deviceOptions, backend.WithPresentMode(mode))
	}
}

// WithMSAA sets the multisample count of the WebGPU backend.
func WithMSAA(count backend.MSAASampleCount) RendererBuilderOption {
	return func(r *renderer) {
		r.deviceOptions = append(r.deviceOptions, backend.WithMSAA(count))
	}
}

// WithForceSoftwareRenderer requests a fallback adapter from the WebGPU backend.
func WithForceSoftwareRenderer(force bool) RendererBuilderOption {
	return func(r *renderer) {
		r.deviceOptions = append(r.deviceOptions, backend.WithForceSoftwareRenderer(force))
	}
}
