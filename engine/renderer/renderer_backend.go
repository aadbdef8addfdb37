package renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-2d/engine/renderer/backend"
	"github.com/cogentcore/webgpu/wgpu"
)

// RendererBackendType identifies the GPU backend implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based rendering backend.
	BackendTypeWGPU RendererBackendType = iota

	// BackendTypeRecording selects the headless backend that records every GPU call.
	BackendTypeRecording
)

func (t RendererBackendType) String() string {
	switch t {
	case BackendTypeWGPU:
		return "wgpu"
	case BackendTypeRecording:
		return "recording"
	default:
		return fmt.Sprintf("RendererBackendType(%d)", int(t))
	}
}

// Surface is the presentation target a renderer draws its primary target into. window.Window
// satisfies it.
type Surface interface {
	// SurfaceDescriptor returns the platform surface descriptor for the WebGPU backend.
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// Width returns the drawable width in pixels.
	Width() int

	// Height returns the drawable height in pixels.
	Height() int
}

// newDevice creates the device for a backend type. Backend construction panics on fatal adapter or
// device failures; the panic is returned as an error.
func newDevice(backendType RendererBackendType, surface Surface, opts []backend.WGPUDeviceOption) (dev backend.Device, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			dev = nil
			err = fmt.Errorf("%w: %v", ErrDeviceUnavailable, rec)
		}
	}()

	switch backendType {
	case BackendTypeWGPU:
		if surface == nil || surface.SurfaceDescriptor() == nil {
			return nil, fmt.Errorf("%w: no surface to present to", ErrDeviceUnavailable)
		}
		dev = backend.NewWGPUDevice(surface.SurfaceDescriptor(), opts...)
	case BackendTypeRecording:
		dev = backend.NewRecordingDevice()
	default:
		return nil, fmt.Errorf("%w: unknown backend %s", ErrDeviceUnavailable, backendType)
	}
	if surface != nil {
		dev.ConfigureSurface(surface.Width(), surface.Height())
	}
	return dev, nil
}
