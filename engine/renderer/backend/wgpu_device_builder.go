package backend

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// MSAASampleCount controls the number of samples used for multisample anti-aliasing (MSAA).
// WebGPU guarantees support for 1 (off) and 4.
type MSAASampleCount uint32

const (
	// MSAAOff disables multisample anti-aliasing (sample count 1). This is the default.
	MSAAOff MSAASampleCount = 1

	// MSAA4x enables 4x multisample anti-aliasing.
	MSAA4x MSAASampleCount = 4
)

// WGPUDeviceOption is a functional option applied to the WebGPU device during NewWGPUDevice.
type WGPUDeviceOption func(*wgpuDevice)

// WithPresentMode sets the surface present mode which controls how frames are delivered to the display.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Uncapped)
//
// Returns:
//   - WGPUDeviceOption: a function that applies the present mode option to a device
func WithPresentMode(mode PresentMode) WGPUDeviceOption {
	return func(d *wgpuDevice) {
		d.setPresentMode(mode)
	}
}

// WithMSAA sets the multisample anti-aliasing sample count used by every pipeline and render pass.
// Values other than MSAAOff and MSAA4x fall back to MSAAOff.
//
// Parameters:
//   - count: the MSAASampleCount to use
//
// Returns:
//   - WGPUDeviceOption: a function that applies the MSAA option to a device
func WithMSAA(count MSAASampleCount) WGPUDeviceOption {
	return func(d *wgpuDevice) {
		if count != MSAA4x {
			count = MSAAOff
		}
		d.sampleCount = count
	}
}

// WithForceSoftwareRenderer forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration. This requires a software Vulkan ICD to be installed on the system
// (e.g. SwiftShader or lavapipe).
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - WGPUDeviceOption: a function that applies the force software renderer option to a device
func WithForceSoftwareRenderer(force bool) WGPUDeviceOption {
	return func(d *wgpuDevice) {
		d.forceFallbackAdapter = force
	}
}

// WithUniformRingSize sets the initial byte size of the per-frame uniform ring buffer. The ring grows
// on demand; this only avoids early reallocations for draw heavy frames.
//
// Parameters:
//   - size: initial ring size in bytes, rounded up to the uniform alignment
//
// Returns:
//   - WGPUDeviceOption: a function that applies the ring size option to a device
func WithUniformRingSize(size uint64) WGPUDeviceOption {
	return func(d *wgpuDevice) {
		if size > 0 {
			d.uniformRingSize = alignUp(size, uniformAlignment)
		}
	}
}
