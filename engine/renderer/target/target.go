package target

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-2d/common"
	"github.com/Carmen-Shannon/oxy-2d/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-2d/engine/renderer/command"
	"github.com/Carmen-Shannon/oxy-2d/engine/renderer/texture"
	"github.com/Carmen-Shannon/oxy-2d/engine/renderer/upload"
)

// Handle addresses a target in an Arena. A handle goes stale once its target is released, even if
// the id is recycled.
type Handle struct {
	ID         uint32
	Generation uint32
}

// PrimaryHandle addresses the primary target.
var PrimaryHandle = Handle{}

func (h Handle) String() string {
	return fmt.Sprintf("target#%d.%d", h.ID, h.Generation)
}

// Target is a render destination with its own geometry, command queue and upload buffers. The primary
// target renders to the swapchain and has no texture of its own.
type Target struct {
	handle      Handle
	device      backend.Device
	gpu         backend.Texture
	tex         *texture.Texture
	smooth      bool
	queue       command.Queue
	upload      upload.Pipeline
	clear       common.Color
	size        common.Size
	invalidated bool
}

func newTarget(h Handle, device backend.Device, source command.StateSource, a *arena) *Target {
	cc := common.Transparent
	if h == PrimaryHandle {
		cc = a.primaryClear
	}
	return &Target{
		handle: h,
		device: device,
		smooth: a.smooth,
		queue:  command.NewQueue(source),
		upload: upload.NewPipeline(device, a.framesInFlight, upload.WithSlack(a.slack), upload.WithLabel(h.String())),
		clear:  cc,
	}
}

// Handle returns the handle the target was created with.
func (t *Target) Handle() Handle { return t.handle }

// IsPrimary reports whether the target renders to the swapchain.
func (t *Target) IsPrimary() bool { return t.handle == PrimaryHandle }

// Size returns the target size in pixels.
func (t *Target) Size() common.Size { return t.size }

// Queue returns the command queue draws are recorded into.
func (t *Target) Queue() command.Queue { return t.queue }

// Upload returns the per-frame vertex upload pipeline.
func (t *Target) Upload() upload.Pipeline { return t.upload }

// ClearColor returns the color the target is cleared to at the start of its pass.
func (t *Target) ClearColor() common.Color { return t.clear }

// SetClearColor changes the clear color.
func (t *Target) SetClearColor(c common.Color) { t.clear = c }

// Texture returns the sampleable view of the target's color attachment, nil for the primary target
// or before the first Resize.
func (t *Target) Texture() *texture.Texture { return t.tex }

// GPU returns the color attachment, nil for the primary target.
func (t *Target) GPU() backend.Texture { return t.gpu }

// Invalidated reports whether the texture was recreated since the flag was last cleared.
func (t *Target) Invalidated() bool { return t.invalidated }

// ClearInvalidated resets the invalidated flag.
func (t *Target) ClearInvalidated() { t.invalidated = false }

// Resize changes the target size. Off-screen targets recreate their texture, which discards its
// contents and marks the target invalidated.
//
// Parameters:
//   - size: the new size in pixels
//
// Returns:
//   - bool: true if the size or texture changed
//   - error: the device error when the texture cannot be created
func (t *Target) Resize(size common.Size) (bool, error) {
	if !size.Valid() {
		return false, nil
	}
	if t.IsPrimary() {
		if t.size == size {
			return false, nil
		}
		t.size = size
		t.invalidated = true
		return true, nil
	}
	if t.size == size && t.gpu != nil {
		return false, nil
	}

	gpu, err := t.device.CreateTexture(backend.TextureDescriptor{
		Label:  t.handle.String(),
		Width:  uint32(size.W),
		Height: uint32(size.H),
		Format: backend.TextureFormatSurface,
		Usage:  backend.TextureUsageRenderAttachment | backend.TextureUsageSampled,
	})
	if err != nil {
		return false, fmt.Errorf("target %s: resize to %dx%d: %w", t.handle, size.W, size.H, err)
	}
	t.releaseTexture()
	t.gpu = gpu
	t.tex = texture.Wrap(gpu, texture.WithLabel(t.handle.String()), texture.WithSmooth(t.smooth))
	t.size = size
	t.invalidated = true
	common.Logger().Debug("target resized", "target", t.handle.String(), "width", size.W, "height", size.H)
	return true, nil
}

func (t *Target) releaseTexture() {
	if t.tex != nil {
		t.tex.Release()
		t.tex = nil
	}
	if t.gpu != nil {
		t.gpu.Release()
		t.gpu = nil
	}
}

func (t *Target) release() {
	t.releaseTexture()
	t.upload.Release()
	t.queue.Reset()
}
