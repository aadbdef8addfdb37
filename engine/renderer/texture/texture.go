// Package texture holds images that can be sampled by textured draws. Pixel data is staged on the CPU
// and uploaded lazily at the start of the draw pass that first uses the texture, so textures may be
// created at any point of a frame.
package texture

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-2d/common"
	"github.com/Carmen-Shannon/oxy-2d/engine/renderer/backend"
)

var (
	// ErrInvalidTexture is returned for nil textures, empty images and mismatched pixel data.
	ErrInvalidTexture = errors.New("texture: invalid texture")

	// ErrUnsupportedFormat is returned when compressed pixel data matches none of the supported block formats.
	ErrUnsupportedFormat = errors.New("texture: unsupported compressed format")
)

// Texture is a 2D image sampled by textured draws. A Texture is shared by pointer between the
// caller and any draw commands recorded with it.
type Texture struct {
	label   string
	width   uint32
	height  uint32
	smooth  bool
	repeat  bool
	pending *common.TextureStagingData

	gpu     backend.Texture
	sampler backend.Sampler
	// wrapped textures borrow their GPU texture from a frame buffer target.
	wrapped bool
}

// New creates a texture from RGBA staging data. The pixels are uploaded on first use.
//
// Parameters:
//   - data: tightly packed RGBA pixels and their dimensions
//   - opts: a variadic list of TextureBuilderOption functions
//
// Returns:
//   - *Texture: the texture, pending upload
//   - error: ErrInvalidTexture when the staging data is empty or inconsistent
func New(data common.TextureStagingData, opts ...TextureBuilderOption) (*Texture, error) {
	if !data.Valid() {
		return nil, fmt.Errorf("%w: %dx%d with %d bytes", ErrInvalidTexture, data.Width, data.Height, len(data.Pixels))
	}
	t := &Texture{
		label:   "Texture",
		width:   data.Width,
		height:  data.Height,
		pending: &data,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Wrap exposes an existing GPU texture, typically the color attachment of a frame buffer, as a sampleable
// texture. The wrapped GPU texture is not owned: Release only frees the sampler.
//
// Parameters:
//   - gpu: the GPU texture to sample
//   - opts: a variadic list of TextureBuilderOption functions
//
// Returns:
//   - *Texture: the wrapping texture
func Wrap(gpu backend.Texture, opts ...TextureBuilderOption) *Texture {
	t := &Texture{
		label:   "Frame Buffer Texture",
		width:   gpu.Width(),
		height:  gpu.Height(),
		gpu:     gpu,
		wrapped: true,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Texture) Label() string  { return t.label }
func (t *Texture) Width() uint32  { return t.width }
func (t *Texture) Height() uint32 { return t.height }

// Size returns the texture dimensions in pixels.
func (t *Texture) Size() common.Size {
	return common.Size{W: int(t.width), H: int(t.height)}
}

// Smooth reports whether the texture is sampled with linear filtering.
func (t *Texture) Smooth() bool { return t.smooth }

// Repeat reports whether texture coordinates outside [0, 1] wrap around.
func (t *Texture) Repeat() bool { return t.repeat }

// SetSmooth switches between linear and nearest filtering. The sampler is rebuilt on next use.
func (t *Texture) SetSmooth(smooth bool) {
	if t.smooth != smooth {
		t.smooth = smooth
		t.dropSampler()
	}
}

// SetRepeat switches between repeat and clamp-to-edge addressing. The sampler is rebuilt on next use.
func (t *Texture) SetRepeat(repeat bool) {
	if t.repeat != repeat {
		t.repeat = repeat
		t.dropSampler()
	}
}

func (t *Texture) dropSampler() {
	if t.sampler != nil {
		t.sampler.Release()
		t.sampler = nil
	}
}

// Pending reports whether staged pixels still wait for upload.
func (t *Texture) Pending() bool {
	return t.pending != nil
}

// Valid reports whether the texture can be drawn: it has pixels either on the GPU or staged.
func (t *Texture) Valid() bool {
	return t != nil && t.width > 0 && t.height > 0 && (t.gpu != nil || t.pending != nil)
}

// UVScale returns the factors that convert pixel coordinates into normalized texture coordinates.
func (t *Texture) UVScale() (float32, float32) {
	return 1 / float32(t.width), 1 / float32(t.height)
}

// UV converts a source rectangle in pixels to normalized texture coordinates.
//
// Parameters:
//   - src: the source rectangle in texture pixels
//
// Returns:
//   - u0, v0: the top left texture coordinate
//   - u1, v1: the bottom right texture coordinate
func (t *Texture) UV(src common.Rect) (u0, v0, u1, v1 float32) {
	sx, sy := t.UVScale()
	return src.Left() * sx, src.Top() * sy, src.Right() * sx, src.Bottom() * sy
}

// Update replaces the texture pixels. The dimensions may change; the GPU texture is recreated on next use.
//
// Parameters:
//   - data: the new RGBA staging data
//
// Returns:
//   - error: ErrInvalidTexture for invalid data or for wrapped textures
func (t *Texture) Update(data common.TextureStagingData) error {
	if t.wrapped {
		return fmt.Errorf("%w: frame buffer textures cannot be updated", ErrInvalidTexture)
	}
	if !data.Valid() {
		return fmt.Errorf("%w: %dx%d with %d bytes", ErrInvalidTexture, data.Width, data.Height, len(data.Pixels))
	}
	if t.gpu != nil && (t.gpu.Width() != data.Width || t.gpu.Height() != data.Height) {
		t.gpu.Release()
		t.gpu = nil
	}
	t.width, t.height = data.Width, data.Height
	t.pending = &data
	return nil
}

// Upload creates the GPU texture and sampler when missing and writes any staged pixels.
//
// Parameters:
//   - device: the device to create resources on
//
// Returns:
//   - error: the device error; the staged pixels are kept for a later retry
func (t *Texture) Upload(device backend.Device) error {
	if t.gpu == nil {
		if t.wrapped {
			return fmt.Errorf("%w: frame buffer texture was released", ErrInvalidTexture)
		}
		gpu, err := device.CreateTexture(backend.TextureDescriptor{
			Label:  t.label,
			Width:  t.width,
			Height: t.height,
			Format: backend.TextureFormatRGBA8Unorm,
			Usage:  backend.TextureUsageSampled | backend.TextureUsageCopyDst,
		})
		if err != nil {
			return err
		}
		t.gpu = gpu
	}
	if t.pending != nil {
		if err := device.WriteTexture(t.gpu, t.pending.Pixels); err != nil {
			return err
		}
		t.pending = nil
	}
	if t.sampler == nil {
		desc := backend.SamplerDescriptor{Label: t.label + " Sampler"}
		if t.smooth {
			desc.Filter = backend.FilterModeLinear
		}
		if t.repeat {
			desc.AddressMode = backend.AddressModeRepeat
		}
		s, err := device.CreateSampler(desc)
		if err != nil {
			return err
		}
		t.sampler = s
	}
	return nil
}

// GPU returns the uploaded GPU texture, or nil before the first upload.
func (t *Texture) GPU() backend.Texture { return t.gpu }

// Sampler returns the sampler, or nil before the first upload.
func (t *Texture) Sampler() backend.Sampler { return t.sampler }

// Release frees the sampler and, unless wrapped, the GPU texture. Staged pixels are dropped.
func (t *Texture) Release() {
	t.dropSampler()
	if t.gpu != nil && !t.wrapped {
		t.gpu.Release()
	}
	t.gpu = nil
	t.pending = nil
}
