// Package backend is the boundary between the renderer and the explicit GPU API. It exposes the small
// set of resources the batching layer needs (buffers, textures, samplers, pipelines, command buffers and
// passes) behind interfaces, so the rest of the renderer never touches a concrete graphics binding.
package backend

import (
	"errors"

	"github.com/Carmen-Shannon/oxy-2d/common"
)

var (
	// ErrCommandBufferUnavailable is returned when the device cannot hand out a command buffer this frame.
	ErrCommandBufferUnavailable = errors.New("backend: command buffer unavailable")

	// ErrSwapchainUnavailable is returned when no swapchain image can be acquired, for example while minimized.
	ErrSwapchainUnavailable = errors.New("backend: swapchain image unavailable")

	// ErrInvalidDescriptor is returned when a resource descriptor has zero or inconsistent dimensions.
	ErrInvalidDescriptor = errors.New("backend: invalid resource descriptor")

	// ErrMapOutOfRange is returned when a mapping exceeds the buffer size.
	ErrMapOutOfRange = errors.New("backend: map range out of bounds")

	// ErrNotMapped is returned by Unmap on a buffer without an active mapping.
	ErrNotMapped = errors.New("backend: buffer is not mapped")

	// ErrAlreadyMapped is returned by Map on a buffer that is still mapped.
	ErrAlreadyMapped = errors.New("backend: buffer is already mapped")

	// ErrCommandBufferDone is returned when a submitted or cancelled command buffer is used again.
	ErrCommandBufferDone = errors.New("backend: command buffer already submitted or cancelled")
)

// Primitive is the topology used to assemble vertices.
type Primitive int

const (
	// PrimitivePointList draws every vertex as a point.
	PrimitivePointList Primitive = iota
	// PrimitiveLineList draws a line for every pair of vertices.
	PrimitiveLineList
	// PrimitiveLineStrip draws connected lines through all vertices.
	PrimitiveLineStrip
	// PrimitiveTriangleList draws a triangle for every three vertices.
	PrimitiveTriangleList
	// PrimitiveTriangleStrip draws triangles sharing the last two vertices of the previous one.
	PrimitiveTriangleStrip
)

// Primitives lists every primitive topology in declaration order.
var Primitives = []Primitive{
	PrimitivePointList,
	PrimitiveLineList,
	PrimitiveLineStrip,
	PrimitiveTriangleList,
	PrimitiveTriangleStrip,
}

func (p Primitive) String() string {
	switch p {
	case PrimitivePointList:
		return "points"
	case PrimitiveLineList:
		return "lines"
	case PrimitiveLineStrip:
		return "line-strip"
	case PrimitiveTriangleList:
		return "triangles"
	case PrimitiveTriangleStrip:
		return "triangle-strip"
	default:
		return "unknown"
	}
}

// BlendFactor is a multiplier applied to the source or destination color during blending.
type BlendFactor int

const (
	BlendFactorZero BlendFactor = iota
	BlendFactorOne
	BlendFactorSrcColor
	BlendFactorOneMinusSrcColor
	BlendFactorSrcAlpha
	BlendFactorOneMinusSrcAlpha
	BlendFactorDstColor
	BlendFactorOneMinusDstColor
	BlendFactorDstAlpha
	BlendFactorOneMinusDstAlpha
)

// BlendComponent describes src*Src + dst*Dst for either the color or the alpha channel.
type BlendComponent struct {
	Src, Dst BlendFactor
}

// BlendState is the fixed-function blend configuration of a pipeline. A nil *BlendState disables blending.
type BlendState struct {
	Color, Alpha BlendComponent
}

// VertexFormat is the data type of a single vertex attribute.
type VertexFormat int

const (
	VertexFormatFloat32 VertexFormat = iota
	VertexFormatFloat32x2
	VertexFormatFloat32x3
	VertexFormatFloat32x4
	VertexFormatUint32
	VertexFormatSint32
)

// Size returns the byte size of the format.
func (f VertexFormat) Size() uint64 {
	switch f {
	case VertexFormatFloat32x2:
		return 8
	case VertexFormatFloat32x3:
		return 12
	case VertexFormatFloat32x4:
		return 16
	default:
		return 4
	}
}

// VertexAttribute places one shader input inside a vertex.
type VertexAttribute struct {
	Format   VertexFormat
	Offset   uint64
	Location uint32
}

// VertexLayout describes the interleaved vertex buffer consumed by a pipeline.
type VertexLayout struct {
	Stride     uint64
	Attributes []VertexAttribute
}

// BufferUsage is a bit set of the ways a buffer may be used.
type BufferUsage uint32

const (
	// BufferUsageVertex allows binding the buffer as a vertex buffer.
	BufferUsageVertex BufferUsage = 1 << iota
	// BufferUsageCopySrc allows the buffer to be the source of a copy.
	BufferUsageCopySrc
	// BufferUsageCopyDst allows the buffer to be the destination of a copy or queue write.
	BufferUsageCopyDst
	// BufferUsageUpload marks a CPU writable staging buffer that can be mapped.
	BufferUsageUpload
)

// TextureUsage is a bit set of the ways a texture may be used.
type TextureUsage uint32

const (
	// TextureUsageRenderAttachment allows rendering into the texture.
	TextureUsageRenderAttachment TextureUsage = 1 << iota
	// TextureUsageSampled allows sampling the texture from a shader.
	TextureUsageSampled
	// TextureUsageCopyDst allows uploading pixels into the texture.
	TextureUsageCopyDst
)

// TextureFormat is the pixel format of a texture.
type TextureFormat int

const (
	// TextureFormatSurface resolves to the format of the presentation surface. Off-screen targets use it so
	// that the same pipelines can render into them and into the swapchain.
	TextureFormatSurface TextureFormat = iota
	// TextureFormatRGBA8Unorm is 8-bit RGBA, the layout of decoded images.
	TextureFormatRGBA8Unorm
	// TextureFormatBGRA8Unorm is 8-bit BGRA, the common swapchain layout.
	TextureFormatBGRA8Unorm
)

// AddressMode controls sampling outside the [0, 1] texture coordinate range.
type AddressMode int

const (
	AddressModeClampToEdge AddressMode = iota
	AddressModeRepeat
)

// FilterMode controls texel filtering.
type FilterMode int

const (
	FilterModeNearest FilterMode = iota
	FilterModeLinear
)

// BufferDescriptor describes a buffer to create.
type BufferDescriptor struct {
	Label string
	Size  uint64
	Usage BufferUsage
}

// TextureDescriptor describes a 2D texture to create.
type TextureDescriptor struct {
	Label  string
	Width  uint32
	Height uint32
	Format TextureFormat
	Usage  TextureUsage
}

// SamplerDescriptor describes a sampler to create.
type SamplerDescriptor struct {
	Label       string
	AddressMode AddressMode
	Filter      FilterMode
}

// ShaderModule is a compiled shader stage handed to the device.
type ShaderModule struct {
	Label      string
	Source     string
	EntryPoint string
	Bytecode   []byte
}

// PipelineDescriptor describes a render pipeline. Every pipeline binds a uniform block at group 0;
// textured pipelines additionally bind a texture and sampler at group 1.
type PipelineDescriptor struct {
	Label        string
	Vertex       ShaderModule
	Fragment     ShaderModule
	VertexLayout VertexLayout
	Primitive    Primitive
	Blend        *BlendState
	Textured     bool
	UniformSize  uint64
}

// RenderPassDescriptor describes the single color attachment of a render pass.
// The attachment is always cleared to ClearColor when the pass begins.
type RenderPassDescriptor struct {
	Target     Texture
	ClearColor common.Color
}

// Device is the GPU device the renderer draws with.
type Device interface {
	// Name identifies the backend implementation, for example "wgpu" or "recording".
	//
	// Returns:
	//   - string: the backend name
	Name() string

	// CreateBuffer allocates a GPU buffer.
	//
	// Parameters:
	//   - desc: the buffer size, usage and label
	//
	// Returns:
	//   - Buffer: the created buffer
	//   - error: ErrInvalidDescriptor for a zero size, or the driver error
	CreateBuffer(desc BufferDescriptor) (Buffer, error)

	// CreateTexture allocates a 2D texture.
	//
	// Parameters:
	//   - desc: the texture dimensions, format and usage
	//
	// Returns:
	//   - Texture: the created texture
	//   - error: ErrInvalidDescriptor for zero dimensions, or the driver error
	CreateTexture(desc TextureDescriptor) (Texture, error)

	// WriteTexture uploads tightly packed RGBA pixels covering the whole texture.
	//
	// Parameters:
	//   - tex: the destination texture, created with TextureUsageCopyDst
	//   - pixels: width*height*4 bytes
	//
	// Returns:
	//   - error: ErrInvalidDescriptor when the pixel count does not match the texture
	WriteTexture(tex Texture, pixels []byte) error

	// CreateSampler creates a texture sampler.
	//
	// Parameters:
	//   - desc: the address and filter modes
	//
	// Returns:
	//   - Sampler: the created sampler
	//   - error: the driver error, if any
	CreateSampler(desc SamplerDescriptor) (Sampler, error)

	// CreatePipeline builds an immutable render pipeline.
	//
	// Parameters:
	//   - desc: shaders, vertex layout, topology and blend state
	//
	// Returns:
	//   - Pipeline: the created pipeline
	//   - error: the shader or pipeline creation error
	CreatePipeline(desc PipelineDescriptor) (Pipeline, error)

	// AcquireCommandBuffer starts recording a new command buffer.
	//
	// Returns:
	//   - CommandBuffer: the command buffer to record into
	//   - error: ErrCommandBufferUnavailable when the device cannot provide one right now
	AcquireCommandBuffer() (CommandBuffer, error)

	// ConfigureSurface (re)configures the presentation surface. Must be called on window resize.
	//
	// Parameters:
	//   - width: surface width in pixels
	//   - height: surface height in pixels
	ConfigureSurface(width, height int)

	// SurfaceSize returns the size the surface was last configured with.
	//
	// Returns:
	//   - common.Size: the surface size in pixels
	SurfaceSize() common.Size

	// Release frees every device level resource.
	Release()
}

// Buffer is a GPU buffer.
type Buffer interface {
	// Size returns the buffer size in bytes.
	Size() uint64

	// Map exposes a CPU writable view of a range of an upload buffer.
	//
	// Parameters:
	//   - offset: start of the range in bytes
	//   - size: length of the range in bytes
	//
	// Returns:
	//   - []byte: the writable range, valid until Unmap
	//   - error: ErrMapOutOfRange or ErrAlreadyMapped
	Map(offset, size uint64) ([]byte, error)

	// Unmap publishes the bytes written through the last Map.
	//
	// Returns:
	//   - error: ErrNotMapped without an active mapping
	Unmap() error

	// Release frees the buffer. Safe to call more than once.
	Release()
}

// Texture is a 2D GPU texture or a swapchain image.
type Texture interface {
	Width() uint32
	Height() uint32
	Format() TextureFormat
	// Release frees the texture. Safe to call more than once.
	Release()
}

// Sampler is a texture sampler.
type Sampler interface {
	Release()
}

// Pipeline is an immutable render pipeline.
type Pipeline interface {
	Label() string
	Release()
}

// Fence signals completion of submitted work.
type Fence interface {
	// Wait blocks until the GPU has finished the submitted command buffer.
	Wait()
}

// CommandBuffer records copy and render passes for one submission.
type CommandBuffer interface {
	// AcquireSwapchain acquires the next presentable image. Repeated calls return the same image.
	//
	// Returns:
	//   - Texture: the swapchain image, presented on Submit
	//   - error: ErrSwapchainUnavailable when no image is ready
	AcquireSwapchain() (Texture, error)

	// BeginCopyPass starts a copy pass. Only one pass may be open at a time.
	//
	// Returns:
	//   - CopyPass: the open copy pass
	//   - error: ErrCommandBufferDone after Submit or Cancel
	BeginCopyPass() (CopyPass, error)

	// BeginRenderPass starts a render pass clearing the target.
	//
	// Parameters:
	//   - desc: the color attachment and clear color
	//
	// Returns:
	//   - RenderPass: the open render pass
	//   - error: ErrCommandBufferDone after Submit or Cancel
	BeginRenderPass(desc RenderPassDescriptor) (RenderPass, error)

	// Submit finishes recording, queues the work and presents an acquired swapchain image.
	//
	// Returns:
	//   - Fence: signals when the GPU finished the work
	//   - error: ErrCommandBufferDone after Submit or Cancel, or the driver error
	Submit() (Fence, error)

	// Cancel discards the recorded work. Safe to call after Submit and more than once.
	Cancel()
}

// CopyPass records buffer to buffer copies.
type CopyPass interface {
	// UploadBuffer copies size bytes from src at srcOffset into dst at dstOffset.
	UploadBuffer(src Buffer, srcOffset uint64, dst Buffer, dstOffset, size uint64)
	End()
}

// RenderPass records draw commands into one target.
type RenderPass interface {
	SetPipeline(p Pipeline)
	// SetVertexBuffer binds buf starting at offset bytes; firstVertex in Draw is relative to offset.
	SetVertexBuffer(buf Buffer, offset uint64)
	SetTexture(tex Texture, sampler Sampler)
	// PushUniform sets the uniform block at group 0 for the following draws.
	PushUniform(data []byte)
	SetViewport(x, y, width, height float32)
	SetScissor(x, y, width, height uint32)
	Draw(vertexCount, instanceCount, firstVertex uint32)
	End()
}
