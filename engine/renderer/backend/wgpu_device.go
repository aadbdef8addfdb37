package backend

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-2d/common"
	"github.com/cogentcore/webgpu/wgpu"
)

const (
	// uniformAlignment is the WebGPU default minUniformBufferOffsetAlignment.
	uniformAlignment = 256
	// uniformBindingSize is the window of the ring visible to one draw.
	uniformBindingSize = 256
	// defaultUniformRingSize holds 1024 uniform pushes before the ring grows.
	defaultUniformRingSize = 1024 * uniformAlignment
	// copyAlignment is the required alignment of queue writes and buffer copies.
	copyAlignment = 4
)

func alignUp(v, alignment uint64) uint64 {
	return (v + alignment - 1) &^ (alignment - 1)
}

// wgpuDevice implements Device on top of WebGPU. Every pipeline shares two bind group layouts:
// group 0 holds a dynamic-offset uniform buffer fed from a per-frame ring, group 1 holds the
// texture and sampler of textured pipelines.
type wgpuDevice struct {
	mu       *sync.Mutex
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	surface  *wgpu.Surface

	surfaceFormat        wgpu.TextureFormat
	surfaceSize          common.Size
	presentMode          wgpu.PresentMode
	sampleCount          MSAASampleCount
	forceFallbackAdapter bool

	uniformLayout  *wgpu.BindGroupLayout
	textureLayout  *wgpu.BindGroupLayout
	solidLayout    *wgpu.PipelineLayout
	texturedLayout *wgpu.PipelineLayout

	uniformRingSize   uint64
	ring              *uniformRing
	textureBindGroups map[textureBinding]*wgpu.BindGroup

	// MSAA color attachments, resolved into the swapchain image or an off-screen texture.
	surfaceMSAA *msaaTarget
	msaaTargets map[*wgpuTexture]*msaaTarget
}

type uniformRing struct {
	buffer    *wgpu.Buffer
	bindGroup *wgpu.BindGroup
	size      uint64
	cursor    uint64
}

type textureBinding struct {
	texture *wgpuTexture
	sampler *wgpuSampler
}

type msaaTarget struct {
	texture       *wgpu.Texture
	view          *wgpu.TextureView
	width, height uint32
}

var _ Device = &wgpuDevice{}

// NewWGPUDevice creates the WebGPU instance, surface, adapter and device for the given window surface.
// Like the rest of the engine's initialization it panics when no adapter or device can be obtained.
//
// Parameters:
//   - surfaceDescriptor: the platform surface descriptor of the window to present into
//   - opts: a variadic list of WGPUDeviceOption functions
//
// Returns:
//   - Device: the ready to use device; ConfigureSurface must be called before the first frame
func NewWGPUDevice(surfaceDescriptor *wgpu.SurfaceDescriptor, opts ...WGPUDeviceOption) Device {
	runtime.LockOSThread()
	d := &wgpuDevice{
		mu:                &sync.Mutex{},
		instance:          wgpu.CreateInstance(nil),
		presentMode:       wgpu.PresentModeFifo,
		sampleCount:       MSAAOff,
		uniformRingSize:   defaultUniformRingSize,
		textureBindGroups: make(map[textureBinding]*wgpu.BindGroup),
		msaaTargets:       make(map[*wgpuTexture]*msaaTarget),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.surface = d.instance.CreateSurface(surfaceDescriptor)

	a, err := d.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: d.forceFallbackAdapter,
		CompatibleSurface:    d.surface,
	})
	if err != nil {
		panic(err)
	}
	d.adapter = a

	dev, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "2D Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		panic(err)
	}
	d.device = dev
	d.queue = dev.GetQueue()

	capabilities := d.surface.GetCapabilities(d.adapter)
	d.surfaceFormat = capabilities.Formats[0]

	if err := d.createLayouts(); err != nil {
		panic(err)
	}
	if d.ring, err = d.newUniformRing(d.uniformRingSize); err != nil {
		panic(err)
	}

	common.Logger().Info("wgpu device created",
		"fallback", d.forceFallbackAdapter,
		"msaa", uint32(d.sampleCount),
		"surfaceFormat", d.surfaceFormat)
	return d
}

func (d *wgpuDevice) setPresentMode(mode PresentMode) {
	switch mode {
	case PresentModeUncapped:
		d.presentMode = wgpu.PresentModeImmediate
	default:
		d.presentMode = wgpu.PresentModeFifo
	}
}

func (d *wgpuDevice) createLayouts() error {
	var err error
	d.uniformLayout, err = d.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Uniform Bind Group Layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
				Buffer: wgpu.BufferBindingLayout{
					Type:             wgpu.BufferBindingTypeUniform,
					HasDynamicOffset: true,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create uniform bind group layout: %w", err)
	}

	d.textureLayout, err = d.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Texture Bind Group Layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageFragment,
				Sampler: wgpu.SamplerBindingLayout{
					Type: wgpu.SamplerBindingTypeFiltering,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create texture bind group layout: %w", err)
	}

	d.solidLayout, err = d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "Solid Pipeline Layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{d.uniformLayout},
	})
	if err != nil {
		return err
	}
	d.texturedLayout, err = d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "Textured Pipeline Layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{d.uniformLayout, d.textureLayout},
	})
	return err
}

func (d *wgpuDevice) newUniformRing(size uint64) (*uniformRing, error) {
	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Uniform Ring",
		Size:  size,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	bg, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Uniform Ring Bind Group",
		Layout: d.uniformLayout,
		Entries: []wgpu.BindGroupEntry{
			{
				Binding: 0,
				Buffer:  buf,
				Offset:  0,
				Size:    uniformBindingSize,
			},
		},
	})
	if err != nil {
		buf.Release()
		return nil, err
	}
	return &uniformRing{buffer: buf, bindGroup: bg, size: size}, nil
}

// pushUniform writes data into the next ring slot and returns the bind group and dynamic offset to bind.
func (d *wgpuDevice) pushUniform(data []byte) (*wgpu.BindGroup, uint32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(data) > uniformBindingSize {
		return nil, 0, fmt.Errorf("%w: uniform block of %d bytes exceeds %d", ErrInvalidDescriptor, len(data), uniformBindingSize)
	}
	if d.ring.cursor+uniformBindingSize > d.ring.size {
		grown, err := d.newUniformRing(d.ring.size * 2)
		if err != nil {
			return nil, 0, err
		}
		common.Logger().Debug("uniform ring grown", "bytes", grown.size)
		d.ring.bindGroup.Release()
		d.ring.buffer.Release()
		d.ring = grown
	}

	offset := d.ring.cursor
	padded := data
	if rem := len(data) % copyAlignment; rem != 0 {
		padded = make([]byte, len(data)+copyAlignment-rem)
		copy(padded, data)
	}
	if err := d.queue.WriteBuffer(d.ring.buffer, offset, padded); err != nil {
		return nil, 0, err
	}
	d.ring.cursor += uniformAlignment
	return d.ring.bindGroup, uint32(offset), nil
}

func (d *wgpuDevice) textureBindGroup(t *wgpuTexture, s *wgpuSampler) (*wgpu.BindGroup, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := textureBinding{texture: t, sampler: s}
	if bg, ok := d.textureBindGroups[key]; ok {
		return bg, nil
	}
	bg, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  t.label + " Bind Group",
		Layout: d.textureLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: t.view},
			{Binding: 1, Sampler: s.sampler},
		},
	})
	if err != nil {
		return nil, err
	}
	d.textureBindGroups[key] = bg
	return bg, nil
}

// forgetBindGroups releases cached bind groups referencing a released texture or sampler.
func (d *wgpuDevice) forgetBindGroups(t *wgpuTexture, s *wgpuSampler) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for key, bg := range d.textureBindGroups {
		if (t != nil && key.texture == t) || (s != nil && key.sampler == s) {
			bg.Release()
			delete(d.textureBindGroups, key)
		}
	}
	if t != nil {
		if m, ok := d.msaaTargets[t]; ok {
			m.release()
			delete(d.msaaTargets, t)
		}
	}
}

// msaaView returns the multisampled attachment for a target of the given size, recreating it on resize.
func (d *wgpuDevice) msaaView(target *wgpuTexture) (*wgpu.TextureView, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	current := d.surfaceMSAA
	if !target.swapchain {
		current = d.msaaTargets[target]
	}
	if current != nil && current.width == target.width && current.height == target.height {
		return current.view, nil
	}
	if current != nil {
		current.release()
	}

	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "MSAA Texture",
		Size: wgpu.Extent3D{
			Width:              target.width,
			Height:             target.height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   uint32(d.sampleCount),
		Dimension:     wgpu.TextureDimension2D,
		Format:        target.wgpuFormat,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return nil, err
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, err
	}
	m := &msaaTarget{texture: tex, view: view, width: target.width, height: target.height}
	if target.swapchain {
		d.surfaceMSAA = m
	} else {
		d.msaaTargets[target] = m
	}
	return view, nil
}

func (m *msaaTarget) release() {
	m.view.Release()
	m.texture.Release()
}

func (d *wgpuDevice) Name() string {
	return "wgpu"
}

func (d *wgpuDevice) CreateBuffer(desc BufferDescriptor) (Buffer, error) {
	if desc.Size == 0 {
		return nil, fmt.Errorf("%w: buffer %q has zero size", ErrInvalidDescriptor, desc.Label)
	}
	size := alignUp(desc.Size, copyAlignment)

	var usage wgpu.BufferUsage
	if desc.Usage&BufferUsageVertex != 0 {
		usage |= wgpu.BufferUsageVertex
	}
	if desc.Usage&BufferUsageCopySrc != 0 {
		usage |= wgpu.BufferUsageCopySrc
	}
	if desc.Usage&BufferUsageCopyDst != 0 {
		usage |= wgpu.BufferUsageCopyDst
	}
	if desc.Usage&BufferUsageUpload != 0 {
		usage |= wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            desc.Label,
		Size:             size,
		Usage:            usage,
		MappedAtCreation: false,
	})
	if err != nil {
		return nil, err
	}
	return &wgpuBuffer{d: d, buffer: buf, size: size, upload: desc.Usage&BufferUsageUpload != 0}, nil
}

func (d *wgpuDevice) CreateTexture(desc TextureDescriptor) (Texture, error) {
	if desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("%w: texture %q is %dx%d", ErrInvalidDescriptor, desc.Label, desc.Width, desc.Height)
	}

	var usage wgpu.TextureUsage
	if desc.Usage&TextureUsageRenderAttachment != 0 {
		usage |= wgpu.TextureUsageRenderAttachment
	}
	if desc.Usage&TextureUsageSampled != 0 {
		usage |= wgpu.TextureUsageTextureBinding
	}
	if desc.Usage&TextureUsageCopyDst != 0 {
		usage |= wgpu.TextureUsageCopyDst
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	format := d.toWGPUFormat(desc.Format)
	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: desc.Label,
		Size: wgpu.Extent3D{
			Width:              desc.Width,
			Height:             desc.Height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         usage,
	})
	if err != nil {
		return nil, err
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, err
	}
	return &wgpuTexture{
		d:          d,
		label:      desc.Label,
		texture:    tex,
		view:       view,
		width:      desc.Width,
		height:     desc.Height,
		format:     desc.Format,
		wgpuFormat: format,
	}, nil
}

func (d *wgpuDevice) toWGPUFormat(f TextureFormat) wgpu.TextureFormat {
	switch f {
	case TextureFormatRGBA8Unorm:
		return wgpu.TextureFormatRGBA8Unorm
	case TextureFormatBGRA8Unorm:
		return wgpu.TextureFormatBGRA8Unorm
	default:
		return d.surfaceFormat
	}
}

func (d *wgpuDevice) WriteTexture(tex Texture, pixels []byte) error {
	t, ok := tex.(*wgpuTexture)
	if !ok || t.texture == nil {
		return fmt.Errorf("%w: texture was not created by this device", ErrInvalidDescriptor)
	}
	if uint64(len(pixels)) != uint64(t.width)*uint64(t.height)*4 {
		return fmt.Errorf("%w: %d bytes for a %dx%d texture", ErrInvalidDescriptor, len(pixels), t.width, t.height)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  t.texture,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  t.width * 4,
			RowsPerImage: t.height,
		},
		&wgpu.Extent3D{
			Width:              t.width,
			Height:             t.height,
			DepthOrArrayLayers: 1,
		},
	)
	return nil
}

func (d *wgpuDevice) CreateSampler(desc SamplerDescriptor) (Sampler, error) {
	address := wgpu.AddressModeClampToEdge
	if desc.AddressMode == AddressModeRepeat {
		address = wgpu.AddressModeRepeat
	}
	filter := wgpu.FilterModeNearest
	if desc.Filter == FilterModeLinear {
		filter = wgpu.FilterModeLinear
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	s, err := d.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         common.Coalesce(desc.Label, "Sampler"),
		AddressModeU:  address,
		AddressModeV:  address,
		AddressModeW:  address,
		MagFilter:     filter,
		MinFilter:     filter,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return nil, err
	}
	return &wgpuSampler{d: d, sampler: s}, nil
}

var wgpuTopologyMap = map[Primitive]wgpu.PrimitiveTopology{
	PrimitivePointList:     wgpu.PrimitiveTopologyPointList,
	PrimitiveLineList:      wgpu.PrimitiveTopologyLineList,
	PrimitiveLineStrip:     wgpu.PrimitiveTopologyLineStrip,
	PrimitiveTriangleList:  wgpu.PrimitiveTopologyTriangleList,
	PrimitiveTriangleStrip: wgpu.PrimitiveTopologyTriangleStrip,
}

var wgpuBlendFactorMap = map[BlendFactor]wgpu.BlendFactor{
	BlendFactorZero:             wgpu.BlendFactorZero,
	BlendFactorOne:              wgpu.BlendFactorOne,
	BlendFactorSrcColor:         wgpu.BlendFactorSrc,
	BlendFactorOneMinusSrcColor: wgpu.BlendFactorOneMinusSrc,
	BlendFactorSrcAlpha:         wgpu.BlendFactorSrcAlpha,
	BlendFactorOneMinusSrcAlpha: wgpu.BlendFactorOneMinusSrcAlpha,
	BlendFactorDstColor:         wgpu.BlendFactorDst,
	BlendFactorOneMinusDstColor: wgpu.BlendFactorOneMinusDst,
	BlendFactorDstAlpha:         wgpu.BlendFactorDstAlpha,
	BlendFactorOneMinusDstAlpha: wgpu.BlendFactorOneMinusDstAlpha,
}

var wgpuVertexFormatMap = map[VertexFormat]wgpu.VertexFormat{
	VertexFormatFloat32:   wgpu.VertexFormatFloat32,
	VertexFormatFloat32x2: wgpu.VertexFormatFloat32x2,
	VertexFormatFloat32x3: wgpu.VertexFormatFloat32x3,
	VertexFormatFloat32x4: wgpu.VertexFormatFloat32x4,
	VertexFormatUint32:    wgpu.VertexFormatUint32,
	VertexFormatSint32:    wgpu.VertexFormatSint32,
}

func toWGPUBlendState(b *BlendState) *wgpu.BlendState {
	if b == nil {
		return nil
	}
	return &wgpu.BlendState{
		Color: wgpu.BlendComponent{
			SrcFactor: wgpuBlendFactorMap[b.Color.Src],
			DstFactor: wgpuBlendFactorMap[b.Color.Dst],
			Operation: wgpu.BlendOperationAdd,
		},
		Alpha: wgpu.BlendComponent{
			SrcFactor: wgpuBlendFactorMap[b.Alpha.Src],
			DstFactor: wgpuBlendFactorMap[b.Alpha.Dst],
			Operation: wgpu.BlendOperationAdd,
		},
	}
}

func (d *wgpuDevice) CreatePipeline(desc PipelineDescriptor) (Pipeline, error) {
	if desc.Vertex.EntryPoint == "" || desc.Fragment.EntryPoint == "" {
		return nil, fmt.Errorf("%w: pipeline %q is missing an entry point", ErrInvalidDescriptor, desc.Label)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	vs, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: desc.Vertex.Label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: desc.Vertex.Source,
		},
	})
	if err != nil {
		return nil, err
	}
	defer vs.Release()
	fs, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: desc.Fragment.Label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: desc.Fragment.Source,
		},
	})
	if err != nil {
		return nil, err
	}
	defer fs.Release()

	attrs := make([]wgpu.VertexAttribute, 0, len(desc.VertexLayout.Attributes))
	for _, a := range desc.VertexLayout.Attributes {
		attrs = append(attrs, wgpu.VertexAttribute{
			Format:         wgpuVertexFormatMap[a.Format],
			Offset:         a.Offset,
			ShaderLocation: a.Location,
		})
	}

	layout := d.solidLayout
	if desc.Textured {
		layout = d.texturedLayout
	}

	created, err := d.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     vs,
			EntryPoint: desc.Vertex.EntryPoint,
			Buffers: []wgpu.VertexBufferLayout{
				{
					ArrayStride: desc.VertexLayout.Stride,
					StepMode:    wgpu.VertexStepModeVertex,
					Attributes:  attrs,
				},
			},
		},
		Fragment: &wgpu.FragmentState{
			Module:     fs,
			EntryPoint: desc.Fragment.EntryPoint,
			Targets: []wgpu.ColorTargetState{
				{
					Format:    d.surfaceFormat,
					Blend:     toWGPUBlendState(desc.Blend),
					WriteMask: wgpu.ColorWriteMaskAll,
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpuTopologyMap[desc.Primitive],
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: uint32(d.sampleCount),
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline %q: %w", desc.Label, err)
	}
	return &wgpuPipeline{label: desc.Label, pipeline: created}, nil
}

func (d *wgpuDevice) AcquireCommandBuffer() (CommandBuffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	encoder, err := d.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCommandBufferUnavailable, err)
	}
	d.ring.cursor = 0
	return &wgpuCommandBuffer{d: d, encoder: encoder}, nil
}

func (d *wgpuDevice) ConfigureSurface(width, height int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.surfaceSize = common.Size{W: width, H: height}
	if !d.surfaceSize.Valid() {
		return
	}

	capabilities := d.surface.GetCapabilities(d.adapter)
	d.surfaceFormat = capabilities.Formats[0]

	d.surface.Configure(d.adapter, d.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      d.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: d.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})
}

func (d *wgpuDevice) SurfaceSize() common.Size {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.surfaceSize
}

func (d *wgpuDevice) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for key, bg := range d.textureBindGroups {
		bg.Release()
		delete(d.textureBindGroups, key)
	}
	for key, m := range d.msaaTargets {
		m.release()
		delete(d.msaaTargets, key)
	}
	if d.surfaceMSAA != nil {
		d.surfaceMSAA.release()
		d.surfaceMSAA = nil
	}
	if d.ring != nil {
		d.ring.bindGroup.Release()
		d.ring.buffer.Release()
		d.ring = nil
	}
	d.solidLayout.Release()
	d.texturedLayout.Release()
	d.uniformLayout.Release()
	d.textureLayout.Release()
	d.queue.Release()
	d.device.Release()
	d.adapter.Release()
	d.surface.Release()
	d.instance.Release()
}

type wgpuBuffer struct {
	d        *wgpuDevice
	buffer   *wgpu.Buffer
	size     uint64
	upload   bool
	shadow   []byte
	mapOff   uint64
	mapSize  uint64
	mapped   bool
	released bool
}

func (b *wgpuBuffer) Size() uint64 {
	return b.size
}

// Map hands out a range of a CPU shadow copy. Unmap forwards the range through the queue, which orders
// the write before any copy recorded in the next submission.
func (b *wgpuBuffer) Map(offset, size uint64) ([]byte, error) {
	if b.mapped {
		return nil, ErrAlreadyMapped
	}
	if offset+size > b.size {
		return nil, fmt.Errorf("%w: [%d, %d) of %d bytes", ErrMapOutOfRange, offset, offset+size, b.size)
	}
	if b.shadow == nil {
		b.shadow = make([]byte, b.size)
	}
	b.mapped = true
	b.mapOff = offset
	b.mapSize = size
	return b.shadow[offset : offset+size], nil
}

func (b *wgpuBuffer) Unmap() error {
	if !b.mapped {
		return ErrNotMapped
	}
	b.mapped = false
	if b.mapSize == 0 {
		return nil
	}
	end := min(alignUp(b.mapOff+b.mapSize, copyAlignment), b.size)

	b.d.mu.Lock()
	defer b.d.mu.Unlock()
	return b.d.queue.WriteBuffer(b.buffer, b.mapOff, b.shadow[b.mapOff:end])
}

func (b *wgpuBuffer) Release() {
	if b.released {
		return
	}
	b.released = true
	b.buffer.Release()
	b.shadow = nil
}

type wgpuTexture struct {
	d          *wgpuDevice
	label      string
	texture    *wgpu.Texture
	view       *wgpu.TextureView
	width      uint32
	height     uint32
	format     TextureFormat
	wgpuFormat wgpu.TextureFormat
	swapchain  bool
	released   bool
}

func (t *wgpuTexture) Width() uint32         { return t.width }
func (t *wgpuTexture) Height() uint32        { return t.height }
func (t *wgpuTexture) Format() TextureFormat { return t.format }

func (t *wgpuTexture) Release() {
	if t.released || t.swapchain {
		return
	}
	t.released = true
	t.d.forgetBindGroups(t, nil)
	t.view.Release()
	t.texture.Release()
}

type wgpuSampler struct {
	d        *wgpuDevice
	sampler  *wgpu.Sampler
	released bool
}

func (s *wgpuSampler) Release() {
	if s.released {
		return
	}
	s.released = true
	s.d.forgetBindGroups(nil, s)
	s.sampler.Release()
}

type wgpuPipeline struct {
	label    string
	pipeline *wgpu.RenderPipeline
}

func (p *wgpuPipeline) Label() string { return p.label }

func (p *wgpuPipeline) Release() {
	p.pipeline.Release()
}

type wgpuFence struct {
	d *wgpuDevice
}

func (f *wgpuFence) Wait() {
	f.d.device.Poll(true, nil)
}

type wgpuCommandBuffer struct {
	d         *wgpuDevice
	encoder   *wgpu.CommandEncoder
	surface   *wgpu.Texture
	swapchain *wgpuTexture
	done      bool
}

func (c *wgpuCommandBuffer) AcquireSwapchain() (Texture, error) {
	if c.done {
		return nil, ErrCommandBufferDone
	}
	if c.swapchain != nil {
		return c.swapchain, nil
	}

	c.d.mu.Lock()
	defer c.d.mu.Unlock()

	if !c.d.surfaceSize.Valid() {
		return nil, ErrSwapchainUnavailable
	}
	surfaceTexture, err := c.d.surface.GetCurrentTexture()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSwapchainUnavailable, err)
	}
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return nil, fmt.Errorf("%w: %v", ErrSwapchainUnavailable, err)
	}
	c.surface = surfaceTexture
	c.swapchain = &wgpuTexture{
		d:          c.d,
		label:      "Swapchain",
		view:       view,
		width:      uint32(c.d.surfaceSize.W),
		height:     uint32(c.d.surfaceSize.H),
		format:     TextureFormatSurface,
		wgpuFormat: c.d.surfaceFormat,
		swapchain:  true,
	}
	return c.swapchain, nil
}

func (c *wgpuCommandBuffer) releaseSwapchain() {
	if c.swapchain == nil {
		return
	}
	c.swapchain.view.Release()
	c.surface.Release()
	c.swapchain = nil
	c.surface = nil
}

func (c *wgpuCommandBuffer) BeginCopyPass() (CopyPass, error) {
	if c.done {
		return nil, ErrCommandBufferDone
	}
	return &wgpuCopyPass{encoder: c.encoder}, nil
}

func (c *wgpuCommandBuffer) BeginRenderPass(desc RenderPassDescriptor) (RenderPass, error) {
	if c.done {
		return nil, ErrCommandBufferDone
	}
	target, ok := desc.Target.(*wgpuTexture)
	if !ok || target.view == nil {
		return nil, fmt.Errorf("%w: render target was not created by this device", ErrInvalidDescriptor)
	}

	clear := desc.ClearColor.Float()
	attachment := wgpu.RenderPassColorAttachment{
		View:    target.view,
		LoadOp:  wgpu.LoadOpClear,
		StoreOp: wgpu.StoreOpStore,
		ClearValue: wgpu.Color{
			R: float64(clear[0]), G: float64(clear[1]), B: float64(clear[2]), A: float64(clear[3]),
		},
	}
	if c.d.sampleCount > 1 {
		msaa, err := c.d.msaaView(target)
		if err != nil {
			return nil, err
		}
		attachment.View = msaa
		attachment.ResolveTarget = target.view
		attachment.StoreOp = wgpu.StoreOpDiscard
	}

	pass := c.encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{attachment},
	})
	return &wgpuRenderPass{d: c.d, pass: pass, width: target.width, height: target.height}, nil
}

func (c *wgpuCommandBuffer) Submit() (Fence, error) {
	if c.done {
		return nil, ErrCommandBufferDone
	}
	c.done = true

	commandBuffer, err := c.encoder.Finish(nil)
	if err != nil {
		c.encoder.Release()
		c.releaseSwapchain()
		return nil, err
	}

	c.d.mu.Lock()
	c.d.queue.Submit(commandBuffer)
	if c.swapchain != nil {
		c.d.surface.Present()
	}
	c.d.mu.Unlock()

	commandBuffer.Release()
	c.encoder.Release()
	c.releaseSwapchain()
	return &wgpuFence{d: c.d}, nil
}

func (c *wgpuCommandBuffer) Cancel() {
	if c.done {
		return
	}
	c.done = true
	c.encoder.Release()
	c.releaseSwapchain()
}

type wgpuCopyPass struct {
	encoder *wgpu.CommandEncoder
}

func (p *wgpuCopyPass) UploadBuffer(src Buffer, srcOffset uint64, dst Buffer, dstOffset, size uint64) {
	s := src.(*wgpuBuffer)
	d := dst.(*wgpuBuffer)
	p.encoder.CopyBufferToBuffer(s.buffer, srcOffset, d.buffer, dstOffset, alignUp(size, copyAlignment))
}

func (p *wgpuCopyPass) End() {}

type wgpuRenderPass struct {
	d             *wgpuDevice
	pass          *wgpu.RenderPassEncoder
	width, height uint32
}

func (p *wgpuRenderPass) SetPipeline(pl Pipeline) {
	p.pass.SetPipeline(pl.(*wgpuPipeline).pipeline)
}

func (p *wgpuRenderPass) SetVertexBuffer(buf Buffer, offset uint64) {
	p.pass.SetVertexBuffer(0, buf.(*wgpuBuffer).buffer, offset, wgpu.WholeSize)
}

func (p *wgpuRenderPass) SetTexture(tex Texture, sampler Sampler) {
	bg, err := p.d.textureBindGroup(tex.(*wgpuTexture), sampler.(*wgpuSampler))
	if err != nil {
		common.Logger().Error("failed to create texture bind group", "err", err)
		return
	}
	p.pass.SetBindGroup(1, bg, nil)
}

func (p *wgpuRenderPass) PushUniform(data []byte) {
	bg, offset, err := p.d.pushUniform(data)
	if err != nil {
		common.Logger().Error("failed to push uniform block", "err", err)
		return
	}
	p.pass.SetBindGroup(0, bg, []uint32{offset})
}

func (p *wgpuRenderPass) SetViewport(x, y, width, height float32) {
	x = max(0, min(x, float32(p.width)))
	y = max(0, min(y, float32(p.height)))
	width = max(0, min(width, float32(p.width)-x))
	height = max(0, min(height, float32(p.height)-y))
	p.pass.SetViewport(x, y, width, height, 0, 1)
}

func (p *wgpuRenderPass) SetScissor(x, y, width, height uint32) {
	x = min(x, p.width)
	y = min(y, p.height)
	width = min(width, p.width-x)
	height = min(height, p.height-y)
	p.pass.SetScissorRect(x, y, width, height)
}

func (p *wgpuRenderPass) Draw(vertexCount, instanceCount, firstVertex uint32) {
	p.pass.Draw(vertexCount, instanceCount, firstVertex, 0)
}

func (p *wgpuRenderPass) End() {
	p.pass.End()
}
