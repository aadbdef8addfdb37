package backend

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-2d/common"
)

// Op names a device call captured by the recording device.
type Op string

const (
	OpCreateBuffer    Op = "CreateBuffer"
	OpCreateTexture   Op = "CreateTexture"
	OpWriteTexture    Op = "WriteTexture"
	OpCreateSampler   Op = "CreateSampler"
	OpCreatePipeline  Op = "CreatePipeline"
	OpAcquire         Op = "AcquireCommandBuffer"
	OpSwapchain       Op = "AcquireSwapchain"
	OpBeginCopyPass   Op = "BeginCopyPass"
	OpUploadBuffer    Op = "UploadBuffer"
	OpEndCopyPass     Op = "EndCopyPass"
	OpBeginRenderPass Op = "BeginRenderPass"
	OpSetPipeline     Op = "SetPipeline"
	OpSetVertexBuffer Op = "SetVertexBuffer"
	OpSetTexture      Op = "SetTexture"
	OpPushUniform     Op = "PushUniform"
	OpSetViewport     Op = "SetViewport"
	OpSetScissor      Op = "SetScissor"
	OpDraw            Op = "Draw"
	OpEndRenderPass   Op = "EndRenderPass"
	OpSubmit          Op = "Submit"
	OpCancel          Op = "Cancel"
	OpFenceWait       Op = "FenceWait"
	OpReleaseBuffer   Op = "ReleaseBuffer"
	OpReleaseTexture  Op = "ReleaseTexture"
)

// Call is a single captured device call. Only the fields relevant to Op are set.
type Call struct {
	Op       Op
	Label    string
	Pipeline Pipeline
	Buffer   Buffer
	Texture  Texture
	Sampler  Sampler
	Clear    common.Color
	Offset   uint64
	Size     uint64
	// Count, Instances and First hold the Draw arguments.
	Count     uint32
	Instances uint32
	First     uint32
	// Rect holds viewport or scissor arguments as x, y, width, height.
	Rect [4]float32
	Data []byte
}

// RecordingDevice is a headless Device that captures every call for inspection. It keeps buffer
// contents in memory and applies copies on Submit, so tests can assert on both the command stream
// and the uploaded vertex bytes.
type RecordingDevice interface {
	Device

	// Calls returns a copy of all captured calls in order.
	//
	// Returns:
	//   - []Call: the captured calls
	Calls() []Call

	// CallsOf returns the captured calls with the given op.
	//
	// Parameters:
	//   - op: the op to filter by
	//
	// Returns:
	//   - []Call: the matching calls in order
	CallsOf(op Op) []Call

	// ResetCalls clears the captured calls without touching live resources.
	ResetCalls()

	// Contents returns a copy of a buffer's current bytes.
	//
	// Parameters:
	//   - buf: a buffer created by this device
	//
	// Returns:
	//   - []byte: the buffer contents
	Contents(buf Buffer) []byte

	// LiveBuffers returns the number of buffers created and not yet released.
	LiveBuffers() int

	// LiveTextures returns the number of textures created and not yet released, excluding the swapchain.
	LiveTextures() int

	// FailNextAcquire makes the next AcquireCommandBuffer call fail with err.
	FailNextAcquire(err error)

	// FailNextSwapchain makes the next AcquireSwapchain call fail with err.
	FailNextSwapchain(err error)

	// FailNextBuffer makes the next CreateBuffer call fail with err.
	FailNextBuffer(err error)
}

type recordingDevice struct {
	mu           *sync.Mutex
	calls        []Call
	surface      common.Size
	swapchain    *recordingTexture
	liveBuffers  int
	liveTextures int

	failAcquire   error
	failSwapchain error
	failBuffer    error
}

var _ RecordingDevice = &recordingDevice{}

// NewRecordingDevice creates a headless device with an 800x600 surface.
//
// Returns:
//   - RecordingDevice: the recording device
func NewRecordingDevice() RecordingDevice {
	d := &recordingDevice{
		mu: &sync.Mutex{},
	}
	d.ConfigureSurface(800, 600)
	return d
}

func (d *recordingDevice) record(c Call) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, c)
}

func (d *recordingDevice) Name() string {
	return "recording"
}

func (d *recordingDevice) CreateBuffer(desc BufferDescriptor) (Buffer, error) {
	d.mu.Lock()
	if err := d.failBuffer; err != nil {
		d.failBuffer = nil
		d.mu.Unlock()
		return nil, err
	}
	d.mu.Unlock()
	if desc.Size == 0 {
		return nil, fmt.Errorf("%w: buffer %q has zero size", ErrInvalidDescriptor, desc.Label)
	}
	b := &recordingBuffer{d: d, label: desc.Label, usage: desc.Usage, data: make([]byte, desc.Size)}
	d.mu.Lock()
	d.liveBuffers++
	d.mu.Unlock()
	d.record(Call{Op: OpCreateBuffer, Label: desc.Label, Buffer: b, Size: desc.Size})
	return b, nil
}

func (d *recordingDevice) CreateTexture(desc TextureDescriptor) (Texture, error) {
	if desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("%w: texture %q is %dx%d", ErrInvalidDescriptor, desc.Label, desc.Width, desc.Height)
	}
	format := desc.Format
	if format == TextureFormatSurface {
		format = TextureFormatBGRA8Unorm
	}
	t := &recordingTexture{d: d, label: desc.Label, width: desc.Width, height: desc.Height, format: format}
	d.mu.Lock()
	d.liveTextures++
	d.mu.Unlock()
	d.record(Call{Op: OpCreateTexture, Label: desc.Label, Texture: t})
	return t, nil
}

func (d *recordingDevice) WriteTexture(tex Texture, pixels []byte) error {
	if tex == nil || uint64(len(pixels)) != uint64(tex.Width())*uint64(tex.Height())*4 {
		return fmt.Errorf("%w: pixel data does not match texture size", ErrInvalidDescriptor)
	}
	d.record(Call{Op: OpWriteTexture, Texture: tex, Size: uint64(len(pixels))})
	return nil
}

func (d *recordingDevice) CreateSampler(desc SamplerDescriptor) (Sampler, error) {
	s := &recordingSampler{desc: desc}
	d.record(Call{Op: OpCreateSampler, Label: desc.Label, Sampler: s})
	return s, nil
}

func (d *recordingDevice) CreatePipeline(desc PipelineDescriptor) (Pipeline, error) {
	if desc.Vertex.EntryPoint == "" || desc.Fragment.EntryPoint == "" {
		return nil, fmt.Errorf("%w: pipeline %q is missing an entry point", ErrInvalidDescriptor, desc.Label)
	}
	p := &recordingPipeline{desc: desc}
	d.record(Call{Op: OpCreatePipeline, Label: desc.Label, Pipeline: p})
	return p, nil
}

func (d *recordingDevice) AcquireCommandBuffer() (CommandBuffer, error) {
	d.mu.Lock()
	if err := d.failAcquire; err != nil {
		d.failAcquire = nil
		d.mu.Unlock()
		return nil, err
	}
	d.mu.Unlock()
	d.record(Call{Op: OpAcquire})
	return &recordingCommandBuffer{d: d}, nil
}

func (d *recordingDevice) ConfigureSurface(width, height int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.surface = common.Size{W: width, H: height}
	d.swapchain = &recordingTexture{
		d:         d,
		label:     "swapchain",
		width:     uint32(max(width, 0)),
		height:    uint32(max(height, 0)),
		format:    TextureFormatBGRA8Unorm,
		swapchain: true,
	}
}

func (d *recordingDevice) SurfaceSize() common.Size {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.surface
}

func (d *recordingDevice) Release() {}

func (d *recordingDevice) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Call, len(d.calls))
	copy(out, d.calls)
	return out
}

func (d *recordingDevice) CallsOf(op Op) []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []Call
	for _, c := range d.calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

func (d *recordingDevice) ResetCalls() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = d.calls[:0]
}

func (d *recordingDevice) Contents(buf Buffer) []byte {
	b, ok := buf.(*recordingBuffer)
	if !ok {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out
}

func (d *recordingDevice) LiveBuffers() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.liveBuffers
}

func (d *recordingDevice) LiveTextures() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.liveTextures
}

func (d *recordingDevice) FailNextAcquire(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failAcquire = err
}

func (d *recordingDevice) FailNextSwapchain(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failSwapchain = err
}

func (d *recordingDevice) FailNextBuffer(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failBuffer = err
}

type recordingBuffer struct {
	d        *recordingDevice
	label    string
	usage    BufferUsage
	data     []byte
	mapped   bool
	released bool
}

func (b *recordingBuffer) Size() uint64 {
	return uint64(len(b.data))
}

func (b *recordingBuffer) Map(offset, size uint64) ([]byte, error) {
	if b.mapped {
		return nil, ErrAlreadyMapped
	}
	if offset+size > uint64(len(b.data)) {
		return nil, fmt.Errorf("%w: [%d, %d) of %d bytes", ErrMapOutOfRange, offset, offset+size, len(b.data))
	}
	b.mapped = true
	return b.data[offset : offset+size], nil
}

func (b *recordingBuffer) Unmap() error {
	if !b.mapped {
		return ErrNotMapped
	}
	b.mapped = false
	return nil
}

func (b *recordingBuffer) Release() {
	if b.released {
		return
	}
	b.released = true
	b.d.mu.Lock()
	b.d.liveBuffers--
	b.d.mu.Unlock()
	b.d.record(Call{Op: OpReleaseBuffer, Label: b.label, Buffer: b})
}

type recordingTexture struct {
	d         *recordingDevice
	label     string
	width     uint32
	height    uint32
	format    TextureFormat
	swapchain bool
	released  bool
}

func (t *recordingTexture) Width() uint32         { return t.width }
func (t *recordingTexture) Height() uint32        { return t.height }
func (t *recordingTexture) Format() TextureFormat { return t.format }

func (t *recordingTexture) Release() {
	if t.released || t.swapchain {
		return
	}
	t.released = true
	t.d.mu.Lock()
	t.d.liveTextures--
	t.d.mu.Unlock()
	t.d.record(Call{Op: OpReleaseTexture, Label: t.label, Texture: t})
}

type recordingSampler struct {
	desc SamplerDescriptor
}

func (s *recordingSampler) Release() {}

type recordingPipeline struct {
	desc PipelineDescriptor
}

func (p *recordingPipeline) Label() string { return p.desc.Label }
func (p *recordingPipeline) Release()      {}

// Descriptor exposes the descriptor a recorded pipeline was created from.
func (p *recordingPipeline) Descriptor() PipelineDescriptor { return p.desc }

type pendingCopy struct {
	src, dst             *recordingBuffer
	srcOffset, dstOffset uint64
	size                 uint64
}

type recordingCommandBuffer struct {
	d         *recordingDevice
	copies    []pendingCopy
	swapchain Texture
	done      bool
}

func (c *recordingCommandBuffer) AcquireSwapchain() (Texture, error) {
	if c.done {
		return nil, ErrCommandBufferDone
	}
	if c.swapchain != nil {
		return c.swapchain, nil
	}
	c.d.mu.Lock()
	err := c.d.failSwapchain
	c.d.failSwapchain = nil
	sc := c.d.swapchain
	c.d.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if sc.width == 0 || sc.height == 0 {
		return nil, ErrSwapchainUnavailable
	}
	c.swapchain = sc
	c.d.record(Call{Op: OpSwapchain, Texture: sc})
	return sc, nil
}

func (c *recordingCommandBuffer) BeginCopyPass() (CopyPass, error) {
	if c.done {
		return nil, ErrCommandBufferDone
	}
	c.d.record(Call{Op: OpBeginCopyPass})
	return &recordingCopyPass{c: c}, nil
}

func (c *recordingCommandBuffer) BeginRenderPass(desc RenderPassDescriptor) (RenderPass, error) {
	if c.done {
		return nil, ErrCommandBufferDone
	}
	if desc.Target == nil {
		return nil, fmt.Errorf("%w: render pass without target", ErrInvalidDescriptor)
	}
	c.d.record(Call{Op: OpBeginRenderPass, Texture: desc.Target, Clear: desc.ClearColor})
	return &recordingRenderPass{d: c.d}, nil
}

func (c *recordingCommandBuffer) Submit() (Fence, error) {
	if c.done {
		return nil, ErrCommandBufferDone
	}
	c.done = true
	c.d.mu.Lock()
	for _, cp := range c.copies {
		copy(cp.dst.data[cp.dstOffset:cp.dstOffset+cp.size], cp.src.data[cp.srcOffset:cp.srcOffset+cp.size])
	}
	c.d.mu.Unlock()
	c.copies = nil
	c.d.record(Call{Op: OpSubmit, Texture: c.swapchain})
	return &recordingFence{d: c.d}, nil
}

func (c *recordingCommandBuffer) Cancel() {
	if c.done {
		return
	}
	c.done = true
	c.copies = nil
	c.d.record(Call{Op: OpCancel})
}

type recordingCopyPass struct {
	c *recordingCommandBuffer
}

func (p *recordingCopyPass) UploadBuffer(src Buffer, srcOffset uint64, dst Buffer, dstOffset, size uint64) {
	p.c.d.record(Call{Op: OpUploadBuffer, Buffer: dst, Offset: dstOffset, Size: size})
	s, ok1 := src.(*recordingBuffer)
	d, ok2 := dst.(*recordingBuffer)
	if !ok1 || !ok2 || srcOffset+size > s.Size() || dstOffset+size > d.Size() {
		panic(fmt.Sprintf("recording device: invalid buffer copy of %d bytes", size))
	}
	p.c.copies = append(p.c.copies, pendingCopy{src: s, dst: d, srcOffset: srcOffset, dstOffset: dstOffset, size: size})
}

func (p *recordingCopyPass) End() {
	p.c.d.record(Call{Op: OpEndCopyPass})
}

type recordingRenderPass struct {
	d *recordingDevice
}

func (p *recordingRenderPass) SetPipeline(pl Pipeline) {
	p.d.record(Call{Op: OpSetPipeline, Pipeline: pl, Label: pl.Label()})
}

func (p *recordingRenderPass) SetVertexBuffer(buf Buffer, offset uint64) {
	p.d.record(Call{Op: OpSetVertexBuffer, Buffer: buf, Offset: offset})
}

func (p *recordingRenderPass) SetTexture(tex Texture, sampler Sampler) {
	p.d.record(Call{Op: OpSetTexture, Texture: tex, Sampler: sampler})
}

func (p *recordingRenderPass) PushUniform(data []byte) {
	cp := make([]byte, len(data))
	copy(cp, data)
	p.d.record(Call{Op: OpPushUniform, Data: cp, Size: uint64(len(data))})
}

func (p *recordingRenderPass) SetViewport(x, y, width, height float32) {
	p.d.record(Call{Op: OpSetViewport, Rect: [4]float32{x, y, width, height}})
}

func (p *recordingRenderPass) SetScissor(x, y, width, height uint32) {
	p.d.record(Call{Op: OpSetScissor, Rect: [4]float32{float32(x), float32(y), float32(width), float32(height)}})
}

func (p *recordingRenderPass) Draw(vertexCount, instanceCount, firstVertex uint32) {
	p.d.record(Call{Op: OpDraw, Count: vertexCount, Instances: instanceCount, First: firstVertex})
}

func (p *recordingRenderPass) End() {
	p.d.record(Call{Op: OpEndRenderPass})
}

type recordingFence struct {
	d *recordingDevice
}

func (f *recordingFence) Wait() {
	f.d.record(Call{Op: OpFenceWait})
}
