package renderer

import (
	"errors"
	"fmt"
	"image"

	"golang.org/x/image/math/f32"

	"github.com/Carmen-Shannon/oxy-2d/common"
	"github.com/Carmen-Shannon/oxy-2d/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-2d/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-2d/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-2d/engine/renderer/state"
	"github.com/Carmen-Shannon/oxy-2d/engine/renderer/submission"
	"github.com/Carmen-Shannon/oxy-2d/engine/renderer/target"
	"github.com/Carmen-Shannon/oxy-2d/engine/renderer/texture"
)

var (
	// ErrDeviceUnavailable is returned by NewRenderer when no adapter or device could be created.
	ErrDeviceUnavailable = errors.New("renderer: device unavailable")

	// ErrNoFrame is returned by calls that need a frame started with BeginFrame.
	ErrNoFrame = errors.New("renderer: no frame in progress")

	// ErrNoBoundFrameBuffer is returned by ReleaseFrameBuffer without a matching BindFrameBuffer.
	ErrNoBoundFrameBuffer = errors.New("renderer: no frame buffer bound")

	// ErrTargetHazard is returned when a frame buffer would be written while its texture is read in the
	// same frame, or read while it is being written.
	ErrTargetHazard = errors.New("renderer: frame buffer read and written in the same frame")

	// ErrInvalidFrameBuffer is returned for frame buffers that cannot be bound or sampled.
	ErrInvalidFrameBuffer = errors.New("renderer: invalid frame buffer")
)

// RenderContext holds the shared resources a renderer draws with.
type RenderContext struct {
	Device    backend.Device
	Pipelines pipeline.Cache
	Targets   target.Arena
	Compiler  shader.Compiler
}

// Stats counts the work of a frame.
type Stats struct {
	// DrawCalls is the number of draw commands issued to the GPU.
	DrawCalls int
	// Vertices is the number of vertices drawn.
	Vertices int
	// SkippedUploads counts targets whose draws were dropped because their vertices could not be uploaded.
	SkippedUploads int
	// Frames is the number of frames submitted since the renderer was created.
	Frames uint64
	// LostFrames is the number of frames dropped on transient failures since the renderer was created.
	LostFrames uint64
}

// boundTarget is an entry of the frame buffer bind stack.
type boundTarget struct {
	handle target.Handle
	target *target.Target
}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	ctx RenderContext

	states state.Stack
	sub    submission.Submission

	framesInFlight int
	frameIndex     int
	serial         uint64
	inFrame        bool

	bound     boundTarget
	bindStack []boundTarget
	sampled   map[target.Handle]struct{}
	temporary *FrameBuffer

	stats     Stats
	lastStats Stats

	// Pre-creation config collected from builder options
	device        backend.Device
	compiler      shader.Compiler
	deviceOptions []backend.WGPUDeviceOption
	maxStateDepth int
	clearColor    common.Color
	slack         uint64
	smoothTargets bool
}

// Renderer is the immediate-mode 2D painter. Draw calls are batched per target into vertex buffers and
// command queues, uploaded and replayed when the target's pass runs. A Renderer is not safe for
// concurrent use.
type Renderer interface {
	// BeginFrame acquires the frame's command buffer and resets the primary target and render state.
	//
	// Returns:
	//   - error: an error wrapping submission.ErrTransient when the frame should be skipped, or
	//     submission.ErrAlreadyAcquired when a frame is already in progress
	BeginFrame() error

	// EndFrame draws the primary target, submits the frame and advances the frame in flight slot.
	// Frame buffers still bound are released first.
	//
	// Returns:
	//   - error: ErrNoFrame, or the submission error
	EndFrame() error

	// CancelFrame discards everything recorded since BeginFrame without submitting. Bound frame
	// buffers are unbound and their draws dropped.
	CancelFrame()

	// DrawPoint records a single point.
	DrawPoint(p common.Point)

	// DrawPoints records a batch of points.
	DrawPoints(points []common.Point)

	// DrawLine records a line segment.
	DrawLine(a, b common.Point)

	// DrawLines records independent segments from consecutive pairs. A trailing odd point is ignored.
	DrawLines(points []common.Point)

	// DrawLineStrip records connected segments through every point.
	DrawLineStrip(points []common.Point)

	// DrawTriangle records a triangle outline.
	DrawTriangle(a, b, c common.Point)

	// DrawTriangles records the outline of each consecutive triple.
	DrawTriangles(points []common.Point)

	// DrawFilledTriangle records a filled triangle.
	DrawFilledTriangle(a, b, c common.Point)

	// DrawFilledTriangles records filled triangles assembled according to mode. Fans are converted
	// to lists.
	DrawFilledTriangles(points []common.Point, mode TriangleMode)

	// DrawRect records a rectangle outline.
	DrawRect(r common.Rect)

	// DrawRects records several rectangle outlines in one command.
	DrawRects(rects []common.Rect)

	// DrawFilledRect records a filled rectangle.
	DrawFilledRect(r common.Rect)

	// DrawFilledRects records several filled rectangles in one command.
	DrawFilledRects(rects []common.Rect)

	// DrawTexturedRect records a rectangle sampling tex.
	//
	// Parameters:
	//   - dest: the destination rectangle in target pixels
	//   - tex: the texture to sample
	//   - src: the source rectangle in texture pixels, nil for the whole texture
	//
	// Returns:
	//   - error: texture.ErrInvalidTexture for a nil or empty texture, ErrTargetHazard when tex is the
	//     texture of a bound frame buffer
	DrawTexturedRect(dest common.Rect, tex *texture.Texture, src *common.Rect) error

	// DrawTexturedRects records several rectangles sampling the same texture in one command.
	//
	// Parameters:
	//   - tex: the texture to sample
	//   - dests: the destination rectangles
	//   - srcs: the source rectangles, parallel to dests; nil samples the whole texture for each
	//
	// Returns:
	//   - error: texture.ErrInvalidTexture, ErrTargetHazard as for DrawTexturedRect, or an error when
	//     srcs and dests differ in length
	DrawTexturedRects(tex *texture.Texture, dests []common.Rect, srcs []common.Rect) error

	SetColor(c common.Color)
	SetOpacity(opacity float32)
	SetBlendMode(mode pipeline.BlendMode)
	SetClipRect(r common.Rect)
	ResetClipRect()
	SetViewport(r common.Rect)
	SetTransform(m f32.Mat3)
	Translate(x, y float32)
	Scale(x, y float32)
	Rotate(angle float32)
	// SetLineWidth is recorded in the render state. The WebGPU backend draws one pixel wide lines.
	SetLineWidth(width float32)
	// SetPointSize is recorded in the render state. The WebGPU backend draws one pixel points.
	SetPointSize(size float32)
	// SetPipeline selects the program used by following draws. Zero selects the built-in programs.
	// Draws whose vertex layout the selected program does not accept use the built-in program.
	SetPipeline(id int)

	// RegisterPipeline builds pipelines for every primitive and blend mode from a custom program.
	//
	// Parameters:
	//   - program: a program compiled with Context().Compiler
	//   - textured: whether the program takes the textured vertex layout
	//
	// Returns:
	//   - int: the id to pass to SetPipeline
	//   - error: an error if a pipeline cannot be created
	RegisterPipeline(program shader.Program, textured bool) (int, error)

	// PushState saves the render state.
	//
	// Returns:
	//   - error: state.ErrStateStackOverflow when a maximum depth is configured and reached
	PushState() error

	// PopState restores the last saved render state.
	//
	// Returns:
	//   - error: state.ErrStateStackUnderflow on an unbalanced pop
	PopState() error

	// NewTexture converts an image into a texture that is uploaded on first use.
	//
	// Parameters:
	//   - img: the source image
	//   - opts: texture options
	//
	// Returns:
	//   - *texture.Texture: the texture
	//   - error: texture.ErrInvalidTexture for empty images
	NewTexture(img image.Image, opts ...texture.TextureBuilderOption) (*texture.Texture, error)

	// NewTextureFromStaging wraps RGBA pixels in a texture that is uploaded on first use.
	//
	// Parameters:
	//   - data: the staging pixels
	//   - opts: texture options
	//
	// Returns:
	//   - *texture.Texture: the texture
	//   - error: texture.ErrInvalidTexture for invalid data
	NewTextureFromStaging(data common.TextureStagingData, opts ...texture.TextureBuilderOption) (*texture.Texture, error)

	// NewFrameBuffer creates an off-screen target of the given size.
	//
	// Parameters:
	//   - size: the size in pixels
	//
	// Returns:
	//   - *FrameBuffer: the frame buffer
	//   - error: an error if the size is invalid or the texture cannot be created
	NewFrameBuffer(size common.Size) (*FrameBuffer, error)

	// TemporaryFrameBuffer returns a scratch frame buffer shared by all callers, resized to size.
	//
	// Parameters:
	//   - size: the size in pixels
	//
	// Returns:
	//   - *FrameBuffer: the shared frame buffer
	//   - error: an error if the size is invalid or the texture cannot be created
	TemporaryFrameBuffer(size common.Size) (*FrameBuffer, error)

	// BindFrameBuffer redirects drawing into an off-screen target. The render state is pushed and reset
	// to the target's resolution.
	//
	// Parameters:
	//   - h: the frame buffer handle
	//
	// Returns:
	//   - error: ErrNoFrame, ErrTargetHazard, ErrInvalidFrameBuffer, a target lookup error or a state error
	BindFrameBuffer(h target.Handle) error

	// ReleaseFrameBuffer draws the bound off-screen target, rebinds the previous target and pops the
	// render state.
	//
	// Returns:
	//   - error: ErrNoBoundFrameBuffer on an unbalanced release
	ReleaseFrameBuffer() error

	// DrawFrameBuffer records a rectangle sampling an off-screen target into the bound target.
	//
	// Parameters:
	//   - h: the frame buffer handle
	//   - dest: the destination rectangle
	//   - src: the source rectangle in frame buffer pixels, nil for the whole frame buffer
	//
	// Returns:
	//   - error: ErrTargetHazard when the frame buffer is currently bound, or a lookup error
	DrawFrameBuffer(h target.Handle, dest common.Rect, src *common.Rect) error

	// DeleteFrameBuffer drops a reference to an off-screen target.
	//
	// Parameters:
	//   - h: the frame buffer handle
	//
	// Returns:
	//   - error: a target lookup error
	DeleteFrameBuffer(h target.Handle) error

	// Resize reconfigures the surface and the primary target.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	Resize(width, height int)

	// Stats returns the counters of the last submitted frame together with the running totals.
	//
	// Returns:
	//   - Stats: the frame statistics
	Stats() Stats

	// Context returns the shared rendering resources.
	//
	// Returns:
	//   - RenderContext: the context
	Context() RenderContext

	// Close cancels any frame in progress and releases every GPU resource.
	Close()
}

var _ Renderer = &renderer{}

// NewRenderer creates the device for a backend, compiles the built-in shaders and builds every pipeline.
//
// Parameters:
//   - backendType: the GPU backend to use
//   - surface: the presentation surface, typically a window.Window; may be nil for the recording backend
//   - options: builder options
//
// Returns:
//   - Renderer: the renderer
//   - error: ErrDeviceUnavailable, a shader compile error or a pipeline creation error
func NewRenderer(backendType RendererBackendType, surface Surface, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		framesInFlight: 2,
		clearColor:     common.Black,
		slack:          5000,
		smoothTargets:  true,
		sampled:        make(map[target.Handle]struct{}),
	}
	for _, opt := range options {
		opt(r)
	}

	dev := r.device
	if dev == nil {
		var err error
		if dev, err = newDevice(backendType, surface, r.deviceOptions); err != nil {
			return nil, err
		}
	} else if surface != nil {
		dev.ConfigureSurface(surface.Width(), surface.Height())
	}

	compiler := r.compiler
	if compiler == nil {
		compiler = shader.NewWGSLCompiler()
	}

	r.states = state.NewStack(dev.SurfaceSize(), state.WithMaxDepth(r.maxStateDepth))
	r.ctx = RenderContext{
		Device:    dev,
		Compiler:  compiler,
		Pipelines: pipeline.NewCache(dev, compiler),
		Targets: target.NewArena(dev, r.states,
			target.WithFramesInFlight(r.framesInFlight),
			target.WithPrimaryClearColor(r.clearColor),
			target.WithSlack(r.slack),
			target.WithSmoothTargets(r.smoothTargets),
		),
	}
	r.sub = submission.NewSubmission(dev)

	if err := r.ctx.Pipelines.Init(dev.Name()); err != nil {
		r.ctx.Targets.Close()
		if r.device == nil {
			dev.Release()
		}
		return nil, fmt.Errorf("renderer: %w", err)
	}

	common.Logger().Info("renderer created", "backend", dev.Name(), "framesInFlight", r.framesInFlight, "pipelines", r.ctx.Pipelines.Len())
	return r, nil
}

func (r *renderer) BeginFrame() error {
	if err := r.sub.Acquire(); err != nil {
		if errors.Is(err, submission.ErrTransient) {
			r.stats.LostFrames++
			common.Logger().Warn("frame lost", "error", err)
		} else {
			common.Logger().Error("begin frame failed", "error", err)
		}
		return err
	}

	r.serial++
	r.stats.DrawCalls, r.stats.Vertices, r.stats.SkippedUploads = 0, 0, 0

	primary := r.ctx.Targets.Primary()
	primary.Queue().Reset()
	r.states.ResetFrame(primary.Size())
	r.bound = boundTarget{handle: target.PrimaryHandle, target: primary}
	r.bindStack = r.bindStack[:0]
	clear(r.sampled)
	r.inFrame = true
	return nil
}

func (r *renderer) EndFrame() error {
	if !r.inFrame {
		return ErrNoFrame
	}
	for len(r.bindStack) > 0 {
		common.Logger().Error("frame buffer still bound at end of frame", "target", r.bound.handle.String())
		if err := r.ReleaseFrameBuffer(); err != nil {
			break
		}
	}

	if err := r.drawTarget(r.ctx.Targets.Primary()); err != nil {
		r.sub.Cancel()
		r.inFrame = false
		r.stats.LostFrames++
		common.Logger().Warn("frame lost", "error", err)
		return err
	}
	r.frameIndex = (r.frameIndex + 1) % r.framesInFlight
	r.inFrame = false

	if err := r.sub.Submit(false); err != nil {
		r.stats.LostFrames++
		common.Logger().Warn("frame submission failed", "error", err)
		return err
	}
	r.stats.Frames++
	r.lastStats = r.stats
	return nil
}

func (r *renderer) CancelFrame() {
	r.sub.Cancel()
	if !r.inFrame {
		return
	}
	for len(r.bindStack) > 0 {
		r.bound.target.Queue().Reset()
		r.bound = r.bindStack[len(r.bindStack)-1]
		r.bindStack = r.bindStack[:len(r.bindStack)-1]
	}
	r.bound.target.Queue().Reset()
	r.states.ResetFrame(r.bound.target.Size())
	r.inFrame = false
	common.Logger().Debug("frame cancelled", "serial", r.serial)
}

func (r *renderer) SetColor(c common.Color)              { r.states.SetColor(c) }
func (r *renderer) SetOpacity(opacity float32)           { r.states.SetOpacity(opacity) }
func (r *renderer) SetBlendMode(mode pipeline.BlendMode) { r.states.SetBlendMode(mode) }
func (r *renderer) SetClipRect(rect common.Rect)         { r.states.SetClipRect(rect) }
func (r *renderer) ResetClipRect()                       { r.states.ResetClipRect() }
func (r *renderer) SetViewport(rect common.Rect)         { r.states.SetViewport(rect) }
func (r *renderer) SetTransform(m f32.Mat3)              { r.states.SetTransform(m) }
func (r *renderer) Translate(x, y float32)               { r.states.Translate(x, y) }
func (r *renderer) Scale(x, y float32)                   { r.states.Scale(x, y) }
func (r *renderer) Rotate(angle float32)                 { r.states.Rotate(angle) }
func (r *renderer) SetLineWidth(width float32)           { r.states.SetLineWidth(width) }
func (r *renderer) SetPointSize(size float32)            { r.states.SetPointSize(size) }
func (r *renderer) SetPipeline(id int)                   { r.states.SetPipelineID(id) }

func (r *renderer) RegisterPipeline(program shader.Program, textured bool) (int, error) {
	return r.ctx.Pipelines.Register(program, textured)
}

func (r *renderer) PushState() error {
	if err := r.states.Push(false); err != nil {
		common.Logger().Error("push state", "error", err)
		return err
	}
	return nil
}

func (r *renderer) PopState() error {
	if err := r.states.Pop(false); err != nil {
		common.Logger().Error("pop state", "error", err)
		return err
	}
	return nil
}

func (r *renderer) NewTexture(img image.Image, opts ...texture.TextureBuilderOption) (*texture.Texture, error) {
	return texture.FromImage(img, opts...)
}

func (r *renderer) NewTextureFromStaging(data common.TextureStagingData, opts ...texture.TextureBuilderOption) (*texture.Texture, error) {
	return texture.New(data, opts...)
}

func (r *renderer) Resize(width, height int) {
	size := common.Size{W: width, H: height}
	if !size.Valid() {
		return
	}
	r.ctx.Device.ConfigureSurface(width, height)
	if _, err := r.ctx.Targets.Primary().Resize(size); err != nil {
		common.Logger().Error("resize primary target", "error", err)
	}
}

func (r *renderer) Stats() Stats {
	s := r.lastStats
	s.Frames = r.stats.Frames
	s.LostFrames = r.stats.LostFrames
	return s
}

func (r *renderer) Context() RenderContext {
	return r.ctx
}

func (r *renderer) Close() {
	r.sub.Cancel()
	r.inFrame = false
	if r.temporary != nil {
		_ = r.temporary.Close()
		r.temporary = nil
	}
	r.ctx.Targets.Close()
	r.ctx.Pipelines.Clear()
	r.ctx.Device.Release()
}
