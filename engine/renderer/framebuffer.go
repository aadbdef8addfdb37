package renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-2d/common"
	"github.com/Carmen-Shannon/oxy-2d/engine/renderer/target"
	"github.com/Carmen-Shannon/oxy-2d/engine/renderer/texture"
)

// FrameBuffer is an off-screen render target. Drawing is redirected into it between Bind and Release,
// and its contents can then be drawn into another target like a texture.
type FrameBuffer struct {
	r      *renderer
	handle target.Handle
	closed bool
}

// Handle returns the arena handle of the frame buffer.
func (f *FrameBuffer) Handle() target.Handle { return f.handle }

// Size returns the frame buffer size, or the zero size once the frame buffer was closed.
func (f *FrameBuffer) Size() common.Size {
	t, err := f.r.ctx.Targets.Get(f.handle)
	if err != nil {
		return common.Size{}
	}
	return t.Size()
}

// Texture returns the texture view of the frame buffer, or nil once the frame buffer was closed.
// The texture changes when the frame buffer is resized.
func (f *FrameBuffer) Texture() *texture.Texture {
	t, err := f.r.ctx.Targets.Get(f.handle)
	if err != nil {
		return nil
	}
	return t.Texture()
}

// Resize recreates the frame buffer texture when size differs from the current size. The previous
// contents are discarded.
//
// Parameters:
//   - size: the new size in pixels
//
// Returns:
//   - error: ErrTargetHazard when the frame buffer is bound or was drawn this frame, or the device error
func (f *FrameBuffer) Resize(size common.Size) error {
	if !size.Valid() {
		return fmt.Errorf("%w: size %dx%d", ErrInvalidFrameBuffer, size.W, size.H)
	}
	t, err := f.r.ctx.Targets.Get(f.handle)
	if err != nil {
		return err
	}
	if t.Size() == size && t.GPU() != nil {
		return nil
	}
	if f.r.isBound(f.handle) || f.r.wasSampled(f.handle) {
		return fmt.Errorf("%w: resize of %s", ErrTargetHazard, f.handle)
	}
	_, err = t.Resize(size)
	return err
}

// Bind redirects drawing into the frame buffer. See Renderer.BindFrameBuffer.
func (f *FrameBuffer) Bind() error { return f.r.BindFrameBuffer(f.handle) }

// Release draws the frame buffer and restores the previous target. See Renderer.ReleaseFrameBuffer.
func (f *FrameBuffer) Release() error {
	if f.r.bound.handle != f.handle {
		return fmt.Errorf("%w: %s is not the bound frame buffer", ErrNoBoundFrameBuffer, f.handle)
	}
	return f.r.ReleaseFrameBuffer()
}

// Draw records the frame buffer contents into the bound target. See Renderer.DrawFrameBuffer.
func (f *FrameBuffer) Draw(dest common.Rect, src *common.Rect) error {
	return f.r.DrawFrameBuffer(f.handle, dest, src)
}

// Share returns another reference to the same frame buffer. Each reference is closed on its own and
// the GPU texture lives until the last one is closed.
//
// Returns:
//   - *FrameBuffer: the new reference
//   - error: a target lookup error once every reference was closed
func (f *FrameBuffer) Share() (*FrameBuffer, error) {
	if f.closed {
		return nil, fmt.Errorf("%w: %s was closed", target.ErrStaleHandle, f.handle)
	}
	if err := f.r.ctx.Targets.Retain(f.handle); err != nil {
		return nil, err
	}
	return &FrameBuffer{r: f.r, handle: f.handle}, nil
}

// Close drops this reference. The GPU texture is freed when no reference remains. Closing a
// reference twice is a no-op.
func (f *FrameBuffer) Close() error {
	if f.closed {
		return nil
	}
	if err := f.r.DeleteFrameBuffer(f.handle); err != nil {
		return err
	}
	f.closed = true
	return nil
}

func (r *renderer) NewFrameBuffer(size common.Size) (*FrameBuffer, error) {
	if !size.Valid() {
		return nil, fmt.Errorf("%w: size %dx%d", ErrInvalidFrameBuffer, size.W, size.H)
	}
	h := r.ctx.Targets.Create()
	t, err := r.ctx.Targets.Get(h)
	if err != nil {
		return nil, err
	}
	if _, err := t.Resize(size); err != nil {
		_ = r.ctx.Targets.Release(h)
		return nil, err
	}
	t.SetClearColor(common.Transparent)
	return &FrameBuffer{r: r, handle: h}, nil
}

func (r *renderer) TemporaryFrameBuffer(size common.Size) (*FrameBuffer, error) {
	if r.temporary != nil {
		if _, err := r.ctx.Targets.Get(r.temporary.handle); err == nil {
			if err := r.temporary.Resize(size); err != nil {
				return nil, err
			}
			return r.temporary, nil
		}
	}
	fb, err := r.NewFrameBuffer(size)
	if err != nil {
		return nil, err
	}
	r.temporary = fb
	return fb, nil
}

func (r *renderer) DeleteFrameBuffer(h target.Handle) error {
	if h == target.PrimaryHandle {
		return fmt.Errorf("%w: the primary target cannot be deleted", ErrInvalidFrameBuffer)
	}
	if r.isBound(h) {
		return fmt.Errorf("%w: delete of bound %s", ErrTargetHazard, h)
	}
	return r.ctx.Targets.Release(h)
}

func (r *renderer) BindFrameBuffer(h target.Handle) error {
	if !r.inFrame {
		return ErrNoFrame
	}
	if h == target.PrimaryHandle {
		return fmt.Errorf("%w: the primary target is bound implicitly", ErrInvalidFrameBuffer)
	}
	t, err := r.ctx.Targets.Get(h)
	if err != nil {
		return err
	}
	if t.GPU() == nil {
		return fmt.Errorf("%w: %s has no texture", ErrInvalidFrameBuffer, h)
	}
	if r.isBound(h) {
		return fmt.Errorf("%w: %s is already bound", ErrTargetHazard, h)
	}
	if r.wasSampled(h) {
		return fmt.Errorf("%w: %s was drawn earlier this frame", ErrTargetHazard, h)
	}

	if err := r.states.Push(true); err != nil {
		return err
	}
	r.states.SetResolution(t.Size())
	r.states.SetViewport(common.RectFromSize(t.Size()))
	r.states.ResetClipRect()

	r.bindStack = append(r.bindStack, r.bound)
	r.bound = boundTarget{handle: h, target: t}
	t.Queue().Reset()
	t.ClearInvalidated()
	return nil
}

func (r *renderer) ReleaseFrameBuffer() error {
	n := len(r.bindStack)
	if n == 0 {
		return ErrNoBoundFrameBuffer
	}
	if err := r.drawTarget(r.bound.target); err != nil {
		common.Logger().Error("draw frame buffer", "target", r.bound.handle.String(), "error", err)
	}
	r.bound = r.bindStack[n-1]
	r.bindStack = r.bindStack[:n-1]
	return r.states.Pop(false)
}

func (r *renderer) DrawFrameBuffer(h target.Handle, dest common.Rect, src *common.Rect) error {
	if h == target.PrimaryHandle {
		return fmt.Errorf("%w: the primary target cannot be sampled", ErrInvalidFrameBuffer)
	}
	t, err := r.ctx.Targets.Get(h)
	if err != nil {
		return err
	}
	return r.DrawTexturedRect(dest, t.Texture(), src)
}

// isBound reports whether h is the bound target or waiting on the bind stack.
func (r *renderer) isBound(h target.Handle) bool {
	if !r.inFrame {
		return false
	}
	if r.bound.handle == h {
		return true
	}
	for _, b := range r.bindStack {
		if b.handle == h {
			return true
		}
	}
	return false
}

func (r *renderer) wasSampled(h target.Handle) bool {
	_, ok := r.sampled[h]
	return ok
}
