package target

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-2d/common"
	"github.com/Carmen-Shannon/oxy-2d/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-2d/engine/renderer/command"
	"github.com/Carmen-Shannon/oxy-2d/engine/renderer/texture"
	"github.com/Carmen-Shannon/oxy-2d/engine/renderer/upload"
)

var (
	// ErrUnknownTarget is returned for handles whose id was never issued.
	ErrUnknownTarget = errors.New("target: unknown target")

	// ErrStaleHandle is returned for handles whose target has been released.
	ErrStaleHandle = errors.New("target: stale handle")
)

type entry struct {
	target     *Target
	generation uint32
	refs       int
}

type arena struct {
	device         backend.Device
	source         command.StateSource
	entries        []*entry
	free           []uint32
	framesInFlight int
	slack          uint64
	smooth         bool
	primaryClear   common.Color
}

// Arena owns every render target, addressed by generation-checked handles. Slot 0 is the primary target.
type Arena interface {
	// Create allocates an off-screen target with a reference count of one. Its texture is created by
	// the first Resize.
	//
	// Returns:
	//   - Handle: the new handle
	Create() Handle

	// Get resolves a handle.
	//
	// Parameters:
	//   - h: the handle
	//
	// Returns:
	//   - *Target: the target
	//   - error: ErrUnknownTarget or ErrStaleHandle
	Get(h Handle) (*Target, error)

	// Retain increments a target's reference count.
	//
	// Parameters:
	//   - h: the handle
	//
	// Returns:
	//   - error: ErrUnknownTarget or ErrStaleHandle
	Retain(h Handle) error

	// Release decrements a target's reference count. At zero its texture and buffers are destroyed
	// and the id is recycled. Releasing the primary target is a no-op.
	//
	// Parameters:
	//   - h: the handle
	//
	// Returns:
	//   - error: ErrUnknownTarget or ErrStaleHandle
	Release(h Handle) error

	// Owner finds the live target whose color attachment is sampled through tex.
	//
	// Parameters:
	//   - tex: a texture, typically obtained from Target.Texture
	//
	// Returns:
	//   - Handle: the owning target
	//   - bool: false if tex belongs to no live target
	Owner(tex *texture.Texture) (Handle, bool)

	// Primary returns the target that renders to the swapchain.
	//
	// Returns:
	//   - *Target: the primary target
	Primary() *Target

	// Len returns the number of live targets, including the primary one.
	//
	// Returns:
	//   - int: the live target count
	Len() int

	// Each calls fn for every live target in id order.
	//
	// Parameters:
	//   - fn: the callback
	Each(fn func(*Target))

	// Close destroys every target, including the primary one.
	Close()
}

var _ Arena = &arena{}

// NewArena creates an arena holding the primary target sized to the device surface.
//
// Parameters:
//   - device: the device textures and buffers are created on
//   - source: the state snapshot source shared by every target's command queue
//   - opts: builder options
//
// Returns:
//   - Arena: the arena
func NewArena(device backend.Device, source command.StateSource, opts ...ArenaBuilderOption) Arena {
	a := &arena{
		device:         device,
		source:         source,
		framesInFlight: upload.DefaultFramesInFlight,
		slack:          upload.DefaultSlack,
		smooth:         true,
		primaryClear:   common.Black,
	}
	for _, opt := range opts {
		opt(a)
	}
	primary := newTarget(PrimaryHandle, device, source, a)
	_, _ = primary.Resize(device.SurfaceSize())
	primary.ClearInvalidated()
	a.entries = []*entry{{target: primary, refs: 1}}
	return a
}

func (a *arena) Create() Handle {
	var id uint32
	if n := len(a.free); n > 0 {
		id = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		id = uint32(len(a.entries))
		a.entries = append(a.entries, &entry{})
	}
	e := a.entries[id]
	e.generation++
	e.refs = 1
	e.target = newTarget(Handle{ID: id, Generation: e.generation}, a.device, a.source, a)
	return e.target.handle
}

func (a *arena) lookup(h Handle) (*entry, error) {
	if int(h.ID) >= len(a.entries) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTarget, h)
	}
	e := a.entries[h.ID]
	if e.target == nil || e.generation != h.Generation {
		return nil, fmt.Errorf("%w: %s", ErrStaleHandle, h)
	}
	return e, nil
}

func (a *arena) Get(h Handle) (*Target, error) {
	e, err := a.lookup(h)
	if err != nil {
		return nil, err
	}
	return e.target, nil
}

func (a *arena) Retain(h Handle) error {
	e, err := a.lookup(h)
	if err != nil {
		return err
	}
	e.refs++
	return nil
}

func (a *arena) Release(h Handle) error {
	e, err := a.lookup(h)
	if err != nil {
		return err
	}
	if h == PrimaryHandle {
		return nil
	}
	e.refs--
	if e.refs > 0 {
		return nil
	}
	e.target.release()
	e.target = nil
	a.free = append(a.free, h.ID)
	return nil
}

func (a *arena) Owner(tex *texture.Texture) (Handle, bool) {
	if tex == nil {
		return Handle{}, false
	}
	for _, e := range a.entries {
		if e.target != nil && e.target.tex == tex {
			return e.target.handle, true
		}
	}
	return Handle{}, false
}

func (a *arena) Primary() *Target {
	return a.entries[0].target
}

func (a *arena) Len() int {
	n := 0
	for _, e := range a.entries {
		if e.target != nil {
			n++
		}
	}
	return n
}

func (a *arena) Each(fn func(*Target)) {
	for _, e := range a.entries {
		if e.target != nil {
			fn(e.target)
		}
	}
}

func (a *arena) Close() {
	for i, e := range a.entries {
		if e.target == nil {
			continue
		}
		e.target.release()
		e.target = nil
		if i > 0 {
			a.free = append(a.free, uint32(i))
		}
	}
}
