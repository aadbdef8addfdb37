package upload

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-2d/common"
	"github.com/Carmen-Shannon/oxy-2d/engine/renderer/backend"
)

// ErrUploadSkipped wraps allocation, map and copy failures. The caller skips drawing the target for
// the frame.
var ErrUploadSkipped = errors.New("upload: skipped")

// DefaultSlack is the headroom in bytes added whenever a slot's buffers grow.
const DefaultSlack = 5000

// DefaultFramesInFlight is the number of slots used when a non-positive count is requested.
const DefaultFramesInFlight = 2

// Region locates uploaded bytes inside a device-local vertex buffer.
type Region struct {
	Buffer backend.Buffer
	Offset uint64
	Size   uint64
}

// slot is the pair of buffers owned by one frame in flight.
type slot struct {
	vertex   backend.Buffer
	staging  backend.Buffer
	capacity uint64
	cursor   uint64
	serial   uint64
	retired  []backend.Buffer
}

type uploadPipeline struct {
	device backend.Device
	label  string
	slack  uint64
	slots  []*slot
}

// Pipeline copies CPU vertex bytes into per-frame device-local buffers through a staging buffer.
type Pipeline interface {
	// Upload appends data to the slot's buffers for the given frame serial and records the
	// staging to vertex copy on cmd. A serial different from the slot's last one starts a new
	// frame: the cursor rewinds and buffers retired during the slot's previous use are released.
	//
	// Parameters:
	//   - cmd: the command buffer recording the copy
	//   - slot: the frame in flight index
	//   - serial: a number identifying the frame
	//   - data: the bytes to upload
	//
	// Returns:
	//   - Region: where the bytes will live once the copy executes
	//   - error: an error wrapping ErrUploadSkipped
	Upload(cmd backend.CommandBuffer, slot int, serial uint64, data []byte) (Region, error)

	// Capacity returns the current byte capacity of a slot.
	//
	// Parameters:
	//   - slot: the frame in flight index
	//
	// Returns:
	//   - uint64: the capacity, zero before the first upload or for an invalid slot
	Capacity(slot int) uint64

	// FramesInFlight returns the number of slots.
	//
	// Returns:
	//   - int: the slot count
	FramesInFlight() int

	// Release frees every buffer owned by the pipeline.
	Release()
}

var _ Pipeline = &uploadPipeline{}

// NewPipeline creates an upload pipeline with one slot per frame in flight. Buffers are allocated
// lazily on first use.
//
// Parameters:
//   - device: the device buffers are created on
//   - framesInFlight: the number of slots
//   - opts: builder options
//
// Returns:
//   - Pipeline: the pipeline
func NewPipeline(device backend.Device, framesInFlight int, opts ...PipelineBuilderOption) Pipeline {
	if framesInFlight <= 0 {
		framesInFlight = DefaultFramesInFlight
	}
	p := &uploadPipeline{
		device: device,
		label:  "vertices",
		slack:  DefaultSlack,
		slots:  make([]*slot, framesInFlight),
	}
	for i := range p.slots {
		p.slots[i] = &slot{}
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *uploadPipeline) Upload(cmd backend.CommandBuffer, index int, serial uint64, data []byte) (Region, error) {
	if index < 0 || index >= len(p.slots) {
		return Region{}, fmt.Errorf("%w: slot %d out of range", ErrUploadSkipped, index)
	}
	s := p.slots[index]
	if s.serial != serial {
		s.serial = serial
		s.cursor = 0
		for _, b := range s.retired {
			b.Release()
		}
		s.retired = s.retired[:0]
	}
	if len(data) == 0 {
		return Region{Buffer: s.vertex, Offset: s.cursor}, nil
	}

	size := alignUp(uint64(len(data)), 4)
	if s.cursor+size > s.capacity {
		if err := p.grow(s, index, s.cursor+size); err != nil {
			return Region{}, err
		}
	}

	mapped, err := s.staging.Map(s.cursor, size)
	if err != nil {
		return Region{}, fmt.Errorf("%w: map staging: %v", ErrUploadSkipped, err)
	}
	n := copy(mapped, data)
	clear(mapped[n:])
	if err := s.staging.Unmap(); err != nil {
		return Region{}, fmt.Errorf("%w: unmap staging: %v", ErrUploadSkipped, err)
	}

	pass, err := cmd.BeginCopyPass()
	if err != nil {
		return Region{}, fmt.Errorf("%w: begin copy pass: %v", ErrUploadSkipped, err)
	}
	pass.UploadBuffer(s.staging, s.cursor, s.vertex, s.cursor, size)
	pass.End()

	region := Region{Buffer: s.vertex, Offset: s.cursor, Size: uint64(len(data))}
	s.cursor += size
	return region, nil
}

// grow replaces the slot's buffers with ones holding required plus slack bytes. The old buffers may
// still be referenced by commands recorded this frame, so they are retired until the slot's next use
// and the cursor restarts at the head of the new buffers.
func (p *uploadPipeline) grow(s *slot, index int, required uint64) error {
	capacity := alignUp(required+p.slack, 4)

	vertex, err := p.device.CreateBuffer(backend.BufferDescriptor{
		Label: fmt.Sprintf("%s[%d]", p.label, index),
		Size:  capacity,
		Usage: backend.BufferUsageVertex | backend.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("%w: vertex buffer of %d bytes: %v", ErrUploadSkipped, capacity, err)
	}
	staging, err := p.device.CreateBuffer(backend.BufferDescriptor{
		Label: fmt.Sprintf("%s-staging[%d]", p.label, index),
		Size:  capacity,
		Usage: backend.BufferUsageUpload | backend.BufferUsageCopySrc,
	})
	if err != nil {
		vertex.Release()
		return fmt.Errorf("%w: staging buffer of %d bytes: %v", ErrUploadSkipped, capacity, err)
	}

	if s.vertex != nil {
		s.retired = append(s.retired, s.vertex, s.staging)
	}
	common.Logger().Debug("upload buffers grown", "label", p.label, "slot", index, "from", s.capacity, "to", capacity)
	s.vertex, s.staging = vertex, staging
	s.capacity = capacity
	s.cursor = 0
	return nil
}

func (p *uploadPipeline) Capacity(index int) uint64 {
	if index < 0 || index >= len(p.slots) {
		return 0
	}
	return p.slots[index].capacity
}

func (p *uploadPipeline) FramesInFlight() int {
	return len(p.slots)
}

func (p *uploadPipeline) Release() {
	for _, s := range p.slots {
		for _, b := range s.retired {
			b.Release()
		}
		if s.vertex != nil {
			s.vertex.Release()
			s.staging.Release()
		}
		*s = slot{}
	}
}

func alignUp(v, a uint64) uint64 {
	return (v + a - 1) / a * a
}
