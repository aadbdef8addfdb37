package submission

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-2d/engine/renderer/backend"
)

var (
	// ErrAlreadyAcquired is returned by Acquire while a command buffer is already held.
	ErrAlreadyAcquired = errors.New("submission: command buffer already acquired")

	// ErrNotAcquired is returned when an operation needs an acquired command buffer.
	ErrNotAcquired = errors.New("submission: no command buffer acquired")

	// ErrTransient marks per-frame failures after which the caller drops the frame and retries.
	ErrTransient = errors.New("submission: transient failure")
)

// State is the lifecycle phase of a Submission.
type State int

const (
	StateIdle State = iota
	StateAcquired
	StateSubmitted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAcquired:
		return "acquired"
	case StateSubmitted:
		return "submitted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type submission struct {
	device    backend.Device
	state     State
	cmd       backend.CommandBuffer
	swapchain backend.Texture
}

// Submission owns the command buffer of one frame from acquisition to submission.
type Submission interface {
	// State returns the current lifecycle phase.
	//
	// Returns:
	//   - State: idle, acquired or submitted
	State() State

	// Acquire obtains a command buffer for a new frame.
	//
	// Returns:
	//   - error: ErrAlreadyAcquired on a double acquire, or an error wrapping ErrTransient when the
	//     device has no command buffer available
	Acquire() error

	// AcquireSwapchain obtains the swapchain texture for the acquired command buffer. The texture
	// is cached until the command buffer is submitted or cancelled.
	//
	// Returns:
	//   - backend.Texture: the swapchain texture
	//   - error: ErrNotAcquired, or an error wrapping ErrTransient when no image is available
	AcquireSwapchain() (backend.Texture, error)

	// Command returns the acquired command buffer, or nil when idle.
	//
	// Returns:
	//   - backend.CommandBuffer: the command buffer
	Command() backend.CommandBuffer

	// Submit submits the command buffer and presents the swapchain image if one was acquired.
	//
	// Parameters:
	//   - wait: block until the GPU has finished the submitted work
	//
	// Returns:
	//   - error: ErrNotAcquired, or the backend submission error
	Submit(wait bool) error

	// Cancel discards an acquired command buffer. It is a no-op when nothing is acquired.
	Cancel()
}

var _ Submission = &submission{}

// NewSubmission creates an idle submission for a device.
//
// Parameters:
//   - device: the device command buffers are acquired from
//
// Returns:
//   - Submission: the idle submission
func NewSubmission(device backend.Device) Submission {
	return &submission{device: device}
}

func (s *submission) State() State {
	return s.state
}

func (s *submission) Acquire() error {
	if s.state == StateAcquired {
		return ErrAlreadyAcquired
	}
	cmd, err := s.device.AcquireCommandBuffer()
	if err != nil {
		if errors.Is(err, backend.ErrCommandBufferUnavailable) {
			return fmt.Errorf("%w: %w", ErrTransient, err)
		}
		return fmt.Errorf("submission: failed to acquire command buffer: %w", err)
	}
	s.cmd = cmd
	s.swapchain = nil
	s.state = StateAcquired
	return nil
}

func (s *submission) AcquireSwapchain() (backend.Texture, error) {
	if s.state != StateAcquired {
		return nil, ErrNotAcquired
	}
	if s.swapchain != nil {
		return s.swapchain, nil
	}
	tex, err := s.cmd.AcquireSwapchain()
	if err != nil {
		if errors.Is(err, backend.ErrSwapchainUnavailable) {
			return nil, fmt.Errorf("%w: %w", ErrTransient, err)
		}
		return nil, fmt.Errorf("submission: failed to acquire swapchain: %w", err)
	}
	s.swapchain = tex
	return tex, nil
}

func (s *submission) Command() backend.CommandBuffer {
	if s.state != StateAcquired {
		return nil
	}
	return s.cmd
}

func (s *submission) Submit(wait bool) error {
	if s.state != StateAcquired {
		return ErrNotAcquired
	}
	cmd := s.cmd
	s.state = StateSubmitted
	fence, err := cmd.Submit()
	s.cmd = nil
	s.swapchain = nil
	if err != nil {
		s.state = StateIdle
		return fmt.Errorf("submission: submit failed: %w", err)
	}
	if wait && fence != nil {
		fence.Wait()
	}
	s.state = StateIdle
	return nil
}

func (s *submission) Cancel() {
	if s.state != StateAcquired {
		return
	}
	s.cmd.Cancel()
	s.cmd = nil
	s.swapchain = nil
	s.state = StateIdle
}
