package submission

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-2d/engine/renderer/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLifecycle(t *testing.T) {
	dev := backend.NewRecordingDevice()
	s := NewSubmission(dev)
	assert.Equal(t, StateIdle, s.State())
	assert.Nil(t, s.Command())

	require.NoError(t, s.Acquire())
	assert.Equal(t, StateAcquired, s.State())
	require.NotNil(t, s.Command())

	sc, err := s.AcquireSwapchain()
	require.NoError(t, err)
	again, err := s.AcquireSwapchain()
	require.NoError(t, err)
	assert.Same(t, sc, again)
	assert.Len(t, dev.CallsOf(backend.OpSwapchain), 1)

	require.NoError(t, s.Submit(true))
	assert.Equal(t, StateIdle, s.State())
	assert.Len(t, dev.CallsOf(backend.OpSubmit), 1)
	assert.Len(t, dev.CallsOf(backend.OpFenceWait), 1)
}

func TestDoubleAcquireIsReported(t *testing.T) {
	s := NewSubmission(backend.NewRecordingDevice())
	require.NoError(t, s.Acquire())
	assert.ErrorIs(t, s.Acquire(), ErrAlreadyAcquired)
	assert.Equal(t, StateAcquired, s.State())
}

func TestTransientFailures(t *testing.T) {
	dev := backend.NewRecordingDevice()
	s := NewSubmission(dev)

	dev.FailNextAcquire(backend.ErrCommandBufferUnavailable)
	err := s.Acquire()
	assert.ErrorIs(t, err, ErrTransient)
	assert.ErrorIs(t, err, backend.ErrCommandBufferUnavailable)
	assert.Equal(t, StateIdle, s.State())

	dev.FailNextAcquire(errors.New("device lost"))
	err = s.Acquire()
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrTransient)

	require.NoError(t, s.Acquire())
	dev.FailNextSwapchain(backend.ErrSwapchainUnavailable)
	_, err = s.AcquireSwapchain()
	assert.ErrorIs(t, err, ErrTransient)
	s.Cancel()
}

func TestCancelIsIdempotent(t *testing.T) {
	dev := backend.NewRecordingDevice()
	s := NewSubmission(dev)
	s.Cancel()

	require.NoError(t, s.Acquire())
	s.Cancel()
	s.Cancel()
	assert.Equal(t, StateIdle, s.State())
	assert.Len(t, dev.CallsOf(backend.OpCancel), 1)
	assert.ErrorIs(t, s.Submit(false), ErrNotAcquired)

	_, err := s.AcquireSwapchain()
	assert.ErrorIs(t, err, ErrNotAcquired)
}

func TestSubmitWithoutWait(t *testing.T) {
	dev := backend.NewRecordingDevice()
	s := NewSubmission(dev)
	require.NoError(t, s.Acquire())
	require.NoError(t, s.Submit(false))
	assert.Empty(t, dev.CallsOf(backend.OpFenceWait))
}
