package upload

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-2d/engine/renderer/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func submit(t *testing.T, cmd backend.CommandBuffer) {
	t.Helper()
	f, err := cmd.Submit()
	require.NoError(t, err)
	f.Wait()
}

func TestUploadCopiesThroughStaging(t *testing.T) {
	dev := backend.NewRecordingDevice()
	p := NewPipeline(dev, 2)

	cmd, err := dev.AcquireCommandBuffer()
	require.NoError(t, err)
	first, err := p.Upload(cmd, 0, 1, []byte{1, 2, 3, 4, 5, 6, 7, 8})
	require.NoError(t, err)
	second, err := p.Upload(cmd, 0, 1, []byte{9, 10, 11})
	require.NoError(t, err)

	assert.Equal(t, uint64(0), first.Offset)
	assert.Equal(t, uint64(8), second.Offset)
	assert.Equal(t, uint64(3), second.Size)
	assert.Same(t, first.Buffer, second.Buffer)
	assert.Len(t, dev.CallsOf(backend.OpUploadBuffer), 2)

	before := dev.Contents(first.Buffer)
	assert.Equal(t, make([]byte, 11), before[:11], "copies run on submit")

	submit(t, cmd)
	got := dev.Contents(first.Buffer)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}, got[:11])
}

func TestGrowthAddsSlack(t *testing.T) {
	dev := backend.NewRecordingDevice()
	p := NewPipeline(dev, 2)
	cmd, _ := dev.AcquireCommandBuffer()

	_, err := p.Upload(cmd, 1, 1, make([]byte, 100))
	require.NoError(t, err)
	assert.Equal(t, uint64(5100), p.Capacity(1))
	assert.Equal(t, uint64(0), p.Capacity(0))

	_, err = p.Upload(cmd, 1, 1, make([]byte, 4000))
	require.NoError(t, err)
	assert.Equal(t, uint64(5100), p.Capacity(1), "fits in the slack")
	assert.Equal(t, 2, dev.LiveBuffers())
}

func TestGrowthRetiresUntilSlotReuse(t *testing.T) {
	dev := backend.NewRecordingDevice()
	p := NewPipeline(dev, 2, WithSlack(16))
	cmd, _ := dev.AcquireCommandBuffer()

	r1, err := p.Upload(cmd, 0, 1, make([]byte, 8))
	require.NoError(t, err)
	r2, err := p.Upload(cmd, 0, 1, make([]byte, 64))
	require.NoError(t, err)

	assert.NotSame(t, r1.Buffer, r2.Buffer)
	assert.Equal(t, uint64(0), r2.Offset, "a new buffer starts at its head")
	assert.Equal(t, uint64(8+64+16), p.Capacity(0))
	assert.Equal(t, 4, dev.LiveBuffers(), "old pair is retired, not released")
	submit(t, cmd)

	cmd, _ = dev.AcquireCommandBuffer()
	r3, err := p.Upload(cmd, 0, 2, make([]byte, 8))
	require.NoError(t, err)
	assert.Equal(t, uint64(0), r3.Offset, "a new serial rewinds the cursor")
	assert.Same(t, r2.Buffer, r3.Buffer)
	assert.Equal(t, 2, dev.LiveBuffers())

	p.Release()
	assert.Equal(t, 0, dev.LiveBuffers())
	assert.Equal(t, uint64(0), p.Capacity(0))
}

func TestUploadFailuresAreSkips(t *testing.T) {
	dev := backend.NewRecordingDevice()
	p := NewPipeline(dev, 2)
	cmd, _ := dev.AcquireCommandBuffer()

	dev.FailNextBuffer(errors.New("out of memory"))
	_, err := p.Upload(cmd, 0, 1, make([]byte, 16))
	assert.ErrorIs(t, err, ErrUploadSkipped)
	assert.Equal(t, 0, dev.LiveBuffers())

	_, err = p.Upload(cmd, 5, 1, make([]byte, 16))
	assert.ErrorIs(t, err, ErrUploadSkipped)

	cmd.Cancel()
	_, err = p.Upload(cmd, 0, 1, make([]byte, 16))
	assert.ErrorIs(t, err, ErrUploadSkipped, "a finished command buffer cannot record the copy")
}

func TestEmptyUploadIsNoop(t *testing.T) {
	dev := backend.NewRecordingDevice()
	p := NewPipeline(dev, 0)
	assert.Equal(t, DefaultFramesInFlight, p.FramesInFlight())

	cmd, _ := dev.AcquireCommandBuffer()
	r, err := p.Upload(cmd, 0, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), r.Size)
	assert.Empty(t, dev.CallsOf(backend.OpCreateBuffer))
}
