package scene

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-2d/common"
	"github.com/Carmen-Shannon/oxy-2d/engine/camera"
	"github.com/Carmen-Shannon/oxy-2d/engine/renderer"
	"github.com/Carmen-Shannon/oxy-2d/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-2d/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-2d/engine/renderer/state"
)

func newTestRenderer(t *testing.T) (renderer.Renderer, backend.RecordingDevice) {
	t.Helper()
	dev := backend.NewRecordingDevice()
	r, err := renderer.NewRenderer(renderer.BackendTypeRecording, nil,
		renderer.WithDevice(dev),
		renderer.WithCompiler(shader.NewWGSLCompiler(shader.WithSPIRV(false))),
	)
	require.NoError(t, err)
	t.Cleanup(r.Close)
	dev.ResetCalls()
	return r, dev
}

func matrixOf(data []byte) []float32 {
	out := make([]float32, 16)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out
}

func TestSceneAccessors(t *testing.T) {
	cam := camera.NewCamera()
	s := NewScene("world", WithActive(true), WithCamera(cam))
	assert.Equal(t, "world", s.Name())
	assert.True(t, s.Active())
	assert.Same(t, cam, s.Camera())

	s.SetName("hud")
	s.SetActive(false)
	s.SetCamera(nil)
	assert.Equal(t, "hud", s.Name())
	assert.False(t, s.Active())
	assert.Nil(t, s.Camera())
	s.Resize(10, 10)
}

func TestSceneDrawAppliesCamera(t *testing.T) {
	r, dev := newTestRenderer(t)
	cam := camera.NewCamera(camera.WithZoom(2), camera.WithPosition(50, 0))

	var calls int
	s := NewScene("world", WithActive(true), WithCamera(cam), WithDrawCallback(func(r renderer.Renderer, dt float32) {
		calls++
		r.SetColor(common.Color{R: 255, A: 255})
		r.DrawPoint(common.Point{})
	}))

	require.NoError(t, r.BeginFrame())
	s.Draw(r, 0.016)
	r.DrawPoint(common.Point{})
	require.NoError(t, r.EndFrame())
	assert.Equal(t, 1, calls)

	uniforms := dev.CallsOf(backend.OpPushUniform)
	require.Len(t, uniforms, 2)

	want := state.Defaults(common.Size{W: 800, H: 600})
	want.Transform = cam.View()
	wantPacked := state.ProjectionTransform(want)
	assert.Equal(t, wantPacked[:], matrixOf(uniforms[0].Data))

	screen := state.ProjectionTransform(state.Defaults(common.Size{W: 800, H: 600}))
	assert.Equal(t, screen[:], matrixOf(uniforms[1].Data), "the scene state is popped after drawing")
}

func TestSceneSkipsWhenInactive(t *testing.T) {
	r, dev := newTestRenderer(t)
	var calls int
	s := NewScene("menu", WithDrawCallback(func(renderer.Renderer, float32) { calls++ }))

	require.NoError(t, r.BeginFrame())
	s.Draw(r, 0)
	s.SetActive(true)
	s.SetDrawCallback(nil)
	s.Draw(r, 0)
	require.NoError(t, r.EndFrame())

	assert.Zero(t, calls)
	assert.Empty(t, dev.CallsOf(backend.OpDraw))
}

func TestSceneResizeUpdatesCamera(t *testing.T) {
	cam := camera.NewCamera()
	s := NewScene("world", WithCamera(cam))
	s.Resize(320, 200)
	assert.Equal(t, common.Size{W: 320, H: 200}, cam.Viewport())
}
