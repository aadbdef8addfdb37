package engine

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-2d/common"
	"github.com/Carmen-Shannon/oxy-2d/engine/camera"
	"github.com/Carmen-Shannon/oxy-2d/engine/profiler"
	"github.com/Carmen-Shannon/oxy-2d/engine/renderer"
	"github.com/Carmen-Shannon/oxy-2d/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-2d/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-2d/engine/scene"
	"github.com/Carmen-Shannon/oxy-2d/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeWindow closes after a fixed number of polls. A negative limit never closes.
type fakeWindow struct {
	mu       sync.Mutex
	polls    int
	limit    int
	closed   bool
	onResize func(width, height int)
}

var _ window.Window = &fakeWindow{}

func (w *fakeWindow) SetResizeCallback(callback func(width, height int)) { w.onResize = callback }

func (w *fakeWindow) SetKeyCallback(func(uint32, bool)) {}

func (w *fakeWindow) SetScrollCallback(func(float32)) {}

func (w *fakeWindow) SetMouseButtonCallback(func(window.MouseButton, bool, float32, float32)) {}

func (w *fakeWindow) SetMouseMoveCallback(func(float32, float32)) {}

func (w *fakeWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor { return nil }

func (w *fakeWindow) Width() int { return 800 }

func (w *fakeWindow) Height() int { return 600 }

func (w *fakeWindow) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return !w.closed
}

func (w *fakeWindow) PollEvents() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.polls++
	if w.limit >= 0 && w.polls > w.limit {
		w.closed = true
	}
	return !w.closed
}

func (w *fakeWindow) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func newTestEngine(t *testing.T, polls int, opts ...EngineBuilderOption) (Engine, backend.RecordingDevice, *fakeWindow) {
	t.Helper()
	dev := backend.NewRecordingDevice()
	r, err := renderer.NewRenderer(renderer.BackendTypeRecording, nil,
		renderer.WithDevice(dev),
		renderer.WithCompiler(shader.NewWGSLCompiler(shader.WithSPIRV(false))),
	)
	require.NoError(t, err)
	t.Cleanup(r.Close)
	dev.ResetCalls()

	w := &fakeWindow{limit: polls}
	opts = append([]EngineBuilderOption{WithWindow(w), WithRenderer(r)}, opts...)
	e, err := NewEngine(opts...)
	require.NoError(t, err)
	return e, dev, w
}

func TestRunRendersUntilWindowCloses(t *testing.T) {
	e, dev, w := newTestEngine(t, 3)

	var frames int
	e.SetRenderCallback(func(r renderer.Renderer, dt float32) {
		frames++
		r.DrawFilledRect(common.Rect{X: 0, Y: 0, W: 10, H: 10})
	})

	require.NoError(t, e.Run())
	assert.Equal(t, 3, frames)
	assert.Len(t, dev.CallsOf(backend.OpSubmit), 3)
	assert.Len(t, dev.CallsOf(backend.OpDraw), 3)
	assert.Equal(t, uint64(3), e.Renderer().Stats().Frames)
	assert.False(t, w.IsRunning())
}

func TestQuitStopsRenderLoop(t *testing.T) {
	e, _, _ := newTestEngine(t, -1)

	var frames int
	e.SetRenderCallback(func(r renderer.Renderer, dt float32) {
		frames++
		if frames == 5 {
			e.Quit()
		}
	})

	require.NoError(t, e.Run())
	assert.Equal(t, 5, frames)
	e.Quit()
}

func TestRunDropsTransientFrames(t *testing.T) {
	e, dev, _ := newTestEngine(t, 3)
	dev.FailNextAcquire(backend.ErrCommandBufferUnavailable)

	var frames int
	e.SetRenderCallback(func(renderer.Renderer, float32) { frames++ })

	require.NoError(t, e.Run())
	assert.Equal(t, 2, frames, "the dropped frame skips the render callback")
	stats := e.Renderer().Stats()
	assert.Equal(t, uint64(1), stats.LostFrames)
	assert.Equal(t, uint64(2), stats.Frames)
}

func TestRunRecoversRenderPanic(t *testing.T) {
	e, dev, _ := newTestEngine(t, -1)
	e.SetRenderCallback(func(r renderer.Renderer, dt float32) {
		r.DrawPoint(common.Point{X: 1, Y: 1})
		panic("boom")
	})

	err := e.Run()
	assert.ErrorIs(t, err, ErrRenderPanic)
	assert.Len(t, dev.CallsOf(backend.OpCancel), 1)
	assert.Empty(t, dev.CallsOf(backend.OpSubmit))

	require.NoError(t, e.Renderer().BeginFrame(), "the renderer is usable after the panic")
	e.Renderer().CancelFrame()
}

func TestResizeCallbackResizesRenderer(t *testing.T) {
	e, _, w := newTestEngine(t, 0)
	require.NotNil(t, w.onResize)

	w.onResize(320, 240)
	assert.Equal(t, common.Size{W: 320, H: 240}, e.Renderer().Context().Targets.Primary().Size())
}

func TestTickCallbackRunsConcurrently(t *testing.T) {
	e, _, _ := newTestEngine(t, -1, WithTickRate(500), WithRenderFrameLimit(1000))

	var ticks atomic.Int32
	e.SetTickCallback(func(dt float32) {
		assert.Greater(t, dt, float32(0))
		if ticks.Add(1) == 3 {
			e.Quit()
		}
	})

	done := make(chan error, 1)
	go func() { done <- e.Run() }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		e.Quit()
		t.Fatal("engine did not stop")
	}
	assert.GreaterOrEqual(t, ticks.Load(), int32(3))
}

func TestProfilerReportsWhenEnabled(t *testing.T) {
	now := time.Unix(0, 0)
	clock := func() time.Time {
		now = now.Add(time.Second)
		return now
	}
	e, _, _ := newTestEngine(t, 4, WithProfiler(profiler.NewProfiler(profiler.WithClock(clock))))

	var reports []profiler.Report
	e.SetReportCallback(func(r profiler.Report) { reports = append(reports, r) })
	e.SetRenderCallback(func(r renderer.Renderer, dt float32) {
		r.DrawLine(common.Point{}, common.Point{X: 10, Y: 10})
	})

	e.DisableProfiler()
	require.NoError(t, e.Run())
	assert.Empty(t, reports)

	e2, _, _ := newTestEngine(t, 2, WithProfiling(true), WithProfiler(profiler.NewProfiler(profiler.WithClock(clock))))
	e2.SetReportCallback(func(r profiler.Report) { reports = append(reports, r) })
	e2.SetRenderCallback(func(r renderer.Renderer, dt float32) {
		r.DrawLine(common.Point{}, common.Point{X: 10, Y: 10})
	})
	require.NoError(t, e2.Run())
	require.Len(t, reports, 2)
	assert.InDelta(t, 1.0, reports[1].DrawCalls, 1e-9)
	assert.InDelta(t, 2.0, reports[1].Vertices, 1e-9)
}

func TestScenesDrawInKeyOrder(t *testing.T) {
	var order []string
	record := func(name string) func(renderer.Renderer, float32) {
		return func(r renderer.Renderer, dt float32) {
			order = append(order, name)
			r.DrawPoint(common.Point{})
		}
	}
	hud := scene.NewScene("hud", scene.WithActive(true), scene.WithDrawCallback(record("hud")))
	e, dev, w := newTestEngine(t, 1, WithScene(10, hud))

	cam := camera.NewCamera()
	e.AddScene(-1, scene.NewScene("world", scene.WithActive(true), scene.WithCamera(cam), scene.WithDrawCallback(record("world"))))
	e.AddScene(5, scene.NewScene("paused", scene.WithDrawCallback(record("paused"))))
	e.SetRenderCallback(func(renderer.Renderer, float32) { order = append(order, "callback") })

	assert.Len(t, e.Scenes(), 3)
	assert.Same(t, hud, e.Scene(10))

	require.NoError(t, e.Run())
	assert.Equal(t, []string{"world", "hud", "callback"}, order)
	assert.Len(t, dev.CallsOf(backend.OpDraw), 2)

	w.onResize(640, 480)
	assert.Equal(t, common.Size{W: 640, H: 480}, cam.Viewport())

	e.RemoveScene(5)
	assert.Nil(t, e.Scene(5))
	assert.Len(t, e.Scenes(), 2)
}

func TestIntervals(t *testing.T) {
	assert.Equal(t, time.Second/60, tickInterval(0))
	assert.Equal(t, 10*time.Millisecond, tickInterval(100))
	assert.Zero(t, frameInterval(-1))
	assert.Equal(t, 20*time.Millisecond, frameInterval(50))
}
