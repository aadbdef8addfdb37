package engine

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-2d/common"
	"github.com/Carmen-Shannon/oxy-2d/engine/profiler"
	"github.com/Carmen-Shannon/oxy-2d/engine/renderer"
	"github.com/Carmen-Shannon/oxy-2d/engine/renderer/submission"
	"github.com/Carmen-Shannon/oxy-2d/engine/scene"
	"github.com/Carmen-Shannon/oxy-2d/engine/window"
)

// ErrRenderPanic is returned by Run when the render callback panicked.
var ErrRenderPanic = errors.New("engine: render callback panicked")

// engine implements the Engine interface.
// Coordinates the tick goroutine with the render loop on the calling goroutine.
type engine struct {
	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running atomic.Bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	window      window.Window
	ownsWindow  bool
	windowOpts  []window.WindowBuilderOption
	renderer    renderer.Renderer
	ownsRender  bool
	backendType renderer.RendererBackendType
	renderOpts  []renderer.RendererBuilderOption

	profiler         *profiler.Profiler
	profilingEnabled atomic.Bool
	reportCallback   func(report profiler.Report)

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	renderCallback func(r renderer.Renderer, deltaTime float32)

	scenesMu sync.Mutex
	scenes   map[int]scene.Scene

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
}

// Engine is the main entry point for the engine.
// It owns the window and the renderer and drives the tick and render loops.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Renderer returns the renderer the render loop draws with.
	//
	// Returns:
	//   - renderer.Renderer: the renderer instance
	Renderer() renderer.Renderer

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in ticks per second.
	// The tick callback will be called at this rate for game logic updates.
	//
	// Parameters:
	//   - fps: target ticks per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick.
	// The callback runs on the tick goroutine, concurrently with the render callback.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called each render frame between BeginFrame and
	// EndFrame, after the active scenes are drawn. It runs on the goroutine that called Run. Frames
	// dropped on transient failures skip the callback.
	//
	// Parameters:
	//   - callback: function receiving the renderer and the delta time in seconds
	SetRenderCallback(callback func(r renderer.Renderer, deltaTime float32))

	// SetReportCallback registers the function receiving every profiler report while profiling is
	// enabled.
	//
	// Parameters:
	//   - callback: function receiving the report
	SetReportCallback(callback func(report profiler.Report))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// AddScene registers a scene at the given z-index key.
	// Scenes are drawn in ascending key order during the render loop.
	//
	// Parameters:
	//   - key: the z-index determining draw order (lower draws first)
	//   - s: the Scene to register
	AddScene(key int, s scene.Scene)

	// RemoveScene removes the scene at the given z-index key.
	//
	// Parameters:
	//   - key: the z-index of the scene to remove
	RemoveScene(key int)

	// Scene retrieves the scene registered at the given z-index key.
	// Returns nil if no scene exists at that key.
	//
	// Parameters:
	//   - key: the z-index of the scene to retrieve
	//
	// Returns:
	//   - scene.Scene: the scene at the key, or nil if not found
	Scene(key int) scene.Scene

	// Scenes returns a copy of all registered scenes keyed by z-index.
	//
	// Returns:
	//   - map[int]scene.Scene: a copy of the scenes map
	Scenes() map[int]scene.Scene

	// Run starts the tick goroutine and runs the render loop on the calling goroutine until the window
	// closes or Quit is called. The window and renderer created by the engine are closed on return.
	//
	// Returns:
	//   - error: a non-transient frame error, ErrRenderPanic, or nil on a normal shutdown
	Run() error

	// Quit signals all engine loops to stop.
	// Safe to call multiple times and from any goroutine; subsequent calls are no-ops.
	Quit()
}

// NewEngine creates a new Engine instance with the provided options.
// A window is created unless WithWindow is given, and a WebGPU renderer presenting to the window is
// created unless WithRenderer is given.
//
// Parameters:
//   - options: functional options for engine configuration (profiling, tick rate, etc.)
//
// Returns:
//   - Engine: the newly created engine
//   - error: ErrDeviceUnavailable from the renderer when no GPU device could be created
func NewEngine(options ...EngineBuilderOption) (Engine, error) {
	e := &engine{
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		scenes:          make(map[int]scene.Scene),
		profiler:        profiler.NewProfiler(),
		engineTickRate:  time.Second / 60,
		backendType:     renderer.BackendTypeWGPU,
	}

	for _, opt := range options {
		opt(e)
	}

	if e.window == nil {
		e.window = window.NewWindow(e.windowOpts...)
		e.ownsWindow = true
	}
	if e.renderer == nil {
		r, err := renderer.NewRenderer(e.backendType, e.window, e.renderOpts...)
		if err != nil {
			if e.ownsWindow {
				_ = e.window.Close()
			}
			return nil, fmt.Errorf("engine: %w", err)
		}
		e.renderer = r
		e.ownsRender = true
	}

	e.window.SetResizeCallback(func(width, height int) {
		e.renderer.Resize(width, height)
		for _, s := range e.Scenes() {
			s.Resize(width, height)
		}
	})

	return e, nil
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) Run() error {
	e.running.Store(true)
	e.wg.Add(1)
	go e.handleEngine()

	err := e.handleRender()

	e.signalQuit()
	e.wg.Wait()
	e.running.Store(false)

	if e.ownsRender {
		e.renderer.Close()
	}
	if e.ownsWindow {
		if cerr := e.window.Close(); cerr != nil {
			common.Logger().Warn("close window", "error", cerr)
		}
	}
	return err
}

// Quit signals all engine goroutines to stop.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

// handleEngine runs the fixed-rate engine tick loop in its own goroutine.
// Fires the tick callback at the configured tick rate and listens for dynamic rate changes
// via tickRateChannel. Exits when the quit channel is closed.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			if e.tickCallback != nil {
				e.tickCallback(dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
		}
	}
}

// handleRender runs the render loop until the window closes or quit is signalled.
// Window events are polled on this goroutine, so it must be the thread that created the window.
func (e *engine) handleRender() error {
	lastRender := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return nil
		default:
		}

		if !e.window.PollEvents() {
			return nil
		}

		now := time.Now()
		dt := float32(now.Sub(lastRender).Seconds())
		lastRender = now

		if err := e.renderFrame(dt); err != nil {
			return err
		}

		if e.profilingEnabled.Load() && e.profiler != nil {
			if report, ok := e.profiler.Tick(e.renderer.Stats()); ok && e.reportCallback != nil {
				e.reportCallback(report)
			}
		}

		// Frame rate limiting
		if e.renderFrameLimit > 0 {
			if remaining := e.renderFrameLimit - time.Since(now); remaining > 0 {
				time.Sleep(remaining)
			}
		}
	}
}

// renderFrame runs one frame. Transient failures drop the frame and return nil; the renderer
// counts them as lost.
func (e *engine) renderFrame(dt float32) (err error) {
	if err := e.renderer.BeginFrame(); err != nil {
		if errors.Is(err, submission.ErrTransient) {
			return nil
		}
		return fmt.Errorf("engine: begin frame: %w", err)
	}

	defer func() {
		if rec := recover(); rec != nil {
			e.renderer.CancelFrame()
			common.Logger().Error("render callback panicked", "panic", rec)
			err = fmt.Errorf("%w: %v", ErrRenderPanic, rec)
		}
	}()

	for _, s := range e.sortedScenes() {
		s.Draw(e.renderer, dt)
	}
	if e.renderCallback != nil {
		e.renderCallback(e.renderer, dt)
	}

	if err := e.renderer.EndFrame(); err != nil && !errors.Is(err, submission.ErrTransient) {
		return fmt.Errorf("engine: end frame: %w", err)
	}
	return nil
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled.Store(true)
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled.Store(false)
}

// SetTickRate sets the engine tick rate in ticks per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	newRate := tickInterval(fps)

	if !e.running.Load() {
		e.engineTickRate = newRate
		return
	}

	// Non-blocking send - if channel is full, replace the pending value
	select {
	case e.tickRateChannel <- newRate:
	default:
		select {
		case <-e.tickRateChannel:
		default:
		}
		e.tickRateChannel <- newRate
	}
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

func (e *engine) SetRenderCallback(callback func(r renderer.Renderer, deltaTime float32)) {
	e.renderCallback = callback
}

func (e *engine) SetReportCallback(callback func(report profiler.Report)) {
	e.reportCallback = callback
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	e.renderFrameLimit = frameInterval(fps)
}

func (e *engine) AddScene(key int, s scene.Scene) {
	e.scenesMu.Lock()
	defer e.scenesMu.Unlock()
	e.scenes[key] = s
}

func (e *engine) RemoveScene(key int) {
	e.scenesMu.Lock()
	defer e.scenesMu.Unlock()
	delete(e.scenes, key)
}

func (e *engine) Scene(key int) scene.Scene {
	e.scenesMu.Lock()
	defer e.scenesMu.Unlock()
	return e.scenes[key]
}

func (e *engine) Scenes() map[int]scene.Scene {
	e.scenesMu.Lock()
	defer e.scenesMu.Unlock()
	cp := make(map[int]scene.Scene, len(e.scenes))
	for k, v := range e.scenes {
		cp[k] = v
	}
	return cp
}

// sortedScenes returns the registered scenes in ascending z-index order.
func (e *engine) sortedScenes() []scene.Scene {
	e.scenesMu.Lock()
	defer e.scenesMu.Unlock()
	keys := make([]int, 0, len(e.scenes))
	for k := range e.scenes {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	out := make([]scene.Scene, len(keys))
	for i, k := range keys {
		out[i] = e.scenes[k]
	}
	return out
}

func tickInterval(fps float64) time.Duration {
	if fps <= 0 {
		fps = 60
	}
	return time.Duration(float64(time.Second) / fps)
}

func frameInterval(fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / fps)
}
