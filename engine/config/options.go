package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/Carmen-Shannon/oxy-2d/common"
	"github.com/Carmen-Shannon/oxy-2d/engine"
	"github.com/Carmen-Shannon/oxy-2d/engine/renderer"
	"github.com/Carmen-Shannon/oxy-2d/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-2d/engine/window"
)

func (r RendererConfig) backendType() (renderer.RendererBackendType, error) {
	switch strings.ToLower(r.Backend) {
	case "", "wgpu":
		return renderer.BackendTypeWGPU, nil
	case "recording":
		return renderer.BackendTypeRecording, nil
	default:
		return 0, fmt.Errorf("%w: backend %q", ErrInvalidValue, r.Backend)
	}
}

func (r RendererConfig) presentMode() (backend.PresentMode, error) {
	switch strings.ToLower(r.PresentMode) {
	case "", "vsync", "fifo":
		return backend.PresentModeVSync, nil
	case "uncapped", "immediate":
		return backend.PresentModeUncapped, nil
	default:
		return 0, fmt.Errorf("%w: present_mode %q", ErrInvalidValue, r.PresentMode)
	}
}

// BackendType returns the configured renderer backend. The config is assumed validated.
func (c Config) BackendType() renderer.RendererBackendType {
	t, _ := c.Renderer.backendType()
	return t
}

// RendererOptions translates the renderer section into builder options.
//
// Returns:
//   - []renderer.RendererBuilderOption: the options, in a stable order
func (c Config) RendererOptions() []renderer.RendererBuilderOption {
	mode, _ := c.Renderer.presentMode()
	cc, _ := ParseColor(c.Renderer.ClearColor)
	return []renderer.RendererBuilderOption{
		renderer.WithFramesInFlight(c.Renderer.FramesInFlight),
		renderer.WithMaxStateDepth(c.Renderer.MaxStateDepth),
		renderer.WithSlack(c.Renderer.Slack),
		renderer.WithClearColor(cc),
		renderer.WithSmoothFrameBuffers(c.Renderer.SmoothFrameBuffers),
		renderer.WithPresentMode(mode),
		renderer.WithMSAA(backend.MSAASampleCount(c.Renderer.MSAA)),
		renderer.WithForceSoftwareRenderer(c.Renderer.ForceSoftware),
	}
}

// WindowOptions translates the window section into builder options.
func (c Config) WindowOptions() []window.WindowBuilderOption {
	return []window.WindowBuilderOption{
		window.WithTitle(common.Coalesce(c.Window.Title, Default().Window.Title)),
		window.WithSize(c.Window.Width, c.Window.Height),
		window.WithResizable(c.Window.Resizable),
	}
}

// EngineOptions translates the engine section into builder options.
func (c Config) EngineOptions() []engine.EngineBuilderOption {
	return []engine.EngineBuilderOption{
		engine.WithTickRate(c.Engine.TickRate),
		engine.WithRenderFrameLimit(c.Engine.FrameLimit),
		engine.WithProfiling(c.Engine.Profiling),
	}
}

// Logger builds a slog logger writing to stderr at the configured level and format.
//
// Returns:
//   - *slog.Logger: the logger, suitable for common.SetLogger
func (c Config) Logger() *slog.Logger {
	return c.LoggerTo(os.Stderr)
}

// LoggerTo builds a slog logger writing to w at the configured level and format.
func (c Config) LoggerTo(w io.Writer) *slog.Logger {
	level, err := c.Log.level()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(c.Log.Format) == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
