// Package config loads engine, window and renderer settings from TOML or YAML files and translates
// them into the builder options of each component.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/Carmen-Shannon/oxy-2d/common"
)

var (
	// ErrUnsupportedFormat is returned for config files that are neither TOML nor YAML.
	ErrUnsupportedFormat = errors.New("config: unsupported file format")

	// ErrInvalidValue is returned when a decoded value is out of range.
	ErrInvalidValue = errors.New("config: invalid value")
)

// Config is the complete file configuration. Zero sections fall back to Default.
type Config struct {
	Window   WindowConfig   `toml:"window" yaml:"window"`
	Renderer RendererConfig `toml:"renderer" yaml:"renderer"`
	Engine   EngineConfig   `toml:"engine" yaml:"engine"`
	Log      LogConfig      `toml:"log" yaml:"log"`
}

// WindowConfig configures the platform window.
type WindowConfig struct {
	Title     string `toml:"title" yaml:"title"`
	Width     int    `toml:"width" yaml:"width"`
	Height    int    `toml:"height" yaml:"height"`
	Resizable bool   `toml:"resizable" yaml:"resizable"`
}

// RendererConfig configures the renderer and its device.
type RendererConfig struct {
	// Backend is "wgpu" or "recording".
	Backend        string `toml:"backend" yaml:"backend"`
	FramesInFlight int    `toml:"frames_in_flight" yaml:"frames_in_flight"`
	// PresentMode is "vsync" or "uncapped".
	PresentMode string `toml:"present_mode" yaml:"present_mode"`
	// MSAA is the sample count, 1 or 4.
	MSAA          int    `toml:"msaa" yaml:"msaa"`
	MaxStateDepth int    `toml:"max_state_depth" yaml:"max_state_depth"`
	Slack         uint64 `toml:"slack" yaml:"slack"`
	// ClearColor is the primary clear color as #rrggbb or #rrggbbaa.
	ClearColor         string `toml:"clear_color" yaml:"clear_color"`
	SmoothFrameBuffers bool   `toml:"smooth_frame_buffers" yaml:"smooth_frame_buffers"`
	ForceSoftware      bool   `toml:"force_software" yaml:"force_software"`
}

// EngineConfig configures the engine loop.
type EngineConfig struct {
	TickRate   float64 `toml:"tick_rate" yaml:"tick_rate"`
	FrameLimit float64 `toml:"frame_limit" yaml:"frame_limit"`
	Profiling  bool    `toml:"profiling" yaml:"profiling"`
}

// LogConfig configures the engine logger.
type LogConfig struct {
	// Level is "debug", "info", "warn", "error" or "off".
	Level string `toml:"level" yaml:"level"`
	// Format is "text" or "json".
	Format string `toml:"format" yaml:"format"`
}

// Default returns the configuration used when no file is given.
//
// Returns:
//   - Config: the defaults
func Default() Config {
	return Config{
		Window: WindowConfig{
			Title:     "oxy-2d",
			Width:     1280,
			Height:    720,
			Resizable: true,
		},
		Renderer: RendererConfig{
			Backend:            "wgpu",
			FramesInFlight:     2,
			PresentMode:        "vsync",
			MSAA:               1,
			Slack:              5000,
			ClearColor:         "#000000ff",
			SmoothFrameBuffers: true,
		},
		Engine: EngineConfig{
			TickRate: 60,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a config file over Default. The format is chosen by extension: .toml, .yaml or .yml.
//
// Parameters:
//   - path: the file path
//
// Returns:
//   - Config: the decoded and validated config
//   - error: a read, decode or validation error
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %q: %w", path, err)
	}
	return Decode(data, filepath.Ext(path))
}

// Decode parses config bytes over Default.
//
// Parameters:
//   - data: the file contents
//   - ext: the format extension, ".toml", ".yaml" or ".yml"
//
// Returns:
//   - Config: the decoded and validated config
//   - error: ErrUnsupportedFormat, a decode error or ErrInvalidValue
func Decode(data []byte, ext string) (Config, error) {
	c := Default()
	switch strings.ToLower(ext) {
	case ".toml":
		if err := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields().Decode(&c); err != nil {
			return Config{}, fmt.Errorf("config: decode toml: %w", err)
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&c); err != nil && len(bytes.TrimSpace(data)) > 0 {
			return Config{}, fmt.Errorf("config: decode yaml: %w", err)
		}
	default:
		return Config{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks value ranges.
//
// Returns:
//   - error: ErrInvalidValue describing the first bad field
func (c Config) Validate() error {
	switch {
	case c.Window.Width <= 0 || c.Window.Height <= 0:
		return fmt.Errorf("%w: window size %dx%d", ErrInvalidValue, c.Window.Width, c.Window.Height)
	case c.Renderer.FramesInFlight < 1:
		return fmt.Errorf("%w: frames_in_flight %d", ErrInvalidValue, c.Renderer.FramesInFlight)
	case c.Renderer.MSAA != 1 && c.Renderer.MSAA != 4:
		return fmt.Errorf("%w: msaa %d", ErrInvalidValue, c.Renderer.MSAA)
	case c.Renderer.MaxStateDepth < 0:
		return fmt.Errorf("%w: max_state_depth %d", ErrInvalidValue, c.Renderer.MaxStateDepth)
	case c.Engine.TickRate < 0 || c.Engine.FrameLimit < 0:
		return fmt.Errorf("%w: negative engine rate", ErrInvalidValue)
	}
	if _, err := c.Renderer.backendType(); err != nil {
		return err
	}
	if _, err := c.Renderer.presentMode(); err != nil {
		return err
	}
	if _, err := ParseColor(c.Renderer.ClearColor); err != nil {
		return err
	}
	if _, err := c.Log.level(); err != nil {
		return err
	}
	if f := strings.ToLower(c.Log.Format); f != "text" && f != "json" {
		return fmt.Errorf("%w: log format %q", ErrInvalidValue, c.Log.Format)
	}
	return nil
}

// ParseColor parses #rrggbb or #rrggbbaa. Six digit colors are opaque.
//
// Parameters:
//   - s: the color string
//
// Returns:
//   - common.Color: the color
//   - error: ErrInvalidValue for malformed strings
func ParseColor(s string) (common.Color, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return common.Color{}, fmt.Errorf("%w: color %q", ErrInvalidValue, s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return common.Color{}, fmt.Errorf("%w: color %q", ErrInvalidValue, s)
	}
	return common.Color{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

func (l LogConfig) level() (slog.Level, error) {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	case "off":
		return slog.LevelError + 4, nil
	default:
		return 0, fmt.Errorf("%w: log level %q", ErrInvalidValue, l.Level)
	}
}
