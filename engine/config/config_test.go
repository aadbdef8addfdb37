package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-2d/common"
	"github.com/Carmen-Shannon/oxy-2d/engine/renderer"
	"github.com/Carmen-Shannon/oxy-2d/engine/renderer/shader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tomlConfig = `
[window]
title = "demo"
width = 640
height = 480

[renderer]
backend = "recording"
frames_in_flight = 3
present_mode = "uncapped"
msaa = 4
clear_color = "#102030"

[engine]
tick_rate = 30
profiling = true

[log]
level = "debug"
format = "json"
`

const yamlConfig = `
window:
  title: demo
  width: 640
  height: 480
renderer:
  backend: recording
  frames_in_flight: 3
  present_mode: uncapped
  msaa: 4
  clear_color: "#102030"
engine:
  tick_rate: 30
  profiling: true
log:
  level: debug
  format: json
`

func TestDecodeFormats(t *testing.T) {
	for _, tt := range []struct {
		ext  string
		data string
	}{
		{".toml", tomlConfig},
		{".yaml", yamlConfig},
		{".yml", yamlConfig},
	} {
		t.Run(tt.ext, func(t *testing.T) {
			c, err := Decode([]byte(tt.data), tt.ext)
			require.NoError(t, err)
			assert.Equal(t, "demo", c.Window.Title)
			assert.Equal(t, 640, c.Window.Width)
			assert.True(t, c.Window.Resizable, "unset fields keep their defaults")
			assert.Equal(t, 3, c.Renderer.FramesInFlight)
			assert.Equal(t, 4, c.Renderer.MSAA)
			assert.Equal(t, uint64(5000), c.Renderer.Slack)
			assert.Equal(t, renderer.BackendTypeRecording, c.BackendType())
			assert.Equal(t, 30.0, c.Engine.TickRate)
			assert.True(t, c.Engine.Profiling)
			assert.Equal(t, "json", c.Log.Format)
		})
	}
}

func TestDecodeEmptyKeepsDefaults(t *testing.T) {
	for _, ext := range []string{".toml", ".yaml"} {
		c, err := Decode(nil, ext)
		require.NoError(t, err)
		assert.Equal(t, Default(), c)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		ext  string
		data string
		want error
	}{
		{"format", ".json", "{}", ErrUnsupportedFormat},
		{"msaa", ".toml", "[renderer]\nmsaa = 2", ErrInvalidValue},
		{"frames", ".toml", "[renderer]\nframes_in_flight = 0", ErrInvalidValue},
		{"backend", ".yaml", "renderer:\n  backend: vulkan", ErrInvalidValue},
		{"present", ".yaml", "renderer:\n  present_mode: sometimes", ErrInvalidValue},
		{"color", ".toml", "[renderer]\nclear_color = \"red\"", ErrInvalidValue},
		{"level", ".toml", "[log]\nlevel = \"loud\"", ErrInvalidValue},
		{"size", ".toml", "[window]\nwidth = 0", ErrInvalidValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.data), tt.ext)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := Decode([]byte("[renderer]\nunknown = 1"), ".toml")
	assert.Error(t, err)
	_, err = Decode([]byte("renderer:\n  unknown: 1"), ".yaml")
	assert.Error(t, err)
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#102030")
	require.NoError(t, err)
	assert.Equal(t, common.Color{R: 0x10, G: 0x20, B: 0x30, A: 0xff}, c)

	c, err = ParseColor("ff000080")
	require.NoError(t, err)
	assert.Equal(t, common.Color{R: 255, A: 128}, c)

	_, err = ParseColor("#12345")
	assert.ErrorIs(t, err, ErrInvalidValue)
	_, err = ParseColor("#gggggg")
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestOptionsApply(t *testing.T) {
	c := Default()
	assert.Len(t, c.RendererOptions(), 8)
	assert.Len(t, c.WindowOptions(), 3)
	assert.Len(t, c.EngineOptions(), 3)
	assert.Equal(t, renderer.BackendTypeWGPU, c.BackendType())

	c.Renderer.Backend = "recording"
	opts := append(c.RendererOptions(), renderer.WithCompiler(shader.NewWGSLCompiler(shader.WithSPIRV(false))))
	r, err := renderer.NewRenderer(c.BackendType(), nil, opts...)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, common.Black, r.Context().Targets.Primary().ClearColor())
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	c := Default()
	c.Log.Level = "warn"
	l := c.LoggerTo(&buf)
	l.Info("hidden")
	l.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	buf.Reset()
	c.Log.Format = "json"
	c.Log.Level = "off"
	l = c.LoggerTo(&buf)
	l.Error("silenced")
	assert.Empty(t, buf.String())
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "oxy.toml")
	require.NoError(t, os.WriteFile(path, []byte(tomlConfig), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "demo", c.Window.Title)

	_, err = Load(filepath.Join(dir, "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWatchReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "oxy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("window:\n  title: first\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan Config, 16)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(c Config) { got <- c })
	}()

	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for reloaded := false; !reloaded; {
		select {
		case c := <-got:
			if c.Window.Title == "second" {
				reloaded = true
			}
		case <-tick.C:
			require.NoError(t, os.WriteFile(path, []byte("window:\n  title: second\n"), 0o644))
		case <-deadline:
			t.Fatal("config was not reloaded")
		}
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}
