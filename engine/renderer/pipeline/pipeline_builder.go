package pipeline

import "github.com/Carmen-Shannon/oxy-2d/engine/renderer/shader"

// PipelineBuilderOption is a functional option used to configure a Pipeline during construction.
type PipelineBuilderOption func(*pipeline)

// WithLabel overrides the debug label derived from the key.
//
// Parameters:
//   - label: the backend debug label
//
// Returns:
//   - PipelineBuilderOption: a function that sets the label
func WithLabel(label string) PipelineBuilderOption {
	return func(p *pipeline) {
		p.label = label
	}
}

// WithUniformSize overrides the uniform block size reflected from the vertex shader.
//
// Parameters:
//   - size: the uniform block size in bytes
//
// Returns:
//   - PipelineBuilderOption: a function that sets the uniform size
func WithUniformSize(size uint64) PipelineBuilderOption {
	return func(p *pipeline) {
		p.uniformSize = size
	}
}

// CacheBuilderOption is a functional option used to configure a Cache during construction.
type CacheBuilderOption func(*cache)

// WithPrograms supplies precompiled programs, skipping the built-in shader compilation in Init.
//
// Parameters:
//   - solid: the program for untextured pipelines
//   - textured: the program for textured pipelines
//
// Returns:
//   - CacheBuilderOption: a function that sets the programs
func WithPrograms(solid, textured shader.Program) CacheBuilderOption {
	return func(c *cache) {
		c.solid = solid
		c.textured = textured
		c.preset = true
	}
}
