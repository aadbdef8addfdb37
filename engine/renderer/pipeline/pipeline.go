package pipeline

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-2d/common"
	"github.com/Carmen-Shannon/oxy-2d/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-2d/engine/renderer/shader"
)

// Key identifies one of the fixed pipeline combinations.
type Key struct {
	Primitive backend.Primitive
	Blend     BlendMode
	Textured  bool
}

func (k Key) String() string {
	kind := "solid"
	if k.Textured {
		kind = "textured"
	}
	return fmt.Sprintf("%s/%s/%s", kind, k.Primitive, k.Blend)
}

// pipeline is the implementation of the Pipeline interface.
// It pairs a compiled program with the backend pipeline built from it.
type pipeline struct {
	key                          Key
	label                        string
	vertexShader, fragmentShader shader.Shader
	uniformSize                  uint64
	backendPipeline              backend.Pipeline
}

// Pipeline is an immutable render pipeline for a primitive topology, blend mode and vertex layout.
type Pipeline interface {
	// Key returns the combination this pipeline was built for.
	//
	// Returns:
	//   - Key: the pipeline key
	Key() Key

	// Label returns the debug label passed to the backend.
	//
	// Returns:
	//   - string: the label
	Label() string

	// Shader retrieves the shader of the given stage.
	//
	// Parameters:
	//   - shaderType: the stage to retrieve
	//
	// Returns:
	//   - shader.Shader: the shader, or nil for an unknown stage
	Shader(shaderType shader.ShaderType) shader.Shader

	// UniformSize returns the byte size of the uniform block bound at group 0.
	//
	// Returns:
	//   - uint64: the uniform block size
	UniformSize() uint64

	// Backend returns the backend pipeline object bound in render passes.
	//
	// Returns:
	//   - backend.Pipeline: the backend pipeline
	Backend() backend.Pipeline

	// Release destroys the backend pipeline.
	Release()
}

var _ Pipeline = &pipeline{}

// NewPipeline builds the backend pipeline for a key from a compiled program. The vertex layout is
// taken from the vertex shader's reflected input struct.
//
// Parameters:
//   - device: the device to create the pipeline on
//   - key: the combination to build
//   - program: the compiled vertex and fragment shaders
//   - opts: builder options
//
// Returns:
//   - Pipeline: the pipeline
//   - error: an error if the program is incomplete or the backend rejects the descriptor
func NewPipeline(device backend.Device, key Key, program shader.Program, opts ...PipelineBuilderOption) (Pipeline, error) {
	if program.Vertex == nil || program.Fragment == nil {
		return nil, fmt.Errorf("pipeline %s: program is missing a stage", key)
	}
	layout, ok := program.Vertex.VertexLayout()
	if !ok {
		return nil, fmt.Errorf("pipeline %s: %w", key, shader.ErrNoVertexInput)
	}

	p := &pipeline{
		key:            key,
		label:          key.String(),
		vertexShader:   program.Vertex,
		fragmentShader: program.Fragment,
	}
	if ul, ok := program.Vertex.UniformLayout(shader.UniformBlockName); ok {
		p.uniformSize = ul.Size
	}
	for _, opt := range opts {
		opt(p)
	}

	bp, err := device.CreatePipeline(backend.PipelineDescriptor{
		Label:        p.label,
		Vertex:       program.Vertex.Module(),
		Fragment:     program.Fragment.Module(),
		VertexLayout: layout,
		Primitive:    key.Primitive,
		Blend:        key.Blend.State(),
		Textured:     key.Textured,
		UniformSize:  p.uniformSize,
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline %s: %w", key, err)
	}
	p.backendPipeline = bp
	common.Logger().Debug("pipeline built", "key", p.label)
	return p, nil
}

func (p *pipeline) Key() Key {
	return p.key
}

func (p *pipeline) Label() string {
	return p.label
}

func (p *pipeline) Shader(shaderType shader.ShaderType) shader.Shader {
	switch shaderType {
	case shader.ShaderTypeVertex:
		return p.vertexShader
	case shader.ShaderTypeFragment:
		return p.fragmentShader
	default:
		return nil
	}
}

func (p *pipeline) UniformSize() uint64 {
	return p.uniformSize
}

func (p *pipeline) Backend() backend.Pipeline {
	return p.backendPipeline
}

func (p *pipeline) Release() {
	if p.backendPipeline != nil {
		p.backendPipeline.Release()
		p.backendPipeline = nil
	}
}
