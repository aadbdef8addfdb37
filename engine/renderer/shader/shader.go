package shader

import (
	"errors"
	"fmt"
	"os"

	"github.com/Carmen-Shannon/oxy-2d/engine/renderer/backend"
)

var (
	// ErrNoEntryPoint is returned when a shader source has no entry point for the requested stage.
	ErrNoEntryPoint = errors.New("shader: no entry point for stage")

	// ErrNoVertexInput is returned when a vertex shader declares no vertex input struct.
	ErrNoVertexInput = errors.New("shader: vertex shader has no vertex input struct")
)

// ShaderType identifies the pipeline stage a shader runs in.
type ShaderType int

const (
	// ShaderTypeVertex is the vertex shader type, used for vertex processing in render pipelines.
	ShaderTypeVertex ShaderType = iota

	// ShaderTypeFragment is the fragment shader type, used for fragment processing in pair with a vertex shader.
	ShaderTypeFragment
)

func (t ShaderType) String() string {
	switch t {
	case ShaderTypeVertex:
		return "vertex"
	case ShaderTypeFragment:
		return "fragment"
	default:
		return fmt.Sprintf("ShaderType(%d)", int(t))
	}
}

// ResourceKind classifies a @group/@binding resource declaration.
type ResourceKind int

const (
	ResourceUnknown ResourceKind = iota
	ResourceUniform
	ResourceStorage
	ResourceTexture
	ResourceSampler
)

// Binding is a resource declaration parsed from shader source.
type Binding struct {
	Group    uint32
	Binding  uint32
	Name     string
	TypeName string
	Kind     ResourceKind

	// Size is the byte size of the bound type for buffer bindings, zero otherwise.
	Size uint64
}

// shader is the implementation of the Shader interface.
type shader struct {
	key            string
	source         string
	shaderType     ShaderType
	entryPoint     string
	bytecode       []byte
	vertexLayout   backend.VertexLayout
	hasVertex      bool
	bindings       []Binding
	uniformLayouts []UniformLayout

	pp PreProcessor
}

// Shader defines the interface for a pre-processed and parsed WGSL shader stage. It exposes the
// shader's key, processed source, entry point, vertex layout and resource bindings needed for
// pipeline creation and uniform packing.
type Shader interface {
	// Key retrieves the unique identifier for this shader, used for caching and lookups.
	//
	// Returns:
	//   - string: the shader's unique key
	Key() string

	// ShaderType returns the stage of the shader.
	//
	// Returns:
	//   - ShaderType: ShaderTypeVertex or ShaderTypeFragment
	ShaderType() ShaderType

	// Source retrieves the pre-processed WGSL shader source code.
	//
	// Returns:
	//   - string: the WGSL source code of the shader
	Source() string

	// EntryPoint returns the entry point name for this shader.
	//
	// Returns:
	//   - string: the entry point name (e.g. "vs_main")
	EntryPoint() string

	// Bytecode returns the compiled SPIR-V words as little endian bytes, or nil when the shader
	// was not compiled to an intermediate form.
	//
	// Returns:
	//   - []byte: the compiled bytecode
	Bytecode() []byte

	// VertexLayout returns the layout of the first vertex input struct declared by a vertex shader.
	//
	// Returns:
	//   - backend.VertexLayout: the vertex layout
	//   - bool: false for fragment shaders or sources without a vertex input struct
	VertexLayout() (backend.VertexLayout, bool)

	// Bindings returns every resource binding declared by the source, sorted by group then binding.
	//
	// Returns:
	//   - []Binding: the bindings
	Bindings() []Binding

	// UniformLayouts returns the resolved layout of every uniform buffer binding.
	//
	// Returns:
	//   - []UniformLayout: the uniform layouts
	UniformLayouts() []UniformLayout

	// UniformLayout looks up a uniform buffer layout by its variable name.
	//
	// Parameters:
	//   - name: the WGSL variable name, e.g. "uniforms"
	//
	// Returns:
	//   - UniformLayout: the layout
	//   - bool: false if no uniform binding has that name
	UniformLayout(name string) (UniformLayout, bool)

	// Module returns the backend shader module for this stage.
	//
	// Returns:
	//   - backend.ShaderModule: the module carrying label, source, entry point and bytecode
	Module() backend.ShaderModule

	// Declarations returns the @oxy:group annotations collected while pre-processing the source.
	//
	// Returns:
	//   - []Annotation: the group declarations in source order
	Declarations() []Annotation
}

var _ Shader = &shader{}

// NewShader pre-processes and parses WGSL source for a single stage.
//
// Parameters:
//   - key: a unique identifier for the shader, used for caching and lookups
//   - shaderType: the stage the shader runs in
//   - source: the raw WGSL source, which may contain @oxy: annotations
//
// Returns:
//   - Shader: the parsed shader
//   - error: an error if pre-processing fails or the stage has no entry point
func NewShader(key string, shaderType ShaderType, source string) (Shader, error) {
	s := &shader{
		key:        key,
		shaderType: shaderType,
		pp:         NewPreProcessor(),
	}
	if err := s.parseSource(source); err != nil {
		return nil, fmt.Errorf("shader %s: %w", key, err)
	}
	return s, nil
}

// NewShaderFromPath reads WGSL source from disk and parses it with NewShader.
//
// Parameters:
//   - key: a unique identifier for the shader
//   - shaderType: the stage the shader runs in
//   - sourcePath: the file path to read WGSL source from
//
// Returns:
//   - Shader: the parsed shader
//   - error: an error if the file cannot be read or the source is invalid
func NewShaderFromPath(key string, shaderType ShaderType, sourcePath string) (Shader, error) {
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("shader %s: failed to read source file %q: %w", key, sourcePath, err)
	}
	return NewShader(key, shaderType, string(data))
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) ShaderType() ShaderType {
	return s.shaderType
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) EntryPoint() string {
	return s.entryPoint
}

func (s *shader) Bytecode() []byte {
	return s.bytecode
}

func (s *shader) VertexLayout() (backend.VertexLayout, bool) {
	return s.vertexLayout, s.hasVertex
}

func (s *shader) Bindings() []Binding {
	return s.bindings
}

func (s *shader) UniformLayouts() []UniformLayout {
	return s.uniformLayouts
}

func (s *shader) UniformLayout(name string) (UniformLayout, bool) {
	for _, l := range s.uniformLayouts {
		if l.Name == name {
			return l, true
		}
	}
	return UniformLayout{}, false
}

func (s *shader) Module() backend.ShaderModule {
	return backend.ShaderModule{
		Label:      s.key,
		Source:     s.source,
		EntryPoint: s.entryPoint,
		Bytecode:   s.bytecode,
	}
}

func (s *shader) Declarations() []Annotation {
	return s.pp.Declarations()
}

// parseSource runs the pre-processor, then extracts the entry point, the vertex layout for vertex
// shaders, and the resource bindings.
func (s *shader) parseSource(source string) error {
	processed, err := s.pp.Process(source)
	if err != nil {
		return fmt.Errorf("failed to pre-process source: %w", err)
	}
	s.source = processed

	s.entryPoint = parseEntryPoint(s.source, s.shaderType)
	if s.entryPoint == "" {
		return fmt.Errorf("%w %s", ErrNoEntryPoint, s.shaderType)
	}

	if s.shaderType == ShaderTypeVertex {
		layouts := parseVertexLayouts(s.source)
		if len(layouts) == 0 {
			return ErrNoVertexInput
		}
		s.vertexLayout = layouts[0]
		s.hasVertex = true
	}

	s.bindings = parseBindings(s.source)
	s.uniformLayouts = parseUniformLayouts(s.source, s.bindings)
	return nil
}
