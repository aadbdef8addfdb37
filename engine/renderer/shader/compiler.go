package shader

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/naga"
)

// ErrCompile wraps failures reported by the WGSL to SPIR-V compiler.
var ErrCompile = errors.New("shader: compile failed")

// Compiler turns WGSL source into shaders ready for pipeline creation.
type Compiler interface {
	// Compile pre-processes and parses a single shader stage and, when enabled, compiles it to SPIR-V.
	//
	// Parameters:
	//   - key: a unique identifier for the shader
	//   - shaderType: the stage to compile
	//   - source: the raw WGSL source
	//
	// Returns:
	//   - Shader: the compiled shader
	//   - error: an error if parsing or compilation fails
	Compile(key string, shaderType ShaderType, source string) (Shader, error)

	// CompileProgram compiles the vertex and fragment stages of one WGSL source.
	//
	// Parameters:
	//   - key: the program key; stages are keyed "<key>.vertex" and "<key>.fragment"
	//   - source: the raw WGSL source containing both entry points
	//
	// Returns:
	//   - Program: the compiled stages
	//   - error: an error if either stage fails
	CompileProgram(key string, source string) (Program, error)
}

// Program is a matched vertex and fragment shader pair.
type Program struct {
	Vertex   Shader
	Fragment Shader
}

type wgslCompiler struct {
	mu    *sync.Mutex
	spirv bool
	cache map[string][]byte
}

var _ Compiler = &wgslCompiler{}

// NewWGSLCompiler creates a Compiler backed by naga. SPIR-V output is enabled by default and is
// cached per processed source, so both stages of a program share one compilation.
//
// Parameters:
//   - opts: builder options
//
// Returns:
//   - Compiler: the compiler
func NewWGSLCompiler(opts ...CompilerBuilderOption) Compiler {
	c := &wgslCompiler{
		mu:    &sync.Mutex{},
		spirv: true,
		cache: make(map[string][]byte),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *wgslCompiler) Compile(key string, shaderType ShaderType, source string) (Shader, error) {
	sh, err := NewShader(key, shaderType, source)
	if err != nil {
		return nil, err
	}
	if !c.spirv {
		return sh, nil
	}

	bytecode, err := c.spirvFor(sh.Source())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCompile, key, err)
	}
	sh.(*shader).bytecode = bytecode
	return sh, nil
}

func (c *wgslCompiler) CompileProgram(key string, source string) (Program, error) {
	vs, err := c.Compile(key+".vertex", ShaderTypeVertex, source)
	if err != nil {
		return Program{}, err
	}
	fs, err := c.Compile(key+".fragment", ShaderTypeFragment, source)
	if err != nil {
		return Program{}, err
	}
	return Program{Vertex: vs, Fragment: fs}, nil
}

func (c *wgslCompiler) spirvFor(source string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if b, ok := c.cache[source]; ok {
		return b, nil
	}
	b, err := naga.Compile(source)
	if err != nil {
		return nil, err
	}
	c.cache[source] = b
	return b, nil
}
