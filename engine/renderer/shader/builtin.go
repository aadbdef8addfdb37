package shader

import (
	_ "embed"
	"errors"
	"fmt"
)

//go:embed assets/solid.wgsl
var solidSource string

//go:embed assets/textured.wgsl
var texturedSource string

// ErrUnsupportedBackend is returned when no built-in shader set exists for a backend.
var ErrUnsupportedBackend = errors.New("shader: no built-in shaders for backend")

// builtinSources maps backend names to their solid and textured program sources.
var builtinSources = map[string][2]string{
	"wgpu":      {solidSource, texturedSource},
	"recording": {solidSource, texturedSource},
}

// BuiltinSource returns the WGSL source of the built-in solid or textured program for a backend.
//
// Parameters:
//   - backendName: the device name, as reported by backend.Device.Name
//   - textured: true for the textured program, false for the solid one
//
// Returns:
//   - string: the WGSL source
//   - error: ErrUnsupportedBackend for unknown backends
func BuiltinSource(backendName string, textured bool) (string, error) {
	sources, ok := builtinSources[backendName]
	if !ok {
		return "", fmt.Errorf("%w %q", ErrUnsupportedBackend, backendName)
	}
	if textured {
		return sources[1], nil
	}
	return sources[0], nil
}

// BuiltinPrograms compiles the solid and textured programs for a backend.
//
// Parameters:
//   - c: the compiler to use
//   - backendName: the device name
//
// Returns:
//   - solid: the untextured program
//   - textured: the textured program
//   - err: an error if the backend is unsupported or compilation fails
func BuiltinPrograms(c Compiler, backendName string) (solid Program, textured Program, err error) {
	src, err := BuiltinSource(backendName, false)
	if err != nil {
		return Program{}, Program{}, err
	}
	if solid, err = c.CompileProgram("solid", src); err != nil {
		return Program{}, Program{}, err
	}
	src, _ = BuiltinSource(backendName, true)
	if textured, err = c.CompileProgram("textured", src); err != nil {
		return Program{}, Program{}, err
	}
	return solid, textured, nil
}
