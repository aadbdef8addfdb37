package shader

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-2d/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-2d/engine/renderer/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreProcessorExpandsAnnotations(t *testing.T) {
	pp := NewPreProcessor()
	out, err := pp.Process("//@oxy:include uniforms\n//@oxy:group 0 0 uniform uniforms uniforms\nfn f() {}")
	require.NoError(t, err)

	assert.Contains(t, out, "struct Uniforms")
	assert.Contains(t, out, "@group(0) @binding(0) var<uniform> uniforms: Uniforms;")
	require.Len(t, pp.Declarations(), 1)
	assert.Equal(t, 0, *pp.Declarations()[0].Group)
	assert.Equal(t, AnnotationArg("uniforms"), pp.Declarations()[0].Args[1])
}

func TestPreProcessorLeavesPlainSourceAlone(t *testing.T) {
	src := "// a comment\nfn f() {}"
	out, err := NewPreProcessor().Process(src)
	require.NoError(t, err)
	assert.Equal(t, src, out)
}

func TestParseAnnotationErrors(t *testing.T) {
	cases := []string{
		"//@oxy:",
		"//@oxy:include",
		"//@oxy:include sprites",
		"//@oxy:group a 0 uniform u uniforms",
		"//@oxy:group 0 b uniform u uniforms",
		"//@oxy:group 0 0 private u uniforms",
		"//@oxy:group 0 0 uniform u",
		"//@oxy:bogus x",
	}
	for _, line := range cases {
		t.Run(line, func(t *testing.T) {
			_, err := parseAnnotation(line, 3)
			assert.Error(t, err)
			assert.Contains(t, err.Error(), "line 3")
		})
	}

	a, err := parseAnnotation("let x = 1; // @oxy: is not at the start", 1)
	assert.NoError(t, err)
	assert.Nil(t, a)
}

func TestBuiltinVertexLayoutsMatchGeometry(t *testing.T) {
	for _, tc := range []struct {
		textured bool
		layout   geometry.Layout
	}{
		{false, geometry.LayoutSolid},
		{true, geometry.LayoutTextured},
	} {
		t.Run(tc.layout.String(), func(t *testing.T) {
			src, err := BuiltinSource("recording", tc.textured)
			require.NoError(t, err)
			vs, err := NewShader("vs", ShaderTypeVertex, src)
			require.NoError(t, err)

			got, ok := vs.VertexLayout()
			require.True(t, ok)
			assert.Equal(t, tc.layout.VertexLayout(), got)
			assert.Equal(t, "vs_main", vs.EntryPoint())
		})
	}
}

func TestBuiltinBindings(t *testing.T) {
	src, err := BuiltinSource("wgpu", true)
	require.NoError(t, err)
	fs, err := NewShader("fs", ShaderTypeFragment, src)
	require.NoError(t, err)

	assert.Equal(t, "fs_main", fs.EntryPoint())
	_, ok := fs.VertexLayout()
	assert.False(t, ok)

	bindings := fs.Bindings()
	require.Len(t, bindings, 3)
	assert.Equal(t, Binding{Group: 0, Binding: 0, Name: "uniforms", TypeName: "Uniforms", Kind: ResourceUniform, Size: 64}, bindings[0])
	assert.Equal(t, ResourceTexture, bindings[1].Kind)
	assert.Equal(t, "u_Texture", bindings[1].Name)
	assert.Equal(t, ResourceSampler, bindings[2].Kind)
	assert.Equal(t, uint32(1), bindings[2].Binding)
	assert.Len(t, fs.Declarations(), 1)
}

func TestUniformLayoutOffsets(t *testing.T) {
	src := `
struct Params {
    scale: f32,
    offset: vec3<f32>,
    tint: vec4<f32>,
    m: mat4x4<f32>,
};
@group(0) @binding(0) var<uniform> params: Params;
@fragment
fn fs_main() -> @location(0) vec4<f32> { return params.tint; }
`
	fs, err := NewShader("params", ShaderTypeFragment, src)
	require.NoError(t, err)

	layout, ok := fs.UniformLayout("params")
	require.True(t, ok)
	assert.Equal(t, uint64(112), layout.Size)

	for name, want := range map[string]uint64{"scale": 0, "offset": 16, "tint": 32, "m": 48} {
		got, ok := layout.Offset(name)
		require.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}
	_, ok = layout.Offset("missing")
	assert.False(t, ok)
}

func TestUniformBlockPacksProjection(t *testing.T) {
	src, err := BuiltinSource("recording", false)
	require.NoError(t, err)
	vs, err := NewShader("vs", ShaderTypeVertex, src)
	require.NoError(t, err)

	layout, ok := vs.UniformLayout(UniformBlockName)
	require.True(t, ok)
	block := NewUniformBlock(layout)
	require.Len(t, block.Bytes(), 64)

	var m [16]float32
	m[0], m[15] = 2, 1
	require.NoError(t, block.SetMat4(ProjectionTransformUniform, m))
	assert.Equal(t, []byte{0, 0, 0, 0x40}, block.Bytes()[0:4])
	assert.Equal(t, []byte{0, 0, 0x80, 0x3f}, block.Bytes()[60:64])

	assert.ErrorIs(t, block.SetFloats("nope", 1), ErrUnknownUniform)
	assert.ErrorIs(t, block.SetFloats(ProjectionTransformUniform, make([]float32, 17)...), ErrUniformOverflow)
}

func TestNewShaderErrors(t *testing.T) {
	_, err := NewShader("frag-only", ShaderTypeVertex, "@fragment fn fs_main() -> @location(0) vec4<f32> { return vec4<f32>(); }")
	assert.ErrorIs(t, err, ErrNoEntryPoint)

	_, err = NewShader("no-input", ShaderTypeVertex, "@vertex fn vs_main() -> @builtin(position) vec4<f32> { return vec4<f32>(); }")
	assert.ErrorIs(t, err, ErrNoVertexInput)

	_, err = NewShader("bad-annotation", ShaderTypeFragment, "//@oxy:include nothing")
	assert.Error(t, err)

	_, err = NewShaderFromPath("missing", ShaderTypeFragment, "does/not/exist.wgsl")
	assert.Error(t, err)
}

func TestBuiltinSourceUnknownBackend(t *testing.T) {
	_, err := BuiltinSource("vulkan-direct", false)
	assert.ErrorIs(t, err, ErrUnsupportedBackend)
}

func TestCompilerParseOnly(t *testing.T) {
	c := NewWGSLCompiler(WithSPIRV(false))
	solid, textured, err := BuiltinPrograms(c, "recording")
	require.NoError(t, err)

	assert.Equal(t, "solid.vertex", solid.Vertex.Key())
	assert.Equal(t, ShaderTypeFragment, textured.Fragment.ShaderType())
	assert.Nil(t, solid.Vertex.Bytecode())

	mod := textured.Vertex.Module()
	assert.Equal(t, backend.ShaderModule{Label: "textured.vertex", Source: textured.Vertex.Source(), EntryPoint: "vs_main"}, mod)
}

func TestCompilerProducesSPIRV(t *testing.T) {
	c := NewWGSLCompiler()
	solid, textured, err := BuiltinPrograms(c, "wgpu")
	require.NoError(t, err)

	for _, sh := range []Shader{solid.Vertex, solid.Fragment, textured.Vertex, textured.Fragment} {
		b := sh.Bytecode()
		require.NotEmpty(t, b, sh.Key())
		assert.Equal(t, []byte{0x03, 0x02, 0x23, 0x07}, b[:4], "SPIR-V magic number")
	}
}
