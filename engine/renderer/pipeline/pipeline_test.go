package pipeline

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-2d/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-2d/engine/renderer/geometry"
	"github.com/Carmen-Shannon/oxy-2d/engine/renderer/shader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type describedPipeline interface {
	Descriptor() backend.PipelineDescriptor
}

func newTestCache(t *testing.T) (Cache, backend.RecordingDevice) {
	t.Helper()
	dev := backend.NewRecordingDevice()
	c := NewCache(dev, shader.NewWGSLCompiler(shader.WithSPIRV(false)))
	require.NoError(t, c.Init(dev.Name()))
	return c, dev
}

func TestInitBuildsEveryCombination(t *testing.T) {
	c, dev := newTestCache(t)
	assert.Equal(t, 50, c.Len())
	assert.Len(t, dev.CallsOf(backend.OpCreatePipeline), 50)

	for _, prim := range backend.Primitives {
		for _, blend := range BlendModes {
			for _, textured := range []bool{false, true} {
				p := c.Get(blend, prim, textured)
				require.NotNil(t, p)
				assert.Equal(t, Key{Primitive: prim, Blend: blend, Textured: textured}, p.Key())
				assert.Equal(t, uint64(64), p.UniformSize())
			}
		}
	}
}

func TestPipelineDescriptors(t *testing.T) {
	c, _ := newTestCache(t)

	solid := c.Get(BlendNormal, backend.PrimitiveTriangleStrip, false)
	desc := solid.Backend().(describedPipeline).Descriptor()
	assert.Equal(t, geometry.LayoutSolid.VertexLayout(), desc.VertexLayout)
	assert.Equal(t, backend.PrimitiveTriangleStrip, desc.Primitive)
	assert.False(t, desc.Textured)
	assert.Equal(t, "vs_main", desc.Vertex.EntryPoint)
	assert.Equal(t, "fs_main", desc.Fragment.EntryPoint)
	assert.Equal(t, BlendNormal.State(), desc.Blend)

	textured := c.Get(BlendNone, backend.PrimitiveTriangleList, true)
	desc = textured.Backend().(describedPipeline).Descriptor()
	assert.Equal(t, geometry.LayoutTextured.VertexLayout(), desc.VertexLayout)
	assert.True(t, desc.Textured)
	assert.Nil(t, desc.Blend)
	assert.Equal(t, "textured/triangles/none", textured.Label())
	assert.Equal(t, shader.ShaderTypeFragment, textured.Shader(shader.ShaderTypeFragment).ShaderType())
}

func TestBlendStates(t *testing.T) {
	tests := []struct {
		mode  BlendMode
		color backend.BlendComponent
		alpha backend.BlendComponent
	}{
		{BlendNormal, backend.BlendComponent{Src: backend.BlendFactorSrcAlpha, Dst: backend.BlendFactorOneMinusSrcAlpha}, backend.BlendComponent{Src: backend.BlendFactorSrcAlpha, Dst: backend.BlendFactorOneMinusSrcAlpha}},
		{BlendMultiply, backend.BlendComponent{Src: backend.BlendFactorZero, Dst: backend.BlendFactorSrcColor}, backend.BlendComponent{Src: backend.BlendFactorZero, Dst: backend.BlendFactorOne}},
		{BlendAdd, backend.BlendComponent{Src: backend.BlendFactorSrcAlpha, Dst: backend.BlendFactorOne}, backend.BlendComponent{Src: backend.BlendFactorSrcAlpha, Dst: backend.BlendFactorOne}},
		{BlendMultiplyMixed, backend.BlendComponent{Src: backend.BlendFactorDstColor, Dst: backend.BlendFactorOneMinusSrcAlpha}, backend.BlendComponent{Src: backend.BlendFactorDstAlpha, Dst: backend.BlendFactorOneMinusSrcAlpha}},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			s := tt.mode.State()
			require.NotNil(t, s)
			assert.Equal(t, tt.color, s.Color)
			assert.Equal(t, tt.alpha, s.Alpha)
		})
	}
	assert.Nil(t, BlendNone.State())
	assert.False(t, BlendMode(9).Valid())
}

func TestGetBeforeInitPanics(t *testing.T) {
	c := NewCache(backend.NewRecordingDevice(), shader.NewWGSLCompiler(shader.WithSPIRV(false)))
	assert.PanicsWithValue(t, ErrCacheNotInitialized, func() {
		c.Get(BlendNormal, backend.PrimitiveTriangleList, false)
	})
}

func TestClearReturnsToUninitialized(t *testing.T) {
	c, _ := newTestCache(t)
	c.Clear()
	assert.Equal(t, 0, c.Len())
	assert.Panics(t, func() { c.Get(BlendNormal, backend.PrimitivePointList, false) })

	require.NoError(t, c.Init("recording"))
	assert.Equal(t, 50, c.Len())
}

func TestInitUnknownBackend(t *testing.T) {
	c := NewCache(backend.NewRecordingDevice(), shader.NewWGSLCompiler(shader.WithSPIRV(false)))
	err := c.Init("metal")
	assert.ErrorIs(t, err, shader.ErrUnsupportedBackend)
	assert.Equal(t, 0, c.Len())
}

func TestInitWithPresetPrograms(t *testing.T) {
	comp := shader.NewWGSLCompiler(shader.WithSPIRV(false))
	solid, textured, err := shader.BuiltinPrograms(comp, "recording")
	require.NoError(t, err)

	c := NewCache(backend.NewRecordingDevice(), nil, WithPrograms(solid, textured))
	require.NoError(t, c.Init("anything"))
	assert.Equal(t, 50, c.Len())
}

func TestNewPipelineRejectsIncompleteProgram(t *testing.T) {
	_, err := NewPipeline(backend.NewRecordingDevice(), Key{}, shader.Program{})
	assert.Error(t, err)
}

func TestRegisterBuildsVariantSet(t *testing.T) {
	c, dev := newTestCache(t)
	solid, _, err := shader.BuiltinPrograms(shader.NewWGSLCompiler(shader.WithSPIRV(false)), dev.Name())
	require.NoError(t, err)

	id, err := c.Register(solid, false)
	require.NoError(t, err)
	assert.Equal(t, 1, id)
	assert.Equal(t, 75, c.Len())

	p, ok := c.Variant(id, BlendAdd, backend.PrimitiveLineList, false)
	require.True(t, ok)
	assert.Equal(t, Key{Primitive: backend.PrimitiveLineList, Blend: BlendAdd}, p.Key())
	assert.NotSame(t, c.Get(BlendAdd, backend.PrimitiveLineList, false), p)

	_, ok = c.Variant(id, BlendAdd, backend.PrimitiveLineList, true)
	assert.False(t, ok, "a solid program has no textured pipelines")
	_, ok = c.Variant(id+1, BlendAdd, backend.PrimitiveLineList, false)
	assert.False(t, ok)

	c.Clear()
	_, ok = c.Variant(id, BlendAdd, backend.PrimitiveLineList, false)
	assert.False(t, ok)
	assert.Zero(t, c.Len())
}
