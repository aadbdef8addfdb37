package target

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-2d/common"
	"github.com/Carmen-Shannon/oxy-2d/engine/renderer/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type zeroSource struct{}

func (zeroSource) Snapshot() uint32 { return 0 }

func newTestArena(opts ...ArenaBuilderOption) (Arena, backend.RecordingDevice) {
	dev := backend.NewRecordingDevice()
	return NewArena(dev, zeroSource{}, opts...), dev
}

func TestPrimaryTarget(t *testing.T) {
	a, _ := newTestArena(WithPrimaryClearColor(common.Color{B: 255, A: 255}))
	p := a.Primary()
	require.NotNil(t, p)
	assert.True(t, p.IsPrimary())
	assert.Equal(t, common.Size{W: 800, H: 600}, p.Size())
	assert.Nil(t, p.Texture())
	assert.Nil(t, p.GPU())
	assert.False(t, p.Invalidated())
	assert.Equal(t, common.Color{B: 255, A: 255}, p.ClearColor())
	assert.Equal(t, 1, a.Len())

	got, err := a.Get(PrimaryHandle)
	require.NoError(t, err)
	assert.Same(t, p, got)
	require.NoError(t, a.Release(PrimaryHandle))
	assert.Equal(t, 1, a.Len(), "the primary target is never released")
}

func TestCreateResizeRelease(t *testing.T) {
	a, dev := newTestArena()
	h := a.Create()
	assert.Equal(t, Handle{ID: 1, Generation: 1}, h)

	tg, err := a.Get(h)
	require.NoError(t, err)
	assert.Equal(t, common.Transparent, tg.ClearColor())
	assert.Nil(t, tg.Texture())

	changed, err := tg.Resize(common.Size{W: 64, H: 32})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, tg.Invalidated())
	require.NotNil(t, tg.Texture())
	assert.Equal(t, uint32(64), tg.Texture().Width())
	assert.True(t, tg.Texture().Smooth())
	assert.Equal(t, 1, dev.LiveTextures())

	tg.ClearInvalidated()
	changed, err = tg.Resize(common.Size{W: 64, H: 32})
	require.NoError(t, err)
	assert.False(t, changed, "same size keeps the texture")
	changed, _ = tg.Resize(common.Size{W: 0, H: 32})
	assert.False(t, changed, "invalid sizes are ignored")
	assert.False(t, tg.Invalidated())

	changed, err = tg.Resize(common.Size{W: 128, H: 32})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 1, dev.LiveTextures(), "the old texture is released")

	require.NoError(t, a.Release(h))
	assert.Equal(t, 0, dev.LiveTextures())
	assert.Equal(t, 1, a.Len())
}

func TestRefCounting(t *testing.T) {
	a, _ := newTestArena()
	h := a.Create()
	require.NoError(t, a.Retain(h))
	require.NoError(t, a.Release(h))

	_, err := a.Get(h)
	require.NoError(t, err, "still retained once")

	require.NoError(t, a.Release(h))
	_, err = a.Get(h)
	assert.ErrorIs(t, err, ErrStaleHandle)
	assert.ErrorIs(t, a.Release(h), ErrStaleHandle)
	assert.ErrorIs(t, a.Retain(h), ErrStaleHandle)
}

func TestOwnerResolvesTargetTextures(t *testing.T) {
	a, _ := newTestArena()
	h := a.Create()
	tg, err := a.Get(h)
	require.NoError(t, err)
	_, err = tg.Resize(common.Size{W: 8, H: 8})
	require.NoError(t, err)

	owner, ok := a.Owner(tg.Texture())
	require.True(t, ok)
	assert.Equal(t, h, owner)

	old := tg.Texture()
	_, err = tg.Resize(common.Size{W: 16, H: 16})
	require.NoError(t, err)
	_, ok = a.Owner(old)
	assert.False(t, ok, "replaced textures no longer resolve")

	_, ok = a.Owner(nil)
	assert.False(t, ok)

	tex := tg.Texture()
	require.NoError(t, a.Release(h))
	_, ok = a.Owner(tex)
	assert.False(t, ok)
}

func TestRecycledIDsInvalidateOldHandles(t *testing.T) {
	a, _ := newTestArena()
	old := a.Create()
	require.NoError(t, a.Release(old))

	fresh := a.Create()
	assert.Equal(t, old.ID, fresh.ID)
	assert.NotEqual(t, old.Generation, fresh.Generation)

	_, err := a.Get(old)
	assert.ErrorIs(t, err, ErrStaleHandle)
	_, err = a.Get(fresh)
	assert.NoError(t, err)

	_, err = a.Get(Handle{ID: 42})
	assert.ErrorIs(t, err, ErrUnknownTarget)
}

func TestEachAndClose(t *testing.T) {
	a, dev := newTestArena()
	for range 3 {
		h := a.Create()
		tg, _ := a.Get(h)
		_, err := tg.Resize(common.Size{W: 8, H: 8})
		require.NoError(t, err)
	}
	n := 0
	a.Each(func(*Target) { n++ })
	assert.Equal(t, 4, n)
	assert.Equal(t, 3, dev.LiveTextures())

	a.Close()
	assert.Equal(t, 0, a.Len())
	assert.Equal(t, 0, dev.LiveTextures())
}

func TestPrimaryResize(t *testing.T) {
	a, dev := newTestArena()
	p := a.Primary()
	changed, err := p.Resize(common.Size{W: 1024, H: 768})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, p.Invalidated())
	assert.Equal(t, 0, dev.LiveTextures())
}
