package texture

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/Carmen-Shannon/oxy-2d/common"
	"github.com/Carmen-Shannon/oxy-2d/engine/renderer/backend"
	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidImage(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestNewRejectsInvalidData(t *testing.T) {
	_, err := New(common.TextureStagingData{})
	assert.ErrorIs(t, err, ErrInvalidTexture)

	_, err = New(common.TextureStagingData{Pixels: make([]byte, 3), Width: 1, Height: 1})
	assert.ErrorIs(t, err, ErrInvalidTexture)

	_, err = FromImage(nil)
	assert.ErrorIs(t, err, ErrInvalidTexture)
}

func TestFromImageConvertsToStraightRGBA(t *testing.T) {
	src := image.NewRGBA(image.Rect(2, 3, 4, 4))
	src.Set(2, 3, color.RGBA{R: 255, A: 255})
	src.Set(3, 3, color.RGBA{G: 255, A: 255})

	tex, err := FromImage(src, WithLabel("pair"))
	require.NoError(t, err)
	assert.Equal(t, uint32(2), tex.Width())
	assert.Equal(t, uint32(1), tex.Height())
	assert.Equal(t, "pair", tex.Label())
	assert.True(t, tex.Pending())
	assert.Equal(t, []byte{255, 0, 0, 255, 0, 255, 0, 255}, tex.pending.Pixels)
}

func TestUVMapsPixelsToUnitRange(t *testing.T) {
	tex, err := FromImage(solidImage(200, 100, color.NRGBA{A: 255}))
	require.NoError(t, err)

	sx, sy := tex.UVScale()
	assert.InDelta(t, 1.0/200, sx, 1e-9)
	assert.InDelta(t, 1.0/100, sy, 1e-9)

	u0, v0, u1, v1 := tex.UV(common.Rect{X: 50, Y: 25, W: 100, H: 50})
	assert.InDelta(t, 0.25, u0, 1e-6)
	assert.InDelta(t, 0.25, v0, 1e-6)
	assert.InDelta(t, 0.75, u1, 1e-6)
	assert.InDelta(t, 0.75, v1, 1e-6)
}

func TestUploadCreatesResourcesOnce(t *testing.T) {
	d := backend.NewRecordingDevice()
	tex, err := FromImage(solidImage(4, 4, color.NRGBA{R: 10, A: 255}), WithSmooth(true), WithRepeat(true))
	require.NoError(t, err)

	require.NoError(t, tex.Upload(d))
	require.NoError(t, tex.Upload(d))
	assert.False(t, tex.Pending())
	assert.NotNil(t, tex.GPU())
	assert.Len(t, d.CallsOf(backend.OpCreateTexture), 1)
	assert.Len(t, d.CallsOf(backend.OpWriteTexture), 1)

	samplers := d.CallsOf(backend.OpCreateSampler)
	require.Len(t, samplers, 1)

	tex.SetSmooth(false)
	require.NoError(t, tex.Upload(d))
	assert.Len(t, d.CallsOf(backend.OpCreateSampler), 2)

	tex.Release()
	assert.Equal(t, 0, d.LiveTextures())
	assert.False(t, tex.Valid())
}

func TestUpdateRecreatesOnResize(t *testing.T) {
	d := backend.NewRecordingDevice()
	tex, err := FromImage(solidImage(2, 2, color.NRGBA{A: 255}))
	require.NoError(t, err)
	require.NoError(t, tex.Upload(d))

	require.NoError(t, tex.Update(common.TextureStagingData{Pixels: make([]byte, 4*4*4), Width: 4, Height: 4}))
	assert.True(t, tex.Pending())
	require.NoError(t, tex.Upload(d))
	assert.Len(t, d.CallsOf(backend.OpCreateTexture), 2)
	assert.Equal(t, 1, d.LiveTextures())
}

func TestWrapDoesNotOwnGPUTexture(t *testing.T) {
	d := backend.NewRecordingDevice()
	gpu, err := d.CreateTexture(backend.TextureDescriptor{Width: 8, Height: 8, Usage: backend.TextureUsageSampled})
	require.NoError(t, err)

	tex := Wrap(gpu)
	assert.True(t, tex.Valid())
	require.NoError(t, tex.Upload(d))
	assert.Empty(t, d.CallsOf(backend.OpWriteTexture))
	assert.ErrorIs(t, tex.Update(common.TextureStagingData{}), ErrInvalidTexture)

	tex.Release()
	assert.Equal(t, 1, d.LiveTextures())
	assert.ErrorIs(t, tex.Upload(d), ErrInvalidTexture)
}

func TestLoadDecodesPNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, solidImage(3, 2, color.NRGBA{B: 200, A: 255})))

	tex, err := Load(&buf)
	require.NoError(t, err)
	assert.Equal(t, common.Size{W: 3, H: 2}, tex.Size())

	_, err = Load(bytes.NewReader([]byte("not an image")))
	assert.Error(t, err)
}

func TestScaledResamples(t *testing.T) {
	tex, err := Scaled(solidImage(2, 2, color.NRGBA{R: 255, A: 255}), 8, 4)
	require.NoError(t, err)
	assert.Equal(t, common.Size{W: 8, H: 4}, tex.Size())
	assert.Equal(t, byte(255), tex.pending.Pixels[0])

	_, err = Scaled(nil, 1, 1)
	assert.ErrorIs(t, err, ErrInvalidTexture)
}

func TestDecodeCompressed(t *testing.T) {
	rgba := bytes.Repeat([]byte{1, 2, 3, 4}, 16)

	tests := []struct {
		name   string
		in     Compressed
		errIs  error
		pixels int
	}{
		{"raw rgba", Compressed{Width: 4, Height: 4, Data: rgba}, nil, 64},
		{"dxt1 by size", Compressed{Width: 4, Height: 4, Data: make([]byte, 8)}, nil, 64},
		{"dxt5 by size", Compressed{Width: 4, Height: 4, Data: make([]byte, 16)}, nil, 64},
		{"explicit dxt5", Compressed{Format: BlockFormatDXT5, Width: 8, Height: 4, Data: make([]byte, 32)}, nil, 128},
		{"unknown size", Compressed{Width: 4, Height: 4, Data: make([]byte, 5)}, ErrUnsupportedFormat, 0},
		{"zero size", Compressed{Data: rgba}, ErrInvalidTexture, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tex, err := DecodeCompressed(tt.in)
			if tt.errIs != nil {
				assert.ErrorIs(t, err, tt.errIs)
				return
			}
			require.NoError(t, err)
			assert.Len(t, tex.pending.Pixels, tt.pixels)
		})
	}
}

func TestDecodeCompressedLZ4(t *testing.T) {
	rgba := bytes.Repeat([]byte{9, 9, 9, 255}, 64)
	packed := make([]byte, lz4.CompressBlockBound(len(rgba)))
	n, err := lz4.CompressBlock(rgba, packed, nil)
	require.NoError(t, err)
	require.Positive(t, n)

	tex, err := DecodeCompressed(Compressed{Width: 8, Height: 8, LZ4Size: len(rgba), Data: packed[:n]})
	require.NoError(t, err)
	assert.Equal(t, rgba, tex.pending.Pixels)

	_, err = DecodeCompressed(Compressed{Width: 8, Height: 8, LZ4Size: len(rgba), Data: []byte{0xff, 0xff}})
	assert.ErrorIs(t, err, ErrInvalidTexture)
}
