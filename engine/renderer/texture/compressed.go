package texture

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-2d/common"
	"github.com/mauserzjeh/dxt"
	"github.com/pierrec/lz4/v4"
)

// BlockFormat is the pixel encoding of compressed texture data.
type BlockFormat int

const (
	// BlockFormatAuto picks the format from the payload size.
	BlockFormatAuto BlockFormat = iota
	// BlockFormatRGBA is uncompressed RGBA.
	BlockFormatRGBA
	// BlockFormatDXT1 is BC1, 8 bytes per 4x4 block.
	BlockFormatDXT1
	// BlockFormatDXT5 is BC3, 16 bytes per 4x4 block.
	BlockFormatDXT5
)

// Compressed describes a block compressed texture payload, optionally wrapped in an LZ4 block.
type Compressed struct {
	Format BlockFormat
	Width  uint32
	Height uint32
	// LZ4Size is the decompressed size of an LZ4 wrapped payload, 0 when Data is not LZ4 compressed.
	LZ4Size int
	Data    []byte
}

func blockSize(w, h uint32, bytesPerBlock uint32) int {
	return int(((w + 3) / 4) * ((h + 3) / 4) * bytesPerBlock)
}

// detectFormat matches the payload length against the expected size of each format.
func detectFormat(w, h uint32, n int) BlockFormat {
	switch n {
	case int(w * h * 4):
		return BlockFormatRGBA
	case blockSize(w, h, 16):
		return BlockFormatDXT5
	case blockSize(w, h, 8):
		return BlockFormatDXT1
	default:
		return BlockFormatAuto
	}
}

// DecodeCompressed expands a DXT1, DXT5 or raw RGBA payload into a texture.
//
// Parameters:
//   - c: the compressed payload and its dimensions
//   - opts: a variadic list of TextureBuilderOption functions
//
// Returns:
//   - *Texture: the decoded texture, pending upload
//   - error: ErrInvalidTexture for bad dimensions or LZ4 data, ErrUnsupportedFormat for unknown payloads
func DecodeCompressed(c Compressed, opts ...TextureBuilderOption) (*Texture, error) {
	if c.Width == 0 || c.Height == 0 {
		return nil, fmt.Errorf("%w: compressed texture is %dx%d", ErrInvalidTexture, c.Width, c.Height)
	}

	data := c.Data
	if c.LZ4Size > 0 {
		out := make([]byte, c.LZ4Size)
		n, err := lz4.UncompressBlock(c.Data, out)
		if err != nil {
			return nil, fmt.Errorf("%w: lz4: %v", ErrInvalidTexture, err)
		}
		data = out[:n]
	}

	format := c.Format
	if format == BlockFormatAuto {
		format = detectFormat(c.Width, c.Height, len(data))
	}

	var pixels []byte
	var err error
	switch format {
	case BlockFormatRGBA:
		pixels = data
	case BlockFormatDXT1:
		pixels, err = dxt.DecodeDXT1(data, uint(c.Width), uint(c.Height))
	case BlockFormatDXT5:
		pixels, err = dxt.DecodeDXT5(data, uint(c.Width), uint(c.Height))
	default:
		return nil, fmt.Errorf("%w: %d bytes for %dx%d", ErrUnsupportedFormat, len(data), c.Width, c.Height)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTexture, err)
	}

	common.Logger().Debug("decoded compressed texture",
		"format", int(format), "width", c.Width, "height", c.Height, "lz4", c.LZ4Size > 0)
	return New(common.TextureStagingData{Pixels: pixels, Width: c.Width, Height: c.Height}, opts...)
}
