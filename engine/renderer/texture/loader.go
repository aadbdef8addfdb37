package texture

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/Carmen-Shannon/oxy-2d/common"
	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// FromImage converts any image into straight-alpha RGBA pixels and stages them for upload.
//
// Parameters:
//   - img: the source image
//   - opts: a variadic list of TextureBuilderOption functions
//
// Returns:
//   - *Texture: the texture, pending upload
//   - error: ErrInvalidTexture for a nil or empty image
func FromImage(img image.Image, opts ...TextureBuilderOption) (*Texture, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", ErrInvalidTexture)
	}
	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidTexture)
	}

	rgba, ok := img.(*image.NRGBA)
	if !ok || rgba.Stride != bounds.Dx()*4 {
		rgba = image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}
	return New(common.TextureStagingData{
		Pixels: rgba.Pix,
		Width:  uint32(bounds.Dx()),
		Height: uint32(bounds.Dy()),
	}, opts...)
}

// Scaled resamples an image to the given size before staging it. Smooth textures use Catmull-Rom
// resampling, others nearest neighbour so pixel art stays crisp.
//
// Parameters:
//   - img: the source image
//   - width: the target width in pixels
//   - height: the target height in pixels
//   - opts: a variadic list of TextureBuilderOption functions
//
// Returns:
//   - *Texture: the resampled texture, pending upload
//   - error: ErrInvalidTexture for a nil image or a non-positive size
func Scaled(img image.Image, width, height int, opts ...TextureBuilderOption) (*Texture, error) {
	if img == nil || width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: cannot scale to %dx%d", ErrInvalidTexture, width, height)
	}
	probe := &Texture{}
	for _, opt := range opts {
		opt(probe)
	}

	var scaler draw.Scaler = draw.NearestNeighbor
	if probe.smooth {
		scaler = draw.CatmullRom
	}
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	scaler.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return FromImage(dst, opts...)
}

// Load decodes a PNG, JPEG, GIF, BMP or WebP image from r.
//
// Parameters:
//   - r: the encoded image
//   - opts: a variadic list of TextureBuilderOption functions
//
// Returns:
//   - *Texture: the decoded texture, pending upload
//   - error: the decode error
func Load(r io.Reader, opts ...TextureBuilderOption) (*Texture, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode texture: %w", err)
	}
	return FromImage(img, opts...)
}

// LoadFile decodes an image file. The file name becomes the default label.
//
// Parameters:
//   - path: the image file path
//   - opts: a variadic list of TextureBuilderOption functions
//
// Returns:
//   - *Texture: the decoded texture, pending upload
//   - error: the open or decode error
func LoadFile(path string, opts ...TextureBuilderOption) (*Texture, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open texture file %s: %w", path, err)
	}
	defer file.Close()

	t, err := Load(file, append([]TextureBuilderOption{WithLabel(path)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to load texture file %s: %w", path, err)
	}
	return t, nil
}
