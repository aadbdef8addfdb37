package texture

// TextureBuilderOption is a functional option applied to a texture on creation.
type TextureBuilderOption func(*Texture)

// WithLabel sets the debug label of the texture and its GPU resources.
//
// Parameters:
//   - label: the debug label
//
// Returns:
//   - TextureBuilderOption: a function that applies the label option to a texture
func WithLabel(label string) TextureBuilderOption {
	return func(t *Texture) {
		if label != "" {
			t.label = label
		}
	}
}

// WithSmooth enables linear filtering. Textures default to nearest filtering.
//
// Parameters:
//   - smooth: true for linear filtering
//
// Returns:
//   - TextureBuilderOption: a function that applies the filter option to a texture
func WithSmooth(smooth bool) TextureBuilderOption {
	return func(t *Texture) {
		t.smooth = smooth
	}
}

// WithRepeat enables repeat addressing. Textures default to clamp-to-edge.
//
// Parameters:
//   - repeat: true to wrap texture coordinates
//
// Returns:
//   - TextureBuilderOption: a function that applies the address mode option to a texture
func WithRepeat(repeat bool) TextureBuilderOption {
	return func(t *Texture) {
		t.repeat = repeat
	}
}
