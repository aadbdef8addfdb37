package pipeline

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-2d/engine/renderer/backend"
)

// BlendMode selects how a draw combines with the target's existing pixels.
type BlendMode int

const (
	// BlendNone writes source pixels as-is.
	BlendNone BlendMode = iota

	// BlendNormal is straight alpha blending.
	BlendNormal

	// BlendMultiply multiplies the destination color by the source color and keeps destination alpha.
	BlendMultiply

	// BlendAdd adds alpha-weighted source color to the destination.
	BlendAdd

	// BlendMultiplyMixed multiplies by the destination and fades the destination by source alpha.
	BlendMultiplyMixed
)

// BlendModes lists every blend mode in declaration order.
var BlendModes = []BlendMode{BlendNone, BlendNormal, BlendMultiply, BlendAdd, BlendMultiplyMixed}

func (m BlendMode) String() string {
	switch m {
	case BlendNone:
		return "none"
	case BlendNormal:
		return "normal"
	case BlendMultiply:
		return "multiply"
	case BlendAdd:
		return "add"
	case BlendMultiplyMixed:
		return "multiply-mixed"
	default:
		return fmt.Sprintf("BlendMode(%d)", int(m))
	}
}

// Valid reports whether m is one of the declared modes.
func (m BlendMode) Valid() bool {
	return m >= BlendNone && m <= BlendMultiplyMixed
}

// State returns the backend blend state for the mode, nil for BlendNone.
func (m BlendMode) State() *backend.BlendState {
	switch m {
	case BlendNormal:
		return &backend.BlendState{
			Color: backend.BlendComponent{Src: backend.BlendFactorSrcAlpha, Dst: backend.BlendFactorOneMinusSrcAlpha},
			Alpha: backend.BlendComponent{Src: backend.BlendFactorSrcAlpha, Dst: backend.BlendFactorOneMinusSrcAlpha},
		}
	case BlendMultiply:
		return &backend.BlendState{
			Color: backend.BlendComponent{Src: backend.BlendFactorZero, Dst: backend.BlendFactorSrcColor},
			Alpha: backend.BlendComponent{Src: backend.BlendFactorZero, Dst: backend.BlendFactorOne},
		}
	case BlendAdd:
		return &backend.BlendState{
			Color: backend.BlendComponent{Src: backend.BlendFactorSrcAlpha, Dst: backend.BlendFactorOne},
			Alpha: backend.BlendComponent{Src: backend.BlendFactorSrcAlpha, Dst: backend.BlendFactorOne},
		}
	case BlendMultiplyMixed:
		return &backend.BlendState{
			Color: backend.BlendComponent{Src: backend.BlendFactorDstColor, Dst: backend.BlendFactorOneMinusSrcAlpha},
			Alpha: backend.BlendComponent{Src: backend.BlendFactorDstAlpha, Dst: backend.BlendFactorOneMinusSrcAlpha},
		}
	default:
		return nil
	}
}
