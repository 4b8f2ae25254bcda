package geometry

// Easing reparameterizes interpolation progress between two keyframes.
type Easing string

const (
	EaseLinear Easing = "linear"
	EaseIn     Easing = "easeIn"
	EaseOut    Easing = "easeOut"
	EaseInOut  Easing = "easeInOut"
	EaseHold   Easing = "hold"
)

// Ease maps progress s in [0,1] to eased progress. Inputs outside [0,1] are
// clamped first. Hold is a step function: the value jumps at the later
// keyframe.
func (e Easing) Ease(s float64) float64 {
	s = clamp01(s)
	switch e {
	case EaseIn:
		return s * s * s
	case EaseOut:
		inv := 1 - s
		return 1 - inv*inv*inv
	case EaseInOut:
		return easeInOutCubic(s)
	case EaseHold:
		if s < 1 {
			return 0
		}
		return 1
	default: // linear
		return s
	}
}

func easeInOutCubic(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	u := -2*t + 2
	return 1 - u*u*u/2
}
