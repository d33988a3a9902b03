package scene

import "strings"

// Visual selects one of the fixed animation sequences.
type Visual string

const (
	VisualNone             Visual = "none"
	VisualLinearRegression Visual = "linear_regression"
	VisualLossCurve        Visual = "loss_curve"
	VisualGradientDescent  Visual = "gradient_descent"
	VisualNeuralNetwork    Visual = "neural_network"
)

// KnownVisuals returns the tags that have an animation sequence.
func KnownVisuals() []Visual {
	return []Visual{
		VisualLinearRegression,
		VisualLossCurve,
		VisualGradientDescent,
		VisualNeuralNetwork,
	}
}

// ParseVisual maps a stored tag to a Visual. Unrecognized values play no
// visual.
func ParseVisual(value string) Visual {
	switch v := Visual(strings.ToLower(strings.TrimSpace(value))); v {
	case VisualLinearRegression, VisualLossCurve, VisualGradientDescent, VisualNeuralNetwork:
		return v
	default:
		return VisualNone
	}
}
