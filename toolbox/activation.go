package toolbox

import (
	"fmt"

	"github.com/chewxy/math32"
)

type ActivationType int

const (
	ReLU ActivationType = iota
	Linear
	Sigmoid
)

func (a ActivationType) String() string {
	switch a {
	case ReLU:
		return "relu"
	case Linear:
		return "linear"
	case Sigmoid:
		return "sigmoid"
	default:
		return fmt.Sprintf("ActivationType(%d)", int(a))
	}
}

func ParseActivationType(s string) (ActivationType, error) {
	switch s {
	case "relu":
		return ReLU, nil
	case "linear":
		return Linear, nil
	case "sigmoid":
		return Sigmoid, nil
	default:
		return 0, fmt.Errorf("unknown activation %q", s)
	}
}

// Sigmoid32 is the logistic function 1 / (1 + e^-z).
func Sigmoid32(z float32) float32 {
	return 1 / (1 + math32.Exp(-z))
}

// z (input/output)
func reluActivation(z []float32) {
	for i := 0; i < len(z); i++ {
		if z[i] < 0 {
			z[i] = 0
		}
	}
}

// reluActivationGradient computes the derivative of the ReLU function.
//
// z (input) is the pre-activation linear output of a layer.
//
// dadz (output) is the derivative of ReLU(z)
func reluActivationGradient(z, dadz []float32) {
	if len(z) != len(dadz) {
		panic("len(z) != len(dadz)")
	}

	for i := 0; i < len(z); i++ {
		if z[i] <= 0 {
			dadz[i] = 0
		} else {
			dadz[i] = 1
		}
	}
}

func linearActivationGradient(dadz []float32) {
	for i := 0; i < len(dadz); i++ {
		dadz[i] = 1
	}
}

func sigmoidActivation(z []float32) {
	for i := 0; i < len(z); i++ {
		z[i] = Sigmoid32(z[i])
	}
}

// sigmoidActivationGradient takes the already-activated output a = σ(z), using
// σ'(z) = a(1-a).
func sigmoidActivationGradient(a, dadz []float32) {
	if len(a) != len(dadz) {
		panic("len(a) != len(dadz)")
	}

	for i := 0; i < len(a); i++ {
		dadz[i] = a[i] * (1 - a[i])
	}
}
