package toolbox

import (
	"fmt"
	"slices"

	"github.com/chewxy/math32"
)

type LossFunctionType int

const (
	BinaryCrossEntropy LossFunctionType = iota
	MeanSquaredError
)

func (l LossFunctionType) String() string {
	switch l {
	case BinaryCrossEntropy:
		return "binary-cross-entropy"
	case MeanSquaredError:
		return "mean-squared-error"
	default:
		return fmt.Sprintf("LossFunctionType(%d)", int(l))
	}
}

func ParseLossFunctionType(s string) (LossFunctionType, error) {
	switch s {
	case "binary-cross-entropy":
		return BinaryCrossEntropy, nil
	case "mean-squared-error":
		return MeanSquaredError, nil
	default:
		return 0, fmt.Errorf("unknown loss function %q", s)
	}
}

// crossEntropyOffset replaces 1 in ln(1 - a) so the cost stays finite when a
// sigmoid output saturates at exactly 1.
const crossEntropyOffset = 1.0000001

// y is the ground truth output.  Shape (batchSize, lay.OutputSize), values 0 or 1
// a is the layer's forward output.  Shape (batchSize, lay.OutputSize), values in (0, 1)
func BinaryCrossEntropyLoss(y, a *AF32) float32 {
	if len(a.Shape) != 2 {
		panic("len(a.Shape) != 2")
	}
	if !slices.Equal(y.Shape, a.Shape) {
		panic("y and a must have same shape")
	}

	batchSize := a.Shape[0]

	var sum float32
	for i := range a.V {
		sum += y.V[i]*math32.Log(a.V[i]) + (1-y.V[i])*math32.Log(crossEntropyOffset-a.V[i])
	}

	return -sum / float32(batchSize)
}

// y is the ground truth output.  Shape (batchSize, lay.OutputSize)
// a is the layer's forward output.  Shape (batchSize, lay.OutputSize)
// dJdz (output) is storage for the gradient of the loss wrt the output layer's
// linear output z, assuming a = sigmoid(z).  Shape (batchSize, lay.OutputSize)
//
// The sigmoid derivative cancels against the derivative of the loss, leaving
// (a - y) / batchSize.
func BinaryCrossEntropySigmoidGradient(y, a, dJdz *AF32) {
	if len(a.Shape) != 2 {
		panic("len(a.Shape) != 2")
	}
	if !slices.Equal(y.Shape, a.Shape) {
		panic("y and a must have same shape")
	}
	if !slices.Equal(dJdz.Shape, a.Shape) {
		panic("dJdz and a must have same shape")
	}

	batchSize := float32(a.Shape[0])
	for i := range a.V {
		dJdz.V[i] = (a.V[i] - y.V[i]) / batchSize
	}
}

// dJda (output) is storage for the gradient of the loss wrt a.  Shape (batchSize, lay.OutputSize)
func BinaryCrossEntropyLossGradient(y, a, dJda *AF32) {
	if !slices.Equal(y.Shape, a.Shape) {
		panic("y and a must have same shape")
	}
	if !slices.Equal(dJda.Shape, a.Shape) {
		panic("dJda and a must have same shape")
	}

	batchSize := float32(a.Shape[0])
	for i := range a.V {
		grad := -y.V[i]/a.V[i] + (1-y.V[i])/(crossEntropyOffset-a.V[i])
		dJda.V[i] = grad / batchSize
	}
}

// y is the ground truth output.  Shape (batchSize, lay.OutputSize)
// a is the layer's forward output.  Shape (batchSize, lay.OutputSize)
func MeanSquaredErrorLoss(y, a *AF32) float32 {
	if len(y.Shape) != 2 {
		panic("len(y.Shape) != 2")
	}
	if len(a.Shape) != 2 {
		panic("len(a.Shape) != 2")
	}
	if !slices.Equal(y.Shape, a.Shape) {
		panic("y and a must have same shape")
	}

	batchSize := y.Shape[0]
	outputSize := y.Shape[1]

	loss := float32(0)

	for k := 0; k < batchSize; k++ {
		for i := 0; i < outputSize; i++ {
			diff := a.At2(k, i) - y.At2(k, i)
			loss += diff * diff / 2 / float32(batchSize) / float32(outputSize)
		}
	}

	return loss
}

// y is the ground truth output.  Shape (batchSize, lay.OutputSize)
// a is the layer's forward output.  Shape (batchSize, lay.OutputSize)
// dJda (output) is storage for the gradient of the loss wrt a.  Shape (batchSize, lay.OutputSize)
func MeanSquaredErrorLossGradient(y, a, dJda *AF32) {
	if len(y.Shape) != 2 {
		panic("len(y.Shape) != 2")
	}
	if !slices.Equal(y.Shape, a.Shape) {
		panic("y and a must have same shape")
	}
	if !slices.Equal(y.Shape, dJda.Shape) {
		panic("y and dJda must have same shape")
	}

	batchSize := a.Shape[0]
	outputSize := a.Shape[1]

	for k := 0; k < batchSize; k++ {
		for i := 0; i < outputSize; i++ {
			grad := (a.At2(k, i) - y.At2(k, i)) / float32(batchSize) / float32(outputSize)
			dJda.Set2(k, i, grad)
		}
	}
}
