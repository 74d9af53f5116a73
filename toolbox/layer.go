package toolbox

import (
	"math"
	"math/rand"
	"slices"
)

type Layer struct {
	Activation ActivationType

	W *AF32 // Shape (OutputSize, InputSize)
	B *AF32 // Shape (OutputSize, 1)

	InputSize  int
	OutputSize int
}

// MakeDense creates a fully-connected layer with He-initialized weights
// (standard normal scaled by sqrt(2/inputSize)) and zero biases.
func MakeDense(activation ActivationType, inputSize, outputSize int, r *rand.Rand) *Layer {
	l := &Layer{
		Activation: activation,
		InputSize:  inputSize,
		OutputSize: outputSize,
		W:          MakeAF32(outputSize, inputSize),
		B:          MakeAF32(outputSize, 1),
	}

	scale := math.Sqrt(2 / float64(inputSize))
	for i := 0; i < outputSize; i++ {
		for j := 0; j < inputSize; j++ {
			l.W.Set2(i, j, float32(r.NormFloat64()*scale))
		}
	}

	return l
}

// Apply the layer in the forward direction.
//
// x (input) is the layer input.  Shape (batchSize, lay.InputSize)
// a (output) is the layer's forward output.  Shape (batchSize, lay.OutputSize)
// dadz (output, optional) is the derivative of the activated output wrt the linear output.  Shape (batchSize, lay.OutputSize)
func (lay *Layer) Apply(x, a, dadz *AF32) {
	batchSize := x.Shape[0]
	inputSize := lay.InputSize
	outputSize := lay.OutputSize

	if x.Shape[1] != inputSize {
		panic("dimension mismatch")
	}
	if a.Shape[0] != batchSize {
		panic("dimension mismatch")
	}
	if a.Shape[1] != outputSize {
		panic("dimension mismatch")
	}
	if dadz != nil {
		if dadz.Shape[0] != batchSize {
			panic("dimension mismatch")
		}
		if dadz.Shape[1] != outputSize {
			panic("dimension mismatch")
		}
	}
	if lay.W.Shape[0] != outputSize {
		panic("dimension mismatch")
	}
	if lay.W.Shape[1] != inputSize {
		panic("dimension mismatch")
	}
	if !slices.Equal(lay.B.Shape, []int{outputSize, 1}) {
		panic("lay.B.Shape != {outputSize, 1}")
	}

	// Write the linear activations into a.  Equivalent to
	//
	// for k := 0; k < batchSize; k++ {
	// 	for i := 0; i < outputSize; i++ {
	// 		var z float32
	// 		for j := 0; j < inputSize; j++ {
	// 			z += lay.W.At2(i, j) * x.At2(k, j)
	// 		}
	// 		z += lay.B.At1(i)
	// 		a.Set2(k, i, z)
	// 	}
	// }
	for k := 0; k < batchSize; k++ {
		for i := 0; i < outputSize; i++ {
			z := denseDot2(lay.W.V[i*inputSize:i*inputSize+inputSize], x.V[k*inputSize:k*inputSize+inputSize])
			z += lay.B.At1(i)
			a.Set2(k, i, z)
		}
	}

	// Apply activation function to a elementwise.  Store activation gradients
	// in dadz if provided.
	switch lay.Activation {
	case ReLU:
		if dadz != nil {
			reluActivationGradient(a.V, dadz.V)
		}
		reluActivation(a.V)
	case Linear:
		if dadz != nil {
			linearActivationGradient(dadz.V)
		}
		// linear activation is a no-op
	case Sigmoid:
		sigmoidActivation(a.V)
		if dadz != nil {
			sigmoidActivationGradient(a.V, dadz.V)
		}
	default:
		panic("unhandled activation function")
	}
}

// xT (input) is the layer input, transposed.  Shape (lay.InputSize, batchSize)
// dzT (input) is the gradient of the loss wrt the linear output z, transposed.  Shape (lay.OutputSize, batchSize)
// djdw (output) is the gradient of the loss wrt lay.W.  Shape (lay.OutputSize, lay.InputSize)
func (lay *Layer) BackpropDjdw(xT, dzT, djdw *AF32) {
	batchSize := xT.Shape[1]
	inputSize := lay.InputSize
	outputSize := lay.OutputSize

	if dzT.Shape[0] != outputSize || dzT.Shape[1] != batchSize {
		panic("dimension mismatch")
	}
	if xT.Shape[0] != inputSize {
		panic("dimension mismatch")
	}

	// This function is equivalent to:
	//
	// for i := 0; i < outputSize; i++ {
	// 	for j := 0; j < inputSize; j++ {
	// 		var grad float32
	// 		for k := 0; k < batchSize; k++ {
	// 			grad += dzT.At2(i, k) * xT.At2(j, k)
	// 		}
	// 		djdw.Set2(i, j, grad)
	// 	}
	// }

	for i := 0; i < outputSize; i++ {
		for j := 0; j < inputSize; j++ {
			grad := denseDot2(
				dzT.V[i*batchSize:i*batchSize+batchSize],
				xT.V[j*batchSize:j*batchSize+batchSize],
			)
			djdw.Set2(i, j, grad)
		}
	}
}

// dzT (input) is the gradient of the loss wrt the linear output z, transposed.  Shape (lay.OutputSize, batchSize)
// djdb (output) is the gradient of the loss wrt lay.B.  Shape (lay.OutputSize, 1)
func (lay *Layer) BackpropDjdb(dzT, djdb *AF32) {
	batchSize := dzT.Shape[1]
	outputSize := lay.OutputSize

	iBase := 0
	for i := 0; i < outputSize; i++ {
		var grad float32
		for _, v := range dzT.V[iBase : iBase+batchSize] {
			grad += v
		}
		djdb.Set1(i, grad)

		iBase += batchSize
	}
}

// dz (input) is the gradient of the loss wrt the linear output z.  Shape (batchSize, lay.OutputSize)
// wT (input) is the layer weights, tranposed.  Shape (inputSize, outputSize)
// djdx (output) is the gradient of the loss wrt x.  Shape (batchSize, lay.InputSize)
func (lay *Layer) BackpropDjdx(dz, wT, djdx *AF32) {
	batchSize := dz.Shape[0]
	inputSize := lay.InputSize
	outputSize := lay.OutputSize

	// This function is equivalent to:
	//
	// for k := 0; k < batchSize; k++ {
	// 	for j := 0; j < inputSize; j++ {
	// 		var grad float32
	// 		for i := 0; i < outputSize; i++ {
	// 			grad += dz.At2(k, i) * wT.At2(j, i)
	// 		}
	// 		djdx.Set2(k, j, grad)
	// 	}
	// }

	for k := 0; k < batchSize; k++ {
		for j := 0; j < inputSize; j++ {
			grad := denseDot2(
				dz.V[k*outputSize:k*outputSize+outputSize],
				wT.V[j*outputSize:j*outputSize+outputSize],
			)
			djdx.Set2(k, j, grad)
		}
	}
}
