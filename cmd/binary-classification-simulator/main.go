// Command binary-classification-simulator trains the deep neural network on a
// synthetic linearly separable data set and compares it against a hand-coded
// single-neuron logistic regression.
package main

import (
	"flag"
	"log"
	"math/rand"

	"github.com/ahmedtd/mlexercises/toolbox"
	"github.com/chewxy/math32"
)

var (
	batchSize = flag.Int("batch-size", 1000, "Number of generated samples")
	layers    = flag.String("layers", "4,1", "Comma-separated number of nodes in each layer")
	alpha     = flag.Float64("alpha", 0.5, "Learning rate")
	steps     = flag.Int("steps", 5000, "Number of gradient descent iterations")
	noise     = flag.Float64("noise", 0.0, "Standard deviation of the noise added to each point")
)

func main() {
	flag.Parse()

	r := rand.New(rand.NewSource(12345))
	x, y := generateDataset(r, *batchSize, float32(*noise))

	num0s := 0
	num1s := 0
	for k := 0; k < *batchSize; k++ {
		if y.At2(k, 0) == 1 {
			num1s++
		} else {
			num0s++
		}
	}
	log.Printf("original data set has %d 1s and %d 0s", num1s, num0s)

	sizes, err := toolbox.ParseLayerSizes(*layers)
	if err != nil {
		log.Fatalf("Error: while parsing --layers: %v", err)
	}
	net, err := toolbox.NewDeepNeuralNetwork(2, sizes, r)
	if err != nil {
		log.Fatalf("Error: while creating network: %v", err)
	}

	opts := toolbox.DefaultTrainOptions()
	opts.Iterations = *steps
	opts.Alpha = float32(*alpha)
	opts.Step = max(*steps/10, 1)
	opts.Graph = false

	result, err := net.Train(x, y, opts)
	if err != nil {
		log.Fatalf("Error: while training: %v", err)
	}

	toolboxNumMispredictions := 0
	for k := 0; k < *batchSize; k++ {
		if result.Predictions.At2(k, 0) != y.At2(k, 0) {
			toolboxNumMispredictions++
		}
	}
	log.Printf("toolbox learned model cost=%v", result.Cost)
	log.Printf("toolbox had %d mispredictions (%v%%)", toolboxNumMispredictions, float32(toolboxNumMispredictions)/float32(*batchSize)*float32(100))

	m := &Model{}
	m.Learn(x, y, float32(*alpha), 0.0, *steps)
	log.Printf("Learned model W1=%v W2=%v B=%v", m.W1, m.W2, m.B)

	slope := float32(-m.W1 / m.W2)
	intercept := float32(-m.B / m.W2)
	log.Printf("Learned decision boundary x2=%v*x1+%v", slope, intercept)

	handPredictions := m.apply(x)
	handNumMispredictions := 0
	for k := 0; k < *batchSize; k++ {
		if handPredictions.At2(k, 0) != y.At2(k, 0) {
			handNumMispredictions++
		}
	}
	log.Printf("hand had %d mispredictions (%v%%)", handNumMispredictions, float32(handNumMispredictions)/float32(*batchSize)*float32(100))
}

func generateDataset(r *rand.Rand, m int, noise float32) (x, y *toolbox.AF32) {
	x = toolbox.MakeAF32(m, 2)
	y = toolbox.MakeAF32(m, 1)

	for i := 0; i < m; i++ {
		// Generate a point and classify it according to the "true"
		// distribution.
		x1 := 2*r.Float32() - 1
		x2 := 2*r.Float32() - 1
		y1 := float32(0.0)
		if x2 > 1.0*x1+0.0 {
			y1 = 1.0
		}

		// Perturb the point a little bit with noise.
		x.Set2(i, 0, x1+noise*float32(r.NormFloat64()))
		x.Set2(i, 1, x2+noise*float32(r.NormFloat64()))
		y.Set2(i, 0, y1)
	}

	return x, y
}

type Model struct {
	W1, W2 float32
	B      float32
}

func (m *Model) apply(x *toolbox.AF32) *toolbox.AF32 {
	batchSize := x.Shape[0]

	pred := toolbox.MakeAF32(batchSize, 1)

	for k := 0; k < batchSize; k++ {
		if toolbox.Sigmoid32(m.W1*x.At2(k, 0)+m.W2*x.At2(k, 1)+m.B) >= 0.5 {
			pred.Set2(k, 0, 1)
		} else {
			pred.Set2(k, 0, 0)
		}
	}
	return pred
}

func (m *Model) loss(x, y *toolbox.AF32, lambda float32) float32 {
	batchSize := x.Shape[0]

	predictionCost := float32(0)
	regularizationCost := float32(0)

	for i := 0; i < batchSize; i++ {
		pred := toolbox.Sigmoid32(m.W1*x.At2(i, 0) + m.W2*x.At2(i, 1) + m.B)
		if y.At2(i, 0) == 1.0 {
			predictionCost += -math32.Log(pred)
		} else {
			predictionCost += -math32.Log(float32(1) - pred)
		}

		regularizationCost += (m.W1*m.W1 + m.W2*m.W2)
	}

	// The regularization cost is divided by 2n, mostly to make the gradient math simpler.
	return predictionCost/float32(batchSize) + lambda*regularizationCost/float32(2)/float32(batchSize)
}

func (m *Model) gradient(x, y *toolbox.AF32, lambda float32) (dW1, dW2, dB float32) {
	batchSize := x.Shape[0]

	for i := 0; i < batchSize; i++ {
		pred := toolbox.Sigmoid32(m.W1*x.At2(i, 0) + m.W2*x.At2(i, 1) + m.B)
		dW1 += (pred - y.At2(i, 0)) * x.At2(i, 0)
		dW2 += (pred - y.At2(i, 0)) * x.At2(i, 1)
		dB += (pred - y.At2(i, 0))
	}

	// Regularize: encourage model parameters to be small.
	dW1 += lambda * m.W1
	dW2 += lambda * m.W2

	dW1 /= float32(batchSize)
	dW2 /= float32(batchSize)
	dB /= float32(batchSize)

	return dW1, dW2, dB
}

func (m *Model) Learn(x, y *toolbox.AF32, learningRate float32, lambda float32, steps int) {
	var dJdW1, dJdW2, dJdb float32
	for i := 0; i < steps; i++ {
		dJdW1, dJdW2, dJdb = m.gradient(x, y, lambda)
		m.W1 -= learningRate * dJdW1
		m.W2 -= learningRate * dJdW2
		m.B -= learningRate * dJdb

		if i%(max(steps/10, 1)) == 0 {
			log.Printf("step=%v W1=%v W2=%v B=%v djdw1=%v djdw2=%v djdb=%v loss=%v", i, m.W1, m.W2, m.B, dJdW1, dJdW2, dJdb, m.loss(x, y, lambda))
		}
	}
}
