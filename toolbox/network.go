package toolbox

import (
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidNx     = errors.New("nx must be a positive integer")
	ErrInvalidLayers = errors.New("layers must be a list of positive integers")
)

type Network struct {
	LossFunction LossFunctionType
	Layers       []*Layer
}

// NewDeepNeuralNetwork builds a fully-connected binary classifier with nx
// input features and one sigmoid layer per entry of layers.  The last entry
// is the number of output units (1 for a single binary label).
func NewDeepNeuralNetwork(nx int, layers []int, r *rand.Rand) (*Network, error) {
	return NewDeepNeuralNetworkWithActivation(nx, layers, Sigmoid, r)
}

// NewDeepNeuralNetworkWithActivation is like NewDeepNeuralNetwork, but the
// hidden layers use the given activation.  The output layer is always sigmoid.
func NewDeepNeuralNetworkWithActivation(nx int, layers []int, hidden ActivationType, r *rand.Rand) (*Network, error) {
	if nx < 1 {
		return nil, ErrInvalidNx
	}
	if len(layers) == 0 {
		return nil, ErrInvalidLayers
	}
	for _, n := range layers {
		if n <= 0 {
			return nil, ErrInvalidLayers
		}
	}

	net := &Network{
		LossFunction: BinaryCrossEntropy,
	}
	inputSize := nx
	for l, n := range layers {
		activation := hidden
		if l == len(layers)-1 {
			activation = Sigmoid
		}
		net.Layers = append(net.Layers, MakeDense(activation, inputSize, n, r))
		inputSize = n
	}

	return net, nil
}

// L is the number of layers.
func (net *Network) L() int {
	return len(net.Layers)
}

func (net *Network) InputSize() int {
	return net.Layers[0].InputSize
}

func (net *Network) OutputSize() int {
	return net.Layers[len(net.Layers)-1].OutputSize
}

// Weights returns the layer parameters keyed W1..WL and b1..bL.  The arrays
// are shared with the network, not copied.
func (net *Network) Weights() map[string]*AF32 {
	weights := map[string]*AF32{}
	net.DumpTensors(weights)
	return weights
}

func (net *Network) DumpTensors(tensors map[string]*AF32) {
	for l := 0; l < len(net.Layers); l++ {
		tensors[fmt.Sprintf("W%d", l+1)] = net.Layers[l].W
		tensors[fmt.Sprintf("b%d", l+1)] = net.Layers[l].B
	}
}

func (net *Network) LoadTensors(tensors map[string]*AF32) error {
	for l := 0; l < len(net.Layers); l++ {
		weightKey := fmt.Sprintf("W%d", l+1)
		weightTensor, ok := tensors[weightKey]
		if !ok {
			return fmt.Errorf("no entry for %s", weightKey)
		}
		wantWeightShape := []int{net.Layers[l].OutputSize, net.Layers[l].InputSize}
		if !slices.Equal(weightTensor.Shape, wantWeightShape) {
			return fmt.Errorf("wrong shape for %s; got %v want %v", weightKey, weightTensor.Shape, wantWeightShape)
		}

		biasKey := fmt.Sprintf("b%d", l+1)
		biasTensor, ok := tensors[biasKey]
		if !ok {
			return fmt.Errorf("no entry for %s", biasKey)
		}
		wantBiasShape := []int{net.Layers[l].OutputSize, 1}
		if !slices.Equal(biasTensor.Shape, wantBiasShape) {
			return fmt.Errorf("wrong shape for %s; got %v want %v", biasKey, biasTensor.Shape, wantBiasShape)
		}

		net.Layers[l].W = weightTensor
		net.Layers[l].B = biasTensor
	}

	return nil
}

// Metadata describes the network architecture as safetensors metadata, so a
// checkpoint can be loaded without knowing its shape up front.
func (net *Network) Metadata() map[string]string {
	sizes := []string{}
	activations := []string{}
	for _, lay := range net.Layers {
		sizes = append(sizes, strconv.Itoa(lay.OutputSize))
		activations = append(activations, lay.Activation.String())
	}
	return map[string]string{
		"nx":          strconv.Itoa(net.InputSize()),
		"layers":      strings.Join(sizes, ","),
		"activations": strings.Join(activations, ","),
		"loss":        net.LossFunction.String(),
	}
}

// NetworkFromCheckpoint rebuilds a network from tensors and metadata written
// with DumpTensors and Metadata.
func NetworkFromCheckpoint(tensors map[string]*AF32, metadata map[string]string) (*Network, error) {
	nx, err := strconv.Atoi(metadata["nx"])
	if err != nil {
		return nil, fmt.Errorf("while parsing nx metadata: %w", err)
	}
	if nx < 1 {
		return nil, ErrInvalidNx
	}

	sizes, err := ParseLayerSizes(metadata["layers"])
	if err != nil {
		return nil, fmt.Errorf("while parsing layers metadata: %w", err)
	}

	activationNames := strings.Split(metadata["activations"], ",")
	if len(activationNames) != len(sizes) {
		return nil, fmt.Errorf("checkpoint has %d activations for %d layers", len(activationNames), len(sizes))
	}

	loss, err := ParseLossFunctionType(metadata["loss"])
	if err != nil {
		return nil, fmt.Errorf("while parsing loss metadata: %w", err)
	}

	net := &Network{LossFunction: loss}
	inputSize := nx
	for l, n := range sizes {
		activation, err := ParseActivationType(activationNames[l])
		if err != nil {
			return nil, fmt.Errorf("while parsing activation of layer %d: %w", l+1, err)
		}
		net.Layers = append(net.Layers, &Layer{
			Activation: activation,
			InputSize:  inputSize,
			OutputSize: n,
		})
		inputSize = n
	}

	if err := net.LoadTensors(tensors); err != nil {
		return nil, fmt.Errorf("while restoring network: %w", err)
	}

	return net, nil
}

// ParseLayerSizes parses a comma-separated list of layer sizes such as "5,3,1".
func ParseLayerSizes(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, ErrInvalidLayers
	}
	sizes := []int{}
	for _, field := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil || n <= 0 {
			return nil, ErrInvalidLayers
		}
		sizes = append(sizes, n)
	}
	return sizes, nil
}

// Cache holds the forward activations of the most recent ForwardProp, plus the
// scratch storage GradientDescent needs.  A cache is tied to one batch size.
type Cache struct {
	// A[0] is the network input; A[l] is the output of layer l.  Shape (batchSize, n_l)
	A []*AF32
	// Dadz[l] is the activation derivative of layer l.  Dadz[0] is unused.
	Dadz []*AF32

	batchSize int

	// Scratch, indexed by layer like A.
	aT   []*AF32
	dz   []*AF32
	dzT  []*AF32
	djda []*AF32
	wT   []*AF32
	djdw []*AF32
	djdb []*AF32

	Timings TrainingTimings
}

type TrainingTimings struct {
	Overall         time.Duration
	Forward         time.Duration
	Cost            time.Duration
	Backpropagation time.Duration
	WeightUpdate    time.Duration
}

func (net *Network) MakeCache(batchSize int) *Cache {
	L := len(net.Layers)
	c := &Cache{
		A:         make([]*AF32, L+1),
		Dadz:      make([]*AF32, L+1),
		batchSize: batchSize,
		aT:        make([]*AF32, L+1),
		dz:        make([]*AF32, L+1),
		dzT:       make([]*AF32, L+1),
		djda:      make([]*AF32, L+1),
		wT:        make([]*AF32, L+1),
		djdw:      make([]*AF32, L+1),
		djdb:      make([]*AF32, L+1),
	}

	c.aT[0] = MakeAF32(net.InputSize(), batchSize)
	for l := 1; l <= L; l++ {
		lay := net.Layers[l-1]
		c.A[l] = MakeAF32(batchSize, lay.OutputSize)
		c.Dadz[l] = MakeAF32(batchSize, lay.OutputSize)
		c.aT[l] = MakeAF32(lay.OutputSize, batchSize)
		c.dz[l] = MakeAF32(batchSize, lay.OutputSize)
		c.dzT[l] = MakeAF32(lay.OutputSize, batchSize)
		c.djda[l] = MakeAF32(batchSize, lay.OutputSize)
		c.wT[l] = MakeAF32(lay.InputSize, lay.OutputSize)
		c.djdw[l] = MakeAF32(lay.OutputSize, lay.InputSize)
		c.djdb[l] = MakeAF32(lay.OutputSize, 1)
	}

	return c
}

// ForwardProp runs x through every layer, recording each layer's output and
// activation derivative in cache.  It returns the output of the last layer,
// which is owned by the cache.
//
// x is the input.  Shape (batchSize, layers[0].InputSize)
func (net *Network) ForwardProp(x *AF32, cache *Cache) *AF32 {
	if x.Shape[0] != cache.batchSize {
		panic("x batch size does not match cache")
	}

	forwardStart := time.Now()

	cache.A[0] = x
	for l := 1; l <= len(net.Layers); l++ {
		net.Layers[l-1].Apply(cache.A[l-1], cache.A[l], cache.Dadz[l])
	}

	cache.Timings.Forward += time.Since(forwardStart)

	return cache.A[len(net.Layers)]
}

// Cost computes the network's loss for predictions a against labels y.
func (net *Network) Cost(y, a *AF32) float32 {
	switch net.LossFunction {
	case BinaryCrossEntropy:
		return BinaryCrossEntropyLoss(y, a)
	case MeanSquaredError:
		return MeanSquaredErrorLoss(y, a)
	default:
		panic("unimplemented loss function type")
	}
}

// GradientDescent performs one pass of full-batch gradient descent using the
// activations recorded by the preceding ForwardProp call.
//
// y is the ground truth output.  Shape (batchSize, net.OutputSize())
func (net *Network) GradientDescent(y *AF32, cache *Cache, alpha float32) {
	L := len(net.Layers)

	backpropStart := time.Now()

	// Gradient of the loss wrt the linear output of the last layer.
	out := cache.A[L]
	switch net.LossFunction {
	case BinaryCrossEntropy:
		if net.Layers[L-1].Activation == Sigmoid {
			BinaryCrossEntropySigmoidGradient(y, out, cache.dz[L])
		} else {
			BinaryCrossEntropyLossGradient(y, out, cache.djda[L])
			hadamard(cache.djda[L], cache.Dadz[L], cache.dz[L])
		}
	case MeanSquaredError:
		MeanSquaredErrorLossGradient(y, out, cache.djda[L])
		hadamard(cache.djda[L], cache.Dadz[L], cache.dz[L])
	default:
		panic("unimplemented loss function type")
	}

	// Backprop.  The gradient flowing into layer l-1 is computed from the
	// weights of layer l before they are updated.
	var weightUpdate time.Duration
	for l := L; l >= 1; l-- {
		lay := net.Layers[l-1]

		AF32Transpose(cache.dz[l], cache.dzT[l])
		AF32Transpose(cache.A[l-1], cache.aT[l-1])
		lay.BackpropDjdw(cache.aT[l-1], cache.dzT[l], cache.djdw[l])
		lay.BackpropDjdb(cache.dzT[l], cache.djdb[l])

		if l > 1 {
			AF32Transpose(lay.W, cache.wT[l])
			lay.BackpropDjdx(cache.dz[l], cache.wT[l], cache.dz[l-1])
			hadamard(cache.dz[l-1], cache.Dadz[l-1], cache.dz[l-1])
		}

		updateStart := time.Now()
		for i, g := range cache.djdw[l].V {
			lay.W.V[i] -= alpha * g
		}
		for i, g := range cache.djdb[l].V {
			lay.B.V[i] -= alpha * g
		}
		weightUpdate += time.Since(updateStart)
	}

	cache.Timings.WeightUpdate += weightUpdate
	cache.Timings.Backpropagation += time.Since(backpropStart) - weightUpdate
}

// hadamard writes the elementwise product of x and y into out.  out may alias
// either input.
func hadamard(x, y, out *AF32) {
	if len(x.V) != len(y.V) || len(x.V) != len(out.V) {
		panic("mismatched length")
	}
	for i := range x.V {
		out.V[i] = x.V[i] * y.V[i]
	}
}

// Apply runs inference without touching any cache.
//
// x is the input.  Shape (batchSize, layers[0].InputSize)
func (net *Network) Apply(x *AF32) *AF32 {
	batchSize := x.Shape[0]

	// Collect max-sized layer output needed.
	maxOutputSize := x.Shape[1]
	for l := 0; l < len(net.Layers); l++ {
		if net.Layers[l].OutputSize > maxOutputSize {
			maxOutputSize = net.Layers[l].OutputSize
		}
	}

	// Make these in a weird way because we're going to keep resizing them as
	// we move forward through the layers.
	a0 := &AF32{
		V:     make([]float32, 0, batchSize*maxOutputSize),
		Shape: []int{0, 0},
	}
	a1 := &AF32{
		V:     make([]float32, 0, batchSize*maxOutputSize),
		Shape: []int{0, 0},
	}

	// Copy the input into a0
	a0.resize2(batchSize, x.Shape[1])
	copy(a0.V, x.V)

	for l := 0; l < len(net.Layers); l++ {
		a1.resize2(batchSize, net.Layers[l].OutputSize)

		net.Layers[l].Apply(a0, a1, nil) // no need to save activation gradients

		// This layer's output becomes the input for the next layer.
		a0, a1 = a1, a0
	}

	return a0
}

// Evaluate returns the network's 0/1 predictions for x (1 where the output is
// at least 0.5) and the cost of the raw outputs against y.
func (net *Network) Evaluate(x, y *AF32) (*AF32, float32) {
	a := net.Apply(x)
	cost := net.Cost(y, a)

	pred := AF32Copy(a)
	for i, v := range a.V {
		if v >= 0.5 {
			pred.V[i] = 1
		}
	}

	return pred, cost
}

// Accuracy is the percentage of entries of pred equal to y.
func Accuracy(pred, y *AF32) float32 {
	if !slices.Equal(pred.Shape, y.Shape) {
		panic("pred and y must have same shape")
	}
	correct := 0
	for i := range pred.V {
		if pred.V[i] == y.V[i] {
			correct++
		}
	}
	return float32(correct) / float32(len(pred.V)) * 100
}
