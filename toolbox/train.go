package toolbox

import (
	"errors"
	"fmt"
	"log"
	"time"
)

var (
	ErrInvalidIterations = errors.New("iterations must be a positive integer")
	ErrInvalidAlpha      = errors.New("alpha must be positive")
	ErrInvalidStep       = errors.New("step must be positive and <= iterations")
)

type TrainOptions struct {
	Iterations int
	Alpha      float32

	// Verbose logs the cost every Step iterations.
	Verbose bool
	// Graph records the cost every Step iterations in TrainResult.History.
	Graph bool
	Step  int

	// Logf receives the verbose progress lines.  Defaults to log.Printf.
	Logf func(format string, args ...any)
}

func DefaultTrainOptions() TrainOptions {
	return TrainOptions{
		Iterations: 5000,
		Alpha:      0.05,
		Verbose:    true,
		Graph:      true,
		Step:       100,
	}
}

func (o *TrainOptions) validate() error {
	if o.Iterations < 0 {
		return ErrInvalidIterations
	}
	if o.Alpha < 0 {
		return ErrInvalidAlpha
	}
	if o.Verbose || o.Graph {
		if o.Step < 1 || o.Step > o.Iterations {
			return ErrInvalidStep
		}
	}
	return nil
}

type CostPoint struct {
	Iteration int
	Cost      float32
}

type TrainResult struct {
	// Predictions and Cost are the Evaluate results after training.
	Predictions *AF32
	Cost        float32

	History []CostPoint
	Timings TrainingTimings
}

// Train runs opts.Iterations+1 rounds of forward propagation followed by
// gradient descent over the whole of x, then evaluates the trained network.
//
// x is the input.  Shape (m, net.InputSize())
// y is the ground truth output.  Shape (m, net.OutputSize())
func (net *Network) Train(x, y *AF32, opts TrainOptions) (*TrainResult, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if len(x.Shape) != 2 || x.Shape[1] != net.InputSize() {
		return nil, fmt.Errorf("x has shape %v, want (m, %d)", x.Shape, net.InputSize())
	}
	if len(y.Shape) != 2 || y.Shape[0] != x.Shape[0] || y.Shape[1] != net.OutputSize() {
		return nil, fmt.Errorf("y has shape %v, want (%d, %d)", y.Shape, x.Shape[0], net.OutputSize())
	}

	logf := opts.Logf
	if logf == nil {
		logf = log.Printf
	}

	start := time.Now()

	cache := net.MakeCache(x.Shape[0])
	result := &TrainResult{}

	for i := 0; i <= opts.Iterations; i++ {
		a := net.ForwardProp(x, cache)

		if (opts.Verbose || opts.Graph) && i%opts.Step == 0 {
			costStart := time.Now()
			cost := net.Cost(y, a)
			cache.Timings.Cost += time.Since(costStart)

			if opts.Verbose {
				logf("Cost after %d iterations: %v", i, cost)
			}
			if opts.Graph {
				result.History = append(result.History, CostPoint{Iteration: i, Cost: cost})
			}
		}

		net.GradientDescent(y, cache, opts.Alpha)
	}

	result.Predictions, result.Cost = net.Evaluate(x, y)

	cache.Timings.Overall += time.Since(start)
	result.Timings = cache.Timings

	return result, nil
}
