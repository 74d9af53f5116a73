// Command deep-neural-network trains and evaluates a fully-connected binary
// classifier on data stored in NumPy .npz archives.
//
// To train: `go run ./cmd/deep-neural-network train --data-file=data/Binary_Train.npz --layers=5,3,1 --graph-file=cost.png`
//
// To evaluate: `go run ./cmd/deep-neural-network evaluate --weights=deep-neural-network.safetensors --data-file=data/Binary_Dev.npz`
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"runtime/pprof"

	"github.com/ahmedtd/mlexercises/costplot"
	"github.com/ahmedtd/mlexercises/dataset"
	"github.com/ahmedtd/mlexercises/toolbox"
	"github.com/google/subcommands"
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")

	subcommands.Register(&TrainCommand{}, "")
	subcommands.Register(&EvaluateCommand{}, "")

	flag.Parse()
	ctx := context.Background()
	os.Exit(int(subcommands.Execute(ctx)))
}

type TrainCommand struct {
	dataFile    string
	devDataFile string
	xKey        string
	yKey        string

	layers           string
	hiddenActivation string
	seed             int64

	iterations int
	alpha      float64
	step       int
	verbose    bool
	graphFile  string

	fromCheckpointFile string
	outputWeightFile   string

	cpuProfileFile string
}

var _ subcommands.Command = (*TrainCommand)(nil)

func (*TrainCommand) Name() string {
	return "train"
}

func (*TrainCommand) Synopsis() string {
	return "Train the model"
}

func (*TrainCommand) Usage() string {
	return `train [flags]:
  Train a deep neural network with full-batch gradient descent.
`
}

func (c *TrainCommand) SetFlags(f *flag.FlagSet) {
	defaults := toolbox.DefaultTrainOptions()

	f.StringVar(&c.dataFile, "data-file", "Binary_Train.npz", "Path to the .npz training data")
	f.StringVar(&c.devDataFile, "dev-data-file", "", "Optional path to .npz data to evaluate after training")
	f.StringVar(&c.xKey, "x-key", "X", "Name of the sample array inside the .npz files")
	f.StringVar(&c.yKey, "y-key", "Y", "Name of the label array inside the .npz files")

	f.StringVar(&c.layers, "layers", "5,3,1", "Comma-separated number of nodes in each layer")
	f.StringVar(&c.hiddenActivation, "hidden-activation", "sigmoid", "Activation of the hidden layers (sigmoid or relu)")
	f.Int64Var(&c.seed, "seed", 12345, "Seed for weight initialization")

	f.IntVar(&c.iterations, "iterations", defaults.Iterations, "Number of gradient descent iterations")
	f.Float64Var(&c.alpha, "alpha", float64(defaults.Alpha), "Learning rate")
	f.IntVar(&c.step, "step", defaults.Step, "Log and record the cost every this many iterations")
	f.BoolVar(&c.verbose, "verbose", defaults.Verbose, "Log the cost during training")
	f.StringVar(&c.graphFile, "graph-file", "", "If set, plot the training cost to this image file (.png, .svg, .pdf)")

	f.StringVar(&c.fromCheckpointFile, "from-checkpoint", "", "Path to initial weights to load for training; the architecture flags are ignored")
	f.StringVar(&c.outputWeightFile, "output-weight-file", "deep-neural-network.safetensors", "Path to save trained weights (safetensors format)")

	f.StringVar(&c.cpuProfileFile, "cpu-profile", "", "Write a CPU profile")
}

func (c *TrainCommand) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.executeErr(ctx); err != nil {
		log.Printf("Error: %v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *TrainCommand) executeErr(ctx context.Context) error {
	if c.cpuProfileFile != "" {
		f, err := os.Create(c.cpuProfileFile)
		if err != nil {
			return fmt.Errorf("while creating CPU profile file: %w", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return fmt.Errorf("while starting CPU profile: %w", err)
		}
		defer pprof.StopCPUProfile()
	}

	x, y, err := dataset.LoadNPZ(c.dataFile, c.xKey, c.yKey)
	if err != nil {
		return fmt.Errorf("while loading training data: %w", err)
	}
	log.Printf("Loaded %d samples with %d features", x.Shape[0], x.Shape[1])

	net, err := c.buildNetwork(x.Shape[1])
	if err != nil {
		return err
	}

	opts := toolbox.TrainOptions{
		Iterations: c.iterations,
		Alpha:      float32(c.alpha),
		Verbose:    c.verbose,
		Graph:      c.graphFile != "",
		Step:       c.step,
		Logf:       log.Printf,
	}

	result, err := net.Train(x, y, opts)
	if err != nil {
		return fmt.Errorf("while training: %w", err)
	}

	log.Printf("Train cost: %v", result.Cost)
	log.Printf("Train accuracy: %.2f%%", toolbox.Accuracy(result.Predictions, y))
	log.Printf("timings overall=%.1f forward=%.1f cost=%.1f backprop=%.1f weightupdate=%.1f",
		result.Timings.Overall.Seconds(),
		result.Timings.Forward.Seconds(),
		result.Timings.Cost.Seconds(),
		result.Timings.Backpropagation.Seconds(),
		result.Timings.WeightUpdate.Seconds(),
	)

	if err := writeCheckpoint(c.outputWeightFile, net); err != nil {
		return fmt.Errorf("while writing checkpoint: %w", err)
	}

	if c.graphFile != "" {
		if err := costplot.Write(c.graphFile, result.History); err != nil {
			return fmt.Errorf("while plotting training cost: %w", err)
		}
	}

	if c.devDataFile != "" {
		if err := evaluate(net, c.devDataFile, c.xKey, c.yKey); err != nil {
			return fmt.Errorf("while evaluating dev data: %w", err)
		}
	}

	return nil
}

func (c *TrainCommand) buildNetwork(nx int) (*toolbox.Network, error) {
	if c.fromCheckpointFile != "" {
		net, err := readCheckpoint(c.fromCheckpointFile)
		if err != nil {
			return nil, fmt.Errorf("while loading initial checkpoint: %w", err)
		}
		if net.InputSize() != nx {
			return nil, fmt.Errorf("checkpoint expects %d features, data has %d", net.InputSize(), nx)
		}
		return net, nil
	}

	sizes, err := toolbox.ParseLayerSizes(c.layers)
	if err != nil {
		return nil, fmt.Errorf("while parsing --layers: %w", err)
	}
	hidden, err := toolbox.ParseActivationType(c.hiddenActivation)
	if err != nil {
		return nil, fmt.Errorf("while parsing --hidden-activation: %w", err)
	}

	r := rand.New(rand.NewSource(c.seed))
	net, err := toolbox.NewDeepNeuralNetworkWithActivation(nx, sizes, hidden, r)
	if err != nil {
		return nil, fmt.Errorf("while creating network: %w", err)
	}
	return net, nil
}

func readCheckpoint(path string) (*toolbox.Network, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("while opening checkpoint file: %w", err)
	}
	defer f.Close()

	tensors, metadata, err := toolbox.ReadSafeTensors(f)
	if err != nil {
		return nil, fmt.Errorf("while reading checkpoint tensors: %w", err)
	}

	return toolbox.NetworkFromCheckpoint(tensors, metadata)
}

func writeCheckpoint(path string, net *toolbox.Network) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("while creating checkpoint file: %w", err)
	}
	defer f.Close()

	tensors := map[string]*toolbox.AF32{}
	net.DumpTensors(tensors)

	if err := toolbox.WriteSafeTensors(f, tensors, net.Metadata()); err != nil {
		return fmt.Errorf("while writing checkpoint tensors: %w", err)
	}

	return f.Close()
}
