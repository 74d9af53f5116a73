package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/ahmedtd/mlexercises/dataset"
	"github.com/ahmedtd/mlexercises/toolbox"
	"github.com/google/subcommands"
)

type EvaluateCommand struct {
	weightsFile string
	dataFile    string
	xKey        string
	yKey        string
}

var _ subcommands.Command = (*EvaluateCommand)(nil)

func (*EvaluateCommand) Name() string {
	return "evaluate"
}

func (*EvaluateCommand) Synopsis() string {
	return "Evaluate trained weights on a data set"
}

func (*EvaluateCommand) Usage() string {
	return ``
}

func (c *EvaluateCommand) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.weightsFile, "weights", "deep-neural-network.safetensors", "Path to the weights produced by the train command")
	f.StringVar(&c.dataFile, "data-file", "Binary_Dev.npz", "Path to the .npz data to evaluate on")
	f.StringVar(&c.xKey, "x-key", "X", "Name of the sample array inside the .npz file")
	f.StringVar(&c.yKey, "y-key", "Y", "Name of the label array inside the .npz file")
}

func (c *EvaluateCommand) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.executeErr(ctx); err != nil {
		log.Printf("Error: %v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *EvaluateCommand) executeErr(ctx context.Context) error {
	net, err := readCheckpoint(c.weightsFile)
	if err != nil {
		return fmt.Errorf("while loading weights: %w", err)
	}

	return evaluate(net, c.dataFile, c.xKey, c.yKey)
}

func evaluate(net *toolbox.Network, dataFile, xKey, yKey string) error {
	x, y, err := dataset.LoadNPZ(dataFile, xKey, yKey)
	if err != nil {
		return fmt.Errorf("while loading data: %w", err)
	}
	if x.Shape[1] != net.InputSize() {
		return fmt.Errorf("network expects %d features, %s has %d", net.InputSize(), dataFile, x.Shape[1])
	}
	if y.Shape[1] != net.OutputSize() {
		return fmt.Errorf("network has %d outputs, %s has %d labels per sample", net.OutputSize(), dataFile, y.Shape[1])
	}

	pred, cost := net.Evaluate(x, y)
	log.Printf("%s cost: %v", dataFile, cost)
	log.Printf("%s accuracy: %.2f%%", dataFile, toolbox.Accuracy(pred, y))
	return nil
}
