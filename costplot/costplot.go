// Package costplot draws training-cost curves.
package costplot

import (
	"errors"
	"fmt"
	"image/color"
	"io"

	"github.com/ahmedtd/mlexercises/toolbox"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

var ErrEmptyHistory = errors.New("no cost history to plot")

const (
	width  = 6 * vg.Inch
	height = 4 * vg.Inch
)

func newPlot(history []toolbox.CostPoint) (*plot.Plot, error) {
	if len(history) == 0 {
		return nil, ErrEmptyHistory
	}

	p := plot.New()
	p.Title.Text = "Training Cost"
	p.X.Label.Text = "iteration"
	p.Y.Label.Text = "cost"
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(history))
	for i, h := range history {
		pts[i].X = float64(h.Iteration)
		pts[i].Y = float64(h.Cost)
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, fmt.Errorf("while building cost line: %w", err)
	}
	line.Width = vg.Points(2)
	line.Color = color.RGBA{B: 255, A: 255}
	p.Add(line)

	return p, nil
}

// Write saves the cost curve to path.  The image format follows the file
// extension (png, svg, pdf, ...).
func Write(path string, history []toolbox.CostPoint) error {
	p, err := newPlot(history)
	if err != nil {
		return err
	}
	if err := p.Save(width, height, path); err != nil {
		return fmt.Errorf("while saving plot to %s: %w", path, err)
	}
	return nil
}

// WriteTo renders the cost curve in the given format ("png", "svg", ...).
func WriteTo(w io.Writer, format string, history []toolbox.CostPoint) error {
	p, err := newPlot(history)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(width, height, format)
	if err != nil {
		return fmt.Errorf("while rendering %s plot: %w", format, err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("while writing plot: %w", err)
	}
	return nil
}
