package costplot

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ahmedtd/mlexercises/toolbox"
)

var history = []toolbox.CostPoint{
	{Iteration: 0, Cost: 0.7},
	{Iteration: 100, Cost: 0.5},
	{Iteration: 200, Cost: 0.3},
}

func TestWriteToSVG(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := WriteTo(buf, "svg", history); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "<svg") {
		t.Errorf("output is not an SVG document")
	}
}

func TestWritePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cost.png")
	if err := Write(path, history); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Unexpected error reading plot: %v", err)
	}
	if !bytes.HasPrefix(b, []byte("\x89PNG")) {
		t.Errorf("output is not a PNG image")
	}
}

func TestEmptyHistory(t *testing.T) {
	if err := WriteTo(&bytes.Buffer{}, "svg", nil); !errors.Is(err, ErrEmptyHistory) {
		t.Errorf("WriteTo(nil history) err=%v, want %v", err, ErrEmptyHistory)
	}
}

func TestUnknownFormat(t *testing.T) {
	if err := WriteTo(&bytes.Buffer{}, "bmp-but-not-really", history); err == nil {
		t.Errorf("WriteTo with unknown format returned no error")
	}
}
