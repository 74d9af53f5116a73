// Package dataset loads NumPy .npy and .npz files into toolbox arrays.
package dataset

import (
	"fmt"
	"os"
	"strings"

	"github.com/ahmedtd/mlexercises/toolbox"
	"github.com/sbinet/npyio/npy"
	"github.com/sbinet/npyio/npz"
)

type number interface {
	~float32 | ~float64 | ~int32 | ~int64 | ~uint8
}

func convert[T, S number](in []S) []T {
	out := make([]T, len(in))
	for i, v := range in {
		out[i] = T(v)
	}
	return out
}

func readTyped[S number, T float32 | float64](read func(ptr any) error) ([]T, error) {
	var raw []S
	if err := read(&raw); err != nil {
		return nil, err
	}
	return convert[T](raw), nil
}

// readValues reads an array of any supported dtype as T.  read is handed a
// pointer to a slice of the array's native element type.
func readValues[T float32 | float64](header *npy.Header, read func(ptr any) error) ([]T, error) {
	if header.Descr.Fortran {
		return nil, fmt.Errorf("fortran-ordered arrays are not supported")
	}

	// It seems like even though the npy format supports specifying a Fortran
	// layout, numpy will always write C-style layouts (row-major / last index
	// stored contiguously.)  Byte order is handled by npyio; only the kind and
	// size matter here.
	switch kind := strings.TrimLeft(header.Descr.Type, "<|="); kind {
	case "f8":
		return readTyped[float64, T](read)
	case "f4":
		return readTyped[float32, T](read)
	case "i8":
		return readTyped[int64, T](read)
	case "i4":
		return readTyped[int32, T](read)
	case "u1":
		return readTyped[uint8, T](read)
	case "b1":
		var raw []bool
		if err := read(&raw); err != nil {
			return nil, err
		}
		out := make([]T, len(raw))
		for i, v := range raw {
			if v {
				out[i] = 1
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported dtype %q", header.Descr.Type)
	}
}

func npzEntryName(key string) string {
	if strings.HasSuffix(key, ".npy") {
		return key
	}
	return key + ".npy"
}

func readNPZArray(r *npz.Reader, key string) ([]float32, []int, error) {
	name := npzEntryName(key)
	header := r.Header(name)
	if header == nil {
		return nil, nil, fmt.Errorf("no array named %s", key)
	}

	vals, err := readValues[float32](header, func(ptr any) error {
		return r.Read(name, ptr)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("while reading %s: %w", name, err)
	}

	return vals, header.Descr.Shape, nil
}

// LoadNPZ reads the samples xKey and labels yKey from a NumPy archive.
//
// The first dimension of x indexes samples; any further dimensions are
// flattened, so (m, 28, 28) images become an array of shape (m, 784).  y must
// hold exactly one label per sample and is returned with shape (m, 1), which
// accepts the (1, m), (m,) and (m, 1) layouts.
func LoadNPZ(path, xKey, yKey string) (x, y *toolbox.AF32, err error) {
	r, err := npz.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("while opening data file: %w", err)
	}
	defer r.Close()

	xVals, xShape, err := readNPZArray(r, xKey)
	if err != nil {
		return nil, nil, err
	}
	x, err = asSamples(xVals, xShape)
	if err != nil {
		return nil, nil, fmt.Errorf("while shaping %s: %w", xKey, err)
	}

	yVals, yShape, err := readNPZArray(r, yKey)
	if err != nil {
		return nil, nil, err
	}
	m := x.Shape[0]
	if len(yVals) != m {
		return nil, nil, fmt.Errorf("%s has shape %v, want one label for each of %d samples", yKey, yShape, m)
	}
	y = toolbox.AF32Reshape(&toolbox.AF32{V: yVals, Shape: yShape}, m, 1)

	return x, y, nil
}

func asSamples(vals []float32, shape []int) (*toolbox.AF32, error) {
	if len(shape) == 0 || shape[0] < 1 {
		return nil, fmt.Errorf("cannot use shape %v as samples", shape)
	}
	features := 1
	for _, s := range shape[1:] {
		features *= s
	}
	if features < 1 || shape[0]*features != len(vals) {
		return nil, fmt.Errorf("cannot use shape %v as samples", shape)
	}
	return toolbox.AF32Reshape(&toolbox.AF32{V: vals, Shape: shape}, shape[0], features), nil
}

// LoadNPY reads a single .npy array, flattened, as float64 values.
func LoadNPY(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("while opening data file: %w", err)
	}
	defer f.Close()

	r, err := npy.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("while reading npy header: %w", err)
	}

	vals, err := readValues[float64](&r.Header, r.Read)
	if err != nil {
		return nil, fmt.Errorf("while reading %s: %w", path, err)
	}
	return vals, nil
}
