package dataset

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ahmedtd/mlexercises/toolbox"
	"github.com/google/go-cmp/cmp"
)

// encodeNPY produces a version 1.0 .npy file.
func encodeNPY(t *testing.T, descr string, fortran bool, shape []int, data any) []byte {
	t.Helper()

	dims := []string{}
	for _, s := range shape {
		dims = append(dims, fmt.Sprint(s))
	}
	shapeStr := "(" + strings.Join(dims, ", ")
	if len(shape) == 1 {
		shapeStr += ","
	}
	shapeStr += ")"

	fortranStr := "False"
	if fortran {
		fortranStr = "True"
	}

	header := fmt.Sprintf("{'descr': '%s', 'fortran_order': %s, 'shape': %s, }", descr, fortranStr, shapeStr)
	// Pad so the data starts on a 64-byte boundary, ending with a newline.
	for (10+len(header)+1)%64 != 0 {
		header += " "
	}
	header += "\n"

	buf := &bytes.Buffer{}
	buf.WriteString("\x93NUMPY")
	buf.Write([]byte{1, 0})
	if err := binary.Write(buf, binary.LittleEndian, uint16(len(header))); err != nil {
		t.Fatalf("while writing header length: %v", err)
	}
	buf.WriteString(header)
	if err := binary.Write(buf, binary.LittleEndian, data); err != nil {
		t.Fatalf("while writing data: %v", err)
	}
	return buf.Bytes()
}

func writeNPZ(t *testing.T, entries map[string][]byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "data.npz")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("while creating npz: %v", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, b := range entries {
		w, err := zw.Create(name + ".npy")
		if err != nil {
			t.Fatalf("while creating npz entry: %v", err)
		}
		if _, err := w.Write(b); err != nil {
			t.Fatalf("while writing npz entry: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("while closing npz: %v", err)
	}
	return path
}

func TestLoadNPZFlattensSamples(t *testing.T) {
	xData := make([]float64, 4*2*3)
	for i := range xData {
		xData[i] = float64(i) / 10
	}
	path := writeNPZ(t, map[string][]byte{
		"X": encodeNPY(t, "<f8", false, []int{4, 2, 3}, xData),
		"Y": encodeNPY(t, "<i8", false, []int{1, 4}, []int64{1, 0, 0, 1}),
	})

	x, y, err := LoadNPZ(path, "X", "Y")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	wantX := &toolbox.AF32{V: make([]float32, 24), Shape: []int{4, 6}}
	for i := range xData {
		wantX.V[i] = float32(xData[i])
	}
	if diff := cmp.Diff(x, wantX); diff != "" {
		t.Errorf("Wrong x; diff (-got +want)\n%s", diff)
	}

	wantY := &toolbox.AF32{V: []float32{1, 0, 0, 1}, Shape: []int{4, 1}}
	if diff := cmp.Diff(y, wantY); diff != "" {
		t.Errorf("Wrong y; diff (-got +want)\n%s", diff)
	}
}

func TestLoadNPZLabelLayouts(t *testing.T) {
	xBytes := encodeNPY(t, "<f4", false, []int{3, 2}, []float32{1, 2, 3, 4, 5, 6})
	wantY := &toolbox.AF32{V: []float32{0, 1, 1}, Shape: []int{3, 1}}

	testCases := []struct {
		desc   string
		yBytes []byte
	}{
		{desc: "uint8 vector", yBytes: encodeNPY(t, "|u1", false, []int{3}, []uint8{0, 1, 1})},
		{desc: "bool column", yBytes: encodeNPY(t, "|b1", false, []int{3, 1}, []bool{false, true, true})},
		{desc: "int32 row", yBytes: encodeNPY(t, "<i4", false, []int{1, 3}, []int32{0, 1, 1})},
	}
	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			path := writeNPZ(t, map[string][]byte{"X": xBytes, "Y": tc.yBytes})

			x, y, err := LoadNPZ(path, "X", "Y.npy")
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if diff := cmp.Diff(x.Shape, []int{3, 2}); diff != "" {
				t.Errorf("Wrong x shape; diff (-got +want)\n%s", diff)
			}
			if diff := cmp.Diff(y, wantY); diff != "" {
				t.Errorf("Wrong y; diff (-got +want)\n%s", diff)
			}
		})
	}
}

func TestLoadNPZErrors(t *testing.T) {
	xBytes := encodeNPY(t, "<f8", false, []int{2, 2}, []float64{1, 2, 3, 4})

	testCases := []struct {
		desc    string
		entries map[string][]byte
	}{
		{
			desc:    "missing labels",
			entries: map[string][]byte{"X": xBytes},
		},
		{
			desc: "label count mismatch",
			entries: map[string][]byte{
				"X": xBytes,
				"Y": encodeNPY(t, "<f8", false, []int{3}, []float64{1, 0, 1}),
			},
		},
		{
			desc: "fortran order",
			entries: map[string][]byte{
				"X": encodeNPY(t, "<f8", true, []int{2, 2}, []float64{1, 2, 3, 4}),
				"Y": encodeNPY(t, "<f8", false, []int{2}, []float64{1, 0}),
			},
		},
		{
			desc: "unsupported dtype",
			entries: map[string][]byte{
				"X": encodeNPY(t, "<i2", false, []int{2, 2}, []int16{1, 2, 3, 4}),
				"Y": encodeNPY(t, "<f8", false, []int{2}, []float64{1, 0}),
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			path := writeNPZ(t, tc.entries)
			if _, _, err := LoadNPZ(path, "X", "Y"); err == nil {
				t.Errorf("LoadNPZ returned no error")
			}
		})
	}

	if _, _, err := LoadNPZ(filepath.Join(t.TempDir(), "absent.npz"), "X", "Y"); err == nil {
		t.Errorf("LoadNPZ on a missing file returned no error")
	}
}

func TestLoadNPY(t *testing.T) {
	testCases := []struct {
		desc  string
		bytes []byte
		want  []float64
	}{
		{
			desc:  "float64 vector",
			bytes: encodeNPY(t, "<f8", false, []int{4}, []float64{0.5, 1.5, 2, 4}),
			want:  []float64{0.5, 1.5, 2, 4},
		},
		{
			desc:  "int64 matrix",
			bytes: encodeNPY(t, "<i8", false, []int{2, 2}, []int64{1, 2, 3, 4}),
			want:  []float64{1, 2, 3, 4},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "data.npy")
			if err := os.WriteFile(path, tc.bytes, 0o644); err != nil {
				t.Fatalf("while writing npy: %v", err)
			}

			got, err := LoadNPY(path)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if diff := cmp.Diff(got, tc.want); diff != "" {
				t.Errorf("Wrong values; diff (-got +want)\n%s", diff)
			}
		})
	}
}
