package toolbox

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"slices"
)

const safeTensorsMetadataKey = "__metadata__"

type SafeTensorInfo struct {
	DType       string `json:"dtype"`
	Shape       []int  `json:"shape"`
	DataOffsets []int  `json:"data_offsets"`
}

// WriteSafeTensors writes tensors in the safetensors format.  metadata may be
// nil; otherwise it is stored under the __metadata__ header key.
func WriteSafeTensors(w io.Writer, tensors map[string]*AF32, metadata map[string]string) error {
	header := map[string]any{}
	if len(metadata) > 0 {
		header[safeTensorsMetadataKey] = metadata
	}
	dataOffset := 0

	keys := []string{}
	for k := range tensors {
		if k == safeTensorsMetadataKey {
			return fmt.Errorf("tensor name %s is reserved", k)
		}
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		begin := dataOffset
		dataOffset += len(tensors[k].V) * 4
		end := dataOffset

		header[k] = SafeTensorInfo{
			DType:       "F32",
			Shape:       tensors[k].Shape,
			DataOffsets: []int{begin, end},
		}
	}

	headerBytes, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("while marshaling header: %w", err)
	}

	if err := binary.Write(w, binary.LittleEndian, uint64(len(headerBytes))); err != nil {
		return fmt.Errorf("while writing header length: %w", err)
	}

	if _, err := w.Write(headerBytes); err != nil {
		return fmt.Errorf("while writing header: %w", err)
	}

	for _, k := range keys {
		if err := binary.Write(w, binary.LittleEndian, tensors[k].V); err != nil {
			return fmt.Errorf("while writing %s values: %w", k, err)
		}
	}

	return nil
}

// ReadSafeTensors reads a safetensors stream written by WriteSafeTensors (or
// any other F32-only writer).  The returned metadata map is never nil.
func ReadSafeTensors(r io.Reader) (map[string]*AF32, map[string]string, error) {
	var headerLen uint64
	if err := binary.Read(r, binary.LittleEndian, &headerLen); err != nil {
		return nil, nil, fmt.Errorf("while reading header length: %w", err)
	}
	if headerLen > 100<<20 {
		return nil, nil, fmt.Errorf("header length %d is implausibly large", headerLen)
	}

	headerBytes := make([]byte, int(headerLen))
	if _, err := io.ReadFull(r, headerBytes); err != nil {
		return nil, nil, fmt.Errorf("while reading header: %w", err)
	}

	rawHeader := map[string]json.RawMessage{}
	if err := json.Unmarshal(headerBytes, &rawHeader); err != nil {
		return nil, nil, fmt.Errorf("while parsing header: %w", err)
	}

	metadata := map[string]string{}
	header := map[string]SafeTensorInfo{}
	for k, raw := range rawHeader {
		if k == safeTensorsMetadataKey {
			if err := json.Unmarshal(raw, &metadata); err != nil {
				return nil, nil, fmt.Errorf("while parsing metadata: %w", err)
			}
			continue
		}
		var info SafeTensorInfo
		if err := json.Unmarshal(raw, &info); err != nil {
			return nil, nil, fmt.Errorf("while parsing header entry %s: %w", k, err)
		}
		header[k] = info
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("while reading tensor data: %w", err)
	}

	tensors := map[string]*AF32{}
	for k, hdr := range header {
		if hdr.DType != "F32" {
			return nil, nil, fmt.Errorf("unsupported dtype %s", hdr.DType)
		}
		if len(hdr.Shape) == 0 || len(hdr.Shape) > 3 {
			return nil, nil, fmt.Errorf("unsupported shape %v", hdr.Shape)
		}

		size := 1
		for _, s := range hdr.Shape {
			if s < 1 {
				return nil, nil, fmt.Errorf("bad shape %v", hdr.Shape)
			}
			size *= s
		}

		if len(hdr.DataOffsets) != 2 {
			return nil, nil, fmt.Errorf("bad data offsets %v for %s", hdr.DataOffsets, k)
		}
		begin, end := hdr.DataOffsets[0], hdr.DataOffsets[1]
		if begin < 0 || end > len(data) || end-begin != size*4 {
			return nil, nil, fmt.Errorf("data offsets %v for %s do not match shape %v", hdr.DataOffsets, k, hdr.Shape)
		}

		tensors[k] = &AF32{
			V:     castToF32(data[begin:end]),
			Shape: hdr.Shape,
		}
	}

	return tensors, metadata, nil
}

func castToF32(b []byte) []float32 {
	f := make([]float32, len(b)/4)
	for i := range f {
		f[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return f
}
