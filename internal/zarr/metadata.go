// Package zarr implements a minimal Zarr v2 directory store: enough of the
// format to read chunked biomass arrays produced by upstream tooling and to
// write metric surfaces back out as chunked stores. Arrays are C-order and
// little-endian; chunk payloads may be raw or compressed with gzip, zlib or
// zstd.
package zarr

import (
	"fmt"
	"strconv"
	"strings"
)

// Metadata mirrors the .zarray document for one array.
type Metadata struct {
	Chunks             []int             `json:"chunks"`
	Compressor         *CompressorConfig `json:"compressor"`
	DType              string            `json:"dtype"`
	FillValue          float64           `json:"fill_value"`
	Filters            interface{}       `json:"filters"`
	Order              string            `json:"order"`
	Shape              []int             `json:"shape"`
	ZarrFormat         int               `json:"zarr_format"`
	DimensionSeparator string            `json:"dimension_separator,omitempty"`
}

// CompressorConfig identifies the chunk codec. A nil CompressorConfig means
// chunks are stored raw.
type CompressorConfig struct {
	ID    string `json:"id"`
	Level int    `json:"level,omitempty"`
}

// DType is a numpy-style type code as stored in .zarray.
type DType string

// Supported element types.
const (
	Uint8   DType = "|u1"
	Int16   DType = "<i2"
	Int32   DType = "<i4"
	Int64   DType = "<i8"
	Float32 DType = "<f4"
	Float64 DType = "<f8"
)

// Size returns the element width in bytes.
func (d DType) Size() int {
	switch d {
	case Uint8:
		return 1
	case Int16:
		return 2
	case Int32, Float32:
		return 4
	case Int64, Float64:
		return 8
	}
	return 0
}

// ParseDType validates a .zarray dtype string. Only little-endian and
// byte-width-1 codes are supported; big-endian stores are rejected rather
// than silently misread.
func ParseDType(s string) (DType, error) {
	switch DType(s) {
	case Uint8, Int16, Int32, Int64, Float32, Float64:
		return DType(s), nil
	}
	if strings.HasPrefix(s, ">") {
		return "", fmt.Errorf("big-endian dtype %q not supported", s)
	}
	return "", fmt.Errorf("unsupported dtype %q", s)
}

// GridShape returns the number of chunks along each dimension:
// ceil(shape[i] / chunks[i]).
func GridShape(shape, chunks []int) []int {
	grid := make([]int, len(shape))
	for i := range shape {
		grid[i] = (shape[i] + chunks[i] - 1) / chunks[i]
	}
	return grid
}

// ChunkKey builds the store key for the chunk at the given grid indices.
// Zarr v2 uses "." as the default separator, e.g. "0.2.1".
func ChunkKey(indices []int, separator string) string {
	if len(indices) == 0 {
		return "0"
	}
	parts := make([]string, len(indices))
	for i, idx := range indices {
		parts[i] = strconv.Itoa(idx)
	}
	return strings.Join(parts, separator)
}
