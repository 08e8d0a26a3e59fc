package encode

import (
	"os"

	"github.com/ctessum/sparse"

	"github.com/mihiarc/bigmap-zarr-sub000/internal/metrics"
	"github.com/mihiarc/bigmap-zarr-sub000/internal/version"
	"github.com/mihiarc/bigmap-zarr-sub000/internal/zarr"
)

// outputChunk caps the chunk edge for chunked-array artifacts.
const outputChunk = 512

// writeChunkedArray encodes the surface as a zarr store: one 2-D array with
// the georeferencing and variable identity in its attributes.
func writeChunkedArray(path string, v Variable, grid *sparse.DenseArray, meta SpatialMeta) error {
	// Recreate the store from scratch so stale chunks from a previous run
	// cannot survive under a new .zarray.
	if err := os.RemoveAll(path); err != nil {
		return err
	}

	transform := make([]interface{}, 6)
	for i, c := range meta.Transform {
		transform[i] = c
	}
	attrs := map[string]interface{}{
		"variable":  v.Name,
		"units":     v.Units,
		"long_name": v.Description,
		"crs":       meta.CRS,
		"transform": transform,
		"software":  version.ProcessorTag(),
	}

	chunks := []int{minDim(outputChunk, meta.Height), minDim(outputChunk, meta.Width)}
	arr, err := zarr.Create(path, []int{meta.Height, meta.Width}, chunks,
		zarrType(v.DType), &zarr.CompressorConfig{ID: "zstd"}, attrs)
	if err != nil {
		return err
	}
	return arr.Write([]int{0, 0}, []int{meta.Height, meta.Width}, grid.Elements)
}

func zarrType(d metrics.DType) zarr.DType {
	switch d {
	case metrics.DTypeUint8:
		return zarr.Uint8
	case metrics.DTypeInt16:
		return zarr.Int16
	case metrics.DTypeInt32:
		return zarr.Int32
	case metrics.DTypeFloat64:
		return zarr.Float64
	default:
		return zarr.Float32
	}
}

func minDim(a, b int) int {
	if a < b {
		return a
	}
	return b
}
