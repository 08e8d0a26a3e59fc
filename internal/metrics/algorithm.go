// Package metrics defines the pluggable per-pixel forest metric algorithms
// and the registry that constructs them by name. Algorithms operate on one
// spatial tile at a time: the full band stack for a rectangular window of the
// source extent. They never touch the store directly.
package metrics

import (
	"github.com/ctessum/sparse"
)

// DType names the on-disk element type a metric's output surface should be
// encoded with. Computation always happens in float64; the declared dtype is
// applied at serialization.
type DType string

// Output dtypes used by the standard metric set.
const (
	DTypeUint8   DType = "uint8"
	DTypeInt16   DType = "int16"
	DTypeInt32   DType = "int32"
	DTypeFloat32 DType = "float32"
	DTypeFloat64 DType = "float64"
)

// TileData is the working window handed to an algorithm: every band of the
// source for one spatial tile, plus the species codes aligned with the band
// axis so algorithms can resolve code parameters to band indices.
type TileData struct {
	Codes []string
	Data  *sparse.DenseArray // shape (bands, height, width)
}

// Bands returns the band-axis length.
func (t *TileData) Bands() int { return t.Data.Shape[0] }

// Height returns the tile row count.
func (t *TileData) Height() int { return t.Data.Shape[1] }

// Width returns the tile column count.
func (t *TileData) Width() int { return t.Data.Shape[2] }

// At returns the value of band b at tile-local pixel (y, x).
func (t *TileData) At(b, y, x int) float64 {
	return t.Data.Elements[(b*t.Data.Shape[1]+y)*t.Data.Shape[2]+x]
}

// Algorithm is one pluggable per-pixel metric. Validate is consulted before
// each tile; a false return zero-fills that tile without failing the run.
// Calculate reports failure through its error return, never by panicking:
// the engine treats an error as a recoverable per-tile, per-metric event.
type Algorithm interface {
	Name() string
	Description() string
	Units() string
	OutputDType() DType
	Validate(t *TileData) bool
	Preprocess(t *TileData) *TileData
	Calculate(t *TileData) (*sparse.DenseArray, error)
	Postprocess(grid *sparse.DenseArray) *sparse.DenseArray
}

// base carries the descriptive plumbing shared by the standard algorithms
// and provides pass-through pre/postprocess stages.
type base struct {
	name        string
	description string
	units       string
	dtype       DType
}

func (b base) Name() string        { return b.name }
func (b base) Description() string { return b.description }
func (b base) Units() string       { return b.units }
func (b base) OutputDType() DType  { return b.dtype }

func (b base) Validate(t *TileData) bool {
	return t != nil && t.Data != nil && len(t.Data.Shape) == 3 && t.Data.Shape[0] > 0
}

func (b base) Preprocess(t *TileData) *TileData { return t }

func (b base) Postprocess(grid *sparse.DenseArray) *sparse.DenseArray { return grid }

// bandIndex resolves an explicit band index or a species code against the
// tile's code list. An index takes precedence; -1 with an empty code means
// "not configured".
func bandIndex(codes []string, idx int, code string) (int, bool) {
	if idx >= 0 {
		return idx, idx < len(codes)
	}
	if code == "" {
		return -1, false
	}
	for i, c := range codes {
		if c == code {
			return i, true
		}
	}
	return -1, false
}
