package zarr

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

const (
	arrayMetaFile = ".zarray"
	attrsFile     = ".zattrs"
	groupMetaFile = ".zgroup"
)

// Array is one chunked N-dimensional array rooted at a directory.
type Array struct {
	path  string
	meta  Metadata
	dtype DType
	attrs map[string]interface{}
	sep   string
}

// OpenArray opens an existing array directory (one containing a .zarray
// document).
func OpenArray(path string) (*Array, error) {
	raw, err := os.ReadFile(filepath.Join(path, arrayMetaFile))
	if err != nil {
		return nil, fmt.Errorf("open array %s: %w", path, err)
	}
	var meta Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("parse %s: %w", arrayMetaFile, err)
	}
	return newArray(path, meta)
}

// Create initialises a new array directory and writes its metadata. Existing
// metadata at the same path is overwritten.
func Create(path string, shape, chunks []int, dtype DType, compressor *CompressorConfig, attrs map[string]interface{}) (*Array, error) {
	if len(shape) == 0 || len(shape) != len(chunks) {
		return nil, fmt.Errorf("create array %s: shape %v and chunks %v must have equal nonzero rank", path, shape, chunks)
	}
	for i := range chunks {
		if shape[i] <= 0 || chunks[i] <= 0 {
			return nil, fmt.Errorf("create array %s: non-positive dimension in shape %v chunks %v", path, shape, chunks)
		}
	}
	if dtype.Size() == 0 {
		return nil, fmt.Errorf("create array %s: unsupported dtype %q", path, dtype)
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, err
	}
	meta := Metadata{
		Chunks:     append([]int(nil), chunks...),
		Compressor: compressor,
		DType:      string(dtype),
		Order:      "C",
		Shape:      append([]int(nil), shape...),
		ZarrFormat: 2,
	}
	if err := writeJSON(filepath.Join(path, arrayMetaFile), meta); err != nil {
		return nil, err
	}
	if len(attrs) > 0 {
		if err := writeJSON(filepath.Join(path, attrsFile), attrs); err != nil {
			return nil, err
		}
	}
	a, err := newArray(path, meta)
	if err != nil {
		return nil, err
	}
	a.attrs = attrs
	return a, nil
}

func newArray(path string, meta Metadata) (*Array, error) {
	if meta.ZarrFormat != 2 {
		return nil, fmt.Errorf("array %s: unsupported zarr_format %d", path, meta.ZarrFormat)
	}
	if meta.Order != "" && meta.Order != "C" {
		return nil, fmt.Errorf("array %s: unsupported order %q", path, meta.Order)
	}
	if meta.Filters != nil {
		return nil, fmt.Errorf("array %s: filters are not supported", path)
	}
	if len(meta.Shape) == 0 || len(meta.Shape) != len(meta.Chunks) {
		return nil, fmt.Errorf("array %s: shape %v and chunks %v must have equal nonzero rank", path, meta.Shape, meta.Chunks)
	}
	dtype, err := ParseDType(meta.DType)
	if err != nil {
		return nil, fmt.Errorf("array %s: %w", path, err)
	}
	sep := meta.DimensionSeparator
	if sep == "" {
		sep = "."
	}
	a := &Array{path: path, meta: meta, dtype: dtype, sep: sep}
	if raw, err := os.ReadFile(filepath.Join(path, attrsFile)); err == nil {
		if err := json.Unmarshal(raw, &a.attrs); err != nil {
			return nil, fmt.Errorf("array %s: parse %s: %w", path, attrsFile, err)
		}
	}
	return a, nil
}

// Shape returns the array dimensions.
func (a *Array) Shape() []int { return append([]int(nil), a.meta.Shape...) }

// Chunks returns the nominal chunk dimensions.
func (a *Array) Chunks() []int { return append([]int(nil), a.meta.Chunks...) }

// DType returns the element type.
func (a *Array) DType() DType { return a.dtype }

// Attrs returns the user attributes from .zattrs, or nil if there are none.
func (a *Array) Attrs() map[string]interface{} { return a.attrs }

// Path returns the array's root directory.
func (a *Array) Path() string { return a.path }

// Read copies the hyperslab [start, start+count) into a freshly allocated
// row-major []float64. Chunks absent from the store read as the fill value.
func (a *Array) Read(start, count []int) ([]float64, error) {
	if err := a.checkSlab(start, count); err != nil {
		return nil, err
	}
	out := make([]float64, product(count))
	if len(out) == 0 {
		return out, nil
	}
	err := a.eachChunkOverlap(start, count, func(ci, lo, hi []int) error {
		chunk, err := a.readChunk(ci)
		if err != nil {
			return err
		}
		copySlabRows(out, count, start, chunk, a.meta.Chunks, chunkOrigin(ci, a.meta.Chunks), lo, hi, false)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Write stores the row-major data slice into the hyperslab
// [start, start+count), read-modifying-writing any partially covered chunks.
func (a *Array) Write(start, count []int, data []float64) error {
	if err := a.checkSlab(start, count); err != nil {
		return err
	}
	if len(data) != product(count) {
		return fmt.Errorf("array %s: data length %d does not match slab %v", a.path, len(data), count)
	}
	return a.eachChunkOverlap(start, count, func(ci, lo, hi []int) error {
		chunk, err := a.readChunk(ci)
		if err != nil {
			return err
		}
		copySlabRows(data, count, start, chunk, a.meta.Chunks, chunkOrigin(ci, a.meta.Chunks), lo, hi, true)
		return a.writeChunk(ci, chunk)
	})
}

func (a *Array) checkSlab(start, count []int) error {
	ndim := len(a.meta.Shape)
	if len(start) != ndim || len(count) != ndim {
		return fmt.Errorf("array %s: slab rank %d/%d does not match array rank %d", a.path, len(start), len(count), ndim)
	}
	for d := 0; d < ndim; d++ {
		if start[d] < 0 || count[d] < 0 || start[d]+count[d] > a.meta.Shape[d] {
			return fmt.Errorf("array %s: slab start %v count %v out of bounds for shape %v", a.path, start, count, a.meta.Shape)
		}
	}
	return nil
}

// eachChunkOverlap invokes fn once per chunk intersecting the slab, passing
// the chunk grid indices and the overlap [lo, hi) in array coordinates.
func (a *Array) eachChunkOverlap(start, count []int, fn func(ci, lo, hi []int) error) error {
	ndim := len(a.meta.Shape)
	cFrom := make([]int, ndim)
	cEnd := make([]int, ndim) // exclusive
	for d := 0; d < ndim; d++ {
		if count[d] == 0 {
			return nil
		}
		cFrom[d] = start[d] / a.meta.Chunks[d]
		cEnd[d] = (start[d]+count[d]-1)/a.meta.Chunks[d] + 1
	}
	ci := append([]int(nil), cFrom...)
	lo := make([]int, ndim)
	hi := make([]int, ndim)
	for {
		for d := 0; d < ndim; d++ {
			origin := ci[d] * a.meta.Chunks[d]
			lo[d] = maxInt(start[d], origin)
			hi[d] = minInt(start[d]+count[d], origin+a.meta.Chunks[d])
		}
		if err := fn(ci, lo, hi); err != nil {
			return err
		}
		if !incIndex(ci, cFrom, cEnd) {
			return nil
		}
	}
}

// readChunk decodes one full nominal chunk. Missing chunk files yield a
// fill-value chunk, matching zarr semantics for unwritten regions.
func (a *Array) readChunk(ci []int) ([]float64, error) {
	n := product(a.meta.Chunks)
	raw, err := os.ReadFile(filepath.Join(a.path, ChunkKey(ci, a.sep)))
	if os.IsNotExist(err) {
		chunk := make([]float64, n)
		if a.meta.FillValue != 0 {
			for i := range chunk {
				chunk[i] = a.meta.FillValue
			}
		}
		return chunk, nil
	}
	if err != nil {
		return nil, err
	}
	decoded, err := decompressChunk(a.meta.Compressor, raw)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", ChunkKey(ci, a.sep), err)
	}
	if len(decoded) != n*a.dtype.Size() {
		return nil, fmt.Errorf("chunk %s: %d bytes, want %d", ChunkKey(ci, a.sep), len(decoded), n*a.dtype.Size())
	}
	return decodeElements(decoded, a.dtype), nil
}

func (a *Array) writeChunk(ci []int, chunk []float64) error {
	encoded, err := compressChunk(a.meta.Compressor, encodeElements(chunk, a.dtype))
	if err != nil {
		return fmt.Errorf("chunk %s: %w", ChunkKey(ci, a.sep), err)
	}
	name := filepath.Join(a.path, ChunkKey(ci, a.sep))
	if a.sep == "/" {
		if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(name, encoded, 0o644)
}

// copySlabRows moves contiguous last-dimension runs between a slab buffer and
// a chunk buffer over the overlap region [lo, hi). When toChunk is true data
// flows slab→chunk, otherwise chunk→slab.
func copySlabRows(slab []float64, slabCount, slabStart []int, chunk []float64, chunkDims, chunkOrigin, lo, hi []int, toChunk bool) {
	ndim := len(lo)
	slabStrides := rowMajorStrides(slabCount)
	chunkStrides := rowMajorStrides(chunkDims)
	pos := append([]int(nil), lo...)
	rowLen := hi[ndim-1] - lo[ndim-1]
	for {
		so, co := 0, 0
		for d := 0; d < ndim; d++ {
			so += (pos[d] - slabStart[d]) * slabStrides[d]
			co += (pos[d] - chunkOrigin[d]) * chunkStrides[d]
		}
		if toChunk {
			copy(chunk[co:co+rowLen], slab[so:so+rowLen])
		} else {
			copy(slab[so:so+rowLen], chunk[co:co+rowLen])
		}
		if !incIndex(pos[:ndim-1], lo[:ndim-1], hi[:ndim-1]) {
			return
		}
	}
}

func decodeElements(b []byte, d DType) []float64 {
	n := len(b) / d.Size()
	out := make([]float64, n)
	switch d {
	case Uint8:
		for i := 0; i < n; i++ {
			out[i] = float64(b[i])
		}
	case Int16:
		for i := 0; i < n; i++ {
			out[i] = float64(int16(binary.LittleEndian.Uint16(b[i*2:])))
		}
	case Int32:
		for i := 0; i < n; i++ {
			out[i] = float64(int32(binary.LittleEndian.Uint32(b[i*4:])))
		}
	case Int64:
		for i := 0; i < n; i++ {
			out[i] = float64(int64(binary.LittleEndian.Uint64(b[i*8:])))
		}
	case Float32:
		for i := 0; i < n; i++ {
			out[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:])))
		}
	case Float64:
		for i := 0; i < n; i++ {
			out[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:]))
		}
	}
	return out
}

func encodeElements(v []float64, d DType) []byte {
	out := make([]byte, len(v)*d.Size())
	switch d {
	case Uint8:
		for i, e := range v {
			out[i] = byte(e)
		}
	case Int16:
		for i, e := range v {
			binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(e)))
		}
	case Int32:
		for i, e := range v {
			binary.LittleEndian.PutUint32(out[i*4:], uint32(int32(e)))
		}
	case Int64:
		for i, e := range v {
			binary.LittleEndian.PutUint64(out[i*8:], uint64(int64(e)))
		}
	case Float32:
		for i, e := range v {
			binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(float32(e)))
		}
	case Float64:
		for i, e := range v {
			binary.LittleEndian.PutUint64(out[i*8:], math.Float64bits(e))
		}
	}
	return out
}

func chunkOrigin(ci, chunks []int) []int {
	origin := make([]int, len(ci))
	for d := range ci {
		origin[d] = ci[d] * chunks[d]
	}
	return origin
}

// incIndex advances a multi-dimensional index within [lo, hi) bounds in
// row-major order. It returns false once the index wraps past the end (or
// immediately for a zero-rank index).
func incIndex(idx, lo, hi []int) bool {
	for d := len(idx) - 1; d >= 0; d-- {
		idx[d]++
		if idx[d] < hi[d] {
			return true
		}
		idx[d] = lo[d]
	}
	return false
}

func rowMajorStrides(dims []int) []int {
	strides := make([]int, len(dims))
	s := 1
	for d := len(dims) - 1; d >= 0; d-- {
		strides[d] = s
		s *= dims[d]
	}
	return strides
}

func product(dims []int) int {
	n := 1
	for _, d := range dims {
		n *= d
	}
	return n
}

func writeJSON(path string, v interface{}) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
