package encode

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ctessum/sparse"

	"github.com/mihiarc/bigmap-zarr-sub000/internal/metrics"
	"github.com/mihiarc/bigmap-zarr-sub000/internal/monitoring"
)

// SpatialMeta carries the georeferencing every encoder stamps onto its
// artifact.
type SpatialMeta struct {
	CRS       string
	Transform [6]float64 // GDAL coefficient order
	Height    int
	Width     int
}

// Variable describes the surface being encoded.
type Variable struct {
	Name        string // artifact base name, no extension
	DType       metrics.DType
	Units       string
	Description string
}

// SerializationError wraps a failure to produce one metric's artifact. It is
// fatal only for that metric; the engine continues with the rest.
type SerializationError struct {
	Metric string
	Format Format
	Err    error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("serialize %s as %s: %v", e.Metric, e.Format, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// Serializer writes artifacts under Dir, creating it on first use.
type Serializer struct {
	Dir string
}

// Serialize encodes grid into the requested format and returns the artifact
// path. When a non-raster encoding fails for a reason other than writing the
// artifact itself, the surface is re-encoded as a raster and fellBack is
// true; if that also fails the error is a *SerializationError for this
// metric only.
func (s *Serializer) Serialize(v Variable, grid *sparse.DenseArray, meta SpatialMeta, format Format) (path string, fellBack bool, err error) {
	if len(grid.Shape) != 2 || grid.Shape[0] != meta.Height || grid.Shape[1] != meta.Width {
		return "", false, &SerializationError{Metric: v.Name, Format: format,
			Err: fmt.Errorf("grid shape %v does not match extent (%d, %d)", grid.Shape, meta.Height, meta.Width)}
	}
	path, err = s.artifactPath(v.Name, format)
	if err != nil {
		return "", false, &SerializationError{Metric: v.Name, Format: format, Err: err}
	}

	if err = s.encode(path, v, grid, meta, format); err == nil {
		return path, false, nil
	}
	if format == Raster {
		return "", false, &SerializationError{Metric: v.Name, Format: format, Err: err}
	}

	monitoring.Warnf("encode: %s as %s failed (%v); falling back to raster", v.Name, format, err)
	path, pathErr := s.artifactPath(v.Name, Raster)
	if pathErr != nil {
		return "", false, &SerializationError{Metric: v.Name, Format: Raster, Err: pathErr}
	}
	if err = s.encode(path, v, grid, meta, Raster); err != nil {
		return "", false, &SerializationError{Metric: v.Name, Format: Raster, Err: err}
	}
	return path, true, nil
}

func (s *Serializer) encode(path string, v Variable, grid *sparse.DenseArray, meta SpatialMeta, format Format) error {
	switch format {
	case ChunkedArray:
		return writeChunkedArray(path, v, grid, meta)
	case LabeledMultidim:
		return writeLabeledMultidim(path, v, grid, meta)
	default:
		return writeRaster(path, v, grid, meta)
	}
}

// artifactPath joins the artifact name to the output directory, refusing
// names that would escape it. Only the base component of the configured
// output name is used.
func (s *Serializer) artifactPath(name string, format Format) (string, error) {
	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	base := filepath.Base(strings.TrimSpace(name))
	if base == "." || base == ".." || base == "" || base == string(os.PathSeparator) {
		return "", fmt.Errorf("invalid artifact name %q", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(dir, base+format.Ext()), nil
}
