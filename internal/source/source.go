// Package source adapts a chunked biomass store into the uniform read
// interface the calculation engine consumes. The store may be a flat array
// or a group container holding the array plus side tables; either way the
// adapter presents one validated 3-D (band, row, column) array with its
// species and spatial attributes.
package source

import (
	"fmt"
	"strconv"

	"github.com/ctessum/sparse"

	"github.com/mihiarc/bigmap-zarr-sub000/internal/zarr"
)

// Source is the engine's read-only view of the biomass array. Slice bounds
// are half-open. Implementations must be safe for concurrent Slice calls on
// disjoint windows.
type Source interface {
	Bands() int
	Height() int
	Width() int
	SpeciesCodes() []string
	SpeciesNames() []string
	CRS() string
	Transform() [6]float64
	Slice(b0, b1, y0, y1, x0, x1 int) (*sparse.DenseArray, error)
}

// SchemaError reports a missing or malformed source attribute discovered at
// open. It is fatal: the engine refuses to start a run over a store it
// cannot fully describe.
type SchemaError struct {
	Attr   string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("source schema: %s: %s", e.Attr, e.Reason)
}

// ZarrSource implements Source over a zarr array or group store.
type ZarrSource struct {
	arr       *zarr.Array
	codes     []string
	names     []string
	crs       string
	transform [6]float64
}

// Open opens and validates a store. A flat store has the array at its root;
// a group store holds the 3-D array as a member (preferring one named
// "biomass") and may carry species codes as a 1-D member overriding the
// attribute of the same name.
func Open(path string) (*ZarrSource, error) {
	arr, attrs, codesMember, err := locateArray(path)
	if err != nil {
		return nil, err
	}

	shape := arr.Shape()
	if len(shape) != 3 {
		return nil, &SchemaError{Attr: "shape", Reason: fmt.Sprintf("array has %d dimensions, want 3 (band, row, column)", len(shape))}
	}

	s := &ZarrSource{arr: arr}

	s.codes = codesMember
	if s.codes == nil {
		s.codes = attrStrings(attrs["species_codes"])
	}
	if s.codes == nil {
		return nil, &SchemaError{Attr: "species_codes", Reason: "attribute missing"}
	}
	if len(s.codes) != shape[0] {
		return nil, &SchemaError{Attr: "species_codes", Reason: fmt.Sprintf("%d codes for %d bands", len(s.codes), shape[0])}
	}

	s.names = attrStrings(attrs["species_names"])
	if s.names == nil {
		return nil, &SchemaError{Attr: "species_names", Reason: "attribute missing"}
	}
	if len(s.names) != shape[0] {
		return nil, &SchemaError{Attr: "species_names", Reason: fmt.Sprintf("%d names for %d bands", len(s.names), shape[0])}
	}

	crs, ok := attrs["crs"].(string)
	if !ok || crs == "" {
		return nil, &SchemaError{Attr: "crs", Reason: "attribute missing"}
	}
	s.crs = crs

	gt, err := spatialReference(attrs, shape[1], shape[2])
	if err != nil {
		return nil, err
	}
	s.transform = gt

	// Optional height/width attributes must agree with the array shape.
	if h, ok := attrInt(attrs["height"]); ok && h != shape[1] {
		return nil, &SchemaError{Attr: "height", Reason: fmt.Sprintf("attribute %d does not match array height %d", h, shape[1])}
	}
	if w, ok := attrInt(attrs["width"]); ok && w != shape[2] {
		return nil, &SchemaError{Attr: "width", Reason: fmt.Sprintf("attribute %d does not match array width %d", w, shape[2])}
	}

	return s, nil
}

// locateArray resolves the biomass array for a flat or group store and
// returns it with the merged attribute set and any species-code side table.
func locateArray(path string) (*zarr.Array, map[string]interface{}, []string, error) {
	if arr, err := zarr.OpenArray(path); err == nil {
		return arr, arr.Attrs(), nil, nil
	}
	g, err := zarr.OpenGroup(path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open store %s: neither an array nor a group: %w", path, err)
	}
	members, err := g.Members()
	if err != nil {
		return nil, nil, nil, err
	}

	var arr *zarr.Array
	for _, name := range members {
		m, err := g.Array(name)
		if err != nil {
			continue
		}
		if len(m.Shape()) != 3 {
			continue
		}
		if name == "biomass" {
			arr = m
			break
		}
		if arr == nil {
			arr = m
		}
	}
	if arr == nil {
		return nil, nil, nil, &SchemaError{Attr: "biomass", Reason: "group store contains no 3-D array member"}
	}

	// Group attributes are the base; array attributes override.
	attrs := make(map[string]interface{})
	for k, v := range g.Attrs() {
		attrs[k] = v
	}
	for k, v := range arr.Attrs() {
		attrs[k] = v
	}

	var codes []string
	for _, name := range members {
		if name != "species_codes" {
			continue
		}
		m, err := g.Array(name)
		if err != nil || len(m.Shape()) != 1 {
			break
		}
		vals, err := m.Read([]int{0}, m.Shape())
		if err != nil {
			return nil, nil, nil, fmt.Errorf("read species_codes member: %w", err)
		}
		codes = make([]string, len(vals))
		for i, v := range vals {
			codes[i] = strconv.FormatInt(int64(v), 10)
		}
	}
	return arr, attrs, codes, nil
}

// spatialReference extracts the affine transform, deriving one from bounds
// when only bounds are stored (north-up, origin at the top-left corner).
func spatialReference(attrs map[string]interface{}, height, width int) ([6]float64, error) {
	var gt [6]float64
	if v, ok := attrs["transform"]; ok {
		t, ok := attrFloats(v, 6)
		if !ok {
			return gt, &SchemaError{Attr: "transform", Reason: "want 6 numeric coefficients"}
		}
		copy(gt[:], t)
		return gt, nil
	}
	if v, ok := attrs["bounds"]; ok {
		b, ok := attrFloats(v, 4)
		if !ok {
			return gt, &SchemaError{Attr: "bounds", Reason: "want [xmin ymin xmax ymax]"}
		}
		xmin, ymin, xmax, ymax := b[0], b[1], b[2], b[3]
		if xmax <= xmin || ymax <= ymin {
			return gt, &SchemaError{Attr: "bounds", Reason: "degenerate extent"}
		}
		gt[0] = xmin
		gt[1] = (xmax - xmin) / float64(width)
		gt[3] = ymax
		gt[5] = -(ymax - ymin) / float64(height)
		return gt, nil
	}
	return gt, &SchemaError{Attr: "transform", Reason: "neither transform nor bounds present"}
}

// Bands returns the band-axis length.
func (s *ZarrSource) Bands() int { return s.arr.Shape()[0] }

// Height returns the row count of the full extent.
func (s *ZarrSource) Height() int { return s.arr.Shape()[1] }

// Width returns the column count of the full extent.
func (s *ZarrSource) Width() int { return s.arr.Shape()[2] }

// SpeciesCodes returns the ordered species codes, one per band.
func (s *ZarrSource) SpeciesCodes() []string { return s.codes }

// SpeciesNames returns the species names parallel to SpeciesCodes.
func (s *ZarrSource) SpeciesNames() []string { return s.names }

// CRS returns the coordinate reference system string as stored.
func (s *ZarrSource) CRS() string { return s.crs }

// Transform returns the affine geotransform (GDAL coefficient order).
func (s *ZarrSource) Transform() [6]float64 { return s.transform }

// Slice reads the half-open window [b0,b1)x[y0,y1)x[x0,x1) as a dense
// (band, row, column) array.
func (s *ZarrSource) Slice(b0, b1, y0, y1, x0, x1 int) (*sparse.DenseArray, error) {
	vals, err := s.arr.Read([]int{b0, y0, x0}, []int{b1 - b0, y1 - y0, x1 - x0})
	if err != nil {
		return nil, err
	}
	out := sparse.ZerosDense(b1-b0, y1-y0, x1-x0)
	copy(out.Elements, vals)
	return out, nil
}

func attrStrings(v interface{}) []string {
	switch vv := v.(type) {
	case []string:
		return append([]string(nil), vv...)
	case []interface{}:
		out := make([]string, len(vv))
		for i, e := range vv {
			switch ev := e.(type) {
			case string:
				out[i] = ev
			case float64:
				out[i] = strconv.FormatFloat(ev, 'f', -1, 64)
			default:
				return nil
			}
		}
		return out
	}
	return nil
}

func attrFloats(v interface{}, n int) ([]float64, bool) {
	vv, ok := v.([]interface{})
	if !ok || len(vv) != n {
		if fv, ok := v.([]float64); ok && len(fv) == n {
			return fv, true
		}
		return nil, false
	}
	out := make([]float64, n)
	for i, e := range vv {
		f, ok := e.(float64)
		if !ok {
			return nil, false
		}
		out[i] = f
	}
	return out, true
}

func attrInt(v interface{}) (int, bool) {
	switch vv := v.(type) {
	case float64:
		return int(vv), true
	case int:
		return vv, true
	}
	return 0, false
}
