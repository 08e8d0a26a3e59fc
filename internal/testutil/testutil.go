// Package testutil provides shared test utilities and fixtures.
//
// This package centralises common test helpers to reduce code duplication
// across test files: assertion helpers and a builder for small synthetic
// biomass stores.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/mihiarc/bigmap-zarr-sub000/internal/zarr"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// StoreSpec describes a synthetic biomass store for tests. Zero-value fields
// get usable defaults from WriteStore.
type StoreSpec struct {
	Codes  []string
	Names  []string
	Height int
	Width  int
	Chunks []int                // defaults to one chunk per band
	Attrs  map[string]interface{} // overrides the defaults below
	Value  func(b, y, x int) float64
}

// WriteStore materialises spec as a flat zarr array store under dir and
// returns its path. Default attributes carry an EPSG:5070 CRS and a unit
// transform so the result opens cleanly as a source.
func WriteStore(t *testing.T, dir string, spec StoreSpec) string {
	t.Helper()

	bands := len(spec.Codes)
	if spec.Names == nil {
		spec.Names = make([]string, bands)
		for i := range spec.Names {
			spec.Names[i] = "species " + spec.Codes[i]
		}
	}
	if spec.Chunks == nil {
		spec.Chunks = []int{1, spec.Height, spec.Width}
	}

	attrs := map[string]interface{}{
		"species_codes": toAny(spec.Codes),
		"species_names": toAny(spec.Names),
		"crs":           "EPSG:5070",
		"transform":     []interface{}{0.0, 30.0, 0.0, 0.0, 0.0, -30.0},
	}
	for k, v := range spec.Attrs {
		if v == nil {
			delete(attrs, k)
			continue
		}
		attrs[k] = v
	}

	path := filepath.Join(dir, "store.zarr")
	arr, err := zarr.Create(path, []int{bands, spec.Height, spec.Width}, spec.Chunks, zarr.Float32, nil, attrs)
	AssertNoError(t, err)

	data := make([]float64, bands*spec.Height*spec.Width)
	for b := 0; b < bands; b++ {
		for y := 0; y < spec.Height; y++ {
			for x := 0; x < spec.Width; x++ {
				if spec.Value != nil {
					data[(b*spec.Height+y)*spec.Width+x] = spec.Value(b, y, x)
				}
			}
		}
	}
	AssertNoError(t, arr.Write([]int{0, 0, 0}, []int{bands, spec.Height, spec.Width}, data))
	return path
}

func toAny(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
