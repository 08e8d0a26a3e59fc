// Package encode serializes full-extent metric surfaces into their output
// encodings. The three formats form a closed union with one encoder per
// variant; raster is the documented fallback for anything unrecognized or
// unencodable.
package encode

import "strings"

// Format selects an output encoding.
type Format int

// The supported encodings.
const (
	Raster          Format = iota // single-band GeoTIFF
	ChunkedArray                  // zarr directory store
	LabeledMultidim               // NetCDF with coordinate variables
)

// ParseFormat maps a configuration string to a Format. It accepts the
// canonical names plus common aliases; ok is false for anything else, and
// callers are expected to fall back to Raster with a warning rather than
// fail.
func ParseFormat(s string) (f Format, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "raster", "geotiff", "gtiff", "tif":
		return Raster, true
	case "chunked-array", "zarr":
		return ChunkedArray, true
	case "labeled-multidim", "netcdf", "nc":
		return LabeledMultidim, true
	}
	return Raster, false
}

func (f Format) String() string {
	switch f {
	case ChunkedArray:
		return "chunked-array"
	case LabeledMultidim:
		return "labeled-multidim"
	}
	return "raster"
}

// Ext returns the artifact filename extension for the format.
func (f Format) Ext() string {
	switch f {
	case ChunkedArray:
		return ".zarr"
	case LabeledMultidim:
		return ".nc"
	}
	return ".tif"
}
