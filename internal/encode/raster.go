package encode

import (
	"fmt"
	"strings"
	"sync"

	"github.com/airbusgeo/godal"
	"github.com/ctessum/sparse"

	"github.com/mihiarc/bigmap-zarr-sub000/internal/metrics"
	"github.com/mihiarc/bigmap-zarr-sub000/internal/version"
)

var registerDrivers sync.Once

// writeRaster encodes the surface as a single-band GeoTIFF with the metric's
// declared dtype, the source georeferencing and the processor tag.
func writeRaster(path string, v Variable, grid *sparse.DenseArray, meta SpatialMeta) (err error) {
	registerDrivers.Do(godal.RegisterAll)

	ds, err := godal.Create(godal.GTiff, path, 1, gdalType(v.DType), meta.Width, meta.Height,
		godal.CreationOption("COMPRESS=DEFLATE", "TILED=YES"))
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := ds.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := ds.SetGeoTransform(meta.Transform); err != nil {
		return err
	}
	sr, err := spatialRef(meta.CRS)
	if err != nil {
		return err
	}
	defer sr.Close()
	if err := ds.SetSpatialRef(sr); err != nil {
		return err
	}
	if err := ds.SetMetadata("TIFFTAG_SOFTWARE", version.ProcessorTag()); err != nil {
		return err
	}

	band := ds.Bands()[0]
	if v.Description != "" {
		if err := band.SetMetadata("DESCRIPTION", v.Description); err != nil {
			return err
		}
	}
	if err := band.Write(0, 0, grid.Elements, meta.Width, meta.Height); err != nil {
		return fmt.Errorf("write band: %w", err)
	}
	return nil
}

// spatialRef builds a SpatialRef from the CRS strings the stores carry:
// EPSG codes, proj4 strings or WKT.
func spatialRef(crs string) (*godal.SpatialRef, error) {
	trimmed := strings.TrimSpace(crs)
	switch {
	case strings.HasPrefix(strings.ToUpper(trimmed), "EPSG:"):
		var code int
		if _, err := fmt.Sscanf(trimmed[5:], "%d", &code); err != nil {
			return nil, fmt.Errorf("parse CRS %q: %w", crs, err)
		}
		return godal.NewSpatialRefFromEPSG(code)
	case strings.HasPrefix(trimmed, "+"):
		return godal.NewSpatialRefFromProj4(trimmed)
	default:
		return godal.NewSpatialRefFromWKT(trimmed)
	}
}

func gdalType(d metrics.DType) godal.DataType {
	switch d {
	case metrics.DTypeUint8:
		return godal.Byte
	case metrics.DTypeInt16:
		return godal.Int16
	case metrics.DTypeInt32:
		return godal.Int32
	case metrics.DTypeFloat64:
		return godal.Float64
	default:
		return godal.Float32
	}
}
