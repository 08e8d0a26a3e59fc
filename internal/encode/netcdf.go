package encode

import (
	"fmt"
	"os"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"

	"github.com/mihiarc/bigmap-zarr-sub000/internal/metrics"
	"github.com/mihiarc/bigmap-zarr-sub000/internal/version"
)

// writeLabeledMultidim encodes the surface as a NetCDF file with y/x
// coordinate variables at pixel centers.
func writeLabeledMultidim(path string, v Variable, grid *sparse.DenseArray, meta SpatialMeta) error {
	h := cdf.NewHeader([]string{"y", "x"}, []int{meta.Height, meta.Width})
	h.AddAttribute("", "crs", meta.CRS)
	h.AddAttribute("", "software", version.ProcessorTag())

	h.AddVariable("y", []string{"y"}, []float64{0})
	h.AddAttribute("y", "units", "m")
	h.AddVariable("x", []string{"x"}, []float64{0})
	h.AddAttribute("x", "units", "m")

	h.AddVariable(v.Name, []string{"y", "x"}, ncValueTemplate(v.DType))
	if v.Units != "" {
		h.AddAttribute(v.Name, "units", v.Units)
	}
	if v.Description != "" {
		h.AddAttribute(v.Name, "description", v.Description)
	}
	h.Define()

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	nc, err := cdf.Create(f, h)
	if err != nil {
		return err
	}
	if err := writeNCVar(nc, "y", axisCenters(meta.Height, meta.Transform[3], meta.Transform[5])); err != nil {
		return err
	}
	if err := writeNCVar(nc, "x", axisCenters(meta.Width, meta.Transform[0], meta.Transform[1])); err != nil {
		return err
	}
	if err := writeNCVar(nc, v.Name, ncValues(v.DType, grid.Elements)); err != nil {
		return err
	}
	return cdf.UpdateNumRecs(f)
}

func writeNCVar(f *cdf.File, name string, data interface{}) error {
	end := f.Header.Lengths(name)
	start := make([]int, len(end))
	w := f.Writer(name, start, end)
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing variable %s: %w", name, err)
	}
	return nil
}

// ncValueTemplate picks the element type used to declare the data variable.
// Integer surfaces are stored as 32-bit ints, everything else as floats.
func ncValueTemplate(d metrics.DType) interface{} {
	switch d {
	case metrics.DTypeUint8, metrics.DTypeInt16, metrics.DTypeInt32:
		return []int32{0}
	case metrics.DTypeFloat64:
		return []float64{0}
	default:
		return []float32{0}
	}
}

func ncValues(d metrics.DType, elems []float64) interface{} {
	switch d {
	case metrics.DTypeUint8, metrics.DTypeInt16, metrics.DTypeInt32:
		out := make([]int32, len(elems))
		for i, e := range elems {
			out[i] = int32(e)
		}
		return out
	case metrics.DTypeFloat64:
		out := make([]float64, len(elems))
		copy(out, elems)
		return out
	default:
		out := make([]float32, len(elems))
		for i, e := range elems {
			out[i] = float32(e)
		}
		return out
	}
}

// axisCenters returns coordinate values at cell centers along one axis.
func axisCenters(n int, origin, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = origin + (float64(i)+0.5)*step
	}
	return out
}
