package encode

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"

	"github.com/mihiarc/bigmap-zarr-sub000/internal/metrics"
	"github.com/mihiarc/bigmap-zarr-sub000/internal/zarr"
)

func TestParseFormat(t *testing.T) {
	cases := []struct {
		in   string
		want Format
		ok   bool
	}{
		{"raster", Raster, true},
		{"GeoTIFF", Raster, true},
		{"tif", Raster, true},
		{"chunked-array", ChunkedArray, true},
		{"zarr", ChunkedArray, true},
		{"labeled-multidim", LabeledMultidim, true},
		{"NetCDF", LabeledMultidim, true},
		{"nc", LabeledMultidim, true},
		{"hdf5", Raster, false},
		{"", Raster, false},
	}
	for _, c := range cases {
		got, ok := ParseFormat(c.in)
		if got != c.want || ok != c.ok {
			t.Errorf("ParseFormat(%q) = %v, %v; want %v, %v", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestFormatExt(t *testing.T) {
	if got := Raster.Ext(); got != ".tif" {
		t.Errorf("Raster.Ext() = %q, want .tif", got)
	}
	if got := ChunkedArray.Ext(); got != ".zarr" {
		t.Errorf("ChunkedArray.Ext() = %q, want .zarr", got)
	}
	if got := LabeledMultidim.Ext(); got != ".nc" {
		t.Errorf("LabeledMultidim.Ext() = %q, want .nc", got)
	}
}

func testMeta(h, w int) SpatialMeta {
	return SpatialMeta{
		CRS:       "EPSG:5070",
		Transform: [6]float64{1000, 30, 0, 2000, 0, -30},
		Height:    h,
		Width:     w,
	}
}

func testGrid(h, w int) *sparse.DenseArray {
	grid := sparse.ZerosDense(h, w)
	for i := range grid.Elements {
		grid.Elements[i] = float64(i)
	}
	return grid
}

func TestSerializeChunkedArray(t *testing.T) {
	dir := t.TempDir()
	s := &Serializer{Dir: dir}
	v := Variable{Name: "total_biomass", DType: metrics.DTypeFloat32, Units: "Mg/ha", Description: "total live biomass"}
	grid := testGrid(5, 7)

	path, fellBack, err := s.Serialize(v, grid, testMeta(5, 7), ChunkedArray)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if fellBack {
		t.Fatal("Serialize reported a fallback on success")
	}
	if want := filepath.Join(dir, "total_biomass.zarr"); path != want {
		t.Fatalf("artifact path = %q, want %q", path, want)
	}

	arr, err := zarr.OpenArray(path)
	if err != nil {
		t.Fatalf("OpenArray: %v", err)
	}
	if got, want := arr.Shape(), []int{5, 7}; got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("shape = %v, want %v", got, want)
	}
	data, err := arr.Read([]int{0, 0}, []int{5, 7})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	for i, e := range grid.Elements {
		if data[i] != e {
			t.Fatalf("element %d = %v, want %v", i, data[i], e)
		}
	}
	attrs := arr.Attrs()
	if got := attrs["units"]; got != "Mg/ha" {
		t.Errorf("units attr = %v, want Mg/ha", got)
	}
	if got := attrs["crs"]; got != "EPSG:5070" {
		t.Errorf("crs attr = %v, want EPSG:5070", got)
	}
}

func TestSerializeChunkedArrayReplacesStaleStore(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, "richness.zarr")
	if err := os.MkdirAll(stale, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(stale, "9.9"), []byte("stale"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := &Serializer{Dir: dir}
	v := Variable{Name: "richness", DType: metrics.DTypeInt16}
	if _, _, err := s.Serialize(v, testGrid(3, 3), testMeta(3, 3), ChunkedArray); err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if _, err := os.Stat(filepath.Join(stale, "9.9")); !os.IsNotExist(err) {
		t.Error("stale chunk survived re-serialization")
	}
}

func TestSerializeLabeledMultidim(t *testing.T) {
	dir := t.TempDir()
	s := &Serializer{Dir: dir}
	v := Variable{Name: "shannon", DType: metrics.DTypeFloat32, Units: "nats"}
	grid := testGrid(4, 6)
	meta := testMeta(4, 6)

	path, _, err := s.Serialize(v, grid, meta, LabeledMultidim)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	nc, err := cdf.Open(f)
	if err != nil {
		t.Fatalf("cdf.Open: %v", err)
	}
	if got := nc.Header.Lengths("shannon"); got[0] != 4 || got[1] != 6 {
		t.Fatalf("variable lengths = %v, want [4 6]", got)
	}

	data := make([]float32, 4*6)
	if _, err := nc.Reader("shannon", nil, nil).Read(data); err != nil {
		t.Fatalf("read variable: %v", err)
	}
	for i, e := range grid.Elements {
		if math.Abs(float64(data[i])-e) > 1e-6 {
			t.Fatalf("element %d = %v, want %v", i, data[i], e)
		}
	}

	xs := make([]float64, 6)
	if _, err := nc.Reader("x", nil, nil).Read(xs); err != nil {
		t.Fatalf("read x: %v", err)
	}
	if want := meta.Transform[0] + 0.5*meta.Transform[1]; xs[0] != want {
		t.Errorf("x[0] = %v, want pixel center %v", xs[0], want)
	}
	ys := make([]float64, 4)
	if _, err := nc.Reader("y", nil, nil).Read(ys); err != nil {
		t.Fatalf("read y: %v", err)
	}
	if want := meta.Transform[3] + 1.5*meta.Transform[5]; ys[1] != want {
		t.Errorf("y[1] = %v, want pixel center %v", ys[1], want)
	}
	if got := nc.Header.GetAttribute("shannon", "units"); got != "nats" {
		t.Errorf("units attr = %v, want nats", got)
	}
}

func TestSerializeLabeledMultidimIntegerSurface(t *testing.T) {
	dir := t.TempDir()
	s := &Serializer{Dir: dir}
	v := Variable{Name: "dominant", DType: metrics.DTypeInt16}
	grid := sparse.ZerosDense(2, 2)
	grid.Elements = []float64{3, -1, 0, 2}

	path, _, err := s.Serialize(v, grid, testMeta(2, 2), LabeledMultidim)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	nc, err := cdf.Open(f)
	if err != nil {
		t.Fatalf("cdf.Open: %v", err)
	}
	data := make([]int32, 4)
	if _, err := nc.Reader("dominant", nil, nil).Read(data); err != nil {
		t.Fatalf("read variable: %v", err)
	}
	want := []int32{3, -1, 0, 2}
	for i := range want {
		if data[i] != want[i] {
			t.Fatalf("element %d = %d, want %d", i, data[i], want[i])
		}
	}
}

func TestSerializeShapeMismatch(t *testing.T) {
	s := &Serializer{Dir: t.TempDir()}
	v := Variable{Name: "bad", DType: metrics.DTypeFloat32}
	_, _, err := s.Serialize(v, testGrid(2, 2), testMeta(3, 3), ChunkedArray)
	if err == nil {
		t.Fatal("expected shape mismatch error")
	}
	var serr *SerializationError
	if !errors.As(err, &serr) {
		t.Fatalf("error type = %T, want *SerializationError", err)
	}
	if serr.Metric != "bad" {
		t.Errorf("error metric = %q, want bad", serr.Metric)
	}
}

func TestArtifactPathRejectsEscapes(t *testing.T) {
	s := &Serializer{Dir: t.TempDir()}
	for _, name := range []string{"..", ".", "   "} {
		if _, err := s.artifactPath(name, ChunkedArray); err == nil {
			t.Errorf("artifactPath(%q) accepted an invalid name", name)
		}
	}
	// Path components are stripped down to the base name.
	p, err := s.artifactPath("../../etc/passwd", ChunkedArray)
	if err != nil {
		t.Fatalf("artifactPath: %v", err)
	}
	if !strings.HasPrefix(p, s.Dir) || filepath.Base(p) != "passwd.zarr" {
		t.Errorf("artifactPath returned %q, want passwd.zarr under %q", p, s.Dir)
	}
}
