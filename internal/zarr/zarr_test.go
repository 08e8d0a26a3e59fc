package zarr

import (
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestGridShape(t *testing.T) {
	cases := []struct {
		shape, chunks, want []int
	}{
		{[]int{10, 10}, []int{5, 5}, []int{2, 2}},
		{[]int{10, 10}, []int{3, 4}, []int{4, 3}},
		{[]int{1}, []int{100}, []int{1}},
		{[]int{7, 3, 5}, []int{2, 3, 2}, []int{4, 1, 3}},
	}
	for _, c := range cases {
		got := GridShape(c.shape, c.chunks)
		if !reflect.DeepEqual(got, c.want) {
			t.Errorf("GridShape(%v, %v) = %v, want %v", c.shape, c.chunks, got, c.want)
		}
	}
}

func TestChunkKey(t *testing.T) {
	if got := ChunkKey([]int{1, 4}, "."); got != "1.4" {
		t.Errorf("ChunkKey = %q, want 1.4", got)
	}
	if got := ChunkKey([]int{0, 2, 1}, "/"); got != "0/2/1" {
		t.Errorf("ChunkKey = %q, want 0/2/1", got)
	}
	if got := ChunkKey(nil, "."); got != "0" {
		t.Errorf("ChunkKey(nil) = %q, want 0", got)
	}
}

func TestParseDType(t *testing.T) {
	if _, err := ParseDType("<f4"); err != nil {
		t.Errorf("ParseDType(<f4) unexpected error: %v", err)
	}
	if _, err := ParseDType(">f4"); err == nil {
		t.Error("ParseDType(>f4) should reject big-endian")
	}
	if _, err := ParseDType("<c16"); err == nil {
		t.Error("ParseDType(<c16) should reject complex")
	}
}

func roundTrip(t *testing.T, dtype DType, comp *CompressorConfig) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "arr")
	shape := []int{3, 7, 5}
	chunks := []int{2, 3, 2}
	a, err := Create(dir, shape, chunks, dtype, comp, map[string]interface{}{"units": "Mg/ha"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	data := make([]float64, 3*7*5)
	for i := range data {
		data[i] = float64(i % 100)
	}
	if err := a.Write([]int{0, 0, 0}, shape, data); err != nil {
		t.Fatalf("Write: %v", err)
	}

	b, err := OpenArray(dir)
	if err != nil {
		t.Fatalf("OpenArray: %v", err)
	}
	if !reflect.DeepEqual(b.Shape(), shape) {
		t.Errorf("Shape = %v, want %v", b.Shape(), shape)
	}
	if b.Attrs()["units"] != "Mg/ha" {
		t.Errorf("Attrs[units] = %v, want Mg/ha", b.Attrs()["units"])
	}

	got, err := b.Read([]int{0, 0, 0}, shape)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	for i := range data {
		if got[i] != data[i] {
			t.Fatalf("element %d = %v, want %v (dtype %s)", i, got[i], data[i], dtype)
		}
	}

	// Unaligned window spanning chunk boundaries.
	window, err := b.Read([]int{1, 2, 1}, []int{2, 4, 3})
	if err != nil {
		t.Fatalf("Read window: %v", err)
	}
	i := 0
	for z := 1; z < 3; z++ {
		for y := 2; y < 6; y++ {
			for x := 1; x < 4; x++ {
				want := data[(z*7+y)*5+x]
				if window[i] != want {
					t.Fatalf("window[%d] (z=%d y=%d x=%d) = %v, want %v", i, z, y, x, window[i], want)
				}
				i++
			}
		}
	}
}

func TestRoundTrip(t *testing.T) {
	roundTrip(t, Float32, nil)
	roundTrip(t, Float64, &CompressorConfig{ID: "gzip"})
	roundTrip(t, Int16, &CompressorConfig{ID: "zstd"})
	roundTrip(t, Int32, &CompressorConfig{ID: "zlib"})
	roundTrip(t, Uint8, &CompressorConfig{ID: "zstd"})
}

func TestReadMissingChunkUsesFillValue(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "arr")
	a, err := Create(dir, []int{4, 4}, []int{2, 2}, Float64, nil, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	// Write only the top-left chunk; the rest should read as zero.
	if err := a.Write([]int{0, 0}, []int{2, 2}, []float64{1, 2, 3, 4}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := a.Read([]int{0, 0}, []int{4, 4})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	want := []float64{
		1, 2, 0, 0,
		3, 4, 0, 0,
		0, 0, 0, 0,
		0, 0, 0, 0,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Read = %v, want %v", got, want)
	}
}

func TestPartialChunkWritePreservesNeighbours(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "arr")
	a, err := Create(dir, []int{4, 4}, []int{4, 4}, Float64, nil, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	full := make([]float64, 16)
	for i := range full {
		full[i] = 9
	}
	if err := a.Write([]int{0, 0}, []int{4, 4}, full); err != nil {
		t.Fatalf("Write full: %v", err)
	}
	// Overwrite an interior 2x2 window inside the single chunk.
	if err := a.Write([]int{1, 1}, []int{2, 2}, []float64{1, 2, 3, 4}); err != nil {
		t.Fatalf("Write window: %v", err)
	}
	got, err := a.Read([]int{0, 0}, []int{4, 4})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	want := []float64{
		9, 9, 9, 9,
		9, 1, 2, 9,
		9, 3, 4, 9,
		9, 9, 9, 9,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Read = %v, want %v", got, want)
	}
}

func TestFloat32Precision(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "arr")
	a, err := Create(dir, []int{2}, []int{2}, Float32, nil, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	in := []float64{0.6931471805599453, 1e-8}
	if err := a.Write([]int{0}, []int{2}, in); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := a.Read([]int{0}, []int{2})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	for i := range in {
		if math.Abs(got[i]-in[i]) > 1e-6 {
			t.Errorf("element %d = %v, want about %v", i, got[i], in[i])
		}
	}
}

func TestReadOutOfBounds(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "arr")
	a, err := Create(dir, []int{4, 4}, []int{2, 2}, Float64, nil, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := a.Read([]int{2, 2}, []int{4, 4}); err == nil {
		t.Error("expected out-of-bounds error")
	}
	if _, err := a.Read([]int{0}, []int{4}); err == nil {
		t.Error("expected rank-mismatch error")
	}
}

func TestGroupMembers(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")
	g, err := CreateGroup(dir, map[string]interface{}{"crs": "EPSG:5070"})
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if _, err := g.CreateArray("biomass", []int{2, 4, 4}, []int{1, 2, 2}, Float32, nil, nil); err != nil {
		t.Fatalf("CreateArray: %v", err)
	}
	if _, err := g.CreateArray("species_codes", []int{2}, []int{2}, Int32, nil, nil); err != nil {
		t.Fatalf("CreateArray: %v", err)
	}
	// A stray non-array directory must not be listed.
	if err := os.MkdirAll(filepath.Join(dir, "scratch"), 0o755); err != nil {
		t.Fatal(err)
	}

	g2, err := OpenGroup(dir)
	if err != nil {
		t.Fatalf("OpenGroup: %v", err)
	}
	if g2.Attrs()["crs"] != "EPSG:5070" {
		t.Errorf("Attrs[crs] = %v, want EPSG:5070", g2.Attrs()["crs"])
	}
	members, err := g2.Members()
	if err != nil {
		t.Fatalf("Members: %v", err)
	}
	want := []string{"biomass", "species_codes"}
	if !reflect.DeepEqual(members, want) {
		t.Errorf("Members = %v, want %v", members, want)
	}
}
