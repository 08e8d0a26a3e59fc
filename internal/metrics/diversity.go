package metrics

import (
	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// pixelProportions fills scratch with the per-band biomass proportions at
// tile pixel (y, x), treating non-positive values as absent. It returns
// false when the cross-band total is zero; by convention every proportion
// and diversity metric is 0 at such pixels, never NaN.
func pixelProportions(t *TileData, y, x, skip int, scratch []float64) bool {
	for b := 0; b < t.Bands(); b++ {
		v := t.At(b, y, x)
		if v < 0 || b == skip {
			v = 0
		}
		scratch[b] = v
	}
	total := floats.Sum(scratch)
	if total <= 0 {
		return false
	}
	floats.Scale(1/total, scratch)
	return true
}

// ShannonDiversity computes the Shannon index H' = -sum(p_i ln p_i) over the
// per-pixel biomass proportions. A pixel with a single present species
// scores 0; two equal species score ln 2.
type ShannonDiversity struct {
	base
	excludeBand int
	excludeCode string
}

// NewShannonDiversity builds a ShannonDiversity from params.
func NewShannonDiversity(p Params) (Algorithm, error) {
	return &ShannonDiversity{
		base: base{
			name:        "shannon_diversity",
			description: "Shannon diversity index over per-pixel biomass proportions",
			units:       "nats",
			dtype:       DTypeFloat32,
		},
		excludeBand: p.Int("exclude_band", -1),
		excludeCode: p.String("exclude_code", ""),
	}, nil
}

// Calculate evaluates the index at every pixel.
func (a *ShannonDiversity) Calculate(t *TileData) (*sparse.DenseArray, error) {
	h, w := t.Height(), t.Width()
	out := sparse.ZerosDense(h, w)
	skip, _ := bandIndex(t.Codes, a.excludeBand, a.excludeCode)
	scratch := make([]float64, t.Bands())
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if pixelProportions(t, y, x, skip, scratch) {
				out.Elements[y*w+x] = stat.Entropy(scratch)
			}
		}
	}
	return out, nil
}

// SimpsonDiversity computes the Gini-Simpson index D = 1 - sum(p_i^2).
type SimpsonDiversity struct {
	base
	excludeBand int
	excludeCode string
}

// NewSimpsonDiversity builds a SimpsonDiversity from params.
func NewSimpsonDiversity(p Params) (Algorithm, error) {
	return &SimpsonDiversity{
		base: base{
			name:        "simpson_diversity",
			description: "Gini-Simpson diversity index over per-pixel biomass proportions",
			units:       "index",
			dtype:       DTypeFloat32,
		},
		excludeBand: p.Int("exclude_band", -1),
		excludeCode: p.String("exclude_code", ""),
	}, nil
}

// Calculate evaluates the index at every pixel.
func (a *SimpsonDiversity) Calculate(t *TileData) (*sparse.DenseArray, error) {
	h, w := t.Height(), t.Width()
	out := sparse.ZerosDense(h, w)
	skip, _ := bandIndex(t.Codes, a.excludeBand, a.excludeCode)
	scratch := make([]float64, t.Bands())
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if pixelProportions(t, y, x, skip, scratch) {
				out.Elements[y*w+x] = 1 - floats.Dot(scratch, scratch)
			}
		}
	}
	return out, nil
}
