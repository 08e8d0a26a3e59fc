package metrics

import (
	"github.com/ctessum/sparse"
)

// TotalBiomass sums biomass across bands at each pixel. Stores that carry a
// precomputed aggregate "total" band can exclude it with the exclude_band
// (index) or exclude_code (species code) parameter so it is not double
// counted.
type TotalBiomass struct {
	base
	excludeBand int
	excludeCode string
}

// NewTotalBiomass builds a TotalBiomass from params.
func NewTotalBiomass(p Params) (Algorithm, error) {
	return &TotalBiomass{
		base: base{
			name:        "total_biomass",
			description: "Cross-band sum of biomass at each pixel",
			units:       "Mg/ha",
			dtype:       DTypeFloat32,
		},
		excludeBand: p.Int("exclude_band", -1),
		excludeCode: p.String("exclude_code", ""),
	}, nil
}

// Calculate sums every band, skipping the configured exclusion if any.
func (a *TotalBiomass) Calculate(t *TileData) (*sparse.DenseArray, error) {
	h, w := t.Height(), t.Width()
	out := sparse.ZerosDense(h, w)
	skip, _ := bandIndex(t.Codes, a.excludeBand, a.excludeCode)
	for b := 0; b < t.Bands(); b++ {
		if b == skip {
			continue
		}
		plane := t.Data.Elements[b*h*w : (b+1)*h*w]
		for i, v := range plane {
			out.Elements[i] += v
		}
	}
	return out, nil
}
