package metrics

import (
	"github.com/ctessum/sparse"
)

// SpeciesRichness counts, per pixel, the bands whose biomass exceeds the
// presence threshold. Presence is strictly greater-than: a threshold of 0
// (the default) means any positive biomass counts, but an exact 0 does not.
type SpeciesRichness struct {
	base
	threshold   float64
	excludeBand int
	excludeCode string
}

// NewSpeciesRichness builds a SpeciesRichness from params.
func NewSpeciesRichness(p Params) (Algorithm, error) {
	return &SpeciesRichness{
		base: base{
			name:        "species_richness",
			description: "Count of species with biomass above the presence threshold",
			units:       "species",
			dtype:       DTypeInt16,
		},
		threshold:   p.Float("threshold", 0),
		excludeBand: p.Int("exclude_band", -1),
		excludeCode: p.String("exclude_code", ""),
	}, nil
}

// Calculate tallies presences per pixel.
func (a *SpeciesRichness) Calculate(t *TileData) (*sparse.DenseArray, error) {
	h, w := t.Height(), t.Width()
	out := sparse.ZerosDense(h, w)
	skip, _ := bandIndex(t.Codes, a.excludeBand, a.excludeCode)
	for b := 0; b < t.Bands(); b++ {
		if b == skip {
			continue
		}
		plane := t.Data.Elements[b*h*w : (b+1)*h*w]
		for i, v := range plane {
			if v > a.threshold {
				out.Elements[i]++
			}
		}
	}
	return out, nil
}
