package metrics

import (
	"github.com/ctessum/sparse"
)

// DominantNoData is written where no band carries positive biomass, so the
// dominant-species surface can distinguish bare pixels from band index 0.
const DominantNoData = -1

// DominantSpecies records, per pixel, the index of the band with the highest
// biomass. Ties resolve to the lowest band index for reproducibility.
type DominantSpecies struct {
	base
	excludeBand int
	excludeCode string
}

// NewDominantSpecies builds a DominantSpecies from params.
func NewDominantSpecies(p Params) (Algorithm, error) {
	return &DominantSpecies{
		base: base{
			name:        "dominant_species",
			description: "Band index of the species with the highest biomass per pixel",
			units:       "band index",
			dtype:       DTypeInt16,
		},
		excludeBand: p.Int("exclude_band", -1),
		excludeCode: p.String("exclude_code", ""),
	}, nil
}

// Calculate writes the arg-max band index, or DominantNoData where every
// band is zero or below.
func (a *DominantSpecies) Calculate(t *TileData) (*sparse.DenseArray, error) {
	h, w := t.Height(), t.Width()
	out := sparse.ZerosDense(h, w)
	skip, _ := bandIndex(t.Codes, a.excludeBand, a.excludeCode)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			best := DominantNoData
			bestVal := 0.0
			for b := 0; b < t.Bands(); b++ {
				if b == skip {
					continue
				}
				if v := t.At(b, y, x); v > bestVal {
					best, bestVal = b, v
				}
			}
			out.Elements[y*w+x] = float64(best)
		}
	}
	return out, nil
}
