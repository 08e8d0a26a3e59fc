package metrics

import (
	"github.com/ctessum/sparse"
)

// BiomassThreshold emits a binary mask: 1 where the measured value exceeds
// the threshold, 0 elsewhere. By default the cross-band total is tested; a
// band or species_code parameter restricts the test to one band.
type BiomassThreshold struct {
	base
	threshold   float64
	band        int
	code        string
	excludeBand int
	excludeCode string
}

// NewBiomassThreshold builds a BiomassThreshold from params.
func NewBiomassThreshold(p Params) (Algorithm, error) {
	return &BiomassThreshold{
		base: base{
			name:        "biomass_threshold",
			description: "Binary mask of pixels whose biomass exceeds the threshold",
			units:       "mask",
			dtype:       DTypeUint8,
		},
		threshold:   p.Float("threshold", 0),
		band:        p.Int("band", -1),
		code:        p.String("species_code", ""),
		excludeBand: p.Int("exclude_band", -1),
		excludeCode: p.String("exclude_code", ""),
	}, nil
}

// Validate additionally requires a configured single band, if any, to
// resolve against the tile's species codes.
func (a *BiomassThreshold) Validate(t *TileData) bool {
	if !a.base.Validate(t) {
		return false
	}
	if a.band < 0 && a.code == "" {
		return true
	}
	_, ok := bandIndex(t.Codes, a.band, a.code)
	return ok
}

// Calculate writes the mask.
func (a *BiomassThreshold) Calculate(t *TileData) (*sparse.DenseArray, error) {
	h, w := t.Height(), t.Width()
	out := sparse.ZerosDense(h, w)
	single := -1
	if a.band >= 0 || a.code != "" {
		single, _ = bandIndex(t.Codes, a.band, a.code)
	}
	skip, _ := bandIndex(t.Codes, a.excludeBand, a.excludeCode)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := 0.0
			if single >= 0 {
				v = t.At(single, y, x)
			} else {
				for b := 0; b < t.Bands(); b++ {
					if b == skip {
						continue
					}
					v += t.At(b, y, x)
				}
			}
			if v > a.threshold {
				out.Elements[y*w+x] = 1
			}
		}
	}
	return out, nil
}
