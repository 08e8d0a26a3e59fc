package metrics

import (
	"strconv"

	"github.com/ctessum/sparse"
)

// SpeciesProportion is the ratio of one band's biomass to the cross-band
// total at each pixel. The numerator band is selected with the band (index)
// or species_code parameter; percentage=true scales the result by 100. A
// tile whose code list cannot resolve the configured species fails
// validation rather than the run.
type SpeciesProportion struct {
	base
	band        int
	code        string
	scale       float64
	excludeBand int
	excludeCode string
}

// NewSpeciesProportion builds a SpeciesProportion from params.
func NewSpeciesProportion(p Params) (Algorithm, error) {
	units := "fraction"
	scale := 1.0
	if p.Bool("percentage", false) {
		units = "percent"
		scale = 100
	}
	return &SpeciesProportion{
		base: base{
			name:        "species_proportion",
			description: "Share of one species in the cross-band biomass total",
			units:       units,
			dtype:       DTypeFloat32,
		},
		band:        p.Int("band", -1),
		code:        p.String("species_code", ""),
		scale:       scale,
		excludeBand: p.Int("exclude_band", -1),
		excludeCode: p.String("exclude_code", ""),
	}, nil
}

// Validate additionally requires the numerator band to resolve against the
// tile's species codes.
func (a *SpeciesProportion) Validate(t *TileData) bool {
	if !a.base.Validate(t) {
		return false
	}
	_, ok := bandIndex(t.Codes, a.band, a.code)
	return ok
}

// Calculate divides the selected band by the cross-band total, yielding 0
// where the total is 0.
func (a *SpeciesProportion) Calculate(t *TileData) (*sparse.DenseArray, error) {
	h, w := t.Height(), t.Width()
	out := sparse.ZerosDense(h, w)
	num, _ := bandIndex(t.Codes, a.band, a.code)
	skip, _ := bandIndex(t.Codes, a.excludeBand, a.excludeCode)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			total := 0.0
			for b := 0; b < t.Bands(); b++ {
				if b == skip {
					continue
				}
				if v := t.At(b, y, x); v > 0 {
					total += v
				}
			}
			if total <= 0 {
				continue
			}
			if v := t.At(num, y, x); v > 0 {
				out.Elements[y*w+x] = v / total * a.scale
			}
		}
	}
	return out, nil
}

// GroupProportion is the share of a named subset of bands in the cross-band
// total, e.g. all oaks as a fraction of stand biomass. Members are selected
// with bands (indices) or species_codes; every member must resolve or the
// tile fails validation.
type GroupProportion struct {
	base
	bands       []int
	codes       []string
	scale       float64
	excludeBand int
	excludeCode string
}

// NewGroupProportion builds a GroupProportion from params.
func NewGroupProportion(p Params) (Algorithm, error) {
	units := "fraction"
	scale := 1.0
	if p.Bool("percentage", false) {
		units = "percent"
		scale = 100
	}
	var idxs []int
	if p.Has("bands") {
		for _, s := range p.Strings("bands") {
			n, err := strconv.Atoi(s)
			if err != nil {
				n = -1
			}
			idxs = append(idxs, n)
		}
	}
	return &GroupProportion{
		base: base{
			name:        "group_proportion",
			description: "Share of a species group in the cross-band biomass total",
			units:       units,
			dtype:       DTypeFloat32,
		},
		bands:       idxs,
		codes:       p.Strings("species_codes"),
		scale:       scale,
		excludeBand: p.Int("exclude_band", -1),
		excludeCode: p.String("exclude_code", ""),
	}, nil
}

// members resolves the configured group to band indices.
func (a *GroupProportion) members(codes []string) ([]int, bool) {
	var out []int
	for _, b := range a.bands {
		if b < 0 || b >= len(codes) {
			return nil, false
		}
		out = append(out, b)
	}
	for _, c := range a.codes {
		i, ok := bandIndex(codes, -1, c)
		if !ok {
			return nil, false
		}
		out = append(out, i)
	}
	return out, len(out) > 0
}

// Validate additionally requires a non-empty, fully resolvable group.
func (a *GroupProportion) Validate(t *TileData) bool {
	if !a.base.Validate(t) {
		return false
	}
	_, ok := a.members(t.Codes)
	return ok
}

// Calculate divides the group sum by the cross-band total, yielding 0 where
// the total is 0.
func (a *GroupProportion) Calculate(t *TileData) (*sparse.DenseArray, error) {
	h, w := t.Height(), t.Width()
	out := sparse.ZerosDense(h, w)
	group, _ := a.members(t.Codes)
	inGroup := make([]bool, t.Bands())
	for _, b := range group {
		inGroup[b] = true
	}
	skip, _ := bandIndex(t.Codes, a.excludeBand, a.excludeCode)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			total, part := 0.0, 0.0
			for b := 0; b < t.Bands(); b++ {
				if b == skip {
					continue
				}
				v := t.At(b, y, x)
				if v <= 0 {
					continue
				}
				total += v
				if inGroup[b] {
					part += v
				}
			}
			if total > 0 {
				out.Elements[y*w+x] = part / total * a.scale
			}
		}
	}
	return out, nil
}
