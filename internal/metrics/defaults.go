package metrics

// DefaultRegistry returns a fresh registry with the standard forest metric
// set registered. Each call builds an independent registry, so callers can
// extend or replace entries without affecting other runs.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.mustRegister("total_biomass", NewTotalBiomass)
	r.mustRegister("species_richness", NewSpeciesRichness)
	r.mustRegister("shannon_diversity", NewShannonDiversity)
	r.mustRegister("simpson_diversity", NewSimpsonDiversity)
	r.mustRegister("dominant_species", NewDominantSpecies)
	r.mustRegister("species_proportion", NewSpeciesProportion)
	r.mustRegister("group_proportion", NewGroupProportion)
	r.mustRegister("biomass_threshold", NewBiomassThreshold)
	return r
}
