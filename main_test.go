package main

import "testing"

func TestShortcutRequests(t *testing.T) {
	reqs := shortcutRequests(" total_biomass, species_richness ,,shannon_diversity", "chunked-array")
	if len(reqs) != 3 {
		t.Fatalf("got %d requests, want 3", len(reqs))
	}
	want := []string{"total_biomass", "species_richness", "shannon_diversity"}
	for i, r := range reqs {
		if r.Name != want[i] {
			t.Errorf("request %d name = %q, want %q", i, r.Name, want[i])
		}
		if r.OutputFormat != "chunked-array" {
			t.Errorf("request %d format = %q, want chunked-array", i, r.OutputFormat)
		}
	}
}

func TestShortcutRequestsEmpty(t *testing.T) {
	if reqs := shortcutRequests(" , ", ""); reqs != nil {
		t.Errorf("got %v, want nil", reqs)
	}
}
