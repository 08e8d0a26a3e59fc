package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadRunConfig(t *testing.T) {
	path := writeConfig(t, "run.json", `{
		"tile_height": 256,
		"metrics": [
			{"name": "species_richness", "parameters": {"threshold": 2}},
			{"name": "shannon_diversity", "enabled": false, "output_format": "labeled-multidim"},
			{"name": "total_biomass", "output_name": "agb_total"}
		]
	}`)
	cfg, err := LoadRunConfig(path)
	if err != nil {
		t.Fatalf("LoadRunConfig: %v", err)
	}
	if cfg.TileHeight == nil || *cfg.TileHeight != 256 {
		t.Errorf("TileHeight = %v, want 256", cfg.TileHeight)
	}
	if cfg.TileWidth != nil {
		t.Errorf("TileWidth = %v, want nil (engine default)", cfg.TileWidth)
	}
	if len(cfg.Metrics) != 3 {
		t.Fatalf("len(Metrics) = %d, want 3", len(cfg.Metrics))
	}
	if !cfg.Metrics[0].IsEnabled() {
		t.Error("omitted enabled should mean enabled")
	}
	if cfg.Metrics[1].IsEnabled() {
		t.Error("explicit enabled:false should disable the request")
	}
	if got := cfg.Metrics[0].Parameters["threshold"]; got != 2.0 {
		t.Errorf("threshold param = %v, want 2", got)
	}
	if cfg.Metrics[2].OutputName != "agb_total" {
		t.Errorf("OutputName = %q, want agb_total", cfg.Metrics[2].OutputName)
	}
}

func TestLoadRunConfigRejectsWrongExtension(t *testing.T) {
	path := writeConfig(t, "run.yaml", `{}`)
	if _, err := LoadRunConfig(path); err == nil || !strings.Contains(err.Error(), ".json") {
		t.Errorf("error = %v, want extension complaint", err)
	}
}

func TestLoadRunConfigRejectsOversizedFile(t *testing.T) {
	body := `{"metrics": []}` + strings.Repeat(" ", maxConfigSize)
	path := writeConfig(t, "run.json", body)
	if _, err := LoadRunConfig(path); err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("error = %v, want size complaint", err)
	}
}

func TestLoadRunConfigRequiresMetricNames(t *testing.T) {
	path := writeConfig(t, "run.json", `{"metrics": [{"output_format": "raster"}]}`)
	if _, err := LoadRunConfig(path); err == nil || !strings.Contains(err.Error(), "name is required") {
		t.Errorf("error = %v, want name complaint", err)
	}
}

func TestLoadRunConfigMissingFile(t *testing.T) {
	if _, err := LoadRunConfig(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
