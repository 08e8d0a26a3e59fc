// Package config loads the metric run configuration. The schema mirrors the
// structure handed to the processor, so the same JSON drives both one-shot
// CLI runs and embedded use. Optional fields are pointers: omitted fields
// keep engine defaults, so partial configs are safe.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// maxConfigSize caps config reads; a metric list has no business being
// larger than this.
const maxConfigSize = 1 * 1024 * 1024

// MetricRequest selects one metric for a run. Requests are immutable once a
// run starts: the processor copies what it needs up front.
type MetricRequest struct {
	Name         string                 `json:"name"`
	Enabled      *bool                  `json:"enabled,omitempty"`       // nil means enabled
	Parameters   map[string]interface{} `json:"parameters,omitempty"`    // algorithm params
	OutputFormat string                 `json:"output_format,omitempty"` // raster, chunked-array, labeled-multidim
	OutputName   string                 `json:"output_name,omitempty"`   // defaults to Name
}

// IsEnabled reports whether the request participates in the run. Requests
// default to enabled; only an explicit false disables one.
func (m MetricRequest) IsEnabled() bool {
	return m.Enabled == nil || *m.Enabled
}

// RunConfig is the root configuration document.
type RunConfig struct {
	TileHeight *int    `json:"tile_height,omitempty"`
	TileWidth  *int    `json:"tile_width,omitempty"`
	Workers    *int    `json:"workers,omitempty"`
	OutputDir  *string `json:"output_dir,omitempty"`

	Metrics []MetricRequest `json:"metrics"`
}

// LoadRunConfig loads a RunConfig from a JSON file. The file must have a
// .json extension and be under the max config size.
func LoadRunConfig(path string) (*RunConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxConfigSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigSize)
	}

	raw, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg RunConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	for i, m := range cfg.Metrics {
		if m.Name == "" {
			return nil, fmt.Errorf("metrics[%d]: name is required", i)
		}
	}
	return &cfg, nil
}
