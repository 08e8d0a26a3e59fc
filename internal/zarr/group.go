package zarr

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Group is a named container of arrays (a directory with a .zgroup document).
type Group struct {
	path  string
	attrs map[string]interface{}
}

// OpenGroup opens an existing group directory.
func OpenGroup(path string) (*Group, error) {
	raw, err := os.ReadFile(filepath.Join(path, groupMetaFile))
	if err != nil {
		return nil, fmt.Errorf("open group %s: %w", path, err)
	}
	var meta struct {
		ZarrFormat int `json:"zarr_format"`
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("parse %s: %w", groupMetaFile, err)
	}
	if meta.ZarrFormat != 2 {
		return nil, fmt.Errorf("group %s: unsupported zarr_format %d", path, meta.ZarrFormat)
	}
	g := &Group{path: path}
	if raw, err := os.ReadFile(filepath.Join(path, attrsFile)); err == nil {
		if err := json.Unmarshal(raw, &g.attrs); err != nil {
			return nil, fmt.Errorf("group %s: parse %s: %w", path, attrsFile, err)
		}
	}
	return g, nil
}

// CreateGroup initialises a new group directory.
func CreateGroup(path string, attrs map[string]interface{}) (*Group, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, err
	}
	if err := writeJSON(filepath.Join(path, groupMetaFile), map[string]int{"zarr_format": 2}); err != nil {
		return nil, err
	}
	if len(attrs) > 0 {
		if err := writeJSON(filepath.Join(path, attrsFile), attrs); err != nil {
			return nil, err
		}
	}
	return &Group{path: path, attrs: attrs}, nil
}

// Attrs returns the group attributes, or nil if there are none.
func (g *Group) Attrs() map[string]interface{} { return g.attrs }

// Path returns the group's root directory.
func (g *Group) Path() string { return g.path }

// Members lists the names of arrays directly under the group, sorted.
func (g *Group) Members() ([]string, error) {
	entries, err := os.ReadDir(g.path)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(g.path, e.Name(), arrayMetaFile)); err == nil {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Array opens a member array by name.
func (g *Group) Array(name string) (*Array, error) {
	return OpenArray(filepath.Join(g.path, name))
}

// CreateArray creates a member array under the group.
func (g *Group) CreateArray(name string, shape, chunks []int, dtype DType, compressor *CompressorConfig, attrs map[string]interface{}) (*Array, error) {
	return Create(filepath.Join(g.path, name), shape, chunks, dtype, compressor, attrs)
}
