// Package config loads host-process overrides for per-network node URLs.
// The closed defaults table lives in package identity; this package is the
// optional escape hatch a host process uses to replace those defaults
// without touching caller code, mirroring the teacher's own JSON presets
// plus on-disk override file pattern.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// NodeURLOverrides maps a network id to a replacement node URL.
type NodeURLOverrides map[int64]string

// overrideFile is the on-disk shape of icon.toml: a flat table keyed by
// network id as a string, since TOML has no integer-keyed tables.
type overrideFile struct {
	Networks map[string]string `toml:"networks"`
}

// LoadTOML reads a host-supplied icon.toml override file. A missing file is
// not an error — it simply yields no overrides, since the TOML file is
// optional by design.
func LoadTOML(path string) (NodeURLOverrides, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return NodeURLOverrides{}, nil
	}

	var f overrideFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}

	out := make(NodeURLOverrides, len(f.Networks))
	for key, url := range f.Networks {
		var id int64
		if _, err := fmt.Sscanf(key, "%d", &id); err != nil {
			return nil, fmt.Errorf("config: network key %q is not numeric: %w", key, err)
		}
		out[id] = url
	}
	return out, nil
}

// LoadJSONDefaults reads a JSON defaults table of the same shape as
// identity's built-in table, for host processes that want to ship their own
// baseline instead of overriding piecemeal via TOML.
func LoadJSONDefaults(path string) (NodeURLOverrides, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NodeURLOverrides{}, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var table map[string]string
	if err := json.Unmarshal(raw, &table); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	out := make(NodeURLOverrides, len(table))
	for key, url := range table {
		var id int64
		if _, err := fmt.Sscanf(key, "%d", &id); err != nil {
			return nil, fmt.Errorf("config: network key %q is not numeric: %w", key, err)
		}
		out[id] = url
	}
	return out, nil
}

// Apply overlays overrides on top of a defaults table, returning a new map;
// the inputs are left unmodified.
func Apply(defaults map[int64]string, overrides NodeURLOverrides) map[int64]string {
	merged := make(map[int64]string, len(defaults)+len(overrides))
	for id, url := range defaults {
		merged[id] = url
	}
	for id, url := range overrides {
		merged[id] = url
	}
	return merged
}
