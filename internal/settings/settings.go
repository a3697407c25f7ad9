// Package settings loads per-repository canopy configuration from
// .canopy/settings.yaml.
//
// The settings file lets a repository extend the built-in validation
// defaults: extra required paths and extra placeholder markers. All methods
// are safe on a nil *Settings, so callers can ignore absence entirely.
package settings

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Settings holds canopy configuration from .canopy/settings.yaml.
type Settings struct {
	Validation Validation `yaml:"validation"`
}

// Validation extends the built-in validation defaults.
type Validation struct {
	// RequiredPaths are checked in addition to the defaults.
	// Example: ["branches[].nodes[].imo.input"]
	RequiredPaths []string `yaml:"required_paths"`

	// Placeholders are extra substrings that mark a field as unfilled.
	// Example: ["TBD", "FIXME"]
	Placeholders []string `yaml:"placeholders"`
}

// Load reads .canopy/settings.yaml relative to root.
// Returns nil (not an error) if the file does not exist.
func Load(root string) (*Settings, error) {
	path := filepath.Join(root, ".canopy", "settings.yaml")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", path, err)
	}
	return &s, nil
}

// RequiredPaths returns the extra required paths, nil-receiver safe.
func (s *Settings) RequiredPaths() []string {
	if s == nil {
		return nil
	}
	return s.Validation.RequiredPaths
}

// Placeholders returns the extra placeholder markers, nil-receiver safe.
func (s *Settings) Placeholders() []string {
	if s == nil {
		return nil
	}
	return s.Validation.Placeholders
}
