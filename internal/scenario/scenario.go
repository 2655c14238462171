// Package scenario provides the built-in practice scenarios.
package scenario

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed presets.yaml
var presetsYAML []byte

var ErrUnknownPreset = errors.New("unknown preset")

type Preset struct {
	Name    string `yaml:"name" json:"name"`
	Role    string `yaml:"role" json:"role"`
	Opening string `yaml:"opening" json:"opening"`
}

type file struct {
	Presets []Preset `yaml:"presets"`
}

// Catalog is an ordered, name-addressable set of presets.
type Catalog struct {
	presets []Preset
}

// Load parses the embedded presets.
func Load() (*Catalog, error) {
	return Parse(presetsYAML)
}

func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse presets: %w", err)
	}
	seen := make(map[string]bool, len(f.Presets))
	for i, p := range f.Presets {
		if p.Name == "" || p.Role == "" || strings.TrimSpace(p.Opening) == "" {
			return nil, fmt.Errorf("preset %d: name, role and opening are required", i)
		}
		key := Slug(p.Name)
		if seen[key] {
			return nil, fmt.Errorf("preset %q defined twice", p.Name)
		}
		seen[key] = true
	}
	return &Catalog{presets: f.Presets}, nil
}

func (c *Catalog) All() []Preset {
	out := make([]Preset, len(c.presets))
	copy(out, c.presets)
	return out
}

// Find matches a preset by display name or slug, case-insensitively.
func (c *Catalog) Find(name string) (Preset, error) {
	key := Slug(name)
	for _, p := range c.presets {
		if Slug(p.Name) == key {
			return p, nil
		}
	}
	return Preset{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
}

// Slug lowercases a name and joins its words with '-', e.g.
// "Customer refund" -> "customer-refund".
func Slug(name string) string {
	fields := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return r == ' ' || r == '-' || r == '_'
	})
	return strings.Join(fields, "-")
}
