// Package seed holds the bootstrap achievement catalog.
package seed

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"storyquestAPI/internal/rules"
)

//go:embed achievements.yaml
var achievementsYAML []byte

type Achievement struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Icon        string `yaml:"icon"`
	Points      int    `yaml:"points"`
}

type file struct {
	Achievements []Achievement `yaml:"achievements"`
}

// Load parses the embedded catalog.
func Load() ([]Achievement, error) {
	return Parse(achievementsYAML)
}

// Parse decodes a catalog and checks that names are unique and that every
// rule threshold has an entry.
func Parse(data []byte) ([]Achievement, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse achievement catalog: %w", err)
	}

	seen := make(map[string]bool, len(f.Achievements))
	for _, a := range f.Achievements {
		if a.Name == "" {
			return nil, fmt.Errorf("achievement catalog: entry without a name")
		}
		if a.Points < 0 {
			return nil, fmt.Errorf("achievement catalog: %q has negative points", a.Name)
		}
		if seen[a.Name] {
			return nil, fmt.Errorf("achievement catalog: duplicate name %q", a.Name)
		}
		seen[a.Name] = true
	}
	for _, name := range rules.Names() {
		if !seen[name] {
			return nil, fmt.Errorf("achievement catalog: rule references missing achievement %q", name)
		}
	}
	return f.Achievements, nil
}
