// Package features evaluates feature flags from a YAML rule file.
package features

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/jwebster45206/farm-engine/pkg/rules"
	"github.com/jwebster45206/farm-engine/pkg/state"
)

//go:embed flags.yaml
var defaultFlags []byte

// Rule decides who sees one flag.
type Rule struct {
	Enabled bool     `yaml:"enabled"`
	Farms   []string `yaml:"farms"` // world ids with access regardless of Enabled
}

// Set is a rules.FeatureGate backed by static rules. Evaluation depends only
// on the world id and the flag, never on time or randomness.
type Set struct {
	Flags map[rules.Flag]Rule `yaml:"flags"`
}

var _ rules.FeatureGate = (*Set)(nil)

// Default returns the embedded rules.
func Default() *Set {
	s, err := Parse(defaultFlags)
	if err != nil {
		panic(fmt.Sprintf("embedded feature flags are invalid: %v", err))
	}
	return s
}

// LoadFile reads rules from path. An empty path returns the embedded rules.
func LoadFile(path string) (*Set, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open feature flags: %w", err)
	}
	defer f.Close()
	return Load(f)
}

func Load(r io.Reader) (*Set, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read feature flags: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Set, error) {
	var s Set
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse feature flags: %w", err)
	}
	if s.Flags == nil {
		s.Flags = map[rules.Flag]Rule{}
	}
	return &s, nil
}

// HasAccess reports whether flag is active for ws.
func (s *Set) HasAccess(ws *state.WorldState, flag rules.Flag) bool {
	if s == nil {
		return false
	}
	rule, ok := s.Flags[flag]
	if !ok {
		return false
	}
	if rule.Enabled {
		return true
	}
	if ws == nil {
		return false
	}
	return slices.Contains(rule.Farms, ws.ID.String())
}
