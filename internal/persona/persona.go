// Package persona loads and validates persona definition files: the
// trait vector, the affect baseline, and the initial psychological
// state a run starts from.
package persona

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/persona-drift/internal/state"
)

// #region persona
// InitialState is the starting point of the mutable layers.
type InitialState struct {
	Affect  float64 `yaml:"affect" json:"affect"`
	Meaning float64 `yaml:"meaning" json:"meaning"`
	Strain  float64 `yaml:"strain" json:"strain"`
}

// Persona is a parsed persona definition.
type Persona struct {
	Name           string            `yaml:"name" json:"name"`
	Traits         state.TraitVector `yaml:"traits" json:"traits"`
	AffectBaseline float64           `yaml:"affect_baseline" json:"affect_baseline"`
	Initial        InitialState      `yaml:"initial" json:"initial"`
}
// #endregion persona

// #region load
// Load reads and validates a persona definition from a YAML file.
func Load(path string) (*Persona, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read persona: %w", err)
	}

	var p Persona
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("parse persona: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("persona %q: %w", p.Name, err)
	}
	return &p, nil
}

// Validate checks that the definition can seed a model.
func (p *Persona) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(p.Traits.Descriptors()) == 0 {
		return fmt.Errorf("at least one trait descriptor is required")
	}
	for _, v := range []struct {
		name  string
		value float64
	}{
		{"affect_baseline", p.AffectBaseline},
		{"initial.affect", p.Initial.Affect},
		{"initial.meaning", p.Initial.Meaning},
		{"initial.strain", p.Initial.Strain},
	} {
		if v.value < 0 || v.value > 10 {
			return fmt.Errorf("%s=%.2f outside [0, 10]", v.name, v.value)
		}
	}
	return nil
}

// NewModel seeds a state model from this persona.
func (p *Persona) NewModel(config state.ModelConfig) *state.Model {
	return state.NewModel(
		p.Traits,
		state.MidState{Meaning: p.Initial.Meaning, Strain: p.Initial.Strain},
		state.ShortState{Affect: p.Initial.Affect},
		p.AffectBaseline,
		config,
	)
}
// #endregion load
