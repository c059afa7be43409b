package state

import (
	"github.com/google/uuid"
)

// #region model
// Model owns the canonical (L, M, S) state for one persona run. It is not
// safe for concurrent use: the run loop mutates state exactly once per
// event, strictly in sequence.
type Model struct {
	traits   TraitVector
	mid      MidState
	short    ShortState
	baseline float64 // persona-specific affect resting point
	version  string
	config   ModelConfig
}

// NewModel creates a model from the persona's trait vector, initial M/S
// values, and affect baseline. Initial values are clamped to range.
func NewModel(traits TraitVector, mid MidState, short ShortState, baseline float64, config ModelConfig) *Model {
	m := &Model{
		traits:   traits,
		baseline: clamp(baseline, config.ValueMin, config.ValueMax),
		version:  uuid.New().String(),
		config:   config,
	}
	m.mid = MidState{
		Meaning: clamp(mid.Meaning, config.ValueMin, config.ValueMax),
		Strain:  clamp(mid.Strain, config.ValueMin, config.ValueMax),
	}
	m.short = ShortState{
		Affect: clamp(short.Affect, config.ValueMin, config.ValueMax),
	}
	return m
}
// #endregion model

// #region snapshot
// Snapshot returns the current immutable state. No side effect: repeated
// calls without an intervening Apply or Decay return equal values.
func (m *Model) Snapshot() Snapshot {
	return Snapshot{
		VersionID: m.version,
		Traits:    m.traits,
		Mid:       m.mid,
		Short:     m.short,
	}
}
// #endregion snapshot

// #region apply
// Apply validates the delta, adds it to M and S, clamps each component
// independently to [ValueMin, ValueMax], and makes the result canonical.
// A delta component outside [-DeltaBound, +DeltaBound] rejects the whole
// delta with *ValidationError and leaves state untouched.
func (m *Model) Apply(d Delta) (Snapshot, error) {
	b := m.config.DeltaBound
	if d.Meaning < -b || d.Meaning > b {
		return Snapshot{}, &ValidationError{Field: "meaning", Value: d.Meaning, Bound: b}
	}
	if d.Strain < -b || d.Strain > b {
		return Snapshot{}, &ValidationError{Field: "strain", Value: d.Strain, Bound: b}
	}
	if d.Affect < -b || d.Affect > b {
		return Snapshot{}, &ValidationError{Field: "affect", Value: d.Affect, Bound: b}
	}

	m.mid.Meaning = clamp(m.mid.Meaning+d.Meaning, m.config.ValueMin, m.config.ValueMax)
	m.mid.Strain = clamp(m.mid.Strain+d.Strain, m.config.ValueMin, m.config.ValueMax)
	m.short.Affect = clamp(m.short.Affect+d.Affect, m.config.ValueMin, m.config.ValueMax)
	m.version = uuid.New().String()

	return m.Snapshot(), nil
}
// #endregion apply

// #region decay
// Decay moves affect a fixed fraction of the way toward the persona
// baseline. Called for steps where the event supplied no affect delta.
// Meaning and strain do not decay: the mid layer is stickier than affect.
func (m *Model) Decay() Snapshot {
	gap := m.baseline - m.short.Affect
	if gap != 0 {
		m.short.Affect = clamp(m.short.Affect+gap*m.config.DecayFraction, m.config.ValueMin, m.config.ValueMax)
		m.version = uuid.New().String()
	}
	return m.Snapshot()
}
// #endregion decay

// #region baseline
// Baseline returns the persona's affect resting point.
func (m *Model) Baseline() float64 {
	return m.baseline
}

// Config returns the bounds the model was built with.
func (m *Model) Config() ModelConfig {
	return m.config
}
// #endregion baseline

// #region clamp
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
// #endregion clamp
