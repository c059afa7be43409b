package state

import "fmt"

// #region trait-vector
// TraitVector is the static identity layer of a persona. It is fixed at
// model construction and never mutated during a run.
type TraitVector struct {
	Innate    []string `json:"innate" yaml:"innate"`
	Learned   []string `json:"learned" yaml:"learned"`
	Lifestyle []string `json:"lifestyle" yaml:"lifestyle"`
	Currently []string `json:"currently" yaml:"currently"`
}

// Descriptors returns all trait descriptors flattened into one slice,
// in innate → learned → lifestyle → currently order.
func (t TraitVector) Descriptors() []string {
	out := make([]string, 0, len(t.Innate)+len(t.Learned)+len(t.Lifestyle)+len(t.Currently))
	out = append(out, t.Innate...)
	out = append(out, t.Learned...)
	out = append(out, t.Lifestyle...)
	out = append(out, t.Currently...)
	return out
}
// #endregion trait-vector

// #region mid-short
// MidState is the slow-moving resilience layer: meaning and strain,
// each bounded to [0, 10].
type MidState struct {
	Meaning float64 `json:"meaning"`
	Strain  float64 `json:"strain"`
}

// ShortState is the fast-moving affect layer, bounded to [0, 10].
type ShortState struct {
	Affect float64 `json:"affect"`
}
// #endregion mid-short

// #region delta
// Delta is a per-event state adjustment. Each component must lie within
// [-DeltaBound, +DeltaBound] or Apply rejects the whole delta.
type Delta struct {
	Meaning float64 `json:"meaning"`
	Strain  float64 `json:"strain"`
	Affect  float64 `json:"affect"`
}
// #endregion delta

// #region snapshot
// Snapshot is an immutable view of the full (L, M, S) state at a point in
// time. Snapshots taken without an intervening Apply or Decay compare equal.
type Snapshot struct {
	VersionID string
	Traits    TraitVector
	Mid       MidState
	Short     ShortState
}
// #endregion snapshot

// #region validation-error
// ValidationError reports a delta component outside the permitted range.
// It indicates a caller bug and is never retried.
type ValidationError struct {
	Field string
	Value float64
	Bound float64
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("delta %s=%.2f outside [%.1f, %.1f]", e.Field, e.Value, -e.Bound, e.Bound)
}
// #endregion validation-error

// #region config
// ModelConfig bounds the state arithmetic.
type ModelConfig struct {
	DeltaBound    float64 // max magnitude of a single delta component
	ValueMin      float64 // lower clamp for M and S components
	ValueMax      float64 // upper clamp for M and S components
	DecayFraction float64 // fraction of the gap to baseline closed per idle step
}

// DefaultModelConfig returns the standard bounds.
func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		DeltaBound:    2.0,
		ValueMin:      0.0,
		ValueMax:      10.0,
		DecayFraction: 0.1,
	}
}
// #endregion config
