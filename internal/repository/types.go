// Package repository stores high-quality past interaction cases, keyed
// by scene category, and retrieves the closest ones for case-guided
// correction. Cases are immutable once admitted.
package repository

import "time"

// #region exemplar-case
// ExemplarCase is one admitted interaction: the event, the accepted
// response, the state it happened under, and its quality score. The
// embedding indexes the event text for similarity retrieval.
type ExemplarCase struct {
	ID         string
	Category   string
	Event      string
	Response   string
	Quality    float64
	Affect     float64
	Meaning    float64
	Strain     float64
	Embedding  []float32
	AdmittedAt time.Time

	// seq is the admission order within this repository instance,
	// used as the newest-first tie-break.
	seq int64
}
// #endregion exemplar-case

// #region config
// RepositoryConfig bounds admission and retrieval.
type RepositoryConfig struct {
	AdmitThreshold float64 // minimum quality for admission
	Capacity       int     // max cases per category
	Lambda         float64 // semantic weight in the rank score blend
}

// DefaultRepositoryConfig returns the standard bounds.
func DefaultRepositoryConfig() RepositoryConfig {
	return RepositoryConfig{
		AdmitThreshold: 0.85,
		Capacity:       50,
		Lambda:         0.6,
	}
}
// #endregion config
