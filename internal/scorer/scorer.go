// Package scorer computes the persona consistency composite for a
// response: three oracle sub-judgments (traits, affect, coherence with
// the meaning/strain state) blended by configurable weights.
package scorer

import (
	"context"
	"fmt"
	"math"

	"github.com/danielpatrickdp/persona-drift/internal/oracle"
	"github.com/danielpatrickdp/persona-drift/internal/state"
)

// #region config
// Weights blends the three sub-judgments into the composite. The three
// values must sum to 1.
type Weights struct {
	Trait     float64 `yaml:"trait"`
	Affect    float64 `yaml:"affect"`
	Coherence float64 `yaml:"coherence"`
}

// ScorerConfig carries the blend weights and the state bucket grid.
type ScorerConfig struct {
	Weights Weights
	Buckets BucketConfig
}

// DefaultScorerConfig weights identity heaviest.
func DefaultScorerConfig() ScorerConfig {
	return ScorerConfig{
		Weights: Weights{Trait: 0.4, Affect: 0.3, Coherence: 0.3},
		Buckets: DefaultBucketConfig(),
	}
}
// #endregion config

// #region judgment
// Judgment is the full scoring result for one response: the three
// sub-scores, the weighted composite, and every cited evidence span.
type Judgment struct {
	LScore    float64
	SScore    float64
	MScore    float64
	Composite float64
	Evidence  []string
}
// #endregion judgment

// #region scorer
// Scorer runs the three-dimensional consistency judgment through an
// oracle. Sub-judgment failures propagate; no score is ever substituted
// for a failed call.
type Scorer struct {
	oracle oracle.Oracle
	config ScorerConfig
}

// NewScorer validates the weight blend and builds a scorer.
func NewScorer(o oracle.Oracle, config ScorerConfig) (*Scorer, error) {
	sum := config.Weights.Trait + config.Weights.Affect + config.Weights.Coherence
	if math.Abs(sum-1.0) > 1e-9 {
		return nil, fmt.Errorf("judgment weights sum to %.4f, want 1.0", sum)
	}
	if config.Weights.Trait < 0 || config.Weights.Affect < 0 || config.Weights.Coherence < 0 {
		return nil, fmt.Errorf("judgment weights must be non-negative")
	}
	return &Scorer{oracle: o, config: config}, nil
}

// Buckets exposes the configured grid so callers can render the same
// state description the judge saw.
func (s *Scorer) Buckets() BucketConfig {
	return s.config.Buckets
}

// Score judges the response against the snapshot on all three
// dimensions and blends the composite.
func (s *Scorer) Score(ctx context.Context, snap state.Snapshot, event, response string) (Judgment, error) {
	traits := snap.Traits.Descriptors()
	desc := s.config.Buckets.Describe(snap.Mid.Meaning, snap.Mid.Strain)
	band := s.config.Buckets.AffectBand(snap.Short.Affect)

	base := oracle.JudgeRequest{
		Traits:           traits,
		Affect:           snap.Short.Affect,
		AffectBand:       band,
		Meaning:          snap.Mid.Meaning,
		Strain:           snap.Mid.Strain,
		StateDescription: desc,
		Event:            event,
		Response:         response,
	}

	var j Judgment

	req := base
	req.Dimension = oracle.DimensionTrait
	trait, err := s.oracle.Judge(ctx, req)
	if err != nil {
		return Judgment{}, fmt.Errorf("trait judgment: %w", err)
	}
	j.LScore = trait.Score
	j.Evidence = append(j.Evidence, trait.Evidence...)

	req = base
	req.Dimension = oracle.DimensionAffect
	affect, err := s.oracle.Judge(ctx, req)
	if err != nil {
		return Judgment{}, fmt.Errorf("affect judgment: %w", err)
	}
	j.SScore = affect.Score
	j.Evidence = append(j.Evidence, affect.Evidence...)

	req = base
	req.Dimension = oracle.DimensionCoherence
	coherence, err := s.oracle.Judge(ctx, req)
	if err != nil {
		return Judgment{}, fmt.Errorf("coherence judgment: %w", err)
	}
	j.MScore = coherence.Score
	j.Evidence = append(j.Evidence, coherence.Evidence...)

	w := s.config.Weights
	j.Composite = w.Trait*j.LScore + w.Affect*j.SScore + w.Coherence*j.MScore
	return j, nil
}
// #endregion scorer
