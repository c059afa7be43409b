package scorer

import (
	"context"
	"math"
	"testing"

	"github.com/danielpatrickdp/persona-drift/internal/oracle"
	"github.com/danielpatrickdp/persona-drift/internal/state"
)

func testSnapshot() state.Snapshot {
	return state.Snapshot{
		VersionID: "v1",
		Traits:    state.TraitVector{Innate: []string{"stubborn", "curious"}},
		Mid:       state.MidState{Meaning: 6.0, Strain: 4.0},
		Short:     state.ShortState{Affect: 5.0},
	}
}

func TestNewScorerRejectsBadWeights(t *testing.T) {
	cfg := DefaultScorerConfig()
	cfg.Weights = Weights{Trait: 0.5, Affect: 0.5, Coherence: 0.5}
	if _, err := NewScorer(oracle.NewScriptedOracle(), cfg); err == nil {
		t.Fatal("expected error for weights summing to 1.5")
	}

	cfg.Weights = Weights{Trait: 1.5, Affect: -0.25, Coherence: -0.25}
	if _, err := NewScorer(oracle.NewScriptedOracle(), cfg); err == nil {
		t.Fatal("expected error for negative weight")
	}
}

func TestScoreCompositeIsWeightedSum(t *testing.T) {
	o := oracle.NewScriptedOracle()
	o.PushJudge(oracle.DimensionTrait, 0.9, "kept the stubborn streak")
	o.PushJudge(oracle.DimensionAffect, 0.8)
	o.PushJudge(oracle.DimensionCoherence, 0.7, "references the workload")

	s, err := NewScorer(o, DefaultScorerConfig())
	if err != nil {
		t.Fatal(err)
	}

	j, err := s.Score(context.Background(), testSnapshot(), "a setback at work", "I won't let this stop me.")
	if err != nil {
		t.Fatal(err)
	}

	want := 0.4*0.9 + 0.3*0.8 + 0.3*0.7
	if math.Abs(j.Composite-want) > 1e-9 {
		t.Errorf("composite = %.4f, want %.4f", j.Composite, want)
	}
	if j.Composite < 0 || j.Composite > 1 {
		t.Errorf("composite %.4f outside [0, 1]", j.Composite)
	}
	if j.LScore != 0.9 || j.SScore != 0.8 || j.MScore != 0.7 {
		t.Errorf("sub-scores = %.2f/%.2f/%.2f", j.LScore, j.SScore, j.MScore)
	}
	if len(j.Evidence) != 2 {
		t.Errorf("evidence count = %d, want 2", len(j.Evidence))
	}
}

func TestScorePropagatesJudgeFailure(t *testing.T) {
	o := oracle.NewScriptedOracle()
	o.PushJudge(oracle.DimensionTrait, 0.9)
	o.FailJudge(oracle.DimensionAffect, oracle.KindRateLimited)

	s, err := NewScorer(o, DefaultScorerConfig())
	if err != nil {
		t.Fatal(err)
	}

	_, err = s.Score(context.Background(), testSnapshot(), "event", "response")
	if err == nil {
		t.Fatal("expected judge failure to propagate")
	}
	if !oracle.Retryable(err) {
		t.Errorf("rate-limited failure should be retryable: %v", err)
	}
}

func TestScoreBoundaryWeights(t *testing.T) {
	o := oracle.NewScriptedOracle()
	o.PushJudge(oracle.DimensionTrait, 1.0)
	o.PushJudge(oracle.DimensionAffect, 0.0)
	o.PushJudge(oracle.DimensionCoherence, 0.0)

	cfg := DefaultScorerConfig()
	cfg.Weights = Weights{Trait: 1.0, Affect: 0.0, Coherence: 0.0}
	s, err := NewScorer(o, cfg)
	if err != nil {
		t.Fatal(err)
	}

	j, err := s.Score(context.Background(), testSnapshot(), "event", "response")
	if err != nil {
		t.Fatal(err)
	}
	if j.Composite != 1.0 {
		t.Errorf("composite = %.4f, want 1.0", j.Composite)
	}
}
