// Package corrector decides whether a judged response stands, and if
// not, runs the single-attempt rewrite cycle: pick a strategy from
// repository maturity, rewrite once, re-score, and keep the rewrite
// only when it does not score below the original.
package corrector

import (
	"context"
	"fmt"

	"github.com/danielpatrickdp/persona-drift/internal/oracle"
	"github.com/danielpatrickdp/persona-drift/internal/repository"
	"github.com/danielpatrickdp/persona-drift/internal/scorer"
	"github.com/danielpatrickdp/persona-drift/internal/state"
)

// #region phases
// Phase tracks where an event sits in the correction lifecycle.
type Phase string

const (
	PhaseAccepted             Phase = "accepted"
	PhaseNeedsCorrection      Phase = "needs_correction"
	PhaseCorrectingTraitOnly  Phase = "correcting_trait_only"
	PhaseCorrectingCaseGuided Phase = "correcting_case_guided"
	PhaseCorrected            Phase = "corrected"
	PhaseCorrectionFailed     Phase = "correction_failed"
)

// CorrectingPhase names the in-flight phase for a rewrite strategy; the
// run loop logs it between the needs-correction decision and the final
// disposition.
func CorrectingPhase(strategy oracle.RewriteStrategy) Phase {
	if strategy == oracle.StrategyCaseGuided {
		return PhaseCorrectingCaseGuided
	}
	return PhaseCorrectingTraitOnly
}
// #endregion phases

// #region config
// CorrectorConfig bounds the correction cycle.
type CorrectorConfig struct {
	Threshold    float64 // composite below this triggers correction
	MaturityGate int     // in-category cases needed for case-guided rewrites
	RetrieveK    int     // exemplars fetched for a case-guided rewrite
}

// DefaultCorrectorConfig returns the standard bounds.
func DefaultCorrectorConfig() CorrectorConfig {
	return CorrectorConfig{
		Threshold:    0.6,
		MaturityGate: 10,
		RetrieveK:    3,
	}
}
// #endregion config

// #region result
// Result is the final disposition of one judged response. On a failed
// correction the original response and judgment are retained and the
// rewrite's score is kept for the audit trail.
type Result struct {
	Phase        Phase
	Response     string
	Judgment     scorer.Judgment
	WasRewritten bool
	Strategy     oracle.RewriteStrategy // empty when no rewrite was attempted
	PCCOriginal  float64
	PCCRewritten *float64 // nil when no rewrite was attempted
	FailReason   string
}
// #endregion result

// #region corrector
// Corrector runs the accept-or-correct decision for judged responses.
type Corrector struct {
	scorer   *scorer.Scorer
	repo     *repository.Repository
	oracle   oracle.Oracle
	embedder oracle.Embedder
	config   CorrectorConfig
}

// NewCorrector builds a corrector over the scoring, case retrieval, and
// rewrite capabilities.
func NewCorrector(s *scorer.Scorer, repo *repository.Repository, o oracle.Oracle, e oracle.Embedder, config CorrectorConfig) *Corrector {
	return &Corrector{scorer: s, repo: repo, oracle: o, embedder: e, config: config}
}

// Review accepts the response when its composite clears the threshold;
// otherwise it performs exactly one rewrite attempt. Oracle failures
// propagate to the caller, which owns retry and skip policy. A rewrite
// that scores below the original is not an error: the original response
// is retained and the phase reports the failed correction.
func (c *Corrector) Review(ctx context.Context, snap state.Snapshot, category, event, response string, j scorer.Judgment) (Result, error) {
	if j.Composite >= c.config.Threshold {
		return Result{
			Phase:       PhaseAccepted,
			Response:    response,
			Judgment:    j,
			PCCOriginal: j.Composite,
		}, nil
	}

	strategy := oracle.StrategyTraitOnly
	var exemplars []oracle.Exemplar
	if c.repo.Count(category) >= c.config.MaturityGate {
		strategy = oracle.StrategyCaseGuided

		vec, err := c.embedder.Embed(ctx, event)
		if err != nil {
			return Result{}, fmt.Errorf("embed event for retrieval: %w", err)
		}
		cases := c.repo.Retrieve(category, vec, snap.Short.Affect, snap.Mid.Meaning, snap.Mid.Strain, c.config.RetrieveK)
		for _, ec := range cases {
			exemplars = append(exemplars, oracle.Exemplar{
				Event:    ec.Event,
				Response: ec.Response,
				Affect:   ec.Affect,
				Meaning:  ec.Meaning,
				Strain:   ec.Strain,
			})
		}
	}

	buckets := c.scorer.Buckets()
	rewritten, err := c.oracle.Rewrite(ctx, oracle.RewriteRequest{
		Strategy:         strategy,
		Traits:           snap.Traits.Descriptors(),
		Affect:           snap.Short.Affect,
		Meaning:          snap.Mid.Meaning,
		Strain:           snap.Mid.Strain,
		StateDescription: buckets.Describe(snap.Mid.Meaning, snap.Mid.Strain),
		Event:            event,
		Response:         response,
		Evidence:         j.Evidence,
		Exemplars:        exemplars,
	})
	if err != nil {
		return Result{}, fmt.Errorf("%s rewrite: %w", strategy, err)
	}

	rewrittenJ, err := c.scorer.Score(ctx, snap, event, rewritten)
	if err != nil {
		return Result{}, fmt.Errorf("re-score rewrite: %w", err)
	}

	rescored := rewrittenJ.Composite
	if rescored < j.Composite {
		return Result{
			Phase:        PhaseCorrectionFailed,
			Response:     response,
			Judgment:     j,
			WasRewritten: false,
			Strategy:     strategy,
			PCCOriginal:  j.Composite,
			PCCRewritten: &rescored,
			FailReason:   "rewrite scored below original",
		}, nil
	}

	return Result{
		Phase:        PhaseCorrected,
		Response:     rewritten,
		Judgment:     rewrittenJ,
		WasRewritten: true,
		Strategy:     strategy,
		PCCOriginal:  j.Composite,
		PCCRewritten: &rescored,
	}, nil
}
// #endregion corrector
