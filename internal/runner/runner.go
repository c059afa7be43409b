package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/persona-drift/internal/corrector"
	"github.com/danielpatrickdp/persona-drift/internal/oracle"
	"github.com/danielpatrickdp/persona-drift/internal/repository"
	"github.com/danielpatrickdp/persona-drift/internal/scorer"
	"github.com/danielpatrickdp/persona-drift/internal/state"
)

// #region runner
// Deps collects the collaborators a run needs. Store may be nil for
// ephemeral runs; Log may be nil and defaults to a no-op logger.
type Deps struct {
	Model     *state.Model
	Scorer    *scorer.Scorer
	Corrector *corrector.Corrector
	Repo      *repository.Repository
	Oracle    oracle.Oracle
	Embedder  oracle.Embedder
	Store     *state.Store
	Log       *zap.Logger
}

// Runner executes one persona run. Runs are strictly sequential: state
// advances exactly once per completed event, and a failed event leaves
// state untouched.
type Runner struct {
	deps   Deps
	config RunnerConfig
}

// NewRunner builds a runner over its collaborators.
func NewRunner(deps Deps, config RunnerConfig) *Runner {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	return &Runner{deps: deps, config: config}
}
// #endregion runner

// #region run
// Run processes the event sequence. Transient oracle failures are
// retried with backoff; an event that still cannot complete is recorded
// as skipped and the run continues. A delta validation failure aborts
// the run: it means a caller bug, not an event problem.
func (r *Runner) Run(ctx context.Context, runID, personaName string, events []Event) (Summary, error) {
	log := r.deps.Log.With(zap.String("run_id", runID), zap.String("persona", personaName))
	log.Info("run starting", zap.Int("events", len(events)))

	if r.deps.Store != nil {
		if err := r.deps.Store.BeginRun(runID, personaName); err != nil {
			return Summary{}, err
		}
	}

	summary := Summary{RunID: runID, Events: len(events)}
	var pccSum float64

	for i, ev := range events {
		rec, res, err := r.runEvent(ctx, runID, i, ev)
		if err != nil {
			var verr *state.ValidationError
			if errors.As(err, &verr) {
				return summary, fmt.Errorf("event %d: %w", i, err)
			}
			if ctx.Err() != nil {
				return summary, ctx.Err()
			}

			log.Warn("event skipped",
				zap.Int("event_index", i),
				zap.String("category", ev.Category),
				zap.Error(err),
			)
			summary.Skipped++
			if r.deps.Store != nil {
				rec.FailReason = err.Error()
				if serr := r.deps.Store.RecordSkipped(rec); serr != nil {
					return summary, serr
				}
			}
			continue
		}

		summary.Completed++
		pccSum += res.Judgment.Composite
		if res.WasRewritten {
			summary.Corrected++
		}
		if res.Phase == corrector.PhaseCorrectionFailed {
			summary.Failed++
		}

		admitted, err := r.admit(ctx, ev, rec, res)
		if err != nil {
			// Admission is best-effort: the event already completed.
			log.Warn("case admission failed",
				zap.Int("event_index", i),
				zap.Error(err),
			)
		} else if admitted {
			summary.Admitted++
		}

		log.Info("event completed",
			zap.Int("event_index", i),
			zap.String("category", ev.Category),
			zap.String("phase", string(res.Phase)),
			zap.Float64("pcc", res.Judgment.Composite),
			zap.Bool("rewritten", res.WasRewritten),
			zap.Bool("admitted", admitted),
		)
	}

	if summary.Completed > 0 {
		summary.MeanPCC = pccSum / float64(summary.Completed)
	}
	log.Info("run finished",
		zap.Int("completed", summary.Completed),
		zap.Int("skipped", summary.Skipped),
		zap.Int("corrected", summary.Corrected),
		zap.Int("admitted", summary.Admitted),
		zap.Float64("mean_pcc", summary.MeanPCC),
	)
	return summary, nil
}
// #endregion run

// #region event-cycle
// runEvent executes the full cycle for one event. The returned record
// always carries the pre-state so a skip can still be audited.
func (r *Runner) runEvent(ctx context.Context, runID string, idx int, ev Event) (state.TrajectoryRecord, corrector.Result, error) {
	pre := r.deps.Model.Snapshot()
	rec := state.TrajectoryRecord{
		RunID:      runID,
		EventIndex: idx,
		Category:   ev.Category,
		EventText:  ev.Text,
		Pre:        pre,
		Post:       pre,
	}

	var delta state.Delta
	err := r.withRetry(ctx, "impact", func() error {
		var ierr error
		delta, ierr = assessImpact(ctx, r.deps.Oracle, pre, ev, r.deps.Model.Config().DeltaBound)
		return ierr
	})
	if err != nil {
		return rec, corrector.Result{}, fmt.Errorf("assess impact: %w", err)
	}

	buckets := r.deps.Scorer.Buckets()
	var draft string
	err = r.withRetry(ctx, "generate", func() error {
		var gerr error
		draft, gerr = r.deps.Oracle.Generate(ctx, oracle.GenerateRequest{
			Traits:           pre.Traits.Descriptors(),
			Affect:           pre.Short.Affect,
			Meaning:          pre.Mid.Meaning,
			Strain:           pre.Mid.Strain,
			StateDescription: buckets.Describe(pre.Mid.Meaning, pre.Mid.Strain),
			Event:            ev.Text,
		})
		return gerr
	})
	if err != nil {
		return rec, corrector.Result{}, fmt.Errorf("generate: %w", err)
	}

	var judgment scorer.Judgment
	err = r.withRetry(ctx, "judge", func() error {
		var jerr error
		judgment, jerr = r.deps.Scorer.Score(ctx, pre, ev.Text, draft)
		return jerr
	})
	if err != nil {
		return rec, corrector.Result{}, fmt.Errorf("score: %w", err)
	}

	// The correction cycle is not retried: it may include the single
	// permitted rewrite call, and re-running it could issue another.
	res, err := r.deps.Corrector.Review(ctx, pre, ev.Category, ev.Text, draft, judgment)
	if err != nil {
		return rec, corrector.Result{}, fmt.Errorf("review: %w", err)
	}

	post, err := r.deps.Model.Apply(delta)
	if err != nil {
		return rec, corrector.Result{}, err
	}
	if delta.Affect == 0 {
		post = r.deps.Model.Decay()
	}

	rec.Response = res.Response
	rec.Status = "ok"
	rec.Post = post
	rec.Delta = delta
	rec.LScore = res.Judgment.LScore
	rec.SScore = res.Judgment.SScore
	rec.MScore = res.Judgment.MScore
	rec.PCCOriginal = res.PCCOriginal
	rec.PCCRewritten = res.PCCRewritten
	rec.WasRewritten = res.WasRewritten
	rec.Strategy = string(res.Strategy)
	rec.FailReason = res.FailReason

	if r.deps.Store != nil {
		if err := r.deps.Store.CommitEvent(rec); err != nil {
			return rec, corrector.Result{}, err
		}
	}
	return rec, res, nil
}

// admit offers the event's final response to the case repository. The
// embedding call is skipped when the quality cannot clear admission.
func (r *Runner) admit(ctx context.Context, ev Event, rec state.TrajectoryRecord, res corrector.Result) (bool, error) {
	quality := res.Judgment.Composite
	if quality < r.deps.Repo.Config().AdmitThreshold {
		return false, nil
	}

	var vec []float32
	err := r.withRetry(ctx, "embed", func() error {
		var eerr error
		vec, eerr = r.deps.Embedder.Embed(ctx, ev.Text)
		return eerr
	})
	if err != nil {
		return false, fmt.Errorf("embed event: %w", err)
	}

	return r.deps.Repo.Admit(repository.ExemplarCase{
		Category:  ev.Category,
		Event:     ev.Text,
		Response:  res.Response,
		Quality:   quality,
		Affect:    rec.Pre.Short.Affect,
		Meaning:   rec.Pre.Mid.Meaning,
		Strain:    rec.Pre.Mid.Strain,
		Embedding: vec,
	})
}
// #endregion event-cycle

// #region retry
// withRetry runs fn, retrying transient oracle failures with doubling
// backoff. Malformed output and non-oracle errors return immediately.
func (r *Runner) withRetry(ctx context.Context, op string, fn func() error) error {
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil || !oracle.Retryable(err) || attempt >= r.config.MaxRetries {
			return err
		}

		delay := r.config.Backoff << uint(attempt)
		r.deps.Log.Warn("transient oracle failure",
			zap.String("op", op),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
// #endregion retry
