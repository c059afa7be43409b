package replay

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/persona-drift/internal/corrector"
	"github.com/danielpatrickdp/persona-drift/internal/oracle"
	"github.com/danielpatrickdp/persona-drift/internal/repository"
	"github.com/danielpatrickdp/persona-drift/internal/runner"
	"github.com/danielpatrickdp/persona-drift/internal/scorer"
	"github.com/danielpatrickdp/persona-drift/internal/state"
)

// tolerance for comparing recorded floats against recomputed ones.
const tolerance = 1e-6

// #region report
// Divergence is one mismatch between the replayed run and the recorded
// expectation.
type Divergence struct {
	EventIndex int
	Field      string
	Want       string
	Got        string
}

func (d Divergence) String() string {
	return fmt.Sprintf("event %d: %s = %s, recorded %s", d.EventIndex, d.Field, d.Got, d.Want)
}

// Report is the outcome of a replay.
type Report struct {
	Summary     runner.Summary
	Divergences []Divergence
}

// Clean reports whether the replay matched the recording everywhere.
func (r Report) Clean() bool {
	return len(r.Divergences) == 0
}
// #endregion report

// #region harness
// Harness replays a fixture through the full per-event cycle.
type Harness struct {
	fixture *Fixture
	log     *zap.Logger
}

// NewHarness wraps a loaded fixture. A nil logger is replaced with a
// no-op one.
func NewHarness(f *Fixture, log *zap.Logger) *Harness {
	if log == nil {
		log = zap.NewNop()
	}
	return &Harness{fixture: f, log: log}
}

// Replay runs the fixture against an in-memory stack and compares every
// event outcome with the recording.
func (h *Harness) Replay(ctx context.Context) (Report, error) {
	f := h.fixture

	o, err := f.buildOracle()
	if err != nil {
		return Report{}, err
	}

	s, err := scorer.NewScorer(o, scorer.DefaultScorerConfig())
	if err != nil {
		return Report{}, err
	}

	repo := repository.NewRepository(repository.DefaultRepositoryConfig())
	embedder := oracle.HashEmbedder{Dim: 8}
	c := corrector.NewCorrector(s, repo, o, embedder, corrector.DefaultCorrectorConfig())
	model := f.Persona.NewModel(state.DefaultModelConfig())

	// A throwaway file-backed store: in-memory SQLite gives each pooled
	// connection its own database.
	dir, err := os.MkdirTemp("", "persona-replay-")
	if err != nil {
		return Report{}, err
	}
	defer os.RemoveAll(dir)

	store, err := state.NewStore(filepath.Join(dir, "replay.db"))
	if err != nil {
		return Report{}, err
	}
	defer store.Close()

	r := runner.NewRunner(runner.Deps{
		Model:     model,
		Scorer:    s,
		Corrector: c,
		Repo:      repo,
		Oracle:    o,
		Embedder:  embedder,
		Store:     store,
		Log:       h.log,
	}, runner.RunnerConfig{MaxRetries: 0, Backoff: time.Millisecond})

	runID := uuid.New().String()
	summary, err := r.Run(ctx, runID, f.Persona.Name, f.Events)
	if err != nil {
		return Report{}, fmt.Errorf("replay run: %w", err)
	}

	rows, err := store.Trajectory(runID)
	if err != nil {
		return Report{}, err
	}

	report := Report{Summary: summary}
	report.Divergences = append(report.Divergences, compare(rows, f.Expected)...)
	if !o.Exhausted() {
		report.Divergences = append(report.Divergences, Divergence{
			EventIndex: -1,
			Field:      "script",
			Want:       "all steps consumed",
			Got:        "unconsumed oracle steps remain",
		})
	}
	return report, nil
}
// #endregion harness

// #region compare
func compare(rows []state.TrajectoryRecord, expected []ExpectedEvent) []Divergence {
	var out []Divergence

	byIndex := make(map[int]state.TrajectoryRecord, len(rows))
	for _, rec := range rows {
		byIndex[rec.EventIndex] = rec
	}

	for _, want := range expected {
		rec, ok := byIndex[want.EventIndex]
		if !ok {
			out = append(out, Divergence{want.EventIndex, "record", "present", "missing"})
			continue
		}
		if rec.Status != want.Status {
			out = append(out, Divergence{want.EventIndex, "status", want.Status, rec.Status})
		}
		if rec.WasRewritten != want.WasRewritten {
			out = append(out, Divergence{want.EventIndex, "was_rewritten",
				fmt.Sprint(want.WasRewritten), fmt.Sprint(rec.WasRewritten)})
		}
		if want.Status != "ok" {
			continue
		}

		pcc := rec.PCCOriginal
		if rec.WasRewritten && rec.PCCRewritten != nil {
			pcc = *rec.PCCRewritten
		}
		checks := []struct {
			field string
			want  float64
			got   float64
		}{
			{"pcc", want.PCC, pcc},
			{"post_affect", want.PostAffect, rec.Post.Short.Affect},
			{"post_meaning", want.PostMeaning, rec.Post.Mid.Meaning},
			{"post_strain", want.PostStrain, rec.Post.Mid.Strain},
		}
		for _, ch := range checks {
			if math.Abs(ch.want-ch.got) > tolerance {
				out = append(out, Divergence{want.EventIndex, ch.field,
					fmt.Sprintf("%.6f", ch.want), fmt.Sprintf("%.6f", ch.got)})
			}
		}
	}
	return out
}
// #endregion compare
