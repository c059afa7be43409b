package runner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/persona-drift/internal/corrector"
	"github.com/danielpatrickdp/persona-drift/internal/oracle"
	"github.com/danielpatrickdp/persona-drift/internal/repository"
	"github.com/danielpatrickdp/persona-drift/internal/scorer"
	"github.com/danielpatrickdp/persona-drift/internal/state"
)

type fixture struct {
	runner *Runner
	oracle *oracle.ScriptedOracle
	model  *state.Model
	repo   *repository.Repository
	store  *state.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	o := oracle.NewScriptedOracle()
	s, err := scorer.NewScorer(o, scorer.DefaultScorerConfig())
	require.NoError(t, err)

	model := state.NewModel(
		state.TraitVector{Innate: []string{"stubborn", "loyal"}},
		state.MidState{Meaning: 6.0, Strain: 4.0},
		state.ShortState{Affect: 5.0},
		5.5,
		state.DefaultModelConfig(),
	)

	repo := repository.NewRepository(repository.DefaultRepositoryConfig())
	embedder := oracle.HashEmbedder{Dim: 4}
	c := corrector.NewCorrector(s, repo, o, embedder, corrector.DefaultCorrectorConfig())

	store, err := state.NewStore(filepath.Join(t.TempDir(), "run.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	r := NewRunner(Deps{
		Model:     model,
		Scorer:    s,
		Corrector: c,
		Repo:      repo,
		Oracle:    o,
		Embedder:  embedder,
		Store:     store,
	}, RunnerConfig{MaxRetries: 2, Backoff: time.Millisecond})

	return &fixture{runner: r, oracle: o, model: model, repo: repo, store: store}
}

func pushAcceptedCycle(o *oracle.ScriptedOracle, dAffect, dMeaning, dStrain, score float64, response string) {
	o.PushImpact(dAffect, dMeaning, dStrain)
	o.PushGenerate(response)
	o.PushJudge(oracle.DimensionTrait, score)
	o.PushJudge(oracle.DimensionAffect, score)
	o.PushJudge(oracle.DimensionCoherence, score)
}

func TestRunFullCycle(t *testing.T) {
	f := newFixture(t)
	pushAcceptedCycle(f.oracle, 1.5, -0.5, 1.0, 0.9, "I hold my ground.")

	sum, err := f.runner.Run(context.Background(), "run-1", "Mara", []Event{
		{Category: "work", Text: "a colleague takes credit for her idea"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Completed)
	assert.Equal(t, 0, sum.Skipped)
	assert.Equal(t, 1, sum.Admitted)
	assert.InDelta(t, 0.9, sum.MeanPCC, 1e-9)

	snap := f.model.Snapshot()
	assert.InDelta(t, 6.5, snap.Short.Affect, 1e-9)
	assert.InDelta(t, 5.5, snap.Mid.Meaning, 1e-9)
	assert.InDelta(t, 5.0, snap.Mid.Strain, 1e-9)

	rows, err := f.store.Trajectory("run-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "ok", rows[0].Status)
	assert.Equal(t, "I hold my ground.", rows[0].Response)
	assert.InDelta(t, 6.5, rows[0].Post.Short.Affect, 1e-9)

	versions, err := f.store.VersionCount("run-1")
	require.NoError(t, err)
	assert.Equal(t, 1, versions, "exactly one state version per completed event")

	assert.Equal(t, 1, f.repo.Count("work"))
	assert.True(t, f.oracle.Exhausted())
}

func TestRunSkipsFailedEventWithoutStateChange(t *testing.T) {
	f := newFixture(t)

	f.oracle.PushImpact(1.0, 1.0, 1.0)
	f.oracle.FailGenerate(oracle.KindMalformed)
	pushAcceptedCycle(f.oracle, 0.5, 0, 0, 0.9, "second response")

	sum, err := f.runner.Run(context.Background(), "run-2", "Mara", []Event{
		{Category: "work", Text: "first event"},
		{Category: "work", Text: "second event"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Completed)
	assert.Equal(t, 1, sum.Skipped)

	// Only the second event advanced state.
	snap := f.model.Snapshot()
	assert.InDelta(t, 5.5, snap.Short.Affect, 1e-9)
	assert.InDelta(t, 6.0, snap.Mid.Meaning, 1e-9)

	rows, err := f.store.Trajectory("run-2")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "skipped", rows[0].Status)
	assert.NotEmpty(t, rows[0].FailReason)
	assert.Equal(t, "ok", rows[1].Status)

	versions, err := f.store.VersionCount("run-2")
	require.NoError(t, err)
	assert.Equal(t, 1, versions, "skipped events must not commit state versions")
}

func TestRunRetriesTransientFailure(t *testing.T) {
	f := newFixture(t)

	f.oracle.FailImpact(oracle.KindRateLimited)
	pushAcceptedCycle(f.oracle, 0, 0, 0, 0.9, "steady reply")

	sum, err := f.runner.Run(context.Background(), "run-3", "Mara", []Event{
		{Category: "home", Text: "a quiet evening"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Completed)

	// No affect delta: decay pulls affect one step toward the baseline.
	snap := f.model.Snapshot()
	assert.InDelta(t, 5.05, snap.Short.Affect, 1e-9)
}

func TestRunDoesNotRetryMalformed(t *testing.T) {
	f := newFixture(t)
	f.oracle.FailImpact(oracle.KindMalformed)

	sum, err := f.runner.Run(context.Background(), "run-4", "Mara", []Event{
		{Category: "home", Text: "an event"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Skipped)
	assert.True(t, f.oracle.Exhausted(), "a malformed failure must consume exactly one attempt")
}

func TestRunCorrectionCycle(t *testing.T) {
	f := newFixture(t)

	f.oracle.PushImpact(0.5, 0, 0)
	f.oracle.PushGenerate("a drifting draft")
	f.oracle.PushJudge(oracle.DimensionTrait, 0.5, "gives up too easily")
	f.oracle.PushJudge(oracle.DimensionAffect, 0.5)
	f.oracle.PushJudge(oracle.DimensionCoherence, 0.5)
	f.oracle.PushRewrite("a corrected reply")
	f.oracle.PushJudge(oracle.DimensionTrait, 0.9)
	f.oracle.PushJudge(oracle.DimensionAffect, 0.9)
	f.oracle.PushJudge(oracle.DimensionCoherence, 0.9)

	sum, err := f.runner.Run(context.Background(), "run-5", "Mara", []Event{
		{Category: "work", Text: "a harsh review"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Completed)
	assert.Equal(t, 1, sum.Corrected)
	assert.Equal(t, 1, sum.Admitted, "the rewritten response clears admission")

	rows, err := f.store.Trajectory("run-5")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].WasRewritten)
	assert.Equal(t, string(oracle.StrategyTraitOnly), rows[0].Strategy)
	assert.Equal(t, "a corrected reply", rows[0].Response)
	assert.InDelta(t, 0.5, rows[0].PCCOriginal, 1e-9)
	require.NotNil(t, rows[0].PCCRewritten)
	assert.InDelta(t, 0.9, *rows[0].PCCRewritten, 1e-9)

	cases := f.repo.Retrieve("work", nil, 5, 6, 4, 1)
	require.Len(t, cases, 1)
	assert.Equal(t, "a corrected reply", cases[0].Response)
}

func TestRunBelowAdmissionNotStored(t *testing.T) {
	f := newFixture(t)
	pushAcceptedCycle(f.oracle, 0.5, 0, 0, 0.7, "fine but unremarkable")

	sum, err := f.runner.Run(context.Background(), "run-6", "Mara", []Event{
		{Category: "work", Text: "an ordinary day"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Completed)
	assert.Equal(t, 0, sum.Admitted)
	assert.Equal(t, 0, f.repo.Count("work"))
}

func TestLoadEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.json")
	content := `[{"category":"work","text":"a deadline"},{"category":"home","text":"a call"}]`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	events, err := LoadEvents(path)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "work", events[0].Category)

	require.NoError(t, os.WriteFile(path, []byte(`[{"category":"","text":"x"}]`), 0o644))
	_, err = LoadEvents(path)
	assert.Error(t, err)
}
