package repository

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func mustCase(category, event string, quality float64, embedding []float32) ExemplarCase {
	return ExemplarCase{
		Category:  category,
		Event:     event,
		Response:  "response to " + event,
		Quality:   quality,
		Affect:    5.0,
		Meaning:   5.0,
		Strain:    5.0,
		Embedding: embedding,
	}
}

func TestAdmitThreshold(t *testing.T) {
	r := NewRepository(DefaultRepositoryConfig())

	ok, err := r.Admit(mustCase("conflict", "an argument", 0.84, []float32{1, 0}))
	require.NoError(t, err)
	assert.False(t, ok, "quality below threshold must be rejected")
	assert.Equal(t, 0, r.Count("conflict"))

	ok, err = r.Admit(mustCase("conflict", "an argument", 0.85, []float32{1, 0}))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, r.Count("conflict"))
}

func TestRetrieveStaysInCategory(t *testing.T) {
	r := NewRepository(DefaultRepositoryConfig())

	for i := 0; i < 3; i++ {
		_, err := r.Admit(mustCase("work", "deadline", 0.9, []float32{1, 0}))
		require.NoError(t, err)
	}
	_, err := r.Admit(mustCase("family", "dinner", 0.9, []float32{1, 0}))
	require.NoError(t, err)

	got := r.Retrieve("work", []float32{1, 0}, 5, 5, 5, 10)
	assert.Len(t, got, 3, "k caps at the admitted count")
	for _, c := range got {
		assert.Equal(t, "work", c.Category)
	}

	got = r.Retrieve("work", []float32{1, 0}, 5, 5, 5, 2)
	assert.Len(t, got, 2, "never exceeds k")

	assert.Empty(t, r.Retrieve("travel", []float32{1, 0}, 5, 5, 5, 3))
}

func TestRetrieveRanking(t *testing.T) {
	r := NewRepository(DefaultRepositoryConfig())

	near := mustCase("work", "near", 0.9, []float32{1, 0})
	far := mustCase("work", "far", 0.9, []float32{0, 1})
	far.Affect, far.Meaning, far.Strain = 0, 0, 10

	_, err := r.Admit(far)
	require.NoError(t, err)
	_, err = r.Admit(near)
	require.NoError(t, err)

	got := r.Retrieve("work", []float32{1, 0}, 5, 5, 5, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "near", got[0].Event, "semantically and state-wise closer case ranks first")
	assert.Equal(t, "far", got[1].Event)
}

func TestRetrieveTieBreaksNewestFirst(t *testing.T) {
	r := NewRepository(DefaultRepositoryConfig())

	older := mustCase("work", "older", 0.9, []float32{1, 0})
	newer := mustCase("work", "newer", 0.9, []float32{1, 0})
	_, err := r.Admit(older)
	require.NoError(t, err)
	_, err = r.Admit(newer)
	require.NoError(t, err)

	got := r.Retrieve("work", []float32{1, 0}, 5, 5, 5, 1)
	require.Len(t, got, 1)
	assert.Equal(t, "newer", got[0].Event)
}

func TestEvictionLowestQualityFirst(t *testing.T) {
	cfg := DefaultRepositoryConfig()
	cfg.Capacity = 2
	r := NewRepository(cfg)

	for _, c := range []ExemplarCase{
		mustCase("work", "good", 0.90, []float32{1, 0}),
		mustCase("work", "weak", 0.86, []float32{1, 0}),
		mustCase("work", "best", 0.95, []float32{1, 0}),
	} {
		ok, err := r.Admit(c)
		require.NoError(t, err)
		require.True(t, ok)
	}

	got := r.Retrieve("work", []float32{1, 0}, 5, 5, 5, 10)
	require.Len(t, got, 2)
	for _, c := range got {
		assert.NotEqual(t, "weak", c.Event, "lowest-quality case must be evicted")
	}
}

func TestEvictionQualityTieEvictsOldest(t *testing.T) {
	cfg := DefaultRepositoryConfig()
	cfg.Capacity = 1
	r := NewRepository(cfg)

	_, err := r.Admit(mustCase("work", "older", 0.9, []float32{1, 0}))
	require.NoError(t, err)
	_, err = r.Admit(mustCase("work", "newer", 0.9, []float32{1, 0}))
	require.NoError(t, err)

	got := r.Retrieve("work", []float32{1, 0}, 5, 5, 5, 10)
	require.Len(t, got, 1)
	assert.Equal(t, "newer", got[0].Event)
}

func TestPersistentRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cases.db")

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)

	r, err := NewPersistentRepository(db, DefaultRepositoryConfig())
	require.NoError(t, err)

	ok, err := r.Admit(mustCase("work", "deadline", 0.92, []float32{0.5, 0.5}))
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, db.Close())

	db, err = sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	reloaded, err := NewPersistentRepository(db, DefaultRepositoryConfig())
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.Count("work"))

	got := reloaded.Retrieve("work", []float32{0.5, 0.5}, 5, 5, 5, 1)
	require.Len(t, got, 1)
	assert.Equal(t, "deadline", got[0].Event)
	assert.Equal(t, 0.92, got[0].Quality)
	assert.Equal(t, []float32{0.5, 0.5}, got[0].Embedding)
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, cosine([]float32{1, 0}, []float32{1, 0}), 1e-9)
	assert.InDelta(t, 0.0, cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Equal(t, 0.0, cosine([]float32{1, 0}, []float32{1, 0, 0}), "length mismatch scores zero")
	assert.Equal(t, 0.0, cosine(nil, nil))
}
