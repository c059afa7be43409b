package repository

import (
	"database/sql"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// #region repository
// Repository is the scene-category-keyed case store. Retrievals run
// under a read lock; admission and eviction take the write lock, so a
// retrieval observes the store either before or after an admission,
// never mid-change.
type Repository struct {
	mu         sync.RWMutex
	byCategory map[string][]*ExemplarCase
	nextSeq    int64
	config     RepositoryConfig
	store      *caseStore // nil for in-memory repositories
}

// NewRepository creates an in-memory repository.
func NewRepository(config RepositoryConfig) *Repository {
	return &Repository{
		byCategory: make(map[string][]*ExemplarCase),
		config:     config,
	}
}

// Config returns the bounds the repository was built with.
func (r *Repository) Config() RepositoryConfig {
	return r.config
}

// NewPersistentRepository creates a repository backed by SQLite and
// loads every previously admitted case.
func NewPersistentRepository(db *sql.DB, config RepositoryConfig) (*Repository, error) {
	store, err := newCaseStore(db)
	if err != nil {
		return nil, err
	}

	r := NewRepository(config)
	r.store = store

	cases, maxSeq, err := store.loadAll()
	if err != nil {
		return nil, err
	}
	for _, c := range cases {
		r.byCategory[c.Category] = append(r.byCategory[c.Category], c)
	}
	r.nextSeq = maxSeq + 1
	return r, nil
}
// #endregion repository

// #region admit
// Admit stores the case if its quality clears the threshold. A rejected
// case returns (false, nil): sub-threshold quality is an expected
// outcome, not an error. When the category is full, the lowest-quality
// case (oldest on equal quality) is evicted first.
func (r *Repository) Admit(c ExemplarCase) (bool, error) {
	if c.Quality < r.config.AdmitThreshold {
		return false, nil
	}
	if c.Category == "" {
		return false, fmt.Errorf("admit: empty category")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.AdmittedAt.IsZero() {
		c.AdmittedAt = time.Now().UTC()
	}
	c.seq = r.nextSeq
	r.nextSeq++

	stored := c
	r.byCategory[c.Category] = append(r.byCategory[c.Category], &stored)

	if r.store != nil {
		if err := r.store.insert(&stored); err != nil {
			return false, err
		}
	}

	if len(r.byCategory[c.Category]) > r.config.Capacity {
		if err := r.evictLocked(c.Category); err != nil {
			return false, err
		}
	}
	return true, nil
}

// evictLocked removes the lowest-quality case from the category,
// breaking quality ties by admission order. Caller holds the write lock.
func (r *Repository) evictLocked(category string) error {
	cases := r.byCategory[category]
	victim := 0
	for i, c := range cases {
		v := cases[victim]
		if c.Quality < v.Quality || (c.Quality == v.Quality && c.seq < v.seq) {
			victim = i
		}
	}

	id := cases[victim].ID
	r.byCategory[category] = append(cases[:victim], cases[victim+1:]...)

	if r.store != nil {
		if err := r.store.remove(id); err != nil {
			return err
		}
	}
	return nil
}
// #endregion admit

// #region retrieve
// Retrieve returns up to k cases from the category, ranked by the
// blended score lambda*cosine + (1-lambda)*stateProximity against the
// query embedding and the current (affect, meaning, strain) triple.
// Ties rank newest-first. Other categories are never consulted.
func (r *Repository) Retrieve(category string, query []float32, affect, meaning, strain float64, k int) []ExemplarCase {
	if k <= 0 {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	cases := r.byCategory[category]
	if len(cases) == 0 {
		return nil
	}

	type ranked struct {
		c     *ExemplarCase
		score float64
	}
	scored := make([]ranked, 0, len(cases))
	for _, c := range cases {
		sem := cosine(query, c.Embedding)
		prox := stateProximity(affect, meaning, strain, c)
		score := r.config.Lambda*sem + (1-r.config.Lambda)*prox
		scored = append(scored, ranked{c: c, score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].c.seq > scored[j].c.seq
	})

	if k > len(scored) {
		k = len(scored)
	}
	out := make([]ExemplarCase, k)
	for i := 0; i < k; i++ {
		out[i] = *scored[i].c
	}
	return out
}

// Count returns the number of admitted cases in a category. The
// correction maturity gate reads this.
func (r *Repository) Count(category string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byCategory[category])
}

// List returns every case in a category in admission order. Used by
// inspection tooling.
func (r *Repository) List(category string) []ExemplarCase {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cases := r.byCategory[category]
	out := make([]ExemplarCase, len(cases))
	for i, c := range cases {
		out[i] = *c
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// Categories lists every category holding at least one case.
func (r *Repository) Categories() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.byCategory))
	for cat, cases := range r.byCategory {
		if len(cases) > 0 {
			out = append(out, cat)
		}
	}
	sort.Strings(out)
	return out
}
// #endregion retrieve

// #region similarity
// cosine returns the cosine similarity of two vectors, 0 when either
// has no magnitude or the lengths differ.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// stateProximity maps the L1 distance between the query state triple
// and the case's recorded state onto [0, 1]; 30 is the maximum possible
// distance across three [0, 10] axes.
func stateProximity(affect, meaning, strain float64, c *ExemplarCase) float64 {
	d := math.Abs(affect-c.Affect) + math.Abs(meaning-c.Meaning) + math.Abs(strain-c.Strain)
	return 1 - d/30
}
// #endregion similarity
