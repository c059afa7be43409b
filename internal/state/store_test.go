package state

import (
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "run.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func okRecord(runID string, idx int) TrajectoryRecord {
	return TrajectoryRecord{
		RunID:      runID,
		EventIndex: idx,
		Category:   "work",
		EventText:  "an event",
		Response:   "a response",
		Status:     "ok",
		Pre:        Snapshot{VersionID: "pre", Short: ShortState{Affect: 5}, Mid: MidState{Meaning: 6, Strain: 4}},
		Post:       Snapshot{VersionID: "post", Short: ShortState{Affect: 6.5}, Mid: MidState{Meaning: 5.5, Strain: 5}},
		Delta:      Delta{Affect: 1.5, Meaning: -0.5, Strain: 1},
		LScore:     0.9, SScore: 0.8, MScore: 0.7,
		PCCOriginal: 0.81,
	}
}

func TestCommitEventRoundTrip(t *testing.T) {
	s := newTestStore(t)
	if err := s.BeginRun("run-1", "Mara"); err != nil {
		t.Fatal(err)
	}

	rec := okRecord("run-1", 0)
	rewritten := 0.88
	rec.PCCRewritten = &rewritten
	rec.WasRewritten = true
	rec.Strategy = "trait_only"
	if err := s.CommitEvent(rec); err != nil {
		t.Fatal(err)
	}

	rows, err := s.Trajectory("run-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}

	got := rows[0]
	if got.Status != "ok" || got.Response != "a response" {
		t.Errorf("row mismatch: %+v", got)
	}
	if got.Post.Short.Affect != 6.5 || got.Post.Mid.Meaning != 5.5 {
		t.Errorf("post state mismatch: %+v", got.Post)
	}
	if got.PCCRewritten == nil || *got.PCCRewritten != 0.88 {
		t.Errorf("pcc_rewritten = %v, want 0.88", got.PCCRewritten)
	}
	if !got.WasRewritten || got.Strategy != "trait_only" {
		t.Errorf("correction fields mismatch: %+v", got)
	}

	versions, err := s.VersionCount("run-1")
	if err != nil {
		t.Fatal(err)
	}
	if versions != 1 {
		t.Errorf("versions = %d, want 1", versions)
	}
}

func TestRecordSkippedWritesNoVersion(t *testing.T) {
	s := newTestStore(t)
	if err := s.BeginRun("run-2", "Mara"); err != nil {
		t.Fatal(err)
	}

	rec := okRecord("run-2", 0)
	rec.Response = ""
	rec.FailReason = "generate: oracle generate: malformed"
	if err := s.RecordSkipped(rec); err != nil {
		t.Fatal(err)
	}

	rows, err := s.Trajectory("run-2")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Status != "skipped" {
		t.Fatalf("want one skipped row, got %+v", rows)
	}
	if rows[0].FailReason == "" {
		t.Error("skip reason must be recorded")
	}

	versions, err := s.VersionCount("run-2")
	if err != nil {
		t.Fatal(err)
	}
	if versions != 0 {
		t.Errorf("versions = %d, want 0 for a skipped event", versions)
	}
}

func TestCommitEventRejectsDuplicateIndex(t *testing.T) {
	s := newTestStore(t)
	if err := s.BeginRun("run-3", "Mara"); err != nil {
		t.Fatal(err)
	}
	if err := s.CommitEvent(okRecord("run-3", 0)); err != nil {
		t.Fatal(err)
	}

	dup := okRecord("run-3", 0)
	dup.Post.VersionID = "post-2"
	if err := s.CommitEvent(dup); err == nil {
		t.Fatal("a second commit for the same event index must fail")
	}
}

func TestTrajectoryOrdersByEventIndex(t *testing.T) {
	s := newTestStore(t)
	if err := s.BeginRun("run-4", "Mara"); err != nil {
		t.Fatal(err)
	}
	for _, idx := range []int{2, 0, 1} {
		rec := okRecord("run-4", idx)
		rec.Post.VersionID = rec.Post.VersionID + string(rune('a'+idx))
		if err := s.CommitEvent(rec); err != nil {
			t.Fatal(err)
		}
	}

	rows, err := s.Trajectory("run-4")
	if err != nil {
		t.Fatal(err)
	}
	for i, row := range rows {
		if row.EventIndex != i {
			t.Errorf("row %d has event_index %d", i, row.EventIndex)
		}
	}
}
