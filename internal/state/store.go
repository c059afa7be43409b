package state

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id      TEXT PRIMARY KEY,
	persona     TEXT NOT NULL,
	started_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS state_versions (
	version_id   TEXT PRIMARY KEY,
	run_id       TEXT NOT NULL,
	event_index  INTEGER NOT NULL,
	affect       REAL NOT NULL,
	meaning      REAL NOT NULL,
	strain       REAL NOT NULL,
	created_at   TEXT NOT NULL,
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);

CREATE TABLE IF NOT EXISTS trajectory (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id         TEXT NOT NULL,
	event_index    INTEGER NOT NULL,
	category       TEXT NOT NULL,
	event_text     TEXT NOT NULL,
	response       TEXT,
	status         TEXT NOT NULL,
	pre_affect     REAL, pre_meaning  REAL, pre_strain  REAL,
	post_affect    REAL, post_meaning REAL, post_strain REAL,
	delta_affect   REAL, delta_meaning REAL, delta_strain REAL,
	l_score        REAL, s_score REAL, m_score REAL,
	pcc_original   REAL,
	pcc_rewritten  REAL,
	was_rewritten  INTEGER NOT NULL DEFAULT 0,
	strategy       TEXT,
	fail_reason    TEXT,
	created_at     TEXT NOT NULL,
	UNIQUE (run_id, event_index),
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);
`
// #endregion schema

// #region record-types
// TrajectoryRecord is one durable audit row: the full outcome of a single
// event's cycle, in event order.
type TrajectoryRecord struct {
	RunID      string
	EventIndex int
	Category   string
	EventText  string
	Response   string
	Status     string // "ok" | "skipped"

	Pre   Snapshot
	Post  Snapshot
	Delta Delta

	LScore       float64
	SScore       float64
	MScore       float64
	PCCOriginal  float64
	PCCRewritten *float64 // nil when no correction was attempted
	WasRewritten bool
	Strategy     string
	FailReason   string

	CreatedAt time.Time
}
// #endregion record-types

// #region store
// Store persists run metadata, per-event state versions, and the
// trajectory audit trail in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use by other packages.
func (s *Store) DB() *sql.DB {
	return s.db
}
// #endregion store

// #region begin-run
// BeginRun registers a run row.
func (s *Store) BeginRun(runID, persona string) error {
	_, err := s.db.Exec(
		`INSERT INTO runs (run_id, persona, started_at) VALUES (?, ?, ?)`,
		runID, persona, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	return nil
}
// #endregion begin-run

// #region commit-event
// CommitEvent writes the post-event state version and the trajectory row
// in one transaction. Called only after a fully successful cycle so that
// a failed event never advances the persisted canonical state.
func (s *Store) CommitEvent(rec TrajectoryRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO state_versions (version_id, run_id, event_index, affect, meaning, strain, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.Post.VersionID, rec.RunID, rec.EventIndex,
		rec.Post.Short.Affect, rec.Post.Mid.Meaning, rec.Post.Mid.Strain,
		rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert version: %w", err)
	}

	if err := insertTrajectory(tx, rec); err != nil {
		return err
	}

	return tx.Commit()
}

// RecordSkipped writes a trajectory row for an event whose cycle aborted.
// No state version is written: canonical state did not advance.
func (s *Store) RecordSkipped(rec TrajectoryRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	rec.Status = "skipped"

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := insertTrajectory(tx, rec); err != nil {
		return err
	}
	return tx.Commit()
}

func insertTrajectory(tx *sql.Tx, rec TrajectoryRecord) error {
	wasRewritten := 0
	if rec.WasRewritten {
		wasRewritten = 1
	}

	var pccRewritten interface{}
	if rec.PCCRewritten != nil {
		pccRewritten = *rec.PCCRewritten
	}

	_, err := tx.Exec(
		`INSERT INTO trajectory
		 (run_id, event_index, category, event_text, response, status,
		  pre_affect, pre_meaning, pre_strain,
		  post_affect, post_meaning, post_strain,
		  delta_affect, delta_meaning, delta_strain,
		  l_score, s_score, m_score,
		  pcc_original, pcc_rewritten, was_rewritten, strategy, fail_reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.EventIndex, rec.Category, rec.EventText,
		nullIfEmpty(rec.Response), rec.Status,
		rec.Pre.Short.Affect, rec.Pre.Mid.Meaning, rec.Pre.Mid.Strain,
		rec.Post.Short.Affect, rec.Post.Mid.Meaning, rec.Post.Mid.Strain,
		rec.Delta.Affect, rec.Delta.Meaning, rec.Delta.Strain,
		rec.LScore, rec.SScore, rec.MScore,
		rec.PCCOriginal, pccRewritten, wasRewritten,
		nullIfEmpty(rec.Strategy), nullIfEmpty(rec.FailReason),
		rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert trajectory: %w", err)
	}
	return nil
}
// #endregion commit-event

// #region trajectory
// Trajectory returns all audit rows for a run in event order.
func (s *Store) Trajectory(runID string) ([]TrajectoryRecord, error) {
	rows, err := s.db.Query(
		`SELECT event_index, category, event_text, response, status,
		        pre_affect, pre_meaning, pre_strain,
		        post_affect, post_meaning, post_strain,
		        delta_affect, delta_meaning, delta_strain,
		        l_score, s_score, m_score,
		        pcc_original, pcc_rewritten, was_rewritten, strategy, fail_reason, created_at
		 FROM trajectory WHERE run_id = ? ORDER BY event_index`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query trajectory: %w", err)
	}
	defer rows.Close()

	var records []TrajectoryRecord
	for rows.Next() {
		rec := TrajectoryRecord{RunID: runID}
		var response, strategy, failReason sql.NullString
		var pccRewritten sql.NullFloat64
		var wasRewritten int
		var createdStr string

		err := rows.Scan(
			&rec.EventIndex, &rec.Category, &rec.EventText, &response, &rec.Status,
			&rec.Pre.Short.Affect, &rec.Pre.Mid.Meaning, &rec.Pre.Mid.Strain,
			&rec.Post.Short.Affect, &rec.Post.Mid.Meaning, &rec.Post.Mid.Strain,
			&rec.Delta.Affect, &rec.Delta.Meaning, &rec.Delta.Strain,
			&rec.LScore, &rec.SScore, &rec.MScore,
			&rec.PCCOriginal, &pccRewritten, &wasRewritten, &strategy, &failReason, &createdStr,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trajectory row: %w", err)
		}

		rec.Response = response.String
		rec.Strategy = strategy.String
		rec.FailReason = failReason.String
		rec.WasRewritten = wasRewritten == 1
		if pccRewritten.Valid {
			v := pccRewritten.Float64
			rec.PCCRewritten = &v
		}
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		records = append(records, rec)
	}
	return records, rows.Err()
}
// #endregion trajectory

// #region version-count
// VersionCount returns how many state versions a run committed. One
// successful event commits exactly one version.
func (s *Store) VersionCount(runID string) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM state_versions WHERE run_id = ?`, runID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count versions: %w", err)
	}
	return n, nil
}
// #endregion version-count

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
// #endregion helpers
