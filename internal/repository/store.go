package repository

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// #region schema
const caseSchema = `
CREATE TABLE IF NOT EXISTS exemplar_cases (
	case_id      TEXT PRIMARY KEY,
	category     TEXT NOT NULL,
	event_text   TEXT NOT NULL,
	response     TEXT NOT NULL,
	quality      REAL NOT NULL,
	affect       REAL NOT NULL,
	meaning      REAL NOT NULL,
	strain       REAL NOT NULL,
	embedding    BLOB,
	seq          INTEGER NOT NULL,
	admitted_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cases_category ON exemplar_cases(category);
`
// #endregion schema

// #region case-store
// caseStore persists admitted cases so a repository survives process
// restarts. It shares the run database.
type caseStore struct {
	db *sql.DB
}

func newCaseStore(db *sql.DB) (*caseStore, error) {
	if _, err := db.Exec(caseSchema); err != nil {
		return nil, fmt.Errorf("migrate cases: %w", err)
	}
	return &caseStore{db: db}, nil
}

func (s *caseStore) insert(c *ExemplarCase) error {
	_, err := s.db.Exec(
		`INSERT INTO exemplar_cases
		 (case_id, category, event_text, response, quality, affect, meaning, strain, embedding, seq, admitted_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Category, c.Event, c.Response, c.Quality,
		c.Affect, c.Meaning, c.Strain,
		encodeVector(c.Embedding), c.seq,
		c.AdmittedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert case: %w", err)
	}
	return nil
}

func (s *caseStore) remove(id string) error {
	if _, err := s.db.Exec(`DELETE FROM exemplar_cases WHERE case_id = ?`, id); err != nil {
		return fmt.Errorf("remove case: %w", err)
	}
	return nil
}

func (s *caseStore) loadAll() ([]*ExemplarCase, int64, error) {
	rows, err := s.db.Query(
		`SELECT case_id, category, event_text, response, quality, affect, meaning, strain, embedding, seq, admitted_at
		 FROM exemplar_cases ORDER BY seq`,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("load cases: %w", err)
	}
	defer rows.Close()

	var cases []*ExemplarCase
	var maxSeq int64
	for rows.Next() {
		c := &ExemplarCase{}
		var blob []byte
		var admittedStr string
		err := rows.Scan(
			&c.ID, &c.Category, &c.Event, &c.Response, &c.Quality,
			&c.Affect, &c.Meaning, &c.Strain, &blob, &c.seq, &admittedStr,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan case: %w", err)
		}
		c.Embedding = decodeVector(blob)
		c.AdmittedAt, _ = time.Parse(time.RFC3339Nano, admittedStr)
		if c.seq > maxSeq {
			maxSeq = c.seq
		}
		cases = append(cases, c)
	}
	return cases, maxSeq, rows.Err()
}
// #endregion case-store

// #region vector-codec
// Vectors are stored as little-endian float32 sequences.
func encodeVector(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	out := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(f))
	}
	return out
}

func decodeVector(b []byte) []float32 {
	if len(b) < 4 {
		return nil
	}
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return out
}
// #endregion vector-codec
