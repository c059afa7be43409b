// Package runner drives a full persona run: one sequential pass over
// the event list, with the generate, judge, correct, apply, persist,
// admit cycle executed exactly once per event.
package runner

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// #region event
// Event is one item of a run's input sequence.
type Event struct {
	Category string `json:"category"`
	Text     string `json:"text"`
}

// LoadEvents reads a JSON event list.
func LoadEvents(path string) ([]Event, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	var events []Event
	if err := json.Unmarshal(raw, &events); err != nil {
		return nil, fmt.Errorf("parse events: %w", err)
	}
	for i, ev := range events {
		if ev.Category == "" {
			return nil, fmt.Errorf("event %d: missing category", i)
		}
		if ev.Text == "" {
			return nil, fmt.Errorf("event %d: missing text", i)
		}
	}
	return events, nil
}
// #endregion event

// #region config
// RunnerConfig bounds the retry policy for transient oracle failures.
// Malformed oracle output is never retried.
type RunnerConfig struct {
	MaxRetries int           // additional attempts after the first
	Backoff    time.Duration // base backoff, doubled per retry
}

// DefaultRunnerConfig returns the standard retry policy.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		MaxRetries: 2,
		Backoff:    time.Second,
	}
}
// #endregion config

// #region summary
// Summary aggregates a completed run.
type Summary struct {
	RunID     string
	Events    int
	Completed int
	Skipped   int
	Corrected int
	Failed    int // corrections attempted and lost to the rescore check
	Admitted  int
	MeanPCC   float64 // over completed events
}
// #endregion summary
