// Package oracle defines the language and embedding capabilities the
// controller consumes, plus the failure taxonomy shared by all adapters.
// The core never depends on a concrete model: anything implementing Oracle
// and Embedder can drive a run.
package oracle

import (
	"context"
	"errors"
	"fmt"
)

// #region error-taxonomy
// ErrorKind classifies an oracle failure.
type ErrorKind string

const (
	KindTimeout     ErrorKind = "timeout"      // retryable with backoff
	KindRateLimited ErrorKind = "rate_limited" // retryable with backoff
	KindMalformed   ErrorKind = "malformed"    // never auto-retried
)

// Error wraps any generation, judgment, rewrite, or embedding failure.
// Callers own the retry policy; no component substitutes a default score
// or empty evidence in place of a failed call.
type Error struct {
	Kind ErrorKind
	Op   string // "generate" | "judge" | "rewrite" | "embed" | "impact"
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("oracle %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether err is a transient oracle failure that the
// caller may retry with backoff.
func Retryable(err error) bool {
	var oe *Error
	if !errors.As(err, &oe) {
		return false
	}
	return oe.Kind == KindTimeout || oe.Kind == KindRateLimited
}
// #endregion error-taxonomy

// #region dimensions
// Dimension names a judgment axis.
type Dimension string

const (
	DimensionTrait     Dimension = "trait"     // response vs static traits
	DimensionAffect    Dimension = "affect"    // expressed emotion vs affect value
	DimensionCoherence Dimension = "coherence" // response vs meaning/strain bucket
)
// #endregion dimensions

// #region requests
// GenerateRequest carries everything a draft response is conditioned on.
type GenerateRequest struct {
	Traits           []string
	Affect           float64
	Meaning          float64
	Strain           float64
	StateDescription string // semantic meaning/strain bucket text
	Event            string
}

// JudgeRequest carries the context for one dimension's sub-judgment. The
// numeric state fields are passed explicitly rather than as free text so
// the adapter controls how they are rendered.
type JudgeRequest struct {
	Dimension        Dimension
	Traits           []string
	Affect           float64
	AffectBand       string // e.g. "subdued", for the affect dimension
	Meaning          float64
	Strain           float64
	StateDescription string // for the coherence dimension
	Event            string
	Response         string
}

// JudgeResult is one sub-judgment: a score in [0, 1] plus supporting
// evidence references. Evidence strings are opaque to the core.
type JudgeResult struct {
	Score    float64
	Evidence []string
}

// Exemplar is a retrieved case rendered into a rewrite demonstration.
type Exemplar struct {
	Event    string
	Response string
	Affect   float64
	Meaning  float64
	Strain   float64
}

// RewriteStrategy selects the correction mode for a rewrite call.
type RewriteStrategy string

const (
	StrategyTraitOnly  RewriteStrategy = "trait_only"
	StrategyCaseGuided RewriteStrategy = "case_guided"
)

// RewriteRequest carries the low-scoring response, its judgment evidence,
// and (for case-guided rewrites) retrieved exemplars.
type RewriteRequest struct {
	Strategy         RewriteStrategy
	Traits           []string
	Affect           float64
	Meaning          float64
	Strain           float64
	StateDescription string
	Event            string
	Response         string
	Evidence         []string
	Exemplars        []Exemplar
}

// ImpactRequest asks for the psychological impact of an event on this
// persona. Identical events affect different personas differently, so the
// trait vector is part of the context.
type ImpactRequest struct {
	Traits  []string
	Affect  float64
	Meaning float64
	Strain  float64
	Event   string
}

// ImpactResult holds per-layer deltas, each expected in [-2.0, +2.0].
type ImpactResult struct {
	DeltaAffect  float64
	DeltaMeaning float64
	DeltaStrain  float64
}
// #endregion requests

// #region interfaces
// Oracle is the language capability: draft generation, dimensional
// judgment, drift rewriting, and event impact assessment. Calls block and
// honor ctx deadlines; failures surface as *Error.
type Oracle interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
	Judge(ctx context.Context, req JudgeRequest) (JudgeResult, error)
	Rewrite(ctx context.Context, req RewriteRequest) (string, error)
	AssessImpact(ctx context.Context, req ImpactRequest) (ImpactResult, error)
}

// Embedder produces fixed-length dense vectors for event text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
// #endregion interfaces
