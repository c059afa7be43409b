package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/atomic"
	"google.golang.org/genai"
)

// #region config
// GenAIConfig configures the Gemini-backed oracle and embedder.
type GenAIConfig struct {
	APIKey      string
	Model       string
	EmbedModel  string
	Temperature float32
}

// DefaultGenAIConfig returns sensible defaults.
func DefaultGenAIConfig(apiKey string) GenAIConfig {
	return GenAIConfig{
		APIKey:      apiKey,
		Model:       "gemini-2.5-flash",
		EmbedModel:  "gemini-embedding-001",
		Temperature: 0.7,
	}
}
// #endregion config

// #region adapter
// GenAIOracle implements Oracle and Embedder on top of the Gemini API.
// Judgment and impact calls request JSON replies and treat any parse
// failure as a malformed oracle error.
type GenAIOracle struct {
	client *genai.Client
	config GenAIConfig

	calls    atomic.Int64
	failures atomic.Int64
}

// Stats reports total oracle calls and failed calls since construction.
type Stats struct {
	Calls    int64
	Failures int64
}

// NewGenAIOracle creates a Gemini-backed oracle.
func NewGenAIOracle(ctx context.Context, config GenAIConfig) (*GenAIOracle, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("genai API key is required")
	}
	if config.Model == "" {
		config.Model = DefaultGenAIConfig("").Model
	}
	if config.EmbedModel == "" {
		config.EmbedModel = DefaultGenAIConfig("").EmbedModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: config.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GenAIOracle{client: client, config: config}, nil
}

// Stats returns call counters for run summaries.
func (o *GenAIOracle) Stats() Stats {
	return Stats{Calls: o.calls.Load(), Failures: o.failures.Load()}
}
// #endregion adapter

// #region capabilities
// Generate drafts an in-character response to the event.
func (o *GenAIOracle) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	return o.complete(ctx, "generate", buildGeneratePrompt(req))
}

// Judge scores the response on one dimension and returns cited evidence.
func (o *GenAIOracle) Judge(ctx context.Context, req JudgeRequest) (JudgeResult, error) {
	raw, err := o.complete(ctx, "judge", buildJudgePrompt(req))
	if err != nil {
		return JudgeResult{}, err
	}

	var parsed struct {
		Score    float64  `json:"score"`
		Evidence []string `json:"evidence"`
	}
	if err := json.Unmarshal([]byte(stripFence(raw)), &parsed); err != nil {
		o.failures.Inc()
		return JudgeResult{}, &Error{Kind: KindMalformed, Op: "judge", Err: fmt.Errorf("parse judgment: %w", err)}
	}
	if parsed.Score < 0 || parsed.Score > 1 {
		o.failures.Inc()
		return JudgeResult{}, &Error{Kind: KindMalformed, Op: "judge", Err: fmt.Errorf("score %.3f outside [0, 1]", parsed.Score)}
	}
	return JudgeResult{Score: parsed.Score, Evidence: parsed.Evidence}, nil
}

// Rewrite produces a corrected response for a drifting draft.
func (o *GenAIOracle) Rewrite(ctx context.Context, req RewriteRequest) (string, error) {
	return o.complete(ctx, "rewrite", buildRewritePrompt(req))
}

// AssessImpact estimates per-layer deltas for an event. Values are
// reported as the model produced them; the caller enforces bounds.
func (o *GenAIOracle) AssessImpact(ctx context.Context, req ImpactRequest) (ImpactResult, error) {
	raw, err := o.complete(ctx, "impact", buildImpactPrompt(req))
	if err != nil {
		return ImpactResult{}, err
	}

	var parsed struct {
		Affect  float64 `json:"affect"`
		Meaning float64 `json:"meaning"`
		Strain  float64 `json:"strain"`
	}
	if err := json.Unmarshal([]byte(stripFence(raw)), &parsed); err != nil {
		o.failures.Inc()
		return ImpactResult{}, &Error{Kind: KindMalformed, Op: "impact", Err: fmt.Errorf("parse impact: %w", err)}
	}
	return ImpactResult{
		DeltaAffect:  parsed.Affect,
		DeltaMeaning: parsed.Meaning,
		DeltaStrain:  parsed.Strain,
	}, nil
}

// Embed produces a dense vector for event text.
func (o *GenAIOracle) Embed(ctx context.Context, text string) ([]float32, error) {
	o.calls.Inc()

	contents := []*genai.Content{
		genai.NewContentFromText(text, genai.RoleUser),
	}
	result, err := o.client.Models.EmbedContent(ctx, o.config.EmbedModel, contents,
		&genai.EmbedContentConfig{TaskType: "SEMANTIC_SIMILARITY"})
	if err != nil {
		o.failures.Inc()
		return nil, classify("embed", err)
	}
	if len(result.Embeddings) == 0 {
		o.failures.Inc()
		return nil, &Error{Kind: KindMalformed, Op: "embed", Err: errors.New("no embeddings returned")}
	}
	return result.Embeddings[0].Values, nil
}
// #endregion capabilities

// #region completion
func (o *GenAIOracle) complete(ctx context.Context, op, prompt string) (string, error) {
	o.calls.Inc()

	resp, err := o.client.Models.GenerateContent(ctx, o.config.Model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			Temperature: genai.Ptr(o.config.Temperature),
		},
	)
	if err != nil {
		o.failures.Inc()
		return "", classify(op, err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		o.failures.Inc()
		return "", &Error{Kind: KindMalformed, Op: op, Err: errors.New("empty completion")}
	}
	return text, nil
}

// classify maps a transport failure onto the oracle error taxonomy.
// Rate limits and deadline hits are retryable; anything else from the
// wire is treated as a timeout-class transient.
func classify(op string, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &Error{Kind: KindTimeout, Op: op, Err: err}
	}
	msg := err.Error()
	if strings.Contains(msg, "429") || strings.Contains(msg, "RESOURCE_EXHAUSTED") || strings.Contains(strings.ToLower(msg), "rate limit") {
		return &Error{Kind: KindRateLimited, Op: op, Err: err}
	}
	return &Error{Kind: KindTimeout, Op: op, Err: err}
}

// stripFence removes a markdown code fence the model sometimes wraps
// around JSON output.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
// #endregion completion
