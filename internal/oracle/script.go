package oracle

import (
	"context"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math"
	"sync"
)

// #region scripted-oracle
// ScriptedOracle replays pre-recorded oracle outputs in call order. It
// backs deterministic tests and fixture replay: each capability consumes
// its own queue, and an exhausted queue is a malformed oracle error so a
// divergent run fails loudly instead of silently improvising.
type ScriptedOracle struct {
	mu          sync.Mutex
	generations []textStep
	rewrites    []textStep
	judgments   map[Dimension][]judgeStep
	impacts     []impactStep
}

type textStep struct {
	text string
	err  *Error
}

type judgeStep struct {
	result JudgeResult
	err    *Error
}

type impactStep struct {
	result ImpactResult
	err    *Error
}

// NewScriptedOracle returns an empty script; queue steps with the Push
// and Fail methods before use.
func NewScriptedOracle() *ScriptedOracle {
	return &ScriptedOracle{judgments: make(map[Dimension][]judgeStep)}
}

// PushGenerate queues a draft response.
func (s *ScriptedOracle) PushGenerate(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generations = append(s.generations, textStep{text: text})
}

// FailGenerate queues a generation failure of the given kind.
func (s *ScriptedOracle) FailGenerate(kind ErrorKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generations = append(s.generations, textStep{err: scriptedErr(kind, "generate")})
}

// PushJudge queues a sub-judgment for one dimension.
func (s *ScriptedOracle) PushJudge(dim Dimension, score float64, evidence ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.judgments[dim] = append(s.judgments[dim], judgeStep{result: JudgeResult{Score: score, Evidence: evidence}})
}

// FailJudge queues a judgment failure for one dimension.
func (s *ScriptedOracle) FailJudge(dim Dimension, kind ErrorKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.judgments[dim] = append(s.judgments[dim], judgeStep{err: scriptedErr(kind, "judge")})
}

// PushRewrite queues a rewritten response.
func (s *ScriptedOracle) PushRewrite(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rewrites = append(s.rewrites, textStep{text: text})
}

// FailRewrite queues a rewrite failure of the given kind.
func (s *ScriptedOracle) FailRewrite(kind ErrorKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rewrites = append(s.rewrites, textStep{err: scriptedErr(kind, "rewrite")})
}

// PushImpact queues an impact assessment.
func (s *ScriptedOracle) PushImpact(affect, meaning, strain float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.impacts = append(s.impacts, impactStep{result: ImpactResult{
		DeltaAffect:  affect,
		DeltaMeaning: meaning,
		DeltaStrain:  strain,
	}})
}

// FailImpact queues an impact assessment failure of the given kind.
func (s *ScriptedOracle) FailImpact(kind ErrorKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.impacts = append(s.impacts, impactStep{err: scriptedErr(kind, "impact")})
}

// Generate pops the next scripted draft.
func (s *ScriptedOracle) Generate(_ context.Context, _ GenerateRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.generations) == 0 {
		return "", scriptedErr(KindMalformed, "generate")
	}
	step := s.generations[0]
	s.generations = s.generations[1:]
	if step.err != nil {
		return "", step.err
	}
	return step.text, nil
}

// Judge pops the next scripted sub-judgment for the requested dimension.
func (s *ScriptedOracle) Judge(_ context.Context, req JudgeRequest) (JudgeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	queue := s.judgments[req.Dimension]
	if len(queue) == 0 {
		return JudgeResult{}, scriptedErr(KindMalformed, "judge")
	}
	step := queue[0]
	s.judgments[req.Dimension] = queue[1:]
	if step.err != nil {
		return JudgeResult{}, step.err
	}
	return step.result, nil
}

// Rewrite pops the next scripted rewrite.
func (s *ScriptedOracle) Rewrite(_ context.Context, _ RewriteRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.rewrites) == 0 {
		return "", scriptedErr(KindMalformed, "rewrite")
	}
	step := s.rewrites[0]
	s.rewrites = s.rewrites[1:]
	if step.err != nil {
		return "", step.err
	}
	return step.text, nil
}

// AssessImpact pops the next scripted impact assessment.
func (s *ScriptedOracle) AssessImpact(_ context.Context, _ ImpactRequest) (ImpactResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.impacts) == 0 {
		return ImpactResult{}, scriptedErr(KindMalformed, "impact")
	}
	step := s.impacts[0]
	s.impacts = s.impacts[1:]
	if step.err != nil {
		return ImpactResult{}, step.err
	}
	return step.result, nil
}

// Exhausted reports whether every queued step was consumed. Replay uses
// this to detect a fixture that scripted more calls than the run made.
func (s *ScriptedOracle) Exhausted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.generations) > 0 || len(s.rewrites) > 0 || len(s.impacts) > 0 {
		return false
	}
	for _, queue := range s.judgments {
		if len(queue) > 0 {
			return false
		}
	}
	return true
}

func scriptedErr(kind ErrorKind, op string) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf("scripted %s step", op)}
}
// #endregion scripted-oracle

// #region hash-embedder
// HashEmbedder is a deterministic stand-in for a real embedding model:
// the vector is derived from an FNV hash of the text, so equal texts
// embed equally and distinct texts almost surely differ.
type HashEmbedder struct {
	Dim int
}

// Embed returns a unit-norm pseudo-embedding of the text.
func (h HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	dim := h.Dim
	if dim <= 0 {
		dim = 8
	}
	out := make([]float32, dim)
	var norm float64
	for i := 0; i < dim; i++ {
		hash := fnv.New64a()
		var idx [8]byte
		binary.LittleEndian.PutUint64(idx[:], uint64(i))
		hash.Write(idx[:])
		hash.Write([]byte(text))
		v := float32(int64(hash.Sum64()%2001)-1000) / 1000
		out[i] = v
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		out[0] = 1
		return out, nil
	}
	for i := range out {
		out[i] = float32(float64(out[i]) / math.Sqrt(norm))
	}
	return out, nil
}
// #endregion hash-embedder
