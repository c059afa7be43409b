// Package replay re-runs recorded fixtures: a persona, an event
// sequence, and every oracle output the original run consumed. Because
// the oracle is scripted, a replay is fully deterministic and any
// divergence from the recorded expectations indicates a behavior change.
package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/danielpatrickdp/persona-drift/internal/oracle"
	"github.com/danielpatrickdp/persona-drift/internal/persona"
	"github.com/danielpatrickdp/persona-drift/internal/runner"
)

// #region fixture
// ScriptedJudgment is one recorded sub-judgment.
type ScriptedJudgment struct {
	Score    float64  `json:"score"`
	Evidence []string `json:"evidence,omitempty"`
}

// ScriptedImpact is one recorded impact assessment.
type ScriptedImpact struct {
	Affect  float64 `json:"affect"`
	Meaning float64 `json:"meaning"`
	Strain  float64 `json:"strain"`
}

// Script holds every oracle output the run consumed, per capability, in
// call order. Judgments are keyed by dimension name.
type Script struct {
	Generations []string                      `json:"generations"`
	Judgments   map[string][]ScriptedJudgment `json:"judgments"`
	Rewrites    []string                      `json:"rewrites,omitempty"`
	Impacts     []ScriptedImpact              `json:"impacts"`
}

// ExpectedEvent is the recorded outcome replay must reproduce.
type ExpectedEvent struct {
	EventIndex   int     `json:"event_index"`
	Status       string  `json:"status"`
	PCC          float64 `json:"pcc"`
	WasRewritten bool    `json:"was_rewritten"`
	PostAffect   float64 `json:"post_affect"`
	PostMeaning  float64 `json:"post_meaning"`
	PostStrain   float64 `json:"post_strain"`
}

// Fixture is a complete recorded run.
type Fixture struct {
	Persona  persona.Persona `json:"persona"`
	Events   []runner.Event  `json:"events"`
	Script   Script          `json:"script"`
	Expected []ExpectedEvent `json:"expected"`
}

// LoadFixture reads and validates a fixture file.
func LoadFixture(path string) (*Fixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	var f Fixture
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	if err := f.Persona.Validate(); err != nil {
		return nil, fmt.Errorf("fixture persona: %w", err)
	}
	if len(f.Events) == 0 {
		return nil, fmt.Errorf("fixture has no events")
	}
	if len(f.Expected) != len(f.Events) {
		return nil, fmt.Errorf("fixture has %d events but %d expectations", len(f.Events), len(f.Expected))
	}
	return &f, nil
}
// #endregion fixture

// #region script-oracle
// buildOracle queues the recorded script into a scripted oracle.
func (f *Fixture) buildOracle() (*oracle.ScriptedOracle, error) {
	o := oracle.NewScriptedOracle()
	for _, g := range f.Script.Generations {
		o.PushGenerate(g)
	}
	for _, r := range f.Script.Rewrites {
		o.PushRewrite(r)
	}
	for _, i := range f.Script.Impacts {
		o.PushImpact(i.Affect, i.Meaning, i.Strain)
	}
	for name, steps := range f.Script.Judgments {
		dim := oracle.Dimension(name)
		switch dim {
		case oracle.DimensionTrait, oracle.DimensionAffect, oracle.DimensionCoherence:
		default:
			return nil, fmt.Errorf("unknown judgment dimension %q", name)
		}
		for _, s := range steps {
			o.PushJudge(dim, s.Score, s.Evidence...)
		}
	}
	return o, nil
}
// #endregion script-oracle
