package oracle

import (
	"fmt"
	"strings"
)

// #region generate-prompt
func buildGeneratePrompt(req GenerateRequest) string {
	var b strings.Builder
	b.WriteString("You are role-playing a persona. Stay fully in character.\n\n")
	b.WriteString("[Character Traits]\n")
	writeTraits(&b, req.Traits)
	fmt.Fprintf(&b, "\n[Current State]\nAffect: %.1f/10\nMeaning: %.1f/10\nStrain: %.1f/10\n", req.Affect, req.Meaning, req.Strain)
	if req.StateDescription != "" {
		fmt.Fprintf(&b, "Overall: %s\n", req.StateDescription)
	}
	fmt.Fprintf(&b, "\n[Event]\n%s\n", req.Event)
	b.WriteString("\nRespond to the event as this persona would, in first person. Output only the response text.\n")
	return b.String()
}
// #endregion generate-prompt

// #region judge-prompt
func buildJudgePrompt(req JudgeRequest) string {
	var b strings.Builder
	b.WriteString("You are a persona consistency evaluator.\n\n")

	switch req.Dimension {
	case DimensionTrait:
		b.WriteString("Judge whether the response preserves the character's identity traits.\n\n[Character Traits]\n")
		writeTraits(&b, req.Traits)
	case DimensionAffect:
		fmt.Fprintf(&b, "Judge whether the response's expressed emotion matches the expected affect level.\n\n[Expected Affect]\nValue: %.1f/10 (%s)\n", req.Affect, req.AffectBand)
	case DimensionCoherence:
		fmt.Fprintf(&b, "Judge whether the response is coherent with the character's sense of meaning and strain.\n\n[Expected State]\nMeaning: %.1f/10, Strain: %.1f/10\nDescription: %s\n", req.Meaning, req.Strain, req.StateDescription)
	}

	fmt.Fprintf(&b, "\n[Event]\n%s\n\n[Response]\n%s\n", req.Event, req.Response)
	b.WriteString("\nOutput JSON only: {\"score\": <0.0-1.0>, \"evidence\": [\"<quoted span>\", ...]}\n")
	b.WriteString("Cite evidence spans from the response; an unsupported score is invalid.\n")
	return b.String()
}
// #endregion judge-prompt

// #region rewrite-prompt
func buildRewritePrompt(req RewriteRequest) string {
	var b strings.Builder
	b.WriteString("You are a persona consistency expert. Rewrite the response below so it stays in character.\n\n")
	b.WriteString("[Character Traits]\n")
	writeTraits(&b, req.Traits)
	fmt.Fprintf(&b, "\n[Current State]\nAffect: %.1f/10\nMeaning: %.1f/10\nStrain: %.1f/10\n", req.Affect, req.Meaning, req.Strain)
	if req.StateDescription != "" {
		fmt.Fprintf(&b, "Overall: %s\n", req.StateDescription)
	}
	fmt.Fprintf(&b, "\n[Event]\n%s\n\n[Original Response, which drifts from the persona]\n%s\n", req.Event, req.Response)

	if len(req.Evidence) > 0 {
		b.WriteString("\n[Detected Problems]\n")
		for _, ev := range req.Evidence {
			fmt.Fprintf(&b, "- %s\n", ev)
		}
	}

	if req.Strategy == StrategyCaseGuided && len(req.Exemplars) > 0 {
		b.WriteString("\n[High-Quality Past Cases]\n")
		for i, ex := range req.Exemplars {
			fmt.Fprintf(&b, "Case %d:\n  Event: %s\n  State: affect=%.1f meaning=%.1f strain=%.1f\n  Response: %s\n",
				i+1, ex.Event, ex.Affect, ex.Meaning, ex.Strain, ex.Response)
		}
		b.WriteString("\nLearn the expression patterns from the cases. Do not copy their content.\n")
	}

	b.WriteString("\n[Requirements]\n- Preserve every character trait.\n- Match the emotional register to the affect value.\n- Reflect the meaning/strain state.\n\nOutput only the rewritten response.\n")
	return b.String()
}
// #endregion rewrite-prompt

// #region impact-prompt
func buildImpactPrompt(req ImpactRequest) string {
	var b strings.Builder
	b.WriteString("Assess the psychological impact of this event on the persona below.\n\n")
	b.WriteString("[Character Traits]\n")
	writeTraits(&b, req.Traits)
	fmt.Fprintf(&b, "\n[Current State]\nAffect: %.1f/10, Meaning: %.1f/10, Strain: %.1f/10\n", req.Affect, req.Meaning, req.Strain)
	fmt.Fprintf(&b, "\n[Event]\n%s\n", req.Event)
	b.WriteString("\nEstimate the change each dimension undergoes, each in [-2.0, +2.0]:\n")
	b.WriteString("- affect: short-term emotion shift\n- meaning: sense of purpose shift\n- strain: stress shift\n")
	b.WriteString("\nOutput JSON only: {\"affect\": <n>, \"meaning\": <n>, \"strain\": <n>}\n")
	return b.String()
}
// #endregion impact-prompt

// #region helpers
func writeTraits(b *strings.Builder, traits []string) {
	for _, t := range traits {
		fmt.Fprintf(b, "- %s\n", t)
	}
}
// #endregion helpers
