package runner

import (
	"context"

	"github.com/danielpatrickdp/persona-drift/internal/oracle"
	"github.com/danielpatrickdp/persona-drift/internal/state"
)

// #region impact
// assessImpact asks the oracle how the event moves each state layer and
// shapes the answer into an applicable delta. Model output is advisory:
// each component is clamped to the delta bound so an overshooting
// assessment degrades to the bound instead of rejecting the event.
func assessImpact(ctx context.Context, o oracle.Oracle, pre state.Snapshot, ev Event, bound float64) (state.Delta, error) {
	res, err := o.AssessImpact(ctx, oracle.ImpactRequest{
		Traits:  pre.Traits.Descriptors(),
		Affect:  pre.Short.Affect,
		Meaning: pre.Mid.Meaning,
		Strain:  pre.Mid.Strain,
		Event:   ev.Text,
	})
	if err != nil {
		return state.Delta{}, err
	}
	return state.Delta{
		Affect:  clampComponent(res.DeltaAffect, bound),
		Meaning: clampComponent(res.DeltaMeaning, bound),
		Strain:  clampComponent(res.DeltaStrain, bound),
	}, nil
}

func clampComponent(v, bound float64) float64 {
	if v < -bound {
		return -bound
	}
	if v > bound {
		return bound
	}
	return v
}
// #endregion impact
