package rule

import (
	"whale-trap-scanner/internal/indicator"
	"whale-trap-scanner/internal/model"
)

// DefaultScoreThreshold is the minimum held-factor count for the score
// policy to fire.
const DefaultScoreThreshold = 4

// TrapScore is the weighted whale-trap variant: instead of a strict
// conjunction it counts how many of the nine factors hold and fires once the
// count reaches Threshold. Lower thresholds trade precision for recall.
type TrapScore struct {
	Threshold int
	precision int
}

func (t *TrapScore) Name() string { return "score" }

func (t *TrapScore) Evaluate(series *model.Series, set *indicator.Set) *model.Signal {
	conds, ok := factors(series, set)
	if !ok {
		return nil
	}

	threshold := t.Threshold
	if threshold <= 0 {
		threshold = DefaultScoreThreshold
	}

	score := 0
	for _, cond := range conds {
		if cond.Held {
			score++
		}
	}
	if score < threshold {
		return nil
	}
	return newSignal(series, conds, t.Name(), t.precision)
}
