package rule

import (
	"whale-trap-scanner/internal/indicator"
	"whale-trap-scanner/internal/model"
)

// coreConditions is how many leading factors form the strict rule.
const coreConditions = 4

// Conjunction is the strict whale-trap rule: RSI recovery AND price above
// EMA(20) AND OBV surge AND ATR spike must all hold on the latest bar.
type Conjunction struct {
	precision int
}

func (c *Conjunction) Name() string { return "conjunction" }

func (c *Conjunction) Evaluate(series *model.Series, set *indicator.Set) *model.Signal {
	conds, ok := factors(series, set)
	if !ok {
		return nil
	}
	for _, cond := range conds[:coreConditions] {
		if !cond.Held {
			return nil
		}
	}
	return newSignal(series, conds, c.Name(), c.precision)
}
