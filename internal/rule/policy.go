// Package rule evaluates the whale-trap composite rule over the latest two
// indicator points of a series.
//
// Two named policies exist: "conjunction" (strict AND of the four core
// conditions) and "score" (at least Threshold of nine factors held). Policies
// are pure: short or warm-up input yields no signal, never a panic.
package rule

import (
	"fmt"
	"strings"

	"whale-trap-scanner/internal/indicator"
	"whale-trap-scanner/internal/model"
)

// Sub-condition names, recorded on emitted signals for audit.
const (
	CondRSIRecovery       = "rsi_recovery" // prev RSI < 30 and latest RSI > 50
	CondPriceAboveEMA     = "price_above_ema20"
	CondOBVSurge          = "obv_surge" // one-bar OBV jump > 2x mean volume
	CondATRSpike          = "atr_spike" // ATR > 1.5x its 20-bar rolling mean
	CondRSIRising         = "rsi_rising"
	CondPriceAboveEMASlow = "price_above_ema50"
	CondEMAAlignment      = "ema20_above_ema50"
	CondOBVRising         = "obv_rising"
	CondVolumeSpike       = "volume_spike" // latest volume > 2x mean volume
)

// Rule thresholds shared by both policies.
const (
	rsiOversold    = 30.0
	rsiRecovered   = 50.0
	obvSurgeFactor = 2.0
	atrSpikeFactor = 1.5
	volSpikeFactor = 2.0
)

// Policy decides whether a series plus its indicators constitute a signal.
type Policy interface {
	Name() string

	// Evaluate returns a Signal when the rule fires, nil otherwise.
	Evaluate(series *model.Series, set *indicator.Set) *model.Signal
}

// ByName constructs a named policy. threshold only applies to "score";
// precision is the decimal precision of prices in alert messages.
func ByName(name string, threshold, precision int) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "conjunction", "strict", "":
		return &Conjunction{precision: precision}, nil
	case "score", "weighted":
		return &TrapScore{Threshold: threshold, precision: precision}, nil
	default:
		return nil, fmt.Errorf("unknown rule policy %q", name)
	}
}

// factors evaluates every sub-condition at the latest index against the
// previous one. ok is false when fewer than two valid trailing points exist.
func factors(series *model.Series, set *indicator.Set) (conds []model.Condition, ok bool) {
	n := series.Len()
	if set == nil || n < 2 || set.Len() != n {
		return nil, false
	}
	last, prev := n-1, n-2
	if !set.Valid(last) || !set.Valid(prev) {
		return nil, false
	}

	lastCandle := series.Candles[last]
	obvDelta := set.OBV[last] - set.OBV[prev]

	conds = []model.Condition{
		{Name: CondRSIRecovery, Held: set.RSI[prev] < rsiOversold && set.RSI[last] > rsiRecovered},
		{Name: CondPriceAboveEMA, Held: lastCandle.Close > set.EMAFast[last]},
		{Name: CondOBVSurge, Held: obvDelta > obvSurgeFactor*set.VolumeMean},
		{Name: CondATRSpike, Held: set.ATR[last] > atrSpikeFactor*set.ATRMean[last]},
		{Name: CondRSIRising, Held: set.RSI[last] > set.RSI[prev]},
		{Name: CondPriceAboveEMASlow, Held: lastCandle.Close > set.EMASlow[last]},
		{Name: CondEMAAlignment, Held: set.EMAFast[last] > set.EMASlow[last]},
		{Name: CondOBVRising, Held: obvDelta > 0},
		{Name: CondVolumeSpike, Held: lastCandle.Volume > volSpikeFactor*set.VolumeMean},
	}
	return conds, true
}

// newSignal builds the immutable Signal for a fired rule.
func newSignal(series *model.Series, conds []model.Condition, policy string, precision int) *model.Signal {
	last := series.Last()
	return &model.Signal{
		Symbol:     series.Symbol,
		Time:       last.OpenTime,
		Price:      last.Close,
		Policy:     policy,
		Conditions: conds,
		Message: fmt.Sprintf("Whale trap signal detected on %s at %.*f",
			series.Symbol, precision, last.Close),
	}
}
