package indicator

import (
	"fmt"
	"math"

	"whale-trap-scanner/internal/model"
)

// Lookback periods for the whale-trap indicator set.
const (
	RSIPeriod     = 14
	ATRPeriod     = 14
	EMAFastPeriod = 20
	EMASlowPeriod = 50
	ATRMeanWindow = 20
)

// Set holds the computed indicator columns, index-aligned to the input
// series. Warm-up indices are NaN, never zero, so "not yet available" is
// distinguishable from a legitimate zero value.
type Set struct {
	RSI     []float64
	OBV     []float64
	ATR     []float64
	EMAFast []float64 // EMA(20)
	EMASlow []float64 // EMA(50)
	ATRMean []float64 // rolling 20-bar mean of ATR

	VolumeMean float64 // arithmetic mean of volume over the full series
}

// Len returns the column length (equal to the input series length).
func (s *Set) Len() int { return len(s.RSI) }

// Defined reports whether v is a computed value rather than a warm-up marker.
func Defined(v float64) bool { return !math.IsNaN(v) }

// Valid reports whether every column the evaluator reads is defined at i.
func (s *Set) Valid(i int) bool {
	if i < 0 || i >= s.Len() {
		return false
	}
	return Defined(s.RSI[i]) && Defined(s.OBV[i]) && Defined(s.ATR[i]) &&
		Defined(s.EMAFast[i]) && Defined(s.EMASlow[i]) && Defined(s.ATRMean[i])
}

// Compute derives the full indicator set for a series. It is a pure function
// of its input: no I/O, no retained state, identical output for identical
// input.
func Compute(series *model.Series) (*Set, error) {
	if series.Len() == 0 {
		return nil, fmt.Errorf("compute %s: empty series", series.Symbol)
	}
	if err := series.Validate(); err != nil {
		return nil, fmt.Errorf("compute: %w", err)
	}

	n := series.Len()
	set := &Set{
		RSI:     nanColumn(n),
		OBV:     nanColumn(n),
		ATR:     nanColumn(n),
		EMAFast: nanColumn(n),
		EMASlow: nanColumn(n),
		ATRMean: nanColumn(n),
	}

	rsi := NewRSI(RSIPeriod)
	obv := NewOBV()
	atr := NewATR(ATRPeriod)
	emaFast := NewEMA(EMAFastPeriod)
	emaSlow := NewEMA(EMASlowPeriod)
	atrMean := NewSMA(ATRMeanWindow)

	volSum := 0.0
	for i, c := range series.Candles {
		rsi.Update(c)
		obv.Update(c)
		atr.Update(c)
		emaFast.Update(c)
		emaSlow.Update(c)
		volSum += c.Volume

		if rsi.Ready() {
			set.RSI[i] = rsi.Value()
		}
		if obv.Ready() {
			set.OBV[i] = obv.Value()
		}
		if atr.Ready() {
			set.ATR[i] = atr.Value()
			// The rolling mean consumes ATR values, so its warm-up
			// stacks on top of the ATR warm-up.
			atrMean.Add(atr.Value())
			if atrMean.Ready() {
				set.ATRMean[i] = atrMean.Value()
			}
		}
		if emaFast.Ready() {
			set.EMAFast[i] = emaFast.Value()
		}
		if emaSlow.Ready() {
			set.EMASlow[i] = emaSlow.Value()
		}
	}
	set.VolumeMean = volSum / float64(n)

	return set, nil
}

func nanColumn(n int) []float64 {
	col := make([]float64, n)
	for i := range col {
		col[i] = math.NaN()
	}
	return col
}
