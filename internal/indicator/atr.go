package indicator

import (
	"math"

	"whale-trap-scanner/internal/model"
)

// ATR calculates the Average True Range with Wilder smoothing: the first
// value is the simple average of the first period true ranges, then
// ATR = (prev*(period-1) + TR) / period.
//
// True range needs the prior close, so the first candle only primes state and
// the first ATR value appears after period+1 candles.
type ATR struct {
	period    int
	count     int
	prevClose float64
	sum       float64
	current   float64
}

// NewATR creates a new ATR indicator with the given period (typically 14).
func NewATR(period int) *ATR {
	return &ATR{period: period}
}

func (a *ATR) Name() string { return "ATR" }

func (a *ATR) Update(candle model.Candle) {
	a.count++

	if a.count == 1 {
		a.prevClose = candle.Close
		return
	}

	tr := trueRange(candle, a.prevClose)
	a.prevClose = candle.Close

	if a.count <= a.period+1 {
		// Accumulation phase: build the initial average
		a.sum += tr
		if a.count == a.period+1 {
			a.current = a.sum / float64(a.period)
		}
		return
	}

	// Wilder-style smoothing
	a.current = (a.current*float64(a.period-1) + tr) / float64(a.period)
}

func (a *ATR) Value() float64 { return a.current }
func (a *ATR) Ready() bool    { return a.count > a.period }

// trueRange is max(high-low, |high-prevClose|, |low-prevClose|).
func trueRange(c model.Candle, prevClose float64) float64 {
	tr := c.High - c.Low
	if hc := math.Abs(c.High - prevClose); hc > tr {
		tr = hc
	}
	if lc := math.Abs(c.Low - prevClose); lc > tr {
		tr = lc
	}
	return tr
}
