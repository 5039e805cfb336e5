package indicator

import "whale-trap-scanner/internal/model"

// OBV calculates On-Balance Volume: a running cumulative sum starting at
// zero, incremented by volume when the close rises versus the prior close,
// decremented when it falls, unchanged on a tie.
type OBV struct {
	count     int
	prevClose float64
	current   float64
}

// NewOBV creates a new OBV indicator.
func NewOBV() *OBV {
	return &OBV{}
}

func (o *OBV) Name() string { return "OBV" }

func (o *OBV) Update(candle model.Candle) {
	o.count++

	if o.count == 1 {
		// OBV[0] = 0 by convention
		o.prevClose = candle.Close
		return
	}

	switch {
	case candle.Close > o.prevClose:
		o.current += candle.Volume
	case candle.Close < o.prevClose:
		o.current -= candle.Volume
	}
	o.prevClose = candle.Close
}

func (o *OBV) Value() float64 { return o.current }

// Ready is true from the first candle: OBV has no warm-up window.
func (o *OBV) Ready() bool { return o.count >= 1 }
