// Package indicator provides technical indicator calculations over candle data.
//
// Streaming indicators implement the Indicator interface, consuming candles
// one at a time in O(1). Compute runs them across a full series and produces
// index-aligned value columns with NaN marking warm-up indices.
package indicator

import "whale-trap-scanner/internal/model"

// Indicator is the interface for all candle-driven indicators.
type Indicator interface {
	// Name returns the indicator name (e.g., "RSI", "EMA").
	Name() string

	// Update feeds a new candle and recalculates.
	Update(candle model.Candle)

	// Value returns the current calculated value. Returns 0 if not enough data.
	Value() float64

	// Ready returns true when enough data has been accumulated.
	Ready() bool
}
