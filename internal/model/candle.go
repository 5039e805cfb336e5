package model

import (
	"fmt"
	"regexp"
	"time"
)

// Candle represents one OHLCV kline for a single symbol and interval.
// Prices and volume are float64 as delivered by the exchange.
type Candle struct {
	OpenTime  time.Time `json:"open_time"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	CloseTime time.Time `json:"close_time"`
}

// Series is an ordered candle sequence for one (symbol, interval) pair.
// A Series is built once by the candle source and only read afterwards.
type Series struct {
	Symbol   string
	Interval string
	Candles  []Candle
}

// Len returns the number of candles in the series.
func (s *Series) Len() int { return len(s.Candles) }

// Last returns the most recent candle. Callers must check Len() first.
func (s *Series) Last() Candle { return s.Candles[len(s.Candles)-1] }

// Validate checks that open times are strictly increasing.
func (s *Series) Validate() error {
	for i := 1; i < len(s.Candles); i++ {
		if !s.Candles[i].OpenTime.After(s.Candles[i-1].OpenTime) {
			return fmt.Errorf("series %s: open time not increasing at index %d (%s >= %s)",
				s.Symbol, i, s.Candles[i-1].OpenTime, s.Candles[i].OpenTime)
		}
	}
	return nil
}

// Closes returns the close price column.
func (s *Series) Closes() []float64 {
	out := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		out[i] = c.Close
	}
	return out
}

// Volumes returns the volume column.
func (s *Series) Volumes() []float64 {
	out := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		out[i] = c.Volume
	}
	return out
}

// symbolPattern matches an uppercase-letter base with a fixed USDT quote
// suffix. Digits are rejected, which also filters leveraged-token listings.
var symbolPattern = regexp.MustCompile(`^[A-Z]{1,16}USDT$`)

// ValidSymbol reports whether sym is an acceptable instrument identifier:
// letters-only base, USDT quote, total length 4-20.
func ValidSymbol(sym string) bool {
	if len(sym) < 4 || len(sym) > 20 {
		return false
	}
	return symbolPattern.MatchString(sym)
}
