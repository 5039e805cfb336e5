package indicator

import (
	"math"
	"testing"
	"time"

	"whale-trap-scanner/internal/model"
)

// ────────────────────────────────────────────────────────────
// Helpers
// ────────────────────────────────────────────────────────────

func candle(close float64) model.Candle {
	return model.Candle{
		Open: close, High: close + 0.5, Low: close - 0.5, Close: close, Volume: 100,
	}
}

func ohlcv(high, low, close, volume float64) model.Candle {
	return model.Candle{Open: close, High: high, Low: low, Close: close, Volume: volume}
}

func assertClose(t *testing.T, label string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %.6f, want %.6f (tol=%.6f, diff=%.6f)", label, got, want, tol, math.Abs(got-want))
	}
}

func series(closes ...float64) *model.Series {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]model.Candle, len(closes))
	for i, c := range closes {
		candles[i] = candle(c)
		candles[i].OpenTime = base.Add(time.Duration(i) * 15 * time.Minute)
		candles[i].CloseTime = candles[i].OpenTime.Add(15 * time.Minute)
	}
	return &model.Series{Symbol: "BTCUSDT", Interval: "15m", Candles: candles}
}

// ────────────────────────────────────────────────────────────
// RSI Correctness
// ────────────────────────────────────────────────────────────

func TestRSI_Correctness_Period3(t *testing.T) {
	// Prices: 100, 102, 101, 103, 104, 102
	// Deltas:     +2,  -1,  +2,  +1,  -2
	//
	// Seed after 4 candles (3 deltas): avgGain=(2+2)/3, avgLoss=1/3
	//   RS=4 → RSI = 100 - 100/5 = 80.0
	// Candle 5 (+1): avgGain=(4/3*2+1)/3=1.2222, avgLoss=(1/3*2)/3=0.2222
	//   RS=5.5 → RSI = 100 - 100/6.5 = 84.6154
	// Candle 6 (-2): avgGain=(1.2222*2)/3=0.8148, avgLoss=(0.2222*2+2)/3=0.8148
	//   RS=1 → RSI = 50.0

	rsi := NewRSI(3)
	prices := []float64{100, 102, 101, 103, 104, 102}
	expected := []float64{0, 0, 0, 80.0, 84.6154, 50.0}
	ready := []bool{false, false, false, true, true, true}

	for i, p := range prices {
		rsi.Update(candle(p))
		if rsi.Ready() != ready[i] {
			t.Errorf("candle %d: Ready()=%v, want %v", i, rsi.Ready(), ready[i])
		}
		if ready[i] {
			assertClose(t, "RSI(3)", rsi.Value(), expected[i], 0.001)
		}
	}
}

func TestRSI_AllGains_Is100(t *testing.T) {
	rsi := NewRSI(3)
	for _, p := range []float64{100, 101, 102, 103, 104} {
		rsi.Update(candle(p))
	}
	assertClose(t, "RSI all gains", rsi.Value(), 100.0, 0.0001)
}

func TestRSI_Bounded(t *testing.T) {
	rsi := NewRSI(14)
	prices := []float64{50, 48, 53, 47, 55, 44, 58, 43, 60, 41, 62, 40, 64, 39, 66, 38, 68}
	for _, p := range prices {
		rsi.Update(candle(p))
		if rsi.Ready() && (rsi.Value() < 0 || rsi.Value() > 100) {
			t.Fatalf("RSI out of [0,100]: %.4f", rsi.Value())
		}
	}
}

// ────────────────────────────────────────────────────────────
// EMA Correctness
// ────────────────────────────────────────────────────────────

func TestEMA_Correctness_Period3(t *testing.T) {
	// EMA(3): multiplier = 2/(3+1) = 0.5
	// Prices: 100, 102, 104, 103, 105
	//
	// Candle 3: seed = (100+102+104)/3 = 102.0
	// Candle 4: EMA = 103*0.5 + 102.0*0.5 = 102.5
	// Candle 5: EMA = 105*0.5 + 102.5*0.5 = 103.75

	ema := NewEMA(3)
	prices := []float64{100, 102, 104, 103, 105}
	expected := []float64{0, 0, 102.0, 102.5, 103.75}
	ready := []bool{false, false, true, true, true}

	for i, p := range prices {
		ema.Update(candle(p))
		if ema.Ready() != ready[i] {
			t.Errorf("candle %d: Ready()=%v, want %v", i, ema.Ready(), ready[i])
		}
		if ready[i] {
			assertClose(t, "EMA(3)", ema.Value(), expected[i], 0.0001)
		}
	}
}

// ────────────────────────────────────────────────────────────
// ATR Correctness
// ────────────────────────────────────────────────────────────

func TestATR_Correctness_Period2(t *testing.T) {
	// Candle 1: H=12 L=8  C=10   → primes prevClose, no TR yet
	// Candle 2: H=13 L=9  C=12   → TR = max(4, |13-10|, |9-10|)  = 4
	// Candle 3: H=15 L=11 C=14   → TR = max(4, |15-12|, |11-12|) = 4
	//   seed = (4+4)/2 = 4.0, first ready value
	// Candle 4: H=14 L=10 C=11   → TR = max(4, |14-14|, |10-14|) = 4
	//   ATR = (4*1 + 4)/2 = 4.0
	// Candle 5: H=13 L=12 C=12.5 → TR = max(1, |13-11|, |12-11|) = 2
	//   ATR = (4*1 + 2)/2 = 3.0

	atr := NewATR(2)
	candles := []model.Candle{
		ohlcv(12, 8, 10, 0),
		ohlcv(13, 9, 12, 0),
		ohlcv(15, 11, 14, 0),
		ohlcv(14, 10, 11, 0),
		ohlcv(13, 12, 12.5, 0),
	}
	expected := []float64{0, 0, 4.0, 4.0, 3.0}
	ready := []bool{false, false, true, true, true}

	for i, c := range candles {
		atr.Update(c)
		if atr.Ready() != ready[i] {
			t.Errorf("candle %d: Ready()=%v, want %v", i, atr.Ready(), ready[i])
		}
		if ready[i] {
			assertClose(t, "ATR(2)", atr.Value(), expected[i], 0.0001)
		}
	}
}

func TestATR_GapDominatesRange(t *testing.T) {
	// A gap between prior close and the new bar's range must widen TR.
	atr := NewATR(1)
	atr.Update(ohlcv(101, 99, 100, 0))
	atr.Update(ohlcv(111, 110, 110, 0)) // range 1, but |high-prevClose| = 11
	assertClose(t, "ATR gap", atr.Value(), 11.0, 0.0001)
}

// ────────────────────────────────────────────────────────────
// OBV Correctness
// ────────────────────────────────────────────────────────────

func TestOBV_MonotonicAdditive(t *testing.T) {
	// Closes:  10,  12,  11,  11,  13
	// Volumes: 100, 200, 150, 300, 250
	// OBV:     0, +200, +50, +50, +300

	obv := NewOBV()
	closes := []float64{10, 12, 11, 11, 13}
	volumes := []float64{100, 200, 150, 300, 250}
	expected := []float64{0, 200, 50, 50, 300}

	for i := range closes {
		obv.Update(ohlcv(closes[i]+1, closes[i]-1, closes[i], volumes[i]))
		if !obv.Ready() {
			t.Fatalf("OBV not ready at candle %d", i)
		}
		assertClose(t, "OBV", obv.Value(), expected[i], 0.0001)
	}
}

func TestOBV_StartsAtZero(t *testing.T) {
	obv := NewOBV()
	obv.Update(ohlcv(11, 9, 10, 5000))
	assertClose(t, "OBV[0]", obv.Value(), 0.0, 0.0001)
}
