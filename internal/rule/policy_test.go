package rule

import (
	"math"
	"strings"
	"testing"
	"time"

	"whale-trap-scanner/internal/indicator"
	"whale-trap-scanner/internal/model"
)

// fixture builds a two-bar series plus indicator set on which all four core
// conditions hold:
//
//	RSI 25 → 55            (recovery out of oversold)
//	close 110 > EMA20 105  (price above trend)
//	ΔOBV 500 > 2×200       (volume-flow surge; mean volume 200)
//	ATR 10 > 1.5×5         (volatility spike vs rolling mean)
func fixture() (*model.Series, *indicator.Set) {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	series := &model.Series{
		Symbol:   "BTCUSDT",
		Interval: "15m",
		Candles: []model.Candle{
			{OpenTime: base, Close: 100, High: 101, Low: 99, Volume: 100},
			{OpenTime: base.Add(15 * time.Minute), Close: 110, High: 111, Low: 104, Volume: 300},
		},
	}
	set := &indicator.Set{
		RSI:        []float64{25, 55},
		OBV:        []float64{0, 500},
		ATR:        []float64{9, 10},
		EMAFast:    []float64{104, 105},
		EMASlow:    []float64{100, 100},
		ATRMean:    []float64{5, 5},
		VolumeMean: 200,
	}
	return series, set
}

func TestConjunction_FiresWhenAllConditionsHold(t *testing.T) {
	series, set := fixture()
	sig := (&Conjunction{precision: 5}).Evaluate(series, set)
	if sig == nil {
		t.Fatal("Evaluate returned nil with all conditions holding")
	}
	if sig.Symbol != "BTCUSDT" {
		t.Errorf("Symbol = %q", sig.Symbol)
	}
	if sig.Price != 110 {
		t.Errorf("Price = %v, want 110", sig.Price)
	}
	if !sig.Time.Equal(series.Last().OpenTime) {
		t.Errorf("Time = %v, want latest candle open time", sig.Time)
	}
	if !strings.Contains(sig.Message, "BTCUSDT") || !strings.Contains(sig.Message, "110.00000") {
		t.Errorf("Message = %q, want symbol and 5-decimal price", sig.Message)
	}
	if len(sig.Conditions) != 9 {
		t.Errorf("Conditions length = %d, want 9 (full audit)", len(sig.Conditions))
	}
}

func TestConjunction_EachCoreConditionSuppressesIndependently(t *testing.T) {
	flips := []struct {
		name string
		flip func(s *model.Series, set *indicator.Set)
	}{
		{CondRSIRecovery, func(s *model.Series, set *indicator.Set) { set.RSI[0] = 35 }},
		{CondPriceAboveEMA, func(s *model.Series, set *indicator.Set) { set.EMAFast[1] = 120 }},
		{CondOBVSurge, func(s *model.Series, set *indicator.Set) { set.OBV[1] = 300 }},
		{CondATRSpike, func(s *model.Series, set *indicator.Set) { set.ATR[1] = 6 }},
	}

	for _, tc := range flips {
		t.Run(tc.name, func(t *testing.T) {
			series, set := fixture()
			tc.flip(series, set)
			if sig := (&Conjunction{}).Evaluate(series, set); sig != nil {
				t.Errorf("signal fired with %s flipped false: %+v", tc.name, sig.Conditions)
			}
		})
	}
}

func TestConjunction_AuditRecordsHeldConditions(t *testing.T) {
	series, set := fixture()
	sig := (&Conjunction{}).Evaluate(series, set)
	if sig == nil {
		t.Fatal("expected signal")
	}
	held := make(map[string]bool, len(sig.Conditions))
	for _, c := range sig.Conditions {
		held[c.Name] = c.Held
	}
	for _, name := range []string{CondRSIRecovery, CondPriceAboveEMA, CondOBVSurge, CondATRSpike} {
		if !held[name] {
			t.Errorf("condition %s not recorded as held", name)
		}
	}
	// Volume 300 < 2×200, so the spike factor must be recorded false.
	if held[CondVolumeSpike] {
		t.Error("volume_spike recorded held, want false")
	}
}

func TestEvaluate_SoftFailures(t *testing.T) {
	series, set := fixture()

	t.Run("single candle", func(t *testing.T) {
		short := &model.Series{Symbol: "BTCUSDT", Candles: series.Candles[:1]}
		shortSet := &indicator.Set{
			RSI: set.RSI[:1], OBV: set.OBV[:1], ATR: set.ATR[:1],
			EMAFast: set.EMAFast[:1], EMASlow: set.EMASlow[:1], ATRMean: set.ATRMean[:1],
		}
		if sig := (&Conjunction{}).Evaluate(short, shortSet); sig != nil {
			t.Error("signal from one-candle series")
		}
	})

	t.Run("warm-up at previous index", func(t *testing.T) {
		s2, set2 := fixture()
		set2.EMASlow[0] = math.NaN()
		if sig := (&Conjunction{}).Evaluate(s2, set2); sig != nil {
			t.Error("signal despite warm-up NaN at previous index")
		}
	})

	t.Run("nil set", func(t *testing.T) {
		if sig := (&Conjunction{}).Evaluate(series, nil); sig != nil {
			t.Error("signal from nil indicator set")
		}
	})

	t.Run("length mismatch", func(t *testing.T) {
		s2, set2 := fixture()
		s2.Candles = append(s2.Candles, s2.Candles[1])
		if sig := (&Conjunction{}).Evaluate(s2, set2); sig != nil {
			t.Error("signal despite series/set length mismatch")
		}
	})
}

func TestTrapScore_FiresAtThreshold(t *testing.T) {
	series, set := fixture()
	// Fixture holds 8 of 9 factors (volume_spike is false).
	if sig := (&TrapScore{Threshold: 8}).Evaluate(series, set); sig == nil {
		t.Error("score policy did not fire at exact threshold")
	}
	if sig := (&TrapScore{Threshold: 9}).Evaluate(series, set); sig != nil {
		t.Error("score policy fired above achievable score")
	}
}

func TestTrapScore_ToleratesSingleFailedFactor(t *testing.T) {
	series, set := fixture()
	set.ATR[1] = 6 // flip the ATR spike

	// Strict policy must suppress, score policy at the default threshold
	// still fires on the remaining factors.
	if sig := (&Conjunction{}).Evaluate(series, set); sig != nil {
		t.Error("conjunction fired with a failed core condition")
	}
	sig := (&TrapScore{Threshold: DefaultScoreThreshold}).Evaluate(series, set)
	if sig == nil {
		t.Fatal("score policy suppressed despite 7 held factors")
	}
	if sig.Policy != "score" {
		t.Errorf("Policy = %q, want score", sig.Policy)
	}
}

func TestByName(t *testing.T) {
	if p, err := ByName("conjunction", 0, 5); err != nil || p.Name() != "conjunction" {
		t.Errorf("ByName(conjunction) = %v, %v", p, err)
	}
	if p, err := ByName("score", 4, 5); err != nil || p.Name() != "score" {
		t.Errorf("ByName(score) = %v, %v", p, err)
	}
	if _, err := ByName("bogus", 0, 5); err == nil {
		t.Error("ByName accepted an unknown policy")
	}
}
