package model

import (
	"testing"
	"time"
)

func TestValidSymbol(t *testing.T) {
	cases := []struct {
		sym  string
		want bool
	}{
		{"BTCUSDT", true},
		{"ETHUSDT", true},
		{"AUSDT", true},            // shortest legal base
		{"BTCBUSD", false},         // wrong quote
		{"btcusdt", false},         // lowercase
		{"1000SHIBUSDT", false},    // digits in base
		{"BTCUSDT_240927", false},  // delivery contract suffix
		{"USD", false},             // too short
		{"ABCDEFGHIJKLMNOPQUSDT", false}, // too long
	}
	for _, tc := range cases {
		if got := ValidSymbol(tc.sym); got != tc.want {
			t.Errorf("ValidSymbol(%q) = %v, want %v", tc.sym, got, tc.want)
		}
	}
}

func TestSignal_DedupKeyPerBar(t *testing.T) {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	a := &Signal{Symbol: "BTCUSDT", Time: base}
	b := &Signal{Symbol: "BTCUSDT", Time: base}
	c := &Signal{Symbol: "BTCUSDT", Time: base.Add(15 * time.Minute)}

	if a.DedupKey() != b.DedupKey() {
		t.Error("same bar produced different dedup keys")
	}
	if a.DedupKey() == c.DedupKey() {
		t.Error("different bars share a dedup key")
	}
}

func TestSeries_Accessors(t *testing.T) {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	s := &Series{Symbol: "BTCUSDT", Candles: []Candle{
		{OpenTime: base, Close: 10, Volume: 1},
		{OpenTime: base.Add(time.Minute), Close: 20, Volume: 2},
	}}

	if s.Len() != 2 || s.Last().Close != 20 {
		t.Errorf("Len/Last wrong: %d, %v", s.Len(), s.Last())
	}
	closes := s.Closes()
	if len(closes) != 2 || closes[0] != 10 || closes[1] != 20 {
		t.Errorf("Closes = %v", closes)
	}
	vols := s.Volumes()
	if len(vols) != 2 || vols[1] != 2 {
		t.Errorf("Volumes = %v", vols)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}
