package model

import (
	"encoding/json"
	"time"
)

// Condition is one evaluated sub-condition of a rule, recorded on the Signal
// for audit.
type Condition struct {
	Name string `json:"name"`
	Held bool   `json:"held"`
}

// Signal is a fired whale-trap detection for one symbol. Built only by the
// rule package, consumed once by the dispatcher.
type Signal struct {
	Symbol     string      `json:"symbol"`
	Time       time.Time   `json:"time"`   // open time of the triggering candle
	Price      float64     `json:"price"`  // close of the triggering candle
	Policy     string      `json:"policy"` // rule policy that fired
	Conditions []Condition `json:"conditions"`
	Message    string      `json:"message"`
}

// JSON returns the JSON-encoded signal (ignoring errors for hot-path usage).
func (s *Signal) JSON() []byte {
	b, _ := json.Marshal(s)
	return b
}

// DedupKey returns the deduplication key for this signal: one alert per
// symbol per bar.
func (s *Signal) DedupKey() string {
	return s.Symbol + ":" + s.Time.UTC().Format(time.RFC3339)
}
