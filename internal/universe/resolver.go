// Package universe resolves the set of instruments to poll from the exchange
// metadata endpoint, with a static fallback so discovery failure never halts
// polling.
package universe

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sort"
	"time"

	"whale-trap-scanner/internal/model"
)

// Fallback is the known-liquid symbol set used whenever discovery fails or
// yields nothing after filtering.
var Fallback = []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"}

type exchangeInfo struct {
	Symbols []struct {
		Symbol       string `json:"symbol"`
		ContractType string `json:"contractType"`
		QuoteAsset   string `json:"quoteAsset"`
		Status       string `json:"status"`
	} `json:"symbols"`
}

// Resolver discovers tradeable USDT perpetual symbols.
type Resolver struct {
	host string
	http *http.Client
}

// New creates a resolver against the given exchange host.
func New(host string, timeout time.Duration) *Resolver {
	return &Resolver{
		host: host,
		http: &http.Client{Timeout: timeout},
	}
}

// Resolve returns the ordered symbol universe. It never returns an empty
// slice and never an error: any failure falls back to the static list.
func (r *Resolver) Resolve(ctx context.Context) []string {
	symbols, err := r.discover(ctx)
	if err != nil {
		log.Printf("[universe] discovery failed, using fallback set: %v", err)
		return append([]string(nil), Fallback...)
	}
	if len(symbols) == 0 {
		log.Printf("[universe] discovery returned nothing after filtering, using fallback set")
		return append([]string(nil), Fallback...)
	}
	log.Printf("[universe] resolved %d symbols", len(symbols))
	return symbols
}

func (r *Resolver) discover(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.host+"/fapi/v1/exchangeInfo", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := r.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var info exchangeInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode exchange info: %w", err)
	}

	seen := make(map[string]struct{})
	var out []string
	for _, s := range info.Symbols {
		if s.ContractType != "PERPETUAL" || s.QuoteAsset != "USDT" || s.Status != "TRADING" {
			continue
		}
		// Shape filter rejects malformed and leveraged-token entries.
		if !model.ValidSymbol(s.Symbol) {
			continue
		}
		if _, dup := seen[s.Symbol]; dup {
			continue
		}
		seen[s.Symbol] = struct{}{}
		out = append(out, s.Symbol)
	}
	sort.Strings(out)
	return out, nil
}
