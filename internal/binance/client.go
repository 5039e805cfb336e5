// Package binance implements the market-data candle source: bounded-timeout
// kline fetches with retry, backoff and jitter, plus payload validation.
package binance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"whale-trap-scanner/internal/model"
	"whale-trap-scanner/internal/retry"
)

// klineColumns is the fixed column count of a Binance kline tuple. Columns
// beyond the first seven (quote volume, trade count, taker volumes, ignore)
// are tolerated and dropped.
const klineColumns = 12

// FetchError reports a fetch that failed after exhausting all retries.
type FetchError struct {
	Symbol string
	Status int // last HTTP status, 0 if the request never completed
	Cause  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: status=%d: %v", e.Symbol, e.Status, e.Cause)
}

func (e *FetchError) Unwrap() error { return e.Cause }

// ErrInsufficientHistory marks a response that parsed but holds too few
// candles to evaluate. Retrying will not fix shape, so callers skip instead.
var ErrInsufficientHistory = errors.New("insufficient candle history")

// Config configures the market-data client.
type Config struct {
	Host        string        // e.g. "https://fapi.binance.com"
	Timeout     time.Duration // per-attempt HTTP timeout
	Retries     int           // total attempts per fetch
	RetryDelay  time.Duration // backoff base delay
	RetryJitter time.Duration // upper bound of the random jitter added to each backoff
	MinHistory  int           // minimum viable candle count
}

// Client fetches klines from the exchange REST API.
type Client struct {
	cfg   Config
	http  *http.Client
	retry retry.Policy
}

// New creates a market-data client.
func New(cfg Config) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		retry: retry.Policy{
			Attempts:  cfg.Retries,
			BaseDelay: cfg.RetryDelay,
			MaxJitter: cfg.RetryJitter,
		},
	}
}

// Klines fetches up to limit candles for one symbol and interval. It retries
// transient failures with backoff and returns *FetchError once attempts are
// exhausted. Malformed payloads and a payload shorter than MinHistory fail
// on the first attempt: re-fetching will not change the shape.
func (c *Client) Klines(ctx context.Context, symbol, interval string, limit int) (*model.Series, error) {
	var series *model.Series
	var lastStatus int

	err := c.retry.Do(ctx, func() error {
		s, status, err := c.fetchOnce(ctx, symbol, interval, limit)
		lastStatus = status
		if err != nil {
			log.Printf("[binance] %s fetch attempt failed (status=%d): %v", symbol, status, err)
			return err
		}
		series = s
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, &FetchError{Symbol: symbol, Status: lastStatus, Cause: err}
	}

	if series.Len() < c.cfg.MinHistory {
		return nil, fmt.Errorf("%s: got %d candles, need %d: %w",
			symbol, series.Len(), c.cfg.MinHistory, ErrInsufficientHistory)
	}
	if err := series.Validate(); err != nil {
		return nil, err
	}
	return series, nil
}

func (c *Client) fetchOnce(ctx context.Context, symbol, interval string, limit int) (*model.Series, int, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", interval)
	q.Set("limit", strconv.Itoa(limit))
	endpoint := c.cfg.Host + "/fapi/v1/klines?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, resp.StatusCode, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
	}

	// Malformed payloads are permanent: the response arrived, its shape is
	// wrong, and re-fetching will not change it.
	var raw [][]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, resp.StatusCode, retry.Permanent(fmt.Errorf("decode klines: %w", err))
	}

	candles := make([]model.Candle, 0, len(raw))
	for i, row := range raw {
		candle, err := parseKline(row)
		if err != nil {
			return nil, resp.StatusCode, retry.Permanent(fmt.Errorf("kline %d: %w", i, err))
		}
		candles = append(candles, candle)
	}

	return &model.Series{Symbol: symbol, Interval: interval, Candles: candles}, resp.StatusCode, nil
}

// parseKline converts one Binance kline tuple:
// [openTime, open, high, low, close, volume, closeTime, ...aux].
// Prices and volume arrive as JSON strings, times as millisecond integers.
func parseKline(row []json.RawMessage) (model.Candle, error) {
	if len(row) < 7 || len(row) > klineColumns {
		return model.Candle{}, fmt.Errorf("unexpected column count %d", len(row))
	}

	openMs, err := parseMillis(row[0])
	if err != nil {
		return model.Candle{}, fmt.Errorf("open time: %w", err)
	}
	closeMs, err := parseMillis(row[6])
	if err != nil {
		return model.Candle{}, fmt.Errorf("close time: %w", err)
	}

	var prices [5]float64 // open, high, low, close, volume
	for i := 0; i < 5; i++ {
		v, err := parsePrice(row[i+1])
		if err != nil {
			return model.Candle{}, fmt.Errorf("column %d: %w", i+1, err)
		}
		prices[i] = v
	}

	return model.Candle{
		OpenTime:  time.UnixMilli(openMs).UTC(),
		Open:      prices[0],
		High:      prices[1],
		Low:       prices[2],
		Close:     prices[3],
		Volume:    prices[4],
		CloseTime: time.UnixMilli(closeMs).UTC(),
	}, nil
}

func parseMillis(raw json.RawMessage) (int64, error) {
	var ms int64
	if err := json.Unmarshal(raw, &ms); err != nil {
		return 0, err
	}
	return ms, nil
}

func parsePrice(raw json.RawMessage) (float64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		// Some mirrors serve numbers unquoted; accept both.
		var f float64
		if err2 := json.Unmarshal(raw, &f); err2 != nil {
			return 0, err
		}
		return f, nil
	}
	return strconv.ParseFloat(s, 64)
}
