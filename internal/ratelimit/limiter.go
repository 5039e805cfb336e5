// Package ratelimit provides a token-bucket limiter used to ration the
// outbound request budget against the market-data API when the scheduler runs
// more than one worker.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter is a single token bucket refilled at a fixed rate.
type Limiter struct {
	mu         sync.Mutex
	tokens     float64
	capacity   float64
	refillRate float64 // tokens per second
	last       time.Time
}

// New creates a limiter with the given burst capacity and refill rate.
// A non-positive rate would never refill, so it is clamped to one token
// per second.
func New(capacity, refillPerSec float64) *Limiter {
	if refillPerSec <= 0 {
		refillPerSec = 1
	}
	return &Limiter{
		tokens:     capacity,
		capacity:   capacity,
		refillRate: refillPerSec,
		last:       time.Now(),
	}
}

// Allow returns true if one token can be consumed.
func (l *Limiter) Allow() bool {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	elapsed := now.Sub(l.last).Seconds()
	if elapsed > 0 {
		l.tokens += elapsed * l.refillRate
		if l.tokens > l.capacity {
			l.tokens = l.capacity
		}
		l.last = now
	}
	if l.tokens >= 1 {
		l.tokens--
		return true
	}
	return false
}

// Wait blocks until a token is available or ctx is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		if l.Allow() {
			return nil
		}
		// Poll at a fraction of the refill interval.
		d := time.Duration(float64(time.Second) / l.refillRate / 4)
		if d < 5*time.Millisecond {
			d = 5 * time.Millisecond
		}
		t := time.NewTimer(d)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}
