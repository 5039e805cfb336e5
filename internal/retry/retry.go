// Package retry provides a reusable retry-with-backoff helper shared by all
// components that perform network I/O. Each delay carries a random jitter
// component so retries across symbols do not synchronize into bursts.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// Policy configures a retry loop.
type Policy struct {
	Attempts  int           // total attempts, including the first (min 1)
	BaseDelay time.Duration // delay before each re-attempt
	MaxJitter time.Duration // uniform random extra delay in [0, MaxJitter)
}

// permanentError marks a failure that re-attempting cannot fix.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as non-retryable: Do returns the underlying error
// immediately instead of burning the remaining attempts. Use it for failures
// where the response shape is wrong, not the transport.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do runs fn up to p.Attempts times, sleeping BaseDelay plus jitter between
// attempts. It returns nil on the first success. When every attempt fails it
// returns the last error. Errors wrapped with Permanent stop the loop at
// once. Cancellation is observed during the backoff sleep and before each
// attempt.
func (p Policy) Do(ctx context.Context, fn func() error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		var pe *permanentError
		if errors.As(lastErr, &pe) {
			return pe.err
		}
		if i == attempts-1 {
			break
		}
		if err := sleep(ctx, p.delay()); err != nil {
			return errors.Join(lastErr, err)
		}
	}
	return lastErr
}

func (p Policy) delay() time.Duration {
	d := p.BaseDelay
	if p.MaxJitter > 0 {
		d += time.Duration(rand.Int63n(int64(p.MaxJitter)))
	}
	return d
}

// sleep blocks for d or until ctx is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
