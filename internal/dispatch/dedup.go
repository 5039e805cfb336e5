package dispatch

import (
	"context"
	"sync"
	"time"
)

// Deduper suppresses repeated alerts within a cooldown window. Claim is
// atomic check-and-set: the first caller for a key within the TTL wins.
type Deduper interface {
	// Claim returns true if key was not claimed within its TTL and records
	// it; false means a matching alert already went out.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// MemoryDeduper is the single-process dedup table: a mutex-protected map with
// per-entry expiry.
type MemoryDeduper struct {
	mu  sync.Mutex
	m   map[string]time.Time
	now func() time.Time
}

// NewMemoryDeduper creates an empty in-memory dedup table.
func NewMemoryDeduper() *MemoryDeduper {
	return &MemoryDeduper{m: make(map[string]time.Time), now: time.Now}
}

func (d *MemoryDeduper) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	now := d.now()
	d.mu.Lock()
	defer d.mu.Unlock()

	if exp, ok := d.m[key]; ok && now.Before(exp) {
		return false, nil
	}
	d.m[key] = now.Add(ttl)

	// Opportunistic sweep keeps the table from growing across long runs.
	if len(d.m) > 1024 {
		for k, exp := range d.m {
			if now.After(exp) {
				delete(d.m, k)
			}
		}
	}
	return true, nil
}
