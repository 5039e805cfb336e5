package dispatch

import (
	"context"
	"fmt"
	"log"
	"time"

	goredis "github.com/go-redis/redis/v8"
)

const dedupKeyPrefix = "whaletrap:dedup:"

// RedisDeduper shares the dedup table across scanner instances using SET NX
// with a TTL, so a symbol alerted by one instance stays suppressed on all.
type RedisDeduper struct {
	client *goredis.Client
}

// NewRedisDeduper connects to Redis and pings it.
func NewRedisDeduper(addr, password string) (*RedisDeduper, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[dedup] connected to redis at %s", addr)
	return &RedisDeduper{client: client}, nil
}

func (d *RedisDeduper) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := d.client.SetNX(ctx, dedupKeyPrefix+key, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return ok, nil
}

// Close releases the Redis connection.
func (d *RedisDeduper) Close() error { return d.client.Close() }
