// Package ratelimit implements the submission rate-limit counter. A slot
// is reserved with a single atomic increment before the submission is
// processed, so two concurrent submissions can never both observe a free
// slot; rejected or failed submissions release their reservation.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "ratelimit:report:"

// releaseScript decrements only an existing positive counter, so a release
// arriving after the window expired cannot seed a negative count that
// would grant extra quota.
var releaseScript = goredis.NewScript(`
local count = tonumber(redis.call("GET", KEYS[1]))
if count and count > 0 then
	return redis.call("DECR", KEYS[1])
end
return 0
`)

// RedisCounter is the production counter backed by Redis.
type RedisCounter struct {
	rdb    *goredis.Client
	window time.Duration
	max    int64
}

// NewRedisCounter connects to Redis and verifies the connection.
func NewRedisCounter(ctx context.Context, addr string, window time.Duration, max int64) (*RedisCounter, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return NewRedisCounterWithClient(rdb, window, max), nil
}

// NewRedisCounterWithClient wraps an existing client (used in tests).
func NewRedisCounterWithClient(rdb *goredis.Client, window time.Duration, max int64) *RedisCounter {
	return &RedisCounter{rdb: rdb, window: window, max: max}
}

// Reserve claims one submission slot via INCR, so the check and the count
// are one atomic operation. An over-quota increment is rolled back before
// reporting the slot as taken. Rate limiting must be exact, not
// best-effort: an unreachable counter is surfaced as an error, never
// treated as a free slot. The expiry is attached on first increment,
// fixing the window start at the first reservation.
func (c *RedisCounter) Reserve(ctx context.Context, identity string) (bool, error) {
	key := keyPrefix + identity
	count, err := c.rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("rate limit increment: %w", err)
	}
	if count == 1 {
		if err := c.rdb.Expire(ctx, key, c.window).Err(); err != nil {
			return false, fmt.Errorf("rate limit expire: %w", err)
		}
	}
	if count > c.max {
		if err := releaseScript.Run(ctx, c.rdb, []string{key}).Err(); err != nil {
			return false, fmt.Errorf("rate limit rollback: %w", err)
		}
		return false, nil
	}
	return true, nil
}

// Release returns a reserved slot. The callers invoke it when the
// submission is rejected or fails to persist, so only accepted reports
// consume quota.
func (c *RedisCounter) Release(ctx context.Context, identity string) error {
	if err := releaseScript.Run(ctx, c.rdb, []string{keyPrefix + identity}).Err(); err != nil {
		return fmt.Errorf("rate limit release: %w", err)
	}
	return nil
}

// Close releases the underlying Redis connection.
func (c *RedisCounter) Close() error {
	return c.rdb.Close()
}
