package quota

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Counter is the atomic daily-usage backend. IncrWithExpiry must be
// increment-and-check safe: the returned value is the count after this
// call's own increment.
type Counter interface {
	IncrWithExpiry(ctx context.Context, key string, expireAt time.Time) (int64, error)
	Decr(ctx context.Context, key string) error
	Get(ctx context.Context, key string) (int64, error)
}

// RedisCounter backs daily counters with Redis INCR. Keys expire at the next
// local midnight, which is also the quota reset boundary.
type RedisCounter struct {
	client *redis.Client
}

func NewRedisCounter(client *redis.Client) *RedisCounter {
	return &RedisCounter{client: client}
}

func (c *RedisCounter) IncrWithExpiry(ctx context.Context, key string, expireAt time.Time) (int64, error) {
	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireAt(ctx, key, expireAt)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

func (c *RedisCounter) Decr(ctx context.Context, key string) error {
	return c.client.Decr(ctx, key).Err()
}

func (c *RedisCounter) Get(ctx context.Context, key string) (int64, error) {
	val, err := c.client.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return val, err
}

// MemoryCounter is the in-process fallback used when Redis is disabled, and
// by tests. Expiry is evaluated lazily on access.
type MemoryCounter struct {
	mu      sync.Mutex
	values  map[string]int64
	expires map[string]time.Time
	clock   func() time.Time
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{
		values:  make(map[string]int64),
		expires: make(map[string]time.Time),
		clock:   time.Now,
	}
}

// WithClock replaces the expiry clock; tests use it to simulate midnight.
func (c *MemoryCounter) WithClock(clock func() time.Time) *MemoryCounter {
	c.clock = clock
	return c
}

func (c *MemoryCounter) dropExpiredLocked(key string) {
	if exp, ok := c.expires[key]; ok && !c.clock().Before(exp) {
		delete(c.values, key)
		delete(c.expires, key)
	}
}

func (c *MemoryCounter) IncrWithExpiry(_ context.Context, key string, expireAt time.Time) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropExpiredLocked(key)
	c.values[key]++
	c.expires[key] = expireAt
	return c.values[key], nil
}

func (c *MemoryCounter) Decr(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key]--
	return nil
}

func (c *MemoryCounter) Get(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropExpiredLocked(key)
	return c.values[key], nil
}
