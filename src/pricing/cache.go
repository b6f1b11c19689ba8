package pricing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

// Cache holds recently fetched prices. Entries expire passively and the
// last writer wins.
type Cache interface {
	Get(ctx context.Context, securityID string) (decimal.Decimal, bool)
	Set(ctx context.Context, securityID string, price decimal.Decimal)
}

type memoryEntry struct {
	price   decimal.Decimal
	expires time.Time
}

// MemoryCache is a process-local cache.
type MemoryCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	clock   Clock
	entries map[string]memoryEntry
}

func NewMemoryCache(ttl time.Duration, clock Clock) *MemoryCache {
	if clock == nil {
		clock = SystemClock
	}
	return &MemoryCache{
		ttl:     ttl,
		clock:   clock,
		entries: make(map[string]memoryEntry),
	}
}

func (c *MemoryCache) Get(_ context.Context, securityID string) (decimal.Decimal, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[securityID]
	if !ok {
		return decimal.Zero, false
	}
	if !c.clock.Now().Before(e.expires) {
		delete(c.entries, securityID)
		return decimal.Zero, false
	}
	return e.price, true
}

func (c *MemoryCache) Set(_ context.Context, securityID string, price decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[securityID] = memoryEntry{price: price, expires: c.clock.Now().Add(c.ttl)}
}

// Len counts entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// RedisCache shares prices between processes. Redis failures degrade to a
// cache miss.
type RedisCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisCache connects and pings the server.
func NewRedisCache(cfg Config) (*RedisCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisCacheWithClient(rdb, cfg.CacheTTL), nil
}

func NewRedisCacheWithClient(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl, prefix: "price"}
}

func (c *RedisCache) key(securityID string) string {
	return fmt.Sprintf("%s:%s", c.prefix, securityID)
}

func (c *RedisCache) Get(ctx context.Context, securityID string) (decimal.Decimal, bool) {
	raw, err := c.rdb.Get(ctx, c.key(securityID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.WithFields(map[string]interface{}{
				"cache":       "RedisCache",
				"security_id": securityID,
			}).WithError(err).Warn("Redis get failed")
		}
		return decimal.Zero, false
	}

	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false
	}
	return price, true
}

func (c *RedisCache) Set(ctx context.Context, securityID string, price decimal.Decimal) {
	if err := c.rdb.Set(ctx, c.key(securityID), price.String(), c.ttl).Err(); err != nil {
		logger.WithFields(map[string]interface{}{
			"cache":       "RedisCache",
			"security_id": securityID,
		}).WithError(err).Warn("Redis set failed")
	}
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.rdb.Close()
}

// NewCacheFromConfig returns nil when caching is disabled.
func NewCacheFromConfig(cfg Config) (Cache, error) {
	if !cfg.CacheEnabled {
		return nil, nil
	}

	switch cfg.CacheBackend {
	case "", CacheBackendMemory:
		return NewMemoryCache(cfg.CacheTTL, SystemClock), nil
	case CacheBackendRedis:
		c, err := NewRedisCache(cfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown price cache backend %q", cfg.CacheBackend)
	}
}
