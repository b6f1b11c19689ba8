package pricing

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheExpiresPassively(t *testing.T) {
	clock := newFakeClock()
	c := NewMemoryCache(time.Minute, clock)
	ctx := context.Background()

	c.Set(ctx, "A.NS", decimal.NewFromInt(10))
	c.Set(ctx, "A.NS", decimal.NewFromInt(11))

	v, ok := c.Get(ctx, "A.NS")
	require.True(t, ok)
	assert.True(t, v.Equal(decimal.NewFromInt(11)))

	clock.Advance(59 * time.Second)
	_, ok = c.Get(ctx, "A.NS")
	assert.True(t, ok)

	clock.Advance(time.Second)
	_, ok = c.Get(ctx, "A.NS")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestRedisCacheKey(t *testing.T) {
	c := NewRedisCacheWithClient(redis.NewClient(&redis.Options{Addr: "localhost:0"}), time.Minute)
	defer c.Close()
	assert.Equal(t, "price:INFY.NS", c.key("INFY.NS"))
}

func TestRedisCacheUnreachableIsMiss(t *testing.T) {
	c := NewRedisCacheWithClient(redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	}), time.Minute)
	defer c.Close()

	ctx := context.Background()
	c.Set(ctx, "INFY.NS", decimal.NewFromInt(1))
	_, ok := c.Get(ctx, "INFY.NS")
	assert.False(t, ok)
}

// Runs against a real server when REDIS_TEST_ADDR is set.
func TestRedisCacheRoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}

	c, err := NewRedisCache(Config{RedisAddr: addr, CacheTTL: time.Minute})
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	c.Set(ctx, "TEST.NS", decimal.RequireFromString("123.45"))
	v, ok := c.Get(ctx, "TEST.NS")
	require.True(t, ok)
	assert.True(t, v.Equal(decimal.RequireFromString("123.45")))
}
