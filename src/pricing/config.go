package pricing

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

type Config struct {
	CacheEnabled bool          `envconfig:"PRICE_CACHE_ENABLED" default:"true"`
	CacheTTL     time.Duration `envconfig:"PRICE_CACHE_TTL" default:"300s"`
	CacheBackend string        `envconfig:"PRICE_CACHE_BACKEND" default:"memory"`

	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	RetryAttempts int           `envconfig:"PRICE_RETRY_ATTEMPTS" default:"3"`
	RetryDelay    time.Duration `envconfig:"PRICE_RETRY_DELAY" default:"1s"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
