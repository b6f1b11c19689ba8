package connectors

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	MarketDataBaseURL    string        `envconfig:"MARKET_DATA_BASE_URL" default:"https://query1.finance.yahoo.com"`
	MarketDataTimeout    time.Duration `envconfig:"MARKET_DATA_TIMEOUT" default:"10s"`
	MarketDataRetryCount int           `envconfig:"MARKET_DATA_RETRY_COUNT" default:"1"`

	KiteBaseURL    string        `envconfig:"KITE_BASE_URL" default:"https://api.kite.trade"`
	KiteAPIKey     string        `envconfig:"KITE_API_KEY"`
	KiteTimeout    time.Duration `envconfig:"KITE_TIMEOUT" default:"15s"`
	KiteRetryCount int           `envconfig:"KITE_RETRY_COUNT" default:"2"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
