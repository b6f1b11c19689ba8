package controller

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	StartingCash  decimal.Decimal `envconfig:"STARTING_CASH" default:"1000000"`
	MaxAdjustCash decimal.Decimal `envconfig:"MAX_ADJUST_CASH" default:"1000000"`

	TradeHistoryLimit int `envconfig:"TRADE_HISTORY_LIMIT" default:"15"`
	WatchlistLimit    int `envconfig:"WATCHLIST_LIMIT" default:"20"`

	// Calendar days for the P&L baseline are counted in this zone.
	MarketTimezone string `envconfig:"MARKET_TIMEZONE" default:"Asia/Kolkata"`

	PortfolioInfoWorkers int `envconfig:"PORTFOLIO_INFO_WORKERS" default:"10"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
