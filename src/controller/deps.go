package controller

import (
	"context"

	"papertrader/src/externalmodel"
	"papertrader/src/model"
	"papertrader/src/pricing"

	"github.com/shopspring/decimal"
)

type priceOracle interface {
	GetPrice(ctx context.Context, securityID string) (decimal.Decimal, error)
	GetFreshPrice(ctx context.Context, securityID string) (decimal.Decimal, error)
	GetPrices(ctx context.Context, securityIDs []string) map[string]decimal.Decimal
	GetQuoteInfo(ctx context.Context, securityID string) (*pricing.QuoteInfo, error)
}

type exceptionRepository interface {
	Create(ctx context.Context, exception *model.Exception) error
}

// brokerageClient reads the real account behind a user's session token.
type brokerageClient interface {
	GetCashBalance(ctx context.Context, accessToken string) (decimal.Decimal, error)
	GetSettledHoldings(ctx context.Context, accessToken string) ([]externalmodel.KiteHolding, error)
	GetOpenPositions(ctx context.Context, accessToken string) ([]externalmodel.KitePosition, error)
}

// Broadcaster pushes committed events to live subscribers.
type Broadcaster interface {
	Broadcast(topic string, payload interface{})
}
