package externalmodel

import "github.com/shopspring/decimal"

// KiteEnvelope is the common Kite Connect response wrapper.
type KiteEnvelope[T any] struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	ErrorType string `json:"error_type,omitempty"`
	Data      T      `json:"data"`
}

// KiteMargins is the payload of GET /user/margins.
type KiteMargins struct {
	Equity struct {
		Enabled   bool            `json:"enabled"`
		Net       decimal.Decimal `json:"net"`
		Available struct {
			Cash           decimal.Decimal `json:"cash"`
			OpeningBalance decimal.Decimal `json:"opening_balance"`
			LiveBalance    decimal.Decimal `json:"live_balance"`
		} `json:"available"`
	} `json:"equity"`
}

// KiteHolding is one settled (delivery) holding from GET /portfolio/holdings.
type KiteHolding struct {
	TradingSymbol string          `json:"tradingsymbol"`
	Exchange      string          `json:"exchange"`
	ISIN          string          `json:"isin"`
	Product       string          `json:"product"`
	Quantity      int64           `json:"quantity"`
	T1Quantity    int64           `json:"t1_quantity"`
	AveragePrice  decimal.Decimal `json:"average_price"`
	ClosePrice    decimal.Decimal `json:"close_price"`
	LastPrice     decimal.Decimal `json:"last_price"`
	MTF           struct {
		Quantity     int64           `json:"quantity"`
		AveragePrice decimal.Decimal `json:"average_price"`
	} `json:"mtf"`
}

// TotalQuantity is settled + T1 + margin-funded quantity.
func (h KiteHolding) TotalQuantity() int64 {
	return h.Quantity + h.T1Quantity + h.MTF.Quantity
}

// KitePosition is one open position from GET /portfolio/positions.
type KitePosition struct {
	TradingSymbol string          `json:"tradingsymbol"`
	Exchange      string          `json:"exchange"`
	Product       string          `json:"product"`
	Quantity      int64           `json:"quantity"`
	AveragePrice  decimal.Decimal `json:"average_price"`
	ClosePrice    decimal.Decimal `json:"close_price"`
	LastPrice     decimal.Decimal `json:"last_price"`
}

// KitePositions groups net and day-wise positions.
type KitePositions struct {
	Net []KitePosition `json:"net"`
	Day []KitePosition `json:"day"`
}
