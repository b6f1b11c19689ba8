package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"papertrader/src/externalmodel"

	"github.com/go-resty/resty/v2"
	logger "github.com/sirupsen/logrus"
)

// MarketDataConnector talks to the public quote API.
type MarketDataConnector struct {
	baseURL string
	http    *resty.Client
}

// NewMarketDataConnector builds a connector from the environment.
func NewMarketDataConnector() *MarketDataConnector {
	cfg := GetConfig()
	return NewMarketDataConnectorWithURL(cfg.MarketDataBaseURL, cfg)
}

func NewMarketDataConnectorWithURL(baseURL string, cfg Config) *MarketDataConnector {
	if baseURL == "" {
		baseURL = "https://query1.finance.yahoo.com"
		logger.Warnf("No market data base URL provided, using default: %s", baseURL)
	}

	return &MarketDataConnector{
		baseURL: baseURL,
		http:    newRestyClient(baseURL, cfg.MarketDataTimeout, cfg.MarketDataRetryCount),
	}
}

// GetQuote fetches one symbol from the chart endpoint. The last non-null
// close is used when the meta block carries no market price.
func (c *MarketDataConnector) GetQuote(ctx context.Context, symbol string) (*externalmodel.Quote, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("symbol", symbol).
		SetQueryParams(map[string]string{
			"interval": "1d",
			"range":    "5d",
		}).
		Get("/v8/finance/chart/{symbol}")
	if err != nil {
		return nil, fmt.Errorf("chart %s: %w", symbol, err)
	}

	if resp.StatusCode() == http.StatusNotFound {
		return nil, fmt.Errorf("chart %s: %w", symbol, ErrQuoteNotFound)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("chart %s: HTTP %d: %s", symbol, resp.StatusCode(), string(resp.Body()))
	}

	var parsed externalmodel.ChartResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, fmt.Errorf("chart %s: decode: %w", symbol, err)
	}
	if parsed.Chart.Error != nil {
		return nil, fmt.Errorf("chart %s: %s: %w", symbol, parsed.Chart.Error.Description, ErrQuoteNotFound)
	}
	if len(parsed.Chart.Result) == 0 {
		return nil, fmt.Errorf("chart %s: %w", symbol, ErrQuoteNotFound)
	}

	result := parsed.Chart.Result[0]
	quote := &externalmodel.Quote{
		Symbol:   symbol,
		Currency: result.Meta.Currency,
	}

	var closes []*float64
	if len(result.Indicators.Quote) > 0 {
		closes = result.Indicators.Quote[0].Close
	}

	quote.RegularMarketPrice = result.Meta.RegularMarketPrice
	if quote.RegularMarketPrice == nil {
		quote.RegularMarketPrice = lastClose(closes, 0)
	}

	quote.RegularMarketPreviousClose = result.Meta.PreviousClose
	if quote.RegularMarketPreviousClose == nil {
		quote.RegularMarketPreviousClose = lastClose(closes, 1)
	}
	if quote.RegularMarketPreviousClose == nil {
		quote.RegularMarketPreviousClose = result.Meta.ChartPreviousClose
	}

	if quote.RegularMarketPrice == nil {
		return nil, fmt.Errorf("chart %s: no price: %w", symbol, ErrQuoteNotFound)
	}

	return quote, nil
}

// lastClose returns the skip-th most recent non-null close.
func lastClose(closes []*float64, skip int) *float64 {
	for i := len(closes) - 1; i >= 0; i-- {
		if closes[i] == nil {
			continue
		}
		if skip == 0 {
			v := *closes[i]
			return &v
		}
		skip--
	}
	return nil
}

// GetQuotes fetches many symbols in one call. Symbols the source does not
// know are simply absent from the returned map.
func (c *MarketDataConnector) GetQuotes(ctx context.Context, symbols []string) (map[string]externalmodel.Quote, error) {
	out := make(map[string]externalmodel.Quote, len(symbols))
	if len(symbols) == 0 {
		return out, nil
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("symbols", strings.Join(symbols, ",")).
		Get("/v7/finance/quote")
	if err != nil {
		return nil, fmt.Errorf("batch quote: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("batch quote: HTTP %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	var parsed externalmodel.QuoteResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, fmt.Errorf("batch quote: decode: %w", err)
	}
	if parsed.QuoteResponse.Error != nil {
		return nil, fmt.Errorf("batch quote: %s", parsed.QuoteResponse.Error.Description)
	}

	for _, q := range parsed.QuoteResponse.Result {
		if q.RegularMarketPrice == nil {
			continue
		}
		out[strings.ToUpper(q.Symbol)] = q
	}

	logger.WithFields(map[string]interface{}{
		"connector": "MarketDataConnector",
		"requested": len(symbols),
		"received":  len(out),
	}).Debug("Batch quote fetched")

	return out, nil
}
