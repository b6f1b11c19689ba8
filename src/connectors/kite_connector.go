package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"papertrader/src/externalmodel"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

const kiteVersion = "3"

// KiteConnector reads account state from Kite Connect. The access token is
// per user, so every call takes it explicitly.
type KiteConnector struct {
	apiKey  string
	baseURL string
	http    *resty.Client
}

func NewKiteConnector() *KiteConnector {
	cfg := GetConfig()
	return NewKiteConnectorWithURL(cfg.KiteBaseURL, cfg.KiteAPIKey, cfg)
}

func NewKiteConnectorWithURL(baseURL, apiKey string, cfg Config) *KiteConnector {
	if baseURL == "" {
		baseURL = "https://api.kite.trade"
		logger.Warnf("No Kite base URL provided, using default: %s", baseURL)
	}

	return &KiteConnector{
		apiKey:  apiKey,
		baseURL: baseURL,
		http:    newRestyClient(baseURL, cfg.KiteTimeout, cfg.KiteRetryCount),
	}
}

// kiteGet performs an authenticated GET and decodes the envelope data into out.
func kiteGet[T any](ctx context.Context, c *KiteConnector, accessToken, path string, out *T) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("X-Kite-Version", kiteVersion).
		SetHeader("Authorization", fmt.Sprintf("token %s:%s", c.apiKey, accessToken)).
		Get(path)
	if err != nil {
		return fmt.Errorf("kite %s: %w", path, err)
	}

	var envelope externalmodel.KiteEnvelope[T]
	decodeErr := json.Unmarshal(resp.Body(), &envelope)

	if resp.StatusCode() != http.StatusOK || envelope.Status == "error" {
		if isKiteAuthFailure(resp.StatusCode(), envelope.ErrorType) {
			logger.WithFields(map[string]interface{}{
				"connector":  "KiteConnector",
				"path":       path,
				"status":     resp.StatusCode(),
				"error_type": envelope.ErrorType,
			}).Warn("Brokerage rejected access token")

			return fmt.Errorf("kite %s: %s: %w", path, envelope.Message, ErrBrokerageAuth)
		}
		return fmt.Errorf("kite %s: HTTP %d: %s (%s)", path, resp.StatusCode(), envelope.Message, GetKiteErrorMsg(envelope.ErrorType))
	}

	if decodeErr != nil {
		return fmt.Errorf("kite %s: decode: %w", path, decodeErr)
	}

	*out = envelope.Data
	return nil
}

// GetCashBalance returns the available equity cash.
func (c *KiteConnector) GetCashBalance(ctx context.Context, accessToken string) (decimal.Decimal, error) {
	var margins externalmodel.KiteMargins
	if err := kiteGet(ctx, c, accessToken, "/user/margins", &margins); err != nil {
		return decimal.Zero, err
	}
	return margins.Equity.Available.Cash, nil
}

// GetSettledHoldings returns long-term delivery holdings.
func (c *KiteConnector) GetSettledHoldings(ctx context.Context, accessToken string) ([]externalmodel.KiteHolding, error) {
	var holdings []externalmodel.KiteHolding
	if err := kiteGet(ctx, c, accessToken, "/portfolio/holdings", &holdings); err != nil {
		return nil, err
	}
	return holdings, nil
}

// GetOpenPositions returns the net positions.
func (c *KiteConnector) GetOpenPositions(ctx context.Context, accessToken string) ([]externalmodel.KitePosition, error) {
	var positions externalmodel.KitePositions
	if err := kiteGet(ctx, c, accessToken, "/portfolio/positions", &positions); err != nil {
		return nil, err
	}
	return positions.Net, nil
}
