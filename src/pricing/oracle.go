package pricing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"papertrader/src/connectors"
	"papertrader/src/externalmodel"
	"papertrader/src/ledgererr"
	"papertrader/src/mapper"
	"papertrader/src/metrics"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

// PriceDecimalPlaces is the precision of every price handed out.
const PriceDecimalPlaces = 2

// QuoteSource is the upstream market-data API.
type QuoteSource interface {
	GetQuote(ctx context.Context, symbol string) (*externalmodel.Quote, error)
	GetQuotes(ctx context.Context, symbols []string) (map[string]externalmodel.Quote, error)
}

// QuoteInfo is display data for a security.
type QuoteInfo struct {
	SecurityID    string
	Name          string
	Currency      string
	Price         decimal.Decimal
	PreviousClose *decimal.Decimal
}

// Oracle resolves security ids to prices.
type Oracle struct {
	source QuoteSource
	cache  Cache
	retry  RetryPolicy
	clock  Clock
}

// NewOracle builds an oracle. A nil cache disables caching.
func NewOracle(source QuoteSource, cache Cache, retry RetryPolicy, clock Clock) *Oracle {
	if clock == nil {
		clock = SystemClock
	}
	return &Oracle{
		source: source,
		cache:  cache,
		retry:  retry,
		clock:  clock,
	}
}

// NewOracleFromEnv wires the market-data connector and the configured cache.
func NewOracleFromEnv() (*Oracle, error) {
	cfg := GetConfig()

	cache, err := NewCacheFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("price cache: %w", err)
	}

	logger.WithFields(map[string]interface{}{
		"cache_enabled": cfg.CacheEnabled,
		"cache_backend": cfg.CacheBackend,
		"cache_ttl":     cfg.CacheTTL.String(),
		"retries":       cfg.RetryAttempts,
	}).Info("Price oracle configured")

	return NewOracle(
		connectors.NewMarketDataConnector(),
		cache,
		RetryPolicy{MaxAttempts: cfg.RetryAttempts, Delay: cfg.RetryDelay},
		SystemClock,
	), nil
}

func roundPrice(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f).Round(PriceDecimalPlaces)
}

func (o *Oracle) cacheGet(ctx context.Context, securityID string) (decimal.Decimal, bool) {
	if o.cache == nil {
		return decimal.Zero, false
	}
	price, ok := o.cache.Get(ctx, securityID)
	if ok {
		metrics.PriceCacheHits.Inc()
	} else {
		metrics.PriceCacheMisses.Inc()
	}
	return price, ok
}

func (o *Oracle) cacheSet(ctx context.Context, securityID string, price decimal.Decimal) {
	if o.cache != nil {
		o.cache.Set(ctx, securityID, price)
	}
}

// fetchQuote is the single-id path with retries.
func (o *Oracle) fetchQuote(ctx context.Context, securityID string) (*externalmodel.Quote, error) {
	var quote *externalmodel.Quote

	err := o.retry.Do(ctx, o.clock, "GetQuote:"+securityID, func(attempt int) error {
		q, err := o.source.GetQuote(ctx, securityID)
		if err != nil {
			return err
		}
		if q == nil || q.RegularMarketPrice == nil {
			return fmt.Errorf("no price for %s: %w", securityID, connectors.ErrQuoteNotFound)
		}
		quote = q
		return nil
	})
	if err != nil {
		metrics.PriceFetches.WithLabelValues("single", "error").Inc()
		logger.WithFields(map[string]interface{}{
			"oracle":      "Oracle",
			"op":          "fetchQuote",
			"security_id": securityID,
		}).WithError(err).Warn("Price fetch failed after retries")

		return nil, ledgererr.PriceUnavailable(securityID, err)
	}

	metrics.PriceFetches.WithLabelValues("single", "ok").Inc()
	return quote, nil
}

func (o *Oracle) fetchPrice(ctx context.Context, securityID string) (decimal.Decimal, error) {
	q, err := o.fetchQuote(ctx, securityID)
	if err != nil {
		return decimal.Zero, err
	}

	price := roundPrice(*q.RegularMarketPrice)
	o.cacheSet(ctx, securityID, price)
	return price, nil
}

// GetPrice returns a price for one id, from cache when fresh.
func (o *Oracle) GetPrice(ctx context.Context, securityID string) (decimal.Decimal, error) {
	if securityID == "" {
		return decimal.Zero, ledgererr.InvalidInput("security id is required")
	}
	if price, ok := o.cacheGet(ctx, securityID); ok {
		return price, nil
	}
	return o.fetchPrice(ctx, securityID)
}

// GetFreshPrice always goes upstream and refreshes the cache. Trades
// execute at this price.
func (o *Oracle) GetFreshPrice(ctx context.Context, securityID string) (decimal.Decimal, error) {
	if securityID == "" {
		return decimal.Zero, ledgererr.InvalidInput("security id is required")
	}
	return o.fetchPrice(ctx, securityID)
}

// GetPrices is the best-effort bulk path. Ids that are not NSE/BSE listings
// or that cannot be priced are left out; it never fails.
func (o *Oracle) GetPrices(ctx context.Context, securityIDs []string) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(securityIDs))

	seen := make(map[string]struct{}, len(securityIDs))
	var pending []string
	for _, id := range securityIDs {
		if !mapper.IsIndianListing(id) {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		if price, ok := o.cacheGet(ctx, id); ok {
			out[id] = price
			continue
		}
		pending = append(pending, id)
	}

	if len(pending) == 0 {
		return out
	}

	quotes, err := o.source.GetQuotes(ctx, pending)
	if err != nil {
		metrics.PriceFetches.WithLabelValues("batch", "error").Inc()
		logger.WithFields(map[string]interface{}{
			"oracle":  "Oracle",
			"op":      "GetPrices",
			"pending": len(pending),
		}).WithError(err).Warn("Batch quote failed, fetching individually")

		quotes = nil
	} else {
		metrics.PriceFetches.WithLabelValues("batch", "ok").Inc()
	}

	for _, id := range pending {
		if q, ok := quotes[strings.ToUpper(id)]; ok && q.RegularMarketPrice != nil {
			price := roundPrice(*q.RegularMarketPrice)
			o.cacheSet(ctx, id, price)
			out[id] = price
			continue
		}

		price, err := o.fetchPrice(ctx, id)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				break
			}
			continue
		}
		out[id] = price
	}

	return out
}

// GetQuoteInfo returns display data: name with static fallbacks, price and
// previous close.
func (o *Oracle) GetQuoteInfo(ctx context.Context, securityID string) (*QuoteInfo, error) {
	q, err := o.fetchQuote(ctx, securityID)
	if err != nil {
		return nil, err
	}

	info := &QuoteInfo{
		SecurityID: securityID,
		Name:       q.ShortName,
		Currency:   q.Currency,
		Price:      roundPrice(*q.RegularMarketPrice),
	}
	if info.Name == "" {
		info.Name = q.LongName
	}
	if info.Name == "" {
		info.Name = mapper.CompanyName(securityID)
	}
	if q.RegularMarketPreviousClose != nil {
		pc := roundPrice(*q.RegularMarketPreviousClose)
		info.PreviousClose = &pc
	}

	o.cacheSet(ctx, securityID, info.Price)
	return info, nil
}

// Close releases the cache connection, if the cache holds one.
func (o *Oracle) Close() error {
	if c, ok := o.cache.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
