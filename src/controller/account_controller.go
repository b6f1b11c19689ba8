package controller

import (
	"context"
	"fmt"
	"strings"
	"time"

	"papertrader/src/ledgererr"
	"papertrader/src/mapper"
	"papertrader/src/metrics"
	"papertrader/src/model"
	"papertrader/src/parallel"
	"papertrader/src/pricing"
	"papertrader/src/repository"
	"papertrader/src/risk"
	"papertrader/src/utils"
	"papertrader/src/valuation"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

const accountComponent = "AccountController"

// AccountController owns the account lifecycle: lazy creation, back-fill of
// legacy rows and the daily P&L baseline.
type AccountController struct {
	store      repository.LedgerStore
	oracle     priceOracle
	exceptions exceptionRepository
	cfg        Config

	loc *time.Location
	now func() time.Time
}

func NewAccountController(
	store repository.LedgerStore,
	oracle priceOracle,
	exceptions exceptionRepository,
	cfg Config,
) *AccountController {
	return &AccountController{
		store:      store,
		oracle:     oracle,
		exceptions: exceptions,
		cfg:        cfg,
		loc:        utils.LoadLocation(cfg.MarketTimezone),
		now:        time.Now,
	}
}

// SetClock replaces the wall clock used to decide the trading day.
func (c *AccountController) SetClock(now func() time.Time) {
	c.now = now
}

// Today is the current calendar date in the market timezone.
func (c *AccountController) Today() string {
	return utils.TradingDay(c.now(), c.loc)
}

type PortfolioView struct {
	valuation.Portfolio
	DayStartPortfolioValue decimal.Decimal `json:"day_start_portfolio_value"`
	NetCashFlowToday       decimal.Decimal `json:"net_cash_flow_today"`
	BrokerageSyncedOnce    bool            `json:"brokerage_synced_once"`
}

type AdjustCashResult struct {
	PreviousCash     decimal.Decimal `json:"previous_cash"`
	Cash             decimal.Decimal `json:"cash"`
	NetCashFlowToday decimal.Decimal `json:"net_cash_flow_today"`
}

type WatchlistItem struct {
	SecurityID     string           `json:"ticker"`
	Name           string           `json:"name"`
	Price          *decimal.Decimal `json:"price"`
	Change         *decimal.Decimal `json:"change"`
	ChangePercent  *decimal.Decimal `json:"change_percent"`
	PriceAvailable bool             `json:"price_available"`
}

type WatchlistAddResult struct {
	Added   []string          `json:"added"`
	Invalid map[string]string `json:"invalid,omitempty"`
}

type StockQuote struct {
	SecurityID    string           `json:"ticker"`
	Name          string           `json:"name"`
	Currency      string           `json:"currency"`
	Price         decimal.Decimal  `json:"price"`
	PreviousClose *decimal.Decimal `json:"previous_close,omitempty"`
}

func validUserID(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return ledgererr.InvalidInput("user id is required")
	}
	return nil
}

// Ensure returns the user's account, creating, back-filling or rolling it
// over as needed. Prices for a rollover are fetched before the account lock
// is taken.
func (c *AccountController) Ensure(ctx context.Context, userID string) (*model.Account, error) {
	if err := validUserID(userID); err != nil {
		return nil, err
	}

	today := c.Today()

	acc, err := c.store.GetAccount(ctx, userID)
	if err != nil {
		return nil, c.fault(ctx, "Ensure", userID, err)
	}
	if acc != nil && !acc.NeedsBackfill() && acc.LastDayPnlReset == today {
		return acc, nil
	}

	var prices map[string]decimal.Decimal
	if acc != nil && acc.LastDayPnlReset != "" && acc.LastDayPnlReset != today {
		if prices, err = c.livePrices(ctx, userID); err != nil {
			return nil, err
		}
	}

	return c.applyLifecycle(ctx, userID, today, prices, false)
}

// ForceRollover resets the day baseline to the current total value even if
// the account was already rolled over today.
func (c *AccountController) ForceRollover(ctx context.Context, userID string) (*model.Account, error) {
	if _, err := c.Ensure(ctx, userID); err != nil {
		return nil, err
	}

	prices, err := c.livePrices(ctx, userID)
	if err != nil {
		return nil, err
	}
	return c.applyLifecycle(ctx, userID, c.Today(), prices, true)
}

// RolloverAll ensures every known account. Failures are logged and counted.
func (c *AccountController) RolloverAll(ctx context.Context) (int, error) {
	ids, err := c.store.ListAccountIDs(ctx)
	if err != nil {
		return 0, c.fault(ctx, "RolloverAll", "", err)
	}

	failed := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return failed, ctx.Err()
		}
		if _, err := c.Ensure(ctx, id); err != nil {
			failed++
			logger.WithFields(map[string]interface{}{
				"component": accountComponent,
				"op":        "RolloverAll",
				"user_id":   id,
			}).WithError(err).Warn("Account rollover failed")
		}
	}

	logger.WithFields(map[string]interface{}{
		"component": accountComponent,
		"accounts":  len(ids),
		"failed":    failed,
	}).Debug("Rollover pass finished")

	return failed, nil
}

func (c *AccountController) livePrices(ctx context.Context, userID string) (map[string]decimal.Decimal, error) {
	holdings, err := c.store.ListHoldings(ctx, userID)
	if err != nil {
		return nil, c.fault(ctx, "ListHoldings", userID, err)
	}
	if len(holdings) == 0 {
		return map[string]decimal.Decimal{}, nil
	}

	ids := make([]string, 0, len(holdings))
	for _, h := range holdings {
		ids = append(ids, h.SecurityID)
	}
	return c.oracle.GetPrices(ctx, ids), nil
}

func (c *AccountController) applyLifecycle(
	ctx context.Context,
	userID, today string,
	prices map[string]decimal.Decimal,
	force bool,
) (*model.Account, error) {

	var out *model.Account
	err := c.store.RunTransaction(ctx, userID, func(tx repository.LedgerTx) error {
		acc, err := tx.GetAccount(ctx, userID)
		if err != nil {
			return err
		}

		if acc == nil {
			seed := c.seedAccount(userID, today)
			created, err := tx.CreateAccount(ctx, seed)
			if err != nil {
				return err
			}
			if created {
				logger.WithFields(map[string]interface{}{
					"component": accountComponent,
					"user_id":   userID,
					"cash":      seed.Cash.String(),
				}).Info("Account created")
				out = seed
				return nil
			}

			// A concurrent first access inserted the row; the lock read now sees it.
			if acc, err = tx.GetAccount(ctx, userID); err != nil {
				return err
			}
			if acc == nil {
				return ledgererr.StoreUnavailable("Ensure", fmt.Errorf("account %s vanished after insert conflict", userID))
			}
		}

		changed := c.backfill(acc, today)

		if force || acc.LastDayPnlReset != today {
			holdings, err := tx.ListHoldings(ctx, userID)
			if err != nil {
				return err
			}
			previous := acc.LastDayPnlReset

			acc.DayStartPortfolioValue = roundMoney(valuation.TotalValue(acc.Cash, holdings, prices))
			acc.LastDayPnlReset = today
			acc.NetCashFlowToday = decimal.Zero
			changed = true

			metrics.Rollovers.Inc()
			logger.WithFields(map[string]interface{}{
				"component": accountComponent,
				"user_id":   userID,
				"from":      previous,
				"to":        today,
				"day_start": acc.DayStartPortfolioValue.String(),
			}).Info("Day P&L baseline rolled over")
		}

		if changed {
			if err := tx.SaveAccount(ctx, acc); err != nil {
				return err
			}
		}
		out = acc
		return nil
	})
	if err != nil {
		return nil, c.fault(ctx, "Ensure", userID, err)
	}

	return out, nil
}

func (c *AccountController) seedAccount(userID, today string) *model.Account {
	return &model.Account{
		UserID:                 userID,
		Cash:                   c.cfg.StartingCash,
		InitialCash:            c.cfg.StartingCash,
		DayStartPortfolioValue: c.cfg.StartingCash,
		LastDayPnlReset:        today,
		NetCashFlowToday:       decimal.Zero,
		AccountInitialized:     true,
	}
}

// backfill fills columns that rows written by older versions lack.
func (c *AccountController) backfill(acc *model.Account, today string) bool {
	changed := false

	if !acc.AccountInitialized {
		acc.AccountInitialized = true
		changed = true
	}
	if acc.InitialCash.IsZero() {
		acc.InitialCash = acc.Cash
		changed = true
	}
	if acc.LastDayPnlReset == "" {
		acc.DayStartPortfolioValue = acc.Cash
		acc.LastDayPnlReset = today
		acc.NetCashFlowToday = decimal.Zero
		changed = true
	}

	if changed {
		logger.WithFields(map[string]interface{}{
			"component": accountComponent,
			"user_id":   acc.UserID,
		}).Info("Back-filled legacy account fields")
	}
	return changed
}

// GetPortfolio values the account's holdings at current prices.
func (c *AccountController) GetPortfolio(ctx context.Context, userID string) (*PortfolioView, error) {
	acc, err := c.Ensure(ctx, userID)
	if err != nil {
		return nil, err
	}

	holdings, err := c.store.ListHoldings(ctx, userID)
	if err != nil {
		return nil, c.fault(ctx, "GetPortfolio", userID, err)
	}

	ids := make([]string, 0, len(holdings))
	for _, h := range holdings {
		ids = append(ids, h.SecurityID)
	}

	var prices map[string]decimal.Decimal
	if len(ids) > 0 {
		prices = c.oracle.GetPrices(ctx, ids)
	}

	infos := parallel.Map(ctx, ids, parallel.Limit(len(ids), c.cfg.PortfolioInfoWorkers),
		func(ctx context.Context, id string) (*pricing.QuoteInfo, error) {
			return c.oracle.GetQuoteInfo(ctx, id)
		})

	positions := make([]valuation.Position, 0, len(holdings))
	for i, h := range holdings {
		pos := valuation.Position{Holding: h, Name: mapper.CompanyName(h.SecurityID)}
		if p, ok := prices[h.SecurityID]; ok {
			price := p
			pos.Price = &price
		}
		if infos[i].Err == nil && infos[i].Value != nil {
			pos.QuotePrevClose = infos[i].Value.PreviousClose
			if infos[i].Value.Name != "" {
				pos.Name = infos[i].Value.Name
			}
		}
		positions = append(positions, pos)
	}

	return &PortfolioView{
		Portfolio:              valuation.Value(acc.Cash, positions),
		DayStartPortfolioValue: roundMoney(acc.DayStartPortfolioValue),
		NetCashFlowToday:       roundMoney(acc.NetCashFlowToday),
		BrokerageSyncedOnce:    acc.BrokerageSyncedOnce,
	}, nil
}

// AdjustCash overwrites the cash balance and books the difference as a
// deposit or withdrawal for today's P&L.
func (c *AccountController) AdjustCash(ctx context.Context, userID string, newCash decimal.Decimal) (*AdjustCashResult, error) {
	if err := risk.ValidateAdjustCash(newCash, c.cfg.MaxAdjustCash); err != nil {
		return nil, err
	}
	if _, err := c.Ensure(ctx, userID); err != nil {
		return nil, err
	}

	var result AdjustCashResult
	err := c.store.RunTransaction(ctx, userID, func(tx repository.LedgerTx) error {
		acc, err := tx.GetAccount(ctx, userID)
		if err != nil {
			return err
		}
		if acc == nil {
			return ledgererr.InvalidInput("account %s not found", userID)
		}

		delta := newCash.Sub(acc.Cash)
		result.PreviousCash = acc.Cash

		acc.Cash = newCash
		acc.NetCashFlowToday = acc.NetCashFlowToday.Add(delta)
		if err := tx.SaveAccount(ctx, acc); err != nil {
			return err
		}

		result.Cash = acc.Cash
		result.NetCashFlowToday = acc.NetCashFlowToday
		return nil
	})
	if err != nil {
		return nil, c.fault(ctx, "AdjustCash", userID, err)
	}

	logger.WithFields(map[string]interface{}{
		"component": accountComponent,
		"user_id":   userID,
		"previous":  result.PreviousCash.String(),
		"cash":      result.Cash.String(),
	}).Info("Cash adjusted")

	return &result, nil
}

// History returns the most recent trades, newest first.
func (c *AccountController) History(ctx context.Context, userID string) ([]model.HistoryEntry, error) {
	if err := validUserID(userID); err != nil {
		return nil, err
	}

	entries, err := c.store.ListHistory(ctx, userID, c.cfg.TradeHistoryLimit)
	if err != nil {
		return nil, c.fault(ctx, "History", userID, err)
	}
	if entries == nil {
		entries = []model.HistoryEntry{}
	}
	return entries, nil
}

// StockPrice resolves a ticker or company name and returns its quote.
func (c *AccountController) StockPrice(ctx context.Context, raw string) (*StockQuote, error) {
	securityID, ok := mapper.NormalizeTicker(raw)
	if !ok {
		return nil, ledgererr.InvalidInput("ticker is required")
	}

	info, err := c.oracle.GetQuoteInfo(ctx, securityID)
	if err != nil {
		return nil, err
	}

	return &StockQuote{
		SecurityID:    securityID,
		Name:          info.Name,
		Currency:      info.Currency,
		Price:         info.Price,
		PreviousClose: info.PreviousClose,
	}, nil
}

// AddToWatchlist adds each ticker that resolves to a priced security, up to
// the per-user cap. Unresolvable tickers are reported, not fatal.
func (c *AccountController) AddToWatchlist(ctx context.Context, userID string, tickers []string) (*WatchlistAddResult, error) {
	if err := validUserID(userID); err != nil {
		return nil, err
	}
	if len(tickers) == 0 {
		return nil, ledgererr.InvalidInput("at least one ticker is required")
	}
	if len(tickers) > c.cfg.WatchlistLimit {
		return nil, ledgererr.InvalidInput("at most %d tickers can be added at once", c.cfg.WatchlistLimit)
	}

	current, err := c.store.ListWatchlist(ctx, userID)
	if err != nil {
		return nil, c.fault(ctx, "AddToWatchlist", userID, err)
	}
	members := make(map[string]bool, len(current))
	for _, e := range current {
		members[e.SecurityID] = true
	}

	result := &WatchlistAddResult{Added: []string{}, Invalid: map[string]string{}}
	for _, raw := range tickers {
		securityID, ok := mapper.NormalizeTicker(raw)
		if !ok {
			result.Invalid[raw] = "empty ticker"
			continue
		}
		if members[securityID] {
			result.Added = append(result.Added, securityID)
			continue
		}
		if len(members) >= c.cfg.WatchlistLimit {
			result.Invalid[raw] = "watchlist is full"
			continue
		}
		if _, err := c.oracle.GetPrice(ctx, securityID); err != nil {
			result.Invalid[raw] = "no price available"
			continue
		}
		if err := c.store.AddWatchlist(ctx, userID, securityID); err != nil {
			return nil, c.fault(ctx, "AddToWatchlist", userID, err)
		}
		members[securityID] = true
		result.Added = append(result.Added, securityID)
	}

	if len(result.Added) == 0 {
		return result, ledgererr.InvalidInput("no valid tickers to add")
	}
	return result, nil
}

// RemoveFromWatchlist removes one ticker and returns its canonical id.
func (c *AccountController) RemoveFromWatchlist(ctx context.Context, userID, raw string) (string, error) {
	if err := validUserID(userID); err != nil {
		return "", err
	}
	securityID, ok := mapper.NormalizeTicker(raw)
	if !ok {
		return "", ledgererr.InvalidInput("ticker is required")
	}

	removed, err := c.store.RemoveWatchlist(ctx, userID, securityID)
	if err != nil {
		return "", c.fault(ctx, "RemoveFromWatchlist", userID, err)
	}
	if !removed {
		return "", ledgererr.InvalidInput("%s is not in the watchlist", securityID)
	}
	return securityID, nil
}

// Watchlist lists the user's watched tickers with live prices where known.
func (c *AccountController) Watchlist(ctx context.Context, userID string) ([]WatchlistItem, error) {
	if err := validUserID(userID); err != nil {
		return nil, err
	}

	entries, err := c.store.ListWatchlist(ctx, userID)
	if err != nil {
		return nil, c.fault(ctx, "Watchlist", userID, err)
	}
	if len(entries) == 0 {
		return []WatchlistItem{}, nil
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.SecurityID)
	}

	infos := parallel.Map(ctx, ids, parallel.Limit(len(ids), c.cfg.PortfolioInfoWorkers),
		func(ctx context.Context, id string) (*pricing.QuoteInfo, error) {
			return c.oracle.GetQuoteInfo(ctx, id)
		})

	items := make([]WatchlistItem, 0, len(ids))
	for i, id := range ids {
		item := WatchlistItem{SecurityID: id, Name: mapper.CompanyName(id)}

		if infos[i].Err == nil && infos[i].Value != nil {
			info := infos[i].Value
			price := info.Price
			item.Price = &price
			item.PriceAvailable = true
			if info.Name != "" {
				item.Name = info.Name
			}
			if info.PreviousClose != nil {
				change := roundMoney(price.Sub(*info.PreviousClose))
				pct := roundMoney(valuation.Percent(change, *info.PreviousClose))
				item.Change = &change
				item.ChangePercent = &pct
			}
		}
		items = append(items, item)
	}
	return items, nil
}

func (c *AccountController) fault(ctx context.Context, operation, userID string, err error) error {
	return captureFault(ctx, c.exceptions, accountComponent, operation, userID, err, nil)
}
