package controller

import (
	"context"
	"strings"
	"time"

	"papertrader/src/ledgererr"
	"papertrader/src/mapper"
	"papertrader/src/metrics"
	"papertrader/src/model"
	"papertrader/src/repository"
	"papertrader/src/risk"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

const (
	tradeComponent = "TradeController"

	// TopicTrades is the broadcast topic for committed trades.
	TopicTrades = "trades"
)

type TradeRequest struct {
	UserID     string `json:"-"`
	SecurityID string `json:"ticker"`
	Quantity   int64  `json:"quantity"`
	Action     string `json:"action"`
}

type TradeResult struct {
	TradeID        string           `json:"trade_id"`
	UserID         string           `json:"user_id"`
	Action         string           `json:"action"`
	SecurityID     string           `json:"ticker"`
	Quantity       int64            `json:"quantity"`
	Price          decimal.Decimal  `json:"price"`
	TotalValue     decimal.Decimal  `json:"total_value"`
	NewCash        decimal.Decimal  `json:"new_cash"`
	RealizedProfit *decimal.Decimal `json:"realized_profit,omitempty"`
	Timestamp      time.Time        `json:"timestamp"`
}

// TradeController executes market orders against the ledger at the firm
// oracle price.
type TradeController struct {
	accounts   *AccountController
	store      repository.LedgerStore
	oracle     priceOracle
	exceptions exceptionRepository
	cfg        Config

	broadcaster Broadcaster
}

func NewTradeController(
	accounts *AccountController,
	store repository.LedgerStore,
	oracle priceOracle,
	exceptions exceptionRepository,
	cfg Config,
) *TradeController {
	return &TradeController{
		accounts:   accounts,
		store:      store,
		oracle:     oracle,
		exceptions: exceptions,
		cfg:        cfg,
	}
}

// SetBroadcaster attaches a live feed for committed trades.
func (c *TradeController) SetBroadcaster(b Broadcaster) {
	c.broadcaster = b
}

// Execute validates, prices and applies one trade. A rejected trade leaves
// the ledger untouched.
func (c *TradeController) Execute(ctx context.Context, req TradeRequest) (*TradeResult, error) {
	start := time.Now()
	action := strings.ToUpper(strings.TrimSpace(req.Action))

	log := logger.WithFields(map[string]interface{}{
		"component": tradeComponent,
		"user_id":   req.UserID,
		"action":    action,
		"ticker":    req.SecurityID,
		"quantity":  req.Quantity,
	})

	securityID, err := c.validate(req, action)
	if err != nil {
		return nil, c.reject(log, err)
	}

	if _, err := c.accounts.Ensure(ctx, req.UserID); err != nil {
		return nil, c.reject(log, err)
	}

	price, err := c.oracle.GetFreshPrice(ctx, securityID)
	if err != nil {
		return nil, c.reject(log, err)
	}

	var result *TradeResult
	err = c.store.RunTransaction(ctx, req.UserID, func(tx repository.LedgerTx) error {
		r, err := c.apply(ctx, tx, req.UserID, action, securityID, req.Quantity, price)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		err = captureFault(ctx, c.exceptions, tradeComponent, "Execute", req.UserID, err, map[string]interface{}{
			"action": action,
			"ticker": securityID,
			"qty":    req.Quantity,
			"price":  price.String(),
		})
		return nil, c.reject(log, err)
	}

	if n, err := c.store.TrimHistory(ctx, req.UserID, c.cfg.TradeHistoryLimit); err != nil {
		log.WithError(err).Warn("Failed to trim trade history")
	} else if n > 0 {
		log.WithField("deleted", n).Debug("Trimmed trade history")
	}

	metrics.TradesTotal.WithLabelValues(action).Inc()
	metrics.TradeLatency.WithLabelValues(action).Observe(time.Since(start).Seconds())

	log.WithFields(map[string]interface{}{
		"trade_id": result.TradeID,
		"price":    result.Price.String(),
		"new_cash": result.NewCash.String(),
	}).Info("Trade executed")

	if c.broadcaster != nil {
		c.broadcaster.Broadcast(TopicTrades, result)
	}

	return result, nil
}

func (c *TradeController) validate(req TradeRequest, action string) (string, error) {
	if err := validUserID(req.UserID); err != nil {
		return "", err
	}
	if action != model.ActionBuy && action != model.ActionSell {
		return "", ledgererr.InvalidInput("action must be BUY or SELL, got %q", req.Action)
	}
	if err := risk.ValidateQuantity(req.Quantity); err != nil {
		return "", err
	}
	securityID, ok := mapper.NormalizeTicker(req.SecurityID)
	if !ok {
		return "", ledgererr.InvalidInput("ticker is required")
	}
	return securityID, nil
}

func (c *TradeController) apply(
	ctx context.Context,
	tx repository.LedgerTx,
	userID, action, securityID string,
	quantity int64,
	price decimal.Decimal,
) (*TradeResult, error) {

	acc, err := tx.GetAccount(ctx, userID)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, ledgererr.InvalidInput("account %s not found", userID)
	}

	holding, err := tx.GetHolding(ctx, userID, securityID)
	if err != nil {
		return nil, err
	}

	total := price.Mul(decimal.NewFromInt(quantity))
	entry := &model.HistoryEntry{
		UserID:     userID,
		Action:     action,
		SecurityID: securityID,
		Quantity:   quantity,
		Price:      price,
		TotalValue: total,
	}

	switch action {
	case model.ActionBuy:
		if err := risk.CheckBuyingPower(securityID, acc.Cash, price, quantity); err != nil {
			return nil, err
		}
		acc.Cash = acc.Cash.Sub(total)

		if holding != nil {
			holding.AvgPrice = risk.WeightedAverage(holding.Quantity, holding.AvgPrice, quantity, price).Round(avgPriceScale)
			holding.Quantity += quantity
		} else {
			holding = &model.Holding{
				UserID:         userID,
				SecurityID:     securityID,
				Quantity:       quantity,
				AvgPrice:       price,
				PrevClosePrice: price,
				ProductType:    model.ProductTypeCNC,
			}
		}
		if err := tx.SaveHolding(ctx, holding); err != nil {
			return nil, err
		}

	case model.ActionSell:
		if err := risk.CheckSellable(securityID, holding, price, quantity); err != nil {
			return nil, err
		}
		acc.Cash = acc.Cash.Add(total)

		profit := risk.RealizedProfit(holding.AvgPrice, price, quantity).Round(avgPriceScale)
		entry.RealizedProfit = &profit

		holding.Quantity -= quantity
		if holding.Quantity == 0 {
			err = tx.DeleteHolding(ctx, userID, securityID)
		} else {
			err = tx.SaveHolding(ctx, holding)
		}
		if err != nil {
			return nil, err
		}
	}

	if err := tx.SaveAccount(ctx, acc); err != nil {
		return nil, err
	}
	if err := tx.AppendHistory(ctx, entry); err != nil {
		return nil, err
	}

	return &TradeResult{
		TradeID:        entry.TradeID,
		UserID:         userID,
		Action:         action,
		SecurityID:     securityID,
		Quantity:       quantity,
		Price:          price,
		TotalValue:     total,
		NewCash:        acc.Cash,
		RealizedProfit: entry.RealizedProfit,
		Timestamp:      entry.Timestamp,
	}, nil
}

func (c *TradeController) reject(log *logger.Entry, err error) error {
	kind := "unknown"
	if le, ok := ledgererr.AsError(err); ok {
		kind = string(le.Kind)
	}
	metrics.TradeRejections.WithLabelValues(kind).Inc()

	log.WithError(err).WithField("kind", kind).Warn("Trade rejected")
	return err
}
