package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"papertrader/src/connectors"
	"papertrader/src/externalmodel"
	"papertrader/src/ledgererr"
	"papertrader/src/mapper"
	"papertrader/src/metrics"
	"papertrader/src/repository"
	"papertrader/src/security"
	"papertrader/src/valuation"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

const reconcileComponent = "ReconcileController"

const SyncStatusSuccess = "success"

type SyncResult struct {
	Status            string          `json:"status"`
	HoldingsSynced    int             `json:"holdings_synced"`
	Cash              decimal.Decimal `json:"cash"`
	NewPortfolioValue decimal.Decimal `json:"new_portfolio_value"`
}

// ReconcileController replaces a paper account with a snapshot of the
// user's real brokerage account.
type ReconcileController struct {
	accounts   *AccountController
	store      repository.LedgerStore
	oracle     priceOracle
	broker     brokerageClient
	exceptions exceptionRepository

	encryptToken func(string) (string, error)
	decryptToken func(string) (string, error)
}

func NewReconcileController(
	accounts *AccountController,
	store repository.LedgerStore,
	oracle priceOracle,
	broker brokerageClient,
	exceptions exceptionRepository,
) *ReconcileController {
	return &ReconcileController{
		accounts:     accounts,
		store:        store,
		oracle:       oracle,
		broker:       broker,
		exceptions:   exceptions,
		encryptToken: security.EncryptString,
		decryptToken: security.DecryptString,
	}
}

type brokerageSnapshot struct {
	cash      decimal.Decimal
	holdings  []externalmodel.KiteHolding
	positions []externalmodel.KitePosition
}

func (c *ReconcileController) fetchSnapshot(ctx context.Context, token string) (*brokerageSnapshot, error) {
	cash, err := c.broker.GetCashBalance(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("fetch cash balance: %w", err)
	}
	holdings, err := c.broker.GetSettledHoldings(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("fetch holdings: %w", err)
	}
	positions, err := c.broker.GetOpenPositions(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("fetch positions: %w", err)
	}
	return &brokerageSnapshot{cash: cash, holdings: holdings, positions: positions}, nil
}

// SyncBrokerage overwrites cash and holdings with the brokerage snapshot and
// restarts the day P&L baseline from the synced value.
func (c *ReconcileController) SyncBrokerage(ctx context.Context, userID, token string) (*SyncResult, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ledgererr.InvalidInput("brokerage access token is required")
	}

	log := logger.WithFields(map[string]interface{}{
		"component": reconcileComponent,
		"user_id":   userID,
	})

	if _, err := c.accounts.Ensure(ctx, userID); err != nil {
		return nil, err
	}

	snapshot, err := c.fetchSnapshot(ctx, token)
	if err != nil {
		if errors.Is(err, connectors.ErrBrokerageAuth) {
			metrics.BrokerageSyncs.WithLabelValues("auth_expired").Inc()
			log.WithError(err).Warn("Brokerage session expired, unlinking")
			if uerr := c.unlink(ctx, userID); uerr != nil {
				log.WithError(uerr).Error("Failed to clear brokerage session")
			}
			return nil, ledgererr.ExternalAuthExpired(err)
		}
		metrics.BrokerageSyncs.WithLabelValues("error").Inc()
		log.WithError(err).Error("Brokerage snapshot failed")
		return nil, err
	}

	cash := snapshot.cash
	if cash.IsNegative() {
		log.WithField("cash", cash.String()).Warn("Brokerage reported negative cash, clamping to zero")
		cash = decimal.Zero
	}

	holdings := mapper.MapBrokerageSnapshot(userID, snapshot.holdings, snapshot.positions)

	var prices map[string]decimal.Decimal
	if len(holdings) > 0 {
		ids := make([]string, 0, len(holdings))
		for _, h := range holdings {
			ids = append(ids, h.SecurityID)
		}
		prices = c.oracle.GetPrices(ctx, ids)
	}
	total := roundMoney(valuation.TotalValue(cash, holdings, prices))

	sealed, err := c.encryptToken(token)
	if err != nil {
		log.WithError(err).Warn("Brokerage token not stored, auto sync disabled")
		sealed = ""
	}

	today := c.accounts.Today()
	err = c.store.RunTransaction(ctx, userID, func(tx repository.LedgerTx) error {
		if err := tx.ResetHoldings(ctx, userID, cash); err != nil {
			return err
		}
		for i := range holdings {
			if err := tx.SaveHolding(ctx, &holdings[i]); err != nil {
				return err
			}
		}

		acc, err := tx.GetAccount(ctx, userID)
		if err != nil {
			return err
		}
		if acc == nil {
			return ledgererr.InvalidInput("account %s not found", userID)
		}

		acc.DayStartPortfolioValue = total
		acc.LastDayPnlReset = today
		acc.NetCashFlowToday = decimal.Zero
		acc.BrokerageSyncedOnce = true
		if sealed != "" {
			acc.BrokerageToken = sealed
		}
		return tx.SaveAccount(ctx, acc)
	})
	if err != nil {
		metrics.BrokerageSyncs.WithLabelValues("error").Inc()
		return nil, captureFault(ctx, c.exceptions, reconcileComponent, "SyncBrokerage", userID, err, map[string]interface{}{
			"holdings": len(holdings),
		})
	}

	metrics.BrokerageSyncs.WithLabelValues(SyncStatusSuccess).Inc()
	log.WithFields(map[string]interface{}{
		"holdings": len(holdings),
		"cash":     cash.String(),
		"value":    total.String(),
	}).Info("Brokerage account synced")

	return &SyncResult{
		Status:            SyncStatusSuccess,
		HoldingsSynced:    len(holdings),
		Cash:              roundMoney(cash),
		NewPortfolioValue: total,
	}, nil
}

// AutoSync re-runs SyncBrokerage with the user's stored session token.
func (c *ReconcileController) AutoSync(ctx context.Context, userID string) (*SyncResult, error) {
	if err := validUserID(userID); err != nil {
		return nil, err
	}

	acc, err := c.store.GetAccount(ctx, userID)
	if err != nil {
		return nil, captureFault(ctx, c.exceptions, reconcileComponent, "AutoSync", userID, err, nil)
	}
	if acc == nil || acc.BrokerageToken == "" {
		return nil, ledgererr.ExternalAuthExpired(errors.New("no stored brokerage session"))
	}

	token, err := c.decryptToken(acc.BrokerageToken)
	if err != nil {
		return nil, ledgererr.ExternalAuthExpired(fmt.Errorf("stored brokerage session unreadable: %w", err))
	}

	return c.SyncBrokerage(ctx, userID, token)
}

// unlink forgets the session token; holdings are left as they are.
func (c *ReconcileController) unlink(ctx context.Context, userID string) error {
	return c.store.RunTransaction(ctx, userID, func(tx repository.LedgerTx) error {
		acc, err := tx.GetAccount(ctx, userID)
		if err != nil || acc == nil {
			return err
		}
		acc.BrokerageToken = ""
		acc.BrokerageSyncedOnce = false
		return tx.SaveAccount(ctx, acc)
	})
}
