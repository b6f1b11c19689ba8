// Package engine wires the ledger store, price oracle, brokerage client and
// controllers from the environment.
package engine

import (
	"fmt"

	"papertrader/src/connectors"
	"papertrader/src/controller"
	"papertrader/src/database"
	"papertrader/src/pricing"
	"papertrader/src/repository"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type Engine struct {
	DB         *gorm.DB
	Store      repository.LedgerStore
	Oracle     *pricing.Oracle
	Exceptions *repository.ExceptionRepository

	Accounts  *controller.AccountController
	Trades    *controller.TradeController
	Reconcile *controller.ReconcileController
}

// New opens the configured backend and builds every controller on it.
func New() (*Engine, error) {
	db, backend, err := database.Init()
	if err != nil {
		return nil, fmt.Errorf("failed to initialise database: %w", err)
	}

	store, err := repository.NewLedgerStore(backend, db)
	if err != nil {
		return nil, err
	}

	oracle, err := pricing.NewOracleFromEnv()
	if err != nil {
		return nil, err
	}

	exceptions := repository.NewExceptionRepositoryWithDB(db)
	cfg := controller.GetConfig()

	accounts := controller.NewAccountController(store, oracle, exceptions, cfg)

	e := &Engine{
		DB:         db,
		Store:      store,
		Oracle:     oracle,
		Exceptions: exceptions,
		Accounts:   accounts,
		Trades:     controller.NewTradeController(accounts, store, oracle, exceptions, cfg),
		Reconcile:  controller.NewReconcileController(accounts, store, oracle, connectors.NewKiteConnector(), exceptions),
	}

	logger.WithFields(map[string]interface{}{
		"backend":       backend,
		"starting_cash": cfg.StartingCash.String(),
		"timezone":      cfg.MarketTimezone,
	}).Info("Ledger engine ready")

	return e, nil
}

// Close releases the cache and database connections.
func (e *Engine) Close() {
	if err := e.Oracle.Close(); err != nil {
		logger.WithError(err).Warn("failed to close price cache")
	}
	if sqlDB, err := e.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.WithError(err).Warn("failed to close database")
		}
	}
}
