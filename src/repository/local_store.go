package repository

import (
	"context"
	"sync"

	"papertrader/src/database"
	"papertrader/src/ledgererr"
	"papertrader/src/model"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// LocalLedgerStore is the embedded SQLite backend. Transactions are emulated:
// a per-account mutex serialises read-modify-write, fn works on a staged
// view, and the staged writes are flushed in one batch only if fn succeeds.
//
// Code running inside RunTransaction must use the tx it is given; calling
// back into the store for the same user deadlocks.
type LocalLedgerStore struct {
	*GormLedgerRepository

	locks sync.Map // user id -> *sync.Mutex
}

// NewLocalLedgerStore creates the store on db, or on database.LocalDB when db is nil.
func NewLocalLedgerStore(db *gorm.DB) *LocalLedgerStore {
	if db == nil {
		logger.WithField("component", "LocalLedgerStore").
			Info("Creating new LocalLedgerStore with LocalDB")
		db = database.LocalDB
	}

	return &LocalLedgerStore{
		GormLedgerRepository: &GormLedgerRepository{db: db},
	}
}

func (s *LocalLedgerStore) Backend() string { return database.BackendLocal }

func (s *LocalLedgerStore) lockFor(userID string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(userID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func (s *LocalLedgerStore) RunTransaction(ctx context.Context, userID string, fn func(tx LedgerTx) error) error {
	mu := s.lockFor(userID)
	mu.Lock()
	defer mu.Unlock()

	staged := newStagedTx(s.GormLedgerRepository)
	if err := fn(staged); err != nil {
		logger.WithFields(map[string]interface{}{
			"store":   "LocalLedgerStore",
			"op":      "RunTransaction",
			"user_id": userID,
			"staged":  len(staged.ops),
		}).WithError(err).Debug("Discarding staged writes")

		return err
	}

	if err := staged.flush(ctx); err != nil {
		logger.WithFields(map[string]interface{}{
			"store":   "LocalLedgerStore",
			"op":      "RunTransaction",
			"user_id": userID,
		}).WithError(err).Error("Failed to flush staged writes")

		if _, ok := ledgererr.AsError(err); ok {
			return err
		}
		return ledgererr.StoreUnavailable("RunTransaction", err)
	}

	return nil
}

// Mutations outside RunTransaction take the same per-account lock.

func (s *LocalLedgerStore) SaveAccount(ctx context.Context, account *model.Account) error {
	return s.RunTransaction(ctx, account.UserID, func(tx LedgerTx) error {
		return tx.SaveAccount(ctx, account)
	})
}

func (s *LocalLedgerStore) CreateAccount(ctx context.Context, account *model.Account) (bool, error) {
	created := false
	err := s.RunTransaction(ctx, account.UserID, func(tx LedgerTx) error {
		var err error
		created, err = tx.CreateAccount(ctx, account)
		return err
	})
	return created, err
}

func (s *LocalLedgerStore) SaveHolding(ctx context.Context, holding *model.Holding) error {
	return s.RunTransaction(ctx, holding.UserID, func(tx LedgerTx) error {
		return tx.SaveHolding(ctx, holding)
	})
}

func (s *LocalLedgerStore) DeleteHolding(ctx context.Context, userID, securityID string) error {
	return s.RunTransaction(ctx, userID, func(tx LedgerTx) error {
		return tx.DeleteHolding(ctx, userID, securityID)
	})
}

func (s *LocalLedgerStore) ResetHoldings(ctx context.Context, userID string, cash decimal.Decimal) error {
	return s.RunTransaction(ctx, userID, func(tx LedgerTx) error {
		return tx.ResetHoldings(ctx, userID, cash)
	})
}

func (s *LocalLedgerStore) AppendHistory(ctx context.Context, entry *model.HistoryEntry) error {
	return s.RunTransaction(ctx, entry.UserID, func(tx LedgerTx) error {
		return tx.AppendHistory(ctx, entry)
	})
}
