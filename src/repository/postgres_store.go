package repository

import (
	"context"

	"papertrader/src/database"
	"papertrader/src/ledgererr"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// PostgresLedgerStore is the remote backend. Transactions are native; the
// account row is locked FOR UPDATE so same-user transactions serialise.
type PostgresLedgerStore struct {
	*GormLedgerRepository
}

// NewPostgresLedgerStore creates the store on db, or on database.MainDB when db is nil.
func NewPostgresLedgerStore(db *gorm.DB) *PostgresLedgerStore {
	if db == nil {
		logger.WithField("component", "PostgresLedgerStore").
			Info("Creating new PostgresLedgerStore with MainDB")
		db = database.MainDB
	}

	return &PostgresLedgerStore{
		GormLedgerRepository: &GormLedgerRepository{db: db},
	}
}

func (s *PostgresLedgerStore) Backend() string { return database.BackendPostgres }

// RunTransaction maps directly onto gorm's db.Transaction.
func (s *PostgresLedgerStore) RunTransaction(ctx context.Context, userID string, fn func(tx LedgerTx) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormLedgerRepository{db: tx, lockRows: true})
	})
	if err == nil {
		return nil
	}

	logger.WithFields(map[string]interface{}{
		"store":   "PostgresLedgerStore",
		"op":      "RunTransaction",
		"user_id": userID,
	}).WithError(err).Debug("Transaction rolled back")

	// fn errors pass through; begin/commit failures are store faults.
	if _, ok := ledgererr.AsError(err); ok {
		return err
	}
	return ledgererr.StoreUnavailable("RunTransaction", err)
}
