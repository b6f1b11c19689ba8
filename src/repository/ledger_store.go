package repository

import (
	"context"
	"fmt"

	"papertrader/src/database"
	"papertrader/src/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LedgerTx is the set of ledger operations available inside RunTransaction.
// Getters return (nil, nil) when the row does not exist.
type LedgerTx interface {
	GetAccount(ctx context.Context, userID string) (*model.Account, error)
	SaveAccount(ctx context.Context, account *model.Account) error
	// CreateAccount inserts a new account and leaves an existing row alone.
	CreateAccount(ctx context.Context, account *model.Account) (bool, error)

	GetHolding(ctx context.Context, userID, securityID string) (*model.Holding, error)
	ListHoldings(ctx context.Context, userID string) ([]model.Holding, error)
	SaveHolding(ctx context.Context, holding *model.Holding) error
	DeleteHolding(ctx context.Context, userID, securityID string) error

	// ResetHoldings deletes every holding of the user and sets cash, atomically.
	ResetHoldings(ctx context.Context, userID string, cash decimal.Decimal) error

	AppendHistory(ctx context.Context, entry *model.HistoryEntry) error
}

// LedgerStore is the persistence contract shared by both backends.
type LedgerStore interface {
	LedgerTx

	// RunTransaction applies every mutation made by fn atomically, or none
	// if fn returns an error. Transactions on the same user never interleave.
	RunTransaction(ctx context.Context, userID string, fn func(tx LedgerTx) error) error

	ListAccountIDs(ctx context.Context) ([]string, error)

	// ListHistory returns up to limit entries, newest first.
	ListHistory(ctx context.Context, userID string, limit int) ([]model.HistoryEntry, error)
	// TrimHistory keeps the newest keep entries and deletes the rest.
	TrimHistory(ctx context.Context, userID string, keep int) (int64, error)

	AddWatchlist(ctx context.Context, userID, securityID string) error
	RemoveWatchlist(ctx context.Context, userID, securityID string) (bool, error)
	ListWatchlist(ctx context.Context, userID string) ([]model.WatchlistEntry, error)

	Backend() string
}

// NewLedgerStore builds the store for the given backend name.
func NewLedgerStore(backend string, db *gorm.DB) (LedgerStore, error) {
	switch backend {
	case database.BackendPostgres:
		return NewPostgresLedgerStore(db), nil
	case database.BackendLocal:
		return NewLocalLedgerStore(db), nil
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", backend)
	}
}
