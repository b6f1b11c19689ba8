package repository

import (
	"context"
	"errors"

	"papertrader/src/ledgererr"
	"papertrader/src/model"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormLedgerRepository implements the ledger operations over a *gorm.DB.
// Both backends embed it; inside a transaction it wraps the tx handle.
type GormLedgerRepository struct {
	db *gorm.DB

	// lockRows makes GetAccount take a row lock (SELECT ... FOR UPDATE).
	lockRows bool
}

// NewGormLedgerRepositoryWithDB creates a repository on an explicit connection.
func NewGormLedgerRepositoryWithDB(db *gorm.DB) *GormLedgerRepository {
	return &GormLedgerRepository{db: db}
}

// WithDB returns a copy bound to another handle, typically a transaction.
func (r *GormLedgerRepository) WithDB(db *gorm.DB) *GormLedgerRepository {
	logger.WithField("component", "GormLedgerRepository").
		Debug("Creating GormLedgerRepository with custom DB instance")

	return &GormLedgerRepository{db: db, lockRows: r.lockRows}
}

// GetAccount fetches an account by user id.
// Returns (nil, nil) if the account does not exist yet.
func (r *GormLedgerRepository) GetAccount(ctx context.Context, userID string) (*model.Account, error) {
	var account model.Account

	q := r.db.WithContext(ctx)
	if r.lockRows {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	err := q.Where("user_id = ?", userID).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.WithFields(map[string]interface{}{
				"repo":    "GormLedgerRepository",
				"op":      "GetAccount",
				"user_id": userID,
			}).Debug("Account not found")

			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo":    "GormLedgerRepository",
			"op":      "GetAccount",
			"user_id": userID,
		}).WithError(err).Error("Failed to fetch account")

		return nil, ledgererr.StoreUnavailable("GetAccount", err)
	}

	return &account, nil
}

// SaveAccount inserts the account or overwrites every mutable column.
func (r *GormLedgerRepository) SaveAccount(ctx context.Context, account *model.Account) error {
	logger.WithFields(map[string]interface{}{
		"repo":    "GormLedgerRepository",
		"op":      "SaveAccount",
		"user_id": account.UserID,
		"cash":    account.Cash.String(),
	}).Debug("Saving account")

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"cash",
				"initial_cash",
				"day_start_portfolio_value",
				"last_day_pnl_reset",
				"net_cash_flow_today",
				"account_initialized",
				"brokerage_synced_once",
				"brokerage_token",
				"updated_at",
			}),
		}).
		Create(account).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":    "GormLedgerRepository",
			"op":      "SaveAccount",
			"user_id": account.UserID,
		}).WithError(err).Error("Failed to save account")

		return ledgererr.StoreUnavailable("SaveAccount", err)
	}

	return nil
}

// CreateAccount inserts the account unless a row for the user already
// exists. It reports whether this call created the row.
func (r *GormLedgerRepository) CreateAccount(ctx context.Context, account *model.Account) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).
		Create(account)
	if res.Error != nil {
		logger.WithFields(map[string]interface{}{
			"repo":    "GormLedgerRepository",
			"op":      "CreateAccount",
			"user_id": account.UserID,
		}).WithError(res.Error).Error("Failed to create account")

		return false, ledgererr.StoreUnavailable("CreateAccount", res.Error)
	}

	return res.RowsAffected > 0, nil
}

// ListAccountIDs returns every known user id.
func (r *GormLedgerRepository) ListAccountIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.WithContext(ctx).
		Model(&model.Account{}).
		Order("user_id").
		Pluck("user_id", &ids).Error; err != nil {
		return nil, ledgererr.StoreUnavailable("ListAccountIDs", err)
	}
	return ids, nil
}
