package repository

import (
	"context"
	"time"

	"papertrader/src/ledgererr"
	"papertrader/src/model"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm/clause"
)

// AddWatchlist is idempotent; adding an existing member is a no-op.
func (r *GormLedgerRepository) AddWatchlist(ctx context.Context, userID, securityID string) error {
	entry := &model.WatchlistEntry{
		UserID:     userID,
		SecurityID: securityID,
		AddedAt:    time.Now().UTC(),
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(entry).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":        "GormLedgerRepository",
			"op":          "AddWatchlist",
			"user_id":     userID,
			"security_id": securityID,
		}).WithError(err).Error("Failed to add watchlist entry")

		return ledgererr.StoreUnavailable("AddWatchlist", err)
	}

	return nil
}

// RemoveWatchlist reports whether the security was on the list.
func (r *GormLedgerRepository) RemoveWatchlist(ctx context.Context, userID, securityID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND security_id = ?", userID, securityID).
		Delete(&model.WatchlistEntry{})
	if res.Error != nil {
		return false, ledgererr.StoreUnavailable("RemoveWatchlist", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *GormLedgerRepository) ListWatchlist(ctx context.Context, userID string) ([]model.WatchlistEntry, error) {
	var entries []model.WatchlistEntry
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("added_at, security_id").
		Find(&entries).Error; err != nil {
		return nil, ledgererr.StoreUnavailable("ListWatchlist", err)
	}
	return entries, nil
}
