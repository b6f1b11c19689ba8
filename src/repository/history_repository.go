package repository

import (
	"context"
	"time"

	"papertrader/src/ledgererr"
	"papertrader/src/model"

	"github.com/google/uuid"
	logger "github.com/sirupsen/logrus"
)

const defaultHistoryLimit = 15

// AppendHistory inserts an executed trade. TradeID and Timestamp are filled
// when empty.
func (r *GormLedgerRepository) AppendHistory(ctx context.Context, entry *model.HistoryEntry) error {
	if entry.TradeID == "" {
		entry.TradeID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	logger.WithFields(map[string]interface{}{
		"repo":     "GormLedgerRepository",
		"op":       "AppendHistory",
		"user_id":  entry.UserID,
		"trade_id": entry.TradeID,
		"action":   entry.Action,
		"ticker":   entry.SecurityID,
		"qty":      entry.Quantity,
	}).Debug("Appending history entry")

	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":    "GormLedgerRepository",
			"op":      "AppendHistory",
			"user_id": entry.UserID,
		}).WithError(err).Error("Failed to append history entry")

		return ledgererr.StoreUnavailable("AppendHistory", err)
	}

	return nil
}

// ListHistory returns the latest entries ordered from newest to oldest.
func (r *GormLedgerRepository) ListHistory(ctx context.Context, userID string, limit int) ([]model.HistoryEntry, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	var entries []model.HistoryEntry

	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":    "GormLedgerRepository",
			"op":      "ListHistory",
			"user_id": userID,
			"limit":   limit,
		}).WithError(err).Error("Failed to list history")

		return nil, ledgererr.StoreUnavailable("ListHistory", err)
	}

	return entries, nil
}

// TrimHistory deletes all but the newest keep entries, oldest first by
// insertion order. Returns the number of deleted rows.
func (r *GormLedgerRepository) TrimHistory(ctx context.Context, userID string, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}

	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&model.HistoryEntry{}).
		Where("user_id = ?", userID).
		Order("id DESC").
		Offset(keep).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, ledgererr.StoreUnavailable("TrimHistory", err)
	}

	if len(ids) == 0 {
		return 0, nil
	}

	res := r.db.WithContext(ctx).
		Where("user_id = ? AND id IN ?", userID, ids).
		Delete(&model.HistoryEntry{})
	if res.Error != nil {
		logger.WithFields(map[string]interface{}{
			"repo":    "GormLedgerRepository",
			"op":      "TrimHistory",
			"user_id": userID,
		}).WithError(res.Error).Error("Failed to trim history")

		return 0, ledgererr.StoreUnavailable("TrimHistory", res.Error)
	}

	logger.WithFields(map[string]interface{}{
		"repo":    "GormLedgerRepository",
		"op":      "TrimHistory",
		"user_id": userID,
		"deleted": res.RowsAffected,
	}).Debug("History trimmed")

	return res.RowsAffected, nil
}
