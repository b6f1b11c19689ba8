package repository

import (
	"context"
	"errors"
	"fmt"

	"papertrader/src/ledgererr"
	"papertrader/src/model"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetHolding returns (nil, nil) when the user holds none of the security.
func (r *GormLedgerRepository) GetHolding(ctx context.Context, userID, securityID string) (*model.Holding, error) {
	var holding model.Holding

	err := r.db.WithContext(ctx).
		Where("user_id = ? AND security_id = ?", userID, securityID).
		First(&holding).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo":        "GormLedgerRepository",
			"op":          "GetHolding",
			"user_id":     userID,
			"security_id": securityID,
		}).WithError(err).Error("Failed to fetch holding")

		return nil, ledgererr.StoreUnavailable("GetHolding", err)
	}

	return &holding, nil
}

func (r *GormLedgerRepository) ListHoldings(ctx context.Context, userID string) ([]model.Holding, error) {
	var holdings []model.Holding

	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("security_id").
		Find(&holdings).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":    "GormLedgerRepository",
			"op":      "ListHoldings",
			"user_id": userID,
		}).WithError(err).Error("Failed to list holdings")

		return nil, ledgererr.StoreUnavailable("ListHoldings", err)
	}

	return holdings, nil
}

// SaveHolding upserts a holding. A non-positive quantity is refused; use
// DeleteHolding to close a position.
func (r *GormLedgerRepository) SaveHolding(ctx context.Context, holding *model.Holding) error {
	if holding.Quantity <= 0 {
		return fmt.Errorf("holding %s/%s: quantity must be positive, got %d", holding.UserID, holding.SecurityID, holding.Quantity)
	}
	if holding.ProductType == "" {
		holding.ProductType = model.ProductTypeCNC
	}

	logger.WithFields(map[string]interface{}{
		"repo":        "GormLedgerRepository",
		"op":          "SaveHolding",
		"user_id":     holding.UserID,
		"security_id": holding.SecurityID,
		"qty":         holding.Quantity,
	}).Debug("Saving holding")

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "security_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"quantity",
				"avg_price",
				"prev_close_price",
				"product_type",
				"updated_at",
			}),
		}).
		Create(holding).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":        "GormLedgerRepository",
			"op":          "SaveHolding",
			"user_id":     holding.UserID,
			"security_id": holding.SecurityID,
		}).WithError(err).Error("Failed to save holding")

		return ledgererr.StoreUnavailable("SaveHolding", err)
	}

	return nil
}

func (r *GormLedgerRepository) DeleteHolding(ctx context.Context, userID, securityID string) error {
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND security_id = ?", userID, securityID).
		Delete(&model.Holding{}).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":        "GormLedgerRepository",
			"op":          "DeleteHolding",
			"user_id":     userID,
			"security_id": securityID,
		}).WithError(err).Error("Failed to delete holding")

		return ledgererr.StoreUnavailable("DeleteHolding", err)
	}

	return nil
}

// ResetHoldings wipes the user's holdings and sets cash in one transaction
// (a savepoint when already inside one).
func (r *GormLedgerRepository) ResetHoldings(ctx context.Context, userID string, cash decimal.Decimal) error {
	logger.WithFields(map[string]interface{}{
		"repo":    "GormLedgerRepository",
		"op":      "ResetHoldings",
		"user_id": userID,
		"cash":    cash.String(),
	}).Info("Resetting holdings")

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&model.Holding{}).Error; err != nil {
			return err
		}

		res := tx.Model(&model.Account{}).
			Where("user_id = ?", userID).
			Update("cash", cash)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ledgererr.InvalidInput("account %s not found", userID)
		}
		return ledgererr.StoreUnavailable("ResetHoldings", err)
	}

	return nil
}
