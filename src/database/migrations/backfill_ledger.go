package migrations

import (
	"papertrader/src/model"

	"gorm.io/gorm"
)

// backfillAccountDayBaseline seeds the day P&L baseline on accounts created
// before it existed, and their initial cash from the cash they held.
// last_day_pnl_reset is left empty so the first access stamps it with the
// market-local date.
func backfillAccountDayBaseline(db *gorm.DB) error {
	return db.Model(&model.Account{}).
		Where("account_initialized = ?", false).
		Updates(map[string]interface{}{
			"day_start_portfolio_value": gorm.Expr("cash"),
			"initial_cash":              gorm.Expr("CASE WHEN initial_cash IS NULL OR initial_cash = 0 THEN cash ELSE initial_cash END"),
			"net_cash_flow_today":       0,
			"account_initialized":       true,
		}).Error
}

func backfillHoldingProductType(db *gorm.DB) error {
	return db.Model(&model.Holding{}).
		Where("product_type IS NULL OR product_type = ''").
		Update("product_type", model.ProductTypeCNC).Error
}

// dropEmptyHoldings removes rows that violate quantity > 0.
func dropEmptyHoldings(db *gorm.DB) error {
	return db.Where("quantity <= ?", 0).Delete(&model.Holding{}).Error
}
