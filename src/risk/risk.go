// Package risk holds the pre-trade checks. Every check is a pure function
// of ledger state and returns a *ledgererr.Error describing the shortfall.
package risk

import (
	"papertrader/src/ledgererr"
	"papertrader/src/model"

	"github.com/shopspring/decimal"
)

// MaxOrderQuantity caps a single order.
const MaxOrderQuantity int64 = 1_000_000

// ValidateQuantity rejects non-positive and absurdly large orders.
func ValidateQuantity(quantity int64) error {
	if quantity <= 0 {
		return ledgererr.InvalidInput("quantity must be a positive integer, got %d", quantity)
	}
	if quantity > MaxOrderQuantity {
		return ledgererr.InvalidInput("quantity %d exceeds the per-order maximum of %d", quantity, MaxOrderQuantity)
	}
	return nil
}

// CheckBuyingPower requires cash >= quantity*price.
func CheckBuyingPower(securityID string, cash, price decimal.Decimal, quantity int64) error {
	required := price.Mul(decimal.NewFromInt(quantity))
	if cash.LessThan(required) {
		return ledgererr.InsufficientFunds(securityID, price, cash, required)
	}
	return nil
}

// CheckSellable requires a holding with at least quantity shares. holding
// may be nil.
func CheckSellable(securityID string, holding *model.Holding, price decimal.Decimal, quantity int64) error {
	var available int64
	if holding != nil {
		available = holding.Quantity
	}
	if available < quantity {
		return ledgererr.InsufficientShares(securityID, price, available, quantity)
	}
	return nil
}

// ValidateAdjustCash bounds a manual cash overwrite to [0, ceiling].
func ValidateAdjustCash(newCash, ceiling decimal.Decimal) error {
	if newCash.IsNegative() {
		return ledgererr.InvalidInput("cash cannot be negative, got %s", newCash.StringFixed(2))
	}
	if newCash.GreaterThan(ceiling) {
		return ledgererr.InvalidInput("cash cannot exceed %s, got %s", ceiling.StringFixed(2), newCash.StringFixed(2))
	}
	return nil
}

// WeightedAverage is the blended cost after buying quantity at price on top
// of an existing position.
func WeightedAverage(oldQty int64, oldAvg decimal.Decimal, quantity int64, price decimal.Decimal) decimal.Decimal {
	total := oldQty + quantity
	if total == 0 {
		return decimal.Zero
	}
	cost := oldAvg.Mul(decimal.NewFromInt(oldQty)).Add(price.Mul(decimal.NewFromInt(quantity)))
	return cost.Div(decimal.NewFromInt(total))
}

// RealizedProfit is (price - avg) * quantity for a sale.
func RealizedProfit(avg, price decimal.Decimal, quantity int64) decimal.Decimal {
	return price.Sub(avg).Mul(decimal.NewFromInt(quantity))
}
