package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	ActionBuy  = "BUY"
	ActionSell = "SELL"
)

// HistoryEntry is one executed trade. Entries are append-only; the ID
// sequence is the insertion order used when trimming.
type HistoryEntry struct {
	ID             uint             `gorm:"primaryKey" json:"-"`
	TradeID        string           `gorm:"size:36;uniqueIndex" json:"trade_id"`
	UserID         string           `gorm:"size:128;not null;index:idx_history_user_id_id,priority:1" json:"-"`
	Action         string           `gorm:"size:4;not null" json:"action"`
	SecurityID     string           `gorm:"size:64;not null" json:"ticker"`
	Quantity       int64            `gorm:"not null" json:"quantity"`
	Price          decimal.Decimal  `gorm:"type:numeric(20,4);not null" json:"price"`
	TotalValue     decimal.Decimal  `gorm:"type:numeric(20,4);not null" json:"total_value"`
	RealizedProfit *decimal.Decimal `gorm:"type:numeric(20,4)" json:"realized_profit,omitempty"`
	Timestamp      time.Time        `gorm:"not null" json:"timestamp"`
}

func (HistoryEntry) TableName() string {
	return "trade_history"
}
