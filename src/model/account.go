package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-day format stored in LastDayPnlReset.
const DateLayout = "2006-01-02"

// Account is the per-user ledger root: cash plus the day P&L baseline.
type Account struct {
	UserID string `gorm:"primaryKey;size:128;column:user_id" json:"user_id"`

	Cash        decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"cash"`
	InitialCash decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"initial_cash"`

	// Day P&L baseline
	DayStartPortfolioValue decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"day_start_portfolio_value"`
	LastDayPnlReset        string          `gorm:"size:10;column:last_day_pnl_reset" json:"last_day_pnl_reset"` // YYYY-MM-DD
	NetCashFlowToday       decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"net_cash_flow_today"`

	AccountInitialized bool `gorm:"not null;default:false" json:"account_initialized"`

	// Brokerage link
	BrokerageSyncedOnce bool   `gorm:"not null;default:false" json:"brokerage_synced_once"`
	BrokerageToken      string `gorm:"type:text" json:"-"` // encrypted

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Account) TableName() string {
	return "accounts"
}

// NeedsBackfill reports whether the row predates one of the newer columns.
func (a *Account) NeedsBackfill() bool {
	return !a.AccountInitialized || a.LastDayPnlReset == ""
}
