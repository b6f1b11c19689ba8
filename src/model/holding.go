package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	ProductTypeCNC  = "CNC"
	ProductTypeMTF  = "MTF"
	ProductTypeNRML = "NRML"
	ProductTypeMIS  = "MIS"
)

// Holding is a user's open position in one security.
// A row exists only while Quantity > 0.
type Holding struct {
	UserID     string `gorm:"primaryKey;size:128;column:user_id" json:"-"`
	SecurityID string `gorm:"primaryKey;size:64;column:security_id" json:"ticker"`

	Quantity       int64           `gorm:"not null" json:"quantity"`
	AvgPrice       decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"avg_price"`
	PrevClosePrice decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"prev_close_price"`
	ProductType    string          `gorm:"size:10;not null;default:CNC" json:"product_type"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

func (Holding) TableName() string {
	return "holdings"
}

// Invested is quantity times average cost.
func (h Holding) Invested() decimal.Decimal {
	return h.AvgPrice.Mul(decimal.NewFromInt(h.Quantity))
}
