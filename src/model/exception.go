package model

import "time"

// Exception is a persisted system fault (store outages, unexpected errors
// during trades or syncs) kept for auditing.
type Exception struct {
	ID uint `gorm:"primaryKey" json:"id"`

	Component string `gorm:"size:100;index" json:"component"` // e.g. "trade_controller"
	Operation string `gorm:"size:100" json:"operation"`       // e.g. "Execute"
	UserID    string `gorm:"size:128;index" json:"user_id,omitempty"`

	Message string `gorm:"type:text" json:"message"`
	Stack   string `gorm:"type:text" json:"stack"`

	// debug | info | warn | error | fatal
	Level string `gorm:"size:20;index" json:"level"`

	// JSON encoded extra fields
	Context string `gorm:"type:text" json:"context,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (Exception) TableName() string {
	return "exceptions"
}
