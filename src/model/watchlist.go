package model

import "time"

// WatchlistEntry is a membership row; a user's watchlist is the set of these.
type WatchlistEntry struct {
	UserID     string    `gorm:"primaryKey;size:128;column:user_id" json:"-"`
	SecurityID string    `gorm:"primaryKey;size:64;column:security_id" json:"ticker"`
	AddedAt    time.Time `json:"added_at"`
}

func (WatchlistEntry) TableName() string {
	return "watchlist_entries"
}
