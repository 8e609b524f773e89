package models

import (
	"time"

	"gorm.io/gorm"
)

// CurrencyTransaction is one immutable entry of the coin ledger.
// Positive amounts are credits, negative amounts are debits.
// Rows are only ever appended; a full backup restore is the one place that wipes them.
type CurrencyTransaction struct {
	ID          string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID      string    `gorm:"index;not null" json:"user_id"`
	Amount      int64     `gorm:"not null" json:"amount"`
	Description string    `gorm:"not null" json:"description"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}

func (t *CurrencyTransaction) BeforeCreate(tx *gorm.DB) error {
	ensureID(&t.ID)
	return nil
}
