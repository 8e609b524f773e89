package models

import (
	"time"

	"gorm.io/gorm"
)

// DailyRewardClaim is one collected daily reward. ClaimDate is the calendar
// day (YYYY-MM-DD, service timezone); the unique index allows one claim per day.
type DailyRewardClaim struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    string    `gorm:"not null;uniqueIndex:ux_user_claim_date,priority:1" json:"user_id"`
	ClaimDate string    `gorm:"type:varchar(10);not null;uniqueIndex:ux_user_claim_date,priority:2" json:"claim_date"`
	StreakDay int       `gorm:"not null" json:"streak_day"`
	Coins     int64     `gorm:"not null" json:"coins"`
	ClaimedAt time.Time `gorm:"not null" json:"claimed_at"`
}

func (c *DailyRewardClaim) BeforeCreate(tx *gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
