package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserProgress tracks the gamified state of one account (denormalized, one row per user).
// Experience is the amount accumulated toward the *next* level, never a lifetime total.
type UserProgress struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID string `gorm:"uniqueIndex;not null" json:"user_id"` // identity supplied by the gateway

	// Core progression
	Level      int   `gorm:"not null;default:1" json:"level"`
	Experience int64 `gorm:"not null;default:0" json:"experience"`
	Coins      int64 `gorm:"not null;default:0" json:"coins"`

	// Daily reward streak
	StreakCount   int        `gorm:"not null;default:0" json:"streak_count"`
	LastClaimedAt *time.Time `json:"last_claimed_at,omitempty"`

	// Cosmetics bought in the shop
	ActiveAvatar string `json:"active_avatar"`
	ActiveFrame  string `json:"active_frame"`

	// Milestones
	LastLevelUpAt *time.Time `json:"last_level_up_at,omitempty"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (p *UserProgress) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// ensureID assigns a random UUID when the caller did not pick one.
// IDs are generated in Go so the schema works on both Postgres and SQLite.
func ensureID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}
