package models

import (
	"time"

	"gorm.io/gorm"
)

type GoalStatus string

const (
	GoalStatusActive    GoalStatus = "ACTIVE"
	GoalStatusCompleted GoalStatus = "COMPLETED"
)

// Goal carries only what the rewards engine needs; the vision board UI owns the rest.
type Goal struct {
	ID             string     `gorm:"primaryKey;type:uuid" json:"id"`
	UserID         string     `gorm:"index;not null" json:"user_id"`
	Title          string     `gorm:"not null" json:"title"`
	Status         GoalStatus `gorm:"type:varchar(16);not null;default:'ACTIVE'" json:"status"`
	Progress       int        `gorm:"not null;default:0" json:"progress"` // percent of milestones done
	HasRewardedExp bool       `gorm:"not null;default:false" json:"has_rewarded_exp"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	Timestamps
}

func (g *Goal) BeforeCreate(tx *gorm.DB) error {
	ensureID(&g.ID)
	return nil
}
