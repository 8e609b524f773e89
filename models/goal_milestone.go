package models

import (
	"time"

	"gorm.io/gorm"
)

// GoalMilestone is one checklist step of a goal. A goal can only be
// completed once it has milestones and all of them are done.
type GoalMilestone struct {
	ID          string     `gorm:"primaryKey;type:uuid" json:"id"`
	GoalID      string     `gorm:"index;not null" json:"goal_id"`
	UserID      string     `gorm:"index;not null" json:"user_id"`
	Title       string     `gorm:"not null" json:"title"`
	IsCompleted bool       `gorm:"not null;default:false" json:"is_completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Timestamps
}

func (m *GoalMilestone) BeforeCreate(tx *gorm.DB) error {
	ensureID(&m.ID)
	return nil
}
