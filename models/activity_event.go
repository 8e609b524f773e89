package models

import (
	"time"

	"gorm.io/gorm"
)

// ActivityKind names a rewardable user action.
type ActivityKind string

const (
	ActivityTaskCompleted        ActivityKind = "task_completed"
	ActivityFocusSessionFinished ActivityKind = "focus_session_finished"
	ActivityGoalCreated          ActivityKind = "goal_created"
	ActivityGoalCompleted        ActivityKind = "goal_completed"
)

func (k ActivityKind) Valid() bool {
	switch k {
	case ActivityTaskCompleted, ActivityFocusSessionFinished, ActivityGoalCreated, ActivityGoalCompleted:
		return true
	default:
		return false
	}
}

// ActivityEvent is the history achievement checkers count against.
// SourceID points at the task/goal that produced the event (empty for focus sessions).
type ActivityEvent struct {
	ID        string       `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    string       `gorm:"not null;index:idx_activity_user_kind,priority:1" json:"user_id"`
	Kind      ActivityKind `gorm:"type:varchar(32);not null;index:idx_activity_user_kind,priority:2" json:"kind"`
	SourceID  string       `json:"source_id,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

func (e *ActivityEvent) BeforeCreate(tx *gorm.DB) error {
	ensureID(&e.ID)
	return nil
}
