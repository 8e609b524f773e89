package models

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// RecurrencePeriod is the cadence of a recurring template.
type RecurrencePeriod string

const (
	PeriodDaily   RecurrencePeriod = "DAILY"
	PeriodWeekly  RecurrencePeriod = "WEEKLY"
	PeriodMonthly RecurrencePeriod = "MONTHLY"
)

func (p RecurrencePeriod) Valid() bool {
	switch p {
	case PeriodDaily, PeriodWeekly, PeriodMonthly:
		return true
	default:
		return false
	}
}

// ParsePeriod accepts any casing ("daily", "Weekly", ...).
func ParsePeriod(raw string) (RecurrencePeriod, error) {
	p := RecurrencePeriod(strings.ToUpper(strings.TrimSpace(raw)))
	if !p.Valid() {
		return "", fmt.Errorf("unsupported recurrence period %q", raw)
	}
	return p, nil
}

// RecurringTemplate is the definition recurring task instances are generated from.
type RecurringTemplate struct {
	ID              string           `gorm:"primaryKey;type:uuid" json:"id"`
	UserID          string           `gorm:"index;not null" json:"user_id"`
	Title           string           `gorm:"not null" json:"title"`
	Description     *string          `json:"description,omitempty"`
	Period          RecurrencePeriod `gorm:"type:varchar(16);not null" json:"period"`
	LastGeneratedAt *time.Time       `json:"last_generated_at,omitempty"`
	Timestamps
}

func (t *RecurringTemplate) BeforeCreate(tx *gorm.DB) error {
	ensureID(&t.ID)
	return nil
}

// TaskInstance is a concrete, checkable task. Ad-hoc tasks have no SourceTemplateID.
type TaskInstance struct {
	ID               string     `gorm:"primaryKey;type:uuid" json:"id"`
	UserID           string     `gorm:"index;not null" json:"user_id"`
	Title            string     `gorm:"not null" json:"title"`
	Description      *string    `json:"description,omitempty"`
	IsCompleted      bool       `gorm:"not null;default:false" json:"is_completed"`
	HasRewardedExp   bool       `gorm:"not null;default:false" json:"has_rewarded_exp"`
	SourceTemplateID *string    `gorm:"index" json:"source_template_id,omitempty"`
	Position         int        `gorm:"not null;default:0" json:"order"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	Timestamps
}

func (t *TaskInstance) BeforeCreate(tx *gorm.DB) error {
	ensureID(&t.ID)
	return nil
}
