package services

import (
	"context"
	"database/sql"
	"time"

	"nova-rewards/models"
	"nova-rewards/utils"

	"gorm.io/gorm"
)

// SchedulerService materializes task instances from recurring templates.
type SchedulerService struct {
	DB      *gorm.DB
	Clock   Clock
	log     *utils.Logger
	metrics *utils.Metrics
}

func NewSchedulerService(db *gorm.DB, clock Clock, log *utils.Logger, metrics *utils.Metrics) *SchedulerService {
	return &SchedulerService{
		DB:      db,
		Clock:   clock,
		log:     log.With("service", "SchedulerService"),
		metrics: metrics,
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// startOfWeek: weeks start on Monday.
func startOfWeek(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	return startOfDay(t).AddDate(0, 0, -offset)
}

func startOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

// PeriodStart returns the beginning of the period containing now.
func PeriodStart(p models.RecurrencePeriod, now time.Time) time.Time {
	switch p {
	case models.PeriodWeekly:
		return startOfWeek(now)
	case models.PeriodMonthly:
		return startOfMonth(now)
	default:
		return startOfDay(now)
	}
}

// IsDue reports whether the template has not produced an instance in the current period.
func IsDue(tpl models.RecurringTemplate, now time.Time) bool {
	if tpl.LastGeneratedAt == nil {
		return true
	}
	return tpl.LastGeneratedAt.Before(PeriodStart(tpl.Period, now))
}

// GenerateDueInstances creates at most one instance per due template and
// returns the titles created. Calling it again within the same period is a no-op.
func (s *SchedulerService) GenerateDueInstances(ctx context.Context, userID string) ([]string, error) {
	now := s.Clock()

	var templates []models.RecurringTemplate
	if err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&templates).Error; err != nil {
		return nil, err
	}

	created := []string{}
	for _, tpl := range templates {
		if !IsDue(tpl, now) {
			continue
		}
		ok, err := s.generate(ctx, tpl, now)
		if err != nil {
			return created, err
		}
		if ok {
			created = append(created, tpl.Title)
			s.metrics.RecurringGenerated(string(tpl.Period))
		}
	}

	if len(created) > 0 {
		s.log.Info("🔁 generated recurring tasks", "user_id", userID, "count", len(created))
	}
	return created, nil
}

// generate claims the period for tpl and inserts its instance in one transaction.
// Returns false when another caller claimed the period first.
func (s *SchedulerService) generate(ctx context.Context, tpl models.RecurringTemplate, now time.Time) (bool, error) {
	claimed := false
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.RecurringTemplate{}).
			Where("id = ? AND (last_generated_at IS NULL OR last_generated_at < ?)", tpl.ID, PeriodStart(tpl.Period, now)).
			Update("last_generated_at", now)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		top, err := topPosition(tx, tpl.UserID)
		if err != nil {
			return err
		}
		templateID := tpl.ID
		if err := tx.Create(&models.TaskInstance{
			UserID:           tpl.UserID,
			Title:            tpl.Title,
			Description:      tpl.Description,
			SourceTemplateID: &templateID,
			Position:         top,
		}).Error; err != nil {
			return err
		}
		claimed = true
		return nil
	})
	return claimed, err
}

// topPosition returns a position that sorts before every existing task of the user.
func topPosition(tx *gorm.DB, userID string) (int, error) {
	var lowest sql.NullInt64
	if err := tx.Model(&models.TaskInstance{}).
		Select("MIN(position)").
		Where("user_id = ?", userID).
		Row().
		Scan(&lowest); err != nil {
		return 0, err
	}
	if !lowest.Valid {
		return 0, nil
	}
	return int(lowest.Int64) - 1, nil
}

// UsersWithTemplates lists every user owning at least one recurring template.
func (s *SchedulerService) UsersWithTemplates(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.DB.WithContext(ctx).
		Model(&models.RecurringTemplate{}).
		Distinct("user_id").
		Pluck("user_id", &ids).Error
	return ids, err
}
