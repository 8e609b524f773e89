package services

import (
	"context"
	"fmt"
	"math"

	"nova-rewards/models"

	"gorm.io/gorm"
)

// MilestonePatch: nil fields are left unchanged.
type MilestonePatch struct {
	Title       *string `json:"title" validate:"omitempty,max=200"`
	IsCompleted *bool   `json:"is_completed"`
}

// GoalService lists and removes goals and manages their milestones; creating
// and completing goals goes through ActionService because both can pay rewards.
type GoalService struct {
	DB    *gorm.DB
	Clock Clock
}

func NewGoalService(db *gorm.DB, clock Clock) *GoalService {
	return &GoalService{DB: db, Clock: clock}
}

func (s *GoalService) List(ctx context.Context, userID string, status models.GoalStatus) ([]models.Goal, error) {
	q := s.DB.WithContext(ctx).Where("user_id = ?", userID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var goals []models.Goal
	err := q.Order("created_at DESC").Find(&goals).Error
	return goals, err
}

// Delete removes a goal and its milestones. Rewards it already paid stay with the user.
func (s *GoalService) Delete(ctx context.Context, userID, goalID string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", goalID, userID).Delete(&models.Goal{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("goal %s: %w", goalID, ErrNotFound)
		}
		return tx.Where("goal_id = ?", goalID).Delete(&models.GoalMilestone{}).Error
	})
}

func (s *GoalService) ListMilestones(ctx context.Context, userID, goalID string) ([]models.GoalMilestone, error) {
	db := s.DB.WithContext(ctx)
	if err := findOwned(db, &models.Goal{}, userID, goalID); err != nil {
		return nil, err
	}
	var out []models.GoalMilestone
	err := db.Where("goal_id = ? AND user_id = ?", goalID, userID).
		Order("created_at").Order("id").
		Find(&out).Error
	return out, err
}

func (s *GoalService) AddMilestone(ctx context.Context, userID, goalID, title string) (*models.GoalMilestone, error) {
	title, err := cleanTitle(title)
	if err != nil {
		return nil, err
	}
	m := models.GoalMilestone{GoalID: goalID, UserID: userID, Title: title}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := findOwned(tx, &models.Goal{}, userID, goalID); err != nil {
			return err
		}
		if err := tx.Create(&m).Error; err != nil {
			return err
		}
		return syncGoalProgress(tx, goalID)
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// UpdateMilestone renames and/or toggles a milestone. Toggling never touches
// rewards; those are paid once when the goal itself completes.
func (s *GoalService) UpdateMilestone(ctx context.Context, userID, milestoneID string, patch MilestonePatch) (*models.GoalMilestone, error) {
	if err := validateInput(patch); err != nil {
		return nil, err
	}
	var m models.GoalMilestone
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := findOwned(tx, &m, userID, milestoneID); err != nil {
			return err
		}
		updates := map[string]interface{}{}
		if patch.Title != nil {
			title, err := cleanTitle(*patch.Title)
			if err != nil {
				return err
			}
			updates["title"] = title
			m.Title = title
		}
		if patch.IsCompleted != nil && *patch.IsCompleted != m.IsCompleted {
			m.IsCompleted = *patch.IsCompleted
			m.CompletedAt = nil
			if m.IsCompleted {
				now := s.Clock()
				m.CompletedAt = &now
			}
			updates["is_completed"] = m.IsCompleted
			updates["completed_at"] = m.CompletedAt
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&m).Updates(updates).Error; err != nil {
			return err
		}
		return syncGoalProgress(tx, m.GoalID)
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *GoalService) DeleteMilestone(ctx context.Context, userID, milestoneID string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m models.GoalMilestone
		if err := findOwned(tx, &m, userID, milestoneID); err != nil {
			return err
		}
		if err := tx.Delete(&m).Error; err != nil {
			return err
		}
		return syncGoalProgress(tx, m.GoalID)
	})
}

func milestoneCounts(tx *gorm.DB, goalID string) (total, done int64, err error) {
	if err = tx.Model(&models.GoalMilestone{}).Where("goal_id = ?", goalID).Count(&total).Error; err != nil {
		return
	}
	err = tx.Model(&models.GoalMilestone{}).Where("goal_id = ? AND is_completed = ?", goalID, true).Count(&done).Error
	return
}

// syncGoalProgress stores the rounded percentage of completed milestones.
func syncGoalProgress(tx *gorm.DB, goalID string) error {
	total, done, err := milestoneCounts(tx, goalID)
	if err != nil {
		return err
	}
	progress := 0
	if total > 0 {
		progress = int(math.Round(float64(done) / float64(total) * 100))
	}
	return tx.Model(&models.Goal{}).Where("id = ?", goalID).Update("progress", progress).Error
}
