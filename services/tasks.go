package services

import (
	"context"
	"database/sql"
	"fmt"

	"nova-rewards/models"
	"nova-rewards/utils"

	"gorm.io/gorm"
)

type TaskInput struct {
	Title       string  `json:"title" validate:"required,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
}

// TaskPatch: nil fields are left unchanged.
type TaskPatch struct {
	Title       *string `json:"title" validate:"omitempty,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
}

type TemplateInput struct {
	Title       string  `json:"title" validate:"required,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	Period      string  `json:"period" validate:"required"`
}

type TemplatePatch struct {
	Title       *string `json:"title" validate:"omitempty,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	Period      *string `json:"period"`
}

// TaskService owns task and recurring template CRUD.
type TaskService struct {
	DB        *gorm.DB
	Scheduler *SchedulerService
	Clock     Clock
	log       *utils.Logger
}

func NewTaskService(db *gorm.DB, scheduler *SchedulerService, clock Clock, log *utils.Logger) *TaskService {
	return &TaskService{
		DB:        db,
		Scheduler: scheduler,
		Clock:     clock,
		log:       log.With("service", "TaskService"),
	}
}

// ListActive refreshes recurring instances, then returns open tasks plus tasks
// completed today, in display order.
func (s *TaskService) ListActive(ctx context.Context, userID string) ([]models.TaskInstance, error) {
	if _, err := s.Scheduler.GenerateDueInstances(ctx, userID); err != nil {
		return nil, fmt.Errorf("generate recurring tasks: %w", err)
	}

	today := startOfDay(s.Clock())
	var tasks []models.TaskInstance
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Where(s.DB.Where("is_completed = ?", false).Or("completed_at >= ?", today)).
		Order("position ASC").
		Order("created_at ASC").
		Find(&tasks).Error
	return tasks, err
}

// CreateTask appends an ad-hoc task at the bottom of the list.
func (s *TaskService) CreateTask(ctx context.Context, userID string, in TaskInput) (*models.TaskInstance, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	title, err := cleanTitle(in.Title)
	if err != nil {
		return nil, err
	}

	task := models.TaskInstance{
		UserID:      userID,
		Title:       title,
		Description: cleanOptional(in.Description),
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var highest sql.NullInt64
		if err := tx.Model(&models.TaskInstance{}).
			Select("MAX(position)").
			Where("user_id = ?", userID).
			Row().
			Scan(&highest); err != nil {
			return err
		}
		if highest.Valid {
			task.Position = int(highest.Int64) + 1
		}
		return tx.Create(&task).Error
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *TaskService) UpdateTask(ctx context.Context, userID, taskID string, patch TaskPatch) (*models.TaskInstance, error) {
	if err := validateInput(patch); err != nil {
		return nil, err
	}

	var task models.TaskInstance
	db := s.DB.WithContext(ctx)
	if err := findOwned(db, &task, userID, taskID); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if patch.Title != nil {
		title, err := cleanTitle(*patch.Title)
		if err != nil {
			return nil, err
		}
		updates["title"] = title
		task.Title = title
	}
	if patch.Description != nil {
		task.Description = cleanOptional(patch.Description)
		updates["description"] = task.Description
	}
	if len(updates) == 0 {
		return &task, nil
	}
	if err := db.Model(&task).Updates(updates).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// UncompleteTask reopens a task. Rewards already paid are kept, and
// has_rewarded_exp stays set so completing again pays nothing.
func (s *TaskService) UncompleteTask(ctx context.Context, userID, taskID string) (*models.TaskInstance, error) {
	var task models.TaskInstance
	db := s.DB.WithContext(ctx)
	if err := findOwned(db, &task, userID, taskID); err != nil {
		return nil, err
	}
	if !task.IsCompleted {
		return &task, nil
	}
	if err := db.Model(&task).Updates(map[string]interface{}{
		"is_completed": false,
		"completed_at": nil,
	}).Error; err != nil {
		return nil, err
	}
	task.IsCompleted = false
	task.CompletedAt = nil
	return &task, nil
}

func (s *TaskService) DeleteTask(ctx context.Context, userID, taskID string) error {
	res := s.DB.WithContext(ctx).
		Where("id = ? AND user_id = ?", taskID, userID).
		Delete(&models.TaskInstance{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("task %s: %w", taskID, ErrNotFound)
	}
	return nil
}

// ClearCompleted deletes every completed task of the user and returns how many went.
func (s *TaskService) ClearCompleted(ctx context.Context, userID string) (int64, error) {
	res := s.DB.WithContext(ctx).
		Where("user_id = ? AND is_completed = ?", userID, true).
		Delete(&models.TaskInstance{})
	return res.RowsAffected, res.Error
}

// Reorder sets position = index for each id. All or nothing; an id the user
// does not own aborts the whole reorder.
func (s *TaskService) Reorder(ctx context.Context, userID string, ids []string) error {
	if len(ids) == 0 {
		return fmt.Errorf("%w: ids must not be empty", ErrValidation)
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, id := range ids {
			res := tx.Model(&models.TaskInstance{}).
				Where("id = ? AND user_id = ?", id, userID).
				Update("position", i)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("task %s: %w", id, ErrNotFound)
			}
		}
		return nil
	})
}

// --- recurring templates ---

func (s *TaskService) ListTemplates(ctx context.Context, userID string) ([]models.RecurringTemplate, error) {
	var templates []models.RecurringTemplate
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&templates).Error
	return templates, err
}

// CreateTemplate stores the template and immediately creates its first
// instance, so the current period counts as generated.
func (s *TaskService) CreateTemplate(ctx context.Context, userID string, in TemplateInput) (*models.RecurringTemplate, *models.TaskInstance, error) {
	if err := validateInput(in); err != nil {
		return nil, nil, err
	}
	period, err := models.ParsePeriod(in.Period)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	title, err := cleanTitle(in.Title)
	if err != nil {
		return nil, nil, err
	}

	now := s.Clock()
	tpl := models.RecurringTemplate{
		UserID:          userID,
		Title:           title,
		Description:     cleanOptional(in.Description),
		Period:          period,
		LastGeneratedAt: &now,
	}
	var first models.TaskInstance
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&tpl).Error; err != nil {
			return err
		}
		top, err := topPosition(tx, userID)
		if err != nil {
			return err
		}
		templateID := tpl.ID
		first = models.TaskInstance{
			UserID:           userID,
			Title:            tpl.Title,
			Description:      tpl.Description,
			SourceTemplateID: &templateID,
			Position:         top,
		}
		return tx.Create(&first).Error
	})
	if err != nil {
		return nil, nil, err
	}
	return &tpl, &first, nil
}

// UpdateTemplate edits a template. Changing the cadence clears
// last_generated_at so the next read generates under the new period.
func (s *TaskService) UpdateTemplate(ctx context.Context, userID, templateID string, patch TemplatePatch) (*models.RecurringTemplate, error) {
	if err := validateInput(patch); err != nil {
		return nil, err
	}

	var tpl models.RecurringTemplate
	db := s.DB.WithContext(ctx)
	if err := findOwned(db, &tpl, userID, templateID); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if patch.Title != nil {
		title, err := cleanTitle(*patch.Title)
		if err != nil {
			return nil, err
		}
		updates["title"] = title
		tpl.Title = title
	}
	if patch.Description != nil {
		tpl.Description = cleanOptional(patch.Description)
		updates["description"] = tpl.Description
	}
	if patch.Period != nil {
		period, err := models.ParsePeriod(*patch.Period)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		if period != tpl.Period {
			updates["period"] = period
			updates["last_generated_at"] = nil
			tpl.Period = period
			tpl.LastGeneratedAt = nil
		}
	}
	if len(updates) == 0 {
		return &tpl, nil
	}
	if err := db.Model(&tpl).Updates(updates).Error; err != nil {
		return nil, err
	}
	return &tpl, nil
}

// DeleteTemplate removes the template. Instances it already produced stay on
// the task list, detached from their source.
func (s *TaskService) DeleteTemplate(ctx context.Context, userID, templateID string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", templateID, userID).Delete(&models.RecurringTemplate{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("template %s: %w", templateID, ErrNotFound)
		}
		return tx.Model(&models.TaskInstance{}).
			Where("source_template_id = ?", templateID).
			Update("source_template_id", nil).Error
	})
}
