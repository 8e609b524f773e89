package services

import (
	"context"
	"errors"
	"fmt"

	"nova-rewards/models"
	"nova-rewards/utils"

	"gorm.io/gorm"
)

// Fixed rewards per action.
const (
	TaskCompletionXP    int64 = 20
	TaskCompletionCoins int64 = 5
	FocusSessionXP      int64 = 15
	FocusSessionCoins   int64 = 10
	GoalCompletionXP    int64 = 120
	GoalCompletionCoins int64 = 50
)

// RewardOutcome is everything one user action earned, merged for the client toast.
// XP and level fields reflect the final state after action and achievement grants.
type RewardOutcome struct {
	XPGained     int64                          `json:"xp_gained,omitempty"`
	NewLevel     int                            `json:"new_level,omitempty"`
	IsLevelUp    bool                           `json:"is_level_up,omitempty"`
	CurrentExp   int64                          `json:"current_exp,omitempty"`
	CoinsEarned  int64                          `json:"coins_earned,omitempty"`
	Achievements []models.AchievementDefinition `json:"achievements,omitempty"`
}

func (o RewardOutcome) IsEmpty() bool {
	return o.XPGained == 0 && o.CoinsEarned == 0 && len(o.Achievements) == 0
}

func (o *RewardOutcome) addXP(r LevelUpResult) {
	o.XPGained += r.XPGained
	o.NewLevel = r.NewLevel
	o.CurrentExp = r.CurrentExp
	o.IsLevelUp = o.IsLevelUp || r.IsLevelUp
	o.CoinsEarned += r.TotalCoinReward
}

func (o *RewardOutcome) addUnlocks(unlocks []UnlockResult) {
	for _, u := range unlocks {
		o.Achievements = append(o.Achievements, u.Definition)
		if u.Definition.XPReward > 0 {
			o.addXP(u.XP)
		}
		o.CoinsEarned += u.Definition.CoinReward
	}
}

// ActionService turns user actions into rewards. Each action is one transaction.
type ActionService struct {
	DB           *gorm.DB
	Experience   *ExperienceService
	Ledger       *LedgerService
	Achievements *AchievementService
	Notifier     Notifier
	Clock        Clock
	log          *utils.Logger
}

func NewActionService(db *gorm.DB, xp *ExperienceService, ledger *LedgerService, achievements *AchievementService, notifier Notifier, clock Clock, log *utils.Logger) *ActionService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &ActionService{
		DB:           db,
		Experience:   xp,
		Ledger:       ledger,
		Achievements: achievements,
		Notifier:     notifier,
		Clock:        clock,
		log:          log.With("service", "ActionService"),
	}
}

func (s *ActionService) recordEvent(tx *gorm.DB, userID string, kind models.ActivityKind, sourceID string) error {
	return tx.Create(&models.ActivityEvent{
		UserID:    userID,
		Kind:      kind,
		SourceID:  sourceID,
		CreatedAt: s.Clock(),
	}).Error
}

// reward grants the fixed XP and coins of an action.
func (s *ActionService) reward(ctx context.Context, tx *gorm.DB, userID string, xp, coins int64, description string, out *RewardOutcome) error {
	res, err := s.Experience.GrantExperience(ctx, tx, userID, xp)
	if err != nil {
		return err
	}
	out.addXP(res)
	if coins > 0 {
		if _, err := s.Ledger.ModifyBalance(ctx, tx, userID, coins, description); err != nil {
			return err
		}
		out.CoinsEarned += coins
	}
	return nil
}

func (s *ActionService) publish(ctx context.Context, userID, event string, out RewardOutcome) {
	if out.IsEmpty() {
		return
	}
	if err := s.Notifier.Notify(ctx, userID, event, out); err != nil {
		s.log.Warn("reward notification failed", "user_id", userID, "event", event, "error", err)
	}
}

// markRewarded flips has_rewarded_exp false -> true. Only the caller that
// flips it may grant rewards.
func markRewarded(tx *gorm.DB, model interface{}, id string) (bool, error) {
	res := tx.Model(model).
		Where("id = ? AND has_rewarded_exp = ?", id, false).
		Update("has_rewarded_exp", true)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// CompleteTask marks the task done. Rewards are paid only the first time a task
// is ever completed; re-completing after un-checking pays nothing.
func (s *ActionService) CompleteTask(ctx context.Context, userID, taskID string) (*models.TaskInstance, RewardOutcome, error) {
	var (
		task models.TaskInstance
		out  RewardOutcome
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := ensureProgress(tx, userID); err != nil {
			return err
		}
		if err := findOwned(tx, &task, userID, taskID); err != nil {
			return err
		}
		if !task.IsCompleted {
			now := s.Clock()
			if err := tx.Model(&task).Updates(map[string]interface{}{
				"is_completed": true,
				"completed_at": now,
			}).Error; err != nil {
				return err
			}
			task.IsCompleted = true
			task.CompletedAt = &now
		}

		granted, err := markRewarded(tx, &models.TaskInstance{}, task.ID)
		if err != nil || !granted {
			return err
		}
		task.HasRewardedExp = true

		if err := s.recordEvent(tx, userID, models.ActivityTaskCompleted, task.ID); err != nil {
			return err
		}
		if err := s.reward(ctx, tx, userID, TaskCompletionXP, TaskCompletionCoins, "Task Completed", &out); err != nil {
			return err
		}
		unlocks, err := s.Achievements.CheckTaskAchievements(ctx, tx, userID)
		if err != nil {
			return err
		}
		out.addUnlocks(unlocks)
		return nil
	})
	if err != nil {
		return nil, RewardOutcome{}, err
	}

	s.publish(ctx, userID, "task_completed", out)
	return &task, out, nil
}

// FinishFocusSession rewards one completed focus (pomodoro) session.
func (s *ActionService) FinishFocusSession(ctx context.Context, userID string) (RewardOutcome, error) {
	var out RewardOutcome
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := ensureProgress(tx, userID); err != nil {
			return err
		}
		if err := s.recordEvent(tx, userID, models.ActivityFocusSessionFinished, ""); err != nil {
			return err
		}
		if err := s.reward(ctx, tx, userID, FocusSessionXP, FocusSessionCoins, "Deep Focus Session", &out); err != nil {
			return err
		}
		unlocks, err := s.Achievements.CheckFocusAchievements(ctx, tx, userID)
		if err != nil {
			return err
		}
		out.addUnlocks(unlocks)
		return nil
	})
	if err != nil {
		return RewardOutcome{}, err
	}

	s.publish(ctx, userID, "focus_session_finished", out)
	return out, nil
}

// CreateGoal stores a new active goal. Creating goals pays no XP, only achievements.
func (s *ActionService) CreateGoal(ctx context.Context, userID, title string) (*models.Goal, RewardOutcome, error) {
	title, err := cleanTitle(title)
	if err != nil {
		return nil, RewardOutcome{}, err
	}

	goal := models.Goal{UserID: userID, Title: title, Status: models.GoalStatusActive}
	var out RewardOutcome
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := ensureProgress(tx, userID); err != nil {
			return err
		}
		if err := tx.Create(&goal).Error; err != nil {
			return err
		}
		if err := s.recordEvent(tx, userID, models.ActivityGoalCreated, goal.ID); err != nil {
			return err
		}
		unlocks, err := s.Achievements.CheckGoalAchievements(ctx, tx, userID, GoalModeCreate)
		if err != nil {
			return err
		}
		out.addUnlocks(unlocks)
		return nil
	})
	if err != nil {
		return nil, RewardOutcome{}, err
	}

	s.publish(ctx, userID, "goal_created", out)
	return &goal, out, nil
}

// CompleteGoal marks the goal completed and pays the goal bonus exactly once.
// The goal needs at least one milestone and every milestone done.
func (s *ActionService) CompleteGoal(ctx context.Context, userID, goalID string) (*models.Goal, RewardOutcome, error) {
	var (
		goal models.Goal
		out  RewardOutcome
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := ensureProgress(tx, userID); err != nil {
			return err
		}
		if err := findOwned(tx, &goal, userID, goalID); err != nil {
			return err
		}
		if goal.Status != models.GoalStatusCompleted {
			total, done, err := milestoneCounts(tx, goal.ID)
			if err != nil {
				return err
			}
			if total == 0 || done < total {
				return ErrGoalNotReady
			}
			now := s.Clock()
			if err := tx.Model(&goal).Updates(map[string]interface{}{
				"status":       models.GoalStatusCompleted,
				"completed_at": now,
			}).Error; err != nil {
				return err
			}
			goal.Status = models.GoalStatusCompleted
			goal.CompletedAt = &now
		}

		granted, err := markRewarded(tx, &models.Goal{}, goal.ID)
		if err != nil || !granted {
			return err
		}
		goal.HasRewardedExp = true

		if err := s.recordEvent(tx, userID, models.ActivityGoalCompleted, goal.ID); err != nil {
			return err
		}
		if err := s.reward(ctx, tx, userID, GoalCompletionXP, GoalCompletionCoins, "Goal Reached: "+goal.Title, &out); err != nil {
			return err
		}
		unlocks, err := s.Achievements.CheckGoalAchievements(ctx, tx, userID, GoalModeComplete)
		if err != nil {
			return err
		}
		out.addUnlocks(unlocks)
		return nil
	})
	if err != nil {
		return nil, RewardOutcome{}, err
	}

	s.publish(ctx, userID, "goal_completed", out)
	return &goal, out, nil
}

// findOwned loads a row by id scoped to its owner; other users' rows are NotFound.
func findOwned(tx *gorm.DB, dest interface{}, userID, id string) error {
	err := tx.Where("id = ? AND user_id = ?", id, userID).First(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("record %s: %w", id, ErrNotFound)
	}
	return err
}
