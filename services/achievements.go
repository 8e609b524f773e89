package services

import (
	"context"
	"fmt"

	"nova-rewards/models"
	"nova-rewards/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GoalMode selects which goal achievements a check may unlock.
type GoalMode string

const (
	GoalModeCreate   GoalMode = "CREATE"
	GoalModeComplete GoalMode = "COMPLETE"
)

// countMilestone maps a lifetime activity count to the achievement it unlocks.
type countMilestone struct {
	count         int64
	achievementID string
}

var (
	taskMilestones = []countMilestone{
		{1, models.AchievementFirstTodo},
		{10, models.AchievementTodo10},
		{100, models.AchievementTodo100},
	}
	focusMilestones = []countMilestone{
		{1, models.AchievementFirstPomodoro},
		{25, models.AchievementPomodoro25},
	}
	goalCreateMilestones = []countMilestone{
		{1, models.AchievementFirstGoal},
	}
	goalCompleteMilestones = []countMilestone{
		{1, models.AchievementFirstGoalCompleted},
	}
)

// UnlockResult is a freshly unlocked achievement plus the XP grant it caused.
type UnlockResult struct {
	Definition models.AchievementDefinition
	XP         LevelUpResult
}

type AchievementService struct {
	DB         *gorm.DB
	Experience *ExperienceService
	Ledger     *LedgerService
	Clock      Clock
	log        *utils.Logger
	metrics    *utils.Metrics
}

func NewAchievementService(db *gorm.DB, xp *ExperienceService, ledger *LedgerService, clock Clock, log *utils.Logger, metrics *utils.Metrics) *AchievementService {
	return &AchievementService{
		DB:         db,
		Experience: xp,
		Ledger:     ledger,
		Clock:      clock,
		log:        log.With("service", "AchievementService"),
		metrics:    metrics,
	}
}

// TryUnlock records the achievement for the user and grants its rewards.
// Returns nil (no error) when the user already had it.
func (s *AchievementService) TryUnlock(ctx context.Context, tx *gorm.DB, userID, achievementID string) (*UnlockResult, error) {
	def, ok := models.LookupAchievement(achievementID)
	if !ok {
		return nil, fmt.Errorf("%w: unknown achievement %q", ErrValidation, achievementID)
	}

	var result *UnlockResult
	err := inTx(ctx, s.DB, tx, func(tx *gorm.DB) error {
		err := s.insertUnlock(tx, userID, def.ID)
		if err == errDuplicateUnlock {
			return nil
		}
		if err != nil {
			return err
		}

		res := UnlockResult{Definition: def}
		if def.XPReward > 0 {
			if res.XP, err = s.Experience.GrantExperience(ctx, tx, userID, def.XPReward); err != nil {
				return err
			}
		}
		if def.CoinReward > 0 {
			if _, err := s.Ledger.ModifyBalance(ctx, tx, userID, def.CoinReward, "Achievement: "+def.Title); err != nil {
				return err
			}
		}
		result = &res
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result != nil {
		s.metrics.AchievementUnlocked(def.ID)
		s.log.Info("🏅 achievement unlocked", "user_id", userID, "achievement", def.ID)
	}
	return result, nil
}

// insertUnlock relies on the (user_id, achievement_id) unique index; a conflict
// means someone got there first.
func (s *AchievementService) insertUnlock(tx *gorm.DB, userID, achievementID string) error {
	row := models.UnlockedAchievement{
		UserID:        userID,
		AchievementID: achievementID,
		UnlockedAt:    s.Clock(),
	}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errDuplicateUnlock
	}
	return nil
}

// CheckTaskAchievements unlocks task milestones reached by the completed-task count.
func (s *AchievementService) CheckTaskAchievements(ctx context.Context, tx *gorm.DB, userID string) ([]UnlockResult, error) {
	return s.checkCount(ctx, tx, userID, models.ActivityTaskCompleted, taskMilestones)
}

// CheckFocusAchievements unlocks focus-session milestones.
func (s *AchievementService) CheckFocusAchievements(ctx context.Context, tx *gorm.DB, userID string) ([]UnlockResult, error) {
	return s.checkCount(ctx, tx, userID, models.ActivityFocusSessionFinished, focusMilestones)
}

// CheckGoalAchievements evaluates only the milestones belonging to mode.
func (s *AchievementService) CheckGoalAchievements(ctx context.Context, tx *gorm.DB, userID string, mode GoalMode) ([]UnlockResult, error) {
	switch mode {
	case GoalModeCreate:
		return s.checkCount(ctx, tx, userID, models.ActivityGoalCreated, goalCreateMilestones)
	case GoalModeComplete:
		return s.checkCount(ctx, tx, userID, models.ActivityGoalCompleted, goalCompleteMilestones)
	default:
		return nil, fmt.Errorf("%w: unknown goal mode %q", ErrValidation, mode)
	}
}

func (s *AchievementService) checkCount(ctx context.Context, tx *gorm.DB, userID string, kind models.ActivityKind, milestones []countMilestone) ([]UnlockResult, error) {
	var count int64
	if err := conn(ctx, s.DB, tx).
		Model(&models.ActivityEvent{}).
		Where("user_id = ? AND kind = ?", userID, kind).
		Count(&count).Error; err != nil {
		return nil, err
	}

	var unlocked []UnlockResult
	for _, m := range milestones {
		if count < m.count {
			break
		}
		res, err := s.TryUnlock(ctx, tx, userID, m.achievementID)
		if err != nil {
			return nil, err
		}
		if res != nil {
			unlocked = append(unlocked, *res)
		}
	}
	return unlocked, nil
}

// Unlocked returns achievement id -> unlock time for the user.
func (s *AchievementService) Unlocked(ctx context.Context, userID string) (map[string]models.UnlockedAchievement, error) {
	var rows []models.UnlockedAchievement
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]models.UnlockedAchievement, len(rows))
	for _, r := range rows {
		out[r.AchievementID] = r
	}
	return out, nil
}
