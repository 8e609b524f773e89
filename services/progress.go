package services

import (
	"context"
	"errors"
	"time"

	"nova-rewards/models"
	"nova-rewards/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProgressService struct {
	DB           *gorm.DB
	Achievements *AchievementService
	log          *utils.Logger
}

func NewProgressService(db *gorm.DB, achievements *AchievementService, log *utils.Logger) *ProgressService {
	return &ProgressService{
		DB:           db,
		Achievements: achievements,
		log:          log.With("service", "ProgressService"),
	}
}

// ensureProgress creates the user's progress row on first contact (idempotent).
func ensureProgress(tx *gorm.DB, userID string) (*models.UserProgress, error) {
	if userID == "" {
		return nil, errors.New("empty user id")
	}
	prog := models.UserProgress{UserID: userID, Level: 1}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&prog).Error; err != nil {
		return nil, err
	}
	return loadProgress(tx, userID)
}

// EnsureProgress returns the progress row, creating it when missing.
func (s *ProgressService) EnsureProgress(ctx context.Context, userID string) (*models.UserProgress, error) {
	return ensureProgress(s.DB.WithContext(ctx), userID)
}

// AchievementStatus is one catalog entry with the user's unlock state.
type AchievementStatus struct {
	models.AchievementDefinition
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`
}

// ProfileSnapshot is the profile page payload.
type ProfileSnapshot struct {
	Level         int                 `json:"level"`
	Experience    int64               `json:"experience"`
	NextLevelXP   *int64              `json:"next_level_xp"`
	IsMaxLevel    bool                `json:"is_max_level"`
	Coins         int64               `json:"coins"`
	StreakCount   int                 `json:"streak_count"`
	ActiveAvatar  string              `json:"active_avatar"`
	ActiveFrame   string              `json:"active_frame"`
	Achievements  []AchievementStatus `json:"achievements"`
	UnlockedCount int                 `json:"unlocked_count"`
}

// GetProgress builds the profile snapshot. nextLevelXp is null at max level.
func (s *ProgressService) GetProgress(ctx context.Context, userID string) (ProfileSnapshot, error) {
	prog, err := s.EnsureProgress(ctx, userID)
	if err != nil {
		return ProfileSnapshot{}, err
	}
	unlocked, err := s.Achievements.Unlocked(ctx, userID)
	if err != nil {
		return ProfileSnapshot{}, err
	}

	snap := ProfileSnapshot{
		Level:         prog.Level,
		Experience:    prog.Experience,
		IsMaxLevel:    prog.Level >= MaxLevel,
		Coins:         prog.Coins,
		StreakCount:   prog.StreakCount,
		ActiveAvatar:  prog.ActiveAvatar,
		ActiveFrame:   prog.ActiveFrame,
		UnlockedCount: len(unlocked),
	}
	if !snap.IsMaxLevel {
		next := XPThreshold(prog.Level)
		snap.NextLevelXP = &next
	}
	for _, def := range models.AllAchievements() {
		st := AchievementStatus{AchievementDefinition: def}
		if row, ok := unlocked[def.ID]; ok {
			st.Unlocked = true
			at := row.UnlockedAt
			st.UnlockedAt = &at
		}
		snap.Achievements = append(snap.Achievements, st)
	}
	return snap, nil
}
