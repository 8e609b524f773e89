package models

import (
	"sort"
	"time"

	"gorm.io/gorm"
)

// AchievementTier is the rarity band of an achievement.
type AchievementTier string

const (
	TierBronze AchievementTier = "BRONZE"
	TierSilver AchievementTier = "SILVER"
	TierGold   AchievementTier = "GOLD"
)

// Achievement IDs. These strings are persisted in unlocked_achievements and must never change.
const (
	AchievementFirstTodo          = "FIRST_TODO"
	AchievementTodo10             = "TODO_10"
	AchievementTodo100            = "TODO_100"
	AchievementFirstPomodoro      = "FIRST_POMODORO"
	AchievementPomodoro25         = "POMODORO_25"
	AchievementFirstGoal          = "FIRST_GOAL"
	AchievementFirstGoalCompleted = "FIRST_GOAL_COMPLETED"
)

// AchievementDefinition: static config, compiled into the binary
type AchievementDefinition struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Tier        AchievementTier `json:"tier"`
	XPReward    int64           `json:"xp_reward"`
	CoinReward  int64           `json:"coin_reward"`
}

// UnlockedAchievement: awarded instance. The composite unique index is the idempotency guard.
type UnlockedAchievement struct {
	ID            string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID        string    `gorm:"not null;uniqueIndex:ux_user_achievement,priority:1" json:"user_id"`
	AchievementID string    `gorm:"not null;uniqueIndex:ux_user_achievement,priority:2" json:"achievement_id"`
	UnlockedAt    time.Time `gorm:"not null" json:"unlocked_at"`
}

func (u *UnlockedAchievement) BeforeCreate(tx *gorm.DB) error {
	ensureID(&u.ID)
	return nil
}

var achievementCatalog = map[string]AchievementDefinition{
	// --- tasks ---
	AchievementFirstTodo: {
		ID:          AchievementFirstTodo,
		Title:       "The Beginning",
		Description: "Complete your very first task.",
		Tier:        TierBronze,
		XPReward:    50,
		CoinReward:  10,
	},
	AchievementTodo10: {
		ID:          AchievementTodo10,
		Title:       "Getting Serious",
		Description: "Complete 10 tasks.",
		Tier:        TierBronze,
		XPReward:    100,
		CoinReward:  25,
	},
	AchievementTodo100: {
		ID:          AchievementTodo100,
		Title:       "Task Master",
		Description: "Complete 100 tasks.",
		Tier:        TierGold,
		XPReward:    500,
		CoinReward:  200,
	},

	// --- focus sessions ---
	AchievementFirstPomodoro: {
		ID:          AchievementFirstPomodoro,
		Title:       "Focus Initiate",
		Description: "Complete 1 full focus session.",
		Tier:        TierBronze,
		XPReward:    50,
		CoinReward:  15,
	},
	AchievementPomodoro25: {
		ID:          AchievementPomodoro25,
		Title:       "Deep Diver",
		Description: "Complete 25 focus sessions.",
		Tier:        TierSilver,
		XPReward:    300,
		CoinReward:  100,
	},

	// --- goals ---
	AchievementFirstGoal: {
		ID:          AchievementFirstGoal,
		Title:       "Dreamer",
		Description: "Create your first Goal.",
		Tier:        TierBronze,
		XPReward:    50,
		CoinReward:  10,
	},
	AchievementFirstGoalCompleted: {
		ID:          AchievementFirstGoalCompleted,
		Title:       "Dream Catcher",
		Description: "Complete a Goal.",
		Tier:        TierGold,
		XPReward:    500,
		CoinReward:  100,
	},
}

// LookupAchievement returns a copy of the catalog entry, so callers cannot mutate the registry.
func LookupAchievement(id string) (AchievementDefinition, bool) {
	def, ok := achievementCatalog[id]
	return def, ok
}

// AllAchievements lists the catalog ordered by ID.
func AllAchievements() []AchievementDefinition {
	out := make([]AchievementDefinition, 0, len(achievementCatalog))
	for _, def := range achievementCatalog {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
