package services

import (
	"context"
	"fmt"

	"nova-rewards/utils"

	"gorm.io/gorm"
)

// MaxExperienceGrant caps a single grant well below the int64 range.
const MaxExperienceGrant int64 = 1_000_000

// LevelUpResult describes one XP grant.
type LevelUpResult struct {
	XPGained        int64 `json:"xp_gained"`
	NewLevel        int   `json:"new_level"`
	IsLevelUp       bool  `json:"is_level_up"`
	CurrentExp      int64 `json:"current_exp"`
	TotalCoinReward int64 `json:"total_coin_reward"`
}

type ExperienceService struct {
	DB      *gorm.DB
	Ledger  *LedgerService
	Clock   Clock
	log     *utils.Logger
	metrics *utils.Metrics
}

func NewExperienceService(db *gorm.DB, ledger *LedgerService, clock Clock, log *utils.Logger, metrics *utils.Metrics) *ExperienceService {
	return &ExperienceService{
		DB:      db,
		Ledger:  ledger,
		Clock:   clock,
		log:     log.With("service", "ExperienceService"),
		metrics: metrics,
	}
}

// GrantExperience adds amount XP, resolving any number of level-ups in one call.
// Coins for every level entered are credited once, as a single ledger entry.
func (s *ExperienceService) GrantExperience(ctx context.Context, tx *gorm.DB, userID string, amount int64) (LevelUpResult, error) {
	if amount < 0 {
		return LevelUpResult{}, fmt.Errorf("%w: experience amount must not be negative (got %d)", ErrValidation, amount)
	}
	if amount > MaxExperienceGrant {
		return LevelUpResult{}, fmt.Errorf("%w: experience amount %d exceeds the per-grant cap of %d", ErrValidation, amount, MaxExperienceGrant)
	}

	var result LevelUpResult
	err := inTx(ctx, s.DB, tx, func(tx *gorm.DB) error {
		prog, err := loadProgress(tx, userID)
		if err != nil {
			return err
		}

		if prog.Level >= MaxLevel {
			result = LevelUpResult{NewLevel: prog.Level, CurrentExp: prog.Experience}
			return nil
		}

		exp := prog.Experience + amount
		level := prog.Level
		var coins int64
		for level < MaxLevel && exp >= XPThreshold(level) {
			exp -= XPThreshold(level)
			level++
			coins += CoinRewardForLevel(level)
		}

		updates := map[string]interface{}{
			"experience": exp,
			"level":      level,
		}
		levelled := level > prog.Level
		if levelled {
			updates["last_level_up_at"] = s.Clock()
		}
		if err := tx.Model(prog).Updates(updates).Error; err != nil {
			return err
		}

		if levelled && coins > 0 {
			desc := fmt.Sprintf("Level Up Bonus (Reached Lvl %d)", level)
			if _, err := s.Ledger.ModifyBalance(ctx, tx, userID, coins, desc); err != nil {
				return err
			}
		}

		result = LevelUpResult{
			XPGained:        amount,
			NewLevel:        level,
			IsLevelUp:       levelled,
			CurrentExp:      exp,
			TotalCoinReward: coins,
		}
		return nil
	})
	if err != nil {
		return LevelUpResult{}, err
	}

	s.metrics.XPGranted(result.XPGained)
	if result.IsLevelUp {
		s.log.Info("🎮 level up", "user_id", userID, "level", result.NewLevel, "coins", result.TotalCoinReward)
	}
	return result, nil
}
