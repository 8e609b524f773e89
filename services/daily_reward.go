package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"nova-rewards/models"
	"nova-rewards/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	MaxStreak   = 30
	MaxBackfill = 3
)

type rewardTier struct {
	from, to int
	amount   int64
}

var rewardTiers = []rewardTier{
	{1, 7, 10},
	{8, 14, 20},
	{15, 30, 40},
}

// fallbackReward applies to any day outside the tier table, i.e. the
// days before day 1 that a reset window backfills.
const fallbackReward int64 = 5

// RewardAmountForDay returns the coins paid for streak day.
func RewardAmountForDay(day int) int64 {
	for _, t := range rewardTiers {
		if day >= t.from && day <= t.to {
			return t.amount
		}
	}
	return fallbackReward
}

type DayReward struct {
	Day    int   `json:"day"`
	Amount int64 `json:"amount"`
}

// ClaimResult is the prediction for a claim made at a given instant.
type ClaimResult struct {
	CanClaim       bool        `json:"can_claim"`
	StreakNow      int         `json:"streak_now"`
	RewardsToClaim []DayReward `json:"rewards_to_claim"`
	MissedDays     int         `json:"missed_days"`
	IsReset        bool        `json:"is_reset"`
}

func (r ClaimResult) Total() int64 {
	var total int64
	for _, rw := range r.RewardsToClaim {
		total += rw.Amount
	}
	return total
}

// CalculateClaim works out what a claim at now would pay. Calendar days are
// taken in now's location. It never touches storage.
func CalculateClaim(lastClaimedAt *time.Time, currentStreak int, now time.Time) ClaimResult {
	if lastClaimedAt == nil {
		return ClaimResult{
			CanClaim:       true,
			StreakNow:      1,
			RewardsToClaim: []DayReward{{Day: 1, Amount: RewardAmountForDay(1)}},
		}
	}

	daysDiff := calendarDaysBetween(*lastClaimedAt, now)
	if daysDiff <= 0 {
		// same day, or a last claim dated in the future
		return ClaimResult{StreakNow: currentStreak, RewardsToClaim: []DayReward{}}
	}

	nextStreak := currentStreak + daysDiff
	isReset := false
	if nextStreak > MaxStreak {
		nextStreak = 1
		isReset = true
	}

	claimable := daysDiff
	if claimable > MaxBackfill+1 {
		claimable = MaxBackfill + 1
	}

	rewards := make([]DayReward, 0, claimable)
	// after a reset the window reaches back past day 1; those days pay fallbackReward
	for day := nextStreak - claimable + 1; day <= nextStreak; day++ {
		if !isReset && day <= currentStreak {
			continue
		}
		rewards = append(rewards, DayReward{Day: day, Amount: RewardAmountForDay(day)})
	}

	missed := daysDiff - 1 - MaxBackfill
	if missed < 0 {
		missed = 0
	}

	return ClaimResult{
		CanClaim:       true,
		StreakNow:      nextStreak,
		RewardsToClaim: rewards,
		MissedDays:     missed,
		IsReset:        isReset,
	}
}

// calendarDaysBetween counts midnights crossed from -> to, in to's location.
func calendarDaysBetween(from, to time.Time) int {
	fy, fm, fd := from.In(to.Location()).Date()
	ty, tm, td := to.Date()
	a := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	b := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

// DailyStatus is what the client needs to show the daily reward popup.
type DailyStatus struct {
	CurrentStreak int        `json:"current_streak"`
	LastClaimedAt *time.Time `json:"last_claimed_at"`
	ClaimResult
}

// DailyClaimOutcome is returned after a successful claim.
type DailyClaimOutcome struct {
	Rewards    []DayReward `json:"rewards"`
	NewStreak  int         `json:"new_streak"`
	TotalCoins int64       `json:"total_coins"`
	Balance    int64       `json:"balance"`
	MissedDays int         `json:"missed_days"`
	IsReset    bool        `json:"is_reset"`
}

type DailyRewardService struct {
	DB       *gorm.DB
	Ledger   *LedgerService
	Notifier Notifier
	Clock    Clock
	log      *utils.Logger
	metrics  *utils.Metrics
}

func NewDailyRewardService(db *gorm.DB, ledger *LedgerService, notifier Notifier, clock Clock, log *utils.Logger, metrics *utils.Metrics) *DailyRewardService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &DailyRewardService{
		DB:       db,
		Ledger:   ledger,
		Notifier: notifier,
		Clock:    clock,
		log:      log.With("service", "DailyRewardService"),
		metrics:  metrics,
	}
}

func (s *DailyRewardService) Status(ctx context.Context, userID string) (DailyStatus, error) {
	prog, err := loadProgress(s.DB.WithContext(ctx), userID)
	if err != nil {
		return DailyStatus{}, err
	}
	return DailyStatus{
		CurrentStreak: prog.StreakCount,
		LastClaimedAt: prog.LastClaimedAt,
		ClaimResult:   CalculateClaim(prog.LastClaimedAt, prog.StreakCount, s.Clock()),
	}, nil
}

// Claim collects today's reward: persists the new streak and credits the sum
// of all claimable days as one ledger entry.
func (s *DailyRewardService) Claim(ctx context.Context, userID string) (DailyClaimOutcome, error) {
	now := s.Clock()
	var out DailyClaimOutcome

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		prog, err := loadProgress(tx, userID)
		if err != nil {
			return err
		}

		claim := CalculateClaim(prog.LastClaimedAt, prog.StreakCount, now)
		if !claim.CanClaim {
			return ErrAlreadyClaimed
		}
		total := claim.Total()

		// one row per calendar day; a parallel claim for the same day loses here
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.DailyRewardClaim{
			UserID:    userID,
			ClaimDate: now.Format("2006-01-02"),
			StreakDay: claim.StreakNow,
			Coins:     total,
			ClaimedAt: now,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyClaimed
		}

		if err := tx.Model(prog).Updates(map[string]interface{}{
			"streak_count":    claim.StreakNow,
			"last_claimed_at": now,
		}).Error; err != nil {
			return err
		}

		balance := prog.Coins
		if total > 0 {
			if balance, err = s.Ledger.ModifyBalance(ctx, tx, userID, total, dailyRewardDescription(claim.RewardsToClaim)); err != nil {
				return err
			}
		}

		out = DailyClaimOutcome{
			Rewards:    claim.RewardsToClaim,
			NewStreak:  claim.StreakNow,
			TotalCoins: total,
			Balance:    balance,
			MissedDays: claim.MissedDays,
			IsReset:    claim.IsReset,
		}
		return nil
	})
	if err != nil {
		return DailyClaimOutcome{}, err
	}

	s.metrics.DailyClaimed()
	s.log.Info("🎁 daily reward claimed", "user_id", userID, "streak", out.NewStreak, "coins", out.TotalCoins)
	if err := s.Notifier.Notify(ctx, userID, "daily_reward_claimed", out); err != nil {
		s.log.Warn("reward notification failed", "user_id", userID, "event", "daily_reward_claimed", "error", err)
	}
	return out, nil
}

func dailyRewardDescription(rewards []DayReward) string {
	days := make([]string, 0, len(rewards))
	for _, r := range rewards {
		days = append(days, strconv.Itoa(r.Day))
	}
	return fmt.Sprintf("Daily Reward (Days: %s)", strings.Join(days, ", "))
}
