package services

import (
	"context"
	"fmt"
	"strings"

	"nova-rewards/models"
	"nova-rewards/utils"

	"gorm.io/gorm"
)

// LedgerService is the only writer of coin balances and currency_transactions.
type LedgerService struct {
	DB      *gorm.DB
	Clock   Clock
	log     *utils.Logger
	metrics *utils.Metrics
}

func NewLedgerService(db *gorm.DB, clock Clock, log *utils.Logger, metrics *utils.Metrics) *LedgerService {
	return &LedgerService{
		DB:      db,
		Clock:   clock,
		log:     log.With("service", "LedgerService"),
		metrics: metrics,
	}
}

// ModifyBalance adds amount (signed) to the user's coins and appends a ledger row,
// both inside tx (or a new transaction when tx is nil). Returns the new balance.
// A debit that would go below zero fails with ErrInsufficientFunds and changes nothing.
func (s *LedgerService) ModifyBalance(ctx context.Context, tx *gorm.DB, userID string, amount int64, description string) (int64, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return 0, fmt.Errorf("%w: ledger description is required", ErrValidation)
	}

	var newBalance int64
	err := inTx(ctx, s.DB, tx, func(tx *gorm.DB) error {
		prog, err := loadProgress(tx, userID)
		if err != nil {
			return err
		}
		if amount == 0 {
			newBalance = prog.Coins
			return nil
		}
		if prog.Coins+amount < 0 {
			return fmt.Errorf("balance %d, debit %d: %w", prog.Coins, -amount, ErrInsufficientFunds)
		}

		// Guarded in SQL as well so a concurrent debit cannot overdraw between read and write.
		res := tx.Model(&models.UserProgress{}).
			Where("user_id = ? AND coins + ? >= 0", userID, amount).
			Update("coins", gorm.Expr("coins + ?", amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("concurrent debit: %w", ErrInsufficientFunds)
		}

		entry := models.CurrencyTransaction{
			UserID:      userID,
			Amount:      amount,
			Description: description,
			CreatedAt:   s.Clock(),
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}

		return tx.Model(&models.UserProgress{}).
			Where("user_id = ?", userID).
			Select("coins").
			Scan(&newBalance).Error
	})
	if err != nil {
		return 0, err
	}

	if amount != 0 {
		s.metrics.CoinsMoved(amount)
		s.log.Debug("💰 balance modified", "user_id", userID, "amount", amount, "balance", newBalance, "reason", description)
	}
	return newBalance, nil
}

// History returns the most recent ledger entries, newest first.
func (s *LedgerService) History(ctx context.Context, userID string, limit int) ([]models.CurrencyTransaction, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	var entries []models.CurrencyTransaction
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}
