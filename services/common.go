package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"nova-rewards/models"

	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"
)

// Clock returns the current instant. Its Location decides where calendar
// days, weeks and months begin.
type Clock func() time.Time

// ClockIn returns a wall clock reporting time in loc.
func ClockIn(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return func() time.Time { return time.Now().In(loc) }
}

// conn picks the caller's transaction when there is one.
func conn(ctx context.Context, db, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}

// inTx runs fn inside tx when given, otherwise inside a fresh transaction.
func inTx(ctx context.Context, db, tx *gorm.DB, fn func(tx *gorm.DB) error) error {
	if tx != nil {
		return fn(tx.WithContext(ctx))
	}
	return db.WithContext(ctx).Transaction(fn)
}

func loadProgress(tx *gorm.DB, userID string) (*models.UserProgress, error) {
	var prog models.UserProgress
	if err := tx.Where("user_id = ?", userID).First(&prog).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("progress for user %s: %w", userID, ErrNotFound)
		}
		return nil, err
	}
	return &prog, nil
}

// cleanTitle trims and NFC-normalizes user supplied titles.
func cleanTitle(raw string) (string, error) {
	title := norm.NFC.String(strings.TrimSpace(raw))
	if title == "" {
		return "", fmt.Errorf("%w: title is required", ErrValidation)
	}
	return title, nil
}

func cleanOptional(raw *string) *string {
	if raw == nil {
		return nil
	}
	v := norm.NFC.String(strings.TrimSpace(*raw))
	if v == "" {
		return nil
	}
	return &v
}
