package services

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientFunds: a debit would take the coin balance below zero.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrNotFound: user progress or an owned record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrValidation: input rejected before any mutation.
	ErrValidation = errors.New("validation failed")
	// ErrAlreadyClaimed: today's daily reward was already collected.
	ErrAlreadyClaimed = fmt.Errorf("%w: daily reward already claimed today", ErrValidation)
	// ErrAlreadyOwned: the shop item is already in the user's inventory.
	ErrAlreadyOwned = fmt.Errorf("%w: item already owned", ErrValidation)
	// ErrNotOwned: equipping an item the user never bought.
	ErrNotOwned = fmt.Errorf("%w: item not owned", ErrValidation)
	// ErrGoalNotReady: the goal has no milestones or some are still open.
	ErrGoalNotReady = fmt.Errorf("%w: goal not ready to complete", ErrValidation)

	// errDuplicateUnlock never leaves the package; a lost unlock race is a no-op.
	errDuplicateUnlock = errors.New("achievement already unlocked")
)
