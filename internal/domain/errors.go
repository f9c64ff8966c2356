package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidPrompt      = errors.New("invalid prompt")
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrTransitionConflict = errors.New("job status transition conflict")
	ErrProviderFailure    = errors.New("provider failure")
)

// InsufficientBalanceError is returned by a debit whose amount exceeds the
// account balance. No mutation has been performed when it is returned.
type InsufficientBalanceError struct {
	Required  int
	Available int
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: required %d, available %d", e.Required, e.Available)
}

// RateLimitedError is returned when an account exceeds its submission limit
// within the trailing window. No mutation has been performed when it is
// returned.
type RateLimitedError struct {
	Limit  int
	Window string
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited: at most %d jobs per %s", e.Limit, e.Window)
}
