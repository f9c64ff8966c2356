// Package ratelimit gates job submission per account. The limiter counts
// jobs already persisted within the trailing window, so a denied submission
// never reserves tokens and a crash cannot lose limiter state.
package ratelimit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"imagebot/internal/domain"
)

// Counter reports how many jobs an account created at or after an instant.
type Counter interface {
	CountCreatedSince(ctx context.Context, accountID uuid.UUID, since time.Time) (int, error)
}

// Limiter allows at most limit submissions per account per window.
type Limiter struct {
	counter Counter
	window  time.Duration
	limit   int
	now     func() time.Time
}

// New creates a sliding-window limiter over the given counter.
func New(counter Counter, window time.Duration, limit int) *Limiter {
	return &Limiter{
		counter: counter,
		window:  window,
		limit:   limit,
		now:     time.Now,
	}
}

// Allow returns nil when the account may submit another job, and
// domain.RateLimitedError when the window is full. It is evaluated before
// any ledger debit.
func (l *Limiter) Allow(ctx context.Context, accountID uuid.UUID) error {
	since := l.now().Add(-l.window)
	count, err := l.counter.CountCreatedSince(ctx, accountID, since)
	if err != nil {
		return err
	}
	if count >= l.limit {
		return &domain.RateLimitedError{Limit: l.limit, Window: l.window.String()}
	}
	return nil
}
