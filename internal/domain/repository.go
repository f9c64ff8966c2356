package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AccountRepository defines access methods for accounts.
type AccountRepository interface {
	// GetOrCreate returns the account for the Telegram user, creating it
	// with the signup grant as the starting balance on first contact.
	GetOrCreate(ctx context.Context, telegramID int64, username, firstName string, signupGrant int) (*Account, bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*Account, error)
	UpdateSettings(ctx context.Context, id uuid.UUID, settings AccountSettings) (*Account, error)
}

// JobRepository defines persistence for job entities.
type JobRepository interface {
	Create(ctx context.Context, job *Job) error
	GetByID(ctx context.Context, jobID uuid.UUID) (*Job, error)
	// Transition performs a conditional status update: it is a no-op and
	// returns ErrTransitionConflict when the current status does not match
	// expected.
	Transition(ctx context.Context, jobID uuid.UUID, expected, next JobStatus, upd JobUpdate) error
	ListRecent(ctx context.Context, accountID uuid.UUID, limit int) ([]Job, error)
	CountCreatedSince(ctx context.Context, accountID uuid.UUID, since time.Time) (int, error)
}

// TemplateRepository defines read-only template lookup.
type TemplateRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Template, error)
	ListActive(ctx context.Context) ([]Template, error)
}

// StatsRepository serves the administrative reporting queries.
type StatsRepository interface {
	TotalAccounts(ctx context.Context) (int64, error)
	TotalJobs(ctx context.Context) (int64, error)
	JobsByStatus(ctx context.Context) (map[JobStatus]int64, error)
	TotalTokensSpent(ctx context.Context) (int64, error)
}
