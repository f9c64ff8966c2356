package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"imagebot/internal/domain"
)

// AccountRepositoryPG implements domain.AccountRepository.
//
// Balance mutations deliberately have no method here; they go through the
// ledger package so every debit and credit is serialized per account.
type AccountRepositoryPG struct {
	db DBTX
}

// NewAccountRepository creates a new account repository backed by PostgreSQL.
func NewAccountRepository(db DBTX) *AccountRepositoryPG {
	return &AccountRepositoryPG{db: db}
}

const accountColumns = `id, telegram_id, username, first_name, balance, model, image_quality, image_size, created_at, updated_at`

// GetOrCreate returns the account for the Telegram user, creating it with the
// signup grant as the starting balance on first contact. The insert relies on
// the unique index on telegram_id so two concurrent first contacts cannot
// create two accounts; the loser of that race gets the existing row and
// created = false, so it is never greeted as a new signup.
func (r *AccountRepositoryPG) GetOrCreate(ctx context.Context, telegramID int64, username, firstName string, signupGrant int) (*domain.Account, bool, error) {
	account, err := r.GetByTelegramID(ctx, telegramID)
	if err == nil {
		return account, false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, false, err
	}

	// DO NOTHING returns no row on conflict, which is the only reliable
	// signal that the insert did not create the account.
	query := `
INSERT INTO accounts (id, telegram_id, username, first_name, balance, model, image_quality, image_size)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (telegram_id) DO NOTHING
RETURNING ` + accountColumns + `;
`
	row := r.db.QueryRow(ctx, query,
		uuid.New(),
		telegramID,
		username,
		firstName,
		signupGrant,
		domain.DefaultModel,
		domain.DefaultImageQuality,
		domain.DefaultImageSize,
	)
	account, err = scanAccount(row)
	if err == nil {
		return account, true, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, false, err
	}

	account, err = r.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, false, err
	}
	return account, false, nil
}

// GetByID fetches an account by its identifier.
func (r *AccountRepositoryPG) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1;`
	return scanAccount(r.db.QueryRow(ctx, query, id))
}

// GetByTelegramID fetches an account by the owning Telegram user id.
func (r *AccountRepositoryPG) GetByTelegramID(ctx context.Context, telegramID int64) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE telegram_id = $1;`
	return scanAccount(r.db.QueryRow(ctx, query, telegramID))
}

// UpdateSettings applies a partial settings update and returns the fresh row.
func (r *AccountRepositoryPG) UpdateSettings(ctx context.Context, id uuid.UUID, settings domain.AccountSettings) (*domain.Account, error) {
	query := `
UPDATE accounts
SET model = COALESCE($2, model),
    image_quality = COALESCE($3, image_quality),
    image_size = COALESCE($4, image_size),
    updated_at = NOW()
WHERE id = $1
RETURNING ` + accountColumns + `;
`
	row := r.db.QueryRow(ctx, query, id, settings.Model, settings.ImageQuality, settings.ImageSize)
	return scanAccount(row)
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var account domain.Account
	if err := row.Scan(
		&account.ID,
		&account.TelegramID,
		&account.Username,
		&account.FirstName,
		&account.Balance,
		&account.Model,
		&account.ImageQuality,
		&account.ImageSize,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &account, nil
}
