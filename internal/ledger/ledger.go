// Package ledger owns all token balance mutations. Every debited token is
// either escrowed by a live job, spent on a completed one, or refunded; no
// other code path may touch the balance column.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"imagebot/internal/domain"
)

// Ledger provides atomic debit and credit over account balances.
type Ledger struct {
	pool *pgxpool.Pool
}

// New creates a ledger backed by PostgreSQL.
func New(pool *pgxpool.Pool) *Ledger {
	return &Ledger{pool: pool}
}

// Debit atomically checks and decrements the balance in its own transaction.
// It returns domain.InsufficientBalanceError without mutating anything when
// the balance does not cover the amount.
func (l *Ledger) Debit(ctx context.Context, accountID uuid.UUID, amount int) error {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin debit: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := l.DebitTx(ctx, tx, accountID, amount); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// DebitTx is Debit inside a caller-owned transaction. The row lock taken here
// serializes concurrent debits and credits against the same account, so two
// simultaneous submissions cannot both pass a balance that covers only one.
func (l *Ledger) DebitTx(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, amount int) error {
	if amount <= 0 {
		return domain.ErrInvalidAmount
	}

	var balance int
	err := tx.QueryRow(ctx, `SELECT balance FROM accounts WHERE id = $1 FOR UPDATE;`, accountID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("lock account: %w", err)
	}

	if balance < amount {
		return &domain.InsufficientBalanceError{Required: amount, Available: balance}
	}

	_, err = tx.Exec(ctx, `UPDATE accounts SET balance = balance - $2, updated_at = NOW() WHERE id = $1;`, accountID, amount)
	if err != nil {
		return fmt.Errorf("debit account: %w", err)
	}
	return nil
}

// Credit atomically increments the balance. Accounts are never deleted while
// jobs reference them, so a credit for an existing account always succeeds.
func (l *Ledger) Credit(ctx context.Context, accountID uuid.UUID, amount int) error {
	return credit(ctx, l.pool, accountID, amount)
}

// CreditTx is Credit inside a caller-owned transaction. The terminal failure
// path uses it so the refund commits together with the failed status.
func (l *Ledger) CreditTx(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, amount int) error {
	return credit(ctx, tx, accountID, amount)
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func credit(ctx context.Context, db execer, accountID uuid.UUID, amount int) error {
	if amount <= 0 {
		return domain.ErrInvalidAmount
	}

	tag, err := db.Exec(ctx, `UPDATE accounts SET balance = balance + $2, updated_at = NOW() WHERE id = $1;`, accountID, amount)
	if err != nil {
		return fmt.Errorf("credit account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
