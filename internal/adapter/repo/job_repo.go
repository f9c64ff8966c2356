package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"imagebot/internal/domain"
)

// JobRepositoryPG implements domain.JobRepository.
type JobRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewJobRepository creates a new job repository backed by PostgreSQL.
func NewJobRepository(pool *pgxpool.Pool) *JobRepositoryPG {
	return &JobRepositoryPG{pool: pool}
}

const jobColumns = `id, account_id, kind, prompt, source_ref, result_ref, status, cost, retry_count, last_error, created_at, updated_at`

// Create inserts a new job record.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.Job) error {
	return r.create(ctx, r.pool, job)
}

// CreateTx inserts a new job record inside a caller-owned transaction, so the
// job row becomes visible together with the escrow debit.
func (r *JobRepositoryPG) CreateTx(ctx context.Context, tx pgx.Tx, job *domain.Job) error {
	return r.create(ctx, tx, job)
}

func (r *JobRepositoryPG) create(ctx context.Context, db DBTX, job *domain.Job) error {
	query := `
INSERT INTO jobs (id, account_id, kind, prompt, source_ref, result_ref, status, cost, retry_count, last_error)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING created_at, updated_at;
`
	row := db.QueryRow(ctx, query,
		job.ID,
		job.AccountID,
		job.Kind,
		job.Prompt,
		job.SourceRef,
		job.ResultRef,
		job.Status,
		job.Cost,
		job.RetryCount,
		job.LastError,
	)
	return row.Scan(&job.CreatedAt, &job.UpdatedAt)
}

// GetByID fetches a job by its identifier.
func (r *JobRepositoryPG) GetByID(ctx context.Context, jobID uuid.UUID) (*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1;`
	return scanJob(r.pool.QueryRow(ctx, query, jobID))
}

// Transition performs a conditional status update. The WHERE clause on the
// current status makes the update a no-op when another worker already moved
// the job, which is how duplicate queue deliveries are serialized.
func (r *JobRepositoryPG) Transition(ctx context.Context, jobID uuid.UUID, expected, next domain.JobStatus, upd domain.JobUpdate) error {
	return r.transition(ctx, r.pool, jobID, expected, next, upd)
}

// TransitionTx is Transition inside a caller-owned transaction. The terminal
// failure path uses it to commit the status change and the refund atomically.
func (r *JobRepositoryPG) TransitionTx(ctx context.Context, tx pgx.Tx, jobID uuid.UUID, expected, next domain.JobStatus, upd domain.JobUpdate) error {
	return r.transition(ctx, tx, jobID, expected, next, upd)
}

func (r *JobRepositoryPG) transition(ctx context.Context, db DBTX, jobID uuid.UUID, expected, next domain.JobStatus, upd domain.JobUpdate) error {
	query := `
UPDATE jobs
SET status = $3,
    retry_count = COALESCE($4, retry_count),
    last_error = COALESCE($5, last_error),
    result_ref = COALESCE($6, result_ref),
    updated_at = NOW()
WHERE id = $1 AND status = $2;
`
	tag, err := db.Exec(ctx, query, jobID, expected, next, upd.RetryCount, upd.LastError, upd.ResultRef)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTransitionConflict
	}
	return nil
}

// ListRecent returns the account's latest jobs, newest first.
func (r *JobRepositoryPG) ListRecent(ctx context.Context, accountID uuid.UUID, limit int) ([]domain.Job, error) {
	query := `
SELECT ` + jobColumns + `
FROM jobs
WHERE account_id = $1
ORDER BY created_at DESC
LIMIT $2;
`
	rows, err := r.pool.Query(ctx, query, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// CountCreatedSince counts the account's jobs created at or after the given
// instant. The submission rate limiter is built on this query.
func (r *JobRepositoryPG) CountCreatedSince(ctx context.Context, accountID uuid.UUID, since time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM jobs WHERE account_id = $1 AND created_at >= $2;`
	var count int
	if err := r.pool.QueryRow(ctx, query, accountID, since).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func scanJob(row pgx.Row) (*domain.Job, error) {
	var job domain.Job
	if err := row.Scan(
		&job.ID,
		&job.AccountID,
		&job.Kind,
		&job.Prompt,
		&job.SourceRef,
		&job.ResultRef,
		&job.Status,
		&job.Cost,
		&job.RetryCount,
		&job.LastError,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &job, nil
}
