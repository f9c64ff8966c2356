package repo

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"imagebot/internal/domain"
)

// StatsRepositoryPG implements domain.StatsRepository.
type StatsRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewStatsRepository creates a new stats repository backed by PostgreSQL.
func NewStatsRepository(pool *pgxpool.Pool) *StatsRepositoryPG {
	return &StatsRepositoryPG{pool: pool}
}

// TotalAccounts returns the number of registered accounts.
func (r *StatsRepositoryPG) TotalAccounts(ctx context.Context) (int64, error) {
	return r.countRow(ctx, `SELECT COUNT(*) FROM accounts;`)
}

// TotalJobs returns the number of jobs ever created.
func (r *StatsRepositoryPG) TotalJobs(ctx context.Context) (int64, error) {
	return r.countRow(ctx, `SELECT COUNT(*) FROM jobs;`)
}

// JobsByStatus returns job counts grouped by status.
func (r *StatsRepositoryPG) JobsByStatus(ctx context.Context) (map[domain.JobStatus]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM jobs GROUP BY status;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.JobStatus]int64)
	for rows.Next() {
		var status domain.JobStatus
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// TotalTokensSpent sums the cost of all jobs that kept their escrow, i.e.
// everything except refunded failures.
func (r *StatsRepositoryPG) TotalTokensSpent(ctx context.Context) (int64, error) {
	return r.countRow(ctx, `SELECT COALESCE(SUM(cost), 0) FROM jobs WHERE status <> 'failed';`)
}

func (r *StatsRepositoryPG) countRow(ctx context.Context, query string) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, query).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
