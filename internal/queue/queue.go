// Package queue adapts the durable River job queue to the lifecycle. The
// queue guarantees at-least-once delivery with a bounded attempt count; the
// lifecycle's conditional transitions make the duplicates harmless.
package queue

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"

	"imagebot/internal/domain"
	"imagebot/internal/infra"
	"imagebot/internal/lifecycle"
)

// JobArgs carries the job identifier through the queue. All job state lives
// in the jobs table; the queue only transports the id.
type JobArgs struct {
	JobID uuid.UUID `json:"job_id"`
}

// Kind identifies the River job type.
func (JobArgs) Kind() string { return "generation_job" }

// Processor handles one queue delivery. Satisfied by lifecycle.JobLifecycle.
type Processor interface {
	Process(ctx context.Context, jobID uuid.UUID) (lifecycle.Outcome, error)
}

// Queue wraps a River client configured for generation jobs.
type Queue struct {
	client *river.Client[pgx.Tx]
	logger infra.Logger
}

// New creates a processing queue: enqueued jobs are delivered to the
// processor with at most domain.MaxRetries attempts, redelivered on the
// policy's schedule.
func New(pool *pgxpool.Pool, processor Processor, policy *RetryPolicy, maxWorkers int, logger infra.Logger) (*Queue, error) {
	workers := river.NewWorkers()
	river.AddWorker(workers, &jobWorker{processor: processor, logger: logger})

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: maxWorkers},
		},
		Workers:     workers,
		RetryPolicy: policy,
	})
	if err != nil {
		return nil, fmt.Errorf("queue: create client: %w", err)
	}
	return &Queue{client: client, logger: logger}, nil
}

// NewEnqueuer creates an insert-only queue handle for binaries that submit
// jobs but never process them.
func NewEnqueuer(pool *pgxpool.Pool, logger infra.Logger) (*Queue, error) {
	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{})
	if err != nil {
		return nil, fmt.Errorf("queue: create enqueuer: %w", err)
	}
	return &Queue{client: client, logger: logger}, nil
}

// EnqueueTx inserts a delivery for the job inside the caller's transaction.
// MaxAttempts matches domain.MaxRetries so the queue's external cap agrees
// with the lifecycle's retry accounting.
func (q *Queue) EnqueueTx(ctx context.Context, tx pgx.Tx, jobID uuid.UUID) error {
	_, err := q.client.InsertTx(ctx, tx, JobArgs{JobID: jobID}, &river.InsertOpts{
		MaxAttempts: domain.MaxRetries,
	})
	return err
}

// Start begins delivering jobs to the processor.
func (q *Queue) Start(ctx context.Context) error {
	return q.client.Start(ctx)
}

// Stop waits for in-flight jobs and shuts the queue down.
func (q *Queue) Stop(ctx context.Context) error {
	return q.client.Stop(ctx)
}

// jobWorker translates the lifecycle's typed outcome into the queue's
// redelivery contract: OutcomeRetry and any processing error surface to
// River, which schedules the next attempt via the retry policy. Benign
// conflicts and terminal outcomes come back error-free and complete the
// delivery so no further attempts happen.
type jobWorker struct {
	river.WorkerDefaults[JobArgs]
	processor Processor
	logger    infra.Logger
}

func (w *jobWorker) Work(ctx context.Context, job *river.Job[JobArgs]) error {
	outcome, err := w.processor.Process(ctx, job.Args.JobID)
	if err != nil {
		w.logger.Error().
			Err(err).
			Str("job_id", job.Args.JobID.String()).
			Int("attempt", job.Attempt).
			Msg("process delivery error")
		return fmt.Errorf("attempt %d: %w", job.Attempt, err)
	}

	if outcome.Kind == lifecycle.OutcomeRetry {
		return fmt.Errorf("attempt %d failed: %w", job.Attempt, outcome.Err)
	}
	return nil
}
