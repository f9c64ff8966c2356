// Package lifecycle owns the job state machine: submission with token
// escrow, processing with bounded retries, and the refund guarantee on
// terminal failure.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"imagebot/internal/domain"
	"imagebot/internal/infra"
	"imagebot/internal/pricing"
)

// Ledger is the balance boundary consumed by the lifecycle.
type Ledger interface {
	DebitTx(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, amount int) error
	CreditTx(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, amount int) error
}

// JobStore is the durable job record boundary consumed by the lifecycle.
type JobStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, job *domain.Job) error
	GetByID(ctx context.Context, jobID uuid.UUID) (*domain.Job, error)
	Transition(ctx context.Context, jobID uuid.UUID, expected, next domain.JobStatus, upd domain.JobUpdate) error
	TransitionTx(ctx context.Context, tx pgx.Tx, jobID uuid.UUID, expected, next domain.JobStatus, upd domain.JobUpdate) error
}

// AccountStore resolves job owners for notifications.
type AccountStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
}

// Enqueuer hands a persisted job to the background queue. Enqueueing happens
// inside the submission transaction so the queue can never see a job id whose
// row or escrow did not commit.
type Enqueuer interface {
	EnqueueTx(ctx context.Context, tx pgx.Tx, jobID uuid.UUID) error
}

// Limiter gates submission; it returns domain.RateLimitedError on denial.
type Limiter interface {
	Allow(ctx context.Context, accountID uuid.UUID) error
}

// Provider is the external generation backend. Any error it returns is
// treated as retryable; one failed call consumes one attempt.
type Provider interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Edit(ctx context.Context, sourceRef, prompt string) (string, error)
}

// Sink delivers terminal outcomes to the requester. Delivery is
// fire-and-forget: failures are logged and never affect job or ledger state.
type Sink interface {
	Success(ctx context.Context, account *domain.Account, resultRef, prompt string) error
	Failure(ctx context.Context, account *domain.Account, refunded int) error
}

// Scheduler translates a retry number (1-indexed) into a backoff delay.
type Scheduler interface {
	Delay(retry int) time.Duration
}

// TxBeginner starts the transactions that couple ledger and job mutations.
// *pgxpool.Pool satisfies it.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// SubmitRequest carries everything needed to create and enqueue a job.
type SubmitRequest struct {
	AccountID      uuid.UUID
	Kind           domain.JobKind
	Prompt         string
	Quality        string
	Size           string
	SourceRef      string
	CostMultiplier int
}

// JobLifecycle composes the ledger, the job store, the rate limiter, the
// queue, the provider and the notification sink into the state machine
// described by the job statuses. All collaborators are injected.
type JobLifecycle struct {
	db       TxBeginner
	ledger   Ledger
	jobs     JobStore
	accounts AccountStore
	queue    Enqueuer
	limiter  Limiter
	provider Provider
	sink     Sink
	sched    Scheduler
	logger   infra.Logger
}

// New wires a JobLifecycle from its collaborators.
func New(db TxBeginner, ledger Ledger, jobs JobStore, accounts AccountStore, queue Enqueuer, limiter Limiter, provider Provider, sink Sink, sched Scheduler, logger infra.Logger) *JobLifecycle {
	return &JobLifecycle{
		db:       db,
		ledger:   ledger,
		jobs:     jobs,
		accounts: accounts,
		queue:    queue,
		limiter:  limiter,
		provider: provider,
		sink:     sink,
		sched:    sched,
		logger:   logger,
	}
}

// Submit validates the request, escrows the cost and enqueues a pending job.
// The rate limit check runs first so a denied submission never reserves
// tokens; debit, job creation and enqueueing then commit as one transaction,
// so a crash mid-submission leaks neither escrow nor half-created jobs.
func (l *JobLifecycle) Submit(ctx context.Context, req SubmitRequest) (*domain.Job, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, domain.ErrInvalidPrompt
	}
	if req.Kind == domain.JobKindEdit && req.SourceRef == "" {
		return nil, fmt.Errorf("edit job requires a source image: %w", domain.ErrInvalidPrompt)
	}

	cost := pricing.EstimateWithMultiplier(req.Quality, req.Size, req.CostMultiplier)

	if err := l.limiter.Allow(ctx, req.AccountID); err != nil {
		return nil, err
	}

	job := &domain.Job{
		ID:        uuid.New(),
		AccountID: req.AccountID,
		Kind:      req.Kind,
		Prompt:    req.Prompt,
		SourceRef: req.SourceRef,
		Status:    domain.JobStatusPending,
		Cost:      cost,
	}

	tx, err := l.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin submit: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := l.ledger.DebitTx(ctx, tx, req.AccountID, cost); err != nil {
		return nil, err
	}
	if err := l.jobs.CreateTx(ctx, tx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	if err := l.queue.EnqueueTx(ctx, tx, job.ID); err != nil {
		return nil, fmt.Errorf("enqueue job: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit submit: %w", err)
	}

	l.logger.Info().
		Str("job_id", job.ID.String()).
		Str("kind", string(job.Kind)).
		Int("cost", cost).
		Msg("job submitted")
	return job, nil
}

// Process handles one queue delivery of a job. It is safe under duplicate
// delivery: the pending→processing transition admits at most one worker, and
// every other delivery returns OutcomeConflict without side effects.
func (l *JobLifecycle) Process(ctx context.Context, jobID uuid.UUID) (Outcome, error) {
	job, err := l.jobs.GetByID(ctx, jobID)
	if err != nil {
		return Outcome{Kind: OutcomeConflict}, fmt.Errorf("load job %s: %w", jobID, err)
	}

	if err := l.jobs.Transition(ctx, jobID, domain.JobStatusPending, domain.JobStatusProcessing, domain.JobUpdate{}); err != nil {
		if errors.Is(err, domain.ErrTransitionConflict) {
			l.logger.Debug().Str("job_id", jobID.String()).Msg("duplicate delivery ignored")
			return Outcome{Kind: OutcomeConflict}, nil
		}
		return Outcome{Kind: OutcomeConflict}, fmt.Errorf("claim job %s: %w", jobID, err)
	}

	// Reload after the claim. The pre-claim snapshot may predate a requeue by
	// another worker, and the retry arithmetic below must see that worker's
	// retry_count increment, not the stale value.
	job, err = l.jobs.GetByID(ctx, jobID)
	if err != nil {
		return Outcome{Kind: OutcomeConflict}, fmt.Errorf("reload job %s: %w", jobID, err)
	}

	resultRef, provErr := l.invokeProvider(ctx, job)
	if provErr == nil {
		return l.finishDone(ctx, job, resultRef)
	}
	return l.handleFailure(ctx, job, provErr)
}

func (l *JobLifecycle) invokeProvider(ctx context.Context, job *domain.Job) (string, error) {
	switch job.Kind {
	case domain.JobKindGenerate:
		return l.provider.Generate(ctx, job.Prompt)
	case domain.JobKindEdit:
		return l.provider.Edit(ctx, job.SourceRef, job.Prompt)
	default:
		return "", fmt.Errorf("unsupported job kind %q", job.Kind)
	}
}

func (l *JobLifecycle) finishDone(ctx context.Context, job *domain.Job, resultRef string) (Outcome, error) {
	upd := domain.JobUpdate{ResultRef: &resultRef}
	if err := l.jobs.Transition(ctx, job.ID, domain.JobStatusProcessing, domain.JobStatusDone, upd); err != nil {
		return Outcome{Kind: OutcomeConflict}, fmt.Errorf("finish job %s: %w", job.ID, err)
	}

	l.logger.Info().Str("job_id", job.ID.String()).Msg("job completed")
	l.notifySuccess(ctx, job, resultRef)
	return Outcome{Kind: OutcomeDone}, nil
}

func (l *JobLifecycle) handleFailure(ctx context.Context, job *domain.Job, provErr error) (Outcome, error) {
	attempt := job.RetryCount + 1
	lastErr := provErr.Error()
	upd := domain.JobUpdate{RetryCount: &attempt, LastError: &lastErr}

	if attempt < domain.MaxRetries {
		if err := l.jobs.Transition(ctx, job.ID, domain.JobStatusProcessing, domain.JobStatusPending, upd); err != nil {
			return Outcome{Kind: OutcomeConflict}, fmt.Errorf("requeue job %s: %w", job.ID, err)
		}
		delay := l.sched.Delay(attempt)
		l.logger.Warn().
			Str("job_id", job.ID.String()).
			Int("retry", attempt).
			Dur("delay", delay).
			Err(provErr).
			Msg("job attempt failed, retrying")
		return Outcome{Kind: OutcomeRetry, Delay: delay, Err: provErr}, nil
	}

	// Retries exhausted: the failed status and the refund commit together so
	// a crash in between cannot strand or double the escrow.
	tx, err := l.db.Begin(ctx)
	if err != nil {
		return Outcome{Kind: OutcomeConflict}, fmt.Errorf("begin finalize %s: %w", job.ID, err)
	}
	defer tx.Rollback(ctx)

	if err := l.jobs.TransitionTx(ctx, tx, job.ID, domain.JobStatusProcessing, domain.JobStatusFailed, upd); err != nil {
		return Outcome{Kind: OutcomeConflict}, fmt.Errorf("fail job %s: %w", job.ID, err)
	}
	if err := l.ledger.CreditTx(ctx, tx, job.AccountID, job.Cost); err != nil {
		return Outcome{Kind: OutcomeConflict}, fmt.Errorf("refund job %s: %w", job.ID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return Outcome{Kind: OutcomeConflict}, fmt.Errorf("commit finalize %s: %w", job.ID, err)
	}

	l.logger.Error().
		Str("job_id", job.ID.String()).
		Int("refunded", job.Cost).
		Err(provErr).
		Msg("job failed terminally, escrow refunded")
	l.notifyFailure(ctx, job)
	return Outcome{Kind: OutcomeFailed, Err: provErr}, nil
}

func (l *JobLifecycle) notifySuccess(ctx context.Context, job *domain.Job, resultRef string) {
	account, err := l.accounts.GetByID(ctx, job.AccountID)
	if err != nil {
		l.logger.Error().Err(err).Str("job_id", job.ID.String()).Msg("owner lookup for notification failed")
		return
	}
	if err := l.sink.Success(ctx, account, resultRef, job.Prompt); err != nil {
		l.logger.Error().Err(err).Str("job_id", job.ID.String()).Msg("success notification failed")
	}
}

func (l *JobLifecycle) notifyFailure(ctx context.Context, job *domain.Job) {
	account, err := l.accounts.GetByID(ctx, job.AccountID)
	if err != nil {
		l.logger.Error().Err(err).Str("job_id", job.ID.String()).Msg("owner lookup for notification failed")
		return
	}
	if err := l.sink.Failure(ctx, account, job.Cost); err != nil {
		l.logger.Error().Err(err).Str("job_id", job.ID.String()).Msg("failure notification failed")
	}
}
