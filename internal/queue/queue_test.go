package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/rs/zerolog"

	"imagebot/internal/lifecycle"
)

type stubProcessor struct {
	outcome lifecycle.Outcome
	err     error
	calls   int
}

func (s *stubProcessor) Process(context.Context, uuid.UUID) (lifecycle.Outcome, error) {
	s.calls++
	return s.outcome, s.err
}

func delivery(attempt int) *river.Job[JobArgs] {
	return &river.Job[JobArgs]{
		JobRow: &rivertype.JobRow{Attempt: attempt},
		Args:   JobArgs{JobID: uuid.New()},
	}
}

func TestWorkRetryOutcomeTriggersRedelivery(t *testing.T) {
	provErr := errors.New("provider timeout")
	proc := &stubProcessor{outcome: lifecycle.Outcome{Kind: lifecycle.OutcomeRetry, Err: provErr}}
	w := &jobWorker{processor: proc, logger: zerolog.Nop()}

	err := w.Work(context.Background(), delivery(1))
	if err == nil {
		t.Fatalf("retry outcome must surface an error so the queue redelivers")
	}
	if !errors.Is(err, provErr) {
		t.Fatalf("error should wrap the provider failure, got %v", err)
	}
}

func TestWorkTerminalOutcomesCompleteDelivery(t *testing.T) {
	tests := []struct {
		name    string
		outcome lifecycle.Outcome
	}{
		{name: "done", outcome: lifecycle.Outcome{Kind: lifecycle.OutcomeDone}},
		{name: "failed", outcome: lifecycle.Outcome{Kind: lifecycle.OutcomeFailed, Err: errors.New("boom")}},
		{name: "conflict", outcome: lifecycle.Outcome{Kind: lifecycle.OutcomeConflict}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proc := &stubProcessor{outcome: tt.outcome}
			w := &jobWorker{processor: proc, logger: zerolog.Nop()}

			if err := w.Work(context.Background(), delivery(1)); err != nil {
				t.Fatalf("outcome %q must complete the delivery, got error %v", tt.outcome.Kind, err)
			}
			if proc.calls != 1 {
				t.Fatalf("processor called %d times, want 1", proc.calls)
			}
		})
	}
}

func TestWorkProcessingErrorTriggersRedelivery(t *testing.T) {
	// A transient store failure must not complete the delivery, or the job
	// would be stranded in pending/processing with no attempts left.
	procErr := errors.New("load job: connection reset")
	proc := &stubProcessor{outcome: lifecycle.Outcome{Kind: lifecycle.OutcomeConflict}, err: procErr}
	w := &jobWorker{processor: proc, logger: zerolog.Nop()}

	err := w.Work(context.Background(), delivery(1))
	if err == nil {
		t.Fatalf("processing error must surface so the queue redelivers")
	}
	if !errors.Is(err, procErr) {
		t.Fatalf("error should wrap the processing failure, got %v", err)
	}
}
