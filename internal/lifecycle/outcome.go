package lifecycle

import "time"

// OutcomeKind classifies what Process did with a job delivery.
type OutcomeKind string

const (
	// OutcomeDone means the provider succeeded and the job is terminal done.
	OutcomeDone OutcomeKind = "done"
	// OutcomeRetry means the attempt failed and the job was returned to
	// pending for a delayed redelivery.
	OutcomeRetry OutcomeKind = "retry"
	// OutcomeFailed means retries are exhausted: the job is terminal failed
	// and the escrow has been refunded.
	OutcomeFailed OutcomeKind = "failed"
	// OutcomeConflict means another delivery already holds or finished the
	// job; this invocation had no side effects.
	OutcomeConflict OutcomeKind = "conflict"
)

// Outcome is the explicit result of a single Process invocation. The queue
// adapter interprets it instead of relying on error propagation to drive
// redelivery.
type Outcome struct {
	Kind OutcomeKind
	// Delay is the backoff before the next attempt; set only for OutcomeRetry.
	Delay time.Duration
	// Err records the provider failure behind a retry or terminal failure.
	Err error
}
