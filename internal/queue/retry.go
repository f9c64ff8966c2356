package queue

import (
	"time"

	"github.com/riverqueue/river/rivertype"
)

// DefaultSchedule is the per-retry backoff applied before a failed job is
// redelivered: retry k waits Schedule[k-1], clamped to the last entry.
var DefaultSchedule = []time.Duration{10 * time.Second, 30 * time.Second, 60 * time.Second}

// RetryPolicy encodes the backoff schedule. It decides only when a job that
// needs another attempt comes back; it holds no balance or status logic.
//
// It doubles as the River client retry policy, so the queue's own redelivery
// timing and the lifecycle's reported delays come from one place.
type RetryPolicy struct {
	schedule []time.Duration
}

// NewRetryPolicy builds a policy over the given schedule, falling back to
// DefaultSchedule when none is provided.
func NewRetryPolicy(schedule ...time.Duration) *RetryPolicy {
	if len(schedule) == 0 {
		schedule = DefaultSchedule
	}
	return &RetryPolicy{schedule: schedule}
}

// Delay returns the backoff before retry number retry (1-indexed). Retries
// beyond the schedule reuse its last entry.
func (p *RetryPolicy) Delay(retry int) time.Duration {
	if retry < 1 {
		retry = 1
	}
	if retry > len(p.schedule) {
		retry = len(p.schedule)
	}
	return p.schedule[retry-1]
}

// NextRetry implements river.ClientRetryPolicy. The attempt recorded on the
// job row is the one that just failed, so its number equals the retry being
// scheduled.
func (p *RetryPolicy) NextRetry(job *rivertype.JobRow) time.Time {
	return time.Now().Add(p.Delay(job.Attempt))
}
