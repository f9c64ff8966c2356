package domain

import (
	"time"

	"github.com/google/uuid"
)

// JobKind enumerates supported generation job categories.
type JobKind string

const (
	JobKindGenerate JobKind = "generate"
	JobKindEdit     JobKind = "edit"
)

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusDone       JobStatus = "done"
	JobStatusFailed     JobStatus = "failed"
)

// MaxRetries bounds how many delivery attempts a job may consume before it
// is finalized as failed and refunded.
const MaxRetries = 3

// Job is the durable record of a single generation request. Cost is fixed at
// creation time and equals the amount already escrowed from the owner's
// balance; it is never recomputed. Status transitions are owned exclusively
// by the lifecycle and jobs are never deleted.
type Job struct {
	ID         uuid.UUID
	AccountID  uuid.UUID
	Kind       JobKind
	Prompt     string
	SourceRef  string
	ResultRef  string
	Status     JobStatus
	Cost       int
	RetryCount int
	LastError  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Terminal reports whether the job has reached a state with no further
// transitions.
func (j *Job) Terminal() bool {
	return j.Status == JobStatusDone || j.Status == JobStatusFailed
}

// JobUpdate carries the optional fields a status transition may set. Nil
// fields are left untouched by the store.
type JobUpdate struct {
	RetryCount *int
	LastError  *string
	ResultRef  *string
}
