package queue

import (
	"testing"
	"time"

	"github.com/riverqueue/river/rivertype"
)

func TestRetryPolicyDelay(t *testing.T) {
	policy := NewRetryPolicy()

	tests := []struct {
		name  string
		retry int
		want  time.Duration
	}{
		{name: "first retry", retry: 1, want: 10 * time.Second},
		{name: "second retry", retry: 2, want: 30 * time.Second},
		{name: "third retry", retry: 3, want: 60 * time.Second},
		{name: "beyond schedule clamps to last", retry: 7, want: 60 * time.Second},
		{name: "zero clamps to first", retry: 0, want: 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := policy.Delay(tt.retry); got != tt.want {
				t.Fatalf("Delay(%d) = %v, want %v", tt.retry, got, tt.want)
			}
		})
	}
}

func TestRetryPolicyShortSchedule(t *testing.T) {
	policy := NewRetryPolicy(5 * time.Second)
	if got := policy.Delay(3); got != 5*time.Second {
		t.Fatalf("Delay(3) = %v, want 5s", got)
	}
}

func TestRetryPolicyNextRetry(t *testing.T) {
	policy := NewRetryPolicy()
	before := time.Now()
	next := policy.NextRetry(&rivertype.JobRow{Attempt: 2})
	gap := next.Sub(before)
	if gap < 29*time.Second || gap > 31*time.Second {
		t.Fatalf("next retry after attempt 2 scheduled in %v, want ~30s", gap)
	}
}
