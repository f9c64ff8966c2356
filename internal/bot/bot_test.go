package bot

import (
	"errors"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"

	"imagebot/internal/domain"
)

func TestSubmitErrorText(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "insufficient balance names amounts",
			err:  &domain.InsufficientBalanceError{Required: 1056, Available: 300},
			want: "costs 1056, you have 300",
		},
		{
			name: "rate limit names the cap",
			err:  &domain.RateLimitedError{Limit: 20},
			want: "at most 20 jobs per hour",
		},
		{
			name: "invalid prompt falls back to usage",
			err:  domain.ErrInvalidPrompt,
			want: "Usage: /generate <prompt>",
		},
		{
			name: "unknown errors stay generic",
			err:  errors.New("connection reset"),
			want: "Something went wrong",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := submitErrorText(tt.err, "Usage: /generate <prompt>")
			if !strings.Contains(got, tt.want) {
				t.Fatalf("submitErrorText() = %q, want substring %q", got, tt.want)
			}
		})
	}
}

func TestSourceFileID(t *testing.T) {
	photos := []tgbotapi.PhotoSize{
		{FileID: "small", Width: 90},
		{FileID: "large", Width: 800},
	}

	direct := &tgbotapi.Message{Photo: &photos}
	if got := sourceFileID(direct); got != "large" {
		t.Fatalf("direct photo: got %q, want largest file id", got)
	}

	reply := &tgbotapi.Message{ReplyToMessage: &tgbotapi.Message{Photo: &photos}}
	if got := sourceFileID(reply); got != "large" {
		t.Fatalf("reply photo: got %q, want largest file id", got)
	}

	if got := sourceFileID(&tgbotapi.Message{}); got != "" {
		t.Fatalf("no photo: got %q, want empty", got)
	}
}

func TestFormatStats(t *testing.T) {
	got := formatStats(12, 40, map[domain.JobStatus]int64{
		domain.JobStatusDone:   30,
		domain.JobStatusFailed: 4,
	}, 31680)

	for _, want := range []string{"Accounts: 12", "Jobs: 40", "done: 30", "failed: 4", "Tokens spent: 31680"} {
		if !strings.Contains(got, want) {
			t.Fatalf("formatStats() = %q, missing %q", got, want)
		}
	}
	if strings.Contains(got, "pending") {
		t.Fatalf("formatStats() should omit absent statuses, got %q", got)
	}
}
