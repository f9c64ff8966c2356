package notify

import (
	"strings"
	"testing"
)

func TestSuccessCaptionTruncatesLongPrompts(t *testing.T) {
	long := strings.Repeat("a", 300)
	got := SuccessCaption(long)
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("expected truncated caption to end with ellipsis, got %q", got)
	}
	if strings.Contains(got, strings.Repeat("a", 201)) {
		t.Fatalf("prompt not truncated to limit: %q", got)
	}

	short := SuccessCaption("a red fox")
	if !strings.Contains(short, "a red fox") || strings.HasSuffix(short, "...") {
		t.Fatalf("short prompt should pass through unchanged, got %q", short)
	}
}

func TestFailureTextNamesRefund(t *testing.T) {
	got := FailureText(272)
	if !strings.Contains(got, "272 tokens") {
		t.Fatalf("failure text should include refunded amount, got %q", got)
	}
}
