package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/louisbranch/council.space/internal/services/council/provider"
)

func fastPolicy() Policy {
	return Policy{
		MaxRetries:   2,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
		Timeout:      time.Second,
	}
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), fastPolicy(), func(ctx context.Context) (string, error) {
		calls++
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if got != "ok" {
		t.Fatalf("Do() = %q, want %q", got, "ok")
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestDoRetriesTransientFailures(t *testing.T) {
	transient := &provider.Error{Provider: provider.OpenAI, Kind: provider.KindUpstream, Status: 502, Message: "bad gateway"}

	calls := 0
	got, err := Do(context.Background(), fastPolicy(), func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", transient
		}
		return "recovered", nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if got != "recovered" {
		t.Fatalf("Do() = %q, want %q", got, "recovered")
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestDoStopsAfterMaxRetries(t *testing.T) {
	transient := &provider.Error{Provider: provider.Gemini, Kind: provider.KindUpstream, Status: 500, Message: "boom"}

	calls := 0
	_, err := Do(context.Background(), fastPolicy(), func(ctx context.Context) (string, error) {
		calls++
		return "", transient
	})
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
	var provErr *provider.Error
	if !errors.As(err, &provErr) {
		t.Fatalf("Do() error = %v, want *provider.Error", err)
	}
	if !provErr.Retryable() {
		t.Fatal("exhausted error lost its retryable classification")
	}
}

func TestDoDoesNotRetryClientErrors(t *testing.T) {
	tests := []struct {
		name string
		kind provider.ErrorKind
	}{
		{"auth", provider.KindAuth},
		{"rate limit", provider.KindRateLimit},
		{"invalid request", provider.KindInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			permanent := &provider.Error{Provider: provider.Anthropic, Kind: tt.kind, Status: 400, Message: "nope"}

			calls := 0
			_, err := Do(context.Background(), fastPolicy(), func(ctx context.Context) (string, error) {
				calls++
				return "", permanent
			})
			if calls != 1 {
				t.Fatalf("calls = %d, want 1", calls)
			}
			var provErr *provider.Error
			if !errors.As(err, &provErr) || provErr.Kind != tt.kind {
				t.Fatalf("Do() error = %v, want kind %q", err, tt.kind)
			}
		})
	}
}

func TestDoHonorsContextCancellation(t *testing.T) {
	transient := &provider.Error{Provider: provider.OpenAI, Kind: provider.KindTimeout, Message: "slow"}

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Do(ctx, fastPolicy(), func(ctx context.Context) (string, error) {
		calls++
		cancel()
		return "", transient
	})
	if err == nil {
		t.Fatal("Do() error = nil, want cancellation")
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"upstream provider error", &provider.Error{Kind: provider.KindUpstream}, true},
		{"timeout provider error", &provider.Error{Kind: provider.KindTimeout}, true},
		{"rate limit provider error", &provider.Error{Kind: provider.KindRateLimit}, false},
		{"auth provider error", &provider.Error{Kind: provider.KindAuth}, false},
		{"wrapped provider error", errors.Join(errors.New("outer"), &provider.Error{Kind: provider.KindUpstream}), true},
		{"context deadline", context.DeadlineExceeded, true},
		{"plain error", errors.New("plain"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Retryable(tt.err); got != tt.want {
				t.Fatalf("Retryable() = %v, want %v", got, tt.want)
			}
		})
	}
}
