package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"atelier/internal/domain"
)

func TestDoReturnsFirstSuccess(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), 3, time.Millisecond, "req-1", zerolog.Nop(), func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", domain.NewError(domain.KindAPIError, "vendor hiccup", nil)
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok" {
		t.Fatalf("got %q", got)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestDoPropagatesFinalErrorUnmodified(t *testing.T) {
	final := domain.NewError(domain.KindRateLimit, "slow down", nil)
	calls := 0
	_, err := Do(context.Background(), 2, time.Millisecond, "req-2", zerolog.Nop(), func(ctx context.Context) (int, error) {
		calls++
		return 0, final
	})
	if calls != 3 {
		t.Fatalf("expected initial attempt plus 2 retries, got %d", calls)
	}
	if !errors.Is(err, final) {
		t.Fatalf("expected the final error unmodified, got %v", err)
	}
}

func TestDoDoesNotRetryTerminalKinds(t *testing.T) {
	for _, kind := range []domain.ErrorKind{domain.KindModerationRejected, domain.KindInvalidInput, domain.KindMissingImages} {
		calls := 0
		terminal := domain.NewError(kind, "terminal", nil)
		_, err := Do(context.Background(), 5, time.Millisecond, "req-3", zerolog.Nop(), func(ctx context.Context) (int, error) {
			calls++
			return 0, terminal
		})
		if calls != 1 {
			t.Fatalf("%s: expected a single attempt, got %d", kind, calls)
		}
		if !errors.Is(err, terminal) {
			t.Fatalf("%s: expected terminal error, got %v", kind, err)
		}
	}
}

func TestDoRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	_, err := Do(ctx, 5, 10*time.Millisecond, "req-4", zerolog.Nop(), func(ctx context.Context) (int, error) {
		calls++
		return 0, domain.NewError(domain.KindAPIError, "transient", nil)
	})
	if err == nil {
		t.Fatalf("expected error after cancellation")
	}
	if calls > 1 {
		t.Fatalf("expected no retries after cancellation, got %d attempts", calls)
	}
}
