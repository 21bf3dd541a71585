// Package retry wraps external vendor calls in exponential backoff. Terminal
// failures (moderation, invalid input) pass straight through; transient ones
// are re-attempted with doubling waits until the attempt budget runs out, at
// which point the last error propagates unmodified.
package retry

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	retrylib "github.com/sethvargo/go-retry"

	"atelier/internal/domain"
)

// DefaultBase is the first backoff wait; subsequent waits double.
const DefaultBase = time.Second

// Do runs fn with up to maxRetries retries after the first attempt. Only
// error kinds the taxonomy marks retryable are re-attempted. Logs carry the
// request identifier and error message, never payloads.
func Do[T any](ctx context.Context, maxRetries uint64, base time.Duration, requestID string, logger zerolog.Logger, fn func(context.Context) (T, error)) (T, error) {
	if base <= 0 {
		base = DefaultBase
	}
	var result T
	backoff := retrylib.WithMaxRetries(maxRetries, retrylib.NewExponential(base))
	attempt := 0
	err := retrylib.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		value, err := fn(ctx)
		if err == nil {
			result = value
			return nil
		}
		kind := domain.KindOf(err)
		if !kind.Retryable() {
			logger.Warn().
				Str("request_id", requestID).
				Str("kind", string(kind)).
				Int("attempt", attempt).
				Msg("retry: terminal error, not retrying")
			return err
		}
		logger.Warn().
			Str("request_id", requestID).
			Str("kind", string(kind)).
			Int("attempt", attempt).
			Err(err).
			Msg("retry: transient error")
		return retrylib.RetryableError(err)
	})
	return result, err
}
