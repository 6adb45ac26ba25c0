package helper

import (
	"context"
	"errors"
	"log/slog"
)

// RetryWithContext calls fn up to maxTries times until it returns a nil error
// or ctx is done. If maxTries <= 0, it defaults to 1. Every failed attempt is
// logged at warn level when logger is set. Returns the last error.
func RetryWithContext[T any](ctx context.Context, maxTries int, logger *slog.Logger, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	if maxTries <= 0 {
		maxTries = 1
	}

	var lastErr error
	var zero T
	for i := 0; i < maxTries; i++ {
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		result, err := fn(ctx, i+1)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return zero, err
		}
		lastErr = err
		if logger != nil {
			logger.Warn("Attempt failed", slog.Int("attempt", i+1), slog.Int("max_tries", maxTries), slog.String("error", err.Error()))
		}
	}
	return zero, lastErr
}
