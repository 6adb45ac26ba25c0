package generation

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter blocks until the next provider call may start.
type Limiter interface {
	Wait(ctx context.Context) error
}

// MinIntervalLimiter enforces a minimum spacing between calls.
// The first call passes immediately.
type MinIntervalLimiter struct {
	interval time.Duration
	limiter  *rate.Limiter
}

// NewMinIntervalLimiter returns a limiter spacing calls by interval.
// A non-positive interval disables limiting.
func NewMinIntervalLimiter(interval time.Duration) Limiter {
	if interval <= 0 {
		return NoopLimiter{}
	}
	return &MinIntervalLimiter{
		interval: interval,
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
	}
}

// Wait blocks until the interval since the previous call has passed or ctx is done.
func (l *MinIntervalLimiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// Interval returns the configured spacing.
func (l *MinIntervalLimiter) Interval() time.Duration {
	return l.interval
}

// NoopLimiter never blocks.
type NoopLimiter struct{}

// Wait returns ctx.Err().
func (NoopLimiter) Wait(ctx context.Context) error {
	return ctx.Err()
}
