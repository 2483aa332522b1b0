package middleware

import (
	"context"
	"time"
)

// Timeout returns middleware that enforces a per-step execution
// deadline. When the deadline is exceeded the context is cancelled and
// the handler should return context.DeadlineExceeded, which the engine
// surfaces as a retryable timeout.
func Timeout(d time.Duration) Middleware {
	return func(ctx context.Context, _ StepInfo, next Handler) error {
		if d > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d)
			defer cancel()
		}
		return next(ctx)
	}
}
