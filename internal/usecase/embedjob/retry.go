package embedjob

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// retryWithBackoff runs op up to maxAttempts times with exponential
// backoff starting at baseDelay. The context cancels both the waits and
// further attempts; the last attempt's error comes back when all fail.
func retryWithBackoff(ctx context.Context, op func() error, maxAttempts int, baseDelay time.Duration, log *zap.Logger) error {
	var lastErr error
	delay := baseDelay

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op()
		if lastErr == nil {
			if attempt > 1 {
				log.Debug("operation succeeded after retry", zap.Int("attempt", attempt))
			}
			return nil
		}
		if attempt == maxAttempts {
			break
		}

		log.Debug("operation failed, backing off",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(lastErr),
		)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}
	return lastErr
}
