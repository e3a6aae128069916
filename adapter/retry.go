package adapter

import (
	"context"
	"fmt"
	"time"
)

// DefaultBackoff is the delay before the first retry. Each later retry
// doubles it.
const DefaultBackoff = 200 * time.Millisecond

// RetryConfig controls Retry.
type RetryConfig struct {
	// Name prefixes every returned error, e.g. "webhook".
	Name string
	// Retries is the number of attempts after the first.
	Retries int
	// Backoff is the first retry delay. Zero uses DefaultBackoff.
	Backoff time.Duration
	// Permanent reports errors that must not be retried. Nil retries everything.
	Permanent func(error) bool
}

// Retry calls attempt until it succeeds, fails permanently, the retries are
// used up or ctx is done.
func Retry(ctx context.Context, cfg RetryConfig, attempt func(ctx context.Context) error) error {
	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = DefaultBackoff
	}
	// attempts = 1 initial + retries
	attempts := 1 + max(cfg.Retries, 0)

	var lastErr error
	for i := range attempts {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: context canceled: %w", cfg.Name, err)
		}

		if i > 0 {
			delay := time.Duration(1<<uint(i-1)) * backoff
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("%s: context canceled during backoff: %w", cfg.Name, ctx.Err())
			case <-timer.C:
			}
		}

		lastErr = attempt(ctx)
		if lastErr == nil {
			return nil
		}
		if cfg.Permanent != nil && cfg.Permanent(lastErr) {
			return fmt.Errorf("%s: non-retriable error: %w", cfg.Name, lastErr)
		}
	}

	return fmt.Errorf("%s: failed after %d attempts: %w", cfg.Name, attempts, lastErr)
}
