package indexer

import (
	"context"
	"fmt"
	"time"
)

// maxRetryDelay bounds the backoff so a long capture run probes a flaky RPC
// endpoint at least every half minute.
const maxRetryDelay = 30 * time.Second

// withRetry runs fn until it succeeds or the retry allowance is spent,
// doubling the delay between attempts.
func withRetry(ctx context.Context, maxRetries int, baseDelay time.Duration, fn func(context.Context) error) error {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}

	delay := baseDelay
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= maxRetries {
			return fmt.Errorf("giving up after %d attempts: %w", attempt+1, err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		if delay *= 2; delay > maxRetryDelay {
			delay = maxRetryDelay
		}
	}
}
