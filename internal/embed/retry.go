package embed

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	maxRetries     = 3
	baseRetryDelay = 1 * time.Second
)

// rateLimitPatterns match upstream rate-limit responses. Only these
// are retried; other failures surface immediately.
var rateLimitPatterns = []string{
	"rate limit",
	"quota",
	"resource exhausted",
	"429",
	"too many requests",
}

func isRateLimited(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, p := range rateLimitPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// withRetry runs fn with exponential backoff on rate-limit errors.
// Delays double from baseRetryDelay. Context cancellation interrupts
// the backoff sleep.
func withRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	delay := baseRetryDelay

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !isRateLimited(lastErr) {
			return lastErr
		}
	}

	return fmt.Errorf("%w: %v", ErrRateLimited, lastErr)
}
