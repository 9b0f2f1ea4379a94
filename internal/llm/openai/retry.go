package openai

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"strings"
	"time"

	"cvposts-backend/internal/llm"
	"cvposts-backend/internal/shared/telemetry"
)

const maxRetryDelay = 20 * time.Second

// withRetry runs fn, retrying transient failures up to maxRetries times with
// exponential backoff and jitter.
func (c *Client) withRetry(ctx context.Context, purpose string, fn func() error) error {
	err := fn()
	for attempt := 1; err != nil && attempt <= c.maxRetries && shouldRetry(ctx, err); attempt++ {
		delay := c.backoffDelay(attempt, err)
		telemetry.Warn("llm.retry", map[string]any{
			"request_id":  telemetry.RequestID(ctx),
			"purpose":     purpose,
			"attempt":     attempt,
			"max_retries": c.maxRetries,
			"delay_ms":    delay.Milliseconds(),
			"error":       err,
		})

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-timer.C:
		}
		err = fn()
	}
	return err
}

// backoffDelay doubles the base delay per attempt with ±30% jitter. A
// Retry-After hint from the provider takes precedence.
func (c *Client) backoffDelay(attempt int, err error) time.Duration {
	var pe *llm.ProviderError
	if errors.As(err, &pe) && pe.RetryAfter > 0 {
		if pe.RetryAfter > maxRetryDelay {
			return maxRetryDelay
		}
		return pe.RetryAfter
	}

	delay := c.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
	}
	jitter := float64(delay) * 0.3
	delay = time.Duration(float64(delay) + (rand.Float64()*2-1)*jitter)
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	return delay
}

// shouldRetry treats network errors, timeouts, 429 and 5xx as transient.
// Other 4xx responses and caller cancellation are final.
func shouldRetry(ctx context.Context, err error) bool {
	if err == nil || ctx.Err() != nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var pe *llm.ProviderError
	if errors.As(err, &pe) {
		return pe.StatusCode == 429 || pe.StatusCode >= 500
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "eof") {
		return true
	}
	return false
}
