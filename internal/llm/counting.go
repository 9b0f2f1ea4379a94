package llm

import (
	"context"
	"sync/atomic"

	"cvposts-backend/internal/shared/metrics"
	"cvposts-backend/internal/shared/telemetry"
)

// CountingClient wraps a Client and tallies calls for one request.
type CountingClient struct {
	inner  Client
	calls  atomic.Int64
	failed atomic.Int64
}

// NewCountingClient wraps inner.
func NewCountingClient(inner Client) *CountingClient {
	return &CountingClient{inner: inner}
}

func (c *CountingClient) Chat(ctx context.Context, req ChatRequest) (string, error) {
	c.calls.Add(1)
	out, err := c.inner.Chat(ctx, req)
	metrics.IncModelCall(err != nil)
	if err != nil {
		c.failed.Add(1)
		telemetry.Warn("llm.call_failed", map[string]any{
			"request_id": telemetry.RequestID(ctx),
			"purpose":    req.Purpose,
			"error":      err,
		})
	}
	return out, err
}

// Calls returns the number of Chat calls made so far.
func (c *CountingClient) Calls() int64 {
	return c.calls.Load()
}

// Failures returns the number of Chat calls that returned an error.
func (c *CountingClient) Failures() int64 {
	return c.failed.Load()
}
