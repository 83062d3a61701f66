package llm

import (
	"context"
	"time"

	"github.com/carelane/clinic-concierge/pkg/logging"
)

// RetryPolicy describes how completion calls are retried. The policy lives
// here so callers (the conversation engine in particular) never carry their
// own backoff loops.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64

	// AttemptTimeout bounds each individual attempt. Zero means the caller's
	// context is the only deadline.
	AttemptTimeout time.Duration
}

// DefaultRetryPolicy retries once after a short delay.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 2, BaseDelay: 250 * time.Millisecond, Multiplier: 2.0}
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 250 * time.Millisecond
	}
	if p.Multiplier < 1 {
		p.Multiplier = 1
	}
	return p
}

// RetryingClient wraps a Client with a RetryPolicy.
type RetryingClient struct {
	inner  Client
	policy RetryPolicy
	logger *logging.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewRetryingClient(inner Client, policy RetryPolicy, logger *logging.Logger) *RetryingClient {
	if inner == nil {
		panic("llm: inner client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &RetryingClient{
		inner:  inner,
		policy: policy.normalized(),
		logger: logger,
		sleep:  sleepContext,
	}
}

// Complete retries the wrapped client with exponential backoff. Context
// cancellation aborts the wait between attempts.
func (c *RetryingClient) Complete(ctx context.Context, req Request) (Response, error) {
	delay := c.policy.BaseDelay
	var lastErr error
	for attempt := 1; attempt <= c.policy.MaxAttempts; attempt++ {
		resp, err := c.completeOnce(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if attempt == c.policy.MaxAttempts {
			break
		}
		c.logger.Warn("LLM attempt failed, retrying",
			"attempt", attempt,
			"max_attempts", c.policy.MaxAttempts,
			"delay_ms", delay.Milliseconds(),
			"error", err.Error(),
		)
		if err := c.sleep(ctx, delay); err != nil {
			return Response{}, err
		}
		delay = time.Duration(float64(delay) * c.policy.Multiplier)
	}
	return Response{}, lastErr
}

func (c *RetryingClient) completeOnce(ctx context.Context, req Request) (Response, error) {
	if c.policy.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.policy.AttemptTimeout)
		defer cancel()
	}
	return c.inner.Complete(ctx, req)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
