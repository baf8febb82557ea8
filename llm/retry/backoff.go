package retry

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/schemaflow/types"
)

// Policy configures the linear retry loop used around generation calls.
type Policy struct {
	// MaxAttempts is the total attempt count including the first call.
	MaxAttempts int

	// BaseDelay is the wait after the first failure; each further
	// failure waits one BaseDelay more than the previous one.
	BaseDelay time.Duration

	// MaxDelay caps the per-wait delay.
	MaxDelay time.Duration

	// OnRetry is called before each re-attempt.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultPolicy returns the standard generation retry policy.
func DefaultPolicy() *Policy {
	return &Policy{
		MaxAttempts: 3,
		BaseDelay:   200 * time.Millisecond,
		MaxDelay:    5 * time.Second,
	}
}

// Retryer re-runs an operation on retryable failure.
type Retryer interface {
	// Do executes fn, retrying per the policy.
	Do(ctx context.Context, fn func() error) error

	// DoWithResult executes fn and returns its result, retrying per the
	// policy.
	DoWithResult(ctx context.Context, fn func() (any, error)) (any, error)
}

type linearRetryer struct {
	policy *Policy
	logger *zap.Logger
}

// NewLinearRetryer creates a retryer whose waits grow linearly with the
// number of failures so far. Only errors marked retryable are retried;
// everything else returns immediately.
func NewLinearRetryer(policy *Policy, logger *zap.Logger) Retryer {
	if policy == nil {
		policy = DefaultPolicy()
	}
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = 200 * time.Millisecond
	}
	if policy.MaxDelay <= 0 {
		policy.MaxDelay = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &linearRetryer{policy: policy, logger: logger}
}

func (r *linearRetryer) Do(ctx context.Context, fn func() error) error {
	_, err := r.DoWithResult(ctx, func() (any, error) {
		return nil, fn()
	})
	return err
}

func (r *linearRetryer) DoWithResult(ctx context.Context, fn func() (any, error)) (any, error) {
	var lastErr error

	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := r.delay(attempt - 1)

			r.logger.Debug("retrying",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", r.policy.MaxAttempts),
				zap.Duration("delay", delay),
				zap.Error(lastErr),
			)
			if r.policy.OnRetry != nil {
				r.policy.OnRetry(attempt, lastErr, delay)
			}

			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("retry cancelled: %w", ctx.Err())
			case <-time.After(delay):
			}
		}

		result, err := fn()
		if err == nil {
			if attempt > 1 {
				r.logger.Info("retry succeeded", zap.Int("attempt", attempt))
			}
			return result, nil
		}
		lastErr = err

		if !types.IsRetryable(err) {
			return nil, err
		}
	}

	r.logger.Warn("attempts exhausted",
		zap.Int("attempts", r.policy.MaxAttempts),
		zap.Error(lastErr),
	)
	// Callers inspect the terminal error, so it is returned as-is.
	return nil, lastErr
}

// delay returns the wait after the given number of failures.
func (r *linearRetryer) delay(failures int) time.Duration {
	delay := r.policy.BaseDelay * time.Duration(failures)
	if delay > r.policy.MaxDelay {
		delay = r.policy.MaxDelay
	}
	return delay
}
