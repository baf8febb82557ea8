package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/schemaflow/types"
)

func testPolicy() *Policy {
	return &Policy{MaxAttempts: 3, BaseDelay: 5 * time.Millisecond, MaxDelay: time.Second}
}

func TestLinearRetryer_Do(t *testing.T) {
	t.Parallel()

	t.Run("first success needs no retry", func(t *testing.T) {
		t.Parallel()
		calls := 0
		err := NewLinearRetryer(testPolicy(), nil).Do(context.Background(), func() error {
			calls++
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("two retryable failures then success", func(t *testing.T) {
		t.Parallel()
		calls := 0
		err := NewLinearRetryer(testPolicy(), nil).Do(context.Background(), func() error {
			calls++
			if calls < 3 {
				return types.NewGenerationError("upstream hiccup")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("exhausted attempts return the last error unchanged", func(t *testing.T) {
		t.Parallel()
		calls := 0
		var last error
		err := NewLinearRetryer(testPolicy(), nil).Do(context.Background(), func() error {
			calls++
			last = types.NewGenerationError("still failing")
			return last
		})
		require.Error(t, err)
		assert.Equal(t, 3, calls)
		assert.Same(t, last, err)
	})

	t.Run("non-retryable error aborts immediately", func(t *testing.T) {
		t.Parallel()
		calls := 0
		boom := types.NewCompileError("bad schema")
		err := NewLinearRetryer(testPolicy(), nil).Do(context.Background(), func() error {
			calls++
			return boom
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
		assert.Same(t, boom, err)
	})

	t.Run("plain errors are not retryable", func(t *testing.T) {
		t.Parallel()
		calls := 0
		err := NewLinearRetryer(testPolicy(), nil).Do(context.Background(), func() error {
			calls++
			return errors.New("anonymous failure")
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("cancellation during the wait stops the loop", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		policy := &Policy{MaxAttempts: 3, BaseDelay: time.Minute, MaxDelay: time.Hour}
		errCh := make(chan error, 1)
		go func() {
			errCh <- NewLinearRetryer(policy, nil).Do(ctx, func() error {
				calls++
				return types.NewGenerationError("always failing")
			})
		}()
		time.Sleep(20 * time.Millisecond)
		cancel()

		err := <-errCh
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})
}

func TestLinearRetryer_DelayGrowsLinearly(t *testing.T) {
	t.Parallel()

	var delays []time.Duration
	policy := &Policy{
		MaxAttempts: 3,
		BaseDelay:   10 * time.Millisecond,
		MaxDelay:    time.Second,
		OnRetry: func(_ int, _ error, delay time.Duration) {
			delays = append(delays, delay)
		},
	}
	err := NewLinearRetryer(policy, nil).Do(context.Background(), func() error {
		return types.NewGenerationError("flaky")
	})
	require.Error(t, err)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, delays)
}

func TestLinearRetryer_DelayCap(t *testing.T) {
	t.Parallel()

	var delays []time.Duration
	policy := &Policy{
		MaxAttempts: 4,
		BaseDelay:   10 * time.Millisecond,
		MaxDelay:    15 * time.Millisecond,
		OnRetry: func(_ int, _ error, delay time.Duration) {
			delays = append(delays, delay)
		},
	}
	err := NewLinearRetryer(policy, nil).Do(context.Background(), func() error {
		return types.NewGenerationError("flaky")
	})
	require.Error(t, err)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 15 * time.Millisecond, 15 * time.Millisecond}, delays)
}

func TestDoWithResultTyped(t *testing.T) {
	t.Parallel()

	t.Run("returns the typed result", func(t *testing.T) {
		t.Parallel()
		r := NewLinearRetryer(testPolicy(), nil)
		calls := 0
		got, err := DoWithResultTyped[string](r, context.Background(), func() (string, error) {
			calls++
			if calls < 2 {
				return "", types.NewGenerationError("once more")
			}
			return "done", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "done", got)
	})

	t.Run("returns the zero value on failure", func(t *testing.T) {
		t.Parallel()
		r := NewLinearRetryer(testPolicy(), nil)
		got, err := DoWithResultTyped[int](r, context.Background(), func() (int, error) {
			return 7, types.NewCompileError("never")
		})
		require.Error(t, err)
		assert.Zero(t, got)
	})
}

func TestNewLinearRetryer_Defaults(t *testing.T) {
	t.Parallel()

	r := NewLinearRetryer(nil, nil).(*linearRetryer)
	assert.Equal(t, 3, r.policy.MaxAttempts)
	assert.Equal(t, 200*time.Millisecond, r.policy.BaseDelay)
}
