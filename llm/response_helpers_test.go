package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirstChoice(t *testing.T) {
	t.Parallel()

	t.Run("returns the first of several choices", func(t *testing.T) {
		t.Parallel()
		resp := &ChatResponse{Choices: []ChatChoice{
			{Index: 0, Message: Message{Content: "first"}},
			{Index: 1, Message: Message{Content: "second"}},
		}}
		choice, err := FirstChoice(resp)
		require.NoError(t, err)
		assert.Equal(t, "first", choice.Message.Content)
	})

	t.Run("nil response is an error", func(t *testing.T) {
		t.Parallel()
		_, err := FirstChoice(nil)
		assert.Error(t, err)
	})

	t.Run("empty choices is an error", func(t *testing.T) {
		t.Parallel()
		_, err := FirstChoice(&ChatResponse{})
		assert.Error(t, err)
	})
}

func TestExtractText(t *testing.T) {
	t.Parallel()

	t.Run("choices layout wins", func(t *testing.T) {
		t.Parallel()
		resp := &ChatResponse{
			Choices: []ChatChoice{{Message: Message{Content: `{"a":1}`}}},
			Text:    "stale flat text",
		}
		text, ok := ExtractText(resp)
		require.True(t, ok)
		assert.Equal(t, `{"a":1}`, text)
	})

	t.Run("legacy flat field serves older providers", func(t *testing.T) {
		t.Parallel()
		text, ok := ExtractText(&ChatResponse{Text: `{"b":2}`})
		require.True(t, ok)
		assert.Equal(t, `{"b":2}`, text)
	})

	t.Run("empty choice content falls through to the flat field", func(t *testing.T) {
		t.Parallel()
		resp := &ChatResponse{
			Choices: []ChatChoice{{Message: Message{Content: ""}}},
			Text:    `{"c":3}`,
		}
		text, ok := ExtractText(resp)
		require.True(t, ok)
		assert.Equal(t, `{"c":3}`, text)
	})

	t.Run("neither layout present reports no text", func(t *testing.T) {
		t.Parallel()
		_, ok := ExtractText(&ChatResponse{})
		assert.False(t, ok)
	})

	t.Run("nil response reports no text", func(t *testing.T) {
		t.Parallel()
		_, ok := ExtractText(nil)
		assert.False(t, ok)
	})
}

type countingProvider struct {
	calls        int
	healthChecks int
	delay        time.Duration
}

func (p *countingProvider) Completion(ctx context.Context, _ *ChatRequest) (*ChatResponse, error) {
	p.calls++
	if p.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(p.delay):
		}
	}
	return &ChatResponse{Text: "ok"}, nil
}

func (p *countingProvider) HealthCheck(context.Context) (*HealthStatus, error) {
	p.healthChecks++
	return &HealthStatus{Healthy: true}, nil
}

func (p *countingProvider) Name() string { return "counting" }

func TestRateLimitedProvider(t *testing.T) {
	t.Parallel()

	t.Run("delegates to the inner provider", func(t *testing.T) {
		t.Parallel()
		inner := &countingProvider{}
		limited := NewRateLimitedProvider(inner, 1000, 10, nil)

		resp, err := limited.Completion(context.Background(), &ChatRequest{})
		require.NoError(t, err)
		assert.Equal(t, "ok", resp.Text)
		assert.Equal(t, 1, inner.calls)
		assert.Equal(t, "counting", limited.Name())
	})

	t.Run("zero rate disables limiting", func(t *testing.T) {
		t.Parallel()
		inner := &countingProvider{}
		limited := NewRateLimitedProvider(inner, 0, 0, nil)

		for i := 0; i < 50; i++ {
			_, err := limited.Completion(context.Background(), &ChatRequest{})
			require.NoError(t, err)
		}
		assert.Equal(t, 50, inner.calls)
	})

	t.Run("cancelled wait returns before the call", func(t *testing.T) {
		t.Parallel()
		inner := &countingProvider{}
		limited := NewRateLimitedProvider(inner, 0.001, 1, nil)

		// Burn the single burst token, then cancel while waiting.
		_, err := limited.Completion(context.Background(), &ChatRequest{})
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err = limited.Completion(ctx, &ChatRequest{})
		require.Error(t, err)
		assert.Equal(t, 1, inner.calls)
	})

	t.Run("health checks skip the limiter", func(t *testing.T) {
		t.Parallel()
		inner := &countingProvider{}
		limited := NewRateLimitedProvider(inner, 0.001, 1, nil)

		_, err := limited.Completion(context.Background(), &ChatRequest{})
		require.NoError(t, err)

		// The bucket is empty, yet probes still go through immediately.
		status, err := limited.HealthCheck(context.Background())
		require.NoError(t, err)
		assert.True(t, status.Healthy)
		assert.Equal(t, 1, inner.healthChecks)
	})
}
