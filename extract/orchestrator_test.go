package extract

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/schemaflow/llm"
	"github.com/BaSui01/schemaflow/llm/retry"
	"github.com/BaSui01/schemaflow/testutil/mocks"
	"github.com/BaSui01/schemaflow/types"
)

func fastPolicy() *retry.Policy {
	return &retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func jsonParse(raw string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, types.NewParseValidationError(err.Error())
	}
	return v, nil
}

func TestOrchestrator_RunMessages(t *testing.T) {
	t.Parallel()

	messages := []llm.Message{{Role: llm.RoleUser, Content: "extract"}}

	t.Run("first attempt success", func(t *testing.T) {
		t.Parallel()
		provider := mocks.NewMockProvider().WillReturnText(`{"name":"Ada"}`)
		orch := NewOrchestrator(provider, fastPolicy(), nil)

		result, err := orch.RunMessages(context.Background(), messages, jsonParse, Options{Model: "gpt-4o-mini"})
		require.NoError(t, err)

		assert.Equal(t, StateSucceeded, result.State)
		assert.Equal(t, 1, result.Attempts)
		assert.Equal(t, `{"name":"Ada"}`, result.Raw)
		assert.Equal(t, map[string]any{"name": "Ada"}, result.Value)
		assert.Equal(t, "stop", result.FinishReason)
		assert.Equal(t, 30, result.Usage.TotalTokens)
		assert.NotEmpty(t, result.RunID)
		assert.Equal(t, 1, provider.Calls())
	})

	t.Run("legacy flat text is usable output", func(t *testing.T) {
		t.Parallel()
		provider := mocks.NewMockProvider().WillReturnFlatText(`{"ok":true}`)
		orch := NewOrchestrator(provider, fastPolicy(), nil)

		result, err := orch.RunMessages(context.Background(), messages, jsonParse, Options{})
		require.NoError(t, err)
		assert.Equal(t, `{"ok":true}`, result.Raw)
	})

	t.Run("two provider failures then success", func(t *testing.T) {
		t.Parallel()
		provider := mocks.NewMockProvider().
			WillReturnError(errors.New("connection reset")).
			WillReturnError(errors.New("bad gateway")).
			WillReturnText(`{"name":"Ada"}`)
		orch := NewOrchestrator(provider, fastPolicy(), nil)

		result, err := orch.RunMessages(context.Background(), messages, jsonParse, Options{})
		require.NoError(t, err)
		assert.Equal(t, 3, result.Attempts)
		assert.Equal(t, 3, provider.Calls())
		assert.Equal(t, StateSucceeded, result.State)
	})

	t.Run("three provider failures exhaust the attempts", func(t *testing.T) {
		t.Parallel()
		upstream := errors.New("connection reset")
		provider := mocks.NewMockProvider().WillReturnError(upstream)
		orch := NewOrchestrator(provider, fastPolicy(), nil)

		_, err := orch.RunMessages(context.Background(), messages, jsonParse, Options{})
		require.Error(t, err)
		assert.Equal(t, 3, provider.Calls())
		assert.True(t, types.IsErrorCode(err, types.ErrGeneration))
		assert.ErrorIs(t, err, upstream)
	})

	t.Run("empty output is terminal on the first attempt", func(t *testing.T) {
		t.Parallel()
		provider := mocks.NewMockProvider().WillReturnEmpty()
		orch := NewOrchestrator(provider, fastPolicy(), nil)

		_, err := orch.RunMessages(context.Background(), messages, jsonParse, Options{})
		require.Error(t, err)
		assert.True(t, types.IsErrorCode(err, types.ErrEmptyOutput))
		assert.Equal(t, 1, provider.Calls())
	})

	t.Run("parser rejection returns the parser's error untouched", func(t *testing.T) {
		t.Parallel()
		provider := mocks.NewMockProvider().WillReturnText("not json at all")
		orch := NewOrchestrator(provider, fastPolicy(), nil)

		sentinel := errors.New("field name is required")
		parse := func(string) (any, error) { return nil, sentinel }

		_, err := orch.RunMessages(context.Background(), messages, parse, Options{})
		require.Error(t, err)
		assert.Same(t, sentinel, err)
		assert.Equal(t, 1, provider.Calls())
	})

	t.Run("parser receives the extracted text verbatim", func(t *testing.T) {
		t.Parallel()
		provider := mocks.NewMockProvider().WillReturnText(` {"padded": true} `)
		orch := NewOrchestrator(provider, fastPolicy(), nil)

		var got string
		parse := func(raw string) (any, error) {
			got = raw
			return raw, nil
		}
		_, err := orch.RunMessages(context.Background(), messages, parse, Options{})
		require.NoError(t, err)
		assert.Equal(t, ` {"padded": true} `, got)
	})

	t.Run("state transitions on success", func(t *testing.T) {
		t.Parallel()
		provider := mocks.NewMockProvider().WillReturnText(`{}`)
		orch := NewOrchestrator(provider, fastPolicy(), nil)

		var states []State
		opts := Options{OnState: func(s State) { states = append(states, s) }}
		_, err := orch.RunMessages(context.Background(), messages, jsonParse, opts)
		require.NoError(t, err)
		assert.Equal(t, []State{StateIdle, StateAttempting, StateSucceeded}, states)
	})

	t.Run("state transitions on failure", func(t *testing.T) {
		t.Parallel()
		provider := mocks.NewMockProvider().WillReturnError(errors.New("down"))
		orch := NewOrchestrator(provider, fastPolicy(), nil)

		var states []State
		opts := Options{OnState: func(s State) { states = append(states, s) }}
		_, err := orch.RunMessages(context.Background(), messages, jsonParse, opts)
		require.Error(t, err)
		assert.Equal(t, []State{StateIdle, StateAttempting, StateFailed}, states)
	})

	t.Run("caller-supplied run id is kept", func(t *testing.T) {
		t.Parallel()
		provider := mocks.NewMockProvider().WillReturnText(`{}`)
		orch := NewOrchestrator(provider, fastPolicy(), nil)

		result, err := orch.RunMessages(context.Background(), messages, jsonParse, Options{RunID: "run-42"})
		require.NoError(t, err)
		assert.Equal(t, "run-42", result.RunID)
		assert.Equal(t, "run-42", provider.LastRequest().TraceID)
	})
}

func TestOrchestrator_Run_MergesHint(t *testing.T) {
	t.Parallel()

	provider := mocks.NewMockProvider().WillReturnText(`{}`)
	orch := NewOrchestrator(provider, fastPolicy(), nil)

	prompt := MessagesPrompt(
		llm.Message{Role: llm.RoleSystem, Content: "You are terse."},
		llm.Message{Role: llm.RoleUser, Content: "extract"},
	)
	_, err := orch.Run(context.Background(), prompt, "Answer with JSON.", jsonParse, Options{})
	require.NoError(t, err)

	sent := provider.LastRequest().Messages
	require.Len(t, sent, 2)
	assert.Equal(t, "You are terse.\n\nAnswer with JSON.", sent[0].Content)
}

func TestState_Terminal(t *testing.T) {
	t.Parallel()

	assert.False(t, StateIdle.Terminal())
	assert.False(t, StateAttempting.Terminal())
	assert.True(t, StateSucceeded.Terminal())
	assert.True(t, StateFailed.Terminal())
}
