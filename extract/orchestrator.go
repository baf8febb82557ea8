package extract

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/schemaflow/llm"
	"github.com/BaSui01/schemaflow/llm/retry"
	"github.com/BaSui01/schemaflow/types"
	"github.com/BaSui01/schemaflow/workspace"
)

// Options tunes one extraction run.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature float32
	TopP        float32

	// RunID identifies the run; one is generated when empty.
	RunID string

	// OnState observes the run's state transitions.
	OnState func(State)
}

// Result is the outcome of a successful extraction run.
type Result struct {
	RunID        string
	State        State
	Value        any
	Raw          string
	Model        string
	FinishReason string
	Usage        llm.ChatUsage
	Attempts     int

	// CacheHit is set when the value was replayed from the result cache
	// without a provider call.
	CacheHit bool
}

// Orchestrator drives the generation loop: send the merged prompt, pull
// text out of the response, parse it, and retry generation failures
// with linearly growing waits.
type Orchestrator struct {
	provider llm.Provider
	policy   *retry.Policy
	logger   *zap.Logger
}

// NewOrchestrator creates an orchestrator over a provider. A nil policy
// selects the default three-attempt linear policy.
func NewOrchestrator(provider llm.Provider, policy *retry.Policy, logger *zap.Logger) *Orchestrator {
	if policy == nil {
		policy = retry.DefaultPolicy()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		provider: provider,
		policy:   policy,
		logger:   logger.With(zap.String("component", "orchestrator")),
	}
}

// Run merges the hint into the prompt and executes the generation loop.
func (o *Orchestrator) Run(ctx context.Context, prompt Prompt, hint string, parse workspace.ParseFunc, opts Options) (*Result, error) {
	return o.RunMessages(ctx, MergeHint(prompt, hint), parse, opts)
}

type attemptOutcome struct {
	value any
	raw   string
	resp  *llm.ChatResponse
}

// RunMessages executes the generation loop over an already-merged
// message sequence.
//
// Provider failures are generation errors and consume further attempts.
// A response with no usable text, and any parser rejection, end the
// loop at once; the parser's error is returned exactly as the parser
// produced it.
func (o *Orchestrator) RunMessages(ctx context.Context, messages []llm.Message, parse workspace.ParseFunc, opts Options) (*Result, error) {
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	notify := func(s State) {
		if opts.OnState != nil {
			opts.OnState(s)
		}
	}

	notify(StateIdle)
	o.logger.Debug("starting extraction run",
		zap.String("run_id", runID),
		zap.String("model", opts.Model),
		zap.Int("messages", len(messages)))

	attempts := 0
	retryer := retry.NewLinearRetryer(o.policy, o.logger)

	notify(StateAttempting)
	outcome, err := retry.DoWithResultTyped[*attemptOutcome](retryer, ctx, func() (*attemptOutcome, error) {
		attempts++
		req := &llm.ChatRequest{
			TraceID:     runID,
			Model:       opts.Model,
			Messages:    messages,
			MaxTokens:   opts.MaxTokens,
			Temperature: opts.Temperature,
			TopP:        opts.TopP,
		}

		resp, err := o.provider.Completion(ctx, req)
		if err != nil {
			return nil, types.NewGenerationError("provider completion failed").WithCause(err)
		}

		text, ok := llm.ExtractText(resp)
		if !ok {
			return nil, types.NewEmptyOutputError()
		}

		value, err := parse(text)
		if err != nil {
			return nil, err
		}
		return &attemptOutcome{value: value, raw: text, resp: resp}, nil
	})
	if err != nil {
		notify(StateFailed)
		o.logger.Warn("extraction run failed",
			zap.String("run_id", runID),
			zap.Int("attempts", attempts),
			zap.Error(err))
		return nil, err
	}

	notify(StateSucceeded)
	result := &Result{
		RunID:    runID,
		State:    StateSucceeded,
		Value:    outcome.value,
		Raw:      outcome.raw,
		Model:    outcome.resp.Model,
		Usage:    outcome.resp.Usage,
		Attempts: attempts,
	}
	if result.Model == "" {
		result.Model = opts.Model
	}
	if len(outcome.resp.Choices) > 0 {
		result.FinishReason = outcome.resp.Choices[0].FinishReason
	}

	o.logger.Debug("extraction run succeeded",
		zap.String("run_id", runID),
		zap.Int("attempts", attempts),
		zap.Int("raw_bytes", len(result.Raw)))
	return result, nil
}
