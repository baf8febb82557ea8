package extract

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/schemaflow/history"
	"github.com/BaSui01/schemaflow/internal/metrics"
	"github.com/BaSui01/schemaflow/llm"
	resultcache "github.com/BaSui01/schemaflow/llm/cache"
	"github.com/BaSui01/schemaflow/llm/retry"
	"github.com/BaSui01/schemaflow/llm/tokenizer"
	promptpkg "github.com/BaSui01/schemaflow/prompt"
	"github.com/BaSui01/schemaflow/schema"
	"github.com/BaSui01/schemaflow/translate"
	"github.com/BaSui01/schemaflow/types"
	"github.com/BaSui01/schemaflow/workspace"
)

// warmLimit bounds concurrent compiler invocations during Warm.
const warmLimit = 4

// Compiler runs the external schema compiler against a workspace
// directory.
type Compiler interface {
	Run(ctx context.Context, dir string) error
}

// ArtifactLoader opens a compiled workspace's parse function registry.
type ArtifactLoader interface {
	Load(ws *workspace.Workspace) (workspace.Registry, error)
}

// PipelineConfig assembles the pipeline's collaborators. Workspaces,
// Compiler, Loader, and Provider are required; the rest are optional.
type PipelineConfig struct {
	Workspaces  *workspace.Manager
	Compiler    Compiler
	Loader      ArtifactLoader
	Provider    llm.Provider
	RetryPolicy *retry.Policy
	ResultCache *resultcache.ResultCache
	History     history.Store
	Metrics     *metrics.Collector
	Logger      *zap.Logger
}

// Pipeline is the end-to-end extraction path: translate the schema,
// ensure a compiled workspace, load its parser, and drive the
// generation loop.
type Pipeline struct {
	workspaces   *workspace.Manager
	compiler     Compiler
	loader       ArtifactLoader
	provider     llm.Provider
	orchestrator *Orchestrator
	resultCache  *resultcache.ResultCache
	history      history.Store
	metrics      *metrics.Collector
	tracer       trace.Tracer
	logger       *zap.Logger
}

// NewPipeline creates a pipeline from its collaborators.
func NewPipeline(cfg PipelineConfig) (*Pipeline, error) {
	switch {
	case cfg.Workspaces == nil:
		return nil, fmt.Errorf("pipeline: workspace manager is required")
	case cfg.Compiler == nil:
		return nil, fmt.Errorf("pipeline: compiler is required")
	case cfg.Loader == nil:
		return nil, fmt.Errorf("pipeline: loader is required")
	case cfg.Provider == nil:
		return nil, fmt.Errorf("pipeline: provider is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	provider := cfg.Provider
	if cfg.Metrics != nil {
		provider = &meteredProvider{inner: provider, metrics: cfg.Metrics}
	}

	return &Pipeline{
		workspaces:   cfg.Workspaces,
		compiler:     cfg.Compiler,
		loader:       cfg.Loader,
		provider:     provider,
		orchestrator: NewOrchestrator(provider, cfg.RetryPolicy, logger),
		resultCache:  cfg.ResultCache,
		history:      cfg.History,
		metrics:      cfg.Metrics,
		tracer:       otel.Tracer("github.com/BaSui01/schemaflow/extract"),
		logger:       logger.With(zap.String("component", "pipeline")),
	}, nil
}

// Extract runs one structured extraction: userPrompt is sent to the
// model with the schema hint merged in, and the model's output is
// validated by the compiled parser for node.
func (p *Pipeline) Extract(ctx context.Context, node *schema.Node, rootName string, userPrompt Prompt, opts Options) (*Result, error) {
	start := time.Now()
	ctx, span := p.tracer.Start(ctx, "schemaflow.extract")
	defer span.End()

	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}

	out, err := translate.BuildSource(node, rootName)
	if err != nil {
		if p.metrics != nil {
			p.metrics.RecordTranslation("error")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "translation failed")
		return nil, err
	}
	if p.metrics != nil {
		p.metrics.RecordTranslation("ok")
	}
	span.SetAttributes(
		attribute.String("schemaflow.root_type", out.RootType),
		attribute.String("schemaflow.function", out.FunctionName),
	)

	parse, ws, err := p.prepare(ctx, out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "prepare failed")
		p.record(ctx, failedRun(opts, ws, out, err, time.Since(start)))
		return nil, err
	}
	span.SetAttributes(attribute.String("schemaflow.workspace", ws.Key))

	hint := promptpkg.BuildJSONHint(node)
	messages := MergeHint(userPrompt, hint)
	p.estimateBudget(opts.Model, messages)

	if result, ok := p.replayCached(ctx, ws, out, parse, messages, opts); ok {
		if p.metrics != nil {
			p.metrics.RecordExtraction(result.Model, "cache_hit", 0, time.Since(start))
		}
		p.record(ctx, succeededRun(ws, out, p.provider.Name(), result, time.Since(start)))
		return result, nil
	}

	result, err := p.orchestrator.RunMessages(ctx, messages, parse, opts)
	if err != nil {
		if p.metrics != nil {
			p.metrics.RecordExtraction(opts.Model, "failed", 0, time.Since(start))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		p.record(ctx, failedRun(opts, ws, out, err, time.Since(start)))
		return nil, err
	}

	if p.metrics != nil {
		p.metrics.RecordExtraction(result.Model, "succeeded", result.Attempts, time.Since(start))
	}
	p.storeCached(ctx, ws, messages, opts, result)
	p.record(ctx, succeededRun(ws, out, p.provider.Name(), result, time.Since(start)))
	return result, nil
}

// Warm compiles and loads the given schemas ahead of time so later
// extractions start from a hot cache. Schemas are keyed by root name.
func (p *Pipeline) Warm(ctx context.Context, schemas map[string]*schema.Node) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(warmLimit)

	for name, node := range schemas {
		g.Go(func() error {
			out, err := translate.BuildSource(node, name)
			if err != nil {
				return fmt.Errorf("warm %s: %w", name, err)
			}
			if _, _, err := p.prepare(ctx, out); err != nil {
				return fmt.Errorf("warm %s: %w", name, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// prepare resolves the compiled parse function for a translated schema,
// compiling the workspace when its artifacts are absent.
func (p *Pipeline) prepare(ctx context.Context, out *translate.Output) (workspace.ParseFunc, *workspace.Workspace, error) {
	ws, hit, err := p.workspaces.Ensure(out.Source)
	if err != nil {
		return nil, nil, err
	}

	if hit {
		if p.metrics != nil {
			p.metrics.RecordCacheHit("workspace")
			p.metrics.RecordCompile("cache_hit", 0)
		}
	} else {
		if p.metrics != nil {
			p.metrics.RecordCacheMiss("workspace")
		}
		compileStart := time.Now()
		if err := p.compiler.Run(ctx, ws.Dir); err != nil {
			if p.metrics != nil {
				p.metrics.RecordCompile("failed", time.Since(compileStart))
			}
			return nil, ws, err
		}
		if p.metrics != nil {
			p.metrics.RecordCompile("compiled", time.Since(compileStart))
		}
	}

	reg, err := p.loader.Load(ws)
	if err != nil {
		return nil, ws, err
	}
	parse, err := reg.Lookup(out.FunctionName)
	if err != nil {
		return nil, ws, err
	}
	return parse, ws, nil
}

// estimateBudget logs the prompt's token footprint and warns when it
// exceeds the model's context window.
func (p *Pipeline) estimateBudget(model string, messages []llm.Message) {
	tok := tokenizer.GetTokenizerOrEstimator(model)
	converted := make([]tokenizer.Message, len(messages))
	for i, m := range messages {
		converted[i] = tokenizer.Message{Role: string(m.Role), Content: m.Content}
	}
	estimate, err := tok.CountMessages(converted)
	if err != nil {
		p.logger.Debug("token estimate unavailable", zap.Error(err))
		return
	}
	p.logger.Debug("prompt token estimate",
		zap.String("model", model),
		zap.Int("tokens", estimate),
		zap.String("tokenizer", tok.Name()))
	if max := tok.MaxTokens(); max > 0 && estimate > max {
		p.logger.Warn("prompt exceeds model context window",
			zap.String("model", model),
			zap.Int("tokens", estimate),
			zap.Int("window", max))
	}
}

// replayCached serves an extraction from the result cache, re-running
// the parser over the stored raw text. Entries that no longer parse are
// evicted and treated as misses.
func (p *Pipeline) replayCached(ctx context.Context, ws *workspace.Workspace, out *translate.Output, parse workspace.ParseFunc, messages []llm.Message, opts Options) (*Result, bool) {
	if p.resultCache == nil {
		return nil, false
	}

	key := p.resultCache.ResultKey(ws.Key, opts.Model, messages, cacheParams(opts))
	entry, err := p.resultCache.Get(ctx, key)
	if err != nil {
		if p.metrics != nil {
			p.metrics.RecordCacheMiss("result")
		}
		return nil, false
	}

	value, perr := parse(entry.Raw)
	if perr != nil {
		p.logger.Warn("evicting stale result cache entry", zap.String("key", key), zap.Error(perr))
		if derr := p.resultCache.Delete(ctx, key); derr != nil {
			p.logger.Warn("failed to evict result cache entry", zap.Error(derr))
		}
		return nil, false
	}

	if p.metrics != nil {
		p.metrics.RecordCacheHit("result")
	}
	if opts.OnState != nil {
		opts.OnState(StateIdle)
		opts.OnState(StateSucceeded)
	}

	result := &Result{
		RunID:        opts.RunID,
		State:        StateSucceeded,
		Value:        value,
		Raw:          entry.Raw,
		Model:        entry.Model,
		FinishReason: entry.FinishReason,
		Usage:        entry.Usage,
		CacheHit:     true,
	}
	if result.Model == "" {
		result.Model = opts.Model
	}
	return result, true
}

// storeCached writes a fresh success into the result cache.
func (p *Pipeline) storeCached(ctx context.Context, ws *workspace.Workspace, messages []llm.Message, opts Options, result *Result) {
	if p.resultCache == nil {
		return
	}
	key := p.resultCache.ResultKey(ws.Key, opts.Model, messages, cacheParams(opts))
	entry := &resultcache.ResultEntry{
		Raw:          result.Raw,
		Model:        result.Model,
		FinishReason: result.FinishReason,
		Usage:        result.Usage,
	}
	if err := p.resultCache.Set(ctx, key, entry); err != nil {
		p.logger.Warn("failed to store result cache entry", zap.Error(err))
	}
}

func cacheParams(opts Options) resultcache.RequestParams {
	return resultcache.RequestParams{
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
		TopP:        opts.TopP,
	}
}

// record writes a run to history; failures are logged, never surfaced.
func (p *Pipeline) record(ctx context.Context, run *history.Run) {
	if p.history == nil || run == nil {
		return
	}
	if err := p.history.Record(ctx, run); err != nil {
		p.logger.Warn("failed to record run history", zap.Error(err))
	}
}

func succeededRun(ws *workspace.Workspace, out *translate.Output, provider string, result *Result, elapsed time.Duration) *history.Run {
	return &history.Run{
		ID:               result.RunID,
		WorkspaceKey:     ws.Key,
		FunctionName:     out.FunctionName,
		Provider:         provider,
		Model:            result.Model,
		State:            string(result.State),
		Attempts:         result.Attempts,
		CacheHit:         result.CacheHit,
		PromptTokens:     result.Usage.PromptTokens,
		CompletionTokens: result.Usage.CompletionTokens,
		RawBytes:         len(result.Raw),
		DurationMS:       elapsed.Milliseconds(),
	}
}

func failedRun(opts Options, ws *workspace.Workspace, out *translate.Output, err error, elapsed time.Duration) *history.Run {
	run := &history.Run{
		ID:         opts.RunID,
		Model:      opts.Model,
		State:      string(StateFailed),
		ErrorCode:  string(types.GetErrorCode(err)),
		DurationMS: elapsed.Milliseconds(),
	}
	if ws != nil {
		run.WorkspaceKey = ws.Key
	}
	if out != nil {
		run.FunctionName = out.FunctionName
	}
	return run
}

// meteredProvider wraps a provider with per-call metrics.
type meteredProvider struct {
	inner   llm.Provider
	metrics *metrics.Collector
}

func (m *meteredProvider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	start := time.Now()
	resp, err := m.inner.Completion(ctx, req)

	status := "ok"
	if err != nil {
		status = "error"
	}
	var promptTokens, completionTokens int
	if resp != nil {
		promptTokens = resp.Usage.PromptTokens
		completionTokens = resp.Usage.CompletionTokens
	}
	m.metrics.RecordProviderRequest(m.inner.Name(), req.Model, status, time.Since(start), promptTokens, completionTokens)
	return resp, err
}

func (m *meteredProvider) HealthCheck(ctx context.Context) (*llm.HealthStatus, error) {
	return m.inner.HealthCheck(ctx)
}

func (m *meteredProvider) Name() string { return m.inner.Name() }
