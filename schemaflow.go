// Package schemaflow extracts schema-validated structured output from
// language models.
//
// A schema built with the schema package compiles once per shape into a
// cached workspace; generation runs against the configured provider
// with linear-backoff retries, and the compiled parser validates every
// response before it reaches the caller.
//
//	client, err := schemaflow.New(
//	    schemaflow.WithAPIKey(os.Getenv("OPENAI_API_KEY")),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	person := schema.Object(
//	    schema.F("name", schema.String()),
//	    schema.F("age", schema.Int().Optional()),
//	)
//	result, err := client.Extract(ctx, person, "Person",
//	    "Extract the person mentioned in: "+text)
//
// Everything the constructor does not receive through an option is
// built from the configuration tree; sections disabled there stay off.
package schemaflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/BaSui01/schemaflow/config"
	"github.com/BaSui01/schemaflow/extract"
	"github.com/BaSui01/schemaflow/history"
	"github.com/BaSui01/schemaflow/internal/metrics"
	"github.com/BaSui01/schemaflow/internal/migration"
	"github.com/BaSui01/schemaflow/internal/telemetry"
	"github.com/BaSui01/schemaflow/llm"
	resultcache "github.com/BaSui01/schemaflow/llm/cache"
	"github.com/BaSui01/schemaflow/llm/openai"
	"github.com/BaSui01/schemaflow/llm/retry"
	"github.com/BaSui01/schemaflow/llm/tokenizer"
	"github.com/BaSui01/schemaflow/schema"
	"github.com/BaSui01/schemaflow/workspace"
)

// Re-exports so common flows stay on the root package.
type (
	Prompt  = extract.Prompt
	Options = extract.Options
	Result  = extract.Result
)

var (
	TextPrompt     = extract.TextPrompt
	MessagesPrompt = extract.MessagesPrompt
)

var registerTokenizers sync.Once

// Client is the assembled extraction stack.
type Client struct {
	pipeline *extract.Pipeline
	provider llm.Provider
	cfg      *config.Config
	logger   *zap.Logger

	// Resources the client opened itself; Close releases them.
	telemetry *telemetry.Providers
	redis     *redis.Client
	historyDB *gorm.DB
}

type options struct {
	cfg        *config.Config
	configPath string

	logger   *zap.Logger
	provider llm.Provider
	apiKey   string
	model    string

	compiler extract.Compiler
	loader   extract.ArtifactLoader
	policy   *retry.Policy

	redis     *redis.Client
	store     history.Store
	collector *metrics.Collector

	rateRPS   float64
	rateBurst int
}

// Option configures New.
type Option func(*options)

// WithConfig supplies a prepared configuration tree. The tree is
// validated and copied; later options override individual fields.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithConfigFile loads configuration from a YAML file plus SCHEMAFLOW_*
// environment overrides. A missing file is not an error; the defaults
// stand.
func WithConfigFile(path string) Option {
	return func(o *options) { o.configPath = path }
}

// WithLogger sets the logger. Without one, a client built from explicit
// configuration uses the configured zap logger and a bare client stays
// silent.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithProvider supplies the generation backend directly, bypassing the
// configured provider section.
func WithProvider(p llm.Provider) Option {
	return func(o *options) { o.provider = p }
}

// WithOpenAI selects the OpenAI backend with the given default model.
// The API key comes from WithAPIKey or the OPENAI_API_KEY environment
// variable.
func WithOpenAI(model string) Option {
	return func(o *options) { o.model = model }
}

// WithAPIKey sets the provider API key.
func WithAPIKey(key string) Option {
	return func(o *options) { o.apiKey = key }
}

// WithModel sets the default model for extraction requests.
func WithModel(model string) Option {
	return func(o *options) { o.model = model }
}

// WithRetryPolicy replaces the generation retry policy.
func WithRetryPolicy(policy *retry.Policy) Option {
	return func(o *options) { o.policy = policy }
}

// WithRateLimit throttles outbound provider calls to rps requests per
// second with the given burst.
func WithRateLimit(rps float64, burst int) Option {
	return func(o *options) {
		o.rateRPS = rps
		o.rateBurst = burst
	}
}

// WithRedis enables the result cache on an existing Redis client. The
// client is not closed by Close.
func WithRedis(client *redis.Client) Option {
	return func(o *options) { o.redis = client }
}

// WithHistory records runs to an existing store.
func WithHistory(store history.Store) Option {
	return func(o *options) { o.store = store }
}

// WithMetrics publishes counters through an existing collector.
func WithMetrics(collector *metrics.Collector) Option {
	return func(o *options) { o.collector = collector }
}

// WithCompiler replaces the external schema compiler invocation.
func WithCompiler(c extract.Compiler) Option {
	return func(o *options) { o.compiler = c }
}

// WithArtifactLoader replaces the compiled-workspace artifact loader.
func WithArtifactLoader(l extract.ArtifactLoader) Option {
	return func(o *options) { o.loader = l }
}

// New assembles a client from the options and the resolved
// configuration.
func New(opts ...Option) (*Client, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	cfg, configured, err := resolveConfig(&o)
	if err != nil {
		return nil, err
	}
	if o.model != "" {
		cfg.Provider.OpenAI.Model = o.model
	}
	if o.apiKey != "" {
		cfg.Provider.OpenAI.APIKey = o.apiKey
	}
	if o.rateRPS > 0 {
		cfg.Provider.RateLimit = config.RateLimitConfig{RPS: o.rateRPS, Burst: o.rateBurst}
	}

	logger := o.logger
	if logger == nil {
		if configured {
			logger, err = cfg.Log.Build()
			if err != nil {
				return nil, fmt.Errorf("build logger: %w", err)
			}
		} else {
			logger = zap.NewNop()
		}
	}

	provider := o.provider
	if provider == nil {
		provider, err = buildProvider(cfg, logger)
		if err != nil {
			return nil, err
		}
	}
	if rl := cfg.Provider.RateLimit; rl.RPS > 0 {
		provider = llm.NewRateLimitedProvider(provider, rl.RPS, rl.Burst, logger)
	}

	registerTokenizers.Do(tokenizer.RegisterDefaults)

	compiler := o.compiler
	if compiler == nil {
		compiler = workspace.NewInvoker(cfg.Compiler, logger)
	}
	loader := o.loader
	if loader == nil {
		loader = workspace.NewLoader(nil, logger)
	}
	policy := o.policy
	if policy == nil {
		policy = cfg.Retry.Policy()
	}

	client := &Client{cfg: cfg, logger: logger, provider: provider}

	var cache *resultcache.ResultCache
	switch {
	case o.redis != nil:
		cache = resultcache.NewResultCache(o.redis, cfg.ResultCache.Settings(), logger)
	case cfg.ResultCache.Enabled:
		client.redis = cfg.Redis.Client()
		cache = resultcache.NewResultCache(client.redis, cfg.ResultCache.Settings(), logger)
	}

	store := o.store
	if store == nil && cfg.History.Enabled {
		db, err := history.Open(cfg.History.Store(), logger)
		if err != nil {
			client.Close()
			return nil, err
		}
		client.historyDB = db
		if store, err = history.NewStore(db, logger); err != nil {
			client.Close()
			return nil, err
		}
	}

	collector := o.collector
	if collector == nil && cfg.Metrics.Enabled {
		collector = metrics.NewCollector(cfg.Metrics.Namespace, logger)
	}

	if cfg.Telemetry.Enabled {
		providers, err := telemetry.Init(cfg.Telemetry, logger)
		if err != nil {
			client.Close()
			return nil, err
		}
		client.telemetry = providers
	}

	pipeline, err := extract.NewPipeline(extract.PipelineConfig{
		Workspaces:  workspace.NewManager(cfg.Workspace, logger),
		Compiler:    compiler,
		Loader:      loader,
		Provider:    provider,
		RetryPolicy: policy,
		ResultCache: cache,
		History:     store,
		Metrics:     collector,
		Logger:      logger,
	})
	if err != nil {
		client.Close()
		return nil, err
	}
	client.pipeline = pipeline
	return client, nil
}

// resolveConfig picks the configuration source. The bool reports
// whether the caller configured the client explicitly.
func resolveConfig(o *options) (*config.Config, bool, error) {
	switch {
	case o.cfg != nil:
		if err := o.cfg.Validate(); err != nil {
			return nil, false, err
		}
		cc := *o.cfg
		return &cc, true, nil
	case o.configPath != "":
		cfg, err := config.NewLoader().WithConfigPath(o.configPath).Load()
		if err != nil {
			return nil, false, err
		}
		return cfg, true, nil
	default:
		return config.DefaultConfig(), false, nil
	}
}

func buildProvider(cfg *config.Config, logger *zap.Logger) (llm.Provider, error) {
	switch cfg.Provider.Kind {
	case "", "openai":
	default:
		return nil, fmt.Errorf("no builtin provider for kind %q: use WithProvider", cfg.Provider.Kind)
	}
	pc := cfg.Provider.OpenAI
	if pc.APIKey == "" {
		pc.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if pc.APIKey == "" {
		return nil, errors.New("an API key is required: set OPENAI_API_KEY or use WithAPIKey")
	}
	return openai.New(pc, logger), nil
}

// Extract runs a one-shot extraction with a plain text instruction,
// using the configured default model.
func (c *Client) Extract(ctx context.Context, node *schema.Node, rootName, prompt string) (*Result, error) {
	return c.ExtractPrompt(ctx, node, rootName, extract.TextPrompt(prompt), Options{})
}

// ExtractPrompt runs an extraction with full control over the prompt
// and per-run options. An empty Model falls back to the configured
// default.
func (c *Client) ExtractPrompt(ctx context.Context, node *schema.Node, rootName string, prompt Prompt, opts Options) (*Result, error) {
	if opts.Model == "" {
		opts.Model = c.cfg.Provider.OpenAI.Model
	}
	return c.pipeline.Extract(ctx, node, rootName, prompt, opts)
}

// Warm compiles the given schemas ahead of use so later extractions
// hit the workspace cache.
func (c *Client) Warm(ctx context.Context, schemas map[string]*schema.Node) error {
	return c.pipeline.Warm(ctx, schemas)
}

// HealthCheck probes the configured provider's availability.
func (c *Client) HealthCheck(ctx context.Context) (*llm.HealthStatus, error) {
	return c.provider.HealthCheck(ctx)
}

// Pipeline exposes the underlying pipeline for callers composing their
// own flow.
func (c *Client) Pipeline() *extract.Pipeline {
	return c.pipeline
}

// MigrateHistory applies the run-history database migrations for the
// given section. It is the explicit alternative to the automatic
// migration performed when a client opens the history store.
func MigrateHistory(ctx context.Context, cfg config.HistoryConfig) error {
	m, err := migration.NewMigratorFromHistory(cfg)
	if err != nil {
		return err
	}
	if err := m.Up(ctx); err != nil {
		m.Close()
		return err
	}
	return m.Close()
}

// Close releases resources the client opened itself: the telemetry
// providers, the Redis connection, and the history database.
// Collaborators passed in through options are left open.
func (c *Client) Close() error {
	var errs []error
	if c.telemetry != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		errs = append(errs, c.telemetry.Shutdown(ctx))
	}
	if c.redis != nil {
		errs = append(errs, c.redis.Close())
	}
	if c.historyDB != nil {
		db, err := c.historyDB.DB()
		if err != nil {
			errs = append(errs, err)
		} else {
			errs = append(errs, db.Close())
		}
	}
	return errors.Join(errs...)
}
