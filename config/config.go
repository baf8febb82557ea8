package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/schemaflow/history"
	resultcache "github.com/BaSui01/schemaflow/llm/cache"
	"github.com/BaSui01/schemaflow/llm/openai"
	"github.com/BaSui01/schemaflow/llm/retry"
	"github.com/BaSui01/schemaflow/workspace"
)

// Config is the complete configuration tree. Sections owned by a
// domain package reuse that package's config struct; ambient sections
// are defined here.
type Config struct {
	// Workspace configures the content-addressed compile cache.
	Workspace workspace.CacheConfig `yaml:"workspace"`

	// Compiler configures the external schema compiler invocation.
	Compiler workspace.CompilerConfig `yaml:"compiler"`

	// Provider selects and configures the generation backend.
	Provider ProviderConfig `yaml:"provider"`

	// Retry shapes the generation retry loop.
	Retry RetryConfig `yaml:"retry"`

	// Redis configures the connection used by the result cache.
	Redis RedisConfig `yaml:"redis"`

	// ResultCache configures replay of raw generation output.
	ResultCache ResultCacheConfig `yaml:"result_cache"`

	// History configures the run log database.
	History HistoryConfig `yaml:"history"`

	// Log configures the zap logger.
	Log LogConfig `yaml:"log"`

	// Telemetry configures the OTel SDK.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Metrics configures the Prometheus collector.
	Metrics MetricsConfig `yaml:"metrics"`
}

// ProviderConfig selects the generation backend.
type ProviderConfig struct {
	// Kind names the backend. Currently "openai".
	Kind string `yaml:"kind"`

	// OpenAI configures the OpenAI-compatible adapter.
	OpenAI openai.Config `yaml:"openai"`

	// RateLimit throttles outbound provider calls.
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig is a token-bucket throttle. RPS 0 disables it.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// RetryConfig shapes the generation retry loop.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
}

// Policy converts the section into a retry policy.
func (r RetryConfig) Policy() *retry.Policy {
	return &retry.Policy{
		MaxAttempts: r.MaxAttempts,
		BaseDelay:   r.BaseDelay,
		MaxDelay:    r.MaxDelay,
	}
}

// RedisConfig configures the Redis connection.
type RedisConfig struct {
	Addr         string `yaml:"addr"`
	Password     string `yaml:"password"`
	DB           int    `yaml:"db"`
	PoolSize     int    `yaml:"pool_size"`
	MinIdleConns int    `yaml:"min_idle_conns"`
}

// Client opens a Redis client for the section.
func (r RedisConfig) Client() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         r.Addr,
		Password:     r.Password,
		DB:           r.DB,
		PoolSize:     r.PoolSize,
		MinIdleConns: r.MinIdleConns,
	})
}

// ResultCacheConfig configures replay of raw generation output.
type ResultCacheConfig struct {
	Enabled   bool          `yaml:"enabled"`
	TTL       time.Duration `yaml:"ttl"`
	KeyPrefix string        `yaml:"key_prefix"`
}

// Settings converts the section for the cache constructor.
func (r ResultCacheConfig) Settings() *resultcache.ResultCacheConfig {
	return &resultcache.ResultCacheConfig{TTL: r.TTL, KeyPrefix: r.KeyPrefix}
}

// HistoryConfig configures the run log database.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Driver  string `yaml:"driver"`
	DSN     string `yaml:"dsn"`

	// Retention bounds how long runs are kept; Purge deletes older rows.
	Retention time.Duration `yaml:"retention"`
}

// Store converts the section for the history package.
func (h HistoryConfig) Store() history.Config {
	return history.Config{Driver: h.Driver, DSN: h.DSN}
}

// LogConfig configures the zap logger.
type LogConfig struct {
	// Level: debug, info, warn, error.
	Level string `yaml:"level"`

	// Format: json or console.
	Format string `yaml:"format"`

	OutputPaths      []string `yaml:"output_paths"`
	EnableCaller     bool     `yaml:"enable_caller"`
	EnableStacktrace bool     `yaml:"enable_stacktrace"`
}

// Build constructs a zap logger for the section.
func (l LogConfig) Build() (*zap.Logger, error) {
	var level zapcore.Level
	switch l.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info", "":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		return nil, fmt.Errorf("unknown log level: %s", l.Level)
	}

	var encoderConfig zapcore.EncoderConfig
	encoding := "json"
	if l.Format == "console" {
		encoding = "console"
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	outputs := l.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stdout"}
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      encoding == "console",
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      outputs,
		ErrorOutputPaths: []string{"stderr"},
	}

	var opts []zap.Option
	if l.EnableCaller {
		opts = append(opts, zap.AddCaller())
	}
	if l.EnableStacktrace {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}
	return zapConfig.Build(opts...)
}

// TelemetryConfig configures the OTel SDK.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	ServiceName  string  `yaml:"service_name"`
	SampleRate   float64 `yaml:"sample_rate"`
}

// MetricsConfig configures the Prometheus collector.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// DefaultConfig returns the full default configuration.
func DefaultConfig() *Config {
	return &Config{
		Workspace:   workspace.DefaultCacheConfig(),
		Compiler:    workspace.DefaultCompilerConfig(),
		Provider:    DefaultProviderConfig(),
		Retry:       DefaultRetryConfig(),
		Redis:       DefaultRedisConfig(),
		ResultCache: DefaultResultCacheConfig(),
		History:     DefaultHistoryConfig(),
		Log:         DefaultLogConfig(),
		Telemetry:   DefaultTelemetryConfig(),
		Metrics:     DefaultMetricsConfig(),
	}
}

// DefaultProviderConfig returns the default provider section.
func DefaultProviderConfig() ProviderConfig {
	return ProviderConfig{
		Kind: "openai",
		OpenAI: openai.Config{
			Model:   "gpt-4o-mini",
			Timeout: 30 * time.Second,
		},
	}
}

// DefaultRetryConfig returns the default retry section.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   200 * time.Millisecond,
		MaxDelay:    5 * time.Second,
	}
}

// DefaultRedisConfig returns the default Redis section.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:         "localhost:6379",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
	}
}

// DefaultResultCacheConfig returns the default result cache section.
func DefaultResultCacheConfig() ResultCacheConfig {
	return ResultCacheConfig{
		Enabled:   false,
		TTL:       1 * time.Hour,
		KeyPrefix: "schemaflow:result:",
	}
}

// DefaultHistoryConfig returns the default history section.
func DefaultHistoryConfig() HistoryConfig {
	return HistoryConfig{
		Enabled:   false,
		Driver:    "sqlite",
		DSN:       "schemaflow.db",
		Retention: 30 * 24 * time.Hour,
	}
}

// DefaultLogConfig returns the default log section.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig returns the default telemetry section.
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "schemaflow",
		SampleRate:   0.1,
	}
}

// DefaultMetricsConfig returns the default metrics section.
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:   false,
		Namespace: "schemaflow",
	}
}

// Validate checks cross-field consistency.
func (c *Config) Validate() error {
	var errs []string

	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, "retry max_attempts must be at least 1")
	}
	if c.Compiler.Timeout <= 0 {
		errs = append(errs, "compiler timeout must be positive")
	}
	switch c.Provider.Kind {
	case "", "openai":
	default:
		errs = append(errs, fmt.Sprintf("unknown provider kind: %s", c.Provider.Kind))
	}
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("unknown log level: %s", c.Log.Level))
	}
	if c.History.Enabled {
		switch c.History.Driver {
		case "postgres", "mysql", "sqlite":
		default:
			errs = append(errs, fmt.Sprintf("unsupported history driver: %s", c.History.Driver))
		}
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		errs = append(errs, "telemetry sample_rate must be between 0 and 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}
	return nil
}
