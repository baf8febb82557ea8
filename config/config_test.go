package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name:    "zero retry attempts",
			mutate:  func(c *Config) { c.Retry.MaxAttempts = 0 },
			wantErr: "max_attempts",
		},
		{
			name:    "non-positive compiler timeout",
			mutate:  func(c *Config) { c.Compiler.Timeout = 0 },
			wantErr: "compiler timeout",
		},
		{
			name:    "unknown provider kind",
			mutate:  func(c *Config) { c.Provider.Kind = "carrier-pigeon" },
			wantErr: "unknown provider kind",
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.Log.Level = "loud" },
			wantErr: "unknown log level",
		},
		{
			name: "bad history driver only matters when enabled",
			mutate: func(c *Config) {
				c.History.Enabled = false
				c.History.Driver = "oracle"
			},
		},
		{
			name: "bad history driver when enabled",
			mutate: func(c *Config) {
				c.History.Enabled = true
				c.History.Driver = "oracle"
			},
			wantErr: "unsupported history driver",
		},
		{
			name:    "sample rate out of range",
			mutate:  func(c *Config) { c.Telemetry.SampleRate = 1.5 },
			wantErr: "sample_rate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestRetryConfig_Policy(t *testing.T) {
	t.Parallel()

	policy := RetryConfig{
		MaxAttempts: 4,
		BaseDelay:   50 * time.Millisecond,
		MaxDelay:    2 * time.Second,
	}.Policy()

	assert.Equal(t, 4, policy.MaxAttempts)
	assert.Equal(t, 50*time.Millisecond, policy.BaseDelay)
	assert.Equal(t, 2*time.Second, policy.MaxDelay)
}

func TestHistoryConfig_Store(t *testing.T) {
	t.Parallel()

	store := HistoryConfig{Driver: "postgres", DSN: "host=db"}.Store()
	assert.Equal(t, "postgres", store.Driver)
	assert.Equal(t, "host=db", store.DSN)
}

func TestResultCacheConfig_Settings(t *testing.T) {
	t.Parallel()

	settings := ResultCacheConfig{TTL: 10 * time.Minute, KeyPrefix: "x:"}.Settings()
	assert.Equal(t, 10*time.Minute, settings.TTL)
	assert.Equal(t, "x:", settings.KeyPrefix)
}

func TestRedisConfig_Client(t *testing.T) {
	t.Parallel()

	client := RedisConfig{Addr: "cache:6379", DB: 2, PoolSize: 5}.Client()
	t.Cleanup(func() { _ = client.Close() })

	assert.Equal(t, "cache:6379", client.Options().Addr)
	assert.Equal(t, 2, client.Options().DB)
	assert.Equal(t, 5, client.Options().PoolSize)
}

func TestLogConfig_Build(t *testing.T) {
	t.Parallel()

	t.Run("json production logger", func(t *testing.T) {
		t.Parallel()
		logger, err := LogConfig{Level: "warn", Format: "json"}.Build()
		require.NoError(t, err)
		t.Cleanup(func() { _ = logger.Sync() })

		assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
		assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
	})

	t.Run("console logger", func(t *testing.T) {
		t.Parallel()
		logger, err := LogConfig{Level: "debug", Format: "console"}.Build()
		require.NoError(t, err)
		t.Cleanup(func() { _ = logger.Sync() })

		assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("empty level defaults to info", func(t *testing.T) {
		t.Parallel()
		logger, err := LogConfig{}.Build()
		require.NoError(t, err)
		t.Cleanup(func() { _ = logger.Sync() })

		assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
		assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("unknown level errors", func(t *testing.T) {
		t.Parallel()
		_, err := LogConfig{Level: "loud"}.Build()
		require.Error(t, err)
	})
}
