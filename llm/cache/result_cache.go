package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	llmpkg "github.com/BaSui01/schemaflow/llm"
)

var ErrCacheMiss = errors.New("cache miss")

// ResultEntry records one successful extraction round-trip. Raw is the
// verbatim model text; replaying it through the compiled parser
// reproduces the structured value without another provider call.
type ResultEntry struct {
	Raw          string           `json:"raw"`
	Model        string           `json:"model,omitempty"`
	FinishReason string           `json:"finish_reason,omitempty"`
	Usage        llmpkg.ChatUsage `json:"usage,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
}

// ResultCacheConfig configures the extraction result cache.
type ResultCacheConfig struct {
	TTL       time.Duration `yaml:"ttl" json:"ttl"`
	KeyPrefix string        `yaml:"key_prefix" json:"key_prefix"`
}

// DefaultResultCacheConfig returns the default result cache settings.
func DefaultResultCacheConfig() *ResultCacheConfig {
	return &ResultCacheConfig{
		TTL:       1 * time.Hour,
		KeyPrefix: "schemaflow:result:",
	}
}

// ResultCache stores raw extraction outputs in Redis keyed by the
// workspace and prompt fingerprint.
type ResultCache struct {
	redis  *redis.Client
	config *ResultCacheConfig
	logger *zap.Logger
}

// NewResultCache creates a result cache over an existing Redis client.
func NewResultCache(rdb *redis.Client, config *ResultCacheConfig, logger *zap.Logger) *ResultCache {
	if config == nil {
		config = DefaultResultCacheConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResultCache{
		redis:  rdb,
		config: config,
		logger: logger.With(zap.String("component", "result_cache")),
	}
}

// RequestParams are the sampling knobs folded into the fingerprint, so
// runs with different generation settings never share an entry.
type RequestParams struct {
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float32 `json:"temperature,omitempty"`
	TopP        float32 `json:"top_p,omitempty"`
}

// ResultKey fingerprints one extraction request: the workspace the
// parser came from, the model, the full message sequence, and the
// sampling parameters.
func (c *ResultCache) ResultKey(workspaceKey, model string, messages []llmpkg.Message, params RequestParams) string {
	payload := struct {
		Workspace string           `json:"workspace"`
		Model     string           `json:"model"`
		Messages  []llmpkg.Message `json:"messages"`
		Params    RequestParams    `json:"params"`
	}{workspaceKey, model, messages, params}

	data, err := json.Marshal(payload)
	if err != nil {
		data = []byte(fmt.Sprintf("%v", payload))
	}
	hash := sha256.Sum256(data)
	return c.config.KeyPrefix + hex.EncodeToString(hash[:16])
}

// Get returns the cached entry for key, or ErrCacheMiss.
func (c *ResultCache) Get(ctx context.Context, key string) (*ResultEntry, error) {
	data, err := c.redis.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("result cache get: %w", err)
	}

	var entry ResultEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		c.logger.Warn("dropping undecodable cache entry", zap.String("key", key), zap.Error(err))
		return nil, ErrCacheMiss
	}
	return &entry, nil
}

// Set stores an entry under key with the configured TTL.
func (c *ResultCache) Set(ctx context.Context, key string, entry *ResultEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("result cache encode: %w", err)
	}
	if err := c.redis.Set(ctx, key, data, c.config.TTL).Err(); err != nil {
		return fmt.Errorf("result cache set: %w", err)
	}
	return nil
}

// Delete removes an entry.
func (c *ResultCache) Delete(ctx context.Context, key string) error {
	if err := c.redis.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("result cache delete: %w", err)
	}
	return nil
}
