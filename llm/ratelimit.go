package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimitedProvider wraps a Provider with a local token-bucket
// limiter so structured extraction cannot exceed an upstream quota.
type RateLimitedProvider struct {
	inner   Provider
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewRateLimitedProvider limits inner to rps requests per second with
// the given burst. A non-positive rps disables limiting.
func NewRateLimitedProvider(inner Provider, rps float64, burst int, logger *zap.Logger) *RateLimitedProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	var limiter *rate.Limiter
	if rps > 0 {
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
	return &RateLimitedProvider{
		inner:   inner,
		limiter: limiter,
		logger:  logger.With(zap.String("component", "ratelimit"), zap.String("provider", inner.Name())),
	}
}

func (p *RateLimitedProvider) Completion(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}
	return p.inner.Completion(ctx, req)
}

// HealthCheck bypasses the limiter; only generation traffic is
// throttled.
func (p *RateLimitedProvider) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	return p.inner.HealthCheck(ctx)
}

func (p *RateLimitedProvider) Name() string {
	return p.inner.Name()
}
