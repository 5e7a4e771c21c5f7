package embedding

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimitedProvider throttles calls to a provider with a token bucket.
type RateLimitedProvider struct {
	next    EmbeddingProvider
	limiter *rate.Limiter
}

// NewRateLimitedProvider allows requestsPerSecond sustained calls with the given burst.
// A non-positive rate disables throttling.
func NewRateLimitedProvider(next EmbeddingProvider, requestsPerSecond float64, burst int) *RateLimitedProvider {
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimitedProvider{
		next:    next,
		limiter: rate.NewLimiter(limit, burst),
	}
}

func (p *RateLimitedProvider) Generate(ctx context.Context, text string, taskType string) (*EmbeddingResponse, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return p.next.Generate(ctx, text, taskType)
}
