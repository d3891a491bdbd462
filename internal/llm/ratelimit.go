package llm

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitedProvider wraps a Provider and throttles outgoing requests.
type RateLimitedProvider struct {
	next    Provider
	limiter *rate.Limiter
}

// NewRateLimitedProvider allows requestsPerMinute calls per minute with a
// burst of one. A non-positive limit returns next unchanged.
func NewRateLimitedProvider(next Provider, requestsPerMinute int) Provider {
	if requestsPerMinute <= 0 {
		return next
	}
	return &RateLimitedProvider{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1),
	}
}

func (p *RateLimitedProvider) Name() string {
	return p.next.Name()
}

func (p *RateLimitedProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}
	return p.next.Complete(ctx, req)
}
