// Package limit throttles outbound backend calls with a token bucket, so a
// burst of rule-engine queries cannot exhaust an upstream API quota.
package limit

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/factgrid/factserve/internal/facts"
)

// LimitedFetcher wraps a fetcher with proactive rate limiting.
type LimitedFetcher struct {
	inner   facts.Fetcher
	limiter *rate.Limiter
}

var _ facts.Fetcher = (*LimitedFetcher)(nil)

// New creates a rate-limiting decorator allowing rps requests per second
// with the given burst.
func New(inner facts.Fetcher, rps float64, burst int) *LimitedFetcher {
	if burst < 1 {
		burst = 1
	}
	return &LimitedFetcher{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Fetch waits for a token, then delegates. A context cancelled while
// waiting surfaces as a backend error.
func (l *LimitedFetcher) Fetch(ctx context.Context, constants map[string]any) (facts.Record, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, &facts.BackendError{Detail: "rate limit wait", Err: err}
	}
	return l.inner.Fetch(ctx, constants)
}
