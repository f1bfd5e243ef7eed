package providers

import (
	"context"

	"golang.org/x/time/rate"
)

// throttledAdapter waits on a token bucket before every fetch.
type throttledAdapter struct {
	Adapter
	limiter *rate.Limiter
}

// WithRateLimit wraps a so that fetches are limited to rps requests per second.
// A non-positive rps returns a unchanged.
func WithRateLimit(a Adapter, rps float64, burst int) Adapter {
	if a == nil || rps <= 0 {
		return a
	}
	if burst < 1 {
		burst = 1
	}
	return &throttledAdapter{Adapter: a, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (t *throttledAdapter) Fetch(ctx context.Context, identifier string) (Payload, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, &FetchError{Provider: t.Name(), Kind: KindRateLimited, Err: err}
	}
	return t.Adapter.Fetch(ctx, identifier)
}
