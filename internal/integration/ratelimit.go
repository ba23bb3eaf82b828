package integration

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// rateLimiters shapes outbound sends per adapter to its declared
// RateLimit (spec §4.6 "Rate limiting"), grounded on the teacher pack's
// BaseConnector.Wait pattern (arc/connector.go) of wrapping a
// golang.org/x/time/rate.Limiter per connection.
type rateLimiters struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func newRateLimiters() *rateLimiters {
	return &rateLimiters{limiters: make(map[string]*rate.Limiter)}
}

func (r *rateLimiters) wait(ctx context.Context, integrationID string, limit RateLimit) error {
	r.mu.Lock()
	l, ok := r.limiters[integrationID]
	if !ok {
		perSecond := limit.PerSecond
		if perSecond <= 0 {
			perSecond = DefaultRateLimit().PerSecond
		}
		burst := limit.Burst
		if burst <= 0 {
			burst = int(perSecond)
			if burst < 1 {
				burst = 1
			}
		}
		l = rate.NewLimiter(rate.Limit(perSecond), burst)
		r.limiters[integrationID] = l
	}
	r.mu.Unlock()
	return l.Wait(ctx)
}
