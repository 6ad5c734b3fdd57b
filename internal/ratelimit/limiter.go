// Package ratelimit provides per-service token-bucket pacing for the
// external oracles (spec §4.7), modeled on the teacher's
// internal/imageprovider/wikipedia.go globalLimiter field.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter paces calls to a fixed set of named services, one token bucket
// each.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New creates a Limiter with the given per-service rates in requests per
// second. A service not present in rates gets an unlimited limiter.
func New(ratesPerSecond map[string]float64) *Limiter {
	l := &Limiter{limiters: make(map[string]*rate.Limiter, len(ratesPerSecond))}
	for service, rps := range ratesPerSecond {
		l.limiters[service] = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return l
}

func (l *Limiter) limiterFor(service string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if lim, ok := l.limiters[service]; ok {
		return lim
	}
	lim := rate.NewLimiter(rate.Inf, 1)
	l.limiters[service] = lim
	return lim
}

// Acquire blocks until a token for service is available, or ctx is done.
// Cancellation is observed within the pacing interval (spec §4.7), because
// rate.Limiter.Wait itself selects on ctx.Done() internally.
func (l *Limiter) Acquire(ctx context.Context, service string) error {
	return l.limiterFor(service).Wait(ctx)
}

// Backoff delays the next Acquire for service by one extra pacing interval,
// by reserving one token beyond the limiter's normal burst (spec §4.3: "429
// triggers a forced pacing backoff"). It does not read any retry delay the
// 429 response may advertise.
func (l *Limiter) Backoff(service string) {
	lim := l.limiterFor(service)
	lim.ReserveN(time.Now(), 1)
}
