// Package ratelimit paces crawl requests per platform. Each platform gets
// its own token bucket so a slow Instagram pass never starves the Dcard API,
// and a configurable fixed delay spaces consecutive crawls within a batch.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/campaignpulse/pulse/pkg/models"
)

// Limiter defines the pacing interface the batch runner depends on.
type Limiter interface {
	// Wait blocks until a request for the platform can proceed, or the
	// context is cancelled.
	Wait(ctx context.Context, platform models.Platform) error

	// Allow checks if a request can proceed immediately without blocking.
	Allow(platform models.Platform) bool
}

// PlatformLimiter provides per-platform token-bucket rate limiting.
type PlatformLimiter struct {
	limiters map[models.Platform]*rate.Limiter
	mu       sync.RWMutex
	perPlat  rate.Limit
	burst    int
}

// NewPlatformLimiter creates a limiter with the given per-platform rate.
// Crawling is sequential, so burst stays at 1 to keep requests evenly
// spaced rather than front-loaded.
func NewPlatformLimiter(requestsPerSecond float64, burst int) *PlatformLimiter {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 0.5
	}
	if burst <= 0 {
		burst = 1
	}
	return &PlatformLimiter{
		limiters: make(map[models.Platform]*rate.Limiter),
		perPlat:  rate.Limit(requestsPerSecond),
		burst:    burst,
	}
}

// Wait blocks until the platform's bucket has a token.
func (pl *PlatformLimiter) Wait(ctx context.Context, platform models.Platform) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return pl.getLimiter(platform).Wait(ctx)
}

// Allow checks if a request can proceed immediately.
func (pl *PlatformLimiter) Allow(platform models.Platform) bool {
	return pl.getLimiter(platform).Allow()
}

func (pl *PlatformLimiter) getLimiter(platform models.Platform) *rate.Limiter {
	pl.mu.RLock()
	limiter, exists := pl.limiters[platform]
	pl.mu.RUnlock()
	if exists {
		return limiter
	}

	pl.mu.Lock()
	defer pl.mu.Unlock()
	if limiter, exists := pl.limiters[platform]; exists {
		return limiter
	}
	limiter = rate.NewLimiter(pl.perPlat, pl.burst)
	pl.limiters[platform] = limiter
	return limiter
}

// SetLimit overrides the rate for one platform. Used to slow down a
// platform that answered 429 mid-batch. The bucket is replaced rather than
// mutated: rate.Limiter's SetLimit keeps the current token debt, so a
// drained bucket would still block even after a raise.
func (pl *PlatformLimiter) SetLimit(platform models.Platform, requestsPerSecond float64, burst int) {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	pl.limiters[platform] = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}

// Pacer inserts a politeness delay between consecutive crawls in a batch.
// The delay is applied between crawls, never before the first, and can be
// tuned per platform: ban-happy platforms get longer pauses than tolerant
// ones.
type Pacer struct {
	delay       time.Duration
	perPlatform map[models.Platform]time.Duration
	begun       bool
}

// NewPacer creates a pacer with a default inter-request delay and optional
// per-platform overrides.
func NewPacer(delay time.Duration, perPlatform map[models.Platform]time.Duration) *Pacer {
	return &Pacer{delay: delay, perPlatform: perPlatform}
}

// Pause sleeps the delay configured for the platform about to be crawled,
// except before the first crawl. Returns early with the context error on
// cancellation.
func (p *Pacer) Pause(ctx context.Context, platform models.Platform) error {
	if !p.begun {
		p.begun = true
		return ctx.Err()
	}
	delay := p.delay
	if d, ok := p.perPlatform[platform]; ok {
		delay = d
	}
	if delay <= 0 {
		return ctx.Err()
	}
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
