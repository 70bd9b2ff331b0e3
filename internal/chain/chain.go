// Package chain runs an ordered list of extraction strategies for one post
// and merges their partial results. Cheap strategies (embedded page state,
// platform APIs) run first; the expensive rendered-DOM pass only runs when
// the earlier layers left gaps.
package chain

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/campaignpulse/pulse/pkg/models"
)

// Strategy is one way of extracting metrics for a post. Implementations
// return a partial result; nil with a nil error means the strategy found
// nothing usable but later layers should still run.
type Strategy interface {
	Name() string
	Extract(ctx context.Context, ref models.PostReference) (*models.CrawlResult, error)
}

// Func adapts a function to the Strategy interface.
type Func struct {
	StrategyName string
	Fn           func(ctx context.Context, ref models.PostReference) (*models.CrawlResult, error)
}

func (f Func) Name() string { return f.StrategyName }

func (f Func) Extract(ctx context.Context, ref models.PostReference) (*models.CrawlResult, error) {
	return f.Fn(ctx, ref)
}

// Chain executes strategies in priority order.
type Chain struct {
	platform   models.Platform
	strategies []Strategy
	earlyStop  bool
}

// Option configures a Chain.
type Option func(*Chain)

// WithEarlyStop controls whether the chain stops as soon as the merged
// result is sufficient. Platforms whose later strategies add nothing beyond
// the first (Dcard's API returns everything) enable it; platforms where the
// rendered page carries extra metrics keep running.
func WithEarlyStop(enabled bool) Option {
	return func(c *Chain) { c.earlyStop = enabled }
}

// New creates a chain for one platform.
func New(platform models.Platform, strategies []Strategy, opts ...Option) *Chain {
	c := &Chain{platform: platform, strategies: strategies, earlyStop: true}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes the chain for ref. It always returns a non-nil result; on
// total failure the result carries the classified error of the last
// strategy. Strategies run strictly in order and each partial is merged
// fill-only-if-absent, so an earlier strategy's value is never overwritten
// by a later one.
func (c *Chain) Run(ctx context.Context, ref models.PostReference) *models.CrawlResult {
	result := models.NewResult(ref)
	if len(c.strategies) == 0 {
		result.SetError(models.ErrKindValidation, ErrNoStrategies.Error())
		return result
	}

	var lastErr error
	anySignal := false

	for _, s := range c.strategies {
		if ctx.Err() != nil {
			lastErr = ctx.Err()
			break
		}

		partial, err := s.Extract(ctx, ref)
		if err != nil {
			lastErr = err
			log.Debug().
				Str("platform", string(c.platform)).
				Str("strategy", s.Name()).
				Str("url", ref.URL).
				Err(err).
				Msg("Strategy failed")
			if Terminal(err) {
				break
			}
			continue
		}
		if partial == nil {
			continue
		}

		anySignal = true
		result.Merge(partial)
		log.Debug().
			Str("platform", string(c.platform)).
			Str("strategy", s.Name()).
			Bool("sufficient", result.Sufficient()).
			Msg("Strategy merged")

		if c.earlyStop && result.Sufficient() {
			break
		}
	}

	if !anySignal && lastErr != nil {
		result.SetError(Classify(lastErr), lastErr.Error())
	}
	return result
}
