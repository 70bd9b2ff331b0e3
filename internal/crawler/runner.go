// internal/crawler/runner.go
package crawler

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"

	"github.com/campaignpulse/pulse/internal/ratelimit"
	"github.com/campaignpulse/pulse/internal/retry"
	"github.com/campaignpulse/pulse/internal/validity"
	"github.com/campaignpulse/pulse/pkg/models"
)

// RunnerOptions configures batch execution.
type RunnerOptions struct {
	// RequestDelay is the pause between consecutive crawls. Applied after a
	// crawl finishes, never before the first one.
	RequestDelay time.Duration
	// PlatformDelays overrides RequestDelay per platform.
	PlatformDelays map[models.Platform]time.Duration
	// Retry controls per-post retry behavior for transient failures.
	Retry retry.Config
	// CommentSample caps how many sampled comments a result keeps. Zero
	// means no cap beyond what the platform crawler collected.
	CommentSample int
	// ShowProgress renders a terminal progress bar during batches.
	ShowProgress bool
}

// DefaultRunnerOptions returns the standard batch settings.
func DefaultRunnerOptions() RunnerOptions {
	return RunnerOptions{
		RequestDelay:  2 * time.Second,
		Retry:         retry.DefaultConfig(),
		CommentSample: 10,
	}
}

// Runner executes crawls strictly sequentially. Platforms throttle and ban
// aggressively enough that parallel crawling costs more than it saves, so
// there is deliberately no worker pool here.
type Runner struct {
	registry *Registry
	limiter  ratelimit.Limiter
	opts     RunnerOptions
}

// NewRunner creates a batch runner.
func NewRunner(registry *Registry, limiter ratelimit.Limiter, opts RunnerOptions) *Runner {
	return &Runner{registry: registry, limiter: limiter, opts: opts}
}

// CrawlOne crawls a single post, retrying transient failures with linear
// backoff. The returned result is never nil.
func (r *Runner) CrawlOne(ctx context.Context, ref models.PostReference) *models.CrawlResult {
	c, ok := r.registry.Get(ref.Platform)
	if !ok {
		result := models.NewResult(ref)
		result.SetError(models.ErrKindValidation, "no crawler registered for platform "+string(ref.Platform))
		return result
	}

	if r.limiter != nil {
		if err := r.limiter.Wait(ctx, ref.Platform); err != nil {
			result := models.NewResult(ref)
			result.SetError(models.ErrKindTransientNetwork, err.Error())
			return result
		}
	}

	start := time.Now()
	var result *models.CrawlResult
	err := retry.WithRetry(ctx, r.opts.Retry, func() error {
		result = c.Crawl(ctx, ref)
		return resultToRetryError(result)
	})
	if err != nil && result == nil {
		result = models.NewResult(ref)
		result.SetError(models.ErrKindUnknown, err.Error())
	}
	result.CapComments(r.opts.CommentSample)

	log.Info().
		Str("platform", string(ref.Platform)).
		Str("url", ref.URL).
		Bool("valid", validity.IsValid(result)).
		Str("error_kind", string(result.ErrorKind)).
		Dur("elapsed", time.Since(start)).
		Msg("Crawl finished")
	return result
}

// resultToRetryError converts a result's failure classification into the
// error shape the retry layer understands. Rate limiting and transient
// network failures are worth another attempt; a missing post is permanent.
func resultToRetryError(result *models.CrawlResult) error {
	switch result.ErrorKind {
	case models.ErrKindRateLimited:
		return retry.NewHTTPError(429, "Too Many Requests", result.Error)
	case models.ErrKindTransientNetwork:
		return context.DeadlineExceeded
	case models.ErrKindNotFound:
		return retry.Permanent{Err: errFromResult(result)}
	case models.ErrKindNone:
		return nil
	}
	// Remaining kinds (auth, challenge, restricted, unknown) do not improve
	// with a blind retry.
	return nil
}

type resultError struct{ msg string }

func (e resultError) Error() string { return e.msg }

func errFromResult(result *models.CrawlResult) error {
	return resultError{msg: result.Error}
}

// CrawlMany crawls refs in their given order and returns exactly one result
// per input, at the same index. Context cancellation stops the batch; the
// remaining posts get environment-restricted stubs so the output length
// still matches the input.
func (r *Runner) CrawlMany(ctx context.Context, refs []models.PostReference) []*models.CrawlResult {
	results := make([]*models.CrawlResult, len(refs))

	var bar *progressbar.ProgressBar
	if r.opts.ShowProgress && len(refs) > 1 {
		bar = progressbar.NewOptions(len(refs),
			progressbar.OptionSetDescription("crawling"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	pacer := ratelimit.NewPacer(r.opts.RequestDelay, r.opts.PlatformDelays)
	for i, ref := range refs {
		if err := pacer.Pause(ctx, ref.Platform); err != nil {
			for j := i; j < len(refs); j++ {
				results[j] = models.NewResult(refs[j])
				results[j].SetError(models.ErrKindUnknown, "batch cancelled: "+err.Error())
			}
			break
		}
		results[i] = r.CrawlOne(ctx, ref)
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	if bar != nil {
		_ = bar.Finish()
	}
	return results
}
