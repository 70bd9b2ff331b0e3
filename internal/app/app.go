// Package app wires the application dependencies together: logging,
// session storage, browser factory, platform crawlers, rate limiting and
// the batch runner.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/campaignpulse/pulse/internal/browser"
	"github.com/campaignpulse/pulse/internal/config"
	"github.com/campaignpulse/pulse/internal/crawler"
	"github.com/campaignpulse/pulse/internal/crawler/dcard"
	"github.com/campaignpulse/pulse/internal/crawler/facebook"
	"github.com/campaignpulse/pulse/internal/crawler/instagram"
	"github.com/campaignpulse/pulse/internal/crawler/xiaohongshu"
	"github.com/campaignpulse/pulse/internal/crawler/youtube"
	"github.com/campaignpulse/pulse/internal/ratelimit"
	"github.com/campaignpulse/pulse/internal/retry"
	"github.com/campaignpulse/pulse/internal/session"
	"github.com/campaignpulse/pulse/pkg/models"
)

// Application holds all application dependencies.
//
// It is created once at startup and shared across all CLI commands.
type Application struct {
	Config   *config.Config
	Logger   *zerolog.Logger
	Sessions *session.Store
	Registry *crawler.Registry
	Limiter  *ratelimit.PlatformLimiter
	Runner   *crawler.Runner

	startTime time.Time
}

// New creates and initializes a new Application with all dependencies.
func New(ctx context.Context, cfg *config.Config) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	logLevel := zerolog.ErrorLevel
	switch cfg.LogLevel {
	case "debug":
		logLevel = zerolog.DebugLevel
	case "info":
		logLevel = zerolog.InfoLevel
	case "warn":
		logLevel = zerolog.WarnLevel
	}
	zerolog.SetGlobalLevel(logLevel)

	var logWriter io.Writer
	if cfg.JSONLog {
		logWriter = os.Stderr
	} else {
		logWriter = zerolog.NewConsoleWriter()
	}
	logger := log.Output(logWriter).With().Timestamp().Logger()
	log.Logger = logger

	store, err := session.NewStore()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session store: %w", err)
	}

	if cfg.ChromePath != "" {
		os.Setenv("PULSE_CHROME_PATH", cfg.ChromePath)
	}

	factory := newBrowserFactory(cfg, store)

	registry := crawler.NewRegistry()
	registry.Register(xiaohongshu.New(factory))
	registry.Register(youtube.New(factory))
	registry.Register(instagram.New(factory))
	registry.Register(facebook.New(factory))
	registry.Register(dcard.New(factory))

	limiter := ratelimit.NewPlatformLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	runner := crawler.NewRunner(registry, limiter, crawler.RunnerOptions{
		RequestDelay:   cfg.RequestDelay,
		PlatformDelays: cfg.PlatformDelays,
		Retry: retry.Config{
			MaxAttempts:          cfg.RetryAttempts,
			BackoffStep:          cfg.RetryBackoff,
			RetryableStatusCodes: retry.DefaultConfig().RetryableStatusCodes,
		},
		CommentSample: cfg.CommentSample,
		ShowProgress:  !cfg.JSONLog,
	})

	app := &Application{
		Config:    cfg,
		Logger:    &logger,
		Sessions:  store,
		Registry:  registry,
		Limiter:   limiter,
		Runner:    runner,
		startTime: time.Now(),
	}
	logger.Debug().Msg("Application initialized")
	return app, nil
}

// newBrowserFactory adapts the browser package to the crawler contract.
// Every crawl gets a fresh Chrome so one platform's state never leaks into
// another's fingerprint.
func newBrowserFactory(cfg *config.Config, store *session.Store) crawler.BrowserFactory {
	return func(ctx context.Context, platform models.Platform, mobile bool) (crawler.Browser, error) {
		return browser.New(ctx, platform, store, browser.Options{
			Headless:   cfg.Headless,
			Mobile:     mobile,
			Proxy:      cfg.Proxy,
			Timeout:    cfg.NavTimeout,
			Restricted: cfg.Restricted,
		})
	}
}

// Uptime reports how long the application has been running.
func (a *Application) Uptime() time.Duration {
	return time.Since(a.startTime)
}
