// Package config assembles runtime configuration from defaults, an optional
// .env file, environment variables, and CLI flags, in that priority order.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/campaignpulse/pulse/internal/browser"
	"github.com/campaignpulse/pulse/pkg/models"
)

// Config holds application configuration values.
type Config struct {
	// Logging
	LogLevel string
	JSONLog  bool

	// Browser
	NavTimeout time.Duration
	Headless   bool
	ChromePath string
	Proxy      string

	// Pacing
	RequestDelay   time.Duration
	PlatformDelays map[models.Platform]time.Duration
	RateLimitRPS   float64
	RateLimitBurst int

	// Restricted marks an environment with no interactive display. The
	// interactive flows (QR login) fail fast instead of waiting for a human.
	Restricted bool

	// Retry
	RetryAttempts int
	RetryBackoff  time.Duration

	// Output
	CommentSample int
	OutputFormat  string
	OutputPath    string
}

// Load builds a Config by combining defaults, an optional .env file,
// environment variables, and CLI flags. Caller should pass the root
// *cobra.Command so flags can be read.
func Load(cmd *cobra.Command) (*Config, error) {
	// Missing .env is the normal case, not an error.
	_ = godotenv.Load()

	cfg := &Config{
		LogLevel:       DefaultLogLevel,
		JSONLog:        DefaultJSONLog,
		NavTimeout:     DefaultNavTimeout,
		Headless:       DefaultHeadless,
		RequestDelay:   DefaultRequestDelay,
		PlatformDelays: DefaultPlatformDelays(),
		Restricted:     browser.DetectRestricted(),
		RateLimitRPS:   DefaultRateLimitRPS,
		RateLimitBurst: DefaultRateLimitBurst,
		RetryAttempts:  DefaultRetryAttempts,
		RetryBackoff:   DefaultRetryBackoff,
		CommentSample:  DefaultCommentSample,
		OutputFormat:   DefaultOutputFormat,
	}

	// Override from environment variables
	if v := os.Getenv("PULSE_CHROME_PATH"); v != "" {
		cfg.ChromePath = v
	}
	if v := os.Getenv("PULSE_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("PULSE_REQUEST_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.RequestDelay = d
		}
	}
	if v := os.Getenv("PULSE_PLATFORM_DELAYS"); v != "" {
		applyPlatformDelays(cfg.PlatformDelays, v)
	}
	if v := os.Getenv("PULSE_HEADLESS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Headless = b
		}
	}

	// Read CLI flags if provided
	if cmd != nil {
		flags := cmd.Flags()
		if f := flags.Lookup("proxy"); f != nil && f.Changed {
			cfg.Proxy = f.Value.String()
		}
		if f := flags.Lookup("timeout"); f != nil && f.Changed {
			if d, err := time.ParseDuration(f.Value.String()); err == nil {
				cfg.NavTimeout = d
			}
		}
		if f := flags.Lookup("delay"); f != nil && f.Changed {
			if d, err := time.ParseDuration(f.Value.String()); err == nil {
				// An explicit flag wins everywhere, including over the
				// per-platform defaults.
				cfg.RequestDelay = d
				cfg.PlatformDelays = nil
			}
		}
		if f := flags.Lookup("restricted"); f != nil && f.Changed {
			cfg.Restricted = f.Value.String() == "true"
		}
		if f := flags.Lookup("headful"); f != nil && f.Value.String() == "true" {
			cfg.Headless = false
		}
		if f := flags.Lookup("json"); f != nil && f.Value.String() == "true" {
			cfg.JSONLog = true
		}
		if f := flags.Lookup("verbose"); f != nil && f.Value.String() == "true" {
			cfg.LogLevel = "debug"
		}
		if f := flags.Lookup("format"); f != nil && f.Changed {
			cfg.OutputFormat = strings.ToLower(f.Value.String())
		}
		if f := flags.Lookup("output"); f != nil && f.Changed {
			cfg.OutputPath = f.Value.String()
		}
		if f := flags.Lookup("max-comments"); f != nil && f.Changed {
			if n, err := strconv.Atoi(f.Value.String()); err == nil && n >= 0 {
				cfg.CommentSample = n
			}
		}
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.NavTimeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if cfg.RequestDelay < 0 {
		return fmt.Errorf("request delay cannot be negative")
	}
	for p, d := range cfg.PlatformDelays {
		if d < 0 {
			return fmt.Errorf("delay for %s cannot be negative", p)
		}
	}
	if cfg.RetryAttempts < 1 {
		return fmt.Errorf("retry attempts must be at least 1")
	}
	switch cfg.OutputFormat {
	case "markdown", "json", "csv", "html":
	default:
		return fmt.Errorf("unsupported output format %q", cfg.OutputFormat)
	}
	return nil
}

// RegisterFlags attaches the shared flags to the root command.
func RegisterFlags(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.BoolP("verbose", "v", false, "Enable debug logging")
	pf.Bool("json", false, "Emit logs as JSON")
	pf.String("proxy", "", "Proxy server URL for browser traffic")
	pf.String("timeout", "", "Per-navigation timeout (e.g. 45s)")
	pf.String("delay", "", "Delay between consecutive crawls (e.g. 3s)")
	pf.Bool("headful", false, "Show the browser window (needed for QR login)")
	pf.Bool("restricted", false, "Assume no interactive display; login waits fail fast")
}

// applyPlatformDelays merges overrides in "platform=duration" comma-list
// form, e.g. "youtube=1s,facebook=5s". Unknown platforms and bad durations
// are skipped.
func applyPlatformDelays(delays map[models.Platform]time.Duration, spec string) {
	for _, part := range strings.Split(spec, ",") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		platform, ok := models.ParsePlatform(strings.TrimSpace(name))
		if !ok {
			continue
		}
		if d, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && d >= 0 {
			delays[platform] = d
		}
	}
}
