package config

import (
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/campaignpulse/pulse/pkg/models"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.NavTimeout != DefaultNavTimeout || cfg.RequestDelay != DefaultRequestDelay {
		t.Fatalf("cfg = %+v", cfg)
	}
	if !cfg.Headless {
		t.Fatal("headless must default on")
	}
	if cfg.OutputFormat != "markdown" {
		t.Fatalf("format = %q", cfg.OutputFormat)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PULSE_REQUEST_DELAY", "5s")
	t.Setenv("PULSE_HEADLESS", "false")
	cfg, err := Load(nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.RequestDelay != 5*time.Second {
		t.Fatalf("delay = %s", cfg.RequestDelay)
	}
	if cfg.Headless {
		t.Fatal("env override ignored")
	}
}

func TestLoadFlagOverrides(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	RegisterFlags(cmd)
	// Flags registered as persistent need to be looked up via Flags() on
	// the same command after parsing.
	if err := cmd.ParseFlags([]string{"--delay=7s", "--verbose", "--headful"}); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(cmd)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.RequestDelay != 7*time.Second {
		t.Fatalf("delay = %s", cfg.RequestDelay)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("level = %q", cfg.LogLevel)
	}
	if cfg.Headless {
		t.Fatal("headful flag ignored")
	}
}

func TestLoadPlatformDelayEnv(t *testing.T) {
	t.Setenv("PULSE_PLATFORM_DELAYS", "youtube=500ms, facebook=9s, nosuch=1s, dcard=oops")
	cfg, err := Load(nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.PlatformDelays[models.PlatformYouTube] != 500*time.Millisecond {
		t.Fatalf("youtube delay = %s", cfg.PlatformDelays[models.PlatformYouTube])
	}
	if cfg.PlatformDelays[models.PlatformFacebook] != 9*time.Second {
		t.Fatalf("facebook delay = %s", cfg.PlatformDelays[models.PlatformFacebook])
	}
	// Bad entries leave the defaults alone.
	if cfg.PlatformDelays[models.PlatformDcard] != DefaultPlatformDelays()[models.PlatformDcard] {
		t.Fatalf("dcard delay = %s", cfg.PlatformDelays[models.PlatformDcard])
	}
}

func TestLoadDelayFlagOverridesPlatformDelays(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	RegisterFlags(cmd)
	if err := cmd.ParseFlags([]string{"--delay=7s"}); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(cmd)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.RequestDelay != 7*time.Second {
		t.Fatalf("delay = %s", cfg.RequestDelay)
	}
	if cfg.PlatformDelays != nil {
		t.Fatal("explicit --delay must win over per-platform defaults")
	}
}

func TestLoadRestrictedFlag(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	RegisterFlags(cmd)
	if err := cmd.ParseFlags([]string{"--restricted"}); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(cmd)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Restricted {
		t.Fatal("restricted flag ignored")
	}
}

func TestValidateRejectsBadFormat(t *testing.T) {
	cfg := &Config{
		NavTimeout:    DefaultNavTimeout,
		RetryAttempts: 1,
		OutputFormat:  "yaml",
	}
	if err := validate(cfg); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}
