package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/campaignpulse/pulse/pkg/models"
)

func TestPlatformLimiterIsolation(t *testing.T) {
	pl := NewPlatformLimiter(0.001, 1)

	if !pl.Allow(models.PlatformDcard) {
		t.Fatal("first dcard request should pass")
	}
	if pl.Allow(models.PlatformDcard) {
		t.Fatal("second immediate dcard request should be limited")
	}
	// Another platform has its own bucket.
	if !pl.Allow(models.PlatformYouTube) {
		t.Fatal("youtube must not share dcard's bucket")
	}
}

func TestPlatformLimiterWaitCancel(t *testing.T) {
	pl := NewPlatformLimiter(0.001, 1)
	if err := pl.Wait(context.Background(), models.PlatformInstagram); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := pl.Wait(ctx, models.PlatformInstagram); err == nil {
		t.Fatal("expected context error while waiting for token")
	}
}

func TestSetLimit(t *testing.T) {
	pl := NewPlatformLimiter(0.001, 1)
	pl.Allow(models.PlatformFacebook)
	pl.SetLimit(models.PlatformFacebook, 1000, 10)
	if !pl.Allow(models.PlatformFacebook) {
		t.Fatal("raised limit should allow immediately")
	}
}

func TestPacerSkipsFirstPause(t *testing.T) {
	p := NewPacer(time.Hour, nil)
	start := time.Now()
	if err := p.Pause(context.Background(), models.PlatformDcard); err != nil {
		t.Fatal(err)
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Fatal("first pause must not sleep")
	}
}

func TestPacerDelaysSubsequentPauses(t *testing.T) {
	p := NewPacer(20*time.Millisecond, nil)
	_ = p.Pause(context.Background(), models.PlatformDcard)
	start := time.Now()
	if err := p.Pause(context.Background(), models.PlatformDcard); err != nil {
		t.Fatal(err)
	}
	if time.Since(start) < 15*time.Millisecond {
		t.Fatal("second pause should sleep the configured delay")
	}
}

func TestPacerPerPlatformDelay(t *testing.T) {
	p := NewPacer(time.Hour, map[models.Platform]time.Duration{
		models.PlatformYouTube: 20 * time.Millisecond,
	})
	_ = p.Pause(context.Background(), models.PlatformYouTube)

	// The platform override applies instead of the hour-long default.
	start := time.Now()
	if err := p.Pause(context.Background(), models.PlatformYouTube); err != nil {
		t.Fatal(err)
	}
	elapsed := time.Since(start)
	if elapsed < 15*time.Millisecond {
		t.Fatal("override delay should still sleep")
	}
	if elapsed > time.Second {
		t.Fatal("default delay used despite platform override")
	}
}

func TestPacerCancel(t *testing.T) {
	p := NewPacer(time.Hour, nil)
	_ = p.Pause(context.Background(), models.PlatformDcard)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Pause(ctx, models.PlatformDcard); err == nil {
		t.Fatal("expected context error")
	}
}
