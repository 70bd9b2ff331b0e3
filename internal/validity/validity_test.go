package validity

import (
	"testing"

	"github.com/campaignpulse/pulse/pkg/models"
)

func TestIsValidCommonSignals(t *testing.T) {
	for _, p := range models.AllPlatforms {
		r := &models.CrawlResult{Platform: p, Author: "creator"}
		if !IsValid(r) {
			t.Errorf("%s: author alone should be valid", p)
		}
		r = &models.CrawlResult{Platform: p, Likes: 1}
		if !IsValid(r) {
			t.Errorf("%s: likes alone should be valid", p)
		}
		r = &models.CrawlResult{Platform: p, Comments: 1}
		if !IsValid(r) {
			t.Errorf("%s: comments alone should be valid", p)
		}
		if IsValid(&models.CrawlResult{Platform: p}) {
			t.Errorf("%s: empty result should be invalid", p)
		}
	}
}

func TestIsValidRejectsErroredResult(t *testing.T) {
	// Partial data scraped before the failure must not count as success.
	r := &models.CrawlResult{Platform: models.PlatformInstagram, Author: "someone", Likes: 10}
	r.SetError(models.ErrKindUnknown, "strategy chain failed")
	if IsValid(r) {
		t.Fatal("result with a recorded error must be invalid")
	}
	if got := FailureReason(r); got == ReasonNone {
		t.Fatal("errored result must carry a failure reason")
	}
}

func TestIsValidPlatformSpecificSignals(t *testing.T) {
	if !IsValid(&models.CrawlResult{Platform: models.PlatformXiaohongshu, Favorites: 3}) {
		t.Error("xiaohongshu favorites should count")
	}
	if IsValid(&models.CrawlResult{Platform: models.PlatformDcard, Favorites: 3}) {
		t.Error("dcard has no favorites metric")
	}
	if !IsValid(&models.CrawlResult{Platform: models.PlatformYouTube, Views: models.IntPtr(500)}) {
		t.Error("youtube views should count")
	}
	if IsValid(&models.CrawlResult{Platform: models.PlatformDcard, Views: models.IntPtr(500)}) {
		t.Error("dcard views should not count")
	}
	if !IsValid(&models.CrawlResult{Platform: models.PlatformFacebook, Shares: models.IntPtr(2)}) {
		t.Error("facebook shares should count")
	}
	if IsValid(&models.CrawlResult{Platform: models.PlatformYouTube, Shares: models.IntPtr(2)}) {
		t.Error("youtube shares should not count")
	}
}

func TestFailureReasonFromKind(t *testing.T) {
	cases := []struct {
		kind models.ErrorKind
		want Reason
	}{
		{models.ErrKindNotFound, ReasonPostNotFound},
		{models.ErrKindRateLimited, ReasonRateLimited},
		{models.ErrKindSessionExpired, ReasonAuthRequired},
		{models.ErrKindChallengeRequired, ReasonBotChallenge},
		{models.ErrKindEnvironmentRestrict, ReasonEnvRestricted},
		{models.ErrKindTransientNetwork, ReasonTimeout},
	}
	for _, c := range cases {
		r := &models.CrawlResult{Platform: models.PlatformDcard}
		r.SetError(c.kind, "boom")
		if got := FailureReason(r); got != c.want {
			t.Errorf("kind %s: got %s, want %s", c.kind, got, c.want)
		}
	}
}

func TestFailureReasonFromMessage(t *testing.T) {
	cases := []struct {
		msg  string
		want Reason
	}{
		{"post not found on page", ReasonPostNotFound},
		{"context deadline exceeded", ReasonTimeout},
		{"QR code still visible after wait", ReasonAuthRequired},
		{"missing web_session cookie", ReasonAuthRequired},
		{"HTTP 429 too many requests", ReasonRateLimited},
		{"stuck on Just a moment page", ReasonBotChallenge},
		{"something exploded", ReasonCrawlerFailure},
	}
	for _, c := range cases {
		r := &models.CrawlResult{Platform: models.PlatformInstagram}
		r.SetError(models.ErrKindUnknown, c.msg)
		if got := FailureReason(r); got != c.want {
			t.Errorf("%q: got %s, want %s", c.msg, got, c.want)
		}
	}
}

func TestFailureReasonValidAndEmpty(t *testing.T) {
	valid := &models.CrawlResult{Platform: models.PlatformYouTube, Author: "x"}
	if got := FailureReason(valid); got != ReasonNone {
		t.Errorf("valid result: got %s", got)
	}
	empty := &models.CrawlResult{Platform: models.PlatformYouTube}
	if got := FailureReason(empty); got != ReasonNoSignal {
		t.Errorf("empty result: got %s", got)
	}
}
