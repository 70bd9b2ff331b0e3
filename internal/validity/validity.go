// Package validity decides whether a crawl result carries real signal and,
// when it does not, maps the failure into a stable reason category for
// reporting.
package validity

import (
	"strings"

	"github.com/campaignpulse/pulse/pkg/models"
)

// Reason categorizes why a result is invalid.
type Reason string

const (
	ReasonNone           Reason = ""
	ReasonPostNotFound   Reason = "post_not_found"
	ReasonTimeout        Reason = "timeout"
	ReasonAuthRequired   Reason = "auth_required"
	ReasonRateLimited    Reason = "rate_limited"
	ReasonBotChallenge   Reason = "bot_challenge"
	ReasonEnvRestricted  Reason = "environment_restricted"
	ReasonNoSignal       Reason = "no_signal"
	ReasonCrawlerFailure Reason = "crawler_failure"
)

// IsValid reports whether r extracted at least one meaningful signal. A
// recorded error always invalidates the result, whatever partial data came
// along with it. Past that, the acceptable signals differ per platform: a
// platform only counts a metric it actually exposes, so a zero in a metric
// the platform never shows does not make a result valid or invalid by
// itself.
func IsValid(r *models.CrawlResult) bool {
	if r == nil {
		return false
	}
	if r.Error != "" || r.ErrorKind != models.ErrKindNone {
		return false
	}
	if r.Author != "" {
		return true
	}
	if r.Likes > 0 || r.Comments > 0 {
		return true
	}
	switch r.Platform {
	case models.PlatformXiaohongshu:
		return r.Favorites > 0
	case models.PlatformYouTube:
		return r.Views != nil && *r.Views > 0
	case models.PlatformFacebook:
		return r.Shares != nil && *r.Shares > 0
	case models.PlatformInstagram:
		return r.Views != nil && *r.Views > 0
	}
	return false
}

// Substring → reason table, checked in order. First match wins, so the more
// specific markers come before the generic ones.
var reasonMarkers = []struct {
	needle string
	reason Reason
}{
	{"not found", ReasonPostNotFound},
	{"404", ReasonPostNotFound},
	{"deleted", ReasonPostNotFound},
	{"unavailable", ReasonPostNotFound},
	{"deadline exceeded", ReasonTimeout},
	{"timeout", ReasonTimeout},
	{"timed out", ReasonTimeout},
	{"qr", ReasonAuthRequired},
	{"scan", ReasonAuthRequired},
	{"cookie", ReasonAuthRequired},
	{"login", ReasonAuthRequired},
	{"session", ReasonAuthRequired},
	{"rate limit", ReasonRateLimited},
	{"429", ReasonRateLimited},
	{"too many requests", ReasonRateLimited},
	{"cloudflare", ReasonBotChallenge},
	{"just a moment", ReasonBotChallenge},
	{"challenge", ReasonBotChallenge},
	{"captcha", ReasonBotChallenge},
	{"restricted environment", ReasonEnvRestricted},
	{"headless", ReasonEnvRestricted},
	{"no display", ReasonEnvRestricted},
}

// FailureReason classifies an invalid result. Structured error kinds are
// trusted first; the recorded message text is only consulted when the kind
// is missing or unknown.
func FailureReason(r *models.CrawlResult) Reason {
	if r == nil {
		return ReasonCrawlerFailure
	}
	if IsValid(r) {
		return ReasonNone
	}

	switch r.ErrorKind {
	case models.ErrKindNotFound:
		return ReasonPostNotFound
	case models.ErrKindRateLimited:
		return ReasonRateLimited
	case models.ErrKindSessionExpired:
		return ReasonAuthRequired
	case models.ErrKindChallengeRequired:
		return ReasonBotChallenge
	case models.ErrKindEnvironmentRestrict:
		return ReasonEnvRestricted
	case models.ErrKindTransientNetwork:
		return ReasonTimeout
	}

	if r.Error != "" {
		lower := strings.ToLower(r.Error)
		for _, m := range reasonMarkers {
			if strings.Contains(lower, m.needle) {
				return m.reason
			}
		}
		return ReasonCrawlerFailure
	}
	return ReasonNoSignal
}
