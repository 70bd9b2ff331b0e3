package config

import (
	"time"

	"github.com/campaignpulse/pulse/pkg/models"
)

// Default constants for application configuration
const (
	DefaultLogLevel       = "info"
	DefaultJSONLog        = false
	DefaultNavTimeout     = 30 * time.Second
	DefaultRequestDelay   = 2 * time.Second
	DefaultRateLimitRPS   = 0.5
	DefaultRateLimitBurst = 1
	DefaultRetryAttempts  = 3
	DefaultRetryBackoff   = 3 * time.Second
	DefaultHeadless       = true
	DefaultCommentSample  = 10
	DefaultOutputFormat   = "markdown"
)

// DefaultPlatformDelays returns the per-platform inter-request delays.
// YouTube tolerates anonymous traffic well; the logged-in platforms get the
// longer pauses.
func DefaultPlatformDelays() map[models.Platform]time.Duration {
	return map[models.Platform]time.Duration{
		models.PlatformXiaohongshu: 3 * time.Second,
		models.PlatformYouTube:     1 * time.Second,
		models.PlatformInstagram:   3 * time.Second,
		models.PlatformFacebook:    3 * time.Second,
		models.PlatformDcard:       2 * time.Second,
	}
}
