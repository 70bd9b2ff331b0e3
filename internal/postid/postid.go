// Package postid extracts the stable post identifier out of the URL shapes
// each platform uses. Platform APIs are keyed by these identifiers, so a
// failed extraction is a distinct failure mode the caller must handle.
package postid

import (
	"regexp"

	"github.com/campaignpulse/pulse/pkg/models"
)

// Each platform gets an ordered pattern list; the first capture group of the
// first matching pattern wins. Ordering matters: the more specific detail
// page shapes come before the loose trailing-segment fallbacks.
var patterns = map[models.Platform][]*regexp.Regexp{
	models.PlatformXiaohongshu: {
		regexp.MustCompile(`/explore/([0-9a-fA-F]{24})`),
		regexp.MustCompile(`/discovery/item/([0-9a-fA-F]{24})`),
		regexp.MustCompile(`xhslink\.com/([A-Za-z0-9]+)`),
	},
	models.PlatformYouTube: {
		regexp.MustCompile(`youtube\.com/watch\?.*?v=([A-Za-z0-9_-]{11})`),
		regexp.MustCompile(`youtube\.com/shorts/([A-Za-z0-9_-]{11})`),
		regexp.MustCompile(`youtu\.be/([A-Za-z0-9_-]{11})`),
		regexp.MustCompile(`youtube\.com/embed/([A-Za-z0-9_-]{11})`),
		regexp.MustCompile(`youtube\.com/v/([A-Za-z0-9_-]{11})`),
	},
	models.PlatformInstagram: {
		regexp.MustCompile(`instagram\.com/(?:[^/]+/)?p/([A-Za-z0-9_-]+)`),
		regexp.MustCompile(`instagram\.com/(?:[^/]+/)?reel/([A-Za-z0-9_-]+)`),
		regexp.MustCompile(`instagram\.com/(?:[^/]+/)?tv/([A-Za-z0-9_-]+)`),
	},
	models.PlatformFacebook: {
		regexp.MustCompile(`/posts/(pfbid[A-Za-z0-9]+|\d+)`),
		regexp.MustCompile(`story_fbid=(pfbid[A-Za-z0-9]+|\d+)`),
		regexp.MustCompile(`/videos/(\d+)`),
		regexp.MustCompile(`/reel/(\d+)`),
		regexp.MustCompile(`fbid=(\d+)`),
		regexp.MustCompile(`fb\.watch/([A-Za-z0-9_-]+)`),
	},
	models.PlatformDcard: {
		regexp.MustCompile(`/p/(\d+)`),
		regexp.MustCompile(`/@[^/]+/(\d+)`),
		regexp.MustCompile(`/(\d+)(?:-[^/]*)?/?$`),
	},
}

// Extract returns the post identifier embedded in url for the given
// platform. ok is false when no known pattern matches; callers that need an
// identifier for an API call must treat that as a terminal failure, not an
// empty success.
func Extract(url string, platform models.Platform) (id string, ok bool) {
	for _, re := range patterns[platform] {
		if m := re.FindStringSubmatch(url); m != nil {
			return m[1], true
		}
	}
	return "", false
}
