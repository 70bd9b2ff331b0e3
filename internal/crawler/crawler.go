// Package crawler defines the per-platform crawler contract and the
// sequential batch runner that drives them.
package crawler

import (
	"context"
	"fmt"

	"github.com/campaignpulse/pulse/pkg/models"
)

// PlatformCrawler crawls one post on one platform. Implementations never
// return an error from Crawl: failures are recorded on the result so a
// batch always yields one result per input.
type PlatformCrawler interface {
	Platform() models.Platform
	Crawl(ctx context.Context, ref models.PostReference) *models.CrawlResult
}

// Registry maps platforms to their crawlers.
type Registry struct {
	crawlers map[models.Platform]PlatformCrawler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{crawlers: make(map[models.Platform]PlatformCrawler)}
}

// Register adds a crawler. Registering a platform twice panics: that is a
// wiring bug, not a runtime condition.
func (r *Registry) Register(c PlatformCrawler) {
	if _, dup := r.crawlers[c.Platform()]; dup {
		panic(fmt.Sprintf("crawler for %s registered twice", c.Platform()))
	}
	r.crawlers[c.Platform()] = c
}

// Get returns the crawler for a platform.
func (r *Registry) Get(platform models.Platform) (PlatformCrawler, bool) {
	c, ok := r.crawlers[platform]
	return c, ok
}

// Platforms lists the registered platforms in the canonical order.
func (r *Registry) Platforms() []models.Platform {
	var out []models.Platform
	for _, p := range models.AllPlatforms {
		if _, ok := r.crawlers[p]; ok {
			out = append(out, p)
		}
	}
	return out
}
