// Package report aggregates crawl results into campaign metrics and writes
// them out as JSON, CSV, markdown and an HTML chart page.
package report

import (
	"time"

	"github.com/campaignpulse/pulse/internal/validity"
	"github.com/campaignpulse/pulse/pkg/models"
)

// Entry pairs one result with its validity classification.
type Entry struct {
	Result *models.CrawlResult `json:"result"`
	Valid  bool                `json:"valid"`
	Reason validity.Reason     `json:"failure_reason,omitempty"`
}

// PlatformSummary totals one platform's valid results.
type PlatformSummary struct {
	Platform models.Platform `json:"platform"`
	Posts    int             `json:"posts"`
	Valid    int             `json:"valid"`
	Likes    int             `json:"likes"`
	Comments int             `json:"comments"`
	Shares   int             `json:"shares"`
	Views    int             `json:"views"`
	Favorite int             `json:"favorites"`
}

// Engagements is the sum of all countable interactions.
func (s PlatformSummary) Engagements() int {
	return s.Likes + s.Comments + s.Shares + s.Favorite
}

// CampaignReport is the full aggregation over one batch.
type CampaignReport struct {
	GeneratedAt time.Time               `json:"generated_at"`
	Total       int                     `json:"total"`
	ValidCount  int                     `json:"valid"`
	Platforms   []PlatformSummary       `json:"platforms"`
	Failures    map[validity.Reason]int `json:"failures,omitempty"`
	Entries     []Entry                 `json:"entries"`
}

// Build classifies and aggregates results. Only valid results contribute to
// the engagement totals; invalid ones are tallied by failure reason so a
// report never silently averages garbage in.
func Build(results []*models.CrawlResult) *CampaignReport {
	r := &CampaignReport{
		GeneratedAt: time.Now(),
		Total:       len(results),
		Failures:    make(map[validity.Reason]int),
	}

	byPlatform := make(map[models.Platform]*PlatformSummary)
	for _, res := range results {
		valid := validity.IsValid(res)
		entry := Entry{Result: res, Valid: valid}
		if !valid {
			entry.Reason = validity.FailureReason(res)
			r.Failures[entry.Reason]++
		}
		r.Entries = append(r.Entries, entry)

		summary, ok := byPlatform[res.Platform]
		if !ok {
			summary = &PlatformSummary{Platform: res.Platform}
			byPlatform[res.Platform] = summary
		}
		summary.Posts++
		if !valid {
			continue
		}
		r.ValidCount++
		summary.Valid++
		summary.Likes += res.Likes
		summary.Comments += res.Comments
		summary.Favorite += res.Favorites
		if res.Shares != nil {
			summary.Shares += *res.Shares
		}
		if res.Views != nil {
			summary.Views += *res.Views
		}
	}

	for _, p := range models.AllPlatforms {
		if summary, ok := byPlatform[p]; ok {
			r.Platforms = append(r.Platforms, *summary)
		}
	}
	return r
}
