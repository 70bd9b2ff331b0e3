// Package models defines the shared data types exchanged between the
// per-platform crawlers, the extraction chain, and the reporting layer.
package models

import (
	"time"
	"unicode/utf8"
)

// Platform identifies one of the supported social platforms.
type Platform string

const (
	PlatformXiaohongshu Platform = "xiaohongshu"
	PlatformYouTube     Platform = "youtube"
	PlatformInstagram   Platform = "instagram"
	PlatformFacebook    Platform = "facebook"
	PlatformDcard       Platform = "dcard"
)

// AllPlatforms lists every supported platform in a stable order.
var AllPlatforms = []Platform{
	PlatformXiaohongshu,
	PlatformYouTube,
	PlatformInstagram,
	PlatformFacebook,
	PlatformDcard,
}

// ParsePlatform converts a string to a Platform. Returns false for
// unsupported values.
func ParsePlatform(s string) (Platform, bool) {
	switch Platform(s) {
	case PlatformXiaohongshu, PlatformYouTube, PlatformInstagram,
		PlatformFacebook, PlatformDcard:
		return Platform(s), true
	}
	return "", false
}

// DisplayName returns the human-readable platform name used in reports.
func (p Platform) DisplayName() string {
	switch p {
	case PlatformXiaohongshu:
		return "Xiaohongshu (RED)"
	case PlatformYouTube:
		return "YouTube"
	case PlatformInstagram:
		return "Instagram"
	case PlatformFacebook:
		return "Facebook"
	case PlatformDcard:
		return "Dcard"
	}
	return string(p)
}

// PostReference is a normalized pointer to one post. It is produced by the
// URL classification layer and consumed once per crawl attempt.
type PostReference struct {
	URL      string   `json:"url"`
	Platform Platform `json:"platform"`
	PostID   string   `json:"post_id,omitempty"`
}

// Comment is a single sampled comment embedded in a CrawlResult.
type Comment struct {
	Author string `json:"author"`
	Text   string `json:"text"`
	Likes  *int   `json:"likes,omitempty"`
}

// ErrorKind classifies a crawl failure. The empty value means no error.
type ErrorKind string

const (
	ErrKindNone                ErrorKind = ""
	ErrKindNotFound            ErrorKind = "not_found"
	ErrKindRateLimited         ErrorKind = "rate_limited"
	ErrKindTransientNetwork    ErrorKind = "transient_network"
	ErrKindSessionExpired      ErrorKind = "session_expired"
	ErrKindChallengeRequired   ErrorKind = "challenge_required"
	ErrKindEnvironmentRestrict ErrorKind = "environment_restricted"
	ErrKindValidation          ErrorKind = "validation_error"
	ErrKindUnknown             ErrorKind = "unknown"
)

// CrawlResult holds the engagement metrics collected for one post.
//
// Numeric fields default to 0 and are never negative. Shares and Views are
// pointers because "platform does not expose this metric" (nil) is distinct
// from "metric is zero" (0). Error and ErrorKind are always set together.
type CrawlResult struct {
	Platform     Platform  `json:"platform"`
	URL          string    `json:"url"`
	PostID       string    `json:"post_id,omitempty"`
	Author       string    `json:"author,omitempty"`
	Title        string    `json:"title,omitempty"`
	Content      string    `json:"content,omitempty"`
	Likes        int       `json:"likes"`
	Comments     int       `json:"comments"`
	Shares       *int      `json:"shares,omitempty"`
	Favorites    int       `json:"favorites"`
	Views        *int      `json:"views,omitempty"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	CommentsList []Comment `json:"comments_list,omitempty"`
	CrawledAt    time.Time `json:"crawled_at"`
	Error        string    `json:"error,omitempty"`
	ErrorKind    ErrorKind `json:"error_kind,omitempty"`
}

// NewResult constructs the accumulator for one crawl attempt.
func NewResult(ref PostReference) *CrawlResult {
	return &CrawlResult{
		Platform:  ref.Platform,
		URL:       ref.URL,
		PostID:    ref.PostID,
		CrawledAt: time.Now(),
	}
}

// SetError records a failure on the result. The message is truncated so raw
// driver or selector noise never reaches a report verbatim.
func (r *CrawlResult) SetError(kind ErrorKind, msg string) {
	const maxErrLen = 200
	if len(msg) > maxErrLen {
		// Back up to a rune boundary so a CJK message is never cut
		// mid-character.
		cut := maxErrLen
		for cut > 0 && !utf8.RuneStart(msg[cut]) {
			cut--
		}
		msg = msg[:cut]
	}
	r.Error = msg
	r.ErrorKind = kind
}

// IntPtr returns a pointer to v. Convenience for the nullable metric fields.
func IntPtr(v int) *int { return &v }

// Merge folds a later, lower-priority partial result into r using
// fill-only-if-absent semantics: a field already set by an earlier strategy
// is never overwritten. Numeric fields count as set once nonzero, pointer
// fields once non-nil.
func (r *CrawlResult) Merge(p *CrawlResult) {
	if p == nil {
		return
	}
	if r.Author == "" {
		r.Author = p.Author
	}
	if r.Title == "" {
		r.Title = p.Title
	}
	if r.Content == "" {
		r.Content = p.Content
	}
	if r.PostID == "" {
		r.PostID = p.PostID
	}
	if r.Likes == 0 {
		r.Likes = p.Likes
	}
	if r.Comments == 0 {
		r.Comments = p.Comments
	}
	if r.Favorites == 0 {
		r.Favorites = p.Favorites
	}
	if r.Shares == nil {
		r.Shares = p.Shares
	}
	if r.Views == nil {
		r.Views = p.Views
	}
	if r.ThumbnailURL == "" {
		r.ThumbnailURL = p.ThumbnailURL
	}
	if len(r.CommentsList) == 0 {
		r.CommentsList = p.CommentsList
	}
}

// Empty reports whether nothing beyond the post identity has been filled.
// Strategies use it to distinguish "extracted nothing" from a real partial.
func (r *CrawlResult) Empty() bool {
	return r.Author == "" && r.Title == "" && r.Content == "" &&
		r.Likes == 0 && r.Comments == 0 && r.Favorites == 0 &&
		r.Shares == nil && r.Views == nil && r.ThumbnailURL == "" &&
		len(r.CommentsList) == 0
}

// Sufficient reports whether the result is complete enough for a chain to
// stop early: an author plus at least one nonzero engagement figure.
func (r *CrawlResult) Sufficient() bool {
	if r.Author == "" {
		return false
	}
	if r.Likes > 0 || r.Comments > 0 || r.Favorites > 0 {
		return true
	}
	if r.Shares != nil && *r.Shares > 0 {
		return true
	}
	if r.Views != nil && *r.Views > 0 {
		return true
	}
	return false
}

// CapComments trims the sampled comment list to max entries, preserving
// extraction order.
func (r *CrawlResult) CapComments(max int) {
	if max > 0 && len(r.CommentsList) > max {
		r.CommentsList = r.CommentsList[:max]
	}
}
