package chain

import (
	"errors"
	"fmt"

	"github.com/campaignpulse/pulse/pkg/models"
)

// Common chain errors.
var (
	ErrPostNotFound     = errors.New("post not found")
	ErrSessionExpired   = errors.New("session expired or login required")
	ErrChallengeBlocked = errors.New("blocked by bot challenge")
	ErrEnvRestricted    = errors.New("interactive step unavailable in restricted environment")
	ErrNoStrategies     = errors.New("no strategies configured")
)

// CrawlError wraps a strategy failure with its classification.
type CrawlError struct {
	Kind       models.ErrorKind
	Message    string
	Underlying error
}

func (e *CrawlError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Underlying)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *CrawlError) Unwrap() error { return e.Underlying }

func (e *CrawlError) Is(target error) bool {
	if t, ok := target.(*CrawlError); ok {
		return e.Kind == t.Kind
	}
	return errors.Is(e.Underlying, target)
}

// NewCrawlError creates a classified crawl error.
func NewCrawlError(kind models.ErrorKind, message string, err error) *CrawlError {
	return &CrawlError{Kind: kind, Message: message, Underlying: err}
}

// Classify maps an arbitrary strategy error to an ErrorKind. CrawlError
// instances keep their own kind; the sentinel errors map directly; anything
// else is unknown.
func Classify(err error) models.ErrorKind {
	if err == nil {
		return models.ErrKindNone
	}
	var ce *CrawlError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	switch {
	case errors.Is(err, ErrPostNotFound):
		return models.ErrKindNotFound
	case errors.Is(err, ErrSessionExpired):
		return models.ErrKindSessionExpired
	case errors.Is(err, ErrChallengeBlocked):
		return models.ErrKindChallengeRequired
	case errors.Is(err, ErrEnvRestricted):
		return models.ErrKindEnvironmentRestrict
	}
	return models.ErrKindUnknown
}

// Terminal reports whether an error must stop the whole chain: later
// strategies cannot recover from a deleted post or a restricted environment.
func Terminal(err error) bool {
	switch Classify(err) {
	case models.ErrKindNotFound, models.ErrKindEnvironmentRestrict:
		return true
	}
	return false
}
