package chain

import (
	"context"
	"errors"
	"testing"

	"github.com/campaignpulse/pulse/pkg/models"
)

func ref() models.PostReference {
	return models.PostReference{
		URL:      "https://www.dcard.tw/f/mood/p/1",
		Platform: models.PlatformDcard,
		PostID:   "1",
	}
}

func stub(name string, r *models.CrawlResult, err error) Strategy {
	return Func{
		StrategyName: name,
		Fn: func(context.Context, models.PostReference) (*models.CrawlResult, error) {
			return r, err
		},
	}
}

func TestRunMergesFillOnlyIfAbsent(t *testing.T) {
	first := &models.CrawlResult{Likes: 10}
	second := &models.CrawlResult{Author: "alice", Likes: 999, Comments: 5}

	c := New(models.PlatformDcard, []Strategy{
		stub("a", first, nil),
		stub("b", second, nil),
	}, WithEarlyStop(false))

	got := c.Run(context.Background(), ref())
	if got.Likes != 10 {
		t.Errorf("earlier strategy overwritten: likes = %d", got.Likes)
	}
	if got.Author != "alice" || got.Comments != 5 {
		t.Errorf("gap not filled: %+v", got)
	}
	if got.Error != "" {
		t.Errorf("unexpected error: %s", got.Error)
	}
}

func TestRunEarlyStop(t *testing.T) {
	called := false
	c := New(models.PlatformDcard, []Strategy{
		stub("a", &models.CrawlResult{Author: "bob", Likes: 3}, nil),
		Func{StrategyName: "b", Fn: func(context.Context, models.PostReference) (*models.CrawlResult, error) {
			called = true
			return nil, nil
		}},
	})

	got := c.Run(context.Background(), ref())
	if called {
		t.Error("second strategy ran despite sufficient result")
	}
	if !got.Sufficient() {
		t.Error("result should be sufficient")
	}
}

func TestRunContinuesPastFailures(t *testing.T) {
	c := New(models.PlatformDcard, []Strategy{
		stub("a", nil, errors.New("selector missing")),
		stub("b", &models.CrawlResult{Author: "carol"}, nil),
	})

	got := c.Run(context.Background(), ref())
	if got.Author != "carol" {
		t.Fatalf("fallback did not run: %+v", got)
	}
	if got.Error != "" {
		t.Errorf("partial success must clear error, got %q", got.Error)
	}
}

func TestRunNotFoundShortCircuits(t *testing.T) {
	called := false
	c := New(models.PlatformDcard, []Strategy{
		stub("a", nil, NewCrawlError(models.ErrKindNotFound, "gone", ErrPostNotFound)),
		Func{StrategyName: "b", Fn: func(context.Context, models.PostReference) (*models.CrawlResult, error) {
			called = true
			return &models.CrawlResult{Author: "x"}, nil
		}},
	})

	got := c.Run(context.Background(), ref())
	if called {
		t.Error("strategy ran after terminal not-found")
	}
	if got.ErrorKind != models.ErrKindNotFound {
		t.Errorf("kind = %s", got.ErrorKind)
	}
}

func TestRunAllFailReportsLastError(t *testing.T) {
	c := New(models.PlatformDcard, []Strategy{
		stub("a", nil, errors.New("first")),
		stub("b", nil, NewCrawlError(models.ErrKindRateLimited, "slow down", nil)),
	})

	got := c.Run(context.Background(), ref())
	if got.ErrorKind != models.ErrKindRateLimited {
		t.Errorf("kind = %s, want rate_limited", got.ErrorKind)
	}
	if got.Error == "" {
		t.Error("error message missing")
	}
}

func TestRunEmptyChain(t *testing.T) {
	c := New(models.PlatformDcard, nil)
	got := c.Run(context.Background(), ref())
	if got.ErrorKind != models.ErrKindValidation {
		t.Errorf("kind = %s", got.ErrorKind)
	}
}

func TestClassify(t *testing.T) {
	if Classify(nil) != models.ErrKindNone {
		t.Error("nil should classify as none")
	}
	if Classify(ErrSessionExpired) != models.ErrKindSessionExpired {
		t.Error("sentinel mapping failed")
	}
	wrapped := NewCrawlError(models.ErrKindChallengeRequired, "cf", errors.New("inner"))
	if Classify(wrapped) != models.ErrKindChallengeRequired {
		t.Error("CrawlError kind not preserved")
	}
	if Classify(errors.New("mystery")) != models.ErrKindUnknown {
		t.Error("unknown errors should classify as unknown")
	}
}
