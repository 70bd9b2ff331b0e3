// Package retry runs crawl attempts with linear backoff. Platform rate
// limiters respond badly to bursty exponential retries, so the wait grows by
// a fixed step per attempt instead.
package retry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// Config defines retry behavior.
type Config struct {
	MaxAttempts          int           // Total attempts, including the first
	BackoffStep          time.Duration // Wait is BackoffStep * attempt number
	RetryableStatusCodes []int         // HTTP status codes that trigger retry
}

// DefaultConfig returns the retry configuration used for all platforms.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		BackoffStep: 3 * time.Second,
		RetryableStatusCodes: []int{
			http.StatusForbidden,           // 403, usually anti-bot, worth one more try
			http.StatusTooManyRequests,     // 429
			http.StatusInternalServerError, // 500
			http.StatusBadGateway,          // 502
			http.StatusServiceUnavailable,  // 503
			http.StatusGatewayTimeout,      // 504
		},
	}
}

// Permanent wraps an error so WithRetry gives up immediately. Used for
// terminal conditions like a 404: retrying a deleted post only burns quota.
type Permanent struct {
	Err error
}

func (p Permanent) Error() string { return p.Err.Error() }
func (p Permanent) Unwrap() error { return p.Err }

// WithRetry executes fn up to cfg.MaxAttempts times. Between attempt n and
// n+1 it sleeps BackoffStep*n, so the default schedule is 3s then 6s.
func WithRetry(ctx context.Context, cfg Config, fn func() error) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 1 {
				log.Debug().Int("attempts", attempt).Msg("Retry succeeded")
			}
			return nil
		}
		lastErr = err

		var perm Permanent
		if errors.As(err, &perm) {
			return perm.Err
		}
		if !shouldRetry(err, cfg) {
			log.Debug().Err(err).Msg("Error is not retryable")
			return err
		}

		if attempt < cfg.MaxAttempts {
			backoff := cfg.BackoffStep * time.Duration(attempt)
			log.Debug().
				Int("attempt", attempt).
				Int("max_attempts", cfg.MaxAttempts).
				Dur("backoff", backoff).
				Err(err).
				Msg("Retrying after backoff")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	log.Warn().Int("attempts", cfg.MaxAttempts).Err(lastErr).Msg("Max retry attempts exceeded")
	return fmt.Errorf("operation failed after %d attempts: %w", cfg.MaxAttempts, lastErr)
}

// StatusCoder is implemented by errors carrying an HTTP status code.
type StatusCoder interface {
	GetStatusCode() int
}

func shouldRetry(err error, cfg Config) bool {
	if err == nil {
		return false
	}

	var sc StatusCoder
	if errors.As(err, &sc) {
		for _, code := range cfg.RetryableStatusCodes {
			if sc.GetStatusCode() == code {
				return true
			}
		}
		return false
	}

	if isTimeoutError(err) {
		return true
	}

	if tempErr, ok := err.(interface{ Temporary() bool }); ok {
		return tempErr.Temporary()
	}

	// Default: retry. Unknown failures on flaky platform pages are more
	// often transient than terminal.
	return true
}

func isTimeoutError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var timeoutErr interface{ Timeout() bool }
	if errors.As(err, &timeoutErr) {
		return timeoutErr.Timeout()
	}
	return false
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("HTTP %d: %s - %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Status)
}

func (e HTTPError) GetStatusCode() int {
	return e.StatusCode
}

// NewHTTPError creates a new HTTPError.
func NewHTTPError(statusCode int, status string, message string) HTTPError {
	return HTTPError{StatusCode: statusCode, Status: status, Message: message}
}
