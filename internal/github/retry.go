package github

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	gh "github.com/google/go-github/v66/github"
)

const (
	// Default retry configuration for read calls
	defaultMaxRetries   = 3
	defaultInitialDelay = 500 * time.Millisecond
)

// retryPolicy is shared by every RepoTools instance; tests shorten the delay.
var retryPolicy = struct {
	maxRetries   int
	initialDelay time.Duration
}{defaultMaxRetries, defaultInitialDelay}

// retryRead runs fn with exponential backoff while it fails with a transient
// error. Writes are not retried: a commit that timed out may have landed.
func retryRead(ctx context.Context, op string, fn func() error) error {
	var lastErr error
	delay := retryPolicy.initialDelay

	for attempt := 0; attempt <= retryPolicy.maxRetries; attempt++ {
		if attempt > 0 {
			log.Printf("[Retry] %s attempt %d/%d after %v delay", op, attempt+1, retryPolicy.maxRetries+1, delay)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil || !isRetryableError(lastErr) {
			return lastErr
		}
	}

	log.Printf("[Retry] %s failed after %d attempts: %v", op, retryPolicy.maxRetries+1, lastErr)
	return lastErr
}

// isRetryableError reports whether err looks transient: a network failure, a
// GitHub 5xx, or secondary rate limiting.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var abuse *gh.AbuseRateLimitError
	if errors.As(err, &abuse) {
		return true
	}
	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		return ghErr.Response.StatusCode >= http.StatusInternalServerError
	}

	errStr := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"eof",
		"timeout",
		"connection refused",
		"temporary failure",
		"connection reset",
		"broken pipe",
		"no such host",
		"network is unreachable",
	}
	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}
