package translate

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"golang.org/x/time/rate"
)

// RateLimited wraps a Translator with rate limiting and retry capabilities
type RateLimited struct {
	next        Translator
	rateLimiter *rate.Limiter
	maxRetries  int
	backoffMin  time.Duration
	backoffMax  time.Duration
}

// RateLimitConfig holds configuration for rate limiting and retries
type RateLimitConfig struct {
	// RequestsPerMinute is the maximum number of requests allowed per minute
	// If 0 or negative, no rate limiting is applied
	RequestsPerMinute float64

	// MaxRetries is the maximum number of retry attempts
	// If 0 or negative, no retries are attempted
	MaxRetries int

	// BackoffMinWait is the first retry delay, doubled on every attempt
	// Defaults to 1 second if not specified
	BackoffMinWait time.Duration

	// BackoffMaxWait is the maximum wait time between retries
	// Defaults to 30 seconds if not specified
	BackoffMaxWait time.Duration
}

// NewRateLimited creates a new rate-limited translator
func NewRateLimited(next Translator, config RateLimitConfig) *RateLimited {
	var limiter *rate.Limiter
	if config.RequestsPerMinute > 0 {
		rps := rate.Limit(config.RequestsPerMinute / 60.0)
		limiter = rate.NewLimiter(rps, 1)
	}

	maxRetries := config.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	backoffMin := config.BackoffMinWait
	if backoffMin <= 0 {
		backoffMin = 1 * time.Second
	}
	backoffMax := config.BackoffMaxWait
	if backoffMax <= 0 {
		backoffMax = 30 * time.Second
	}

	return &RateLimited{
		next:        next,
		rateLimiter: limiter,
		maxRetries:  maxRetries,
		backoffMin:  backoffMin,
		backoffMax:  backoffMax,
	}
}

// Unwrap returns the wrapped translator
func (r *RateLimited) Unwrap() Translator { return r.next }

// Translate waits for the limiter, then calls the wrapped translator,
// retrying failures with exponential backoff and jitter.
func (r *RateLimited) Translate(ctx context.Context, text, source, target string) (string, error) {
	var lastErr error
	attempt := 0

	for {
		if r.rateLimiter != nil {
			if err := r.rateLimiter.Wait(ctx); err != nil {
				return "", fmt.Errorf("rate limiter wait failed: %w", err)
			}
		}

		translated, err := r.next.Translate(ctx, text, source, target)
		if err == nil {
			return translated, nil
		}
		lastErr = err

		if attempt >= r.maxRetries {
			if attempt > 0 {
				return "", fmt.Errorf("all retry attempts failed, last error: %w", lastErr)
			}
			return "", err
		}

		backoff := r.backoffMin * time.Duration(1<<uint(attempt))
		if backoff > r.backoffMax {
			backoff = r.backoffMax
		}
		// +/- 20%
		jitter := time.Duration(float64(backoff) * (0.8 + 0.4*rand.Float64()))

		log.WithError(err).WithField("attempt", attempt+1).Debug("Translation failed, retrying")

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(jitter):
			attempt++
		}
	}
}
