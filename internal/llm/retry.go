package llm

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RetryOptions represents configuration for retry behavior
type RetryOptions struct {
	MaxRetries     int           `mapstructure:"max_retries" json:"maxRetries"`
	BaseDelay      time.Duration `mapstructure:"base_delay" json:"baseDelay"`
	MaxDelay       time.Duration `mapstructure:"max_delay" json:"maxDelay"`
	RetryAllErrors bool          `mapstructure:"retry_all_errors" json:"retryAllErrors"`
}

// DefaultRetryOptions provides sensible defaults for retry behavior
var DefaultRetryOptions = RetryOptions{
	MaxRetries:     3,
	BaseDelay:      1 * time.Second,
	MaxDelay:       10 * time.Second,
	RetryAllErrors: false,
}

// RetryableError represents an error that can be retried
type RetryableError struct {
	Err        error
	StatusCode int
	Headers    map[string]string
	Retryable  bool
}

func (e *RetryableError) Error() string {
	return e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryableError creates a new retryable error
func NewRetryableError(err error, statusCode int, headers map[string]string) *RetryableError {
	retryable := statusCode == 429 || // Rate limit
		statusCode >= 500 || // Server errors
		statusCode == 408 // Request timeout

	return &RetryableError{
		Err:        err,
		StatusCode: statusCode,
		Headers:    headers,
		Retryable:  retryable,
	}
}

// WithRetry calls fn until it succeeds, returns a non-retryable error, runs
// out of attempts or ctx is done.
func WithRetry[T any](ctx context.Context, options RetryOptions, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	attempts := options.MaxRetries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !options.RetryAllErrors && !IsTransientError(err) {
			return zero, err
		}
		if attempt == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(calculateDelay(err, attempt, options)):
		}
	}
	return zero, lastErr
}

// IsTransientError reports errors worth another attempt: rate limits, server
// side failures and timeouts. Context cancellation is never transient.
func IsTransientError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var retryErr *RetryableError
	if errors.As(err, &retryErr) {
		return retryErr.Retryable
	}
	if IsRateLimitError(err) {
		return true
	}

	errMsg := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"error 500", "error 502", "error 503", "error 504",
		"internal error", "unavailable", "deadline exceeded",
		"connection reset", "timeout",
	} {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}

// IsRateLimitError checks if an error is a rate limit error
func IsRateLimitError(err error) bool {
	var retryErr *RetryableError
	if errors.As(err, &retryErr) && retryErr.StatusCode == http.StatusTooManyRequests {
		return true
	}

	errMsg := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"rate limit",
		"too many requests",
		"quota exceeded",
		"resource_exhausted",
		"error 429",
		"throttled",
	} {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}

// calculateDelay honours Retry-After when present, otherwise backs off
// exponentially from BaseDelay, capped at MaxDelay.
func calculateDelay(err error, attempt int, options RetryOptions) time.Duration {
	var retryErr *RetryableError
	if errors.As(err, &retryErr) && retryErr.Headers != nil {
		if retryAfter, ok := retryErr.Headers["retry-after"]; ok {
			if delay := parseRetryAfter(retryAfter); delay > 0 {
				if options.MaxDelay > 0 && delay > options.MaxDelay {
					return options.MaxDelay
				}
				return delay
			}
		}
	}

	delay := time.Duration(float64(options.BaseDelay) * math.Pow(2, float64(attempt)))
	if options.MaxDelay > 0 && delay > options.MaxDelay {
		delay = options.MaxDelay
	}
	return delay
}

// parseRetryAfter parses the Retry-After header
func parseRetryAfter(retryAfter string) time.Duration {
	if seconds, err := strconv.Atoi(retryAfter); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(retryAfter); err == nil {
		if delay := time.Until(t); delay > 0 {
			return delay
		}
	}
	return 0
}
