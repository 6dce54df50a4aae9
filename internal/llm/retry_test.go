package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithRetryRetriesTransientErrors(t *testing.T) {
	opts := RetryOptions{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
	calls := 0
	got, err := WithRetry(context.Background(), opts, func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("Error 429, Message: Resource has been exhausted, Status: RESOURCE_EXHAUSTED")
		}
		return "done", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "done", got)
	assert.Equal(t, 3, calls)
}

func TestWithRetryStopsOnPermanentError(t *testing.T) {
	opts := RetryOptions{MaxRetries: 5, BaseDelay: time.Millisecond}
	calls := 0
	_, err := WithRetry(context.Background(), opts, func(context.Context) (int, error) {
		calls++
		return 0, errors.New("Error 400, Message: invalid argument")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetryGivesUp(t *testing.T) {
	opts := RetryOptions{MaxRetries: 2, BaseDelay: time.Millisecond, RetryAllErrors: true}
	calls := 0
	_, err := WithRetry(context.Background(), opts, func(context.Context) (int, error) {
		calls++
		return 0, errors.New("anything")
	})
	require.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestWithRetryHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	opts := RetryOptions{MaxRetries: 3, BaseDelay: time.Hour, MaxDelay: time.Hour}
	_, err := WithRetry(ctx, opts, func(context.Context) (int, error) {
		cancel()
		return 0, NewRetryableError(errors.New("unavailable"), 503, nil)
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsTransientError(t *testing.T) {
	assert.True(t, IsTransientError(NewRetryableError(errors.New("x"), 503, nil)))
	assert.False(t, IsTransientError(NewRetryableError(errors.New("x"), 400, nil)))
	assert.True(t, IsTransientError(errors.New("rate limit exceeded")))
	assert.True(t, IsTransientError(errors.New("Error 503, Message: The model is overloaded, Status: UNAVAILABLE")))
	assert.False(t, IsTransientError(context.Canceled))
	assert.False(t, IsTransientError(nil))
}

func TestCalculateDelay(t *testing.T) {
	opts := RetryOptions{BaseDelay: 100 * time.Millisecond, MaxDelay: 350 * time.Millisecond}
	plain := errors.New("x")
	assert.Equal(t, 100*time.Millisecond, calculateDelay(plain, 0, opts))
	assert.Equal(t, 200*time.Millisecond, calculateDelay(plain, 1, opts))
	assert.Equal(t, 350*time.Millisecond, calculateDelay(plain, 2, opts))

	withHeader := NewRetryableError(plain, 429, map[string]string{"retry-after": "1"})
	assert.Equal(t, 350*time.Millisecond, calculateDelay(withHeader, 0, opts))

	opts.MaxDelay = 5 * time.Second
	assert.Equal(t, time.Second, calculateDelay(withHeader, 0, opts))
}
