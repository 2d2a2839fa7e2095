package util

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetry_SuccessAfterRetries(t *testing.T) {
	calls := 0
	result, err := Retry(3, func() (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("transient")
		}
		return 99, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 99, result)
	assert.Equal(t, 3, calls)
}

func TestRetry_PersistentFailure(t *testing.T) {
	calls := 0
	_, err := Retry(3, func() (int, error) {
		calls++
		return 0, errors.New("persistent")
	})
	require.EqualError(t, err, "persistent")
	assert.Equal(t, 3, calls)
}

func TestRetry_MaxTriesZeroOrNegative(t *testing.T) {
	for _, tries := range []int{0, -2} {
		calls := 0
		_, err := Retry(tries, func() (int, error) {
			calls++
			return 0, errors.New("fail")
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls, "maxTries=%d", tries)
	}
}

func TestRetryWithContext_Backoff(t *testing.T) {
	calls := 0
	start := time.Now()
	_, err := RetryWithContext(context.Background(), 3, 5*time.Millisecond, func(context.Context) (string, error) {
		calls++
		return "", errors.New("fail")
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	// 5ms + 10ms between the three attempts
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
}

func TestRetryWithContext_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := RetryWithContext(ctx, 5, time.Hour, func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, errors.New("fail")
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRetryWithContext_FunctionReturnsContextError(t *testing.T) {
	calls := 0
	_, err := RetryWithContext(context.Background(), 5, 0, func(context.Context) (int, error) {
		calls++
		return 0, context.DeadlineExceeded
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, calls)
}
