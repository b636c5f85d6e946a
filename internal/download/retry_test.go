package download

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsTransient_NilError(t *testing.T) {
	assert.False(t, IsTransient(nil))
}

func TestIsTransient_ServerError(t *testing.T) {
	err := &HTTPError{Status: 500, URL: "http://example.org/a.gz"}
	assert.True(t, IsTransient(err))
}

func TestIsTransient_TooManyRequests(t *testing.T) {
	err := &HTTPError{Status: http.StatusTooManyRequests, URL: "http://example.org/a.gz"}
	assert.True(t, IsTransient(err))
}

func TestIsTransient_ClientError(t *testing.T) {
	err := &HTTPError{Status: 404, URL: "http://example.org/a.gz"}
	assert.False(t, IsTransient(err))
}

func TestIsTransient_ChecksumMismatch(t *testing.T) {
	assert.False(t, IsTransient(fmt.Errorf("verify: %w", ErrChecksum)))
}

func TestIsTransient_AttemptTimeout(t *testing.T) {
	assert.True(t, IsTransient(fmt.Errorf("%w after 1s: deadline", ErrAttemptTimeout)))
}

func TestIsTransient_Cancellation(t *testing.T) {
	assert.False(t, IsTransient(context.Canceled))
	assert.False(t, IsTransient(context.DeadlineExceeded))
}

func TestIsTransient_NetworkError(t *testing.T) {
	assert.True(t, IsTransient(errors.New("connection reset by peer")))
}

func TestRetryPolicy_Backoff(t *testing.T) {
	p := &RetryPolicy{
		MaxRetries:     3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
		JitterFraction: 0.0, // no jitter for deterministic test
	}

	assert.Equal(t, 100*time.Millisecond, p.backoff(0))
	assert.Equal(t, 200*time.Millisecond, p.backoff(1))
	assert.Equal(t, 400*time.Millisecond, p.backoff(2))
}

func TestRetryPolicy_BackoffCapped(t *testing.T) {
	p := &RetryPolicy{
		MaxRetries:     10,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     5 * time.Second,
		JitterFraction: 0.0,
	}

	assert.Equal(t, 5*time.Second, p.backoff(10))
}

func TestRetryPolicy_DoSuccess(t *testing.T) {
	p := &RetryPolicy{
		MaxRetries:     3,
		InitialBackoff: 1 * time.Millisecond,
		MaxBackoff:     10 * time.Millisecond,
		JitterFraction: 0.0,
	}

	attempts := 0
	err := p.Do(context.Background(), "test", func() error {
		attempts++
		if attempts < 3 {
			return &HTTPError{Status: 503, URL: "http://example.org"}
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryPolicy_DoExhausted(t *testing.T) {
	p := &RetryPolicy{
		MaxRetries:     2,
		InitialBackoff: 1 * time.Millisecond,
		MaxBackoff:     10 * time.Millisecond,
		JitterFraction: 0.0,
	}

	attempts := 0
	err := p.Do(context.Background(), "test", func() error {
		attempts++
		return &HTTPError{Status: 500, URL: "http://example.org"}
	})

	assert.Error(t, err)
	assert.Equal(t, 3, attempts) // initial attempt + 2 retries
	assert.Contains(t, err.Error(), "after 2 retries")
}

func TestRetryPolicy_DoStopsOnPermanentError(t *testing.T) {
	p := DefaultRetryPolicy()

	attempts := 0
	err := p.Do(context.Background(), "test", func() error {
		attempts++
		return &HTTPError{Status: 404, URL: "http://example.org"}
	})

	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetryPolicy_DoCancelledDuringBackoff(t *testing.T) {
	p := &RetryPolicy{
		MaxRetries:     3,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     10 * time.Second,
		JitterFraction: 0.0,
	}

	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := p.Do(ctx, "test", func() error {
		attempts++
		return &HTTPError{Status: 500, URL: "http://example.org"}
	})

	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.Contains(t, err.Error(), "retry cancelled")
}
