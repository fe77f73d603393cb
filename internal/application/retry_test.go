package application_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/reviewnudge/internal/application"
	"github.com/ericfisherdev/reviewnudge/internal/domain/port/driven"
)

func TestBackoffDelay_Sequence(t *testing.T) {
	base := time.Second

	assert.Equal(t, 1*time.Second, application.BackoffDelay(0, base, 0))
	assert.Equal(t, 2*time.Second, application.BackoffDelay(1, base, 0))
	assert.Equal(t, 4*time.Second, application.BackoffDelay(2, base, 0))

	t.Run("server hint wins when longer", func(t *testing.T) {
		assert.Equal(t, 30*time.Second, application.BackoffDelay(0, base, 30*time.Second))
	})

	t.Run("backoff wins when hint is shorter", func(t *testing.T) {
		assert.Equal(t, 4*time.Second, application.BackoffDelay(2, base, time.Second))
	})
}

func TestExecute_RateLimitExhaustsRetries(t *testing.T) {
	run, exec := newRun(false)
	var delays []time.Duration
	exec.OnBackoff(func(d time.Duration) { delays = append(delays, d) })

	calls := 0
	err := exec.Execute(context.Background(), "search", func(context.Context) error {
		calls++
		return &driven.RateLimitError{Op: "search"}
	})

	require.Error(t, err)
	assert.Equal(t, 4, calls, "one attempt plus three retries")
	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond, 4 * time.Millisecond}, delays)
	assert.ErrorIs(t, err, application.ErrRetriesExhausted)

	var rl *driven.RateLimitError
	assert.ErrorAs(t, err, &rl)
	assert.Equal(t, 3, run.Metrics.Retries)
	assert.Equal(t, 1, run.Metrics.Failures)
}

func TestExecute_RecoversAfterRateLimit(t *testing.T) {
	run, exec := newRun(false)

	calls := 0
	err := exec.Execute(context.Background(), "search", func(context.Context) error {
		calls++
		if calls == 1 {
			return &driven.RateLimitError{Op: "search"}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, run.Metrics.Retries)
	assert.Equal(t, 0, run.Metrics.Failures)
}

func TestExecute_NonRetryableErrorsFailImmediately(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"network", &driven.NetworkError{Op: "search", Err: errors.New("connection refused")}},
		{"remote", &driven.RemoteError{Op: "search", StatusCode: 404, Message: "Not Found"}},
		{"unclassified", errors.New("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run, exec := newRun(false)

			calls := 0
			err := exec.Execute(context.Background(), "search", func(context.Context) error {
				calls++
				return tt.err
			})

			require.Error(t, err)
			assert.Equal(t, 1, calls)
			assert.ErrorIs(t, err, tt.err)
			assert.NotErrorIs(t, err, application.ErrRetriesExhausted)
			assert.Equal(t, 0, run.Metrics.Retries)
			assert.Equal(t, 1, run.Metrics.Failures)
		})
	}
}

func TestExecute_HonoursRetryAfterHint(t *testing.T) {
	_, exec := newRun(false)
	var delays []time.Duration
	exec.OnBackoff(func(d time.Duration) { delays = append(delays, d) })

	calls := 0
	err := exec.Execute(context.Background(), "search", func(context.Context) error {
		calls++
		if calls == 1 {
			return &driven.RateLimitError{Op: "search", RetryAfter: 5 * time.Millisecond}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []time.Duration{5 * time.Millisecond}, delays)
}

func TestExecute_MaxDelayCapsHint(t *testing.T) {
	run := application.NewRunContext(false)
	exec := application.NewRetryExecutor(application.RetryConfig{
		MaxRetries:  1,
		BackoffBase: time.Millisecond,
		MaxDelay:    3 * time.Millisecond,
	}, run)
	var delays []time.Duration
	exec.OnBackoff(func(d time.Duration) { delays = append(delays, d) })

	calls := 0
	_ = exec.Execute(context.Background(), "search", func(context.Context) error {
		calls++
		if calls == 1 {
			return &driven.RateLimitError{Op: "search", RetryAfter: time.Hour}
		}
		return nil
	})

	assert.Equal(t, []time.Duration{3 * time.Millisecond}, delays)
}

func TestExecute_LogsWhenHintIsCapped(t *testing.T) {
	tests := []struct {
		name    string
		hint    time.Duration
		wantLog bool
	}{
		{"hint above max delay", time.Hour, true},
		{"hint within max delay", 2 * time.Millisecond, false},
		{"backoff above max delay without hint", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			run := application.NewRunContext(false)
			run.Logger = slog.New(slog.NewTextHandler(&buf, nil))
			exec := application.NewRetryExecutor(application.RetryConfig{
				MaxRetries:  1,
				BackoffBase: 10 * time.Millisecond,
				MaxDelay:    3 * time.Millisecond,
			}, run)
			var delays []time.Duration
			exec.OnBackoff(func(d time.Duration) { delays = append(delays, d) })

			calls := 0
			err := exec.Execute(context.Background(), "search", func(context.Context) error {
				calls++
				if calls == 1 {
					return &driven.RateLimitError{Op: "search", RetryAfter: tt.hint}
				}
				return nil
			})

			require.NoError(t, err)
			assert.Equal(t, []time.Duration{3 * time.Millisecond}, delays)
			if tt.wantLog {
				assert.Contains(t, buf.String(), "server retry hint exceeds max delay")
				assert.Contains(t, buf.String(), "retry_after=1h0m0s")
			} else {
				assert.NotContains(t, buf.String(), "server retry hint exceeds max delay")
			}
		})
	}
}

func TestCall_ReturnsValue(t *testing.T) {
	_, exec := newRun(false)

	v, err := application.Call(context.Background(), exec, "answer", func(context.Context) (int, error) {
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, v)
}
