package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/codeGROOVE-dev/retry"

	"github.com/ericfisherdev/reviewnudge/internal/domain/port/driven"
)

// ErrRetriesExhausted marks a rate-limited call that kept failing after every retry.
var ErrRetriesExhausted = errors.New("retries exhausted")

// Retry defaults.
const (
	defaultMaxRetries  = 3
	defaultBackoffBase = time.Second
)

// RetryConfig controls RetryExecutor.
type RetryConfig struct {
	MaxRetries  int           // Retries after the first attempt.
	BackoffBase time.Duration // Delay before the first retry; doubles each retry.
	MaxDelay    time.Duration // Upper bound for any single delay, including server hints. Zero means no bound.
}

// DefaultRetryConfig returns 3 retries with a 1s base (1s, 2s, 4s).
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:  defaultMaxRetries,
		BackoffBase: defaultBackoffBase,
	}
}

// BackoffDelay returns the wait before retry number attempt (0-based):
// max(hint, base * 2^attempt).
func BackoffDelay(attempt uint, base, hint time.Duration) time.Duration {
	d := base << attempt
	if hint > d {
		return hint
	}
	return d
}

// RetryExecutor wraps remote calls with error classification and exponential backoff.
// Only rate-limit errors are retried; network and other remote errors fail at once.
type RetryExecutor struct {
	cfg RetryConfig
	run *RunContext

	onBackoff func(time.Duration) // Test hook, called with every computed delay.
}

// NewRetryExecutor creates an executor that records retries and failures in run.
func NewRetryExecutor(cfg RetryConfig, run *RunContext) *RetryExecutor {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = defaultBackoffBase
	}
	return &RetryExecutor{cfg: cfg, run: run}
}

// Execute runs fn, retrying rate-limit failures up to MaxRetries times. Every attempt and
// its classification is logged. A terminal failure is logged with the last quota snapshot.
func (e *RetryExecutor) Execute(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	logger := e.run.Logger
	attempts := uint(e.cfg.MaxRetries) + 1
	var attempt, retries uint

	err := retry.Do(
		func() error {
			attempt++
			err := fn(ctx)
			if err != nil {
				logger.Info("remote call attempt failed",
					"op", op,
					"attempt", attempt,
					"max_attempts", attempts,
					"classification", driven.Classify(err),
					"error", err,
				)
				return err
			}
			logger.Debug("remote call succeeded", "op", op, "attempt", attempt)
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.DelayType(func(_ uint, err error, _ *retry.Config) time.Duration {
			d := e.delayFor(retries, err)
			retries++
			e.run.Metrics.Retries++
			logger.Warn("rate limited, backing off",
				"op", op,
				"retry", retries,
				"max_retries", e.cfg.MaxRetries,
				"delay", d,
			)
			return d
		}),
		retry.RetryIf(driven.IsRetryable),
		retry.LastErrorOnly(true),
	)
	if err == nil {
		return nil
	}

	e.run.Metrics.Failures++
	if driven.IsRetryable(err) && ctx.Err() == nil {
		err = fmt.Errorf("%s: %w after %d attempts: %w", op, ErrRetriesExhausted, attempts, err)
	}

	attrs := []any{"op", op, "classification", driven.Classify(err), "error", err}
	logger.Error("remote call failed", append(attrs, e.run.quotaAttrs()...)...)

	return err
}

// delayFor computes the backoff for retry n, honouring any server hint.
func (e *RetryExecutor) delayFor(n uint, err error) time.Duration {
	var hint time.Duration
	var rl *driven.RateLimitError
	if errors.As(err, &rl) {
		hint = rl.RetryAfter
	}

	d := BackoffDelay(n, e.cfg.BackoffBase, hint)
	if e.cfg.MaxDelay > 0 && d > e.cfg.MaxDelay {
		if hint > e.cfg.MaxDelay {
			e.run.Logger.Warn("server retry hint exceeds max delay, capping",
				"retry_after", hint,
				"max_delay", e.cfg.MaxDelay,
			)
		}
		d = e.cfg.MaxDelay
	}
	if e.onBackoff != nil {
		e.onBackoff(d)
	}
	return d
}

// Call is Execute for functions that return a value.
func Call[T any](ctx context.Context, e *RetryExecutor, op string, fn func(context.Context) (T, error)) (T, error) {
	var out T
	err := e.Execute(ctx, op, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
