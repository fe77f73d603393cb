package application

import (
	"context"
	"fmt"
	"time"

	"github.com/ericfisherdev/reviewnudge/internal/domain/model"
	"github.com/ericfisherdev/reviewnudge/internal/domain/port/driven"
)

const (
	// lowQuotaThreshold triggers a warning but never stops the run.
	lowQuotaThreshold = 100
	// DefaultWaitThreshold is the longest reset we are willing to sleep through.
	DefaultWaitThreshold = 300 * time.Second
	// abnormalResetHorizon marks quota data that cannot be trusted.
	abnormalResetHorizon = time.Hour
	countdownInterval    = 10 * time.Second
)

// QuotaDecision is the guard's verdict on a quota snapshot.
type QuotaDecision int

const (
	// QuotaProceed means calls may be issued now.
	QuotaProceed QuotaDecision = iota
	// QuotaWait means the quota resets soon enough to wait for it.
	QuotaWait
	// QuotaAbort means the reset is too far away to wait for.
	QuotaAbort
	// QuotaAbnormal means the reset is implausibly far away.
	QuotaAbnormal
)

// String returns a human-readable name for the decision.
func (d QuotaDecision) String() string {
	switch d {
	case QuotaProceed:
		return "proceed"
	case QuotaWait:
		return "wait"
	case QuotaAbort:
		return "abort"
	case QuotaAbnormal:
		return "abnormal"
	default:
		return "unknown"
	}
}

// AbnormalQuotaError reports an exhausted quota whose reset lies more than an hour ahead.
// It aborts the run in every mode.
type AbnormalQuotaError struct {
	ResetAt time.Time
	Until   time.Duration
}

func (e *AbnormalQuotaError) Error() string {
	return fmt.Sprintf("abnormal quota state: exhausted with reset in %s (at %s), investigate before re-running",
		e.Until.Round(time.Second), e.ResetAt.Format(time.RFC3339))
}

// QuotaExhaustedError reports an exhausted quota whose reset is beyond the wait threshold.
type QuotaExhaustedError struct {
	ResetAt   time.Time
	Until     time.Duration
	Threshold time.Duration
}

func (e *QuotaExhaustedError) Error() string {
	return fmt.Sprintf("quota exhausted: reset in %s exceeds wait threshold %s",
		e.Until.Round(time.Second), e.Threshold)
}

// RateLimitGuard inspects the remote quota before a run and decides whether to proceed,
// wait for the reset, or abort.
type RateLimitGuard struct {
	client        driven.RemoteClient
	waitThreshold time.Duration

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRateLimitGuard creates a guard. A non-positive threshold selects DefaultWaitThreshold.
func NewRateLimitGuard(client driven.RemoteClient, waitThreshold time.Duration) *RateLimitGuard {
	if waitThreshold <= 0 {
		waitThreshold = DefaultWaitThreshold
	}
	return &RateLimitGuard{
		client:        client,
		waitThreshold: waitThreshold,
		now:           time.Now,
		sleep:         sleepContext,
	}
}

// Check fetches the current quota through exec and records it on the run.
func (g *RateLimitGuard) Check(ctx context.Context, run *RunContext, exec *RetryExecutor) (model.RateLimitState, error) {
	run.Metrics.QuotaCalls++
	state, err := Call(ctx, exec, "fetch quota", g.client.FetchQuota)
	if err != nil {
		return model.RateLimitState{}, err
	}
	run.LastQuota = &state
	return state, nil
}

// ShouldWait reports whether state is exhausted with a reset close enough to wait for.
func (g *RateLimitGuard) ShouldWait(state model.RateLimitState, threshold time.Duration) bool {
	if !state.Exhausted {
		return false
	}
	until := state.ResetAt.Sub(g.now())
	return until > 0 && until <= abnormalResetHorizon && until < threshold
}

// Decide classifies a quota snapshot. The duration is the time until reset.
func (g *RateLimitGuard) Decide(state model.RateLimitState) (QuotaDecision, time.Duration) {
	if !state.Exhausted {
		return QuotaProceed, 0
	}

	until := state.ResetAt.Sub(g.now())
	switch {
	case until <= 0:
		return QuotaProceed, 0
	case until > abnormalResetHorizon:
		return QuotaAbnormal, until
	case g.ShouldWait(state, g.waitThreshold):
		return QuotaWait, until
	default:
		return QuotaAbort, until
	}
}

// Ensure checks the quota and acts on the decision. In dry-run mode an exhausted quota
// beyond the wait threshold marks the run partial instead of aborting it.
func (g *RateLimitGuard) Ensure(ctx context.Context, run *RunContext, exec *RetryExecutor) error {
	state, err := g.Check(ctx, run, exec)
	if err != nil {
		return fmt.Errorf("checking quota: %w", err)
	}

	logger := run.Logger
	if state.Remaining < lowQuotaThreshold {
		logger.Warn("github quota low",
			"remaining", state.Remaining,
			"limit", state.Limit,
			"reset_in", state.ResetAt.Sub(g.now()).Round(time.Second),
		)
	}

	decision, until := g.Decide(state)
	switch decision {
	case QuotaProceed:
		return nil
	case QuotaAbnormal:
		return &AbnormalQuotaError{ResetAt: state.ResetAt, Until: until}
	case QuotaWait:
		logger.Warn("github quota exhausted, waiting for reset", "reset_in", until.Round(time.Second))
		return g.waitForReset(ctx, run, until)
	default:
		if run.DryRun {
			logger.Warn("github quota exhausted, continuing with partial results (dry run)",
				"reset_in", until.Round(time.Second),
				"wait_threshold", g.waitThreshold,
			)
			run.Partial = true
			return nil
		}
		return &QuotaExhaustedError{ResetAt: state.ResetAt, Until: until, Threshold: g.waitThreshold}
	}
}

// waitForReset sleeps until the quota resets, logging a countdown.
func (g *RateLimitGuard) waitForReset(ctx context.Context, run *RunContext, until time.Duration) error {
	remaining := until
	for remaining > 0 {
		run.Logger.Info("waiting for quota reset", "remaining", remaining.Round(time.Second))
		step := min(remaining, countdownInterval)
		if err := g.sleep(ctx, step); err != nil {
			return err
		}
		remaining -= step
	}
	run.Logger.Info("quota reset reached, resuming")
	return nil
}

// sleepContext sleeps for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
