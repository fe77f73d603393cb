package model

import "time"

// RateLimitState is a snapshot of the remote API quota.
type RateLimitState struct {
	Remaining int
	Limit     int
	ResetAt   time.Time
	Exhausted bool
}

// ConservativeRate merges two readings of the same quota taken within one operation,
// keeping the minimum remaining and the earliest reset.
func ConservativeRate(a, b RateLimitState) RateLimitState {
	merged := a
	if b.Remaining < merged.Remaining {
		merged.Remaining = b.Remaining
	}
	if merged.Limit <= 0 || (b.Limit > 0 && b.Limit < merged.Limit) {
		merged.Limit = b.Limit
	}
	if merged.ResetAt.IsZero() || (!b.ResetAt.IsZero() && b.ResetAt.Before(merged.ResetAt)) {
		merged.ResetAt = b.ResetAt
	}
	if merged.Remaining < 0 {
		merged.Remaining = 0
	}
	merged.Exhausted = merged.Remaining == 0
	return merged
}
