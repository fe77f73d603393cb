// Package application contains the use-case services of a review digest run.
package application

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ericfisherdev/reviewnudge/internal/domain/model"
)

// RunContext carries the mutable state of one digest run through the pipeline.
// A fresh RunContext per run keeps runs isolated; nothing in it outlives the run.
type RunContext struct {
	ID        string
	StartedAt time.Time
	DryRun    bool

	Keys    map[model.PRKey]struct{}
	Origins model.SearchOriginMap
	Metrics model.CallMetrics

	// Partial is set in dry-run mode when quota or remote failures cut the run short.
	Partial bool
	// LastQuota is the most recent quota snapshot, logged with terminal failures.
	LastQuota *model.RateLimitState

	Logger *slog.Logger
}

// NewRunContext creates the state for a new run with a random run ID.
func NewRunContext(dryRun bool) *RunContext {
	id := uuid.NewString()
	return &RunContext{
		ID:        id,
		StartedAt: time.Now(),
		DryRun:    dryRun,
		Keys:      make(map[model.PRKey]struct{}),
		Origins:   make(model.SearchOriginMap),
		Logger:    slog.Default().With("run_id", id),
	}
}

// AddKey inserts key into the deduplicated key set and records its origin.
func (r *RunContext) AddKey(key model.PRKey, origin model.SearchOrigin, member string) {
	r.Keys[key] = struct{}{}
	r.Origins.Record(key, origin, member)
}

// SortedKeys returns the key set ordered by repository then number.
func (r *RunContext) SortedKeys() []model.PRKey {
	keys := make([]model.PRKey, 0, len(r.Keys))
	for k := range r.Keys {
		keys = append(keys, k)
	}
	sortKeys(keys)
	return keys
}

// quotaAttrs returns the last quota snapshot as log attributes.
func (r *RunContext) quotaAttrs() []any {
	if r.LastQuota == nil {
		return []any{"quota", "unknown"}
	}
	return []any{
		"quota_remaining", r.LastQuota.Remaining,
		"quota_limit", r.LastQuota.Limit,
		"quota_reset_at", r.LastQuota.ResetAt.Format(time.RFC3339),
	}
}
