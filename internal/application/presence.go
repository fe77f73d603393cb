package application

import (
	"log/slog"

	"github.com/ericfisherdev/reviewnudge/internal/domain/model"
)

// PresenceFilter drops "required"-origin PRs on which no tracked member is still a
// pending reviewer.
type PresenceFilter struct {
	logger *slog.Logger
}

// NewPresenceFilter creates a PresenceFilter logging through logger.
func NewPresenceFilter(logger *slog.Logger) *PresenceFilter {
	if logger == nil {
		logger = slog.Default()
	}
	return &PresenceFilter{logger: logger}
}

// Filter keeps records found only by the "none" query, and records found by the "required"
// query on which a tracked member is requested directly or through a team. Teams whose
// expansion was skipped or failed count as containing a tracked member.
func (f *PresenceFilter) Filter(records []model.PullRequestRecord, origins model.SearchOriginMap, members []model.TrackedMember) []model.PullRequestRecord {
	kept := make([]model.PullRequestRecord, 0, len(records))

	for _, rec := range records {
		if !origins.Has(rec.Key(), model.OriginRequired) {
			kept = append(kept, rec)
			continue
		}
		if TrackedMemberPending(rec, members) {
			kept = append(kept, rec)
			continue
		}
		f.logger.Debug("dropping pull request with no tracked pending reviewer", "pr", rec.Key().String())
	}

	return kept
}

// TrackedMemberPending reports whether any tracked member is a pending reviewer on rec.
func TrackedMemberPending(rec model.PullRequestRecord, members []model.TrackedMember) bool {
	if listsTrackedMember(rec.RequestedReviewers, members) {
		return true
	}
	for _, g := range rec.RequestedGroups {
		if g.Expansion.FailSafe() {
			return true
		}
		if g.Expansion.Status == model.ExpansionExpanded && listsTrackedMember(g.Expansion.Members, members) {
			return true
		}
	}
	return false
}

// PendingMembers returns the tracked members pending on rec, directly or via an expanded
// team, in roster order.
func PendingMembers(rec model.PullRequestRecord, members []model.TrackedMember) []model.TrackedMember {
	var pending []model.TrackedMember
	for _, m := range members {
		if requested(rec, m) {
			pending = append(pending, m)
		}
	}
	return pending
}

func requested(rec model.PullRequestRecord, m model.TrackedMember) bool {
	for _, login := range rec.RequestedReviewers {
		if m.Matches(login) {
			return true
		}
	}
	for _, g := range rec.RequestedGroups {
		if g.Expansion.Status != model.ExpansionExpanded {
			continue
		}
		for _, login := range g.Expansion.Members {
			if m.Matches(login) {
				return true
			}
		}
	}
	return false
}
