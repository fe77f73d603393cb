package application

import (
	"log/slog"
	"math"
	"time"

	"github.com/ericfisherdev/reviewnudge/internal/domain/model"
)

// StalenessEngine scores PRs by business days waiting for review.
type StalenessEngine struct {
	calendar   *BusinessCalendar
	thresholds model.StalenessThresholds
	logger     *slog.Logger
}

// NewStalenessEngine creates an engine over calendar with the given category thresholds.
func NewStalenessEngine(calendar *BusinessCalendar, thresholds model.StalenessThresholds, logger *slog.Logger) *StalenessEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &StalenessEngine{calendar: calendar, thresholds: thresholds, logger: logger}
}

// Anchor returns the instant staleness is counted from: the later of the ready time and
// the head commit that invalidated the last approval. ok is false for drafts.
func Anchor(pr model.PullRequestRecord) (anchor time.Time, ok bool) {
	if pr.ReadyAt == nil {
		return time.Time{}, false
	}
	anchor = *pr.ReadyAt
	if pr.ApprovalLost() && pr.LastCommitAt.After(anchor) {
		anchor = *pr.LastCommitAt
	}
	return anchor, true
}

// Score computes the staleness of pr at now. It returns false for drafts and for PRs that
// already have enough approvals.
func (e *StalenessEngine) Score(pr model.PullRequestRecord, now time.Time) (model.StalenessResult, bool) {
	anchor, ok := Anchor(pr)
	if !ok {
		e.logger.Debug("skipping draft pull request", "pr", pr.Key().String())
		return model.StalenessResult{}, false
	}

	if pr.Approvals >= pr.RequiredApprovals {
		e.logger.Debug("skipping sufficiently approved pull request",
			"pr", pr.Key().String(),
			"approvals", pr.Approvals,
			"required", pr.RequiredApprovals,
		)
		return model.StalenessResult{}, false
	}

	if pr.ApprovalLost() && !pr.DismissesStaleReviews {
		// Approval loss is inferred from timestamps only; on this branch approvals may survive pushes.
		e.logger.Debug("approval loss assumed without stale-review dismissal",
			"pr", pr.Key().String(),
			"branch", pr.TargetBranch,
			"last_approved_at", pr.LastApprovedAt,
			"last_commit_at", pr.LastCommitAt,
		)
	}

	days := math.Max(0, e.calendar.BusinessDaysBetween(anchor, now))

	return model.StalenessResult{
		PR:            pr,
		StalenessDays: days,
		Category:      e.thresholds.Categorize(days),
	}, true
}
