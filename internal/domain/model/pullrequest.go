package model

import (
	"fmt"
	"time"
)

// PRKey identifies a pull request within a run.
type PRKey struct {
	Repo   string // owner/name
	Number int
}

// String returns the conventional owner/name#number form.
func (k PRKey) String() string {
	return fmt.Sprintf("%s#%d", k.Repo, k.Number)
}

// PullRequestRecord is the full metadata of a PR awaiting review.
// RequestedReviewers and RequestedGroups mirror the platform's current pending-reviewer
// list: a reviewer who submitted a review and was not re-requested is absent.
type PullRequestRecord struct {
	Repo               string
	Number             int
	Title              string
	URL                string
	Author             string
	IsDraft            bool
	RequestedReviewers []string
	RequestedGroups    []GroupReviewRequest
	CreatedAt          time.Time
	ReadyAt            *time.Time // nil while the PR is a draft.
	Approvals          int
	RequiredApprovals  int
	ReviewState        ReviewState
	TargetBranch       string

	LastApprovedAt *time.Time // Most recent APPROVED review; nil if never approved.
	LastCommitAt   *time.Time // Head commit timestamp.

	// DismissesStaleReviews mirrors the branch protection setting. It is informational:
	// approval loss is inferred from timestamps regardless.
	DismissesStaleReviews bool
}

// Key returns the identity key of the record.
func (pr PullRequestRecord) Key() PRKey {
	return PRKey{Repo: pr.Repo, Number: pr.Number}
}

// ApprovalLost reports whether a code change landed after the most recent approval.
func (pr PullRequestRecord) ApprovalLost() bool {
	return pr.LastApprovedAt != nil && pr.LastCommitAt != nil && pr.LastCommitAt.After(*pr.LastApprovedAt)
}

// GroupInfo is the size information of a team reviewer.
type GroupInfo struct {
	Org         string
	Slug        string
	Name        string
	MemberCount int
}
