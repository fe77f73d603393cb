package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gh "github.com/google/go-github/v82/github"

	"github.com/ericfisherdev/reviewnudge/internal/domain/model"
)

// defaultRequiredApprovals applies when the target branch has no protection rule.
const defaultRequiredApprovals = 1

// branchRules is the subset of branch protection the staleness computation needs.
type branchRules struct {
	requiredApprovals     int
	dismissesStaleReviews bool
}

// FetchDetail resolves one PR through the REST API: the PR itself, its reviews, its head
// commit, its timeline (ready_for_review and review dismissals) and the target branch
// protection.
func (c *Client) FetchDetail(ctx context.Context, key model.PRKey) (model.PullRequestRecord, error) {
	owner, repo, err := splitRepo(key.Repo)
	if err != nil {
		return model.PullRequestRecord{}, err
	}

	pr, resp, err := c.gh.PullRequests.Get(ctx, owner, repo, key.Number)
	if err != nil {
		return model.PullRequestRecord{}, classifyError("fetch pull request "+key.String(), err)
	}
	logRateLimit(resp, key.Repo+"/pr-detail", 0, 1)

	record := mapPullRequest(pr, key.Repo)

	reviews, err := c.listReviews(ctx, owner, repo, key)
	if err != nil {
		return model.PullRequestRecord{}, err
	}

	timeline, err := c.readTimeline(ctx, owner, repo, key)
	if err != nil {
		return model.PullRequestRecord{}, err
	}

	rules, err := c.branchRules(ctx, owner, repo, record.TargetBranch)
	if err != nil {
		return model.PullRequestRecord{}, err
	}
	record.RequiredApprovals = rules.requiredApprovals
	record.DismissesStaleReviews = rules.dismissesStaleReviews

	applyReviews(&record, reviews, timeline.dismissedApprovals)

	if sha := pr.GetHead().GetSHA(); sha != "" {
		commit, resp, err := c.gh.Repositories.GetCommit(ctx, owner, repo, sha, nil)
		if err != nil {
			return model.PullRequestRecord{}, classifyError("fetch head commit "+key.String(), err)
		}
		logRateLimit(resp, key.Repo+"/commit", 0, 1)

		if date := commit.GetCommit().GetCommitter().GetDate(); !date.IsZero() {
			t := date.Time
			record.LastCommitAt = &t
		}
	}

	if !record.IsDraft {
		readyAt := record.CreatedAt
		if timeline.readyAt != nil {
			readyAt = *timeline.readyAt
		}
		record.ReadyAt = &readyAt
	}

	return record, nil
}

// listReviews returns every submitted review on the PR, following pagination.
func (c *Client) listReviews(ctx context.Context, owner, repo string, key model.PRKey) ([]*gh.PullRequestReview, error) {
	opts := &gh.ListOptions{PerPage: perPage}
	var all []*gh.PullRequestReview

	for {
		reviews, resp, err := c.gh.PullRequests.ListReviews(ctx, owner, repo, key.Number, opts)
		if err != nil {
			return nil, classifyError(fmt.Sprintf("list reviews %s (page %d)", key, opts.Page), err)
		}
		logRateLimit(resp, key.Repo+"/reviews", opts.Page, len(reviews))

		all = append(all, reviews...)

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return all, nil
}

// timelineFacts is what the staleness computation needs from the issue timeline.
type timelineFacts struct {
	// readyAt is the most recent ready_for_review event, nil if the PR never left draft.
	readyAt *time.Time
	// dismissedApprovals holds the IDs of reviews that were APPROVED when dismissed.
	dismissedApprovals map[int64]bool
}

// readTimeline pages through the issue timeline collecting ready_for_review events and
// the review dismissals that took away an approval.
func (c *Client) readTimeline(ctx context.Context, owner, repo string, key model.PRKey) (timelineFacts, error) {
	opts := &gh.ListOptions{PerPage: perPage}
	facts := timelineFacts{dismissedApprovals: make(map[int64]bool)}

	for {
		events, resp, err := c.gh.Issues.ListIssueTimeline(ctx, owner, repo, key.Number, opts)
		if err != nil {
			return timelineFacts{}, classifyError(fmt.Sprintf("list timeline %s (page %d)", key, opts.Page), err)
		}
		logRateLimit(resp, key.Repo+"/timeline", opts.Page, len(events))

		for _, e := range events {
			switch e.GetEvent() {
			case "ready_for_review":
				t := e.GetCreatedAt().Time
				if facts.readyAt == nil || t.After(*facts.readyAt) {
					facts.readyAt = &t
				}
			case "review_dismissed":
				dismissed := e.GetDismissedReview()
				if strings.EqualFold(dismissed.GetState(), "approved") {
					facts.dismissedApprovals[dismissed.GetReviewID()] = true
				}
			}
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return facts, nil
}

// branchRules reads the approval requirements for a branch. Unprotected branches (404) and
// branches we cannot inspect (403) fall back to one required approval.
func (c *Client) branchRules(ctx context.Context, owner, repo, branch string) (branchRules, error) {
	rules := branchRules{requiredApprovals: defaultRequiredApprovals}
	if branch == "" {
		return rules, nil
	}

	protection, resp, err := c.gh.Repositories.GetBranchProtection(ctx, owner, repo, branch)
	if err != nil {
		if errors.Is(err, gh.ErrBranchNotProtected) {
			return rules, nil
		}
		if resp != nil && (resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusForbidden) {
			return rules, nil
		}
		return rules, classifyError(fmt.Sprintf("fetch branch protection %s/%s@%s", owner, repo, branch), err)
	}
	logRateLimit(resp, owner+"/"+repo+"/protection", 0, 1)

	if reviews := protection.GetRequiredPullRequestReviews(); reviews != nil {
		if reviews.RequiredApprovingReviewCount > 0 {
			rules.requiredApprovals = reviews.RequiredApprovingReviewCount
		}
		rules.dismissesStaleReviews = reviews.DismissStaleReviews
	}

	return rules, nil
}

// mapPullRequest converts a go-github PullRequest to a domain record. Review-derived fields
// are filled in by applyReviews. It uses GetXxx() helpers to avoid nil pointer panics.
func mapPullRequest(pr *gh.PullRequest, repoFullName string) model.PullRequestRecord {
	owner, _, _ := splitRepo(repoFullName)

	reviewers := make([]string, 0, len(pr.RequestedReviewers))
	for _, r := range pr.RequestedReviewers {
		reviewers = append(reviewers, r.GetLogin())
	}

	groups := make([]model.GroupReviewRequest, 0, len(pr.RequestedTeams))
	for _, t := range pr.RequestedTeams {
		groups = append(groups, model.GroupReviewRequest{
			Org:  owner,
			Name: t.GetName(),
			Slug: t.GetSlug(),
		})
	}

	return model.PullRequestRecord{
		Repo:               repoFullName,
		Number:             pr.GetNumber(),
		Title:              pr.GetTitle(),
		URL:                pr.GetHTMLURL(),
		Author:             pr.GetUser().GetLogin(),
		IsDraft:            pr.GetDraft(),
		RequestedReviewers: reviewers,
		RequestedGroups:    groups,
		CreatedAt:          pr.GetCreatedAt().Time,
		RequiredApprovals:  defaultRequiredApprovals,
		ReviewState:        model.ReviewStateNone,
		TargetBranch:       pr.GetBase().GetRef(),
	}
}

// applyReviews derives approval counts and timestamps from the full review history.
// The latest opinionated review per reviewer decides whether that reviewer approves.
// A DISMISSED review counts as an approval timestamp only when it was an approval at the
// time of dismissal; dismissed change requests never granted approval.
func applyReviews(record *model.PullRequestRecord, reviews []*gh.PullRequestReview, dismissedApprovals map[int64]bool) {
	latestByReviewer := make(map[string]string)
	var opinionated bool

	for _, r := range reviews {
		state := strings.ToUpper(r.GetState())
		login := strings.ToLower(r.GetUser().GetLogin())

		switch state {
		case "APPROVED", "CHANGES_REQUESTED", "DISMISSED":
			latestByReviewer[login] = state
			opinionated = true
		}

		approval := state == "APPROVED" || (state == "DISMISSED" && dismissedApprovals[r.GetID()])
		if !approval {
			continue
		}
		submitted := r.GetSubmittedAt().Time
		if submitted.IsZero() {
			continue
		}
		if record.LastApprovedAt == nil || submitted.After(*record.LastApprovedAt) {
			t := submitted
			record.LastApprovedAt = &t
		}
	}

	approvals := 0
	for _, state := range latestByReviewer {
		if state == "APPROVED" {
			approvals++
		}
	}
	record.Approvals = approvals
	record.ReviewState = deriveReviewState(opinionated, approvals, record.RequiredApprovals)
}

// deriveReviewState approximates GitHub's reviewDecision for REST-fetched records.
func deriveReviewState(hasReviews bool, approvals, required int) model.ReviewState {
	switch {
	case approvals >= required && approvals > 0:
		return model.ReviewStateApproved
	case hasReviews:
		return model.ReviewStateRequired
	default:
		return model.ReviewStateNone
	}
}
