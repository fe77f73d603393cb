package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/ericfisherdev/reviewnudge/internal/domain/model"
	"github.com/ericfisherdev/reviewnudge/internal/domain/port/driven"
)

// DefaultGroupSizeCap is the largest team the resolver will expand.
const DefaultGroupSizeCap = 100

// ReviewerResolver expands team reviewers into their members. It never fails a run:
// oversized teams and fetch failures become fail-safe expansions.
type ReviewerResolver struct {
	client  driven.RemoteClient
	sizeCap int

	cache map[string]model.GroupExpansion
}

// NewReviewerResolver creates a resolver. A non-positive cap selects DefaultGroupSizeCap.
func NewReviewerResolver(client driven.RemoteClient, sizeCap int) *ReviewerResolver {
	if sizeCap <= 0 {
		sizeCap = DefaultGroupSizeCap
	}
	return &ReviewerResolver{
		client:  client,
		sizeCap: sizeCap,
		cache:   make(map[string]model.GroupExpansion),
	}
}

// Resolve expands one team. Results are memoised by org/slug for the lifetime of the
// resolver, which is one run.
func (r *ReviewerResolver) Resolve(ctx context.Context, run *RunContext, exec *RetryExecutor, group model.GroupReviewRequest) model.GroupExpansion {
	cacheKey := strings.ToLower(group.Org + "/" + group.Slug)
	if cached, ok := r.cache[cacheKey]; ok {
		return cached
	}

	expansion := r.resolve(ctx, run, exec, group)
	r.cache[cacheKey] = expansion
	return expansion
}

func (r *ReviewerResolver) resolve(ctx context.Context, run *RunContext, exec *RetryExecutor, group model.GroupReviewRequest) model.GroupExpansion {
	logger := run.Logger.With("org", group.Org, "team", group.Slug)

	run.Metrics.GroupCalls++
	info, err := Call(ctx, exec, fmt.Sprintf("fetch team %s/%s", group.Org, group.Slug), func(ctx context.Context) (model.GroupInfo, error) {
		return r.client.FetchGroupInfo(ctx, group.Org, group.Slug)
	})
	if err != nil {
		logger.Warn("team lookup failed, treating as pending reviewer", "error", err)
		return model.GroupExpansion{Status: model.ExpansionFailed}
	}

	if info.MemberCount > r.sizeCap {
		logger.Warn("team exceeds size cap, treating as pending reviewer",
			"members", info.MemberCount,
			"cap", r.sizeCap,
		)
		return model.GroupExpansion{Status: model.ExpansionSkipped}
	}

	run.Metrics.GroupCalls++
	members, err := Call(ctx, exec, fmt.Sprintf("list team members %s/%s", group.Org, group.Slug), func(ctx context.Context) ([]string, error) {
		return r.client.FetchGroupMembers(ctx, group.Org, group.Slug)
	})
	if err != nil {
		logger.Warn("team member fetch failed, treating as pending reviewer", "error", err)
		return model.GroupExpansion{Status: model.ExpansionFailed}
	}

	logger.Debug("team expanded", "members", len(members))
	return model.Expanded(members)
}

// ExpandRecords fills the Expansion of team requests that the presence filter will need:
// only records found by the "required" query that do not already list a tracked member
// directly. Other teams are left unresolved.
func (r *ReviewerResolver) ExpandRecords(
	ctx context.Context,
	run *RunContext,
	exec *RetryExecutor,
	records []model.PullRequestRecord,
	members []model.TrackedMember,
) {
	for i := range records {
		rec := &records[i]
		if len(rec.RequestedGroups) == 0 || !run.Origins.Has(rec.Key(), model.OriginRequired) {
			continue
		}
		if listsTrackedMember(rec.RequestedReviewers, members) {
			continue
		}
		for j := range rec.RequestedGroups {
			rec.RequestedGroups[j].Expansion = r.Resolve(ctx, run, exec, rec.RequestedGroups[j])
		}
	}
}

func listsTrackedMember(logins []string, members []model.TrackedMember) bool {
	for _, login := range logins {
		if _, ok := model.FindMember(members, login); ok {
			return true
		}
	}
	return false
}
