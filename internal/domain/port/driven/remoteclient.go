package driven

import (
	"context"

	"github.com/ericfisherdev/reviewnudge/internal/domain/model"
)

// RemoteClient defines the driven port for the code-hosting platform. Implementations
// return errors from the taxonomy in errors.go so callers can classify failures by type.
type RemoteClient interface {
	// SearchPullRequests returns the keys of open PRs matching the query.
	SearchPullRequests(ctx context.Context, query model.SearchQuery) ([]model.PRKey, error)

	// FetchDetail resolves the full record of a single PR.
	FetchDetail(ctx context.Context, key model.PRKey) (model.PullRequestRecord, error)
	// FetchDetailsBatch resolves several PRs of one repository in a single round-trip.
	FetchDetailsBatch(ctx context.Context, repoFullName string, numbers []int) ([]model.PullRequestRecord, error)

	// FetchQuota returns the current core API quota.
	FetchQuota(ctx context.Context) (model.RateLimitState, error)

	// FetchGroupInfo returns a team's size without listing its members.
	FetchGroupInfo(ctx context.Context, org, slug string) (model.GroupInfo, error)
	// FetchGroupMembers returns the logins of all members of a team.
	FetchGroupMembers(ctx context.Context, org, slug string) ([]string, error)
}
