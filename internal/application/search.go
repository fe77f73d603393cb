package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ericfisherdev/reviewnudge/internal/domain/model"
	"github.com/ericfisherdev/reviewnudge/internal/domain/port/driven"
)

// sinceLayout is the date format of the search "updated:>=" qualifier.
const sinceLayout = "2006-01-02"

// searchOrigins are the two queries issued per member, in order.
var searchOrigins = []model.SearchOrigin{model.OriginNone, model.OriginRequired}

// SearchConfig controls SearchAggregator.
type SearchConfig struct {
	Org    string        // Optional org: qualifier.
	Limit  int           // Result cap per query.
	Pacing time.Duration // Spacing between successive search calls.
}

// SearchAggregator runs the dual-mode search for every tracked member and collects the
// deduplicated set of PR keys with the queries that found them.
type SearchAggregator struct {
	client driven.RemoteClient
	cfg    SearchConfig
}

// NewSearchAggregator creates a SearchAggregator.
func NewSearchAggregator(client driven.RemoteClient, cfg SearchConfig) *SearchAggregator {
	return &SearchAggregator{client: client, cfg: cfg}
}

// Aggregate issues the "no review yet" and "review in progress" queries for each member,
// in member order, and fills run.Keys and run.Origins. A terminal failure of any query
// aborts the aggregation; in dry-run mode it is logged, the run is marked partial, and the
// remaining queries still run.
func (a *SearchAggregator) Aggregate(
	ctx context.Context,
	run *RunContext,
	exec *RetryExecutor,
	members []model.TrackedMember,
	since time.Time,
) (map[model.PRKey]struct{}, model.SearchOriginMap, error) {
	pacer := newPacer(a.cfg.Pacing)
	sinceStr := since.Format(sinceLayout)

	for _, member := range members {
		for _, origin := range searchOrigins {
			if err := pacer.Wait(ctx); err != nil {
				return nil, nil, err
			}

			query := model.SearchQuery{
				Reviewer: member.Handle,
				Review:   origin,
				Since:    sinceStr,
				Org:      a.cfg.Org,
				Limit:    a.cfg.Limit,
			}

			run.Metrics.SearchCalls++
			op := fmt.Sprintf("search review:%s for %s", origin, member.Handle)
			keys, err := Call(ctx, exec, op, func(ctx context.Context) ([]model.PRKey, error) {
				return a.client.SearchPullRequests(ctx, query)
			})
			if err != nil {
				if run.DryRun && !errors.Is(err, context.Canceled) {
					run.Logger.Warn("search failed, continuing with partial results (dry run)",
						"member", member.Handle,
						"origin", origin,
						"error", err,
					)
					run.Partial = true
					continue
				}
				return nil, nil, fmt.Errorf("searching review:%s for %s: %w", origin, member.Handle, err)
			}

			for _, key := range keys {
				run.AddKey(key, origin, member.Handle)
			}

			run.Logger.Debug("search complete",
				"member", member.Handle,
				"origin", origin,
				"found", len(keys),
				"unique_total", len(run.Keys),
			)
		}
	}

	run.Logger.Info("search aggregation complete",
		"members", len(members),
		"unique_prs", len(run.Keys),
		"search_calls", run.Metrics.SearchCalls,
	)

	return run.Keys, run.Origins, nil
}
