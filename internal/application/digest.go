package application

import (
	"context"
	"fmt"
	"time"

	"github.com/ericfisherdev/reviewnudge/internal/domain/model"
	"github.com/ericfisherdev/reviewnudge/internal/domain/port/driven"
)

// DigestConfig bundles the tunables of one digest run.
type DigestConfig struct {
	Retry         RetryConfig
	WaitThreshold time.Duration
	Search        SearchConfig
	Detail        DetailConfig
	SinceDays     int
	GroupSizeCap  int
	DisplayBudget int
}

// DigestService runs the full pipeline: quota guard, search, detail fetch, team expansion,
// presence filtering, scoring and allocation.
type DigestService struct {
	client driven.RemoteClient
	cfg    DigestConfig
	engine *StalenessEngine

	now func() time.Time
}

// NewDigestService creates a DigestService.
func NewDigestService(client driven.RemoteClient, cfg DigestConfig, engine *StalenessEngine) *DigestService {
	return &DigestService{
		client: client,
		cfg:    cfg,
		engine: engine,
		now:    time.Now,
	}
}

// Run produces the digest for members. Any fatal error aborts the run and no digest is
// returned. In dry-run mode failures that would otherwise abort are logged and the digest
// is marked partial.
func (s *DigestService) Run(ctx context.Context, members []model.TrackedMember, dryRun bool) (*model.Digest, error) {
	run := NewRunContext(dryRun)
	exec := NewRetryExecutor(s.cfg.Retry, run)
	logger := run.Logger

	logger.Info("digest run started", "members", len(members), "dry_run", dryRun)

	// 1. Quota.
	guard := NewRateLimitGuard(s.client, s.cfg.WaitThreshold)
	guard.now = s.now
	if err := guard.Ensure(ctx, run, exec); err != nil {
		s.logSummary(run, "aborted")
		return nil, err
	}

	// 2. Search.
	since := s.now().AddDate(0, 0, -s.cfg.SinceDays)
	aggregator := NewSearchAggregator(s.client, s.cfg.Search)
	if _, _, err := aggregator.Aggregate(ctx, run, exec, members, since); err != nil {
		s.logSummary(run, "aborted")
		return nil, fmt.Errorf("aggregating searches: %w", err)
	}

	// 3. Details.
	fetcher := NewDetailFetcher(s.client, s.cfg.Detail)
	records, err := fetcher.Fetch(ctx, run, exec, run.SortedKeys())
	if err != nil {
		s.logSummary(run, "aborted")
		return nil, fmt.Errorf("fetching details: %w", err)
	}

	// 4. Teams.
	resolver := NewReviewerResolver(s.client, s.cfg.GroupSizeCap)
	resolver.ExpandRecords(ctx, run, exec, records, members)

	// 5. Presence.
	filtered := NewPresenceFilter(logger).Filter(records, run.Origins, members)

	// 6. Staleness.
	now := s.now()
	results := make([]model.StalenessResult, 0, len(filtered))
	for _, rec := range filtered {
		result, ok := s.engine.Score(rec, now)
		if !ok {
			continue
		}
		result.PendingMembers = s.pendingMembers(run, rec, members)
		results = append(results, result)
	}

	// 7. Allocation.
	shown, truncated := Allocate(results, s.cfg.DisplayBudget)

	if run.Partial {
		logger.Warn("digest contains partial results (dry run)")
	}

	s.logSummary(run, "completed",
		"records", len(records),
		"after_filter", len(filtered),
		"scored", len(results),
		"shown", len(shown),
		"truncated", truncated,
	)

	return &model.Digest{
		RunID:          run.ID,
		GeneratedAt:    now,
		Results:        shown,
		TruncatedCount: truncated,
		Partial:        run.Partial,
		Metrics:        run.Metrics,
	}, nil
}

// pendingMembers lists tracked members pending on rec. When none is visible on the record
// itself (for example behind an unexpanded team) the members whose searches found it are used.
func (s *DigestService) pendingMembers(run *RunContext, rec model.PullRequestRecord, members []model.TrackedMember) []model.TrackedMember {
	if pending := PendingMembers(rec, members); len(pending) > 0 {
		return pending
	}

	origin, ok := run.Origins[rec.Key()]
	if !ok {
		return nil
	}
	var pending []model.TrackedMember
	for _, handle := range origin.Members() {
		if m, ok := model.FindMember(members, handle); ok {
			pending = append(pending, m)
		}
	}
	return pending
}

func (s *DigestService) logSummary(run *RunContext, outcome string, attrs ...any) {
	attrs = append(attrs, "outcome", outcome, "duration", time.Since(run.StartedAt).Round(time.Millisecond))
	run.Logger.Info("digest run finished", append(attrs, run.Metrics.LogAttrs()...)...)
}
