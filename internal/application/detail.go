package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ericfisherdev/reviewnudge/internal/domain/model"
	"github.com/ericfisherdev/reviewnudge/internal/domain/port/driven"
)

// DefaultBatchSize caps the PRs resolved by one batched query.
const DefaultBatchSize = 25

// DetailConfig controls DetailFetcher.
type DetailConfig struct {
	Batch     bool // Group keys per repository into batched queries. Off falls back to one call per key.
	BatchSize int
	Pacing    time.Duration
}

// DetailFetcher resolves full PR metadata for each unique key exactly once.
type DetailFetcher struct {
	client driven.RemoteClient
	cfg    DetailConfig
}

// NewDetailFetcher creates a DetailFetcher.
func NewDetailFetcher(client driven.RemoteClient, cfg DetailConfig) *DetailFetcher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	return &DetailFetcher{client: client, cfg: cfg}
}

// Fetch resolves keys into records, ordered by repository then number.
func (f *DetailFetcher) Fetch(ctx context.Context, run *RunContext, exec *RetryExecutor, keys []model.PRKey) ([]model.PullRequestRecord, error) {
	unique := dedupeKeys(keys)
	pacer := newPacer(f.cfg.Pacing)

	var records []model.PullRequestRecord
	var err error
	if f.cfg.Batch {
		records, err = f.fetchBatched(ctx, run, exec, unique, pacer.Wait)
	} else {
		records, err = f.fetchSingly(ctx, run, exec, unique, pacer.Wait)
	}
	if err != nil {
		return nil, err
	}

	run.Logger.Info("pull request details fetched",
		"keys", len(unique),
		"records", len(records),
		"detail_calls", run.Metrics.DetailCalls,
		"batched_savings", run.Metrics.BatchedSavings,
		"batch_mode", f.cfg.Batch,
	)

	return records, nil
}

func (f *DetailFetcher) fetchBatched(
	ctx context.Context,
	run *RunContext,
	exec *RetryExecutor,
	keys []model.PRKey,
	wait func(context.Context) error,
) ([]model.PullRequestRecord, error) {
	repos, byRepo := groupByRepo(keys)
	records := make([]model.PullRequestRecord, 0, len(keys))

	for _, repo := range repos {
		numbers := byRepo[repo]
		for start := 0; start < len(numbers); start += f.cfg.BatchSize {
			chunk := numbers[start:min(start+f.cfg.BatchSize, len(numbers))]

			if err := wait(ctx); err != nil {
				return nil, err
			}

			run.Metrics.DetailCalls++
			op := fmt.Sprintf("batch fetch %d pull requests in %s", len(chunk), repo)
			batch, err := Call(ctx, exec, op, func(ctx context.Context) ([]model.PullRequestRecord, error) {
				return f.client.FetchDetailsBatch(ctx, repo, chunk)
			})
			if err != nil {
				if f.tolerate(run, err, "repo", repo, "count", len(chunk)) {
					continue
				}
				return nil, fmt.Errorf("fetching details for %s: %w", repo, err)
			}

			run.Metrics.BatchedSavings += len(chunk) - 1
			records = append(records, batch...)
		}
	}

	return records, nil
}

func (f *DetailFetcher) fetchSingly(
	ctx context.Context,
	run *RunContext,
	exec *RetryExecutor,
	keys []model.PRKey,
	wait func(context.Context) error,
) ([]model.PullRequestRecord, error) {
	records := make([]model.PullRequestRecord, 0, len(keys))

	for _, key := range keys {
		if err := wait(ctx); err != nil {
			return nil, err
		}

		run.Metrics.DetailCalls++
		record, err := Call(ctx, exec, "fetch detail "+key.String(), func(ctx context.Context) (model.PullRequestRecord, error) {
			return f.client.FetchDetail(ctx, key)
		})
		if err != nil {
			if f.tolerate(run, err, "pr", key.String()) {
				continue
			}
			return nil, fmt.Errorf("fetching details for %s: %w", key, err)
		}

		records = append(records, record)
	}

	return records, nil
}

// tolerate reports whether a failure may be skipped, which only dry-run mode allows.
func (f *DetailFetcher) tolerate(run *RunContext, err error, attrs ...any) bool {
	if !run.DryRun || errors.Is(err, context.Canceled) {
		return false
	}
	run.Logger.Warn("detail fetch failed, continuing with partial results (dry run)",
		append(attrs, "error", err)...,
	)
	run.Partial = true
	return true
}

// dedupeKeys returns the distinct keys in repository/number order.
func dedupeKeys(keys []model.PRKey) []model.PRKey {
	seen := make(map[model.PRKey]struct{}, len(keys))
	out := make([]model.PRKey, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sortKeys(out)
	return out
}
