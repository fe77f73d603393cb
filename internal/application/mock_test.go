package application_test

import (
	"context"
	"fmt"
	"time"

	"github.com/ericfisherdev/reviewnudge/internal/application"
	"github.com/ericfisherdev/reviewnudge/internal/domain/model"
)

// --- Mock implementations ---

type mockRemote struct {
	searchFn func(q model.SearchQuery) ([]model.PRKey, error)
	searches []model.SearchQuery

	records     map[model.PRKey]model.PullRequestRecord
	detailErr   error
	detailCalls []model.PRKey
	batchErr    error
	batchCalls  [][]int

	quota      model.RateLimitState
	quotaErr   error
	quotaCalls int

	groupInfo       map[string]model.GroupInfo
	groupInfoErr    error
	groupMembers    map[string][]string
	groupMembersErr error
	infoCalls       int
	memberCalls     int
}

func newMockRemote() *mockRemote {
	return &mockRemote{
		records:      make(map[model.PRKey]model.PullRequestRecord),
		quota:        model.RateLimitState{Remaining: 5000, Limit: 5000},
		groupInfo:    make(map[string]model.GroupInfo),
		groupMembers: make(map[string][]string),
	}
}

func (m *mockRemote) SearchPullRequests(_ context.Context, q model.SearchQuery) ([]model.PRKey, error) {
	m.searches = append(m.searches, q)
	if m.searchFn == nil {
		return nil, nil
	}
	return m.searchFn(q)
}

func (m *mockRemote) FetchDetail(_ context.Context, key model.PRKey) (model.PullRequestRecord, error) {
	m.detailCalls = append(m.detailCalls, key)
	if m.detailErr != nil {
		return model.PullRequestRecord{}, m.detailErr
	}
	rec, ok := m.records[key]
	if !ok {
		return model.PullRequestRecord{}, fmt.Errorf("no record for %s", key)
	}
	return rec, nil
}

func (m *mockRemote) FetchDetailsBatch(_ context.Context, repo string, numbers []int) ([]model.PullRequestRecord, error) {
	m.batchCalls = append(m.batchCalls, append([]int(nil), numbers...))
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	out := make([]model.PullRequestRecord, 0, len(numbers))
	for _, n := range numbers {
		key := model.PRKey{Repo: repo, Number: n}
		m.detailCalls = append(m.detailCalls, key)
		rec, ok := m.records[key]
		if !ok {
			return nil, fmt.Errorf("no record for %s", key)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (m *mockRemote) FetchQuota(_ context.Context) (model.RateLimitState, error) {
	m.quotaCalls++
	return m.quota, m.quotaErr
}

func (m *mockRemote) FetchGroupInfo(_ context.Context, org, slug string) (model.GroupInfo, error) {
	m.infoCalls++
	if m.groupInfoErr != nil {
		return model.GroupInfo{}, m.groupInfoErr
	}
	return m.groupInfo[org+"/"+slug], nil
}

func (m *mockRemote) FetchGroupMembers(_ context.Context, org, slug string) ([]string, error) {
	m.memberCalls++
	if m.groupMembersErr != nil {
		return nil, m.groupMembersErr
	}
	return m.groupMembers[org+"/"+slug], nil
}

// --- Helpers ---

// fastRetry keeps backoff in the millisecond range so retry tests stay quick.
func fastRetry() application.RetryConfig {
	return application.RetryConfig{MaxRetries: 3, BackoffBase: time.Millisecond}
}

func newRun(dryRun bool) (*application.RunContext, *application.RetryExecutor) {
	run := application.NewRunContext(dryRun)
	return run, application.NewRetryExecutor(fastRetry(), run)
}

func key(repo string, number int) model.PRKey {
	return model.PRKey{Repo: repo, Number: number}
}

func ptr[T any](v T) *T {
	return &v
}

// readyRecord returns a non-draft record needing one approval, ready since readyAt.
func readyRecord(k model.PRKey, readyAt time.Time, reviewers ...string) model.PullRequestRecord {
	return model.PullRequestRecord{
		Repo:               k.Repo,
		Number:             k.Number,
		Title:              fmt.Sprintf("PR %d", k.Number),
		URL:                fmt.Sprintf("https://github.com/%s/pull/%d", k.Repo, k.Number),
		Author:             "dave",
		RequestedReviewers: reviewers,
		CreatedAt:          readyAt,
		ReadyAt:            ptr(readyAt),
		RequiredApprovals:  1,
		ReviewState:        model.ReviewStateNone,
	}
}

var (
	alice = model.TrackedMember{Handle: "alice", MentionID: "U01"}
	bob   = model.TrackedMember{Handle: "bob"}
)
