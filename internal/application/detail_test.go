package application_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/reviewnudge/internal/application"
	"github.com/ericfisherdev/reviewnudge/internal/domain/model"
	"github.com/ericfisherdev/reviewnudge/internal/domain/port/driven"
)

var readyAt = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func remoteWith(keys ...model.PRKey) *mockRemote {
	remote := newMockRemote()
	for _, k := range keys {
		remote.records[k] = readyRecord(k, readyAt, "alice")
	}
	return remote
}

func TestFetch_BatchesPerRepository(t *testing.T) {
	keys := []model.PRKey{key("acme/web", 9), key("acme/api", 3), key("acme/api", 1), key("acme/api", 2)}
	remote := remoteWith(keys...)
	fetcher := application.NewDetailFetcher(remote, application.DetailConfig{Batch: true})
	run, exec := newRun(false)

	records, err := fetcher.Fetch(context.Background(), run, exec, keys)

	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, [][]int{{1, 2, 3}, {9}}, remote.batchCalls)
	assert.Equal(t, 2, run.Metrics.DetailCalls)
	assert.Equal(t, 2, run.Metrics.BatchedSavings)
	assert.Equal(t, key("acme/api", 1), records[0].Key())
	assert.Equal(t, key("acme/web", 9), records[3].Key())
}

func TestFetch_BatchReducesRoundTrips(t *testing.T) {
	var keys []model.PRKey
	for n := 1; n <= 10; n++ {
		keys = append(keys, key("acme/api", n))
	}
	remote := remoteWith(keys...)
	fetcher := application.NewDetailFetcher(remote, application.DetailConfig{Batch: true})
	run, exec := newRun(false)

	_, err := fetcher.Fetch(context.Background(), run, exec, keys)

	require.NoError(t, err)
	reduction := 1 - float64(run.Metrics.DetailCalls)/float64(len(keys))
	assert.GreaterOrEqual(t, reduction, 0.6)
}

func TestFetch_ChunksLargeRepositories(t *testing.T) {
	var keys []model.PRKey
	for n := 1; n <= 30; n++ {
		keys = append(keys, key("acme/api", n))
	}
	remote := remoteWith(keys...)
	fetcher := application.NewDetailFetcher(remote, application.DetailConfig{Batch: true, BatchSize: 25})
	run, exec := newRun(false)

	records, err := fetcher.Fetch(context.Background(), run, exec, keys)

	require.NoError(t, err)
	assert.Len(t, records, 30)
	require.Len(t, remote.batchCalls, 2)
	assert.Len(t, remote.batchCalls[0], 25)
	assert.Len(t, remote.batchCalls[1], 5)
}

func TestFetch_UnbatchedFetchesEachKeyOnce(t *testing.T) {
	keys := []model.PRKey{key("acme/api", 2), key("acme/api", 1), key("acme/api", 2)}
	remote := remoteWith(keys...)
	fetcher := application.NewDetailFetcher(remote, application.DetailConfig{Batch: false})
	run, exec := newRun(false)

	records, err := fetcher.Fetch(context.Background(), run, exec, keys)

	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, []model.PRKey{key("acme/api", 1), key("acme/api", 2)}, remote.detailCalls)
	assert.Empty(t, remote.batchCalls)
	assert.Equal(t, 2, run.Metrics.DetailCalls)
	assert.Equal(t, 0, run.Metrics.BatchedSavings)
}

func TestFetch_FailureAborts(t *testing.T) {
	remote := remoteWith(key("acme/api", 1))
	remote.batchErr = &driven.RemoteError{Op: "batch", StatusCode: 502, Message: "Bad Gateway"}
	fetcher := application.NewDetailFetcher(remote, application.DetailConfig{Batch: true})
	run, exec := newRun(false)

	records, err := fetcher.Fetch(context.Background(), run, exec, []model.PRKey{key("acme/api", 1)})

	require.Error(t, err)
	assert.Nil(t, records)
	assert.Contains(t, err.Error(), "acme/api")
}

func TestFetch_DryRunSkipsFailures(t *testing.T) {
	remote := remoteWith(key("acme/api", 1))
	remote.detailErr = &driven.RemoteError{Op: "detail", StatusCode: 404, Message: "Not Found"}
	fetcher := application.NewDetailFetcher(remote, application.DetailConfig{Batch: false})
	run, exec := newRun(true)

	records, err := fetcher.Fetch(context.Background(), run, exec, []model.PRKey{key("acme/api", 1)})

	require.NoError(t, err)
	assert.Empty(t, records)
	assert.True(t, run.Partial)
}
