package application

import (
	"sort"

	"github.com/ericfisherdev/reviewnudge/internal/domain/model"
)

// sortKeys orders keys by repository, then number.
func sortKeys(keys []model.PRKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Repo != keys[j].Repo {
			return keys[i].Repo < keys[j].Repo
		}
		return keys[i].Number < keys[j].Number
	})
}

// groupByRepo buckets keys per repository, preserving sorted order within each bucket.
func groupByRepo(keys []model.PRKey) ([]string, map[string][]int) {
	sorted := append([]model.PRKey(nil), keys...)
	sortKeys(sorted)

	var repos []string
	byRepo := make(map[string][]int)
	for _, k := range sorted {
		if _, ok := byRepo[k.Repo]; !ok {
			repos = append(repos, k.Repo)
		}
		byRepo[k.Repo] = append(byRepo[k.Repo], k.Number)
	}
	return repos, byRepo
}
