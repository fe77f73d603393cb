package application

import (
	"sort"

	"github.com/ericfisherdev/reviewnudge/internal/domain/model"
)

// HardCap is the most rows the downstream renderer accepts.
const HardCap = 50

// Allocate orders results by staleness (most stale first), then creation time (oldest
// first), then repository and number, and keeps at most min(budget, HardCap). A
// non-positive budget means HardCap. It returns the kept results and how many were dropped.
// The input slice is not modified.
func Allocate(results []model.StalenessResult, budget int) ([]model.StalenessResult, int) {
	limit := HardCap
	if budget > 0 && budget < limit {
		limit = budget
	}

	sorted := append([]model.StalenessResult(nil), results...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.StalenessDays != b.StalenessDays {
			return a.StalenessDays > b.StalenessDays
		}
		if !a.PR.CreatedAt.Equal(b.PR.CreatedAt) {
			return a.PR.CreatedAt.Before(b.PR.CreatedAt)
		}
		if a.PR.Repo != b.PR.Repo {
			return a.PR.Repo < b.PR.Repo
		}
		return a.PR.Number < b.PR.Number
	})

	if len(sorted) <= limit {
		return sorted, 0
	}
	return sorted[:limit], len(sorted) - limit
}
