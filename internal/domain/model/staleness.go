package model

// Category is the staleness bucket of a pull request.
type Category string

const (
	CategoryFresh  Category = "FRESH"
	CategoryAging  Category = "AGING"
	CategoryRotten Category = "ROTTEN"
)

// Default staleness thresholds in business days.
const (
	defaultFreshMaxDays  = 3
	defaultRottenMinDays = 11
)

// StalenessThresholds bounds the categories. Values up to and including FreshMaxDays are
// FRESH, values from RottenMinDays are ROTTEN, everything between is AGING.
type StalenessThresholds struct {
	FreshMaxDays  float64
	RottenMinDays float64
}

// DefaultStalenessThresholds returns the 0–3 / 4–10 / 11+ business-day buckets.
func DefaultStalenessThresholds() StalenessThresholds {
	return StalenessThresholds{
		FreshMaxDays:  defaultFreshMaxDays,
		RottenMinDays: defaultRottenMinDays,
	}
}

// Categorize buckets a staleness value.
func (t StalenessThresholds) Categorize(days float64) Category {
	switch {
	case days <= t.FreshMaxDays:
		return CategoryFresh
	case days < t.RottenMinDays:
		return CategoryAging
	default:
		return CategoryRotten
	}
}

// StalenessResult is a scored pull request. It is derived each run and never persisted.
type StalenessResult struct {
	PR             PullRequestRecord
	StalenessDays  float64
	Category       Category
	PendingMembers []TrackedMember // Tracked members currently requested on the PR.
}
