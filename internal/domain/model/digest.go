package model

import "time"

// Digest is the ordered, bounded result of one run, handed to a renderer.
type Digest struct {
	RunID          string
	GeneratedAt    time.Time
	Results        []StalenessResult
	TruncatedCount int
	Partial        bool // Only set in dry-run mode when quota or remote failures cut the run short.
	Metrics        CallMetrics
}
