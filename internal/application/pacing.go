package application

import (
	"time"

	"golang.org/x/time/rate"
)

// DefaultPacing is the minimum spacing between successive remote calls.
const DefaultPacing = time.Second

// newPacer returns a limiter that lets the first call through at once and spaces the rest
// by interval. A non-positive interval disables pacing.
func newPacer(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}
