package application

import (
	"context"
	"time"
)

// SetClock replaces the guard's clock and sleep so tests never wait for real.
func (g *RateLimitGuard) SetClock(now func() time.Time, sleep func(context.Context, time.Duration) error) {
	g.now = now
	g.sleep = sleep
}

// OnBackoff registers a hook receiving every computed retry delay.
func (e *RetryExecutor) OnBackoff(f func(time.Duration)) {
	e.onBackoff = f
}

// SetClock fixes the service's notion of now.
func (s *DigestService) SetClock(now func() time.Time) {
	s.now = now
}
