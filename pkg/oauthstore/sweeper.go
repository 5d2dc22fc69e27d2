package oauthstore

import (
	"context"
	"log/slog"
	"time"
)

// CleanupFunc removes expired records and returns the count removed.
// Store.CleanupExpired satisfies it; so do cleanup hooks from other
// packages.
type CleanupFunc func(ctx context.Context, now time.Time) (int64, error)

// Sweeper periodically runs cleanup functions over expired records.
// Correctness never depends on it (callers check expiry lazily); without
// it, storage for abandoned logins, dead sessions and expired tokens grows
// without bound.
type Sweeper struct {
	interval time.Duration
	cleanups []CleanupFunc
}

// NewSweeper creates a sweeper running the given cleanups every interval.
func NewSweeper(interval time.Duration, cleanups ...CleanupFunc) *Sweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Sweeper{interval: interval, cleanups: cleanups}
}

// Run sweeps on a ticker until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	now := time.Now()
	var removed int64
	for _, cleanup := range s.cleanups {
		n, err := cleanup(ctx, now)
		if err != nil {
			slog.Error("expired record cleanup failed", "err", err)
			continue
		}
		removed += n
	}
	if removed > 0 {
		slog.Info("removed expired auth records", "count", removed)
	}
}
