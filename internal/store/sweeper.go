package store

import (
	"context"
	"log/slog"
	"time"
)

const sweepInterval = 5 * time.Minute

// StartSweeper runs a background goroutine that periodically removes
// expired sessions. Redis expires keys itself; for that backend the sweep
// is a no-op but stays running so backend selection does not leak here.
func StartSweeper(ctx context.Context, repo Repository, interval time.Duration) {
	if interval <= 0 {
		interval = sweepInterval
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("session sweeper started", "interval", interval)

		for {
			select {
			case <-ticker.C:
				removed, err := repo.CleanupExpired(ctx)
				if err != nil {
					slog.Error("session sweep failed", "error", err)
					continue
				}
				if removed > 0 {
					slog.Info("session sweep removed expired sessions", "count", removed)
				}
			case <-ctx.Done():
				slog.Info("session sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}
