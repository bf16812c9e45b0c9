package sqlite

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// OptimizeInterval is how often RunOptimizer runs PRAGMA optimize.
const OptimizeInterval = time.Hour

// RunOptimizer runs PRAGMA optimize once per OptimizeInterval until ctx is done.
// See https://www.sqlite.org/pragma.html#pragma_optimize. Failures are logged and retried on the next tick, so
// it only returns when ctx is done.
func (db *Database) RunOptimizer(ctx context.Context) error {
	// The first run analyzes every table that may benefit. Later runs are cheap.
	if _, err := db.ReadWrite.ExecContext(ctx, "PRAGMA optimize = 0x10002;"); err != nil {
		db.logger.LogAttrs(ctx, slog.LevelError, "failed to optimize database",
			slog.Any("error", fmt.Errorf("init optimize database: %w", err)))
	}
	ticker := time.NewTicker(OptimizeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		start := time.Now()
		if _, err := db.ReadWrite.ExecContext(ctx, "PRAGMA optimize;"); err != nil {
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to optimize database",
				slog.Any("error", fmt.Errorf("optimize database: %w", err)))
			continue
		}
		db.logger.LogAttrs(ctx, slog.LevelInfo, "optimized database", slog.Duration("duration", time.Since(start)))
	}
}
