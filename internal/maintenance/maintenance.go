// Package maintenance runs periodic background tasks as Go tickers.
// Superseded snapshot versions accumulate with every recompute; pruning is
// driven from the API process since it is already a persistent service.
package maintenance

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hoopcombine/combine-data/internal/config"
)

// Config controls maintenance task intervals. Zero duration disables a task.
type Config struct {
	PruneInterval time.Duration // Superseded snapshot removal
	KeepVersions  int           // Most recent versions kept per run key
	RetentionAge  time.Duration // Superseded snapshots younger than this survive
}

// DefaultConfig returns sensible production defaults.
func DefaultConfig() Config {
	return Config{
		PruneInterval: 6 * time.Hour,
		KeepVersions:  3,
		RetentionAge:  72 * time.Hour,
	}
}

// Start launches all configured maintenance tickers. Blocks until ctx is
// cancelled. Intended to be called with `go`.
func Start(ctx context.Context, pool *pgxpool.Pool, cfg Config, logger *slog.Logger) {
	logger.Info("Maintenance tickers started",
		"prune", cfg.PruneInterval,
		"keep_versions", cfg.KeepVersions,
		"retention_age", cfg.RetentionAge)

	if cfg.PruneInterval > 0 {
		t := time.NewTicker(cfg.PruneInterval)
		defer t.Stop()
		go runLoop(ctx, t.C, func() { pruneSnapshots(ctx, pool, cfg, logger) })
	}

	<-ctx.Done()
	logger.Info("Maintenance tickers stopped")
}

func runLoop(ctx context.Context, ch <-chan time.Time, fn func()) {
	for {
		select {
		case <-ch:
			fn()
		case <-ctx.Done():
			return
		}
	}
}

// pruneSnapshots deletes superseded snapshot versions past the keep depth and
// retention age. Current snapshots are never deleted; value and similarity
// rows go with their snapshot via ON DELETE CASCADE.
func pruneSnapshots(ctx context.Context, pool *pgxpool.Pool, cfg Config, logger *slog.Logger) {
	tag, err := pool.Exec(ctx, `
		DELETE FROM `+config.SnapshotsTable+`
		WHERE id IN (
			SELECT id FROM (
				SELECT id, is_current, created_at,
					ROW_NUMBER() OVER (
						PARTITION BY cohort, source, run_key
						ORDER BY version DESC
					) AS depth
				FROM `+config.SnapshotsTable+`
			) ranked
			WHERE NOT is_current
			  AND depth > $1
			  AND created_at < NOW() - make_interval(hours => $2)
		)`,
		cfg.KeepVersions,
		int(cfg.RetentionAge.Hours()),
	)
	if err != nil {
		logger.Warn("Snapshot prune failed", "error", err)
		return
	}
	if tag.RowsAffected() > 0 {
		logger.Info("Superseded snapshots pruned", "deleted", tag.RowsAffected())
	}
}
