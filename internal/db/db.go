// Package db provides a pgxpool-based connection pool with prepared statement
// registration and health checking.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hoopcombine/combine-data/internal/config"
)

// Pool wraps pgxpool.Pool with application-specific helpers.
type Pool struct {
	*pgxpool.Pool
}

// New creates and validates a new connection pool.
func New(ctx context.Context, cfg *config.Config) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MinConns = int32(cfg.DBPoolMinConns)
	poolCfg.MaxConns = int32(cfg.DBPoolMaxConns)
	poolCfg.MaxConnLifetime = cfg.DBPoolMaxLife
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	// Register prepared statements on every new connection.
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return registerPreparedStatements(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// Verify connectivity
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// HealthCheck runs a trivial query to verify the database is reachable.
func (p *Pool) HealthCheck(ctx context.Context) error {
	var n int
	return p.QueryRow(ctx, "health_check").Scan(&n)
}

// registerPreparedStatements registers all statements the API and compute
// layers use. Prepared statements eliminate parse overhead on every request.
func registerPreparedStatements(ctx context.Context, conn *pgx.Conn) error {
	stmts := map[string]string{
		// Health
		"health_check": "SELECT 1",

		// Seasons
		"season_lookup": "SELECT code, start_year, end_year FROM seasons WHERE code = $1",

		// Positions (lazy catalog)
		"position_lookup": "SELECT code, parents FROM positions WHERE code = $1",
		"position_insert": "INSERT INTO positions (code, parents) VALUES ($1, $2) ON CONFLICT (code) DO NOTHING",

		// Metric definitions
		"definition_keys": "SELECT id, metric_key FROM metric_definitions",
		"definitions_all": "SELECT id, metric_key, display_name, source, category, unit, statistic FROM metric_definitions ORDER BY source, metric_key",

		// Snapshots
		"snapshot_max_version": "SELECT COALESCE(MAX(version), 0) FROM metric_snapshots WHERE cohort = $1 AND source = $2 AND run_key = $3",
		"snapshot_current": `SELECT id, cohort, source, run_key, version, season_code,
			position_scope_fine, position_scope_parent, population_size
			FROM metric_snapshots
			WHERE cohort = $1 AND source = $2 AND is_current
			  AND COALESCE(season_code, '') = COALESCE($3, '')
			  AND COALESCE(position_scope_fine, '') = COALESCE($4, '')
			  AND COALESCE(position_scope_parent, '') = COALESCE($5, '')`,

		// API: player values for a snapshot
		"player_values": `SELECT d.metric_key, d.display_name, d.category, d.unit,
			v.raw_value, v.rank, v.percentile, v.z_score, v.population_size
			FROM player_metric_values v
			JOIN metric_definitions d ON d.id = v.metric_id
			WHERE v.snapshot_id = $1 AND v.player_id = $2
			ORDER BY d.metric_key`,

		// API: similarity neighbors for an anchor player
		"similar_players": `SELECT s.comp_player_id, p.name, s.similarity, s.distance, s.overlap, s.rank
			FROM player_similarity s
			JOIN players p ON p.id = s.comp_player_id
			WHERE s.snapshot_id = $1 AND s.dimension = $2 AND s.player_id = $3
			ORDER BY s.rank
			LIMIT $4`,
	}

	for name, sql := range stmts {
		if _, err := conn.Prepare(ctx, name, sql); err != nil {
			return fmt.Errorf("prepare %q: %w", name, err)
		}
	}
	return nil
}
