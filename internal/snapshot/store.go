package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hoopcombine/combine-data/internal/config"
	"github.com/hoopcombine/combine-data/internal/metrics"
	"github.com/hoopcombine/combine-data/internal/position"
)

// ErrEmptyRun marks a run whose computation produced nothing persistable.
// The snapshot write is rolled back; callers report it and continue.
var ErrEmptyRun = errors.New("run produced no persistable rows")

// ErrNotFound marks a missing snapshot.
var ErrNotFound = errors.New("snapshot not found")

// Store reads and writes snapshot and value rows.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New creates a snapshot store.
func New(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	return &Store{pool: pool, logger: logger}
}

// Row is one snapshot record.
type Row struct {
	ID                  int
	Cohort              string
	Source              string
	RunKey              string
	Version             int
	SeasonCode          *string
	PositionScopeFine   *string
	PositionScopeParent *string
	PopulationSize      int
}

// --------------------------------------------------------------------------
// Metric definitions
// --------------------------------------------------------------------------

// EnsureDefinitions makes sure each metric spec has a catalog row and returns
// metric_key -> id. Idempotent: existing rows are never touched.
func (s *Store) EnsureDefinitions(ctx context.Context, specs []metrics.Spec) (map[string]int, error) {
	ids := make(map[string]int, len(specs))

	rows, err := s.pool.Query(ctx, "definition_keys")
	if err != nil {
		return nil, fmt.Errorf("list metric definitions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id int
		var key string
		if err := rows.Scan(&id, &key); err != nil {
			return nil, fmt.Errorf("scan metric definition: %w", err)
		}
		ids[key] = id
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for _, spec := range specs {
		if _, ok := ids[spec.Key]; ok {
			continue
		}
		var id int
		err := s.pool.QueryRow(ctx, `
			INSERT INTO `+config.DefinitionsTable+`
				(metric_key, display_name, source, category, unit, statistic)
			VALUES ($1,$2,$3,$4,$5,$6)
			ON CONFLICT (metric_key) DO UPDATE SET metric_key = EXCLUDED.metric_key
			RETURNING id`,
			spec.Key, spec.DisplayName, spec.Source, spec.Category, spec.Unit, spec.Statistic,
		).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("insert metric definition %q: %w", spec.Key, err)
		}
		ids[spec.Key] = id
	}
	return ids, nil
}

// --------------------------------------------------------------------------
// Versioning
// --------------------------------------------------------------------------

// NextVersion returns 1 + max(version) for the run key. Versions are never
// decremented or reused; the unique constraint on (cohort, source, run_key,
// version) rejects a racing duplicate writer.
func (s *Store) NextVersion(ctx context.Context, cohort, source, runKey string) (int, error) {
	var maxVersion int
	err := s.pool.QueryRow(ctx, "snapshot_max_version", cohort, source, runKey).Scan(&maxVersion)
	if err != nil {
		return 0, fmt.Errorf("read max version: %w", err)
	}
	return maxVersion + 1, nil
}

// DeleteRun removes all snapshots (and, by cascade, their value rows) that
// share a run key and cohort. Used only by the explicit replace-run option.
// It reports the highest version deleted so callers can carry the numbering
// past the removed rows; versions are never reused even across a replace.
func (s *Store) DeleteRun(ctx context.Context, cohort, runKey string) (deleted int64, maxVersion int, err error) {
	rows, err := s.pool.Query(ctx,
		`DELETE FROM `+config.SnapshotsTable+` WHERE cohort = $1 AND run_key = $2 RETURNING version`,
		cohort, runKey)
	if err != nil {
		return 0, 0, fmt.Errorf("delete run %q: %w", runKey, err)
	}
	defer rows.Close()
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return 0, 0, fmt.Errorf("scan deleted version: %w", err)
		}
		deleted++
		if v > maxVersion {
			maxVersion = v
		}
	}
	if err := rows.Err(); err != nil {
		return 0, 0, fmt.Errorf("delete run %q: %w", runKey, err)
	}
	return deleted, maxVersion, nil
}

// resolveVersion keeps version numbers monotonic across a replaced run: the
// database successor applies unless the floor carried over from deleted rows
// is higher.
func resolveVersion(next, floor int) int {
	if next < floor {
		return floor
	}
	return next
}

// --------------------------------------------------------------------------
// Write transaction
// --------------------------------------------------------------------------

// WriteRequest is one snapshot write: the context, the resolved run key, and
// the computed per-metric results.
type WriteRequest struct {
	Context Context
	RunKey  string
	Results []metrics.Result
	DefIDs  map[string]int
	DryRun  bool

	// MinVersion is the lowest version this write may assign. A replace-run
	// caller sets it to one past the highest deleted version, because the
	// max-version readback no longer sees the removed rows.
	MinVersion int
}

// Written reports a completed (or dry-run) snapshot write.
type Written struct {
	SnapshotID int
	Version    int
	Rows       int
	Population int
	DryRun     bool
}

// Write inserts an un-promoted snapshot row, flushes it to obtain its id, and
// bulk-inserts the per-player values inside one transaction. A run with zero
// computable rows is rolled back (ErrEmptyRun); a dry run performs the same
// work and always rolls back.
func (s *Store) Write(ctx context.Context, req WriteRequest) (*Written, error) {
	next, err := s.NextVersion(ctx, string(req.Context.Cohort), string(req.Context.Source), req.RunKey)
	if err != nil {
		return nil, err
	}
	version := resolveVersion(next, req.MinVersion)

	population := 0
	total := 0
	for _, r := range req.Results {
		if r.Skipped() {
			continue
		}
		total += len(r.Values)
		if r.BaselineSize > population {
			population = r.BaselineSize
		}
	}
	if total == 0 {
		return nil, ErrEmptyRun
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin snapshot write: %w", err)
	}
	defer tx.Rollback(ctx)

	var snapshotID int
	err = tx.QueryRow(ctx, `
		INSERT INTO `+config.SnapshotsTable+`
			(cohort, source, run_key, version, season_code,
			 position_scope_fine, position_scope_parent, population_size, is_current)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,FALSE)
		RETURNING id`,
		req.Context.Cohort, req.Context.Source, req.RunKey, version,
		req.Context.seasonParam(), req.Context.fineParam(), req.Context.parentParam(),
		population,
	).Scan(&snapshotID)
	if err != nil {
		return nil, fmt.Errorf("insert snapshot: %w", err)
	}

	var values [][]any
	for _, r := range req.Results {
		if r.Skipped() {
			continue
		}
		metricID, ok := req.DefIDs[r.Spec.Key]
		if !ok {
			return nil, fmt.Errorf("no definition id for metric %q", r.Spec.Key)
		}
		for _, v := range r.Values {
			values = append(values, []any{
				snapshotID, metricID, v.PlayerID,
				v.Raw, v.Rank, v.Percentile, v.ZScore, v.Population,
			})
		}
	}

	copied, err := tx.CopyFrom(ctx,
		pgx.Identifier{config.ValuesTable},
		[]string{"snapshot_id", "metric_id", "player_id", "raw_value", "rank", "percentile", "z_score", "population_size"},
		pgx.CopyFromRows(values),
	)
	if err != nil {
		return nil, fmt.Errorf("copy values: %w", err)
	}

	written := &Written{
		SnapshotID: snapshotID,
		Version:    version,
		Rows:       int(copied),
		Population: population,
		DryRun:     req.DryRun,
	}

	if req.DryRun {
		// Deliberate rollback: identical computation and diagnostics, no
		// committed state.
		return written, nil
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit snapshot write: %w", err)
	}

	s.logger.Info("Snapshot written",
		"snapshot_id", snapshotID, "cohort", req.Context.Cohort,
		"source", req.Context.Source, "run_key", req.RunKey,
		"version", version, "rows", copied)
	return written, nil
}

// --------------------------------------------------------------------------
// Promotion
// --------------------------------------------------------------------------

// Promote marks the latest version of a run key current for its context.
// Demote-then-promote runs inside a single transaction: promoting first would
// transiently violate the one-current-per-context constraint.
func (s *Store) Promote(ctx context.Context, c Context, runKey string) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin promote: %w", err)
	}
	defer tx.Rollback(ctx)

	var targetID, version int
	err = tx.QueryRow(ctx, `
		SELECT id, version FROM `+config.SnapshotsTable+`
		WHERE cohort = $1 AND source = $2 AND run_key = $3
		ORDER BY version DESC
		LIMIT 1`,
		c.Cohort, c.Source, runKey,
	).Scan(&targetID, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: run key %q for %s/%s", ErrNotFound, runKey, c.Cohort, c.Source)
	}
	if err != nil {
		return 0, fmt.Errorf("resolve promotion target: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE `+config.SnapshotsTable+`
		SET is_current = FALSE
		WHERE cohort = $1 AND source = $2 AND is_current AND id <> $3
		  AND COALESCE(season_code, '') = COALESCE($4, '')
		  AND COALESCE(position_scope_fine, '') = COALESCE($5, '')
		  AND COALESCE(position_scope_parent, '') = COALESCE($6, '')`,
		c.Cohort, c.Source, targetID,
		c.seasonParam(), c.fineParam(), c.parentParam(),
	); err != nil {
		return 0, fmt.Errorf("demote snapshots: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE `+config.SnapshotsTable+` SET is_current = TRUE WHERE id = $1`,
		targetID,
	); err != nil {
		return 0, fmt.Errorf("promote snapshot %d: %w", targetID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit promote: %w", err)
	}

	s.notifyPromotion(ctx, c, runKey, targetID)

	s.logger.Info("Snapshot promoted",
		"snapshot_id", targetID, "cohort", c.Cohort, "source", c.Source,
		"run_key", runKey, "version", version)
	return targetID, nil
}

// notifyPromotion fires pg_notify so API instances flush their response
// caches. Best effort: the promotion itself is already committed.
func (s *Store) notifyPromotion(ctx context.Context, c Context, runKey string, snapshotID int) {
	payload, err := json.Marshal(map[string]any{
		"cohort":      c.Cohort,
		"source":      c.Source,
		"run_key":     runKey,
		"snapshot_id": snapshotID,
		"ts":          time.Now().Unix(),
	})
	if err != nil {
		return
	}
	if _, err := s.pool.Exec(ctx, "SELECT pg_notify('snapshot_promoted', $1)", string(payload)); err != nil {
		s.logger.Warn("Promotion notify failed", "snapshot_id", snapshotID, "error", err)
	}
}

// --------------------------------------------------------------------------
// Current lookup
// --------------------------------------------------------------------------

// Current returns the current snapshot for a context, falling back from the
// position-scoped context to the all-positions baseline when absent.
func (s *Store) Current(ctx context.Context, c Context) (*Row, error) {
	row, err := s.current(ctx, c)
	if errors.Is(err, ErrNotFound) && !c.Scope.IsZero() {
		fallback := c
		fallback.Scope = position.Scope{}
		return s.current(ctx, fallback)
	}
	return row, err
}

// ByID returns one snapshot by primary key.
func (s *Store) ByID(ctx context.Context, id int) (*Row, error) {
	var r Row
	err := s.pool.QueryRow(ctx, `
		SELECT id, cohort, source, run_key, version, season_code,
			position_scope_fine, position_scope_parent, population_size
		FROM `+config.SnapshotsTable+` WHERE id = $1`,
		id,
	).Scan(&r.ID, &r.Cohort, &r.Source, &r.RunKey, &r.Version,
		&r.SeasonCode, &r.PositionScopeFine, &r.PositionScopeParent, &r.PopulationSize)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: snapshot %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("look up snapshot %d: %w", id, err)
	}
	return &r, nil
}

// ScopeOf reconstructs the position scope a snapshot was computed under.
func (r *Row) ScopeOf() position.Scope {
	if r.PositionScopeFine != nil {
		return position.Scope{Kind: position.ScopeFine, Value: *r.PositionScopeFine}
	}
	if r.PositionScopeParent != nil {
		return position.Scope{Kind: position.ScopeParent, Value: *r.PositionScopeParent}
	}
	return position.Scope{}
}

func (s *Store) current(ctx context.Context, c Context) (*Row, error) {
	var r Row
	err := s.pool.QueryRow(ctx, "snapshot_current",
		c.Cohort, c.Source, c.seasonParam(), c.fineParam(), c.parentParam(),
	).Scan(&r.ID, &r.Cohort, &r.Source, &r.RunKey, &r.Version,
		&r.SeasonCode, &r.PositionScopeFine, &r.PositionScopeParent, &r.PopulationSize)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("look up current snapshot: %w", err)
	}
	return &r, nil
}
