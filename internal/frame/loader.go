package frame

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hoopcombine/combine-data/internal/config"
	"github.com/hoopcombine/combine-data/internal/position"
)

// Measurement columns per source, matching schema.sql.
var (
	anthroColumns = []string{
		"height_wo_shoes", "height_w_shoes", "weight_lbs", "wingspan",
		"standing_reach", "body_fat_pct", "hand_length", "hand_width",
	}
	agilityColumns = []string{
		"lane_agility_time", "shuttle_run", "three_quarter_sprint",
		"standing_vertical", "max_vertical", "bench_press_reps",
	}
)

// ShootingDrill maps a drill to its wide made/attempt column pair. The pivot
// from made/attempt to a percentage is a fixed, enumerable transform.
type ShootingDrill struct {
	Drill   string
	MadeCol string
	AttCol  string
}

// ShootingDrills lists every drill the shooting source records.
var ShootingDrills = []ShootingDrill{
	{"fifteen_break_left", "fifteen_break_left_made", "fifteen_break_left_att"},
	{"fifteen_top_key", "fifteen_top_key_made", "fifteen_top_key_att"},
	{"fifteen_break_right", "fifteen_break_right_made", "fifteen_break_right_att"},
	{"college_break_left", "college_break_left_made", "college_break_left_att"},
	{"college_top_key", "college_top_key_made", "college_top_key_att"},
	{"college_break_right", "college_break_right_made", "college_break_right_att"},
}

// DrillPctColumn is the derived value column name for a shooting drill.
func DrillPctColumn(drill string) string { return drill + "_pct" }

// LoadOptions selects and flags rows for one frame load.
type LoadOptions struct {
	Cohort      Cohort
	SeasonCodes []string // nil = all seasons
	Scope       position.Scope
}

// Loader reads measurement frames from Postgres. It keeps an in-process
// cache of fine codes already written to the positions table, so canonical
// positions are created lazily at most once per process.
type Loader struct {
	pool    *pgxpool.Pool
	logger  *slog.Logger
	posSeen map[string]bool
}

// NewLoader creates a frame loader.
func NewLoader(pool *pgxpool.Pool, logger *slog.Logger) *Loader {
	return &Loader{pool: pool, logger: logger, posSeen: make(map[string]bool)}
}

// Season resolves a season code against the catalog. An unknown code is a
// configuration error and aborts the whole run.
func (l *Loader) Season(ctx context.Context, code string) (Season, error) {
	var s Season
	err := l.pool.QueryRow(ctx, "season_lookup", code).Scan(&s.Code, &s.StartYear, &s.EndYear)
	if errors.Is(err, pgx.ErrNoRows) {
		return Season{}, fmt.Errorf("unknown season code %q", code)
	}
	if err != nil {
		return Season{}, fmt.Errorf("look up season %q: %w", code, err)
	}
	return s, nil
}

// Load reads one source's frame, applying season and position-scope filters
// and the cohort's baseline policy.
func (l *Loader) Load(ctx context.Context, source Source, opts LoadOptions) (*Frame, error) {
	var (
		table string
		cols  []string
	)
	switch source {
	case SourceAnthro:
		table, cols = config.AnthroTable, anthroColumns
	case SourceAgility:
		table, cols = config.AgilityTable, agilityColumns
	case SourceShooting:
		table = config.ShootingTable
		for _, d := range ShootingDrills {
			cols = append(cols, d.MadeCol, d.AttCol)
		}
	default:
		return nil, fmt.Errorf("unknown source %q", source)
	}

	sql := fmt.Sprintf(`
		SELECT m.player_id, m.season_code, s.start_year, m.position,
		       COALESCE(st.is_active, FALSE), st.last_active_season,
		       %s
		FROM %s m
		JOIN %s s ON s.code = m.season_code
		LEFT JOIN %s st ON st.player_id = m.player_id`,
		"m."+strings.Join(cols, ", m."),
		table, config.SeasonsTable, config.PlayerStatusTable)

	var args []any
	if len(opts.SeasonCodes) > 0 {
		sql += " WHERE m.season_code = ANY($1)"
		args = append(args, opts.SeasonCodes)
	}

	rows, err := l.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("load %s frame: %w", source, err)
	}
	defer rows.Close()

	f := &Frame{Source: source, Cohort: opts.Cohort, Scope: opts.Scope}
	for rows.Next() {
		var (
			playerID    int
			seasonCode  string
			seasonStart int
			rawPos      *string
			isActive    bool
			lastActive  *string
		)
		vals := make([]*float64, len(cols))
		dest := []any{&playerID, &seasonCode, &seasonStart, &rawPos, &isActive, &lastActive}
		for i := range vals {
			dest = append(dest, &vals[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", source, err)
		}

		row := Row{
			PlayerID:    playerID,
			SeasonCode:  seasonCode,
			SeasonStart: seasonStart,
			Baseline:    baselineFlag(opts.Cohort, isActive, lastActive),
			Values:      make(map[string]float64),
		}

		if rawPos != nil {
			fine, parents := position.DeriveTags(*rawPos)
			row.PositionFine = fine
			row.PositionParents = parents
			if fine != "" {
				if err := l.ensurePosition(ctx, fine, parents); err != nil {
					l.logger.Warn("Position upsert failed", "code", fine, "error", err)
				}
			}
		}

		// Scoped filters exclude rows with unresolvable position data;
		// unscoped loads keep them.
		if !opts.Scope.IsZero() {
			if row.PositionFine == "" || !opts.Scope.Matches(row.PositionFine, row.PositionParents) {
				continue
			}
		}

		if source == SourceShooting {
			pivotShooting(&row, cols, vals)
		} else {
			for i, col := range cols {
				if vals[i] != nil {
					row.Values[col] = *vals[i]
				}
			}
		}

		f.Rows = append(f.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s frame: %w", source, err)
	}

	l.logger.Info("Frame loaded",
		"source", source, "cohort", opts.Cohort,
		"scope", opts.Scope.String(), "rows", len(f.Rows))
	return f, nil
}

// pivotShooting derives per-drill percentages from made/attempt pairs.
// A drill with both columns null is discarded; a pair without a positive
// attempt count yields no value.
func pivotShooting(row *Row, cols []string, vals []*float64) {
	byCol := make(map[string]*float64, len(cols))
	for i, col := range cols {
		byCol[col] = vals[i]
	}
	for _, d := range ShootingDrills {
		made, att := byCol[d.MadeCol], byCol[d.AttCol]
		if made == nil && att == nil {
			continue
		}
		if made == nil || att == nil || *att <= 0 {
			continue
		}
		row.Values[DrillPctColumn(d.Drill)] = *made / *att * 100
	}
}

// ensurePosition lazily writes a canonical position row, once per process.
func (l *Loader) ensurePosition(ctx context.Context, fine string, parents []string) error {
	if l.posSeen[fine] {
		return nil
	}
	if _, err := l.pool.Exec(ctx, "position_insert", fine, parents); err != nil {
		return err
	}
	l.posSeen[fine] = true
	return nil
}
