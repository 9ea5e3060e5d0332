package seed

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hoopcombine/combine-data/internal/config"
)

// Options names the CSV exports to load. Empty paths are skipped.
type Options struct {
	PlayersPath  string
	AnthroPath   string
	AgilityPath  string
	ShootingPath string
}

// Measurement column lists, matching schema.sql. position travels with every
// measurement row because the reported position varies between combines.
var (
	anthroColumns = []string{
		"height_wo_shoes", "height_w_shoes", "weight_lbs", "wingspan",
		"standing_reach", "body_fat_pct", "hand_length", "hand_width",
	}
	agilityColumns = []string{
		"lane_agility_time", "shuttle_run", "three_quarter_sprint",
		"standing_vertical", "max_vertical", "bench_press_reps",
	}
	shootingColumns = []string{
		"fifteen_break_left_made", "fifteen_break_left_att",
		"fifteen_top_key_made", "fifteen_top_key_att",
		"fifteen_break_right_made", "fifteen_break_right_att",
		"college_break_left_made", "college_break_left_att",
		"college_top_key_made", "college_top_key_att",
		"college_break_right_made", "college_break_right_att",
	}
)

// SeedMeasurements loads every named CSV export. Rows with parse errors are
// skipped and reported; a file that cannot be opened fails that file only.
func SeedMeasurements(ctx context.Context, pool *pgxpool.Pool, opts Options, logger *slog.Logger) Result {
	var result Result

	if opts.PlayersPath != "" {
		logger.Info("Seeding players...", "file", opts.PlayersPath)
		result.Add(seedPlayers(ctx, pool, opts.PlayersPath))
		logger.Info("Players done", "count", result.PlayersUpserted)
	}

	measurementFiles := []struct {
		path    string
		tbl     string
		columns []string
	}{
		{opts.AnthroPath, config.AnthroTable, anthroColumns},
		{opts.AgilityPath, config.AgilityTable, agilityColumns},
		{opts.ShootingPath, config.ShootingTable, shootingColumns},
	}
	for _, mf := range measurementFiles {
		if mf.path == "" {
			continue
		}
		logger.Info("Seeding measurements...", "table", mf.tbl, "file", mf.path)
		r := seedMeasurementTable(ctx, pool, mf.path, mf.tbl, mf.columns)
		result.Add(r)
		logger.Info("Measurements done", "table", mf.tbl, "rows", r.MeasurementsUpserted, "skipped", r.RowsSkipped)
	}

	logger.Info("Seed complete", "summary", result.Summary())
	return result
}

// seedPlayers upserts player identity and status rows from one file with
// columns: id, name, position, is_active, last_active_season.
func seedPlayers(ctx context.Context, pool *pgxpool.Pool, path string) Result {
	var result Result

	t, err := readTable(path)
	if err != nil {
		result.AddErrorf("read players: %v", err)
		return result
	}

	for i, row := range t.rows {
		id, err := t.intVal(row, "id")
		if err != nil {
			result.AddErrorf("players row %d: %v", i+2, err)
			result.RowsSkipped++
			continue
		}
		name := t.str(row, "name")
		if name == "" {
			result.AddErrorf("players row %d: missing name", i+2)
			result.RowsSkipped++
			continue
		}

		_, err = pool.Exec(ctx, `
			INSERT INTO `+config.PlayersTable+` (id, name, position)
			VALUES ($1, $2, NULLIF($3, ''))
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				position = COALESCE(EXCLUDED.position, `+config.PlayersTable+`.position),
				updated_at = NOW()`,
			id, name, t.str(row, "position"))
		if err != nil {
			result.AddErrorf("upsert player %d: %v", id, err)
			continue
		}
		result.PlayersUpserted++

		isActive, err := t.boolVal(row, "is_active")
		if err != nil {
			result.AddErrorf("players row %d: %v", i+2, err)
			continue
		}
		_, err = pool.Exec(ctx, `
			INSERT INTO `+config.PlayerStatusTable+` (player_id, is_active, last_active_season)
			VALUES ($1, $2, NULLIF($3, ''))
			ON CONFLICT (player_id) DO UPDATE SET
				is_active = EXCLUDED.is_active,
				last_active_season = EXCLUDED.last_active_season`,
			id, isActive, t.str(row, "last_active_season"))
		if err != nil {
			result.AddErrorf("upsert status %d: %v", id, err)
			continue
		}
		result.StatusUpserted++
	}
	return result
}

// seedMeasurementTable upserts one measurement file. Season codes are
// registered on first sight so measurement rows never hit a missing FK.
func seedMeasurementTable(ctx context.Context, pool *pgxpool.Pool, path, tbl string, columns []string) Result {
	var result Result

	t, err := readTable(path)
	if err != nil {
		result.AddErrorf("read %s: %v", tbl, err)
		return result
	}

	seenSeasons := map[string]bool{}
	sql := measurementUpsertSQL(tbl, columns)

	for i, row := range t.rows {
		playerID, err := t.intVal(row, "player_id")
		if err != nil {
			result.AddErrorf("%s row %d: %v", tbl, i+2, err)
			result.RowsSkipped++
			continue
		}
		seasonCode := t.str(row, "season_code")
		if seasonCode == "" {
			result.AddErrorf("%s row %d: missing season_code", tbl, i+2)
			result.RowsSkipped++
			continue
		}

		if !seenSeasons[seasonCode] {
			n, err := ensureSeason(ctx, pool, seasonCode)
			if err != nil {
				result.AddErrorf("%s row %d: %v", tbl, i+2, err)
				result.RowsSkipped++
				continue
			}
			result.SeasonsUpserted += n
			seenSeasons[seasonCode] = true
		}

		args := make([]any, 0, len(columns)+3)
		args = append(args, playerID, seasonCode, t.str(row, "position"))
		bad := false
		for _, col := range columns {
			v, err := t.floatPtr(row, col)
			if err != nil {
				result.AddErrorf("%s row %d: %v", tbl, i+2, err)
				bad = true
				break
			}
			args = append(args, v)
		}
		if bad {
			result.RowsSkipped++
			continue
		}

		if _, err := pool.Exec(ctx, sql, args...); err != nil {
			result.AddErrorf("upsert %s player %d season %s: %v", tbl, playerID, seasonCode, err)
			continue
		}
		result.MeasurementsUpserted++
	}
	return result
}

// measurementUpsertSQL builds the per-table upsert once per file.
func measurementUpsertSQL(tbl string, columns []string) string {
	cols := append([]string{"player_id", "season_code", "position"}, columns...)

	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = "$" + strconv.Itoa(i+1)
	}

	sets := make([]string, 0, len(columns)+1)
	sets = append(sets, "position = EXCLUDED.position")
	for _, col := range columns {
		sets = append(sets, col+" = EXCLUDED."+col)
	}

	return "INSERT INTO " + tbl + " (" + strings.Join(cols, ", ") + ")" +
		" VALUES (" + strings.Join(placeholders, ", ") + ")" +
		" ON CONFLICT (player_id, season_code) DO UPDATE SET " + strings.Join(sets, ", ")
}

// ensureSeason registers a season code, deriving its years from the
// "YYYY-YY" form. Returns 1 when a new row was inserted.
func ensureSeason(ctx context.Context, pool *pgxpool.Pool, code string) (int, error) {
	startYear, endYear, err := parseSeasonCode(code)
	if err != nil {
		return 0, err
	}
	tag, err := pool.Exec(ctx, `
		INSERT INTO `+config.SeasonsTable+` (code, start_year, end_year)
		VALUES ($1, $2, $3)
		ON CONFLICT (code) DO NOTHING`,
		code, startYear, endYear)
	if err != nil {
		return 0, fmt.Errorf("insert season %q: %w", code, err)
	}
	return int(tag.RowsAffected()), nil
}

// parseSeasonCode splits "2024-25" into (2024, 2025). The century of the end
// year follows the start year, so "1999-00" resolves to (1999, 2000).
func parseSeasonCode(code string) (int, int, error) {
	parts := strings.SplitN(code, "-", 2)
	if len(parts) != 2 || len(parts[0]) != 4 || len(parts[1]) != 2 {
		return 0, 0, fmt.Errorf("bad season code %q", code)
	}
	start, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("bad season code %q", code)
	}
	endSuffix, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("bad season code %q", code)
	}
	end := (start/100)*100 + endSuffix
	if end < start {
		end += 100
	}
	return start, end, nil
}
