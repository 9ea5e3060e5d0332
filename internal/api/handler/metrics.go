package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hoopcombine/combine-data/internal/api/respond"
	"github.com/hoopcombine/combine-data/internal/cache"
	"github.com/hoopcombine/combine-data/internal/frame"
	"github.com/hoopcombine/combine-data/internal/position"
	"github.com/hoopcombine/combine-data/internal/snapshot"
)

// definitionRow mirrors one metric_definitions record in API responses.
type definitionRow struct {
	ID          int    `json:"id"`
	MetricKey   string `json:"metric_key"`
	DisplayName string `json:"display_name"`
	Source      string `json:"source"`
	Category    string `json:"category"`
	Unit        string `json:"unit"`
	Statistic   string `json:"statistic"`
}

// metricValue is one computed metric for one player.
type metricValue struct {
	MetricKey   string   `json:"metric_key"`
	DisplayName string   `json:"display_name"`
	Category    string   `json:"category"`
	Unit        string   `json:"unit"`
	RawValue    float64  `json:"raw_value"`
	Rank        int      `json:"rank"`
	Percentile  float64  `json:"percentile"`
	ZScore      *float64 `json:"z_score"`
	Population  int      `json:"population_size"`
}

type sourceValues struct {
	Source     string        `json:"source"`
	SnapshotID int           `json:"snapshot_id"`
	RunKey     string        `json:"run_key"`
	Version    int           `json:"version"`
	Metrics    []metricValue `json:"metrics"`
}

// GetMetricDefinitions returns the metric catalog.
// @Summary List metric definitions
// @Description Returns all registered metric definitions ordered by source and key.
// @Tags metrics
// @Produce json
// @Success 200 {array} handler.definitionRow
// @Router /metrics/definitions [get]
func (h *Handler) GetMetricDefinitions(w http.ResponseWriter, r *http.Request) {
	const cacheKey = "definitions"

	if data, etag, ok := h.cache.Get(cacheKey); ok {
		if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
			respond.WriteNotModified(w, etag)
			return
		}
		respond.WriteJSON(w, data, etag, cache.TTLDefinitions, true)
		return
	}

	rows, err := h.pool.Query(r.Context(), "definitions_all")
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "DB_ERROR", "Failed to load metric definitions")
		return
	}
	defer rows.Close()

	defs := make([]definitionRow, 0, 32)
	for rows.Next() {
		var d definitionRow
		if err := rows.Scan(&d.ID, &d.MetricKey, &d.DisplayName, &d.Source, &d.Category, &d.Unit, &d.Statistic); err != nil {
			respond.WriteError(w, http.StatusInternalServerError, "DB_ERROR", "Failed to scan metric definition")
			return
		}
		defs = append(defs, d)
	}
	if err := rows.Err(); err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "DB_ERROR", "Failed to read metric definitions")
		return
	}

	data, err := json.Marshal(defs)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "ENCODE_ERROR", "Failed to encode definitions")
		return
	}
	etag := h.cache.Set(cacheKey, data, cache.TTLDefinitions)
	respond.WriteJSON(w, data, etag, cache.TTLDefinitions, false)
}

// GetPlayerMetrics returns a player's current computed values per source.
// @Summary Get player metric values
// @Description Returns rank, percentile, and z-score for every metric of a player, read from the current promoted snapshot of each measurement source. Position-scoped contexts fall back to the all-positions baseline.
// @Tags metrics
// @Produce json
// @Param cohort path string true "Cohort" Enums(current_nba, all_time_nba, current_draft, all_time_draft, global)
// @Param playerID path int true "Player ID"
// @Param season query string false "Season code (e.g. 2024-25)"
// @Param scope query string false "Position scope token (e.g. guard, pg_sg)"
// @Param source query string false "Restrict to one source" Enums(anthro, agility, shooting)
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Router /metrics/{cohort}/{playerID} [get]
func (h *Handler) GetPlayerMetrics(w http.ResponseWriter, r *http.Request) {
	cohort, ok := frame.ParseCohort(chi.URLParam(r, "cohort"))
	if !ok {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_COHORT", "Unknown cohort")
		return
	}
	playerID, err := strconv.Atoi(chi.URLParam(r, "playerID"))
	if err != nil {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_ID", "Player ID must be an integer")
		return
	}

	scope, err := position.ResolveScope(r.URL.Query().Get("scope"))
	if err != nil {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_SCOPE", err.Error())
		return
	}
	var season *string
	if s := r.URL.Query().Get("season"); s != "" {
		season = &s
	}

	sources := frame.Sources
	if s := r.URL.Query().Get("source"); s != "" {
		src, ok := frame.ParseSource(s)
		if !ok {
			respond.WriteError(w, http.StatusBadRequest, "INVALID_SOURCE", "Unknown source")
			return
		}
		sources = []frame.Source{src}
	}

	cacheKey := fmt.Sprintf("values:%s:%d:%s:%s:%s",
		cohort, playerID, queryOr(season, "all"), scope.String(), r.URL.Query().Get("source"))
	if data, etag, ok := h.cache.Get(cacheKey); ok {
		if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
			respond.WriteNotModified(w, etag)
			return
		}
		respond.WriteJSON(w, data, etag, cache.TTLValues, true)
		return
	}

	out := make([]sourceValues, 0, len(sources))
	for _, src := range sources {
		c := snapshot.Context{Cohort: cohort, Source: src, SeasonCode: season, Scope: scope}
		snap, err := h.snaps.Current(r.Context(), c)
		if errors.Is(err, snapshot.ErrNotFound) {
			continue
		}
		if err != nil {
			respond.WriteError(w, http.StatusInternalServerError, "DB_ERROR", "Failed to resolve current snapshot")
			return
		}

		values, err := h.playerValues(r, snap.ID, playerID)
		if err != nil {
			respond.WriteError(w, http.StatusInternalServerError, "DB_ERROR", "Failed to load player values")
			return
		}
		if len(values) == 0 {
			continue
		}
		out = append(out, sourceValues{
			Source:     string(src),
			SnapshotID: snap.ID,
			RunKey:     snap.RunKey,
			Version:    snap.Version,
			Metrics:    values,
		})
	}

	if len(out) == 0 {
		respond.WriteError(w, http.StatusNotFound, "NOT_FOUND",
			fmt.Sprintf("No current metric values for player %d in cohort %s", playerID, cohort))
		return
	}

	data, err := json.Marshal(map[string]interface{}{
		"player_id": playerID,
		"cohort":    cohort,
		"season":    season,
		"scope":     scope.String(),
		"sources":   out,
	})
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "ENCODE_ERROR", "Failed to encode values")
		return
	}
	etag := h.cache.Set(cacheKey, data, cache.TTLValues)
	respond.WriteJSON(w, data, etag, cache.TTLValues, false)
}

func (h *Handler) playerValues(r *http.Request, snapshotID, playerID int) ([]metricValue, error) {
	rows, err := h.pool.Query(r.Context(), "player_values", snapshotID, playerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []metricValue
	for rows.Next() {
		var v metricValue
		if err := rows.Scan(&v.MetricKey, &v.DisplayName, &v.Category, &v.Unit,
			&v.RawValue, &v.Rank, &v.Percentile, &v.ZScore, &v.Population); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

func queryOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
