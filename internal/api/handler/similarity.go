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
	"github.com/hoopcombine/combine-data/internal/similarity"
	"github.com/hoopcombine/combine-data/internal/snapshot"
)

const (
	defaultNeighborLimit = 25
	maxNeighborLimit     = 100
)

type neighbor struct {
	PlayerID   int     `json:"player_id"`
	Name       string  `json:"name"`
	Similarity float64 `json:"similarity"`
	Distance   float64 `json:"distance"`
	Overlap    float64 `json:"overlap"`
	Rank       int     `json:"rank"`
}

// GetSimilarPlayers returns ranked comparison players for an anchor player.
// @Summary Get similar players
// @Description Returns the ranked nearest neighbors of a player along one similarity dimension, read from the current promoted snapshot. Composite rows are stored under the first resolvable dimension's snapshot.
// @Tags similarity
// @Produce json
// @Param playerID path int true "Player ID"
// @Param cohort query string false "Cohort (default current_nba)" Enums(current_nba, all_time_nba, current_draft, all_time_draft, global)
// @Param season query string false "Season code (e.g. 2024-25)"
// @Param scope query string false "Position scope token (e.g. guard, pg_sg)"
// @Param dimension query string false "Similarity dimension (default composite)" Enums(anthro, combine, shooting, composite)
// @Param limit query int false "Max neighbors (default 25, max 100)"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Router /similarity/{playerID} [get]
func (h *Handler) GetSimilarPlayers(w http.ResponseWriter, r *http.Request) {
	playerID, err := strconv.Atoi(chi.URLParam(r, "playerID"))
	if err != nil {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_ID", "Player ID must be an integer")
		return
	}

	cohort := frame.CohortCurrentNBA
	if c := r.URL.Query().Get("cohort"); c != "" {
		cohort, err = parseCohort(c)
		if err != nil {
			respond.WriteError(w, http.StatusBadRequest, "INVALID_COHORT", "Unknown cohort")
			return
		}
	}

	dim := similarity.DimComposite
	if d := r.URL.Query().Get("dimension"); d != "" {
		dim, err = similarity.ParseDimension(d)
		if err != nil {
			respond.WriteError(w, http.StatusBadRequest, "INVALID_DIMENSION", err.Error())
			return
		}
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

	limit := defaultNeighborLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		limit, err = strconv.Atoi(l)
		if err != nil || limit < 1 {
			respond.WriteError(w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be a positive integer")
			return
		}
		if limit > maxNeighborLimit {
			limit = maxNeighborLimit
		}
	}

	cacheKey := fmt.Sprintf("similar:%d:%s:%s:%s:%s:%d",
		playerID, cohort, queryOr(season, "all"), scope.String(), dim, limit)
	if data, etag, ok := h.cache.Get(cacheKey); ok {
		if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
			respond.WriteNotModified(w, etag)
			return
		}
		respond.WriteJSON(w, data, etag, cache.TTLSimilarity, true)
		return
	}

	snap, err := h.similaritySnapshot(r, cohort, dim, season, scope)
	if errors.Is(err, snapshot.ErrNotFound) {
		respond.WriteError(w, http.StatusNotFound, "NOT_FOUND", "No current snapshot for the requested context")
		return
	}
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "DB_ERROR", "Failed to resolve current snapshot")
		return
	}

	rows, err := h.pool.Query(r.Context(), "similar_players", snap.ID, string(dim), playerID, limit)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "DB_ERROR", "Failed to load similar players")
		return
	}
	defer rows.Close()

	neighbors := make([]neighbor, 0, limit)
	for rows.Next() {
		var n neighbor
		if err := rows.Scan(&n.PlayerID, &n.Name, &n.Similarity, &n.Distance, &n.Overlap, &n.Rank); err != nil {
			respond.WriteError(w, http.StatusInternalServerError, "DB_ERROR", "Failed to scan similar player")
			return
		}
		neighbors = append(neighbors, n)
	}
	if err := rows.Err(); err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "DB_ERROR", "Failed to read similar players")
		return
	}

	if len(neighbors) == 0 {
		respond.WriteError(w, http.StatusNotFound, "NOT_FOUND",
			fmt.Sprintf("No similarity rows for player %d on dimension %s", playerID, dim))
		return
	}

	data, err := json.Marshal(map[string]interface{}{
		"player_id":   playerID,
		"cohort":      cohort,
		"season":      season,
		"scope":       scope.String(),
		"dimension":   dim,
		"snapshot_id": snap.ID,
		"neighbors":   neighbors,
	})
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "ENCODE_ERROR", "Failed to encode similar players")
		return
	}
	etag := h.cache.Set(cacheKey, data, cache.TTLSimilarity)
	respond.WriteJSON(w, data, etag, cache.TTLSimilarity, false)
}

// similaritySnapshot resolves the snapshot that carries similarity rows for a
// dimension. Composite rows live under the first dimension with a current
// snapshot, matching how the compute pipeline persists them.
func (h *Handler) similaritySnapshot(r *http.Request, cohort frame.Cohort, dim similarity.Dimension, season *string, scope position.Scope) (*snapshot.Row, error) {
	dims := []similarity.Dimension{dim}
	if dim == similarity.DimComposite {
		dims = similarity.Dimensions
	}
	for _, d := range dims {
		c := snapshot.Context{Cohort: cohort, Source: similarity.SourceFor(d), SeasonCode: season, Scope: scope}
		snap, err := h.snaps.Current(r.Context(), c)
		if errors.Is(err, snapshot.ErrNotFound) {
			continue
		}
		return snap, err
	}
	return nil, snapshot.ErrNotFound
}

func parseCohort(s string) (frame.Cohort, error) {
	c, ok := frame.ParseCohort(s)
	if !ok {
		return "", fmt.Errorf("unknown cohort %q", s)
	}
	return c, nil
}
