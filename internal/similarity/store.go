package similarity

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hoopcombine/combine-data/internal/config"
)

// DefaultBatchSize bounds the insert statement size for similarity rows.
const DefaultBatchSize = 2000

// Store reads z-score matrices and persists similarity rows.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewStore creates a similarity store.
func NewStore(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	return &Store{pool: pool, logger: logger}
}

// LoadMatrix reads every z-scored metric value for one snapshot and pivots
// it into a players x metrics matrix. Plain pool reads, no transaction: the
// O(n²) computation that follows must not hold database resources.
func (s *Store) LoadMatrix(ctx context.Context, snapshotID int) (*Matrix, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT v.player_id, d.metric_key, v.z_score
		FROM `+config.ValuesTable+` v
		JOIN `+config.DefinitionsTable+` d ON d.id = v.metric_id
		WHERE v.snapshot_id = $1 AND v.z_score IS NOT NULL
		ORDER BY v.player_id, d.metric_key`,
		snapshotID)
	if err != nil {
		return nil, fmt.Errorf("load z-scores for snapshot %d: %w", snapshotID, err)
	}
	defer rows.Close()

	type cell struct {
		player int
		metric string
		z      float64
	}
	var cells []cell
	playerSet := map[int]bool{}
	metricSet := map[string]bool{}
	for rows.Next() {
		var c cell
		if err := rows.Scan(&c.player, &c.metric, &c.z); err != nil {
			return nil, fmt.Errorf("scan z-score: %w", err)
		}
		cells = append(cells, c)
		playerSet[c.player] = true
		metricSet[c.metric] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(cells) == 0 {
		return nil, nil
	}

	m := &Matrix{}
	for p := range playerSet {
		m.Players = append(m.Players, p)
	}
	sort.Ints(m.Players)
	for k := range metricSet {
		m.Metrics = append(m.Metrics, k)
	}
	sort.Strings(m.Metrics)

	playerIdx := make(map[int]int, len(m.Players))
	for i, p := range m.Players {
		playerIdx[p] = i
	}
	metricIdx := make(map[string]int, len(m.Metrics))
	for j, k := range m.Metrics {
		metricIdx[k] = j
	}

	m.Data = make([][]float64, len(m.Players))
	for i := range m.Data {
		m.Data[i] = make([]float64, len(m.Metrics))
		for j := range m.Data[i] {
			m.Data[i][j] = math.NaN()
		}
	}
	for _, c := range cells {
		m.Data[playerIdx[c.player]][metricIdx[c.metric]] = c.z
	}
	return m, nil
}

// Persist rewrites the similarity rows for the involved snapshots: delete
// everything, then insert the new result set in fixed-size batches. Never an
// incremental update.
//
// Rows are stored against the snapshot of their dimension's source; composite
// rows go to primarySnapshotID.
func (s *Store) Persist(ctx context.Context, snapshotIDs map[Dimension]int, primarySnapshotID int, rows []Row, batchSize int) error {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	ids := make([]int, 0, len(snapshotIDs))
	seen := map[int]bool{}
	for _, id := range snapshotIDs {
		if !seen[id] {
			ids = append(ids, id)
			seen[id] = true
		}
	}
	if !seen[primarySnapshotID] {
		ids = append(ids, primarySnapshotID)
	}
	sort.Ints(ids)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin similarity write: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM `+config.SimilarityTable+` WHERE snapshot_id = ANY($1)`, ids); err != nil {
		return fmt.Errorf("clear similarity rows: %w", err)
	}

	for start := 0; start < len(rows); start += batchSize {
		end := min(start+batchSize, len(rows))
		batch := &pgx.Batch{}
		for _, r := range rows[start:end] {
			snapID, ok := snapshotIDs[r.Dimension]
			if !ok {
				snapID = primarySnapshotID
			}
			batch.Queue(`
				INSERT INTO `+config.SimilarityTable+`
					(snapshot_id, dimension, player_id, comp_player_id,
					 similarity, distance, overlap, rank)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
				snapID, r.Dimension, r.PlayerID, r.CompPlayerID,
				r.Similarity, r.Distance, r.Overlap, r.Rank)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert similarity batch at %d: %w", start, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit similarity write: %w", err)
	}

	s.logger.Info("Similarity rows rewritten",
		"snapshots", ids, "rows", len(rows), "batch_size", batchSize)
	return nil
}
