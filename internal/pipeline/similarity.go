package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/hoopcombine/combine-data/internal/frame"
	"github.com/hoopcombine/combine-data/internal/position"
	"github.com/hoopcombine/combine-data/internal/similarity"
	"github.com/hoopcombine/combine-data/internal/snapshot"
)

// SimilarityOptions addresses the snapshot group to score: the current
// snapshot per dimension for (cohort, season, scope). Zero-valued tuning
// fields fall back to the configured defaults.
type SimilarityOptions struct {
	Cohort           frame.Cohort
	SeasonCode       string
	ScopeToken       string
	SnapshotID       int // addresses the group via one member snapshot instead
	OverlapThreshold float64
	MaxNeighbors     int
	Weights          map[similarity.Dimension]float64
	BatchSize        int
}

// SimilarityReport summarizes one similarity computation.
type SimilarityReport struct {
	SnapshotIDs map[similarity.Dimension]int
	Players     map[similarity.Dimension]int
	Rows        int
}

// Summary returns the one-line roll-up.
func (r *SimilarityReport) Summary() string {
	return fmt.Sprintf("dimensions=%d rows=%d", len(r.SnapshotIDs), r.Rows)
}

// Similarity scores the current snapshot group for a context: per-dimension
// pairwise similarity plus the weighted composite, persisted as a full
// rewrite. Dimensions without a current snapshot are skipped; having none at
// all is an error.
func (r *Runner) Similarity(ctx context.Context, opts SimilarityOptions) (*SimilarityReport, error) {
	var scope position.Scope
	var seasonCode *string

	if opts.SnapshotID > 0 {
		// Address the group through one of its member snapshots.
		row, err := r.snaps.ByID(ctx, opts.SnapshotID)
		if err != nil {
			return nil, err
		}
		opts.Cohort = frame.Cohort(row.Cohort)
		scope = row.ScopeOf()
		seasonCode = row.SeasonCode
	} else {
		if _, ok := frame.ParseCohort(string(opts.Cohort)); !ok {
			return nil, fmt.Errorf("unknown cohort %q", opts.Cohort)
		}
		var err error
		scope, err = position.ResolveScope(opts.ScopeToken)
		if err != nil {
			return nil, err
		}
		if opts.SeasonCode != "" && opts.SeasonCode != "all" {
			season, err := r.loader.Season(ctx, opts.SeasonCode)
			if err != nil {
				return nil, err
			}
			seasonCode = &season.Code
		}
	}

	cfg := similarity.Config{
		OverlapThreshold: opts.OverlapThreshold,
		MaxNeighbors:     opts.MaxNeighbors,
		Weights:          opts.Weights,
	}
	if cfg.OverlapThreshold <= 0 {
		cfg.OverlapThreshold = r.cfg.OverlapThreshold
	}
	if cfg.MaxNeighbors <= 0 {
		cfg.MaxNeighbors = r.cfg.MaxSimilarNeighbors
	}
	if cfg.Weights == nil {
		cfg.Weights = map[similarity.Dimension]float64{}
		for name, w := range r.cfg.SimilarityWeights {
			cfg.Weights[similarity.Dimension(name)] = w
		}
	}

	// Resolve the current snapshot per dimension, then read every matrix
	// before computing: the pairwise loop must not hold the database.
	snapshotIDs := map[similarity.Dimension]int{}
	mats := map[similarity.Dimension]*similarity.Matrix{}
	players := map[similarity.Dimension]int{}
	primary := 0
	for _, dim := range similarity.Dimensions {
		row, err := r.snaps.Current(ctx, snapshot.Context{
			Cohort:     opts.Cohort,
			Source:     similarity.SourceFor(dim),
			SeasonCode: seasonCode,
			Scope:      scope,
		})
		if errors.Is(err, snapshot.ErrNotFound) {
			r.logger.Warn("No current snapshot for dimension",
				"dimension", dim, "cohort", opts.Cohort, "scope", scope.String())
			continue
		}
		if err != nil {
			return nil, err
		}

		m, err := r.sims.LoadMatrix(ctx, row.ID)
		if err != nil {
			return nil, err
		}
		if m == nil {
			continue
		}
		snapshotIDs[dim] = row.ID
		mats[dim] = m
		players[dim] = len(m.Players)
		if primary == 0 {
			primary = row.ID
		}
	}
	if len(snapshotIDs) == 0 {
		return nil, fmt.Errorf("no current snapshots for cohort=%s season=%s scope=%s",
			opts.Cohort, opts.SeasonCode, scope.String())
	}

	rows, err := similarity.ComputeAll(mats, cfg)
	if err != nil {
		return nil, err
	}

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = r.cfg.SimilarityBatchSize
	}
	if err := r.sims.Persist(ctx, snapshotIDs, primary, rows, batchSize); err != nil {
		return nil, err
	}

	return &SimilarityReport{SnapshotIDs: snapshotIDs, Players: players, Rows: len(rows)}, nil
}
