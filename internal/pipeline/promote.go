package pipeline

import (
	"context"
	"fmt"

	"github.com/hoopcombine/combine-data/internal/frame"
	"github.com/hoopcombine/combine-data/internal/position"
	"github.com/hoopcombine/combine-data/internal/snapshot"
)

// PromoteOptions addresses the snapshots to mark current: the run key is
// composed the same way the run command composes it, so a promote invoked
// with the same flags targets the run those flags produced.
type PromoteOptions struct {
	Cohort     frame.Cohort
	SeasonCode string
	ScopeToken string
	Sources    []frame.Source
	MinSample  int
	RunKey     string // override, matching the run's override
}

// Promoted records one promotion.
type Promoted struct {
	Source     frame.Source
	RunKey     string
	SnapshotID int
}

// Promote marks the latest version of each addressed run key current.
func (r *Runner) Promote(ctx context.Context, opts PromoteOptions) ([]Promoted, error) {
	if _, ok := frame.ParseCohort(string(opts.Cohort)); !ok {
		return nil, fmt.Errorf("unknown cohort %q", opts.Cohort)
	}
	scope, err := position.ResolveScope(opts.ScopeToken)
	if err != nil {
		return nil, err
	}
	if opts.MinSample <= 0 {
		opts.MinSample = r.cfg.MinSampleSize
	}

	var seasonCode *string
	if opts.SeasonCode != "" && opts.SeasonCode != "all" {
		season, err := r.loader.Season(ctx, opts.SeasonCode)
		if err != nil {
			return nil, err
		}
		seasonCode = &season.Code
	}

	sources := opts.Sources
	if len(sources) == 0 {
		sources = frame.Sources
	}

	baseKey := snapshot.BaseRunKey(opts.RunKey, opts.Cohort, seasonCode, scope, opts.MinSample)

	var promoted []Promoted
	for _, source := range sources {
		runKey := snapshot.RunKeyForSource(baseKey, opts.Cohort, source)
		id, err := r.snaps.Promote(ctx, snapshot.Context{
			Cohort:     opts.Cohort,
			Source:     source,
			SeasonCode: seasonCode,
			Scope:      scope,
		}, runKey)
		if err != nil {
			return promoted, fmt.Errorf("promote %s: %w", source, err)
		}
		promoted = append(promoted, Promoted{Source: source, RunKey: runKey, SnapshotID: id})
	}
	return promoted, nil
}
