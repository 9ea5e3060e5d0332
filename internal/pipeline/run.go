// Package pipeline orchestrates the two-stage computation: source frames
// through the metric engine into versioned snapshots, and snapshot z-scores
// through the similarity engine. It owns run-level validation and reporting;
// the numeric work lives in internal/metrics and internal/similarity.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hoopcombine/combine-data/internal/config"
	"github.com/hoopcombine/combine-data/internal/frame"
	"github.com/hoopcombine/combine-data/internal/metrics"
	"github.com/hoopcombine/combine-data/internal/position"
	"github.com/hoopcombine/combine-data/internal/similarity"
	"github.com/hoopcombine/combine-data/internal/snapshot"
)

// Runner wires the loader, the engines, and the stores together.
type Runner struct {
	pool   *pgxpool.Pool
	cfg    *config.Config
	logger *slog.Logger

	loader *frame.Loader
	snaps  *snapshot.Store
	sims   *similarity.Store
}

// NewRunner creates a pipeline runner.
func NewRunner(pool *pgxpool.Pool, cfg *config.Config, logger *slog.Logger) *Runner {
	return &Runner{
		pool:   pool,
		cfg:    cfg,
		logger: logger,
		loader: frame.NewLoader(pool, logger),
		snaps:  snapshot.New(pool, logger),
		sims:   similarity.NewStore(pool, logger),
	}
}

// RunOptions selects what one metrics run computes.
type RunOptions struct {
	Cohort      frame.Cohort
	SeasonCode  string // "" or "all" selects all seasons
	ScopeToken  string // mutually exclusive with ScopeMatrix
	ScopeMatrix bool   // baseline plus every parent-group scope
	Sources     []frame.Source
	Categories  []string
	MinSample   int
	RunKey      string // override; empty composes the default
	DryRun      bool
	ReplaceRun  bool
}

// Run executes one metrics run: validation first (fatal on configuration
// errors, before any write), then one snapshot per scope per source.
// Per-scope write failures are recorded in the report and do not abort the
// other scopes of a sweep.
func (r *Runner) Run(ctx context.Context, opts RunOptions) (*RunReport, error) {
	if opts.ScopeToken != "" && opts.ScopeMatrix {
		return nil, fmt.Errorf("--scope and --scope-matrix are mutually exclusive")
	}
	if _, ok := frame.ParseCohort(string(opts.Cohort)); !ok {
		return nil, fmt.Errorf("unknown cohort %q", opts.Cohort)
	}
	if opts.MinSample <= 0 {
		opts.MinSample = r.cfg.MinSampleSize
	}

	var seasonCode *string
	var seasonCodes []string
	if opts.SeasonCode != "" && opts.SeasonCode != "all" {
		season, err := r.loader.Season(ctx, opts.SeasonCode)
		if err != nil {
			return nil, err
		}
		seasonCode = &season.Code
		seasonCodes = []string{season.Code}
	}

	specs := metrics.Catalog(opts.Sources, opts.Categories)
	if len(specs) == 0 {
		return nil, fmt.Errorf("no metrics selected for sources=%v categories=%v", opts.Sources, opts.Categories)
	}
	defIDs, err := r.snaps.EnsureDefinitions(ctx, specs)
	if err != nil {
		return nil, err
	}

	scopes, err := r.resolveScopes(opts)
	if err != nil {
		return nil, err
	}

	sources := sourcesOf(specs)
	report := &RunReport{
		Cohort: opts.Cohort,
		Season: opts.SeasonCode,
		DryRun: opts.DryRun,
	}

	for _, scope := range scopes {
		scopeReport := ScopeReport{Scope: scope}
		baseKey := snapshot.BaseRunKey(opts.RunKey, opts.Cohort, seasonCode, scope, opts.MinSample)

		for _, source := range sources {
			sr := r.runScopeSource(ctx, opts, scope, source, baseKey, seasonCode, seasonCodes, specs, defIDs)
			scopeReport.Sources = append(scopeReport.Sources, sr)
		}
		report.Scopes = append(report.Scopes, scopeReport)
	}
	return report, nil
}

// runScopeSource computes and writes one snapshot. All failures past
// validation are local to this scope/source.
func (r *Runner) runScopeSource(
	ctx context.Context,
	opts RunOptions,
	scope position.Scope,
	source frame.Source,
	baseKey string,
	seasonCode *string,
	seasonCodes []string,
	specs []metrics.Spec,
	defIDs map[string]int,
) SourceReport {
	sr := SourceReport{Source: source}
	runKey := snapshot.RunKeyForSource(baseKey, opts.Cohort, source)
	sr.RunKey = runKey

	f, err := r.loader.Load(ctx, source, frame.LoadOptions{
		Cohort:      opts.Cohort,
		SeasonCodes: seasonCodes,
		Scope:       scope,
	})
	if err != nil {
		sr.Err = err.Error()
		return sr
	}

	var results []metrics.Result
	for _, spec := range specs {
		if spec.Source != source {
			continue
		}
		res := metrics.Compute(f, spec, opts.MinSample)
		results = append(results, res)
		sr.Metrics = append(sr.Metrics, metricLine(res))
	}

	var minVersion int
	if opts.ReplaceRun && !opts.DryRun {
		deleted, maxDeleted, err := r.snaps.DeleteRun(ctx, string(opts.Cohort), runKey)
		if err != nil {
			sr.Err = err.Error()
			return sr
		}
		if deleted > 0 {
			minVersion = maxDeleted + 1
			r.logger.Info("Replaced existing run",
				"run_key", runKey, "snapshots_deleted", deleted, "last_version", maxDeleted)
		}
	}

	written, err := r.snaps.Write(ctx, snapshot.WriteRequest{
		Context: snapshot.Context{
			Cohort:     opts.Cohort,
			Source:     source,
			SeasonCode: seasonCode,
			Scope:      scope,
		},
		RunKey:     runKey,
		Results:    results,
		DefIDs:     defIDs,
		DryRun:     opts.DryRun,
		MinVersion: minVersion,
	})
	if errors.Is(err, snapshot.ErrEmptyRun) {
		sr.Empty = true
		return sr
	}
	if err != nil {
		sr.Err = err.Error()
		return sr
	}

	sr.SnapshotID = written.SnapshotID
	sr.Version = written.Version
	sr.Rows = written.Rows
	sr.Population = written.Population
	return sr
}

// resolveScopes turns the scope flags into the list of scopes to compute:
// a single resolved scope, or the baseline plus every parent group.
func (r *Runner) resolveScopes(opts RunOptions) ([]position.Scope, error) {
	if !opts.ScopeMatrix {
		scope, err := position.ResolveScope(opts.ScopeToken)
		if err != nil {
			return nil, err
		}
		return []position.Scope{scope}, nil
	}

	scopes := []position.Scope{{}} // all-positions baseline first
	for _, token := range position.PresetScopeTokens(position.ScopeParent) {
		scope, err := position.ResolveScope(token)
		if err != nil {
			return nil, err
		}
		scopes = append(scopes, scope)
	}
	return scopes, nil
}

func sourcesOf(specs []metrics.Spec) []frame.Source {
	var out []frame.Source
	seen := map[frame.Source]bool{}
	for _, s := range specs {
		if !seen[s.Source] {
			seen[s.Source] = true
			out = append(out, s.Source)
		}
	}
	return out
}
