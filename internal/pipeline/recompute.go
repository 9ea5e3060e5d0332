package pipeline

import (
	"context"
	"fmt"

	"github.com/hoopcombine/combine-data/internal/frame"
)

// RecomputeOptions drives a multi-cohort refresh: a full scope-matrix run per
// cohort (per draft season for the draft cohorts), optionally promoted and
// followed by similarity recomputation.
type RecomputeOptions struct {
	Cohorts        []frame.Cohort
	DraftSeasons   []string
	Promote        bool
	Execute        bool // false = dry-run everything, write nothing
	WithSimilarity bool // honored only when Promote and Execute are both set
	MinSample      int
}

// RecomputeReport aggregates the per-run reports of one recompute sweep.
type RecomputeReport struct {
	Runs       []*RunReport
	Promoted   int
	Similarity int
	Errors     []string
}

// Summary returns the one-line roll-up.
func (r *RecomputeReport) Summary() string {
	return fmt.Sprintf("runs=%d promoted=%d similarity_runs=%d errors=%d",
		len(r.Runs), r.Promoted, r.Similarity, len(r.Errors))
}

func (r *RecomputeReport) addErrorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Recompute runs the full position matrix for each target cohort. Failures
// in one cohort are recorded and do not stop the sweep; configuration errors
// (unknown cohort, unknown season) abort before any work.
func (r *Runner) Recompute(ctx context.Context, opts RecomputeOptions) (*RecomputeReport, error) {
	if len(opts.Cohorts) == 0 {
		return nil, fmt.Errorf("no target cohorts")
	}
	for _, c := range opts.Cohorts {
		if _, ok := frame.ParseCohort(string(c)); !ok {
			return nil, fmt.Errorf("unknown cohort %q", c)
		}
	}

	report := &RecomputeReport{}
	for _, cohort := range opts.Cohorts {
		for _, season := range seasonsFor(cohort, opts.DraftSeasons) {
			r.recomputeOne(ctx, report, cohort, season, opts)
		}
	}
	return report, nil
}

// seasonsFor picks the season sweep per cohort: draft cohorts iterate the
// given draft seasons, the rest run unrestricted.
func seasonsFor(cohort frame.Cohort, draftSeasons []string) []string {
	if (cohort == frame.CohortCurrentDraft || cohort == frame.CohortAllTimeDraft) && len(draftSeasons) > 0 {
		return draftSeasons
	}
	return []string{"all"}
}

func (r *Runner) recomputeOne(ctx context.Context, report *RecomputeReport, cohort frame.Cohort, season string, opts RecomputeOptions) {
	runReport, err := r.Run(ctx, RunOptions{
		Cohort:      cohort,
		SeasonCode:  season,
		ScopeMatrix: true,
		MinSample:   opts.MinSample,
		DryRun:      !opts.Execute,
	})
	if err != nil {
		report.addErrorf("run cohort=%s season=%s: %v", cohort, season, err)
		return
	}
	report.Runs = append(report.Runs, runReport)
	report.Errors = append(report.Errors, runReport.Errors()...)

	if !opts.Promote || !opts.Execute {
		return
	}

	for _, scope := range runReport.Scopes {
		// Promote only the sources that wrote a snapshot; an empty run for
		// one source must not fail the scope's other promotions.
		var written []frame.Source
		for _, src := range scope.Sources {
			if src.SnapshotID != 0 {
				written = append(written, src.Source)
			}
		}
		if len(written) == 0 {
			continue
		}

		promoted, err := r.Promote(ctx, PromoteOptions{
			Cohort:     cohort,
			SeasonCode: season,
			ScopeToken: scopeToken(scope),
			Sources:    written,
			MinSample:  opts.MinSample,
		})
		report.Promoted += len(promoted)
		if err != nil {
			report.addErrorf("promote cohort=%s season=%s scope=%s: %v",
				cohort, season, scope.Scope.String(), err)
			continue
		}

		if opts.WithSimilarity {
			simReport, err := r.Similarity(ctx, SimilarityOptions{
				Cohort:     cohort,
				SeasonCode: season,
				ScopeToken: scopeToken(scope),
			})
			if err != nil {
				report.addErrorf("similarity cohort=%s season=%s scope=%s: %v",
					cohort, season, scope.Scope.String(), err)
				continue
			}
			report.Similarity++
			r.logger.Info("Similarity recomputed",
				"cohort", cohort, "season", season,
				"scope", scope.Scope.String(), "summary", simReport.Summary())
		}
	}
}

// scopeToken turns a report scope back into the token Promote and Similarity
// resolve; the baseline scope is the empty token.
func scopeToken(scope ScopeReport) string {
	if scope.Scope.IsZero() {
		return ""
	}
	return scope.Scope.Value
}
