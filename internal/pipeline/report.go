package pipeline

import (
	"fmt"
	"strings"

	"github.com/hoopcombine/combine-data/internal/frame"
	"github.com/hoopcombine/combine-data/internal/metrics"
	"github.com/hoopcombine/combine-data/internal/position"
)

// MetricLine is one metric's outcome inside a source report: sample
// statistics, or a skip reason. Skips never affect exit status.
type MetricLine struct {
	Key          string
	Skip         metrics.SkipReason
	SampleSize   int
	BaselineSize int
	Mean         float64
	StdDev       float64
	Rows         int
}

func metricLine(res metrics.Result) MetricLine {
	return MetricLine{
		Key:          res.Spec.Key,
		Skip:         res.Skip,
		SampleSize:   res.SampleSize,
		BaselineSize: res.BaselineSize,
		Mean:         res.Mean,
		StdDev:       res.StdDev,
		Rows:         len(res.Values),
	}
}

// SourceReport is one snapshot's outcome within a scope.
type SourceReport struct {
	Source     frame.Source
	RunKey     string
	SnapshotID int
	Version    int
	Rows       int
	Population int
	Empty      bool // computation produced nothing persistable; rolled back
	Err        string
	Metrics    []MetricLine
}

// ScopeReport groups the per-source outcomes of one position scope.
type ScopeReport struct {
	Scope   position.Scope
	Sources []SourceReport
}

// RunReport is the operator-facing result of one metrics run.
type RunReport struct {
	Cohort frame.Cohort
	Season string
	DryRun bool
	Scopes []ScopeReport
}

// Errors collects every per-scope failure message, for exit-status decisions
// and logging.
func (r *RunReport) Errors() []string {
	var errs []string
	for _, scope := range r.Scopes {
		for _, src := range scope.Sources {
			if src.Err != "" {
				errs = append(errs, fmt.Sprintf("scope=%s source=%s: %s", scope.Scope.String(), src.Source, src.Err))
			}
		}
	}
	return errs
}

// Summary is a one-line roll-up in the style of the batch results elsewhere
// in this codebase.
func (r *RunReport) Summary() string {
	snapshots, rows, skips, empties := 0, 0, 0, 0
	for _, scope := range r.Scopes {
		for _, src := range scope.Sources {
			if src.SnapshotID != 0 || (r.DryRun && src.Err == "" && !src.Empty) {
				snapshots++
			}
			if src.Empty {
				empties++
			}
			rows += src.Rows
			for _, m := range src.Metrics {
				if m.Skip != metrics.SkipNone {
					skips++
				}
			}
		}
	}
	return fmt.Sprintf("snapshots=%d rows=%d metric_skips=%d empty_runs=%d errors=%d",
		snapshots, rows, skips, empties, len(r.Errors()))
}

// String renders the full textual run report: per scope and per metric,
// either the computed sample statistics or the skip reason.
func (r *RunReport) String() string {
	var b strings.Builder
	mode := "run"
	if r.DryRun {
		mode = "dry-run"
	}
	season := r.Season
	if season == "" {
		season = "all"
	}
	fmt.Fprintf(&b, "%s cohort=%s season=%s\n", mode, r.Cohort, season)

	for _, scope := range r.Scopes {
		for _, src := range scope.Sources {
			fmt.Fprintf(&b, "scope=%s source=%s run_key=%s", scope.Scope.String(), src.Source, src.RunKey)
			switch {
			case src.Err != "":
				fmt.Fprintf(&b, " ERROR %s\n", src.Err)
			case src.Empty:
				b.WriteString(" EMPTY (rolled back)\n")
			default:
				fmt.Fprintf(&b, " version=%d rows=%d population=%d\n", src.Version, src.Rows, src.Population)
			}
			for _, m := range src.Metrics {
				if m.Skip != metrics.SkipNone {
					fmt.Fprintf(&b, "  %-30s SKIP %s (sample=%d baseline=%d)\n",
						m.Key, m.Skip, m.SampleSize, m.BaselineSize)
					continue
				}
				fmt.Fprintf(&b, "  %-30s n=%d baseline=%d mean=%.2f std=%.2f\n",
					m.Key, m.SampleSize, m.BaselineSize, m.Mean, m.StdDev)
			}
		}
	}
	fmt.Fprintf(&b, "summary: %s\n", r.Summary())
	return b.String()
}
