// Package snapshot persists computed metric values behind immutable,
// versioned snapshot records and manages "current" promotion per context.
package snapshot

import (
	"fmt"

	"github.com/hoopcombine/combine-data/internal/frame"
	"github.com/hoopcombine/combine-data/internal/position"
)

// Context addresses the "current" lookup: one snapshot may be current per
// (cohort, source, season, position scope) at a time.
type Context struct {
	Cohort     frame.Cohort
	Source     frame.Source
	SeasonCode *string // nil = all seasons
	Scope      position.Scope
}

func (c Context) seasonParam() *string { return c.SeasonCode }

func (c Context) fineParam() *string {
	if c.Scope.Kind == position.ScopeFine && !c.Scope.IsZero() {
		v := c.Scope.Value
		return &v
	}
	return nil
}

func (c Context) parentParam() *string {
	if c.Scope.Kind == position.ScopeParent && !c.Scope.IsZero() {
		v := c.Scope.Value
		return &v
	}
	return nil
}

// BaseRunKey composes the run key shared by all sources computed in one
// invocation. An operator-supplied override wins.
func BaseRunKey(override string, cohort frame.Cohort, seasonCode *string, scope position.Scope, minSample int) string {
	if override != "" {
		return override
	}
	season := "all"
	if seasonCode != nil {
		season = *seasonCode
	}
	return fmt.Sprintf("%s_%s_%s_min%d", cohort, season, scope.String(), minSample)
}

// RunKeyForSource suffixes the base key per source for the global cohort, so
// each source's snapshot stays independently addressable; other cohorts share
// one run key across sources.
func RunKeyForSource(base string, cohort frame.Cohort, source frame.Source) string {
	if cohort == frame.CohortGlobal {
		return base + "_" + string(source)
	}
	return base
}
