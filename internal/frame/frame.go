// Package frame loads per-source measurement frames: flat tabular rows joined
// with player status and resolved position tags, cohort/position-filtered and
// baseline-flagged. Frames are the only input to the metric computation
// engine.
package frame

import "github.com/hoopcombine/combine-data/internal/position"

// Source identifies a measurement table.
type Source string

const (
	SourceAnthro   Source = "anthro"
	SourceAgility  Source = "agility"
	SourceShooting Source = "shooting"
)

// Sources lists all measurement sources in computation order.
var Sources = []Source{SourceAnthro, SourceAgility, SourceShooting}

// ParseSource validates a source token.
func ParseSource(s string) (Source, bool) {
	switch Source(s) {
	case SourceAnthro, SourceAgility, SourceShooting:
		return Source(s), true
	}
	return "", false
}

// Cohort is the population frame being evaluated. The cohort decides which
// rows carry the baseline flag; it never excludes a row from being scored.
type Cohort string

const (
	CohortCurrentNBA   Cohort = "current_nba"
	CohortAllTimeNBA   Cohort = "all_time_nba"
	CohortCurrentDraft Cohort = "current_draft"
	CohortAllTimeDraft Cohort = "all_time_draft"
	CohortGlobal       Cohort = "global"
)

// Cohorts lists all supported cohorts.
var Cohorts = []Cohort{
	CohortCurrentNBA, CohortAllTimeNBA,
	CohortCurrentDraft, CohortAllTimeDraft, CohortGlobal,
}

// ParseCohort validates a cohort token.
func ParseCohort(s string) (Cohort, bool) {
	for _, c := range Cohorts {
		if Cohort(s) == c {
			return c, true
		}
	}
	return "", false
}

// Row is one measurement observation. Values is keyed by metric column name;
// a missing key means the measurement was not taken. For the shooting source
// drill percentages are already derived from their made/attempt pairs.
type Row struct {
	PlayerID        int
	SeasonCode      string
	SeasonStart     int
	PositionFine    string
	PositionParents []string
	Baseline        bool
	Values          map[string]float64
}

// Frame is a filtered, baseline-flagged set of rows for one source.
type Frame struct {
	Source Source
	Cohort Cohort
	Scope  position.Scope
	Rows   []Row
}

// Season is a row from the season catalog.
type Season struct {
	Code      string
	StartYear int
	EndYear   int
}

// baselineFlag applies the cohort's baseline-selection policy to one player's
// status columns.
func baselineFlag(cohort Cohort, isActive bool, lastActive *string) bool {
	switch cohort {
	case CohortCurrentNBA:
		return isActive
	case CohortAllTimeNBA:
		return isActive || lastActive != nil
	default:
		// Draft-class and global cohorts: everyone in the filtered frame.
		return true
	}
}
