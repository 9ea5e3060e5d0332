package snapshot_test

import (
	"testing"

	"github.com/hoopcombine/combine-data/internal/frame"
	"github.com/hoopcombine/combine-data/internal/position"
	"github.com/hoopcombine/combine-data/internal/snapshot"
	. "github.com/smartystreets/goconvey/convey"
)

func TestBaseRunKey(t *testing.T) {
	Convey("Given run parameters", t, func() {
		season := "2024-25"
		guard, _ := position.ResolveScope("guard")

		Convey("The base key composes cohort, season, scope, and min sample", func() {
			key := snapshot.BaseRunKey("", frame.CohortCurrentNBA, &season, guard, 3)
			So(key, ShouldEqual, "current_nba_2024-25_guard_min3")
		})

		Convey("Missing season and scope fold to 'all'", func() {
			key := snapshot.BaseRunKey("", frame.CohortAllTimeNBA, nil, position.Scope{}, 5)
			So(key, ShouldEqual, "all_time_nba_all_all_min5")
		})

		Convey("An operator override wins", func() {
			key := snapshot.BaseRunKey("backfill-2024", frame.CohortGlobal, &season, guard, 3)
			So(key, ShouldEqual, "backfill-2024")
		})
	})
}

func TestRunKeyForSource(t *testing.T) {
	Convey("Given a base run key", t, func() {
		Convey("The global cohort gets a per-source suffix", func() {
			So(snapshot.RunKeyForSource("base", frame.CohortGlobal, frame.SourceAnthro),
				ShouldEqual, "base_anthro")
			So(snapshot.RunKeyForSource("base", frame.CohortGlobal, frame.SourceShooting),
				ShouldEqual, "base_shooting")
		})

		Convey("Other cohorts share one key across sources", func() {
			So(snapshot.RunKeyForSource("base", frame.CohortCurrentNBA, frame.SourceAnthro),
				ShouldEqual, "base")
			So(snapshot.RunKeyForSource("base", frame.CohortCurrentDraft, frame.SourceShooting),
				ShouldEqual, "base")
		})
	})
}
