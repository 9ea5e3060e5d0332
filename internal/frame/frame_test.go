package frame

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestParseTokens(t *testing.T) {
	Convey("Given source and cohort tokens", t, func() {
		Convey("Every canonical source parses", func() {
			for _, s := range Sources {
				parsed, ok := ParseSource(string(s))
				So(ok, ShouldBeTrue)
				So(parsed, ShouldEqual, s)
			}
		})

		Convey("Every canonical cohort parses", func() {
			for _, c := range Cohorts {
				parsed, ok := ParseCohort(string(c))
				So(ok, ShouldBeTrue)
				So(parsed, ShouldEqual, c)
			}
		})

		Convey("Unknown tokens are rejected", func() {
			_, ok := ParseSource("vertical")
			So(ok, ShouldBeFalse)
			_, ok = ParseCohort("nba")
			So(ok, ShouldBeFalse)
		})
	})
}

func TestBaselineFlag(t *testing.T) {
	Convey("Given a player's status columns", t, func() {
		season := "2019-20"

		Convey("current_nba admits only active players", func() {
			So(baselineFlag(CohortCurrentNBA, true, nil), ShouldBeTrue)
			So(baselineFlag(CohortCurrentNBA, false, &season), ShouldBeFalse)
		})

		Convey("all_time_nba admits anyone who ever played", func() {
			So(baselineFlag(CohortAllTimeNBA, true, nil), ShouldBeTrue)
			So(baselineFlag(CohortAllTimeNBA, false, &season), ShouldBeTrue)
			So(baselineFlag(CohortAllTimeNBA, false, nil), ShouldBeFalse)
		})

		Convey("Draft and global cohorts admit everyone in the frame", func() {
			for _, c := range []Cohort{CohortCurrentDraft, CohortAllTimeDraft, CohortGlobal} {
				So(baselineFlag(c, false, nil), ShouldBeTrue)
			}
		})
	})
}
