package position_test

import (
	"testing"

	"github.com/hoopcombine/combine-data/internal/position"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDeriveTags(t *testing.T) {
	Convey("Given raw position text from combine data", t, func() {
		Convey("When the text is a simple code", func() {
			fine, parents := position.DeriveTags("PG")
			So(fine, ShouldEqual, "pg")
			So(parents, ShouldResemble, []string{"guard"})
		})

		Convey("When the text uses long names", func() {
			fine, parents := position.DeriveTags("POINT")
			So(fine, ShouldEqual, "pg")
			So(parents, ShouldResemble, []string{"guard"})

			fine, parents = position.DeriveTags("CENTER")
			So(fine, ShouldEqual, "c")
			So(parents, ShouldResemble, []string{"big"})
		})

		Convey("When the text is a hybrid, token order is canonicalized", func() {
			fine, _ := position.DeriveTags("SG/PG")
			So(fine, ShouldEqual, "pg_sg")

			fine, _ = position.DeriveTags("PG-SG")
			So(fine, ShouldEqual, "pg_sg")

			fine, _ = position.DeriveTags("Power Forward and Center")
			So(fine, ShouldEqual, "pf_c")
		})

		Convey("When the text repeats a position it is deduplicated", func() {
			fine, _ := position.DeriveTags("PG/POINT GUARD")
			So(fine, ShouldEqual, "pg")
		})

		Convey("When the text is blank or junk, it never errors", func() {
			fine, parents := position.DeriveTags("")
			So(fine, ShouldEqual, "")
			So(parents, ShouldBeNil)

			fine, parents = position.DeriveTags("N/A")
			So(fine, ShouldEqual, "")
			So(parents, ShouldBeNil)
		})
	})
}

func TestParentsForFine(t *testing.T) {
	Convey("Given fine position codes", t, func() {
		Convey("SF belongs to wing and forward", func() {
			So(position.ParentsForFine("sf"), ShouldResemble, []string{"forward", "wing"})
		})

		Convey("PF belongs to forward and big", func() {
			So(position.ParentsForFine("pf"), ShouldResemble, []string{"big", "forward"})
		})

		Convey("Hybrids union their base parents", func() {
			So(position.ParentsForFine("sf_pf"), ShouldResemble, []string{"big", "forward", "wing"})
			So(position.ParentsForFine("pg_sg"), ShouldResemble, []string{"guard"})
		})
	})
}

func TestResolveScope(t *testing.T) {
	Convey("Given scope tokens", t, func() {
		Convey("Parent aliases resolve to parent scopes", func() {
			for _, tok := range []string{"guard", "guards", "g"} {
				s, err := position.ResolveScope(tok)
				So(err, ShouldBeNil)
				So(s.Kind, ShouldEqual, position.ScopeParent)
				So(s.Value, ShouldEqual, "guard")
			}

			s, err := position.ResolveScope("BIGS")
			So(err, ShouldBeNil)
			So(s.Value, ShouldEqual, "big")
		})

		Convey("Fine tokens resolve through derivation", func() {
			s, err := position.ResolveScope("pg-sg")
			So(err, ShouldBeNil)
			So(s.Kind, ShouldEqual, position.ScopeFine)
			So(s.Value, ShouldEqual, "pg_sg")
		})

		Convey("An empty token is the zero scope, not an error", func() {
			s, err := position.ResolveScope("")
			So(err, ShouldBeNil)
			So(s.IsZero(), ShouldBeTrue)
			So(s.String(), ShouldEqual, "all")
		})

		Convey("A non-empty unresolvable token is a validation error", func() {
			_, err := position.ResolveScope("quarterback")
			So(err, ShouldNotBeNil)
		})
	})
}

func TestScopeMatches(t *testing.T) {
	Convey("Given resolved scopes", t, func() {
		guard, _ := position.ResolveScope("guard")
		pgsg, _ := position.ResolveScope("pg_sg")

		Convey("A parent scope matches by membership", func() {
			So(guard.Matches("pg", []string{"guard"}), ShouldBeTrue)
			So(guard.Matches("c", []string{"big"}), ShouldBeFalse)
			So(guard.Matches("", nil), ShouldBeFalse)
		})

		Convey("A fine scope matches exactly", func() {
			So(pgsg.Matches("pg_sg", []string{"guard"}), ShouldBeTrue)
			So(pgsg.Matches("pg", []string{"guard"}), ShouldBeFalse)
		})

		Convey("The zero scope matches everything", func() {
			So(position.Scope{}.Matches("", nil), ShouldBeTrue)
		})
	})
}

func TestPresetScopeTokens(t *testing.T) {
	Convey("Preset sweep lists are fixed", t, func() {
		So(position.PresetScopeTokens(position.ScopeParent), ShouldResemble,
			[]string{"guard", "wing", "forward", "big"})
		So(position.PresetScopeTokens(position.ScopeFine), ShouldHaveLength, 9)
	})
}
