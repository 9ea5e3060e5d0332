package snapshot

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestResolveVersion(t *testing.T) {
	Convey("Given version assignment across a replaced run", t, func() {
		Convey("Without a floor the database successor applies", func() {
			So(resolveVersion(1, 0), ShouldEqual, 1)
			So(resolveVersion(6, 0), ShouldEqual, 6)
		})

		Convey("A replaced run's numbering continues past the deleted rows", func() {
			// Versions 1..2 deleted: readback over the empty run key yields
			// successor 1, the floor carries the numbering to 3.
			So(resolveVersion(1, 3), ShouldEqual, 3)
		})

		Convey("A floor below the live successor never lowers the version", func() {
			So(resolveVersion(6, 4), ShouldEqual, 6)
		})

		Convey("Repeated replaces keep versions strictly increasing", func() {
			version := 0
			for i := 0; i < 3; i++ {
				next := resolveVersion(1, version+1)
				So(next, ShouldBeGreaterThan, version)
				version = next
			}
			So(version, ShouldEqual, 3)
		})
	})
}
