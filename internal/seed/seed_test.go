package seed

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestParseSeasonCode(t *testing.T) {
	Convey("Given season codes in YYYY-YY form", t, func() {
		Convey("A same-century code resolves both years", func() {
			start, end, err := parseSeasonCode("2024-25")
			So(err, ShouldBeNil)
			So(start, ShouldEqual, 2024)
			So(end, ShouldEqual, 2025)
		})

		Convey("A century-crossing code rolls the end year forward", func() {
			start, end, err := parseSeasonCode("1999-00")
			So(err, ShouldBeNil)
			So(start, ShouldEqual, 1999)
			So(end, ShouldEqual, 2000)
		})

		Convey("Malformed codes are rejected", func() {
			for _, code := range []string{"2024", "24-25", "2024-2025", "abcd-ef", ""} {
				_, _, err := parseSeasonCode(code)
				So(err, ShouldNotBeNil)
			}
		})
	})
}

func TestMeasurementUpsertSQL(t *testing.T) {
	Convey("Given a measurement table and its columns", t, func() {
		sql := measurementUpsertSQL("combine_agility", []string{"lane_agility_time", "shuttle_run"})

		Convey("The statement inserts the key, position, and every column", func() {
			So(sql, ShouldContainSubstring, "INSERT INTO combine_agility (player_id, season_code, position, lane_agility_time, shuttle_run)")
			So(sql, ShouldContainSubstring, "VALUES ($1, $2, $3, $4, $5)")
		})

		Convey("The conflict clause updates every measurement column", func() {
			So(sql, ShouldContainSubstring, "ON CONFLICT (player_id, season_code) DO UPDATE SET")
			So(sql, ShouldContainSubstring, "lane_agility_time = EXCLUDED.lane_agility_time")
			So(sql, ShouldContainSubstring, "shuttle_run = EXCLUDED.shuttle_run")
			So(sql, ShouldContainSubstring, "position = EXCLUDED.position")
		})
	})
}

func TestReadTable(t *testing.T) {
	Convey("Given a CSV export", t, func() {
		dir := t.TempDir()

		write := func(name, content string) string {
			path := filepath.Join(dir, name)
			So(os.WriteFile(path, []byte(content), 0o644), ShouldBeNil)
			return path
		}

		Convey("Headers are matched case-insensitively", func() {
			path := write("anthro.csv", strings.Join([]string{
				"Player_ID,Season_Code,Wingspan",
				"203500,2013-14,86.5",
				"1629027,2018-19,",
			}, "\n"))

			tbl, err := readTable(path)
			So(err, ShouldBeNil)
			So(len(tbl.rows), ShouldEqual, 2)

			id, err := tbl.intVal(tbl.rows[0], "player_id")
			So(err, ShouldBeNil)
			So(id, ShouldEqual, 203500)

			So(tbl.str(tbl.rows[0], "season_code"), ShouldEqual, "2013-14")
		})

		Convey("Empty numeric cells become nil, not zero", func() {
			path := write("vals.csv", "player_id,season_code,wingspan\n1,2020-21,\n")
			tbl, err := readTable(path)
			So(err, ShouldBeNil)

			v, err := tbl.floatPtr(tbl.rows[0], "wingspan")
			So(err, ShouldBeNil)
			So(v, ShouldBeNil)
		})

		Convey("Non-numeric cells report the column and value", func() {
			path := write("bad.csv", "player_id,season_code,wingspan\n1,2020-21,tall\n")
			tbl, err := readTable(path)
			So(err, ShouldBeNil)

			_, err = tbl.floatPtr(tbl.rows[0], "wingspan")
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "wingspan")
		})

		Convey("An absent column reads as empty", func() {
			path := write("sparse.csv", "player_id,season_code\n1,2020-21\n")
			tbl, err := readTable(path)
			So(err, ShouldBeNil)
			So(tbl.str(tbl.rows[0], "position"), ShouldEqual, "")
		})

		Convey("A missing file is an error", func() {
			_, err := readTable(filepath.Join(dir, "nope.csv"))
			So(err, ShouldNotBeNil)
		})
	})
}
