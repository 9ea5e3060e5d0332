package metrics

import (
	"testing"

	"github.com/hoopcombine/combine-data/internal/frame"
	. "github.com/smartystreets/goconvey/convey"
)

// testFrame builds an agility frame with one row per entry. Keys are player
// IDs, values go into the given column; baseline IDs are flagged.
func testFrame(column string, values map[int]float64, baseline []int) *frame.Frame {
	inBaseline := map[int]bool{}
	for _, id := range baseline {
		inBaseline[id] = true
	}
	f := &frame.Frame{Source: frame.SourceAgility, Cohort: frame.CohortCurrentNBA}
	for id, v := range values {
		f.Rows = append(f.Rows, frame.Row{
			PlayerID:    id,
			SeasonCode:  "2024-25",
			SeasonStart: 2024,
			Baseline:    inBaseline[id],
			Values:      map[string]float64{column: v},
		})
	}
	return f
}

func spec(lowerIsBetter bool) Spec {
	return Spec{Key: "test_metric", Source: frame.SourceAgility, Column: "col", LowerIsBetter: lowerIsBetter}
}

func TestComputeHigherIsBetter(t *testing.T) {
	Convey("Given a baseline of [10,20,30,40,50] on a higher-is-better metric", t, func() {
		f := testFrame("col", map[int]float64{
			1: 10, 2: 20, 3: 30, 4: 40, 5: 50,
		}, []int{1, 2, 3, 4, 5})

		res := Compute(f, spec(false), 3)
		So(res.Skipped(), ShouldBeFalse)
		So(res.BaselineSize, ShouldEqual, 5)

		byID := map[int]PlayerValue{}
		for _, v := range res.Values {
			byID[v.PlayerID] = v
		}

		Convey("The best value gets rank 1 and percentile 100", func() {
			So(byID[5].Rank, ShouldEqual, 1)
			So(byID[5].Percentile, ShouldEqual, 100)
		})

		Convey("The worst value gets rank 5 and percentile 20", func() {
			So(byID[1].Rank, ShouldEqual, 5)
			So(byID[1].Percentile, ShouldEqual, 20)
		})

		Convey("A non-baseline value above the baseline maximum gets rank 1, percentile 100", func() {
			f2 := testFrame("col", map[int]float64{
				1: 10, 2: 20, 3: 30, 4: 40, 5: 50, 6: 60,
			}, []int{1, 2, 3, 4, 5})
			res2 := Compute(f2, spec(false), 3)
			for _, v := range res2.Values {
				if v.PlayerID == 6 {
					So(v.Rank, ShouldEqual, 1)
					So(v.Percentile, ShouldEqual, 100)
				}
				So(v.Rank, ShouldBeGreaterThanOrEqualTo, 1)
			}
		})

		Convey("A non-baseline value between 20 and 30 gets rank 3, percentile 60", func() {
			f2 := testFrame("col", map[int]float64{
				1: 10, 2: 20, 3: 30, 4: 40, 5: 50, 6: 25,
			}, []int{1, 2, 3, 4, 5})
			res2 := Compute(f2, spec(false), 3)
			So(res2.BaselineSize, ShouldEqual, 5)
			for _, v := range res2.Values {
				if v.PlayerID == 6 {
					So(v.Rank, ShouldEqual, 3)
					So(v.Percentile, ShouldEqual, 60)
					So(v.Population, ShouldEqual, 5)
				}
			}
		})

		Convey("Z-scores are positive above the mean", func() {
			So(byID[5].ZScore, ShouldNotBeNil)
			So(*byID[5].ZScore, ShouldBeGreaterThan, 0)
			So(*byID[1].ZScore, ShouldBeLessThan, 0)
			So(*byID[3].ZScore, ShouldAlmostEqual, 0, 1e-12)
		})
	})
}

func TestComputeLowerIsBetter(t *testing.T) {
	Convey("Given sprint times where lower is better", t, func() {
		f := testFrame("col", map[int]float64{
			1: 3.0, 2: 3.2, 3: 3.4, 4: 3.6, 5: 3.8,
		}, []int{1, 2, 3, 4, 5})

		res := Compute(f, spec(true), 3)
		byID := map[int]PlayerValue{}
		for _, v := range res.Values {
			byID[v.PlayerID] = v
		}

		Convey("The fastest time gets rank 1 and exactly percentile 100", func() {
			So(byID[1].Rank, ShouldEqual, 1)
			So(byID[1].Percentile, ShouldAlmostEqual, 100, 1e-9)
		})

		Convey("The slowest time gets the bottom rank", func() {
			So(byID[5].Rank, ShouldEqual, 5)
			So(byID[5].Percentile, ShouldAlmostEqual, 20, 1e-9)
		})

		Convey("A faster-than-average time yields a positive z-score", func() {
			So(byID[1].ZScore, ShouldNotBeNil)
			So(*byID[1].ZScore, ShouldBeGreaterThan, 0)
			So(*byID[5].ZScore, ShouldBeLessThan, 0)
		})

		Convey("All percentiles stay inside [0, 100]", func() {
			for _, v := range res.Values {
				So(v.Percentile, ShouldBeBetweenOrEqual, 0, 100)
			}
		})
	})
}

func TestComputeSkips(t *testing.T) {
	Convey("Given insufficient data", t, func() {
		Convey("An empty frame skips with no_data", func() {
			f := &frame.Frame{Source: frame.SourceAgility}
			res := Compute(f, spec(false), 3)
			So(res.Skip, ShouldEqual, SkipNoData)
			So(res.Values, ShouldBeEmpty)
		})

		Convey("A frame without the metric column skips with no_data", func() {
			f := testFrame("other_col", map[int]float64{1: 1}, []int{1})
			res := Compute(f, spec(false), 3)
			So(res.Skip, ShouldEqual, SkipNoData)
		})

		Convey("No baseline rows skips with empty_baseline", func() {
			f := testFrame("col", map[int]float64{1: 1, 2: 2, 3: 3}, nil)
			res := Compute(f, spec(false), 3)
			So(res.Skip, ShouldEqual, SkipEmptyBaseline)
		})

		Convey("A baseline below the minimum sample size skips", func() {
			f := testFrame("col", map[int]float64{1: 1, 2: 2, 3: 3}, []int{1, 2})
			res := Compute(f, spec(false), 3)
			So(res.Skip, ShouldEqual, SkipBelowMinSample)
			So(res.BaselineSize, ShouldEqual, 2)
		})
	})
}

func TestComputeZeroDeviation(t *testing.T) {
	Convey("Given a baseline with zero standard deviation", t, func() {
		f := testFrame("col", map[int]float64{1: 5, 2: 5, 3: 5}, []int{1, 2, 3})
		res := Compute(f, spec(false), 3)

		Convey("Values are still ranked but z-scores are nil", func() {
			So(res.Skipped(), ShouldBeFalse)
			for _, v := range res.Values {
				So(v.ZScore, ShouldBeNil)
				So(v.Percentile, ShouldBeBetweenOrEqual, 0, 100)
			}
		})
	})
}

func TestDedupeLatest(t *testing.T) {
	Convey("Given a player measured in multiple seasons", t, func() {
		f := &frame.Frame{Source: frame.SourceAgility}
		f.Rows = []frame.Row{
			{PlayerID: 1, SeasonCode: "2022-23", SeasonStart: 2022, Baseline: true, Values: map[string]float64{"col": 10}},
			{PlayerID: 1, SeasonCode: "2024-25", SeasonStart: 2024, Baseline: true, Values: map[string]float64{"col": 30}},
			{PlayerID: 2, SeasonCode: "2023-24", SeasonStart: 2023, Baseline: true, Values: map[string]float64{"col": 20}},
			{PlayerID: 3, SeasonCode: "2023-24", SeasonStart: 2023, Baseline: true, Values: map[string]float64{"col": 25}},
		}

		res := Compute(f, spec(false), 3)

		Convey("Only the most recent measurement per player survives", func() {
			So(res.SampleSize, ShouldEqual, 3)
			So(res.BaselineSize, ShouldEqual, 3)
			for _, v := range res.Values {
				if v.PlayerID == 1 {
					So(v.Raw, ShouldEqual, 30)
					So(v.Rank, ShouldEqual, 1)
				}
			}
		})
	})
}

func TestCatalog(t *testing.T) {
	Convey("Given the metric catalog", t, func() {
		Convey("Filtering by source selects only that source's metrics", func() {
			specs := Catalog([]frame.Source{frame.SourceShooting}, nil)
			So(specs, ShouldNotBeEmpty)
			for _, s := range specs {
				So(s.Source, ShouldEqual, frame.SourceShooting)
			}
		})

		Convey("Filtering by category narrows further", func() {
			specs := Catalog(nil, []string{"speed"})
			So(specs, ShouldHaveLength, 3)
			for _, s := range specs {
				So(s.LowerIsBetter, ShouldBeTrue)
			}
		})

		Convey("Lookup finds a known key and rejects unknown ones", func() {
			s, ok := Lookup("wingspan")
			So(ok, ShouldBeTrue)
			So(s.Source, ShouldEqual, frame.SourceAnthro)

			_, ok = Lookup("vibes")
			So(ok, ShouldBeFalse)
		})
	})
}
