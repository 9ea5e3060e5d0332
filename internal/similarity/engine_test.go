package similarity

import (
	"math"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func nan() float64 { return math.NaN() }

func defaultWeights() map[Dimension]float64 {
	return map[Dimension]float64{DimAnthro: 0.4, DimCombine: 0.4, DimShooting: 0.2}
}

func TestPairwiseDistance(t *testing.T) {
	Convey("Given a z-score matrix", t, func() {
		Convey("Fully overlapping unit-difference players are distance 1", func() {
			// Differences of 1 per metric, population variance 1 per column.
			m := &Matrix{
				Players: []int{1, 2},
				Metrics: []string{"a", "b", "c", "d"},
				Data: [][]float64{
					{1, 1, 1, 1},
					{-1, -1, -1, -1},
				},
			}
			scores, order := pairwise(m, 0.7, true)
			So(order, ShouldHaveLength, 1)
			ps := scores[pair{1, 2}]
			// Each column has variance 1 and a difference of 2.
			So(ps.distance, ShouldAlmostEqual, 2, 1e-9)
			So(ps.overlap, ShouldEqual, 1)
		})

		Convey("Distance is symmetric in the inputs", func() {
			m := &Matrix{
				Players: []int{1, 2, 3},
				Metrics: []string{"a", "b"},
				Data: [][]float64{
					{0.5, -0.2},
					{-1.1, 0.9},
					{0.1, 0.4},
				},
			}
			scores, _ := pairwise(m, 0.5, true)
			swapped := &Matrix{
				Players: []int{3, 2, 1},
				Metrics: m.Metrics,
				Data:    [][]float64{m.Data[2], m.Data[1], m.Data[0]},
			}
			scoresSwapped, _ := pairwise(swapped, 0.5, true)
			So(scoresSwapped[pair{2, 1}].distance, ShouldAlmostEqual, scores[pair{1, 2}].distance, 1e-12)
			So(scoresSwapped[pair{3, 1}].distance, ShouldAlmostEqual, scores[pair{1, 3}].distance, 1e-12)
		})

		Convey("A pair below the overlap threshold is excluded entirely", func() {
			m := &Matrix{
				Players: []int{1, 2},
				Metrics: []string{"a", "b", "c", "d"},
				Data: [][]float64{
					{1, 1, nan(), nan()},
					{0, 0, 1, 1},
				},
			}
			// Overlap fraction 0.5 with threshold 0.7.
			scores, order := pairwise(m, 0.7, true)
			So(scores, ShouldBeEmpty)
			So(order, ShouldBeEmpty)
		})

		Convey("A near-zero-variance metric is treated as unit variance", func() {
			m := &Matrix{
				Players: []int{1, 2, 3},
				Metrics: []string{"flat", "live"},
				Data: [][]float64{
					{2, 1},
					{2, -1},
					{2, 0},
				},
			}
			scores, _ := pairwise(m, 0.5, true)
			for _, ps := range scores {
				So(math.IsInf(ps.distance, 0), ShouldBeFalse)
				So(math.IsNaN(ps.distance), ShouldBeFalse)
			}
		})
	})
}

func TestCalibrateAlpha(t *testing.T) {
	Convey("Given distance sets", t, func() {
		Convey("Alpha is ln2 over the median", func() {
			So(CalibrateAlpha([]float64{1, 1, 1}), ShouldAlmostEqual, math.Ln2, 1e-12)
			So(CalibrateAlpha([]float64{0.5, 2, 8}), ShouldAlmostEqual, math.Ln2/2, 1e-12)
		})

		Convey("Alpha is bounded to [0.001, 10]", func() {
			So(CalibrateAlpha([]float64{1e6}), ShouldEqual, 0.001)
			So(CalibrateAlpha([]float64{1e-9}), ShouldEqual, 10)
		})

		Convey("Empty or zero distance sets yield zero", func() {
			So(CalibrateAlpha(nil), ShouldEqual, 0)
			So(CalibrateAlpha([]float64{0, 0, 0}), ShouldEqual, 0)
		})
	})
}

func TestComputeAllScoring(t *testing.T) {
	Convey("Given two players fully overlapping on 4 metrics", t, func() {
		// Mean-squared difference of 1.0 with unit variance per metric:
		// distance 1.0, and with the median also 1.0 the similarity is 50.
		m := &Matrix{
			Players: []int{1, 2},
			Metrics: []string{"a", "b", "c", "d"},
			Data: [][]float64{
				{0.5, 0.5, 0.5, 0.5},
				{-0.5, -0.5, -0.5, -0.5},
			},
		}
		rows, err := ComputeAll(map[Dimension]*Matrix{DimShooting: m},
			Config{OverlapThreshold: 0.7, Weights: defaultWeights()})
		So(err, ShouldBeNil)

		Convey("The single pair scores similarity 50 in its dimension", func() {
			var shooting []Row
			for _, r := range rows {
				if r.Dimension == DimShooting {
					shooting = append(shooting, r)
				}
			}
			So(shooting, ShouldHaveLength, 2) // both directions
			for _, r := range shooting {
				So(r.Distance, ShouldAlmostEqual, 1.0, 1e-9)
				So(r.Similarity, ShouldAlmostEqual, 50.0, 1e-9)
				So(r.Rank, ShouldEqual, 1)
			}
		})

		Convey("The composite carries the pair too, calibrated independently", func() {
			var comp []Row
			for _, r := range rows {
				if r.Dimension == DimComposite {
					comp = append(comp, r)
				}
			}
			So(comp, ShouldHaveLength, 2)
			So(comp[0].Distance, ShouldAlmostEqual, 1.0, 1e-9)
		})
	})
}

func TestComputeAllComposite(t *testing.T) {
	Convey("Given pairs present in different dimensions", t, func() {
		anthro := &Matrix{
			Players: []int{1, 2},
			Metrics: []string{"a", "b"},
			Data:    [][]float64{{1, 0}, {0, 1}},
		}
		combine := &Matrix{
			Players: []int{2, 3},
			Metrics: []string{"x", "y"},
			Data:    [][]float64{{0.5, 0.5}, {-0.5, -0.5}},
		}
		rows, err := ComputeAll(map[Dimension]*Matrix{DimAnthro: anthro, DimCombine: combine},
			Config{OverlapThreshold: 0.7, Weights: defaultWeights()})
		So(err, ShouldBeNil)

		Convey("Every pair with at least one contributing dimension appears in the composite", func() {
			compPairs := map[[2]int]bool{}
			for _, r := range rows {
				if r.Dimension == DimComposite {
					compPairs[[2]int{r.PlayerID, r.CompPlayerID}] = true
				}
			}
			So(compPairs[[2]int{1, 2}], ShouldBeTrue)
			So(compPairs[[2]int{2, 3}], ShouldBeTrue)
			So(compPairs[[2]int{1, 3}], ShouldBeFalse) // absent from every dimension
		})
	})

	Convey("Non-positive weights are a configuration error", t, func() {
		_, err := ComputeAll(map[Dimension]*Matrix{},
			Config{OverlapThreshold: 0.7, Weights: map[Dimension]float64{}})
		So(err, ShouldNotBeNil)
	})
}

func TestRankingAndCap(t *testing.T) {
	Convey("Given an anchor with several neighbors", t, func() {
		m := &Matrix{
			Players: []int{1, 2, 3, 4},
			Metrics: []string{"a"},
			Data:    [][]float64{{0}, {0.1}, {0.5}, {2}},
		}
		cfg := Config{OverlapThreshold: 0.5, Weights: defaultWeights()}
		rows, err := ComputeAll(map[Dimension]*Matrix{DimAnthro: m}, cfg)
		So(err, ShouldBeNil)

		neighborsOf := func(anchor int, dim Dimension) []Row {
			var out []Row
			for _, r := range rows {
				if r.PlayerID == anchor && r.Dimension == dim {
					out = append(out, r)
				}
			}
			return out
		}

		Convey("Neighbors are ranked by similarity descending, 1-based", func() {
			ns := neighborsOf(1, DimAnthro)
			So(ns, ShouldHaveLength, 3)
			So(ns[0].Rank, ShouldEqual, 1)
			So(ns[0].CompPlayerID, ShouldEqual, 2) // closest
			So(ns[2].CompPlayerID, ShouldEqual, 4) // farthest
			for i := 1; i < len(ns); i++ {
				So(ns[i].Similarity, ShouldBeLessThanOrEqualTo, ns[i-1].Similarity)
			}
		})

		Convey("MaxNeighbors truncates after ranking", func() {
			cfg.MaxNeighbors = 1
			capped, err := ComputeAll(map[Dimension]*Matrix{DimAnthro: m}, cfg)
			So(err, ShouldBeNil)
			ns := 0
			for _, r := range capped {
				if r.PlayerID == 1 && r.Dimension == DimAnthro {
					ns++
					So(r.Rank, ShouldEqual, 1)
					So(r.CompPlayerID, ShouldEqual, 2)
				}
			}
			So(ns, ShouldEqual, 1)
		})
	})
}
