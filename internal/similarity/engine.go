// Package similarity computes pairwise player-similarity scores from the
// z-scored features of a snapshot, per feature dimension plus a weighted
// composite, and persists the result as a full rewrite.
package similarity

import (
	"fmt"
	"math"
	"sort"

	"github.com/hoopcombine/combine-data/internal/frame"
)

// Dimension is a feature family used to bucket similarity computation.
type Dimension string

const (
	DimAnthro    Dimension = "anthro"
	DimCombine   Dimension = "combine"
	DimShooting  Dimension = "shooting"
	DimComposite Dimension = "composite"
)

// Dimensions lists the source-backed dimensions in computation order.
var Dimensions = []Dimension{DimAnthro, DimCombine, DimShooting}

// ParseDimension validates a dimension token.
func ParseDimension(s string) (Dimension, error) {
	switch Dimension(s) {
	case DimAnthro, DimCombine, DimShooting, DimComposite:
		return Dimension(s), nil
	}
	return "", fmt.Errorf("unknown similarity dimension %q", s)
}

// SourceFor maps a dimension to the measurement source feeding it.
func SourceFor(d Dimension) frame.Source {
	switch d {
	case DimAnthro:
		return frame.SourceAnthro
	case DimCombine:
		return frame.SourceAgility
	case DimShooting:
		return frame.SourceShooting
	}
	return ""
}

// Alpha bounds for the exponential decay calibration.
const (
	minAlpha = 0.001
	maxAlpha = 10
)

// nearZeroVariance is the floor below which a metric's variance is treated as
// unit variance, so flat columns cannot blow up the normalized distance.
const nearZeroVariance = 1e-9

// Matrix is a players x metrics block of z-scores. NaN marks a missing value.
type Matrix struct {
	Players []int
	Metrics []string
	Data    [][]float64 // row-major, len(Players) x len(Metrics)
}

// Config tunes the pairwise computation.
type Config struct {
	OverlapThreshold float64
	Weights          map[Dimension]float64
	MaxNeighbors     int // 0 = unlimited
}

// Row is one directional similarity record ready for persistence.
type Row struct {
	Dimension    Dimension
	PlayerID     int
	CompPlayerID int
	Similarity   float64
	Distance     float64
	Overlap      float64
	Rank         int
}

type pair struct{ a, b int } // player ids, a < b by source order

type pairScore struct {
	distance float64
	overlap  float64
}

// ComputeAll runs the pairwise computation for every dimension with a matrix
// plus the composite, returning ranked directional rows. Weights that do not
// sum to a positive value are a configuration error.
func ComputeAll(mats map[Dimension]*Matrix, cfg Config) ([]Row, error) {
	weightSum := 0.0
	for _, d := range Dimensions {
		weightSum += cfg.Weights[d]
	}
	if weightSum <= 0 {
		return nil, fmt.Errorf("similarity weights must sum to a positive value")
	}

	perDim := make(map[Dimension]map[pair]pairScore, len(Dimensions))
	pairOrder := make(map[Dimension][]pair, len(Dimensions))
	for _, d := range Dimensions {
		m, ok := mats[d]
		if !ok || m == nil || len(m.Players) < 2 {
			continue
		}
		// Shooting percentages share a scale already; only the other
		// dimensions are variance-normalized.
		scores, order := pairwise(m, cfg.OverlapThreshold, d != DimShooting)
		perDim[d] = scores
		pairOrder[d] = order
	}

	var rows []Row
	for _, d := range Dimensions {
		scores := perDim[d]
		if len(scores) == 0 {
			continue
		}
		rows = append(rows, scoreAndRank(d, scores, pairOrder[d], cfg.MaxNeighbors)...)
	}

	compScores, compOrder := composite(perDim, pairOrder, cfg.Weights, weightSum)
	rows = append(rows, scoreAndRank(DimComposite, compScores, compOrder, cfg.MaxNeighbors)...)

	return rows, nil
}

// pairwise computes distances for every unordered pair of distinct players
// with enough overlapping metrics. Distance is root-mean-square of per-metric
// differences, optionally normalized by population variance per metric.
func pairwise(m *Matrix, overlapThreshold float64, normalizeVariance bool) (map[pair]pairScore, []pair) {
	nMetrics := len(m.Metrics)
	if nMetrics == 0 {
		return nil, nil
	}

	variances := make([]float64, nMetrics)
	for j := range variances {
		variances[j] = 1
		if normalizeVariance {
			if v := columnVariance(m, j); v > nearZeroVariance {
				variances[j] = v
			}
		}
	}

	scores := make(map[pair]pairScore)
	var order []pair
	for i := 0; i < len(m.Players); i++ {
		for k := i + 1; k < len(m.Players); k++ {
			var sum float64
			overlap := 0
			for j := 0; j < nMetrics; j++ {
				a, b := m.Data[i][j], m.Data[k][j]
				if math.IsNaN(a) || math.IsNaN(b) {
					continue
				}
				d := a - b
				sum += d * d / variances[j]
				overlap++
			}
			frac := float64(overlap) / float64(nMetrics)
			if frac < overlapThreshold || overlap == 0 {
				continue
			}
			p := pair{m.Players[i], m.Players[k]}
			scores[p] = pairScore{
				distance: math.Sqrt(sum / float64(overlap)),
				overlap:  frac,
			}
			order = append(order, p)
		}
	}
	return scores, order
}

// columnVariance is the population variance of one metric column, ignoring
// missing values.
func columnVariance(m *Matrix, j int) float64 {
	var sum float64
	n := 0
	for i := range m.Players {
		if v := m.Data[i][j]; !math.IsNaN(v) {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	mean := sum / float64(n)
	var ss float64
	for i := range m.Players {
		if v := m.Data[i][j]; !math.IsNaN(v) {
			d := v - mean
			ss += d * d
		}
	}
	return ss / float64(n)
}

// composite blends per-dimension distances with normalized weights, counting
// only the dimensions where a distance exists for the pair.
func composite(perDim map[Dimension]map[pair]pairScore, pairOrder map[Dimension][]pair, weights map[Dimension]float64, weightSum float64) (map[pair]pairScore, []pair) {
	scores := make(map[pair]pairScore)
	var order []pair
	for _, d := range Dimensions {
		for _, p := range pairOrder[d] {
			if _, seen := scores[p]; seen {
				continue
			}
			var weighted, wSum, overlapMax float64
			for _, dd := range Dimensions {
				ps, ok := perDim[dd][p]
				if !ok {
					continue
				}
				w := weights[dd] / weightSum
				weighted += w * ps.distance
				wSum += w
				if ps.overlap > overlapMax {
					overlapMax = ps.overlap
				}
			}
			if wSum == 0 {
				continue
			}
			scores[p] = pairScore{distance: weighted / wSum, overlap: overlapMax}
			order = append(order, p)
		}
	}
	return scores, order
}

// CalibrateAlpha derives the exponential decay scale from the median of a
// distance set, bounded to [0.001, 10]. An empty set or zero median yields 0,
// which suppresses all similarities.
func CalibrateAlpha(distances []float64) float64 {
	if len(distances) == 0 {
		return 0
	}
	med := median(distances)
	if med <= 0 {
		return 0
	}
	alpha := math.Ln2 / med
	return math.Min(maxAlpha, math.Max(minAlpha, alpha))
}

func median(xs []float64) float64 {
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// scoreAndRank calibrates one dimension's distance set, scores both
// directions of every pair, and ranks neighbors per anchor by similarity
// descending. Ties keep source order; an optional cap truncates after
// ranking.
func scoreAndRank(d Dimension, scores map[pair]pairScore, order []pair, maxNeighbors int) []Row {
	distances := make([]float64, 0, len(order))
	for _, p := range order {
		distances = append(distances, scores[p].distance)
	}
	alpha := CalibrateAlpha(distances)
	if alpha == 0 {
		return nil
	}

	byAnchor := make(map[int][]Row)
	var anchors []int
	add := func(anchor, comp int, ps pairScore) {
		sim := 100 * math.Exp(-alpha*ps.distance)
		sim = math.Min(100, math.Max(0, sim))
		if _, ok := byAnchor[anchor]; !ok {
			anchors = append(anchors, anchor)
		}
		byAnchor[anchor] = append(byAnchor[anchor], Row{
			Dimension:    d,
			PlayerID:     anchor,
			CompPlayerID: comp,
			Similarity:   sim,
			Distance:     ps.distance,
			Overlap:      ps.overlap,
		})
	}
	for _, p := range order {
		ps := scores[p]
		add(p.a, p.b, ps)
		add(p.b, p.a, ps)
	}

	var out []Row
	for _, anchor := range anchors {
		neighbors := byAnchor[anchor]
		sort.SliceStable(neighbors, func(i, j int) bool {
			return neighbors[i].Similarity > neighbors[j].Similarity
		})
		if maxNeighbors > 0 && len(neighbors) > maxNeighbors {
			neighbors = neighbors[:maxNeighbors]
		}
		for i := range neighbors {
			neighbors[i].Rank = i + 1
			out = append(out, neighbors[i])
		}
	}
	return out
}
