package metrics

import (
	"math"
	"sort"

	"github.com/hoopcombine/combine-data/internal/frame"
)

// DefaultMinSample is the minimum baseline size required to compute a metric.
const DefaultMinSample = 3

// SkipReason codes a data-insufficiency condition. Skips are diagnostics, not
// errors: they never abort a run.
type SkipReason string

const (
	SkipNone           SkipReason = ""
	SkipNoData         SkipReason = "no_data"
	SkipNoNumeric      SkipReason = "no_numeric_values"
	SkipEmptyBaseline  SkipReason = "empty_baseline"
	SkipBelowMinSample SkipReason = "below_min_sample"
)

// PlayerValue is one computed row: a player's raw value scored against the
// baseline population.
type PlayerValue struct {
	PlayerID   int
	Raw        float64
	Rank       int
	Percentile float64
	ZScore     *float64 // nil when baseline deviation is zero or undefined
	Population int
}

// Result carries the outcome of computing one metric: either values plus
// sample statistics, or a skip reason.
type Result struct {
	Spec         Spec
	Values       []PlayerValue
	Skip         SkipReason
	SampleSize   int
	BaselineSize int
	Mean         float64
	StdDev       float64
}

// Skipped reports whether the metric produced no rows.
func (r Result) Skipped() bool { return r.Skip != SkipNone }

type observation struct {
	playerID    int
	seasonStart int
	seasonCode  string
	value       float64
	baseline    bool
}

// Compute scores every qualifying player in the frame for one metric spec.
// The baseline subset alone defines percentiles, ranks, and z-scores; rows
// outside the baseline are still scored against it.
func Compute(f *frame.Frame, spec Spec, minSample int) Result {
	res := Result{Spec: spec}
	if minSample <= 0 {
		minSample = DefaultMinSample
	}

	obs := extract(f, spec.Column)
	if len(obs) == 0 {
		res.Skip = SkipNoData
		return res
	}

	obs = dropNonFinite(obs)
	if len(obs) == 0 {
		res.Skip = SkipNoNumeric
		return res
	}

	obs = dedupeLatest(obs)
	res.SampleSize = len(obs)

	baseline := make([]float64, 0, len(obs))
	for _, o := range obs {
		if o.baseline {
			baseline = append(baseline, o.value)
		}
	}
	res.BaselineSize = len(baseline)
	if len(baseline) == 0 {
		res.Skip = SkipEmptyBaseline
		return res
	}
	if len(baseline) < minSample {
		res.Skip = SkipBelowMinSample
		return res
	}

	sort.Float64s(baseline)
	mean, std := meanStd(baseline)
	res.Mean, res.StdDev = mean, std

	res.Values = make([]PlayerValue, 0, len(obs))
	for _, o := range obs {
		rank, pct := rankPercentile(baseline, o.value, spec.LowerIsBetter)
		pv := PlayerValue{
			PlayerID:   o.playerID,
			Raw:        o.value,
			Rank:       rank,
			Percentile: pct,
			Population: len(baseline),
		}
		if std > 0 {
			z := (o.value - mean) / std
			if spec.LowerIsBetter {
				z = -z
			}
			pv.ZScore = &z
		}
		res.Values = append(res.Values, pv)
	}
	return res
}

// extract pulls the metric column out of the frame.
func extract(f *frame.Frame, column string) []observation {
	var obs []observation
	for _, row := range f.Rows {
		v, ok := row.Values[column]
		if !ok {
			continue
		}
		obs = append(obs, observation{
			playerID:    row.PlayerID,
			seasonStart: row.SeasonStart,
			seasonCode:  row.SeasonCode,
			value:       v,
			baseline:    row.Baseline,
		})
	}
	return obs
}

func dropNonFinite(obs []observation) []observation {
	out := obs[:0]
	for _, o := range obs {
		if !math.IsNaN(o.value) && !math.IsInf(o.value, 0) {
			out = append(out, o)
		}
	}
	return out
}

// dedupeLatest keeps one observation per player: the most recent season,
// ties broken by season code ordering. All-time cohorts must see a single
// row per player.
func dedupeLatest(obs []observation) []observation {
	best := make(map[int]observation, len(obs))
	order := make([]int, 0, len(obs))
	for _, o := range obs {
		prev, seen := best[o.playerID]
		if !seen {
			best[o.playerID] = o
			order = append(order, o.playerID)
			continue
		}
		if o.seasonStart > prev.seasonStart ||
			(o.seasonStart == prev.seasonStart && o.seasonCode > prev.seasonCode) {
			best[o.playerID] = o
		}
	}
	out := make([]observation, 0, len(best))
	for _, id := range order {
		out = append(out, best[id])
	}
	return out
}

// rankPercentile scores a value against the ascending-sorted baseline using
// binary search. The value need not be a member of the baseline.
//
// Lower-is-better percentiles carry a +100/n unit so the single best time
// lands exactly on 100; downstream consumers rely on that boundary value, so
// it is preserved as-is rather than folded into a cleaner formula.
func rankPercentile(baseline []float64, v float64, lowerIsBetter bool) (rank int, pct float64) {
	n := len(baseline)
	nf := float64(n)

	// countBelow: left-biased search, values strictly less than v.
	// countAtOrBelow: right-biased search, values less than or equal to v.
	countBelow := sort.SearchFloat64s(baseline, v)
	countAtOrBelow := sort.Search(n, func(i int) bool { return baseline[i] > v })

	// The lookup treats v as a member of the array: a value that falls
	// between two baseline entries counts itself once.
	effective := countAtOrBelow
	if countBelow == countAtOrBelow {
		effective = countBelow + 1
	}

	if lowerIsBetter {
		pct = (1-float64(countAtOrBelow)/nf)*100 + 100/nf
		rank = countBelow + 1
	} else {
		pct = float64(effective) / nf * 100
		// A value above every baseline entry still ranks first.
		rank = n - effective + 1
		if rank < 1 {
			rank = 1
		}
	}
	return rank, clip(pct, 0, 100)
}

// meanStd returns the mean and population standard deviation (divisor N).
func meanStd(xs []float64) (mean, std float64) {
	n := float64(len(xs))
	if n == 0 {
		return 0, 0
	}
	for _, x := range xs {
		mean += x
	}
	mean /= n
	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / n)
}

func clip(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
