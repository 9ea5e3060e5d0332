// Package metrics declares the metric catalog and computes rank, percentile,
// and z-score for every player in a source frame against a cohort baseline.
package metrics

import (
	"github.com/hoopcombine/combine-data/internal/frame"
)

// Statistic kinds for display metadata.
const (
	StatMeasurement = "measurement"
	StatTime        = "time"
	StatReps        = "reps"
	StatPercentage  = "percentage"
)

// Spec is one declarative metric definition: which column of which source it
// reads and how the value is judged. The catalog is intentionally hard-coded;
// this is not a general statistics library.
type Spec struct {
	Key           string
	DisplayName   string
	Source        frame.Source
	Column        string
	Category      string
	Unit          string
	Statistic     string
	LowerIsBetter bool
}

var catalog = []Spec{
	// Anthropometrics
	{Key: "height_wo_shoes", DisplayName: "Height (No Shoes)", Source: frame.SourceAnthro, Column: "height_wo_shoes", Category: "length", Unit: "in", Statistic: StatMeasurement},
	{Key: "height_w_shoes", DisplayName: "Height (With Shoes)", Source: frame.SourceAnthro, Column: "height_w_shoes", Category: "length", Unit: "in", Statistic: StatMeasurement},
	{Key: "weight", DisplayName: "Weight", Source: frame.SourceAnthro, Column: "weight_lbs", Category: "body", Unit: "lbs", Statistic: StatMeasurement},
	{Key: "wingspan", DisplayName: "Wingspan", Source: frame.SourceAnthro, Column: "wingspan", Category: "length", Unit: "in", Statistic: StatMeasurement},
	{Key: "standing_reach", DisplayName: "Standing Reach", Source: frame.SourceAnthro, Column: "standing_reach", Category: "length", Unit: "in", Statistic: StatMeasurement},
	{Key: "body_fat_pct", DisplayName: "Body Fat", Source: frame.SourceAnthro, Column: "body_fat_pct", Category: "body", Unit: "%", Statistic: StatPercentage, LowerIsBetter: true},
	{Key: "hand_length", DisplayName: "Hand Length", Source: frame.SourceAnthro, Column: "hand_length", Category: "length", Unit: "in", Statistic: StatMeasurement},
	{Key: "hand_width", DisplayName: "Hand Width", Source: frame.SourceAnthro, Column: "hand_width", Category: "length", Unit: "in", Statistic: StatMeasurement},

	// Agility / athleticism
	{Key: "lane_agility", DisplayName: "Lane Agility Time", Source: frame.SourceAgility, Column: "lane_agility_time", Category: "speed", Unit: "sec", Statistic: StatTime, LowerIsBetter: true},
	{Key: "shuttle_run", DisplayName: "Shuttle Run", Source: frame.SourceAgility, Column: "shuttle_run", Category: "speed", Unit: "sec", Statistic: StatTime, LowerIsBetter: true},
	{Key: "three_quarter_sprint", DisplayName: "Three Quarter Sprint", Source: frame.SourceAgility, Column: "three_quarter_sprint", Category: "speed", Unit: "sec", Statistic: StatTime, LowerIsBetter: true},
	{Key: "standing_vertical", DisplayName: "Standing Vertical Leap", Source: frame.SourceAgility, Column: "standing_vertical", Category: "athleticism", Unit: "in", Statistic: StatMeasurement},
	{Key: "max_vertical", DisplayName: "Max Vertical Leap", Source: frame.SourceAgility, Column: "max_vertical", Category: "athleticism", Unit: "in", Statistic: StatMeasurement},
	{Key: "bench_press", DisplayName: "Bench Press", Source: frame.SourceAgility, Column: "bench_press_reps", Category: "strength", Unit: "reps", Statistic: StatReps},

	// Shooting drills (percentages derived from made/attempt pairs)
	{Key: "shooting_fifteen_break_left", DisplayName: "15ft Break Left", Source: frame.SourceShooting, Column: "fifteen_break_left_pct", Category: "shooting", Unit: "%", Statistic: StatPercentage},
	{Key: "shooting_fifteen_top_key", DisplayName: "15ft Top of Key", Source: frame.SourceShooting, Column: "fifteen_top_key_pct", Category: "shooting", Unit: "%", Statistic: StatPercentage},
	{Key: "shooting_fifteen_break_right", DisplayName: "15ft Break Right", Source: frame.SourceShooting, Column: "fifteen_break_right_pct", Category: "shooting", Unit: "%", Statistic: StatPercentage},
	{Key: "shooting_college_break_left", DisplayName: "College 3 Break Left", Source: frame.SourceShooting, Column: "college_break_left_pct", Category: "shooting", Unit: "%", Statistic: StatPercentage},
	{Key: "shooting_college_top_key", DisplayName: "College 3 Top of Key", Source: frame.SourceShooting, Column: "college_top_key_pct", Category: "shooting", Unit: "%", Statistic: StatPercentage},
	{Key: "shooting_college_break_right", DisplayName: "College 3 Break Right", Source: frame.SourceShooting, Column: "college_break_right_pct", Category: "shooting", Unit: "%", Statistic: StatPercentage},
}

// Catalog returns all declared metric specs, optionally filtered by source
// and category. Empty filters select everything.
func Catalog(sources []frame.Source, categories []string) []Spec {
	var out []Spec
	for _, s := range catalog {
		if len(sources) > 0 && !containsSource(sources, s.Source) {
			continue
		}
		if len(categories) > 0 && !containsString(categories, s.Category) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Lookup returns the spec for a metric key.
func Lookup(key string) (Spec, bool) {
	for _, s := range catalog {
		if s.Key == key {
			return s, true
		}
	}
	return Spec{}, false
}

func containsSource(ss []frame.Source, s frame.Source) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}

func containsString(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}
