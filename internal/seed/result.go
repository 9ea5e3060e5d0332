// Package seed loads combine measurement CSV exports into the source tables.
package seed

import "fmt"

// Result tracks counts and errors from a seeding operation.
type Result struct {
	PlayersUpserted      int
	StatusUpserted       int
	SeasonsUpserted      int
	MeasurementsUpserted int
	RowsSkipped          int
	Errors               []string
}

// Add merges another Result into this one.
func (r *Result) Add(other Result) {
	r.PlayersUpserted += other.PlayersUpserted
	r.StatusUpserted += other.StatusUpserted
	r.SeasonsUpserted += other.SeasonsUpserted
	r.MeasurementsUpserted += other.MeasurementsUpserted
	r.RowsSkipped += other.RowsSkipped
	r.Errors = append(r.Errors, other.Errors...)
}

// AddErrorf records a formatted error message.
func (r *Result) AddErrorf(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Summary returns a human-readable summary of the seed operation.
func (r *Result) Summary() string {
	return fmt.Sprintf(
		"players=%d status=%d seasons=%d measurements=%d skipped=%d errors=%d",
		r.PlayersUpserted, r.StatusUpserted, r.SeasonsUpserted,
		r.MeasurementsUpserted, r.RowsSkipped, len(r.Errors),
	)
}
