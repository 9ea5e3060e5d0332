package seed

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// table is one parsed CSV file with header-addressed columns.
type table struct {
	header map[string]int
	rows   [][]string
}

// readTable parses a CSV file. The first record is the header; column names
// are lowercased so exports with mixed-case headers still match.
func readTable(path string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: empty file", path)
	}

	header := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		header[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return &table{header: header, rows: records[1:]}, nil
}

// str returns a trimmed cell value, or "" when the column is absent.
func (t *table) str(row []string, col string) string {
	i, ok := t.header[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// intVal parses a required integer cell.
func (t *table) intVal(row []string, col string) (int, error) {
	s := t.str(row, col)
	if s == "" {
		return 0, fmt.Errorf("missing %s", col)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("bad %s %q", col, s)
	}
	return n, nil
}

// floatPtr parses an optional numeric cell. Empty cells become NULL.
func (t *table) floatPtr(row []string, col string) (*float64, error) {
	s := t.str(row, col)
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("bad %s %q", col, s)
	}
	return &f, nil
}

// boolVal parses an optional boolean cell, defaulting to false.
func (t *table) boolVal(row []string, col string) (bool, error) {
	s := t.str(row, col)
	if s == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("bad %s %q", col, s)
	}
	return b, nil
}
