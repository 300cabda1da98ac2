package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// DefaultMaxRows caps how many data rows ParseCSV reads when the caller
// passes maxRows <= 0.
const DefaultMaxRows = 100000

// LoadCSV reads a CSV file from disk into a Dataset.
func LoadCSV(path string, maxRows int) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	return ParseCSV(f, maxRows)
}

// ParseCSV reads CSV content with a header row into a Dataset. A column whose
// every non-empty cell parses as a number becomes numeric (float64 cells);
// everything else stays string. Empty cells become nil (missing).
func ParseCSV(r io.Reader, maxRows int) (*Dataset, error) {
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("csv is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	cols := make([]string, len(header))
	for i, h := range header {
		cols[i] = strings.TrimSpace(h)
	}

	var raw [][]string
	for len(raw) < maxRows {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", len(raw)+2, err)
		}
		raw = append(raw, rec)
	}

	numeric := make([]bool, len(cols))
	for j := range cols {
		numeric[j] = columnIsNumeric(raw, j)
	}

	rows := make([][]any, len(raw))
	for i, rec := range raw {
		row := make([]any, len(cols))
		for j := range cols {
			cell := strings.TrimSpace(rec[j])
			switch {
			case cell == "":
				row[j] = nil
			case numeric[j]:
				v, _ := strconv.ParseFloat(cell, 64)
				row[j] = v
			default:
				row[j] = cell
			}
		}
		rows[i] = row
	}

	return New(cols, rows)
}

func columnIsNumeric(raw [][]string, col int) bool {
	sawValue := false
	for _, rec := range raw {
		cell := strings.TrimSpace(rec[col])
		if cell == "" {
			continue
		}
		sawValue = true
		if _, err := strconv.ParseFloat(cell, 64); err != nil {
			return false
		}
	}
	return sawValue
}
