package dataset

import (
	"fmt"
	"sort"
	"strings"
)

// Column-kind labels used in summaries.
const (
	KindNumeric     = "numeric"
	KindCategorical = "categorical"
)

// Summaries list every distinct value for categorical columns below this
// cardinality; above it only the most frequent values appear.
const uniqueListingLimit = 50

// defaultTopValues is how many frequent values a high-cardinality categorical
// column reports.
const defaultTopValues = 3

// ValueCount pairs a categorical value with its frequency.
type ValueCount struct {
	Value string `yaml:"value" json:"value"`
	Count int    `yaml:"count" json:"count"`
}

// NumericStats holds the statistics reported for a numeric column.
type NumericStats struct {
	Mean   float64 `yaml:"mean" json:"mean"`
	Median float64 `yaml:"median" json:"median"`
	Std    float64 `yaml:"std" json:"std"`
	Min    float64 `yaml:"min" json:"min"`
	Max    float64 `yaml:"max" json:"max"`
}

// ColumnSummary describes one column of a dataset.
type ColumnSummary struct {
	Name         string        `yaml:"name" json:"name"`
	Kind         string        `yaml:"kind" json:"kind"`
	MissingCount int           `yaml:"missing_count" json:"missing_count"`
	MissingPct   float64       `yaml:"missing_pct" json:"missing_pct"`
	Stats        *NumericStats `yaml:"statistics,omitempty" json:"statistics,omitempty"`
	UniqueCount  int           `yaml:"unique_count,omitempty" json:"unique_count,omitempty"`
	UniqueValues []string      `yaml:"unique_values,omitempty" json:"unique_values,omitempty"`
	TopValues    []ValueCount  `yaml:"top_values,omitempty" json:"top_values,omitempty"`
}

// Summary is the structured dataset description handed to the model alongside
// the user's question. Text is the compact prompt rendering of the same facts.
type Summary struct {
	Rows         int             `yaml:"rows" json:"rows"`
	Cols         int             `yaml:"columns" json:"columns"`
	TotalMissing int             `yaml:"total_missing" json:"total_missing"`
	MissingPct   float64         `yaml:"missing_pct" json:"missing_pct"`
	Columns      []ColumnSummary `yaml:"column_summaries" json:"column_summaries"`
	Text         string          `yaml:"-" json:"-"`
}

// Summarize builds per-column statistics and a prompt-ready text rendering.
func Summarize(d *Dataset) *Summary {
	s := &Summary{Rows: d.NumRows(), Cols: d.NumCols()}
	totalMissing := 0
	for idx, name := range d.cols {
		cs := summarizeColumn(d, idx, name)
		totalMissing += cs.MissingCount
		s.Columns = append(s.Columns, cs)
	}
	s.TotalMissing = totalMissing
	if cells := d.NumRows() * d.NumCols(); cells > 0 {
		s.MissingPct = round2(float64(totalMissing) / float64(cells) * 100)
	}
	s.Text = s.buildText()
	return s
}

func summarizeColumn(d *Dataset, idx int, name string) ColumnSummary {
	cs := ColumnSummary{Name: name}
	total := len(d.rows)
	for _, r := range d.rows {
		if r[idx] == nil {
			cs.MissingCount++
		}
	}
	if total > 0 {
		cs.MissingPct = round2(float64(cs.MissingCount) / float64(total) * 100)
	}

	vals := d.numericColumn(idx)
	nonMissing := total - cs.MissingCount
	if len(vals) > 0 && len(vals) == nonMissing {
		cs.Kind = KindNumeric
		mean := sumFloats(vals) / float64(len(vals))
		cs.Stats = &NumericStats{
			Mean:   round2(mean),
			Median: round2(median(vals)),
			Std:    round2(stddev(vals, mean)),
			Min:    minFloats(vals),
			Max:    maxFloats(vals),
		}
		return cs
	}

	cs.Kind = KindCategorical
	counts := make(map[string]int)
	for _, r := range d.rows {
		if r[idx] == nil {
			continue
		}
		counts[cellString(r[idx])]++
	}
	cs.UniqueCount = len(counts)
	if cs.UniqueCount < uniqueListingLimit {
		for v := range counts {
			cs.UniqueValues = append(cs.UniqueValues, v)
		}
		sort.Strings(cs.UniqueValues)
	} else {
		keys := make([]string, 0, len(counts))
		for v := range counts {
			keys = append(keys, v)
		}
		sort.Slice(keys, func(i, j int) bool {
			if counts[keys[i]] != counts[keys[j]] {
				return counts[keys[i]] > counts[keys[j]]
			}
			return keys[i] < keys[j]
		})
		if len(keys) > defaultTopValues {
			keys = keys[:defaultTopValues]
		}
		for _, v := range keys {
			cs.TopValues = append(cs.TopValues, ValueCount{Value: v, Count: counts[v]})
		}
	}
	return cs
}

// buildText composes the compact one-line-per-column summary sent to the model.
func (s *Summary) buildText() string {
	var lines []string
	lines = append(lines, fmt.Sprintf("Dataset with %d rows and %d columns.", s.Rows, s.Cols))
	lines = append(lines, fmt.Sprintf("Total missing cells: %d (%.2f%%).", s.TotalMissing, s.MissingPct))
	for _, c := range s.Columns {
		parts := []string{
			fmt.Sprintf("%s (%s)", c.Name, c.Kind),
			fmt.Sprintf("missing=%d", c.MissingCount),
			fmt.Sprintf("%.2f%% missing", c.MissingPct),
		}
		if c.Stats != nil {
			parts = append(parts, fmt.Sprintf(
				"stats[mean=%.2f, median=%.2f, std=%.2f, min=%.2f, max=%.2f]",
				c.Stats.Mean, c.Stats.Median, c.Stats.Std, c.Stats.Min, c.Stats.Max))
		}
		if c.UniqueValues != nil {
			parts = append(parts, fmt.Sprintf("unique_count=%d", c.UniqueCount))
			parts = append(parts, "all_values["+strings.Join(c.UniqueValues, ", ")+"]")
		} else if len(c.TopValues) > 0 {
			parts = append(parts, fmt.Sprintf("unique_count=%d", c.UniqueCount))
			tops := make([]string, len(c.TopValues))
			for i, tv := range c.TopValues {
				tops[i] = fmt.Sprintf("%s (%d)", tv.Value, tv.Count)
			}
			parts = append(parts, "top_values["+strings.Join(tops, ", ")+"]")
		}
		lines = append(lines, " - "+strings.Join(parts, "; "))
	}
	return strings.Join(lines, "\n")
}

func median(vals []float64) float64 {
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func round2(v float64) float64 {
	return float64(int64(v*100+copysignHalf(v))) / 100
}

func copysignHalf(v float64) float64 {
	if v < 0 {
		return -0.5
	}
	return 0.5
}
