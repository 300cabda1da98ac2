// Package dataset provides the in-memory tabular data model used by the
// analysis engine.
//
// A Dataset holds named, row-aligned columns loaded from CSV input. Cells are
// either float64, string, or nil (missing). The exported methods double as the
// dataframe surface exposed to sandboxed analysis code, so they favor small,
// composable operations (head, where, groupBy, describe) over completeness.
package dataset

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Dataset is an immutable-by-convention tabular structure. Operations return
// new datasets; nothing mutates the receiver. Sandboxed code receives a
// private Clone, so even a misbehaving script cannot touch the caller's copy.
type Dataset struct {
	cols []string
	rows [][]any
}

// New builds a dataset from column names and row-major cells.
func New(cols []string, rows [][]any) (*Dataset, error) {
	if len(cols) == 0 {
		return nil, fmt.Errorf("dataset requires at least one column")
	}
	seen := make(map[string]bool, len(cols))
	for _, c := range cols {
		if seen[c] {
			return nil, fmt.Errorf("duplicate column name: %q", c)
		}
		seen[c] = true
	}
	for i, r := range rows {
		if len(r) != len(cols) {
			return nil, fmt.Errorf("row %d has %d cells, want %d", i, len(r), len(cols))
		}
	}
	return &Dataset{cols: append([]string(nil), cols...), rows: rows}, nil
}

// Columns returns a copy of the column names in order.
func (d *Dataset) Columns() []string {
	return append([]string(nil), d.cols...)
}

// NumRows returns the row count.
func (d *Dataset) NumRows() int { return len(d.rows) }

// NumCols returns the column count.
func (d *Dataset) NumCols() int { return len(d.cols) }

// Clone returns a deep copy. The cells themselves are scalars, so copying the
// row slices is sufficient.
func (d *Dataset) Clone() *Dataset {
	rows := make([][]any, len(d.rows))
	for i, r := range d.rows {
		rows[i] = append([]any(nil), r...)
	}
	return &Dataset{cols: append([]string(nil), d.cols...), rows: rows}
}

// Equal reports structural and value equality with another dataset.
func (d *Dataset) Equal(o *Dataset) bool {
	if o == nil || len(d.cols) != len(o.cols) || len(d.rows) != len(o.rows) {
		return false
	}
	for i := range d.cols {
		if d.cols[i] != o.cols[i] {
			return false
		}
	}
	for i := range d.rows {
		for j := range d.rows[i] {
			if d.rows[i][j] != o.rows[i][j] {
				return false
			}
		}
	}
	return true
}

// SameShape reports whether another dataset has the same row count, column
// count, and column-name sequence. Cell values are deliberately not compared;
// this is the structural check the artifact collector uses to recognize the
// unmodified input.
func (d *Dataset) SameShape(o *Dataset) bool {
	if o == nil || len(d.rows) != len(o.rows) || len(d.cols) != len(o.cols) {
		return false
	}
	for i := range d.cols {
		if d.cols[i] != o.cols[i] {
			return false
		}
	}
	return true
}

func (d *Dataset) colIndex(name string) (int, error) {
	for i, c := range d.cols {
		if c == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown column: %q", name)
}

// Column returns the values of a single column.
func (d *Dataset) Column(name string) ([]any, error) {
	idx, err := d.colIndex(name)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(d.rows))
	for i, r := range d.rows {
		out[i] = r[idx]
	}
	return out, nil
}

// Head returns the first n rows (fewer if the dataset is shorter).
func (d *Dataset) Head(n int) *Dataset {
	if n < 0 {
		n = 0
	}
	if n > len(d.rows) {
		n = len(d.rows)
	}
	return &Dataset{cols: append([]string(nil), d.cols...), rows: cloneRows(d.rows[:n])}
}

// Tail returns the last n rows.
func (d *Dataset) Tail(n int) *Dataset {
	if n < 0 {
		n = 0
	}
	if n > len(d.rows) {
		n = len(d.rows)
	}
	return &Dataset{cols: append([]string(nil), d.cols...), rows: cloneRows(d.rows[len(d.rows)-n:])}
}

// Select projects the dataset onto the named columns, in the order given.
func (d *Dataset) Select(names ...string) (*Dataset, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("select requires at least one column")
	}
	idxs := make([]int, len(names))
	for i, n := range names {
		idx, err := d.colIndex(n)
		if err != nil {
			return nil, err
		}
		idxs[i] = idx
	}
	rows := make([][]any, len(d.rows))
	for i, r := range d.rows {
		row := make([]any, len(idxs))
		for j, idx := range idxs {
			row[j] = r[idx]
		}
		rows[i] = row
	}
	return &Dataset{cols: append([]string(nil), names...), rows: rows}, nil
}

// Where filters rows by comparing a column against a value. Supported
// operators: ==, !=, >, >=, <, <=, contains. Numeric comparison applies when
// both sides are numbers; otherwise values compare as strings.
func (d *Dataset) Where(col, op string, value any) (*Dataset, error) {
	idx, err := d.colIndex(col)
	if err != nil {
		return nil, err
	}
	switch op {
	case "==", "!=", ">", ">=", "<", "<=", "contains":
	default:
		return nil, fmt.Errorf("unsupported operator: %q", op)
	}
	var rows [][]any
	for _, r := range d.rows {
		ok, err := compare(r[idx], op, value)
		if err != nil {
			return nil, err
		}
		if ok {
			rows = append(rows, append([]any(nil), r...))
		}
	}
	return &Dataset{cols: append([]string(nil), d.cols...), rows: rows}, nil
}

// SortBy returns a copy sorted by the given column. The sort is stable;
// missing cells order last.
func (d *Dataset) SortBy(col string, descending bool) (*Dataset, error) {
	idx, err := d.colIndex(col)
	if err != nil {
		return nil, err
	}
	rows := cloneRows(d.rows)
	sort.SliceStable(rows, func(i, j int) bool {
		less := cellLess(rows[i][idx], rows[j][idx])
		if descending {
			return cellLess(rows[j][idx], rows[i][idx])
		}
		return less
	})
	return &Dataset{cols: append([]string(nil), d.cols...), rows: rows}, nil
}

// GroupBy aggregates a value column per distinct key. Supported aggregations:
// count, sum, mean, min, max. For count the value column may be empty.
// Result rows are ordered by first appearance of each key.
func (d *Dataset) GroupBy(key, agg, value string) (*Dataset, error) {
	keyIdx, err := d.colIndex(key)
	if err != nil {
		return nil, err
	}
	valIdx := -1
	if agg != "count" {
		valIdx, err = d.colIndex(value)
		if err != nil {
			return nil, err
		}
	}
	switch agg {
	case "count", "sum", "mean", "min", "max":
	default:
		return nil, fmt.Errorf("unsupported aggregation: %q", agg)
	}

	type bucket struct {
		count int
		sum   float64
		min   float64
		max   float64
	}
	order := make([]string, 0)
	buckets := make(map[string]*bucket)
	for _, r := range d.rows {
		k := cellString(r[keyIdx])
		b, ok := buckets[k]
		if !ok {
			b = &bucket{min: math.Inf(1), max: math.Inf(-1)}
			buckets[k] = b
			order = append(order, k)
		}
		if valIdx >= 0 {
			v, ok := cellFloat(r[valIdx])
			if !ok {
				continue // missing or non-numeric cells do not contribute
			}
			b.count++
			b.sum += v
			b.min = math.Min(b.min, v)
			b.max = math.Max(b.max, v)
		} else {
			b.count++
		}
	}

	outCol := agg
	if valIdx >= 0 {
		outCol = value + "_" + agg
	}
	rows := make([][]any, 0, len(order))
	for _, k := range order {
		b := buckets[k]
		var out any
		switch agg {
		case "count":
			out = float64(b.count)
		case "sum":
			out = b.sum
		case "mean":
			if b.count == 0 {
				out = nil
			} else {
				out = b.sum / float64(b.count)
			}
		case "min":
			if b.count == 0 {
				out = nil
			} else {
				out = b.min
			}
		case "max":
			if b.count == 0 {
				out = nil
			} else {
				out = b.max
			}
		}
		rows = append(rows, []any{k, out})
	}
	return &Dataset{cols: []string{key, outCol}, rows: rows}, nil
}

// ValueCounts returns a two-column dataset of distinct values and their
// frequencies, most frequent first. Ties break by value for stable output.
func (d *Dataset) ValueCounts(col string) (*Dataset, error) {
	idx, err := d.colIndex(col)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, r := range d.rows {
		if r[idx] == nil {
			continue
		}
		counts[cellString(r[idx])]++
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	rows := make([][]any, len(keys))
	for i, k := range keys {
		rows[i] = []any{k, float64(counts[k])}
	}
	return &Dataset{cols: []string{col, "count"}, rows: rows}, nil
}

// Unique returns the distinct non-missing values of a column in first-seen order.
func (d *Dataset) Unique(col string) ([]any, error) {
	idx, err := d.colIndex(col)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var out []any
	for _, r := range d.rows {
		if r[idx] == nil {
			continue
		}
		k := cellString(r[idx])
		if !seen[k] {
			seen[k] = true
			out = append(out, r[idx])
		}
	}
	return out, nil
}

// Describe returns a statistics table over the numeric columns, with one row
// per column: count, mean, std, min, max. Always a different shape than the
// source dataset, so it survives the collector's original-input exclusion.
func (d *Dataset) Describe() *Dataset {
	rows := make([][]any, 0)
	for i, c := range d.cols {
		vals := d.numericColumn(i)
		if len(vals) == 0 {
			continue
		}
		mean := sumFloats(vals) / float64(len(vals))
		rows = append(rows, []any{
			c,
			float64(len(vals)),
			mean,
			stddev(vals, mean),
			minFloats(vals),
			maxFloats(vals),
		})
	}
	return &Dataset{cols: []string{"column", "count", "mean", "std", "min", "max"}, rows: rows}
}

// Count returns the number of non-missing cells in a column.
func (d *Dataset) Count(col string) (int, error) {
	idx, err := d.colIndex(col)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, r := range d.rows {
		if r[idx] != nil {
			n++
		}
	}
	return n, nil
}

// Sum returns the sum of the numeric cells in a column.
func (d *Dataset) Sum(col string) (float64, error) {
	vals, err := d.numericValues(col)
	if err != nil {
		return 0, err
	}
	return sumFloats(vals), nil
}

// Mean returns the mean of the numeric cells in a column.
func (d *Dataset) Mean(col string) (float64, error) {
	vals, err := d.numericValues(col)
	if err != nil {
		return 0, err
	}
	if len(vals) == 0 {
		return 0, fmt.Errorf("column %q has no numeric values", col)
	}
	return sumFloats(vals) / float64(len(vals)), nil
}

// Min returns the minimum numeric cell in a column.
func (d *Dataset) Min(col string) (float64, error) {
	vals, err := d.numericValues(col)
	if err != nil {
		return 0, err
	}
	if len(vals) == 0 {
		return 0, fmt.Errorf("column %q has no numeric values", col)
	}
	return minFloats(vals), nil
}

// Max returns the maximum numeric cell in a column.
func (d *Dataset) Max(col string) (float64, error) {
	vals, err := d.numericValues(col)
	if err != nil {
		return 0, err
	}
	if len(vals) == 0 {
		return 0, fmt.Errorf("column %q has no numeric values", col)
	}
	return maxFloats(vals), nil
}

// Records returns the rows as column-keyed maps, for JSON rendering.
func (d *Dataset) Records() []map[string]any {
	out := make([]map[string]any, len(d.rows))
	for i, r := range d.rows {
		rec := make(map[string]any, len(d.cols))
		for j, c := range d.cols {
			rec[c] = r[j]
		}
		out[i] = rec
	}
	return out
}

// String renders the dataset as a compact fixed-width text table. Used by the
// sandbox's print capability and for verification round-trip output.
func (d *Dataset) String() string {
	widths := make([]int, len(d.cols))
	for i, c := range d.cols {
		widths[i] = len(c)
	}
	cells := make([][]string, len(d.rows))
	for i, r := range d.rows {
		cells[i] = make([]string, len(r))
		for j, v := range r {
			s := cellString(v)
			cells[i][j] = s
			if len(s) > widths[j] {
				widths[j] = len(s)
			}
		}
	}
	var b strings.Builder
	for j, c := range d.cols {
		if j > 0 {
			b.WriteString("  ")
		}
		fmt.Fprintf(&b, "%-*s", widths[j], c)
	}
	for _, row := range cells {
		b.WriteByte('\n')
		for j, s := range row {
			if j > 0 {
				b.WriteString("  ")
			}
			fmt.Fprintf(&b, "%-*s", widths[j], s)
		}
	}
	return b.String()
}

func (d *Dataset) numericValues(col string) ([]float64, error) {
	idx, err := d.colIndex(col)
	if err != nil {
		return nil, err
	}
	return d.numericColumn(idx), nil
}

func (d *Dataset) numericColumn(idx int) []float64 {
	var vals []float64
	for _, r := range d.rows {
		if v, ok := cellFloat(r[idx]); ok {
			vals = append(vals, v)
		}
	}
	return vals
}

func cloneRows(rows [][]any) [][]any {
	out := make([][]any, len(rows))
	for i, r := range rows {
		out[i] = append([]any(nil), r...)
	}
	return out
}

func cellFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	default:
		return 0, false
	}
}

func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return "NA"
	case string:
		return x
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1e15 {
			return fmt.Sprintf("%d", int64(x))
		}
		return fmt.Sprintf("%g", x)
	default:
		return fmt.Sprintf("%v", x)
	}
}

func compare(cell any, op string, value any) (bool, error) {
	if op == "contains" {
		return strings.Contains(cellString(cell), cellString(value)), nil
	}
	if cell == nil {
		return op == "!=" && value != nil, nil
	}
	cf, cok := cellFloat(cell)
	vf, vok := cellFloat(value)
	if cok && vok {
		switch op {
		case "==":
			return cf == vf, nil
		case "!=":
			return cf != vf, nil
		case ">":
			return cf > vf, nil
		case ">=":
			return cf >= vf, nil
		case "<":
			return cf < vf, nil
		case "<=":
			return cf <= vf, nil
		}
	}
	cs, vs := cellString(cell), cellString(value)
	switch op {
	case "==":
		return cs == vs, nil
	case "!=":
		return cs != vs, nil
	case ">":
		return cs > vs, nil
	case ">=":
		return cs >= vs, nil
	case "<":
		return cs < vs, nil
	case "<=":
		return cs <= vs, nil
	}
	return false, fmt.Errorf("unsupported operator: %q", op)
}

func cellLess(a, b any) bool {
	if a == nil {
		return false
	}
	if b == nil {
		return true
	}
	af, aok := cellFloat(a)
	bf, bok := cellFloat(b)
	if aok && bok {
		return af < bf
	}
	return cellString(a) < cellString(b)
}

func sumFloats(vals []float64) float64 {
	s := 0.0
	for _, v := range vals {
		s += v
	}
	return s
}

func minFloats(vals []float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		m = math.Min(m, v)
	}
	return m
}

func maxFloats(vals []float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		m = math.Max(m, v)
	}
	return m
}

func stddev(vals []float64, mean float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	ss := 0.0
	for _, v := range vals {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(vals)-1))
}
