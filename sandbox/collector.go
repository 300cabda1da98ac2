package sandbox

import (
	"fmt"
	"sort"

	"github.com/kirollos2001/Data-mind/dataset"
)

// DefaultMaxCollectDepth bounds the recursive artifact walk. Analysis results
// do not self-reference in practice, but the guard keeps a pathological
// structure from recursing without limit.
const DefaultMaxCollectDepth = 32

// collector accumulates charts and tables discovered in the post-execution
// bindings. Discovery order follows binding enumeration order, then container
// iteration order, and is stable for identical inputs.
type collector struct {
	original *dataset.Dataset
	maxDepth int
	charts   []*Chart
	tables   []*dataset.Dataset
}

// Collect walks the given values recursively and classifies them into charts
// and derived tables. A dataset whose row count, column count and column-name
// sequence match the original is treated as the unmodified input and excluded.
// The check is structural on purpose; cell contents are not compared.
func Collect(values []any, original *dataset.Dataset, maxDepth int) (charts []*Chart, tables []*dataset.Dataset) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxCollectDepth
	}
	c := &collector{original: original, maxDepth: maxDepth}
	for _, v := range values {
		c.walk(v, 0)
	}
	return c.charts, c.tables
}

func (c *collector) walk(v any, depth int) {
	if depth > c.maxDepth {
		return
	}
	switch x := v.(type) {
	case *Chart:
		c.charts = append(c.charts, x)
	case *dataset.Dataset:
		if !x.SameShape(c.original) {
			c.tables = append(c.tables, x)
		}
	case []any:
		// JS arrays and sets both export as slices, in element order.
		for _, e := range x {
			c.walk(e, depth+1)
		}
	case map[string]any:
		// Mapping: recurse into values only, never keys. Go map iteration
		// order is randomized, so keys are sorted to keep the result order
		// reproducible.
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			c.walk(x[k], depth+1)
		}
	case map[any]any:
		// ES6 Maps with non-string keys export this shape.
		keys := make([]any, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool {
			return fmt.Sprint(keys[i]) < fmt.Sprint(keys[j])
		})
		for _, k := range keys {
			c.walk(x[k], depth+1)
		}
	}
	// Scalars, functions and anything else are ignored.
}
