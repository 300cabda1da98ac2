package sandbox

import (
	"fmt"
	"math"

	"github.com/kirollos2001/Data-mind/dataset"
)

// Chart kinds producible from sandboxed code.
const (
	ChartBar       = "bar"
	ChartLine      = "line"
	ChartScatter   = "scatter"
	ChartPie       = "pie"
	ChartHistogram = "histogram"
)

// Chart is a chart specification built by the plot capability. The sandbox
// never renders anything; the presentation layer turns a Chart into pixels.
type Chart struct {
	Kind   string    `json:"kind"`
	Title  string    `json:"title,omitempty"`
	XLabel string    `json:"x_label,omitempty"`
	YLabel string    `json:"y_label,omitempty"`
	X      []any     `json:"x,omitempty"`
	Y      []float64 `json:"y,omitempty"`
	Bins   int       `json:"bins,omitempty"`
}

func (c *Chart) String() string {
	if c.Title != "" {
		return fmt.Sprintf("[%s chart: %s]", c.Kind, c.Title)
	}
	return fmt.Sprintf("[%s chart]", c.Kind)
}

// plotAPI is the plotting namespace bound into the sandbox as "plot". Method
// names surface lowercased through the field name mapper, so scripts call
// plot.bar(df, {x: "city", y: "sales", title: "Sales by city"}).
type plotAPI struct{}

func (plotAPI) Bar(ds *dataset.Dataset, opts map[string]any) (*Chart, error) {
	return xyChart(ChartBar, ds, opts)
}

func (plotAPI) Line(ds *dataset.Dataset, opts map[string]any) (*Chart, error) {
	return xyChart(ChartLine, ds, opts)
}

func (plotAPI) Scatter(ds *dataset.Dataset, opts map[string]any) (*Chart, error) {
	return xyChart(ChartScatter, ds, opts)
}

func (plotAPI) Pie(ds *dataset.Dataset, opts map[string]any) (*Chart, error) {
	labels := optString(opts, "labels")
	if labels == "" {
		labels = optString(opts, "x")
	}
	values := optString(opts, "values")
	if values == "" {
		values = optString(opts, "y")
	}
	if labels == "" || values == "" {
		return nil, fmt.Errorf("plot.pie requires labels and values columns")
	}
	x, err := ds.Column(labels)
	if err != nil {
		return nil, err
	}
	y, err := numericColumn(ds, values)
	if err != nil {
		return nil, err
	}
	return &Chart{
		Kind:   ChartPie,
		Title:  optString(opts, "title"),
		XLabel: labels,
		YLabel: values,
		X:      x,
		Y:      y,
	}, nil
}

func (plotAPI) Histogram(ds *dataset.Dataset, opts map[string]any) (*Chart, error) {
	col := optString(opts, "x")
	if col == "" {
		return nil, fmt.Errorf("plot.histogram requires an x column")
	}
	y, err := numericColumn(ds, col)
	if err != nil {
		return nil, err
	}
	bins := optInt(opts, "bins")
	if bins <= 0 {
		bins = 10
	}
	return &Chart{
		Kind:   ChartHistogram,
		Title:  optString(opts, "title"),
		XLabel: col,
		Y:      y,
		Bins:   bins,
	}, nil
}

func xyChart(kind string, ds *dataset.Dataset, opts map[string]any) (*Chart, error) {
	xcol := optString(opts, "x")
	ycol := optString(opts, "y")
	if xcol == "" || ycol == "" {
		return nil, fmt.Errorf("plot.%s requires x and y columns", kind)
	}
	x, err := ds.Column(xcol)
	if err != nil {
		return nil, err
	}
	y, err := numericColumn(ds, ycol)
	if err != nil {
		return nil, err
	}
	return &Chart{
		Kind:   kind,
		Title:  optString(opts, "title"),
		XLabel: xcol,
		YLabel: ycol,
		X:      x,
		Y:      y,
	}, nil
}

// numericColumn extracts a column as float64 values, keeping row alignment.
// Missing or non-numeric cells become NaN rather than shifting the series.
func numericColumn(ds *dataset.Dataset, name string) ([]float64, error) {
	cells, err := ds.Column(name)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(cells))
	for i, c := range cells {
		switch v := c.(type) {
		case float64:
			out[i] = v
		case int64:
			out[i] = float64(v)
		case int:
			out[i] = float64(v)
		default:
			out[i] = math.NaN()
		}
	}
	return out, nil
}

func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	if s, ok := opts[key].(string); ok {
		return s
	}
	return ""
}

func optInt(opts map[string]any, key string) int {
	if opts == nil {
		return 0
	}
	switch v := opts[key].(type) {
	case int64:
		return int(v)
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}
