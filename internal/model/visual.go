package model

import "encoding/json"

// Confidence grades how much trust to place in a visual's data.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Visual is the tagged union over the five visualization kinds. Exactly one
// of the data pointers is set, matching Type.
type Visual struct {
	SlotID     string         `json:"slot_id,omitempty"`
	Type       VisualType     `json:"type"`
	Title      string         `json:"title"`
	Footnote   string         `json:"footnote,omitempty"`
	Placement  Placement      `json:"placement,omitempty"`
	Trend      TrendSemantics `json:"trend,omitempty"`
	SourceIDs  []string       `json:"source_ids,omitempty"`
	Confidence Confidence     `json:"confidence"`

	Line    *LineChartData   `json:"line,omitempty"`
	Bar     *BarChartData    `json:"bar,omitempty"`
	Pie     *PieChartData    `json:"pie,omitempty"`
	Table   *TableData       `json:"table,omitempty"`
	Metrics *MetricGroupData `json:"metrics,omitempty"`
}

// LinePoint is one point on a line series.
type LinePoint struct {
	X string  `json:"x"`
	Y float64 `json:"y"`
}

// LineSeries is one named series of points.
type LineSeries struct {
	Name   string      `json:"name"`
	Points []LinePoint `json:"points"`
}

// LineChartData holds one or more line series.
type LineChartData struct {
	Series []LineSeries `json:"series"`
}

// BarSeries is one named series of bar values, index-aligned to categories.
type BarSeries struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

// BarChartData holds categories plus index-aligned series.
type BarChartData struct {
	Categories []string    `json:"categories"`
	Series     []BarSeries `json:"series"`
}

// PieSlice is one labelled slice.
type PieSlice struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// PieChartData holds the slices of a pie chart.
type PieChartData struct {
	Slices []PieSlice `json:"slices"`
}

// TableData holds a rectangular table; every row has len(Headers) cells.
type TableData struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// Metric is one labelled headline figure.
type Metric struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Delta string `json:"delta,omitempty"`
}

// MetricGroupData holds a group of headline metrics.
type MetricGroupData struct {
	Metrics []Metric `json:"metrics"`
}

// DataPoints counts the visual's data points for min-data-point checks.
func (v Visual) DataPoints() int {
	switch v.Type {
	case VisualLine:
		if v.Line == nil {
			return 0
		}
		n := 0
		for _, s := range v.Line.Series {
			n += len(s.Points)
		}
		return n
	case VisualBar:
		if v.Bar == nil {
			return 0
		}
		return len(v.Bar.Categories)
	case VisualPie:
		if v.Pie == nil {
			return 0
		}
		return len(v.Pie.Slices)
	case VisualTable:
		if v.Table == nil {
			return 0
		}
		return len(v.Table.Rows)
	case VisualMetric:
		if v.Metrics == nil {
			return 0
		}
		return len(v.Metrics.Metrics)
	}
	return 0
}

// DedupKey is the global de-duplication identity: (type, title, data).
func (v Visual) DedupKey() string {
	var data any
	switch v.Type {
	case VisualLine:
		data = v.Line
	case VisualBar:
		data = v.Bar
	case VisualPie:
		data = v.Pie
	case VisualTable:
		data = v.Table
	case VisualMetric:
		data = v.Metrics
	}
	raw, _ := json.Marshal(data)
	return string(v.Type) + "|" + v.Title + "|" + string(raw)
}
