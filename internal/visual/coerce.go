package visual

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/procureiq/deepresearch/internal/model"
)

// Coercion normalises the common ways models deviate from the requested
// payload shape before strict validation: numeric strings with currency or
// percent decoration, alternate key names, and ragged series lengths.

// coerceNumber parses numbers and decorated numeric strings ("$1,200",
// "12.3%").
func coerceNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(n)
		s = strings.TrimLeft(s, "$€£¥")
		s = strings.TrimRight(s, "%")
		s = strings.ReplaceAll(s, ",", "")
		s = strings.TrimSpace(s)
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	}
	return 0, false
}

// coerceString renders any scalar as a string.
func coerceString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", s)
	}
}

// pick returns the first present key from the map.
func pick(m map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			return v, true
		}
	}
	return nil, false
}

func asSlice(v any) ([]any, bool) {
	s, ok := v.([]any)
	return s, ok
}

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

// CoerceLine normalises line-chart payloads. Accepts either a series list or
// a bare top-level point list, and label/value aliases for x/y.
func CoerceLine(data map[string]any) *model.LineChartData {
	out := &model.LineChartData{}
	if raw, ok := pick(data, "series"); ok {
		list, ok := asSlice(raw)
		if !ok {
			return nil
		}
		for _, item := range list {
			m, ok := asMap(item)
			if !ok {
				continue
			}
			series := model.LineSeries{Name: coerceString(firstOf(m, "name", "label"))}
			if pts, ok := pick(m, "points", "data", "values"); ok {
				series.Points = coercePoints(pts)
			}
			out.Series = append(out.Series, series)
		}
	} else if raw, ok := pick(data, "points", "data"); ok {
		out.Series = append(out.Series, model.LineSeries{
			Name:   "Series 1",
			Points: coercePoints(raw),
		})
	}
	if len(out.Series) == 0 {
		return nil
	}
	return out
}

func firstOf(m map[string]any, keys ...string) any {
	v, _ := pick(m, keys...)
	return v
}

func coercePoints(raw any) []model.LinePoint {
	list, ok := asSlice(raw)
	if !ok {
		return nil
	}
	var pts []model.LinePoint
	for _, item := range list {
		m, ok := asMap(item)
		if !ok {
			continue
		}
		x := coerceString(firstOf(m, "x", "label", "name", "period", "date", "year"))
		y, yok := coerceNumber(firstOf(m, "y", "value"))
		if x == "" || !yok {
			continue
		}
		pts = append(pts, model.LinePoint{X: x, Y: y})
	}
	return pts
}

// CoerceBar normalises bar-chart payloads, padding or truncating each
// series' values to match the category count.
func CoerceBar(data map[string]any) *model.BarChartData {
	out := &model.BarChartData{}
	rawCats, ok := pick(data, "categories", "labels")
	if !ok {
		return nil
	}
	cats, ok := asSlice(rawCats)
	if !ok {
		return nil
	}
	for _, c := range cats {
		out.Categories = append(out.Categories, coerceString(c))
	}

	rawSeries, ok := pick(data, "series")
	if !ok {
		// A flat values list becomes a single unnamed series.
		if rawVals, ok := pick(data, "values", "data"); ok {
			rawSeries = []any{map[string]any{"name": "Series 1", "values": rawVals}}
		} else {
			return nil
		}
	}
	list, ok := asSlice(rawSeries)
	if !ok {
		return nil
	}
	for _, item := range list {
		m, ok := asMap(item)
		if !ok {
			continue
		}
		series := model.BarSeries{Name: coerceString(firstOf(m, "name", "label"))}
		if rawVals, ok := pick(m, "values", "data"); ok {
			if vals, ok := asSlice(rawVals); ok {
				for _, v := range vals {
					if f, ok := coerceNumber(v); ok {
						series.Values = append(series.Values, f)
					}
				}
			}
		}
		// Pad or truncate to the category count.
		for len(series.Values) < len(out.Categories) {
			series.Values = append(series.Values, 0)
		}
		if len(series.Values) > len(out.Categories) {
			series.Values = series.Values[:len(out.Categories)]
		}
		out.Series = append(out.Series, series)
	}
	if len(out.Series) == 0 {
		return nil
	}
	return out
}

// CoercePie normalises pie payloads, accepting slices/segments/data lists
// and label/name aliases.
func CoercePie(data map[string]any) *model.PieChartData {
	raw, ok := pick(data, "slices", "segments", "data")
	if !ok {
		return nil
	}
	list, ok := asSlice(raw)
	if !ok {
		return nil
	}
	out := &model.PieChartData{}
	for _, item := range list {
		m, ok := asMap(item)
		if !ok {
			continue
		}
		label := coerceString(firstOf(m, "label", "name", "x"))
		value, vok := coerceNumber(firstOf(m, "value", "y"))
		if label == "" || !vok {
			continue
		}
		out.Slices = append(out.Slices, model.PieSlice{Label: label, Value: value})
	}
	if len(out.Slices) == 0 {
		return nil
	}
	return out
}

// CoerceTable normalises table payloads. Object rows are flattened in header
// order; every cell is stringified; rows are padded or truncated to the
// header count.
func CoerceTable(data map[string]any) *model.TableData {
	rawHeaders, ok := pick(data, "headers", "columns")
	if !ok {
		return nil
	}
	headers, ok := asSlice(rawHeaders)
	if !ok {
		return nil
	}
	out := &model.TableData{}
	for _, h := range headers {
		out.Headers = append(out.Headers, coerceString(h))
	}

	rawRows, ok := pick(data, "rows", "data")
	if !ok {
		return nil
	}
	rows, ok := asSlice(rawRows)
	if !ok {
		return nil
	}
	for _, rawRow := range rows {
		var cells []string
		switch row := rawRow.(type) {
		case []any:
			for _, cell := range row {
				cells = append(cells, coerceString(cell))
			}
		case map[string]any:
			for _, header := range out.Headers {
				cells = append(cells, coerceString(lookupHeader(row, header)))
			}
		default:
			continue
		}
		for len(cells) < len(out.Headers) {
			cells = append(cells, "")
		}
		if len(cells) > len(out.Headers) {
			cells = cells[:len(out.Headers)]
		}
		out.Rows = append(out.Rows, cells)
	}
	if len(out.Rows) == 0 {
		return nil
	}
	return out
}

// lookupHeader finds a row value by header name, tolerating case and
// underscore differences.
func lookupHeader(row map[string]any, header string) any {
	if v, ok := row[header]; ok {
		return v
	}
	want := strings.ToLower(strings.ReplaceAll(header, " ", "_"))
	for k, v := range row {
		got := strings.ToLower(strings.ReplaceAll(k, " ", "_"))
		if got == want {
			return v
		}
	}
	return nil
}

// CoerceMetrics normalises metric payloads, stringifying numeric values.
func CoerceMetrics(data map[string]any) *model.MetricGroupData {
	raw, ok := pick(data, "metrics", "data")
	if !ok {
		// Single metric at top level.
		if _, hasLabel := pick(data, "label", "name"); hasLabel {
			raw = []any{data}
		} else {
			return nil
		}
	}
	list, ok := asSlice(raw)
	if !ok {
		return nil
	}
	out := &model.MetricGroupData{}
	for _, item := range list {
		m, ok := asMap(item)
		if !ok {
			continue
		}
		metric := model.Metric{
			Label: coerceString(firstOf(m, "label", "name")),
			Value: coerceString(firstOf(m, "value")),
			Delta: coerceString(firstOf(m, "delta", "change")),
		}
		if metric.Label == "" || metric.Value == "" {
			continue
		}
		out.Metrics = append(out.Metrics, metric)
	}
	if len(out.Metrics) == 0 {
		return nil
	}
	return out
}

// CoerceVisual builds a typed visual from a raw slot payload, or nil when
// the payload cannot be coerced to the slot's type.
func CoerceVisual(slot model.VisualizationSlot, title string, data map[string]any) *model.Visual {
	v := &model.Visual{
		SlotID:    slot.SlotID,
		Type:      slot.Type,
		Title:     title,
		Placement: slot.Placement,
		Trend:     slot.Trend,
	}
	if v.Title == "" {
		v.Title = slot.Title
	}
	switch slot.Type {
	case model.VisualLine:
		v.Line = CoerceLine(data)
		if v.Line == nil {
			return nil
		}
	case model.VisualBar:
		v.Bar = CoerceBar(data)
		if v.Bar == nil {
			return nil
		}
	case model.VisualPie:
		v.Pie = CoercePie(data)
		if v.Pie == nil {
			return nil
		}
	case model.VisualTable:
		v.Table = CoerceTable(data)
		if v.Table == nil {
			return nil
		}
	case model.VisualMetric:
		v.Metrics = CoerceMetrics(data)
		if v.Metrics == nil {
			return nil
		}
	default:
		return nil
	}
	return v
}
