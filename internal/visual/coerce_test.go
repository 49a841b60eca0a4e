package visual

import (
	"testing"

	"github.com/procureiq/deepresearch/internal/model"
)

func TestCoerceNumber(t *testing.T) {
	cases := []struct {
		in   any
		want float64
		ok   bool
	}{
		{12.5, 12.5, true},
		{"$1,200", 1200, true},
		{"12.3%", 12.3, true},
		{" €450 ", 450, true},
		{"42", 42, true},
		{"n/a", 0, false},
		{nil, 0, false},
		{true, 0, false},
	}
	for _, tc := range cases {
		got, ok := coerceNumber(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Errorf("coerceNumber(%v) = %v, %v; want %v, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestCoerceBar_PadsRaggedSeries(t *testing.T) {
	data := map[string]any{
		"categories": []any{"A", "B", "C"},
		"series": []any{
			map[string]any{"name": "X", "values": []any{1.0, 2.0}},
		},
	}
	bar := CoerceBar(data)
	if bar == nil {
		t.Fatal("Expected coercion to succeed")
	}
	if len(bar.Series[0].Values) != 3 {
		t.Fatalf("Expected 3 values after padding, got %d", len(bar.Series[0].Values))
	}
	if bar.Series[0].Values[2] != 0 {
		t.Errorf("Expected padded value 0, got %v", bar.Series[0].Values[2])
	}
	v := model.Visual{Type: model.VisualBar, Bar: bar}
	if !Validate(v) {
		t.Error("Padded bar chart should pass validation")
	}
}

func TestCoerceBar_TruncatesLongSeries(t *testing.T) {
	data := map[string]any{
		"categories": []any{"A", "B"},
		"values":     []any{1.0, 2.0, 3.0},
	}
	bar := CoerceBar(data)
	if bar == nil {
		t.Fatal("Expected coercion to succeed")
	}
	if len(bar.Series[0].Values) != 2 {
		t.Errorf("Expected truncation to 2 values, got %d", len(bar.Series[0].Values))
	}
	if bar.Series[0].Name != "Series 1" {
		t.Errorf("Expected default series name, got %q", bar.Series[0].Name)
	}
}

func TestCoerceLine_AcceptsBarePointList(t *testing.T) {
	data := map[string]any{
		"points": []any{
			map[string]any{"x": "2023", "y": 10.0},
			map[string]any{"label": "2024", "value": "12.5%"},
		},
	}
	line := CoerceLine(data)
	if line == nil {
		t.Fatal("Expected coercion to succeed")
	}
	if len(line.Series) != 1 || len(line.Series[0].Points) != 2 {
		t.Fatalf("Expected 1 series with 2 points, got %+v", line)
	}
	if line.Series[0].Points[1].X != "2024" || line.Series[0].Points[1].Y != 12.5 {
		t.Errorf("Aliased point not coerced: %+v", line.Series[0].Points[1])
	}
}

func TestCoercePie_DropsUnusableSlices(t *testing.T) {
	data := map[string]any{
		"slices": []any{
			map[string]any{"label": "Asia", "value": 60.0},
			map[string]any{"label": "", "value": 40.0},
			map[string]any{"name": "Europe", "y": "40%"},
		},
	}
	pie := CoercePie(data)
	if pie == nil {
		t.Fatal("Expected coercion to succeed")
	}
	if len(pie.Slices) != 2 {
		t.Fatalf("Expected 2 slices, got %d", len(pie.Slices))
	}
	if pie.Slices[1].Label != "Europe" || pie.Slices[1].Value != 40 {
		t.Errorf("Aliased slice not coerced: %+v", pie.Slices[1])
	}
}

func TestCoerceTable_ObjectRows(t *testing.T) {
	data := map[string]any{
		"headers": []any{"Supplier", "Market Share"},
		"rows": []any{
			map[string]any{"Supplier": "Acme", "market_share": "22%"},
			[]any{"Globex", 18.0, "extra"},
		},
	}
	table := CoerceTable(data)
	if table == nil {
		t.Fatal("Expected coercion to succeed")
	}
	if table.Rows[0][1] != "22%" {
		t.Errorf("Header alias lookup failed, got %q", table.Rows[0][1])
	}
	if len(table.Rows[1]) != 2 || table.Rows[1][1] != "18" {
		t.Errorf("Array row not normalised: %v", table.Rows[1])
	}
}

func TestCoerceMetrics_SingleTopLevelMetric(t *testing.T) {
	m := CoerceMetrics(map[string]any{"label": "Market Size", "value": 4.2})
	if m == nil || len(m.Metrics) != 1 {
		t.Fatalf("Expected 1 metric, got %+v", m)
	}
	if m.Metrics[0].Value != "4.2" {
		t.Errorf("Expected stringified value, got %q", m.Metrics[0].Value)
	}
}

func TestCoerceVisual_TypeMismatch(t *testing.T) {
	slot := model.VisualizationSlot{SlotID: "s1", Type: model.VisualPie, Title: "Share"}
	if v := CoerceVisual(slot, "", map[string]any{"categories": []any{"A"}}); v != nil {
		t.Errorf("Expected nil for payload that cannot fit the slot type, got %+v", v)
	}
	v := CoerceVisual(slot, "", map[string]any{
		"slices": []any{map[string]any{"label": "A", "value": 1.0}},
	})
	if v == nil {
		t.Fatal("Expected coercion to succeed")
	}
	if v.Title != "Share" {
		t.Errorf("Expected slot title fallback, got %q", v.Title)
	}
}

func TestMeetsMinDataPoints(t *testing.T) {
	v := model.Visual{Type: model.VisualMetric, Metrics: &model.MetricGroupData{
		Metrics: []model.Metric{{Label: "a", Value: "1"}, {Label: "b", Value: "2"}},
	}}
	if !MeetsMinDataPoints(v, model.VisualizationSlot{MinDataPoints: 2}) {
		t.Error("2 metrics should satisfy a floor of 2")
	}
	if MeetsMinDataPoints(v, model.VisualizationSlot{MinDataPoints: 3}) {
		t.Error("2 metrics should not satisfy a floor of 3")
	}
	if !MeetsMinDataPoints(v, model.VisualizationSlot{}) {
		t.Error("Unset floor should default to 1")
	}
}

func TestValidate_RejectsRaggedTable(t *testing.T) {
	v := model.Visual{Type: model.VisualTable, Table: &model.TableData{
		Headers: []string{"a", "b"},
		Rows:    [][]string{{"1", "2"}, {"3"}},
	}}
	if Validate(v) {
		t.Error("Ragged table should fail validation")
	}
}
