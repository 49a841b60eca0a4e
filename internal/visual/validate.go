package visual

import (
	"math"

	"github.com/procureiq/deepresearch/internal/model"
)

// Validate applies the type-specific shape rules. A visual failing any rule
// is rejected outright; coercion has already had its chance.
func Validate(v model.Visual) bool {
	switch v.Type {
	case model.VisualLine:
		return validLine(v.Line)
	case model.VisualBar:
		return validBar(v.Bar)
	case model.VisualPie:
		return validPie(v.Pie)
	case model.VisualTable:
		return validTable(v.Table)
	case model.VisualMetric:
		return validMetrics(v.Metrics)
	}
	return false
}

// MeetsMinDataPoints checks the slot's data-point floor.
func MeetsMinDataPoints(v model.Visual, slot model.VisualizationSlot) bool {
	minPoints := slot.MinDataPoints
	if minPoints < 1 {
		minPoints = 1
	}
	return v.DataPoints() >= minPoints
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func validLine(d *model.LineChartData) bool {
	if d == nil || len(d.Series) == 0 {
		return false
	}
	for _, s := range d.Series {
		if s.Name == "" || len(s.Points) == 0 {
			return false
		}
		for _, p := range s.Points {
			if p.X == "" || !finite(p.Y) {
				return false
			}
		}
	}
	return true
}

func validBar(d *model.BarChartData) bool {
	if d == nil || len(d.Categories) == 0 || len(d.Series) == 0 {
		return false
	}
	for _, s := range d.Series {
		if len(s.Values) != len(d.Categories) {
			return false
		}
		for _, v := range s.Values {
			if !finite(v) {
				return false
			}
		}
	}
	return true
}

func validPie(d *model.PieChartData) bool {
	if d == nil || len(d.Slices) == 0 {
		return false
	}
	for _, s := range d.Slices {
		if s.Label == "" || !finite(s.Value) || s.Value < 0 {
			return false
		}
	}
	return true
}

func validTable(d *model.TableData) bool {
	if d == nil || len(d.Headers) == 0 || len(d.Rows) == 0 {
		return false
	}
	for _, row := range d.Rows {
		if len(row) != len(d.Headers) {
			return false
		}
	}
	return true
}

func validMetrics(d *model.MetricGroupData) bool {
	if d == nil || len(d.Metrics) == 0 {
		return false
	}
	for _, m := range d.Metrics {
		if m.Label == "" || m.Value == "" {
			return false
		}
	}
	return true
}
