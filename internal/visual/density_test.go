package visual

import (
	"testing"

	"github.com/procureiq/deepresearch/internal/model"
)

func TestNumericDensity(t *testing.T) {
	cases := []struct {
		content string
		want    Density
	}{
		{"Prices rose 12% to $450 per ton across 3 regions.", DensityRich},
		{"Demand grew modestly, around 5%.", DensitySparse},
		{"Demand grew modestly this year.", DensityNone},
		{"", DensityNone},
	}
	for _, tc := range cases {
		if got := NumericDensity(tc.content); got != tc.want {
			t.Errorf("NumericDensity(%q) = %s, want %s", tc.content, got, tc.want)
		}
	}
}

func TestNumericDensity_IgnoresCitationMarkers(t *testing.T) {
	// Citation markers are not data; without them this prose has no numbers.
	if got := NumericDensity("Suppliers consolidated [B1] and margins held [W2]."); got != DensityNone {
		t.Errorf("Expected none, got %s", got)
	}
}

func densitySlots() []model.VisualizationSlot {
	return []model.VisualizationSlot{
		{SlotID: "l", Type: model.VisualLine},
		{SlotID: "b", Type: model.VisualBar},
		{SlotID: "t", Type: model.VisualTable},
		{SlotID: "m", Type: model.VisualMetric},
	}
}

func TestFilterByDensity(t *testing.T) {
	rich := FilterByDensity(densitySlots(), DensityRich)
	if len(rich) != 4 {
		t.Errorf("Rich prose should keep all slots, got %d", len(rich))
	}

	sparse := FilterByDensity(densitySlots(), DensitySparse)
	if len(sparse) != 2 {
		t.Fatalf("Sparse prose should drop line/bar, got %d slots", len(sparse))
	}
	for _, s := range sparse {
		if s.Type == model.VisualLine || s.Type == model.VisualBar {
			t.Errorf("Sparse prose kept %s slot", s.Type)
		}
	}

	none := FilterByDensity(densitySlots(), DensityNone)
	if len(none) != 2 {
		t.Errorf("Numberless prose should keep only table/metric, got %d", len(none))
	}
}

func TestFilterByDensity_SparseRestoresWhenEmpty(t *testing.T) {
	slots := []model.VisualizationSlot{
		{SlotID: "l", Type: model.VisualLine},
		{SlotID: "b", Type: model.VisualBar},
	}
	if got := FilterByDensity(slots, DensitySparse); len(got) != 2 {
		t.Errorf("Expected all slots restored when filtering empties the list, got %d", len(got))
	}
}

func TestFilterByDensity_NoneCanEmpty(t *testing.T) {
	slots := []model.VisualizationSlot{{SlotID: "l", Type: model.VisualLine}}
	if got := FilterByDensity(slots, DensityNone); len(got) != 0 {
		t.Errorf("Numberless prose with only chart slots should skip extraction, got %d slots", len(got))
	}
}
