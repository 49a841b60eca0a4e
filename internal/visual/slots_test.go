package visual

import (
	"testing"

	"github.com/procureiq/deepresearch/internal/model"
)

func TestFilterByTags(t *testing.T) {
	slots := []model.VisualizationSlot{
		{SlotID: "untagged", Type: model.VisualTable},
		{SlotID: "pricing", Type: model.VisualLine, Tags: []string{"pricing", "cost"}},
		{SlotID: "suppliers", Type: model.VisualBar, Tags: []string{"supplier landscape"}},
	}

	kept := FilterByTags(slots, "steel pricing outlook", "Cost Drivers")
	if len(kept) != 2 {
		t.Fatalf("Expected 2 slots, got %d", len(kept))
	}
	if kept[0].SlotID != "untagged" || kept[1].SlotID != "pricing" {
		t.Errorf("Wrong slots kept: %s, %s", kept[0].SlotID, kept[1].SlotID)
	}
}

func TestFilterByTags_UntaggedAlwaysEligible(t *testing.T) {
	slots := []model.VisualizationSlot{{SlotID: "plain", Type: model.VisualMetric}}
	kept := FilterByTags(slots, "anything at all", "")
	if len(kept) != 1 {
		t.Errorf("Untagged slot should survive any query, got %d slots", len(kept))
	}
}

func TestFilterByTags_RestoresWhenAllTaggedDrop(t *testing.T) {
	slots := []model.VisualizationSlot{
		{SlotID: "a", Type: model.VisualLine, Tags: []string{"pricing"}},
		{SlotID: "b", Type: model.VisualBar, Tags: []string{"capacity"}},
	}
	kept := FilterByTags(slots, "organic coffee sustainability", "Outlook")
	if len(kept) != 2 {
		t.Errorf("Expected all slots restored when every tagged slot drops, got %d", len(kept))
	}
}

func TestFilterByTags_SubstringOverlap(t *testing.T) {
	slots := []model.VisualizationSlot{
		{SlotID: "s", Type: model.VisualPie, Tags: []string{"region"}},
	}
	// "regional" contains the tag token "region".
	if kept := FilterByTags(slots, "regional demand split", ""); len(kept) != 1 {
		t.Errorf("Substring overlap in either direction should match, got %d slots", len(kept))
	}
}

func TestDedupeVisuals_FirstSectionWins(t *testing.T) {
	metric := &model.MetricGroupData{Metrics: []model.Metric{{Label: "CAGR", Value: "6%"}}}
	dup := model.Visual{Type: model.VisualMetric, Title: "Growth", Metrics: metric}
	other := model.Visual{Type: model.VisualMetric, Title: "Growth", Metrics: &model.MetricGroupData{
		Metrics: []model.Metric{{Label: "CAGR", Value: "8%"}},
	}}

	sections := []model.SectionResult{
		{ID: "s1", Visuals: []model.Visual{dup}},
		{ID: "s2", Children: []model.SectionResult{
			{ID: "s2a", Visuals: []model.Visual{dup, other}},
		}},
	}
	dedupeVisuals(sections)

	if len(sections[0].Visuals) != 1 {
		t.Errorf("First occurrence should be kept, got %d visuals", len(sections[0].Visuals))
	}
	child := sections[1].Children[0]
	if len(child.Visuals) != 1 {
		t.Fatalf("Duplicate should be removed from later section, got %d visuals", len(child.Visuals))
	}
	if child.Visuals[0].Metrics.Metrics[0].Value != "8%" {
		t.Errorf("Distinct visual with different data should survive, got %+v", child.Visuals[0])
	}
}
