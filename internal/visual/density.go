package visual

import (
	"regexp"

	"github.com/procureiq/deepresearch/internal/model"
)

// Density grades how many raw numeric tokens a section's prose carries,
// which decides whether chart extraction is worth attempting.
type Density string

const (
	DensityRich   Density = "rich"   // >= 3 numeric tokens
	DensitySparse Density = "sparse" // 1-2
	DensityNone   Density = "none"   // 0
)

var (
	citationMarkers = regexp.MustCompile(`\[[BW]?\d+\]`)
	numericToken    = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?%?`)
)

// NumericDensity counts numeric tokens in prose, ignoring citation markers.
func NumericDensity(content string) Density {
	stripped := citationMarkers.ReplaceAllString(content, "")
	n := len(numericToken.FindAllString(stripped, -1))
	switch {
	case n >= 3:
		return DensityRich
	case n >= 1:
		return DensitySparse
	default:
		return DensityNone
	}
}

// FilterByDensity trims the slot list to what the prose can plausibly fill:
// numberless prose supports only tables and metrics; sparse prose cannot
// feed line or bar charts (unless that would drop everything).
func FilterByDensity(slots []model.VisualizationSlot, density Density) []model.VisualizationSlot {
	switch density {
	case DensityRich:
		return slots
	case DensitySparse:
		var kept []model.VisualizationSlot
		for _, s := range slots {
			if s.Type != model.VisualLine && s.Type != model.VisualBar {
				kept = append(kept, s)
			}
		}
		if len(kept) == 0 {
			return slots
		}
		return kept
	default: // none
		var kept []model.VisualizationSlot
		for _, s := range slots {
			if s.Type == model.VisualTable || s.Type == model.VisualMetric {
				kept = append(kept, s)
			}
		}
		return kept
	}
}
