package visual

import (
	"regexp"
	"strings"

	"github.com/procureiq/deepresearch/internal/model"
)

var tokenSplit = regexp.MustCompile(`[^a-z0-9]+`)

// tokenize lowercases text and keeps tokens longer than two characters.
func tokenize(text string) []string {
	var out []string
	for _, tok := range tokenSplit.Split(strings.ToLower(text), -1) {
		if len(tok) > 2 {
			out = append(out, tok)
		}
	}
	return out
}

// slotEligible reports whether a slot's tags overlap the query or section
// title tokens. Untagged slots are always eligible. Overlap is
// case-insensitive substring in either direction.
func slotEligible(slot model.VisualizationSlot, contextTokens []string) bool {
	if len(slot.Tags) == 0 {
		return true
	}
	for _, tag := range slot.Tags {
		for _, tagTok := range tokenize(tag) {
			for _, ctxTok := range contextTokens {
				if strings.Contains(ctxTok, tagTok) || strings.Contains(tagTok, ctxTok) {
					return true
				}
			}
		}
	}
	return false
}

// FilterByTags drops tagged slots whose tags have no overlap with the query
// or section title. If that would drop every tagged slot, all slots are
// restored: the template already matches the study type.
func FilterByTags(slots []model.VisualizationSlot, queryText, sectionTitle string) []model.VisualizationSlot {
	if len(slots) == 0 {
		return slots
	}
	contextTokens := append(tokenize(queryText), tokenize(sectionTitle)...)

	var kept []model.VisualizationSlot
	dropped := 0
	for _, slot := range slots {
		if slotEligible(slot, contextTokens) {
			kept = append(kept, slot)
		} else {
			dropped++
		}
	}
	if dropped > 0 && !hasTagged(kept) && hasTagged(slots) {
		return slots
	}
	return kept
}

func hasTagged(slots []model.VisualizationSlot) bool {
	for _, s := range slots {
		if len(s.Tags) > 0 {
			return true
		}
	}
	return false
}
