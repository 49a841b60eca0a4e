package synth

import (
	"sync"

	"github.com/procureiq/deepresearch/internal/model"
)

// RegenBudget is the job-global cap on regeneration calls. Without a hard
// cap, poorly-cited sections would fan out unboundedly and wreck tail
// latency.
type RegenBudget struct {
	mu        sync.Mutex
	remaining int
	used      int
}

// NewRegenBudget creates a budget with n total regenerations.
func NewRegenBudget(n int) *RegenBudget {
	return &RegenBudget{remaining: n}
}

// TryTake consumes one regeneration if any remain.
func (b *RegenBudget) TryTake() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.remaining <= 0 {
		return false
	}
	b.remaining--
	b.used++
	return true
}

// Used returns how many regenerations were consumed.
func (b *RegenBudget) Used() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.used
}

// needsRegeneration implements the quality gate: a section regenerates iff
// its citation count is below half the template minimum, or it is the
// executive summary with no citations at all. min-citations 0 never
// triggers.
func needsRegeneration(tpl model.SectionTemplate, citationCount int) bool {
	if tpl.ID == model.SectionExecutiveSummary && citationCount == 0 {
		return true
	}
	if tpl.MinCitations <= 0 {
		return false
	}
	return float64(citationCount) < float64(tpl.MinCitations)*0.5
}
