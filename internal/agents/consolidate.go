package agents

import (
	"fmt"

	"github.com/procureiq/deepresearch/internal/model"
)

// AssignCitations assigns citation ids to the pooled sources: B-class for
// internal/beroe sources, W-class for web, numbered densely per class in
// first-sighting order. Ids are assigned exactly once per job and never
// renumbered.
func AssignCitations(pool *SourcePool) []model.Citation {
	sources := pool.Sources()
	citations := make([]model.Citation, 0, len(sources))
	bNext, wNext := 1, 1
	for _, src := range sources {
		var id string
		if src.Internal() {
			id = fmt.Sprintf("B%d", bNext)
			bNext++
		} else {
			id = fmt.Sprintf("W%d", wNext)
			wNext++
		}
		citations = append(citations, model.Citation{ID: id, Source: src})
	}
	return citations
}
