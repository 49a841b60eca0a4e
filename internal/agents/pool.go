package agents

import (
	"sync"

	"github.com/procureiq/deepresearch/internal/model"
)

// SourcePool is the job-scoped pool of de-duplicated sources. Entries are
// write-once: a later sighting of the same key neither overwrites the source
// nor advances any counter. Sighting order is preserved for citation
// assignment.
type SourcePool struct {
	mu      sync.Mutex
	indexOf map[string]int
	ordered []model.Source
}

// NewSourcePool creates an empty pool.
func NewSourcePool() *SourcePool {
	return &SourcePool{indexOf: make(map[string]int)}
}

// Merge adds sources to the pool in order, returning how many were new.
func (p *SourcePool) Merge(sources []model.Source) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	added := 0
	for _, src := range sources {
		key := src.Key()
		if key == "" {
			continue
		}
		if _, ok := p.indexOf[key]; ok {
			continue
		}
		p.indexOf[key] = len(p.ordered)
		p.ordered = append(p.ordered, src)
		added++
	}
	return added
}

// Sources returns all pooled sources in first-sighting order.
func (p *SourcePool) Sources() []model.Source {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.Source, len(p.ordered))
	copy(out, p.ordered)
	return out
}

// Size returns the number of unique sources pooled so far.
func (p *SourcePool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.ordered)
}
