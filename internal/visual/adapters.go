// Package visual resolves visualization slots into chart data, first from
// host-supplied structured adapters, then from LLM extraction over section
// prose with coercion and strict shape validation.
package visual

import (
	"sync"

	"github.com/procureiq/deepresearch/internal/model"
)

// StructuredRecord is one enriched record supplied by the host. ExactMatch
// says whether the record matched the job's category exactly; broad matches
// downgrade the resulting visual's confidence.
type StructuredRecord struct {
	Category   string
	ExactMatch bool
	Fields     map[string]any
}

// AdapterFunc transforms a structured record into a visual for a section, or
// nil when the record cannot fill the slot. Adapters are opaque to the core:
// pure functions supplied by the host.
type AdapterFunc func(record StructuredRecord, sectionID string) *model.Visual

// AdapterRegistry maps adapter names declared on slots to host functions.
type AdapterRegistry struct {
	mu       sync.RWMutex
	adapters map[string]AdapterFunc
}

// NewAdapterRegistry creates an empty registry.
func NewAdapterRegistry() *AdapterRegistry {
	return &AdapterRegistry{adapters: make(map[string]AdapterFunc)}
}

// Register adds or replaces a named adapter.
func (r *AdapterRegistry) Register(name string, fn AdapterFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[name] = fn
}

// Get returns the named adapter.
func (r *AdapterRegistry) Get(name string) (AdapterFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.adapters[name]
	return fn, ok
}
