package agents

import (
	"testing"

	"github.com/procureiq/deepresearch/internal/model"
)

func TestSourcePool_MergeDeduplicates(t *testing.T) {
	pool := NewSourcePool()

	added := pool.Merge([]model.Source{
		{Type: model.SourceWeb, Name: "Reuters", URL: "https://www.reuters.com/markets/steel/"},
		{Type: model.SourceWeb, Name: "Bloomberg", URL: "https://bloomberg.com/steel"},
	})
	if added != 2 {
		t.Errorf("Expected 2 added, got %d", added)
	}

	// Same URL modulo scheme, www, and trailing slash.
	added = pool.Merge([]model.Source{
		{Type: model.SourceWeb, Name: "Reuters again", URL: "http://reuters.com/markets/steel"},
	})
	if added != 0 {
		t.Errorf("Expected 0 added for duplicate URL, got %d", added)
	}
	if pool.Size() != 2 {
		t.Errorf("Expected pool size 2, got %d", pool.Size())
	}
}

func TestSourcePool_WriteOnce(t *testing.T) {
	pool := NewSourcePool()

	pool.Merge([]model.Source{{Type: model.SourceWeb, Name: "First In", URL: "https://example.com/a"}})
	pool.Merge([]model.Source{{Type: model.SourceWeb, Name: "Second Attempt", URL: "https://example.com/a"}})

	sources := pool.Sources()
	if len(sources) != 1 {
		t.Fatalf("Expected 1 source, got %d", len(sources))
	}
	if sources[0].Name != "First In" {
		t.Errorf("Expected first write to win, got %q", sources[0].Name)
	}
}

func TestSourcePool_OrderPreserved(t *testing.T) {
	pool := NewSourcePool()
	pool.Merge([]model.Source{
		{Type: model.SourceWeb, Name: "a", URL: "https://a.example.com"},
		{Type: model.SourceWeb, Name: "b", URL: "https://b.example.com"},
	})
	pool.Merge([]model.Source{
		{Type: model.SourceWeb, Name: "c", URL: "https://c.example.com"},
	})

	sources := pool.Sources()
	want := []string{"a", "b", "c"}
	for i, name := range want {
		if sources[i].Name != name {
			t.Errorf("Position %d: expected %q, got %q", i, name, sources[i].Name)
		}
	}
}
