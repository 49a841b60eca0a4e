package agents

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/procureiq/deepresearch/internal/model"
)

// stubResearcher returns canned findings per agent id.
type stubResearcher struct {
	mu       sync.Mutex
	inFlight int
	peak     int
	fail     map[string]bool
}

func (s *stubResearcher) Research(ctx context.Context, agent model.ResearchAgent) (string, []model.Source, error) {
	s.mu.Lock()
	s.inFlight++
	if s.inFlight > s.peak {
		s.peak = s.inFlight
	}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.inFlight--
		s.mu.Unlock()
	}()

	if s.fail[agent.ID] {
		return "", nil, errors.New("provider unavailable")
	}
	findings := fmt.Sprintf("Findings for %s. More detail follows.", agent.SubQuery)
	sources := []model.Source{
		{Type: model.SourceWeb, Name: agent.ID + " source", URL: "https://example.com/" + agent.ID},
	}
	return findings, sources, nil
}

func testAgents(n int) []model.ResearchAgent {
	out := make([]model.ResearchAgent, n)
	for i := range out {
		out[i] = model.ResearchAgent{
			ID:       fmt.Sprintf("agent-%d", i+1),
			Name:     fmt.Sprintf("Agent %d", i+1),
			SubQuery: fmt.Sprintf("sub-query %d", i+1),
			Category: model.CategoryGeneral,
			Status:   model.AgentQueued,
		}
	}
	return out
}

func TestRunner_AllAgentsComplete(t *testing.T) {
	stub := &stubResearcher{}
	runner := NewRunner(stub, 3, 0, nil, nil)
	pool := NewSourcePool()

	completed, err := runner.Run(context.Background(), testAgents(5), pool)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(completed) != 5 {
		t.Fatalf("Expected 5 completed agents, got %d", len(completed))
	}
	for _, agent := range completed {
		if agent.Status != model.AgentComplete {
			t.Errorf("Agent %s status %s", agent.ID, agent.Status)
		}
		if agent.CompletedAt == nil || agent.StartedAt == nil {
			t.Errorf("Agent %s missing timestamps", agent.ID)
		}
		if agent.RawSourceCount != 1 || agent.UniqueSourceCount != 1 {
			t.Errorf("Agent %s source counts: raw %d unique %d", agent.ID, agent.RawSourceCount, agent.UniqueSourceCount)
		}
	}
	if pool.Size() != 5 {
		t.Errorf("Expected 5 pooled sources, got %d", pool.Size())
	}
	if stub.peak > 3 {
		t.Errorf("Concurrency cap exceeded: peak %d", stub.peak)
	}
}

func TestRunner_PartialFailureContinues(t *testing.T) {
	stub := &stubResearcher{fail: map[string]bool{"agent-2": true}}
	runner := NewRunner(stub, 3, 0, nil, nil)
	pool := NewSourcePool()

	completed, err := runner.Run(context.Background(), testAgents(3), pool)
	if err != nil {
		t.Fatalf("Expected stage to proceed with one failed agent, got %v", err)
	}

	var failed *model.ResearchAgent
	for i := range completed {
		if completed[i].ID == "agent-2" {
			failed = &completed[i]
		}
	}
	if failed == nil {
		t.Fatal("agent-2 missing from results")
	}
	if failed.Status != model.AgentError || failed.Error == "" {
		t.Errorf("Expected recorded error on agent-2, got %+v", failed)
	}
	if pool.Size() != 2 {
		t.Errorf("Expected 2 pooled sources, got %d", pool.Size())
	}
}

func TestRunner_AllAgentsFailed(t *testing.T) {
	stub := &stubResearcher{fail: map[string]bool{"agent-1": true, "agent-2": true}}
	runner := NewRunner(stub, 2, 0, nil, nil)

	_, err := runner.Run(context.Background(), testAgents(2), NewSourcePool())
	if !errors.Is(err, ErrAllAgentsFailed) {
		t.Errorf("Expected ErrAllAgentsFailed, got %v", err)
	}
}

func TestRunner_NoAgents(t *testing.T) {
	runner := NewRunner(&stubResearcher{}, 2, 0, nil, nil)
	if _, err := runner.Run(context.Background(), nil, NewSourcePool()); !errors.Is(err, ErrAllAgentsFailed) {
		t.Errorf("Expected ErrAllAgentsFailed for empty agent set, got %v", err)
	}
}

// recordingEvents captures observer callbacks.
type recordingEvents struct {
	mu       sync.Mutex
	sources  int
	findings []string
}

func (r *recordingEvents) AgentStarted(model.ResearchAgent)   {}
func (r *recordingEvents) AgentCompleted(model.ResearchAgent) {}
func (r *recordingEvents) SourceFound(agentID string, src model.Source, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources++
}
func (r *recordingEvents) FindingEmerged(agentID, finding string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.findings = append(r.findings, finding)
}

func TestRunner_EmitsEvents(t *testing.T) {
	events := &recordingEvents{}
	runner := NewRunner(&stubResearcher{}, 2, 0, events, nil)

	if _, err := runner.Run(context.Background(), testAgents(3), NewSourcePool()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if events.sources != 3 {
		t.Errorf("Expected 3 source_found callbacks, got %d", events.sources)
	}
	if len(events.findings) != 3 {
		t.Errorf("Expected 3 finding_emerged callbacks, got %d", len(events.findings))
	}
}

// deadlineResearcher records whether each call arrived with a deadline.
type deadlineResearcher struct {
	mu      sync.Mutex
	calls   int
	missing int
}

func (r *deadlineResearcher) Research(ctx context.Context, agent model.ResearchAgent) (string, []model.Source, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if _, ok := ctx.Deadline(); !ok {
		r.missing++
	}
	return "Finding.", []model.Source{
		{Type: model.SourceWeb, Name: agent.ID, URL: "https://example.com/" + agent.ID},
	}, nil
}

func TestRunnerBoundsEachResearchCall(t *testing.T) {
	r := &deadlineResearcher{}
	runner := NewRunner(r, 2, time.Minute, nil, nil)
	if _, err := runner.Run(context.Background(), testAgents(4), NewSourcePool()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if r.calls != 4 {
		t.Fatalf("Expected 4 research calls, got %d", r.calls)
	}
	if r.missing != 0 {
		t.Errorf("%d research calls ran without a deadline", r.missing)
	}
}
