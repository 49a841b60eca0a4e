package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/procureiq/deepresearch/internal/agents"
	"github.com/procureiq/deepresearch/internal/llm"
	"github.com/procureiq/deepresearch/internal/model"
	"github.com/procureiq/deepresearch/internal/template"
)

// canned reasoner: every completion yields cited prose. Calls arriving
// without a deadline are counted.
type cannedReasoner struct {
	noDeadline atomic.Int32
}

func (r *cannedReasoner) Complete(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	if _, ok := ctx.Deadline(); !ok {
		r.noDeadline.Add(1)
	}
	return &llm.ChatResponse{
		Content: "Steel demand is softening across key end markets [W1]. Capacity cuts continue through next year [W2].",
	}, nil
}

func (r *cannedReasoner) Stream(ctx context.Context, req llm.ChatRequest, fn func(llm.StreamDelta) error) error {
	return fn(llm.StreamDelta{Content: "stream unused"})
}

// canned researcher: every agent finds the same two web sources.
type cannedResearcher struct {
	noDeadline atomic.Int32
}

func (r *cannedResearcher) Research(ctx context.Context, agent model.ResearchAgent) (string, []model.Source, error) {
	if _, ok := ctx.Deadline(); !ok {
		r.noDeadline.Add(1)
	}
	return "Demand softening confirmed by mills. Inventories remain high.", []model.Source{
		{Type: model.SourceWeb, Name: "Reuters", URL: "https://reuters.com/steel"},
		{Type: model.SourceWeb, Name: "S&P Global", URL: "https://spglobal.com/steel"},
	}, nil
}

// blockingResearcher holds every agent until the job context is cancelled.
type blockingResearcher struct {
	started chan struct{}
}

func (r *blockingResearcher) Research(ctx context.Context, agent model.ResearchAgent) (string, []model.Source, error) {
	select {
	case r.started <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return "", nil, ctx.Err()
}

func testController(t *testing.T, r agents.Researcher, reasoner llm.Reasoner) *Controller {
	t.Helper()
	cfg := model.DefaultConfig()
	cfg.Pipeline.SectionTimeout = 2 * time.Second
	clients := &llm.Clients{
		Reasoner: reasoner,
		Schema:   llm.NewSchemaClient(model.SchemaConfig{Model: "m"}, nil, nil, nil), // no key: degrades to nil results
	}
	c := NewController(cfg, clients, template.NewRegistry(), nil, nil)
	c.SetResearcher(r)
	return c
}

func awaitState(t *testing.T, c *Controller, jobID string, want model.JobState) model.DeepResearchResponse {
	t.Helper()
	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		snap, err := c.Snapshot(jobID)
		if err != nil {
			t.Fatalf("Snapshot failed: %v", err)
		}
		if snap.State == want {
			return snap
		}
		if snap.State.Terminal() {
			t.Fatalf("Job reached %s, want %s (error: %+v)", snap.State, want, snap.Error)
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("Job never reached %s", want)
	return model.DeepResearchResponse{}
}

func TestControllerFullRun(t *testing.T) {
	researcher := &cannedResearcher{}
	reasoner := &cannedReasoner{}
	c := testController(t, researcher, reasoner)

	id, snap := c.StartDeepResearch(StartRequest{
		Query:      "deep research on hot rolled steel coil pricing in Europe",
		SkipIntake: true,
		Answers:    model.IntakeAnswers{model.IntakeRegions: {"Europe"}},
	})
	if snap.StudyType != model.StudyMarketAnalysis {
		t.Errorf("Expected inferred market_analysis, got %s", snap.StudyType)
	}

	done := awaitState(t, c, id, model.JobComplete)
	if done.Report == nil {
		t.Fatal("Completed job has no report")
	}
	rep := done.Report

	if rep.Meta.Title == "" {
		t.Error("Report has no title")
	}
	if len(rep.Citations) != 2 {
		t.Errorf("Expected 2 citations from the shared source pool, got %d", len(rep.Citations))
	}
	if _, ok := rep.Citations["W1"]; !ok {
		t.Error("Expected citation W1")
	}
	if rep.Summary == "" {
		t.Error("Executive summary not surfaced separately")
	}
	for _, s := range rep.Sections {
		if s.ID == model.SectionExecutiveSummary {
			t.Error("Executive summary should be removed from the body")
		}
	}
	if len(rep.References) != 2 || rep.References[0].ID != "W1" {
		t.Errorf("Unexpected references: %+v", rep.References)
	}

	if done.Progress.Stage != model.StageComplete {
		t.Errorf("Expected stage complete, got %s", done.Progress.Stage)
	}
	wantStages := []model.Stage{model.StagePlan, model.StageResearch, model.StageSynthesis, model.StageDelivery}
	if len(done.Progress.CompletedStages) != len(wantStages) {
		t.Fatalf("Expected %d completed stages, got %v", len(wantStages), done.Progress.CompletedStages)
	}
	for i, st := range wantStages {
		if done.Progress.CompletedStages[i] != st {
			t.Errorf("completed_stages[%d] = %s, want %s", i, done.Progress.CompletedStages[i], st)
		}
	}
	if len(done.Progress.Agents) == 0 {
		t.Error("Expected fallback decomposition agents")
	}
	if done.Progress.TotalSources != 2 {
		t.Errorf("Expected 2 unique sources, got %d", done.Progress.TotalSources)
	}

	if n := researcher.noDeadline.Load(); n != 0 {
		t.Errorf("%d research calls ran without a deadline", n)
	}
	if n := reasoner.noDeadline.Load(); n != 0 {
		t.Errorf("%d reasoner calls ran without a deadline", n)
	}
}

func TestControllerIntakeFlow(t *testing.T) {
	c := testController(t, &cannedResearcher{}, &cannedReasoner{})

	id, snap := c.StartDeepResearch(StartRequest{Query: "sourcing study for industrial fasteners"})
	if snap.State != model.JobIntake {
		t.Fatalf("Expected intake state, got %s", snap.State)
	}
	if len(snap.Questions) == 0 {
		t.Error("Intake should carry clarifying questions")
	}

	events, stop, err := c.Subscribe(id)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer stop()

	if _, err := c.ConfirmIntake(id, model.IntakeAnswers{model.IntakeRegions: {"North America"}}); err != nil {
		t.Fatalf("ConfirmIntake failed: %v", err)
	}
	if _, err := c.ConfirmIntake(id, nil); !errors.Is(err, ErrJobNotIntake) {
		t.Errorf("Second confirm should return ErrJobNotIntake, got %v", err)
	}

	lastSeq := 0
	sawReady := false
	timeout := time.After(15 * time.Second)
	for !sawReady {
		select {
		case ev := <-events:
			if ev.Seq <= lastSeq {
				t.Fatalf("Seq went backwards: %d after %d", ev.Seq, lastSeq)
			}
			lastSeq = ev.Seq
			if ev.Type == model.EventReportReady {
				sawReady = true
			}
			if ev.Type == model.EventError {
				t.Fatalf("Job failed: %+v", ev.Data.Error)
			}
		case <-timeout:
			t.Fatal("No report_ready event")
		}
	}

	snap, err = c.Snapshot(id)
	if err != nil || snap.State != model.JobComplete {
		t.Errorf("Expected complete job, got %s (%v)", snap.State, err)
	}
	if snap.Progress.Agents[0].Status != model.AgentComplete {
		t.Errorf("Agent status not carried into snapshot: %+v", snap.Progress.Agents[0])
	}
}

func TestControllerCancelBeforeStart(t *testing.T) {
	c := testController(t, &cannedResearcher{}, &cannedReasoner{})
	id, _ := c.StartDeepResearch(StartRequest{Query: "some research request"})

	if err := c.Cancel(id); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	snap, _ := c.Snapshot(id)
	if snap.State != model.JobError {
		t.Fatalf("Expected error state, got %s", snap.State)
	}
	if snap.Error == nil || snap.Error.Message != "cancelled" || snap.Error.CanRetry {
		t.Errorf("Expected non-retryable cancellation, got %+v", snap.Error)
	}
}

func TestControllerCancelRunning(t *testing.T) {
	r := &blockingResearcher{started: make(chan struct{}, 1)}
	c := testController(t, r, &cannedReasoner{})
	id, _ := c.StartDeepResearch(StartRequest{Query: "cancel mid research", SkipIntake: true})

	select {
	case <-r.started:
	case <-time.After(10 * time.Second):
		t.Fatal("Research never started")
	}
	if err := c.Cancel(id); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	deadline := time.Now().Add(10 * time.Second)
	for {
		snap, _ := c.Snapshot(id)
		if snap.State.Terminal() {
			if snap.State != model.JobError {
				t.Fatalf("Expected error state, got %s", snap.State)
			}
			if snap.Error.Message != "cancelled" || snap.Error.CanRetry {
				t.Errorf("Expected non-retryable cancellation, got %+v", snap.Error)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("Job never terminated after cancel")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestControllerUnknownJob(t *testing.T) {
	c := testController(t, &cannedResearcher{}, &cannedReasoner{})
	if _, err := c.Snapshot("nope"); !errors.Is(err, ErrUnknownJob) {
		t.Errorf("Snapshot: expected ErrUnknownJob, got %v", err)
	}
	if err := c.Cancel("nope"); !errors.Is(err, ErrUnknownJob) {
		t.Errorf("Cancel: expected ErrUnknownJob, got %v", err)
	}
	if _, err := c.ConfirmIntake("nope", nil); !errors.Is(err, ErrUnknownJob) {
		t.Errorf("ConfirmIntake: expected ErrUnknownJob, got %v", err)
	}
	if _, _, err := c.Subscribe("nope"); !errors.Is(err, ErrUnknownJob) {
		t.Errorf("Subscribe: expected ErrUnknownJob, got %v", err)
	}
}
