package agents

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/procureiq/deepresearch/internal/model"
)

// ErrAllAgentsFailed is returned when no agent produced findings.
var ErrAllAgentsFailed = errors.New("agents: all research agents failed")

// Events receives runner progress notifications. Implementations must not
// block; the runner calls them while holding its completion lock.
type Events interface {
	AgentStarted(agent model.ResearchAgent)
	AgentCompleted(agent model.ResearchAgent)
	SourceFound(agentID string, source model.Source, totalUnique int)
	FindingEmerged(agentID string, finding string)
}

// NopEvents is the default no-op observer.
type NopEvents struct{}

func (NopEvents) AgentStarted(model.ResearchAgent)           {}
func (NopEvents) AgentCompleted(model.ResearchAgent)         {}
func (NopEvents) SourceFound(string, model.Source, int)      {}
func (NopEvents) FindingEmerged(string, string)              {}

// Runner executes research agents with bounded concurrency, merging their
// sources into the job pool in agent-completion order.
type Runner struct {
	researcher  Researcher
	concurrency int
	timeout     time.Duration
	events      Events
	logger      *zap.Logger
}

// NewRunner creates a runner. timeout bounds each research call; events and
// logger may be nil.
func NewRunner(researcher Researcher, concurrency int, timeout time.Duration, events Events, logger *zap.Logger) *Runner {
	if concurrency <= 0 {
		concurrency = 3
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if events == nil {
		events = NopEvents{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		researcher:  researcher,
		concurrency: concurrency,
		timeout:     timeout,
		events:      events,
		logger:      logger.Named("runner"),
	}
}

// Run executes all agents and merges sources into pool. Individual agent
// failures are recorded on the agent; Run fails only when every agent failed
// or the context was cancelled.
func (r *Runner) Run(ctx context.Context, agentSet []model.ResearchAgent, pool *SourcePool) ([]model.ResearchAgent, error) {
	if len(agentSet) == 0 {
		return nil, ErrAllAgentsFailed
	}

	out := make([]model.ResearchAgent, len(agentSet))
	copy(out, agentSet)

	var (
		mu        sync.Mutex // serialises completion: pool merge order defines citation order
		succeeded int
	)

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i := range out {
		i := i
		g.Go(func() error {
			agent := out[i]
			started := time.Now().UTC()
			agent.Status = model.AgentRunning
			agent.StartedAt = &started

			mu.Lock()
			out[i] = agent
			r.events.AgentStarted(agent)
			mu.Unlock()

			callCtx, cancel := context.WithTimeout(ctx, r.timeout)
			findings, sources, err := r.researcher.Research(callCtx, agent)
			cancel()

			mu.Lock()
			defer mu.Unlock()
			completed := time.Now().UTC()
			agent.CompletedAt = &completed
			if err != nil {
				agent.Status = model.AgentError
				agent.Error = err.Error()
				out[i] = agent
				r.logger.Warn("agent failed",
					zap.String("agent_id", agent.ID), zap.Error(err))
				r.events.AgentCompleted(agent)
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return nil
			}

			agent.Status = model.AgentComplete
			agent.Findings = findings
			agent.Sources = sources
			agent.RawSourceCount = len(sources)
			agent.UniqueSourceCount = pool.Merge(sources)
			out[i] = agent
			succeeded++

			for _, src := range sources {
				r.events.SourceFound(agent.ID, src, pool.Size())
			}
			if finding := firstFinding(findings); finding != "" {
				r.events.FindingEmerged(agent.ID, finding)
			}
			r.events.AgentCompleted(agent)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return out, err
	}
	if succeeded == 0 {
		return out, ErrAllAgentsFailed
	}
	return out, nil
}

// firstFinding extracts a short headline finding from agent prose.
func firstFinding(findings string) string {
	findings = strings.TrimSpace(findings)
	if findings == "" {
		return ""
	}
	if i := strings.IndexAny(findings, ".\n"); i > 0 {
		findings = findings[:i+1]
	}
	if len(findings) > 200 {
		findings = findings[:200]
	}
	return strings.TrimSpace(findings)
}
