// Package pipeline drives a deep research job through its four canonical
// stages: plan, research, synthesis, delivery. The controller owns all job
// state; everything downstream is stateless and fed through it.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/procureiq/deepresearch/internal/agents"
	"github.com/procureiq/deepresearch/internal/intent"
	"github.com/procureiq/deepresearch/internal/llm"
	"github.com/procureiq/deepresearch/internal/model"
	"github.com/procureiq/deepresearch/internal/report"
	"github.com/procureiq/deepresearch/internal/synth"
	"github.com/procureiq/deepresearch/internal/template"
	"github.com/procureiq/deepresearch/internal/visual"
)

// ErrUnknownJob is returned for operations on a job id the controller has
// never seen.
var ErrUnknownJob = errors.New("unknown job id")

// ErrJobNotIntake is returned when intake is confirmed for a job that has
// already started or finished.
var ErrJobNotIntake = errors.New("job is not awaiting intake")

// StartRequest begins a deep research job.
type StartRequest struct {
	Query      string
	StudyType  model.StudyType // inferred from the query when empty
	Category   string          // optional category hint, pre-fills intake
	Answers    model.IntakeAnswers
	SkipIntake bool
	Records    []visual.StructuredRecord
}

// Controller runs deep research jobs and publishes their progress.
type Controller struct {
	cfg       *model.Config
	clients   *llm.Clients
	templates *template.Registry
	adapters  *visual.AdapterRegistry

	// researcher is swappable so tests can run the full pipeline without
	// a provider.
	researcher agents.Researcher

	logger *zap.Logger

	mu   sync.Mutex
	jobs map[string]*job
	base context.Context
}

// NewController wires a controller. adapters and logger may be nil.
func NewController(cfg *model.Config, clients *llm.Clients, templates *template.Registry, adapters *visual.AdapterRegistry, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if adapters == nil {
		adapters = visual.NewAdapterRegistry()
	}
	return &Controller{
		cfg:        cfg,
		clients:    clients,
		templates:  templates,
		adapters:   adapters,
		researcher: agents.NewLLMResearcher(clients.Reasoner),
		logger:     logger.Named("pipeline"),
		jobs:       make(map[string]*job),
		base:       context.Background(),
	}
}

// SetResearcher replaces the web research backend. Must be called before
// any job starts.
func (c *Controller) SetResearcher(r agents.Researcher) { c.researcher = r }

// StartDeepResearch registers a job. Unless SkipIntake is set the job waits
// in the intake state for ConfirmIntake; otherwise processing begins
// immediately with defaulted answers.
func (c *Controller) StartDeepResearch(req StartRequest) (string, model.DeepResearchResponse) {
	studyType := req.StudyType
	if !studyType.Valid() {
		studyType = intent.InferStudyType(req.Query)
	}

	questions := intent.BuildClarifyingQuestions(req.Query, studyType)
	answers := intent.DefaultAnswers(questions)
	for id, vals := range req.Answers {
		answers[id] = vals
	}
	if req.Category != "" {
		answers.Set(model.IntakeCategory, req.Category)
	}

	id := uuid.NewString()
	j := newJob(id, model.Query{Text: req.Query, Intake: answers}, studyType, req.Records)
	j.questions = questions

	c.mu.Lock()
	c.jobs[id] = j
	c.mu.Unlock()

	c.logger.Info("job registered",
		zap.String("job_id", id),
		zap.String("study_type", string(studyType)),
		zap.Bool("skip_intake", req.SkipIntake))

	if req.SkipIntake {
		c.begin(j)
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	return id, j.snapshotLocked()
}

// ConfirmIntake merges the user's answers and starts processing.
func (c *Controller) ConfirmIntake(jobID string, answers model.IntakeAnswers) (model.DeepResearchResponse, error) {
	j, ok := c.lookup(jobID)
	if !ok {
		return model.DeepResearchResponse{}, ErrUnknownJob
	}

	j.mu.Lock()
	if j.state != model.JobIntake {
		defer j.mu.Unlock()
		return j.snapshotLocked(), ErrJobNotIntake
	}
	for id, vals := range answers {
		j.query.Intake[id] = vals
	}
	j.mu.Unlock()

	c.begin(j)

	j.mu.Lock()
	defer j.mu.Unlock()
	return j.snapshotLocked(), nil
}

// Cancel aborts a running job. In-flight provider calls are cut off by the
// job context; the job lands in the error state with reason "cancelled".
func (c *Controller) Cancel(jobID string) error {
	j, ok := c.lookup(jobID)
	if !ok {
		return ErrUnknownJob
	}
	j.mu.Lock()
	cancel := j.cancel
	terminal := j.state.Terminal()
	j.mu.Unlock()
	if terminal {
		return nil
	}
	if cancel != nil {
		cancel()
		return nil
	}
	// Never started processing: fail it directly.
	j.mu.Lock()
	defer j.mu.Unlock()
	j.state = model.JobError
	j.failure = &model.JobFailure{Message: "cancelled", CanRetry: false}
	j.emitLocked(model.EventError)
	return nil
}

// Subscribe returns the job's event stream and an unsubscribe func.
func (c *Controller) Subscribe(jobID string) (<-chan model.ProgressEvent, func(), error) {
	j, ok := c.lookup(jobID)
	if !ok {
		return nil, nil, ErrUnknownJob
	}
	ch, stop := j.subscribe()
	return ch, stop, nil
}

// Snapshot returns the job's current state as an idempotent snapshot.
func (c *Controller) Snapshot(jobID string) (model.DeepResearchResponse, error) {
	j, ok := c.lookup(jobID)
	if !ok {
		return model.DeepResearchResponse{}, ErrUnknownJob
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.snapshotLocked(), nil
}

func (c *Controller) lookup(jobID string) (*job, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	j, ok := c.jobs[jobID]
	return j, ok
}

// begin moves the job into processing and launches the run goroutine.
func (c *Controller) begin(j *job) {
	ctx, cancel := context.WithCancel(c.base)

	j.mu.Lock()
	if j.state != model.JobIntake {
		j.mu.Unlock()
		cancel()
		return
	}
	j.state = model.JobProcessing
	j.cancel = cancel
	j.progress.StartedAt = time.Now().UTC()
	j.emitLocked(model.EventStepUpdate)
	j.mu.Unlock()

	go func() {
		defer cancel()
		c.run(ctx, j)
	}()
}

// run executes the stage chain. Any returned error fails the job.
func (c *Controller) run(ctx context.Context, j *job) {
	started := time.Now().UTC()

	decomp := c.runPlan(ctx, j)
	if err := ctx.Err(); err != nil {
		c.fail(j, err)
		return
	}

	completed, pool, err := c.runResearch(ctx, j, decomp)
	if err != nil {
		c.fail(j, err)
		return
	}

	citations := agents.AssignCitations(pool)
	sections, tpl, budget, err := c.runSynthesis(ctx, j, decomp, completed, citations)
	if err != nil {
		c.fail(j, err)
		return
	}

	if err := c.runDelivery(ctx, j, tpl, sections, citations, budget, started); err != nil {
		c.fail(j, err)
		return
	}
}

func (c *Controller) runPlan(ctx context.Context, j *job) agents.Decomposition {
	j.mu.Lock()
	j.startPhaseLocked(model.PhaseDecomposition, "")
	j.emitLocked(model.EventPhaseChange)
	j.mu.Unlock()

	j.mu.Lock()
	query := j.query
	studyType := j.studyType
	j.mu.Unlock()

	timeout := c.cfg.Pipeline.ExtractionTimeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	planCtx, cancel := context.WithTimeout(ctx, timeout)
	decomp := c.decomposer().Decompose(planCtx, query, studyType)
	cancel()

	j.mu.Lock()
	defer j.mu.Unlock()
	j.finishPhaseLocked(model.PhaseDecomposition, model.PhaseComplete,
		fmt.Sprintf("%d research agents", len(decomp.Agents)))

	j.startPhaseLocked(model.PhaseDeduplication, "")
	j.finishPhaseLocked(model.PhaseDeduplication, model.PhaseComplete,
		fmt.Sprintf("%d of %d sub-queries kept", len(decomp.Agents), decomp.RawCount))

	j.startPhaseLocked(model.PhaseAssignment, "")
	j.progress.Agents = append([]model.ResearchAgent(nil), decomp.Agents...)
	j.progress.Tags = decomp.Tags
	j.finishPhaseLocked(model.PhaseAssignment, model.PhaseComplete, "")
	j.emitLocked(model.EventStepUpdate)
	return decomp
}

func (c *Controller) runResearch(ctx context.Context, j *job, decomp agents.Decomposition) ([]model.ResearchAgent, *agents.SourcePool, error) {
	j.mu.Lock()
	j.advanceStageLocked(model.StageResearch)
	records := len(j.records)
	j.emitLocked(model.EventPhaseChange)
	j.mu.Unlock()

	// Internal intelligence: satisfied by host-supplied structured records.
	// Skipped when there are none and the deployment does not require it.
	j.mu.Lock()
	j.startPhaseLocked(model.PhaseInternal, "")
	if records == 0 && !c.cfg.Pipeline.RequireInternal {
		j.finishPhaseLocked(model.PhaseInternal, model.PhaseSkipped, "no structured data supplied")
	} else {
		j.finishPhaseLocked(model.PhaseInternal, model.PhaseComplete,
			fmt.Sprintf("%d structured records", records))
	}
	j.startPhaseLocked(model.PhaseWeb, "")
	j.emitLocked(model.EventStepUpdate)
	j.mu.Unlock()

	pool := agents.NewSourcePool()
	runner := agents.NewRunner(c.researcher, c.cfg.Pipeline.AgentConcurrency,
		c.cfg.Pipeline.QuickReasonTimeout, &jobEvents{job: j}, c.logger)
	completed, err := runner.Run(ctx, decomp.Agents, pool)
	if err != nil {
		return nil, nil, err
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	j.progress.Agents = completed
	j.progress.ActiveAgentID = ""
	j.finishPhaseLocked(model.PhaseWeb, model.PhaseComplete,
		fmt.Sprintf("%d unique sources", pool.Size()))

	j.startPhaseLocked(model.PhaseConsolidation, "")
	j.finishPhaseLocked(model.PhaseConsolidation, model.PhaseComplete, "")
	j.emitLocked(model.EventStepUpdate)
	return completed, pool, nil
}

func (c *Controller) runSynthesis(ctx context.Context, j *job, decomp agents.Decomposition, completed []model.ResearchAgent, citations []model.Citation) ([]model.SectionResult, model.ReportTemplate, *synth.RegenBudget, error) {
	j.mu.Lock()
	j.advanceStageLocked(model.StageSynthesis)
	studyType := j.studyType
	query := j.query
	j.emitLocked(model.EventPhaseChange)
	j.mu.Unlock()

	tpl := c.templates.ForStudyType(studyType)

	j.mu.Lock()
	j.startPhaseLocked(model.PhaseTemplate, "")
	j.finishPhaseLocked(model.PhaseTemplate, model.PhaseComplete, tpl.ID)
	total := len(tpl.Sections)
	j.progress.Synthesis = &model.SynthesisProgress{SectionsTotal: total}
	j.startPhaseLocked(model.PhaseWriting, "")
	j.emitLocked(model.EventStepUpdate)
	j.mu.Unlock()

	jobCtx := synth.JobContext{
		StudyType: studyType,
		Query:     query.Text,
		Regions:   query.Intake.Regions(),
		Timeframe: query.Intake.Timeframe(),
		Citations: citations,
		Findings:  findingsOf(completed),
	}

	budget := synth.NewRegenBudget(c.cfg.Pipeline.RegenerationBudget)
	synthesizer := synth.NewSynthesizer(c.clients.Reasoner, c.cfg.Pipeline, c.logger)
	synthesizer.OnSection = func(sectionID string) {
		j.mu.Lock()
		defer j.mu.Unlock()
		if j.progress.Synthesis != nil {
			j.progress.Synthesis.SectionsDone++
			j.progress.Synthesis.CurrentSection = sectionID
		}
		j.emitLocked(model.EventStepUpdate)
	}

	ceiling := c.cfg.Pipeline.SynthesisCeiling
	if ceiling <= 0 {
		ceiling = 120 * time.Second
	}
	synthCtx, cancel := context.WithTimeout(ctx, ceiling)
	defer cancel()

	sections, err := synthesizer.SynthesizeSections(synthCtx, tpl, jobCtx, budget)
	if err != nil {
		return nil, tpl, budget, err
	}

	j.mu.Lock()
	j.finishPhaseLocked(model.PhaseWriting, model.PhaseComplete, "")
	j.startPhaseLocked(model.PhaseQuality, "")
	j.finishPhaseLocked(model.PhaseQuality, model.PhaseComplete,
		fmt.Sprintf("%d regenerations", budget.Used()))
	if j.progress.Synthesis != nil {
		j.progress.Synthesis.Regenerations = budget.Used()
	}
	j.startPhaseLocked(model.PhaseVisuals, "")
	j.emitLocked(model.EventStepUpdate)
	records := j.records
	j.mu.Unlock()

	extractor := visual.NewExtractor(c.clients.Schema, c.adapters, c.cfg.Pipeline, c.logger)
	sections = extractor.ExtractAll(ctx, sections, tpl, visual.Job{
		Query:     query.Text,
		Regions:   jobCtx.Regions,
		Timeframe: jobCtx.Timeframe,
		Records:   records,
	})
	if err := ctx.Err(); err != nil {
		return nil, tpl, budget, err
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	visuals := countVisuals(sections)
	if j.progress.Synthesis != nil {
		j.progress.Synthesis.VisualsAccepted = visuals
	}
	j.finishPhaseLocked(model.PhaseVisuals, model.PhaseComplete,
		fmt.Sprintf("%d visuals", visuals))
	j.emitLocked(model.EventStepUpdate)
	return sections, tpl, budget, nil
}

func (c *Controller) runDelivery(ctx context.Context, j *job, tpl model.ReportTemplate, sections []model.SectionResult, citations []model.Citation, budget *synth.RegenBudget, started time.Time) error {
	j.mu.Lock()
	j.advanceStageLocked(model.StageDelivery)
	query := j.query
	studyType := j.studyType
	j.startPhaseLocked(model.PhaseAssembly, "")
	j.emitLocked(model.EventPhaseChange)
	j.mu.Unlock()

	regions := query.Intake.Regions()
	timeframe := query.Intake.Timeframe()

	sig := report.ExtractTitleSignals(query.Text, studyType, regions, timeframe, sections)
	titler := report.NewTitler(c.clients.Schema, c.clients.Reasoner, c.cfg.Pipeline, c.logger)
	title := titler.Generate(ctx, query.Text, sig, tpl.Name)
	if err := ctx.Err(); err != nil {
		return err
	}

	summary, body := splitSummary(sections)
	assembled := report.Assemble(report.AssembleInput{
		Query:      query.Text,
		StudyType:  studyType,
		Template:   tpl,
		Title:      title,
		Summary:    summary,
		Sections:   body,
		Citations:  citations,
		Regions:    regions,
		Timeframe:  timeframe,
		StartedAt:  started,
		FinishedAt: time.Now().UTC(),
	})

	j.mu.Lock()
	defer j.mu.Unlock()
	j.finishPhaseLocked(model.PhaseAssembly, model.PhaseComplete, assembled.Meta.ReportNumber)

	j.startPhaseLocked(model.PhasePresentation, "")
	j.finishPhaseLocked(model.PhasePresentation, model.PhaseComplete, "")
	j.startPhaseLocked(model.PhaseExport, "")
	j.finishPhaseLocked(model.PhaseExport, model.PhaseComplete, "")

	j.advanceStageLocked(model.StageComplete)
	j.report = &assembled
	j.state = model.JobComplete
	j.emitLocked(model.EventReportReady)

	c.logger.Info("job complete",
		zap.String("job_id", j.id),
		zap.String("report_number", assembled.Meta.ReportNumber),
		zap.Int("citations", len(assembled.Citations)),
		zap.Int("regenerations", budget.Used()))
	return nil
}

// fail marks the job failed. Cancellation is not retryable; everything else
// is assumed to be a transient provider condition.
func (c *Controller) fail(j *job, err error) {
	cancelled := errors.Is(err, context.Canceled)

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state.Terminal() {
		return
	}
	for i := range j.progress.Phases {
		if j.progress.Phases[i].Status == model.PhaseActive {
			j.progress.Phases[i].Status = model.PhaseError
		}
	}
	msg := err.Error()
	if cancelled {
		msg = "cancelled"
	}
	j.state = model.JobError
	j.failure = &model.JobFailure{Message: msg, CanRetry: !cancelled}
	j.emitLocked(model.EventError)

	c.logger.Warn("job failed",
		zap.String("job_id", j.id),
		zap.String("reason", msg),
		zap.Bool("can_retry", !cancelled))
}

func (c *Controller) decomposer() *agents.Decomposer {
	return agents.NewDecomposer(c.clients.Schema, c.logger)
}

func findingsOf(completed []model.ResearchAgent) []synth.AgentFinding {
	var out []synth.AgentFinding
	for _, a := range completed {
		if a.Status != model.AgentComplete || a.Findings == "" {
			continue
		}
		out = append(out, synth.AgentFinding{
			Name:     a.Name,
			Category: a.Category,
			Findings: a.Findings,
		})
	}
	return out
}

// splitSummary surfaces the executive summary separately from the body
// sections, preserving template order for the rest.
func splitSummary(sections []model.SectionResult) (string, []model.SectionResult) {
	summary := ""
	body := make([]model.SectionResult, 0, len(sections))
	for _, s := range sections {
		if s.ID == model.SectionExecutiveSummary {
			summary = s.Content
			continue
		}
		body = append(body, s)
	}
	return summary, body
}

func countVisuals(sections []model.SectionResult) int {
	n := 0
	var walk func([]model.SectionResult)
	walk = func(secs []model.SectionResult) {
		for _, s := range secs {
			n += len(s.Visuals)
			walk(s.Children)
		}
	}
	walk(sections)
	return n
}

// jobEvents bridges agent runner callbacks into job progress and events.
type jobEvents struct {
	job *job
}

func (e *jobEvents) AgentStarted(agent model.ResearchAgent) {
	j := e.job
	j.mu.Lock()
	defer j.mu.Unlock()
	updateAgentLocked(j, agent)
	j.progress.ActiveAgentID = agent.ID
	j.emitLocked(model.EventStepUpdate)
}

func (e *jobEvents) AgentCompleted(agent model.ResearchAgent) {
	j := e.job
	j.mu.Lock()
	defer j.mu.Unlock()
	updateAgentLocked(j, agent)
	j.progress.TotalSourcesRaw += agent.RawSourceCount
	j.emitLocked(model.EventStepUpdate)
}

func (e *jobEvents) SourceFound(agentID string, source model.Source, totalUnique int) {
	j := e.job
	j.mu.Lock()
	defer j.mu.Unlock()
	j.progress.TotalSources = totalUnique
	j.insightLocked(fmt.Sprintf("source: %s", source.Name))
	j.emitLocked(model.EventSourceFound)
}

func (e *jobEvents) FindingEmerged(agentID string, finding string) {
	j := e.job
	j.mu.Lock()
	defer j.mu.Unlock()
	j.insightLocked(finding)
	j.emitLocked(model.EventFindingEmerged)
}

func updateAgentLocked(j *job, agent model.ResearchAgent) {
	for i := range j.progress.Agents {
		if j.progress.Agents[i].ID == agent.ID {
			j.progress.Agents[i] = agent
			return
		}
	}
	j.progress.Agents = append(j.progress.Agents, agent)
}
