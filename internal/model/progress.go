package model

import "time"

// JobState is the externally visible lifecycle of a deep research job.
type JobState string

const (
	JobIntake     JobState = "intake"
	JobProcessing JobState = "processing"
	JobComplete   JobState = "complete"
	JobError      JobState = "error"
)

// Terminal reports whether the job can no longer change state.
func (s JobState) Terminal() bool {
	return s == JobComplete || s == JobError
}

// SynthesisProgress tracks the synthesis stage in more detail.
type SynthesisProgress struct {
	SectionsTotal   int    `json:"sections_total"`
	SectionsDone    int    `json:"sections_done"`
	Regenerations   int    `json:"regenerations"`
	VisualsAccepted int    `json:"visuals_accepted"`
	CurrentSection  string `json:"current_section,omitempty"`
}

// CommandCenterProgress is the job's progress snapshot. Fields only grow;
// observers may replay snapshots idempotently.
type CommandCenterProgress struct {
	Stage           Stage              `json:"stage"`
	Phases          []StagePhase       `json:"phases"`
	CompletedStages []Stage            `json:"completed_stages,omitempty"`
	Agents          []ResearchAgent    `json:"agents,omitempty"`
	ActiveAgentID   string             `json:"active_agent_id,omitempty"`
	TotalSources    int                `json:"total_sources"`
	TotalSourcesRaw int                `json:"total_sources_raw"`
	Tags            []string           `json:"tags,omitempty"`
	InsightStream   []string           `json:"insight_stream,omitempty"`
	StartedAt       time.Time          `json:"started_at"`
	ElapsedMS       int64              `json:"elapsed_ms"`
	Synthesis       *SynthesisProgress `json:"synthesis,omitempty"`
}

// JobFailure carries a user-visible failure.
type JobFailure struct {
	Message  string `json:"message"`
	CanRetry bool   `json:"can_retry"`
}

// DeepResearchResponse is the snapshot returned to callers and carried on
// progress events.
type DeepResearchResponse struct {
	JobID     string                 `json:"job_id"`
	State     JobState               `json:"state"`
	StudyType StudyType              `json:"study_type"`
	Questions []ClarifyingQuestion   `json:"questions,omitempty"`
	Progress  *CommandCenterProgress `json:"progress,omitempty"`
	Report    *Report                `json:"report,omitempty"`
	Error     *JobFailure            `json:"error,omitempty"`
}

// EventType classifies progress events pushed to observers.
type EventType string

const (
	EventPhaseChange    EventType = "phase_change"
	EventStepUpdate     EventType = "step_update"
	EventSourceFound    EventType = "source_found"
	EventFindingEmerged EventType = "finding_emerged"
	EventReportReady    EventType = "report_ready"
	EventError          EventType = "error"
)

// ProgressEvent is one observer notification. Seq is monotone per job; no
// sequence number is ever re-emitted.
type ProgressEvent struct {
	Type      EventType            `json:"type"`
	JobID     string               `json:"job_id"`
	Seq       int                  `json:"seq"`
	Timestamp time.Time            `json:"timestamp"`
	Data      DeepResearchResponse `json:"data"`
}
