package model

import (
	"encoding/json"
	"time"
)

// Stage is a canonical pipeline stage. Stage transitions are forward-only.
type Stage string

const (
	StagePlan      Stage = "plan"
	StageResearch  Stage = "research"
	StageSynthesis Stage = "synthesis"
	StageDelivery  Stage = "delivery"
	StageComplete  Stage = "complete"
)

// stageOrder fixes the monotone chain over stages.
var stageOrder = []Stage{StagePlan, StageResearch, StageSynthesis, StageDelivery, StageComplete}

// legacyStages maps pre-rename stage names accepted on input to canonical
// names emitted on output.
var legacyStages = map[string]Stage{
	"decomposing":  StagePlan,
	"researching":  StageResearch,
	"synthesizing": StageSynthesis,
}

// CanonicalStage normalises a stage name, accepting legacy aliases.
// Normalising twice yields the same canonical stage. Unknown names are
// returned unchanged.
func CanonicalStage(name string) Stage {
	if s, ok := legacyStages[name]; ok {
		return s
	}
	return Stage(name)
}

// UnmarshalJSON decodes a stage name, normalising legacy aliases so
// snapshots written before the rename stay readable.
func (s *Stage) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*s = CanonicalStage(raw)
	return nil
}

// StageIndex returns the position of s in the canonical chain, or -1.
func StageIndex(s Stage) int {
	for i, st := range stageOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// Stages returns the canonical stage chain in order.
func Stages() []Stage {
	out := make([]Stage, len(stageOrder))
	copy(out, stageOrder)
	return out
}

// PhaseStatus is the lifecycle state of a phase within a stage.
type PhaseStatus string

const (
	PhasePending  PhaseStatus = "pending"
	PhaseActive   PhaseStatus = "active"
	PhaseComplete PhaseStatus = "complete"
	PhaseSkipped  PhaseStatus = "skipped"
	PhaseError    PhaseStatus = "error"
)

// Terminal reports whether the phase can no longer change.
func (s PhaseStatus) Terminal() bool {
	return s == PhaseComplete || s == PhaseSkipped || s == PhaseError
}

// StagePhase is an atomic step within a stage.
type StagePhase struct {
	ID          string      `json:"id"`
	Label       string      `json:"label"`
	Status      PhaseStatus `json:"status"`
	StartedAt   *time.Time  `json:"started_at,omitempty"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	Detail      string      `json:"detail,omitempty"`
}

// Well-known phase ids.
const (
	PhaseDecomposition = "decomposition"
	PhaseDeduplication = "deduplication"
	PhaseAssignment    = "assignment"
	PhaseInternal      = "internal"
	PhaseWeb           = "web"
	PhaseConsolidation = "consolidation"
	PhaseTemplate      = "template"
	PhaseWriting       = "writing"
	PhaseQuality       = "quality"
	PhaseVisuals       = "visuals"
	PhaseAssembly      = "assembly"
	PhasePresentation  = "presentation"
	PhaseExport        = "export"
)

// stagePhases fixes the ordered phase list per canonical stage.
var stagePhases = map[Stage][]StagePhase{
	StagePlan: {
		{ID: PhaseDecomposition, Label: "Decomposing query into research agents"},
		{ID: PhaseDeduplication, Label: "De-duplicating sub-queries"},
		{ID: PhaseAssignment, Label: "Assigning agents"},
	},
	StageResearch: {
		{ID: PhaseInternal, Label: "Mining internal intelligence"},
		{ID: PhaseWeb, Label: "Researching web sources"},
		{ID: PhaseConsolidation, Label: "Consolidating sources"},
	},
	StageSynthesis: {
		{ID: PhaseTemplate, Label: "Applying report template"},
		{ID: PhaseWriting, Label: "Writing sections"},
		{ID: PhaseQuality, Label: "Checking citation quality"},
		{ID: PhaseVisuals, Label: "Extracting visualizations"},
	},
	StageDelivery: {
		{ID: PhaseAssembly, Label: "Assembling report"},
		{ID: PhasePresentation, Label: "Preparing presentation"},
		{ID: PhaseExport, Label: "Finalizing export"},
	},
}

// PhasesFor returns a fresh pending-phase list for the given stage.
func PhasesFor(stage Stage) []StagePhase {
	src := stagePhases[stage]
	out := make([]StagePhase, len(src))
	for i, p := range src {
		p.Status = PhasePending
		out[i] = p
	}
	return out
}
