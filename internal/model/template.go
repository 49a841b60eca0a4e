package model

// VisualType is the closed set of visualization kinds.
type VisualType string

const (
	VisualLine   VisualType = "line"
	VisualBar    VisualType = "bar"
	VisualPie    VisualType = "pie"
	VisualTable  VisualType = "table"
	VisualMetric VisualType = "metric"
)

// Placement says where a visual renders relative to section prose.
type Placement string

const (
	PlaceBeforeProse Placement = "before_prose"
	PlaceAfterProse  Placement = "after_prose"
)

// TrendSemantics declares how a chart's direction should be read.
type TrendSemantics string

const (
	TrendUpGood   TrendSemantics = "up_good"
	TrendDownGood TrendSemantics = "down_good"
	TrendNeutral  TrendSemantics = "neutral"
)

// VisualizationSlot is a declared, template-specified place where a visual
// may be produced for a section.
type VisualizationSlot struct {
	SlotID            string         `json:"slot_id" yaml:"slot_id"`
	Type              VisualType     `json:"type" yaml:"type"`
	Title             string         `json:"title" yaml:"title"`
	Description       string         `json:"description,omitempty" yaml:"description,omitempty"`
	Placement         Placement      `json:"placement,omitempty" yaml:"placement,omitempty"`
	MinDataPoints     int            `json:"min_data_points" yaml:"min_data_points"`
	Tags              []string       `json:"tags,omitempty" yaml:"tags,omitempty"`
	StructuredAdapter string         `json:"structured_adapter,omitempty" yaml:"structured_adapter,omitempty"`
	Trend             TrendSemantics `json:"trend,omitempty" yaml:"trend,omitempty"`
}

// SectionTemplate declares one report section: what to write, how many
// citations it should carry, and which visuals it may produce.
type SectionTemplate struct {
	ID           string              `json:"id" yaml:"id"`
	Title        string              `json:"title" yaml:"title"`
	Description  string              `json:"description,omitempty" yaml:"description,omitempty"`
	PromptHints  []string            `json:"prompt_hints,omitempty" yaml:"prompt_hints,omitempty"`
	MinCitations int                 `json:"min_citations" yaml:"min_citations"`
	Slots        []VisualizationSlot `json:"visualization_slots,omitempty" yaml:"visualization_slots,omitempty"`
	Children     []SectionTemplate   `json:"children,omitempty" yaml:"children,omitempty"`
}

// ReportTemplate is a named, ordered set of section templates for one
// study type.
type ReportTemplate struct {
	ID        string            `json:"id" yaml:"id"`
	Name      string            `json:"name" yaml:"name"`
	StudyType StudyType         `json:"study_type" yaml:"study_type"`
	Sections  []SectionTemplate `json:"sections" yaml:"sections"`
}

// Synthetic section ids with special handling.
const (
	SectionExecutiveSummary = "executive_summary"
	SectionReferences       = "references"
)
