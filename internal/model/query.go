package model

// StudyType is the closed set of report categories. Each study type maps to
// its own report template and prompt biases.
type StudyType string

const (
	StudyMarketAnalysis     StudyType = "market_analysis"
	StudySourcingStudy      StudyType = "sourcing_study"
	StudyCostModel          StudyType = "cost_model"
	StudySupplierAssessment StudyType = "supplier_assessment"
	StudyRiskAssessment     StudyType = "risk_assessment"
	StudyCustom             StudyType = "custom"
)

// StudyTypes lists all valid study types in display order.
var StudyTypes = []StudyType{
	StudyMarketAnalysis,
	StudySourcingStudy,
	StudyCostModel,
	StudySupplierAssessment,
	StudyRiskAssessment,
	StudyCustom,
}

// Valid reports whether t is one of the closed set.
func (t StudyType) Valid() bool {
	for _, s := range StudyTypes {
		if t == s {
			return true
		}
	}
	return false
}

// Query is the raw user utterance plus any intake answers collected before
// processing starts. Immutable once a job starts.
type Query struct {
	Text   string        `json:"text"`
	Intake IntakeAnswers `json:"intake,omitempty"`
}

// IntakeAnswers maps clarifying-question id to the user's answer(s).
// Single-valued answers are stored as one-element slices.
type IntakeAnswers map[string][]string

// First returns the first answer for the given question id, or "".
func (a IntakeAnswers) First(id string) string {
	if vals, ok := a[id]; ok && len(vals) > 0 {
		return vals[0]
	}
	return ""
}

// All returns every answer for the given question id.
func (a IntakeAnswers) All(id string) []string {
	return a[id]
}

// Set stores a single-valued answer.
func (a IntakeAnswers) Set(id, value string) {
	a[id] = []string{value}
}

// Well-known intake question ids used by the built-in question sets.
const (
	IntakeCategory   = "category"
	IntakeRegions    = "regions"
	IntakeTimeframe  = "timeframe"
	IntakeVolume     = "volume"
	IntakeObjectives = "objectives"
	IntakeStudyType  = "study_type"
)

// Regions returns the regions answer, if any.
func (a IntakeAnswers) Regions() []string { return a[IntakeRegions] }

// Timeframe returns the timeframe answer, if any.
func (a IntakeAnswers) Timeframe() string { return a.First(IntakeTimeframe) }

// InputKind is the widget kind a clarifying question renders as.
type InputKind string

const (
	InputSelect         InputKind = "select"
	InputMultiSelect    InputKind = "multiselect"
	InputText           InputKind = "text"
	InputDateRange      InputKind = "date_range"
	InputNumber         InputKind = "number"
	InputCategoryPicker InputKind = "category_picker"
)

// ClarifyingQuestion is a single intake question presented to the user
// before a deep research job starts.
type ClarifyingQuestion struct {
	ID            string    `json:"id"`
	Prompt        string    `json:"prompt"`
	Kind          InputKind `json:"kind"`
	Options       []string  `json:"options,omitempty"`
	Required      bool      `json:"required"`
	Default       string    `json:"default,omitempty"`
	PrefilledFrom string    `json:"prefilled_from,omitempty"` // where a prefill was derived (e.g. "query")
}
