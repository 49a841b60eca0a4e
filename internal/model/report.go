package model

import "time"

// SectionResult is one synthesised report section. Title always comes from
// the template, never from the model.
type SectionResult struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Content     string          `json:"content"` // markdown, no headings
	Level       int             `json:"level"`
	CitationIDs []string        `json:"citation_ids,omitempty"`
	Visuals     []Visual        `json:"visuals,omitempty"`
	Children    []SectionResult `json:"children,omitempty"`
}

// TOCEntry is one table-of-contents row.
type TOCEntry struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Level int    `json:"level"`
}

// Reference is one resolved entry in the references list.
type Reference struct {
	ID     string `json:"id"`
	Source Source `json:"source"`
}

// QualityMetrics summarises citation coverage across the report.
type QualityMetrics struct {
	TotalCitations        int `json:"total_citations"`
	SectionsWithCitations int `json:"sections_with_citations"`
	TotalSections         int `json:"total_sections"` // flattened
	CompletenessScore     int `json:"completeness_score"`
}

// Timing records wall-clock bounds of a job.
type Timing struct {
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	ElapsedMS   int64     `json:"elapsed_ms"`
}

// ReportMeta is report-level metadata.
type ReportMeta struct {
	ReportNumber string    `json:"report_number"` // "ABI-<YYYY>-<ZZZZ>"
	Title        string    `json:"title"`
	Subtitle     string    `json:"subtitle,omitempty"`
	KeyFinding   string    `json:"key_finding,omitempty"`
	StudyType    StudyType `json:"study_type"`
	TemplateID   string    `json:"template_id"`
	Query        string    `json:"query"`
	Regions      []string  `json:"regions,omitempty"`
	Timeframe    string    `json:"timeframe,omitempty"`
	GeneratedAt  time.Time `json:"generated_at"`
}

// Report is the assembled deep research output.
type Report struct {
	Meta       ReportMeta          `json:"meta"`
	Summary    string              `json:"summary"` // executive summary, surfaced separately
	TOC        []TOCEntry          `json:"toc"`
	Sections   []SectionResult     `json:"sections"`
	Citations  map[string]Citation `json:"citations"`
	References []Reference         `json:"references"`
	Quality    QualityMetrics      `json:"quality"`
	Timing     Timing              `json:"timing"`
}
