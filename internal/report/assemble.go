package report

import (
	"fmt"
	"math"
	"math/rand"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/procureiq/deepresearch/internal/model"
)

// AssembleInput carries everything assembly needs from earlier stages.
type AssembleInput struct {
	Query      string
	StudyType  model.StudyType
	Template   model.ReportTemplate
	Title      TitleResult
	Summary    string
	Sections   []model.SectionResult
	Citations  []model.Citation // consolidation order, ids pre-assigned
	Regions    []string
	Timeframe  string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Assemble builds the final report: citation map, references, table of
// contents, quality metrics, and metadata. Citation ids are taken as
// assigned at consolidation and never renumbered.
func Assemble(in AssembleInput) model.Report {
	citations := make(map[string]model.Citation, len(in.Citations))
	for _, c := range in.Citations {
		citations[c.ID] = c
	}

	resolveAndRecordUsage(in.Sections, in.Citations, citations)

	report := model.Report{
		Meta: model.ReportMeta{
			ReportNumber: NewReportNumber(in.FinishedAt),
			Title:        in.Title.Title,
			Subtitle:     in.Title.Subtitle,
			KeyFinding:   in.Title.KeyFinding,
			StudyType:    in.StudyType,
			TemplateID:   in.Template.ID,
			Query:        in.Query,
			Regions:      in.Regions,
			Timeframe:    in.Timeframe,
			GeneratedAt:  in.FinishedAt,
		},
		Summary:    in.Summary,
		TOC:        BuildTOC(in.Sections),
		Sections:   in.Sections,
		Citations:  citations,
		References: BuildReferences(in.Citations),
		Quality:    ComputeQuality(in.Sections, citations),
		Timing: model.Timing{
			StartedAt:   in.StartedAt,
			CompletedAt: in.FinishedAt,
			ElapsedMS:   in.FinishedAt.Sub(in.StartedAt).Milliseconds(),
		},
	}
	return report
}

// resolveAndRecordUsage rewrites each section's citation ids into canonical
// form and records which sections used each citation. Plain numeric markers
// like [3] fall back to positional lookup in consolidation order. The same
// rewrite is applied to the inline markers in section prose, so positional
// markers become canonical and unresolvable ones are stripped.
func resolveAndRecordUsage(sections []model.SectionResult, ordered []model.Citation, citations map[string]model.Citation) {
	var walk func(secs []model.SectionResult)
	walk = func(secs []model.SectionResult) {
		for i := range secs {
			sec := &secs[i]
			var resolved []string
			seen := map[string]bool{}
			for _, id := range sec.CitationIDs {
				canonical := resolveCitationID(id, ordered, citations)
				if canonical == "" || seen[canonical] {
					continue
				}
				seen[canonical] = true
				resolved = append(resolved, canonical)

				c := citations[canonical]
				c.UsedInSections = append(c.UsedInSections, sec.ID)
				citations[canonical] = c
			}
			sec.CitationIDs = resolved
			sec.Content = rewriteContentMarkers(sec.Content, ordered, citations)
			walk(sec.Children)
		}
	}
	walk(sections)
}

var contentMarkerPattern = regexp.MustCompile(`( ?)\[([BW]?\d+)\]`)

// rewriteContentMarkers canonicalises inline citation markers in prose.
// Markers that resolve to no known citation are dropped along with any
// single leading space.
func rewriteContentMarkers(content string, ordered []model.Citation, citations map[string]model.Citation) string {
	return contentMarkerPattern.ReplaceAllStringFunc(content, func(m string) string {
		parts := contentMarkerPattern.FindStringSubmatch(m)
		canonical := resolveCitationID(parts[2], ordered, citations)
		if canonical == "" {
			return ""
		}
		return parts[1] + "[" + canonical + "]"
	})
}

func resolveCitationID(id string, ordered []model.Citation, citations map[string]model.Citation) string {
	if model.CitationClass(id) != 0 {
		if _, ok := citations[id]; ok {
			return id
		}
		return ""
	}
	// Bare [n]: positional, 1-based, in consolidation order.
	n, err := strconv.Atoi(id)
	if err != nil || n < 1 || n > len(ordered) {
		return ""
	}
	return ordered[n-1].ID
}

// BuildReferences orders citations B-class first, then W-class, numeric
// ascending within each class.
func BuildReferences(citations []model.Citation) []model.Reference {
	sorted := make([]model.Citation, len(citations))
	copy(sorted, citations)
	sort.SliceStable(sorted, func(i, j int) bool {
		ci, cj := model.CitationClass(sorted[i].ID), model.CitationClass(sorted[j].ID)
		if ci != cj {
			return ci == 'B'
		}
		return model.CitationNumber(sorted[i].ID) < model.CitationNumber(sorted[j].ID)
	})
	refs := make([]model.Reference, 0, len(sorted))
	for _, c := range sorted {
		refs = append(refs, model.Reference{ID: c.ID, Source: c.Source})
	}
	return refs
}

// BuildTOC emits a pre-order traversal of the section tree.
func BuildTOC(sections []model.SectionResult) []model.TOCEntry {
	var toc []model.TOCEntry
	var walk func(secs []model.SectionResult)
	walk = func(secs []model.SectionResult) {
		for _, s := range secs {
			toc = append(toc, model.TOCEntry{ID: s.ID, Title: s.Title, Level: s.Level})
			walk(s.Children)
		}
	}
	walk(sections)
	return toc
}

// ComputeQuality summarises citation coverage over the flattened sections.
func ComputeQuality(sections []model.SectionResult, citations map[string]model.Citation) model.QualityMetrics {
	total, withCitations := 0, 0
	var walk func(secs []model.SectionResult)
	walk = func(secs []model.SectionResult) {
		for _, s := range secs {
			total++
			if len(s.CitationIDs) > 0 {
				withCitations++
			}
			walk(s.Children)
		}
	}
	walk(sections)

	q := model.QualityMetrics{
		TotalCitations:        len(citations),
		SectionsWithCitations: withCitations,
		TotalSections:         total,
	}
	if total > 0 {
		q.CompletenessScore = int(math.Round(float64(withCitations) / float64(total) * 100))
	}
	return q
}

// NewReportNumber formats "ABI-<YYYY>-<ZZZZ>" where ZZZZ encodes the
// day of year with two random trailing digits.
func NewReportNumber(now time.Time) string {
	z := now.YearDay()*100 + rand.Intn(100)
	return fmt.Sprintf("ABI-%d-%04d", now.Year(), z)
}
