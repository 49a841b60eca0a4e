package report

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/procureiq/deepresearch/internal/model"
)

// Renderer writes an assembled report to disk and to the terminal.
type Renderer struct {
	verbose bool
}

func NewRenderer(verbose bool) *Renderer {
	return &Renderer{verbose: verbose}
}

// RenderJSON writes the full report object as indented JSON.
func (r *Renderer) RenderJSON(rep *model.Report, path string) error {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if r.verbose {
		fmt.Printf("✓ Wrote JSON: %s\n", path)
	}
	return nil
}

// RenderMarkdown writes a readable markdown rendition of the report.
func (r *Renderer) RenderMarkdown(rep *model.Report, path string) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", rep.Meta.Title)
	if rep.Meta.Subtitle != "" {
		fmt.Fprintf(&b, "*%s*\n\n", rep.Meta.Subtitle)
	}
	fmt.Fprintf(&b, "**Report** %s · **Study type** %s · **Generated** %s\n\n",
		rep.Meta.ReportNumber, rep.Meta.StudyType, rep.Meta.GeneratedAt.Format("2006-01-02"))
	if rep.Meta.KeyFinding != "" {
		fmt.Fprintf(&b, "> %s\n\n", rep.Meta.KeyFinding)
	}

	if rep.Summary != "" {
		b.WriteString("## Executive Summary\n\n")
		b.WriteString(rep.Summary)
		b.WriteString("\n\n")
	}

	if len(rep.TOC) > 0 {
		b.WriteString("## Contents\n\n")
		for _, e := range rep.TOC {
			fmt.Fprintf(&b, "%s- %s\n", strings.Repeat("  ", e.Level-1), e.Title)
		}
		b.WriteString("\n")
	}

	renderSections(&b, rep.Sections)

	if len(rep.References) > 0 {
		b.WriteString("## References\n\n")
		for _, ref := range rep.References {
			if ref.Source.URL != "" {
				fmt.Fprintf(&b, "- [%s] %s — %s\n", ref.ID, ref.Source.Name, ref.Source.URL)
			} else {
				fmt.Fprintf(&b, "- [%s] %s\n", ref.ID, ref.Source.Name)
			}
		}
		b.WriteString("\n")
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if r.verbose {
		fmt.Printf("✓ Wrote Markdown: %s\n", path)
	}
	return nil
}

func renderSections(b *strings.Builder, sections []model.SectionResult) {
	for _, sec := range sections {
		fmt.Fprintf(b, "%s %s\n\n", strings.Repeat("#", sec.Level+1), sec.Title)

		before, after := splitVisuals(sec.Visuals)
		renderVisuals(b, before)
		b.WriteString(sec.Content)
		b.WriteString("\n\n")
		renderVisuals(b, after)

		renderSections(b, sec.Children)
	}
}

func splitVisuals(visuals []model.Visual) (before, after []model.Visual) {
	for _, v := range visuals {
		if v.Placement == model.PlaceBeforeProse {
			before = append(before, v)
		} else {
			after = append(after, v)
		}
	}
	return before, after
}

func renderVisuals(b *strings.Builder, visuals []model.Visual) {
	for _, v := range visuals {
		fmt.Fprintf(b, "**%s**\n\n", v.Title)
		switch v.Type {
		case model.VisualTable:
			renderTable(b, v.Table)
		case model.VisualMetric:
			renderMetrics(b, v.Metrics)
		default:
			// Charts carry their payload for downstream renderers.
			data, err := json.MarshalIndent(v, "", "  ")
			if err == nil {
				fmt.Fprintf(b, "```chart\n%s\n```\n\n", data)
			}
		}
		if v.Footnote != "" {
			fmt.Fprintf(b, "*%s*\n\n", v.Footnote)
		}
	}
}

func renderTable(b *strings.Builder, t *model.TableData) {
	if t == nil {
		return
	}
	fmt.Fprintf(b, "| %s |\n", strings.Join(t.Headers, " | "))
	fmt.Fprintf(b, "|%s\n", strings.Repeat(" --- |", len(t.Headers)))
	for _, row := range t.Rows {
		fmt.Fprintf(b, "| %s |\n", strings.Join(row, " | "))
	}
	b.WriteString("\n")
}

func renderMetrics(b *strings.Builder, m *model.MetricGroupData) {
	if m == nil {
		return
	}
	for _, metric := range m.Metrics {
		if metric.Delta != "" {
			fmt.Fprintf(b, "- **%s**: %s (%s)\n", metric.Label, metric.Value, metric.Delta)
		} else {
			fmt.Fprintf(b, "- **%s**: %s\n", metric.Label, metric.Value)
		}
	}
	b.WriteString("\n")
}

// RenderSummary prints a short completion summary to stdout.
func (r *Renderer) RenderSummary(rep *model.Report) {
	fmt.Printf("\n%s\n%s\n\n", rep.Meta.Title, strings.Repeat("=", len(rep.Meta.Title)))
	fmt.Printf("Report number:  %s\n", rep.Meta.ReportNumber)
	fmt.Printf("Study type:     %s\n", rep.Meta.StudyType)
	fmt.Printf("Sections:       %d (%d cited, completeness %d%%)\n",
		rep.Quality.TotalSections, rep.Quality.SectionsWithCitations, rep.Quality.CompletenessScore)
	fmt.Printf("Sources cited:  %d\n", rep.Quality.TotalCitations)
	fmt.Printf("Elapsed:        %.1fs\n", float64(rep.Timing.ElapsedMS)/1000)
}
