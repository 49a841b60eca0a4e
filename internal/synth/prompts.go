package synth

import (
	"fmt"
	"strings"

	"github.com/procureiq/deepresearch/internal/model"
)

// maxFindingsChars bounds how much agent prose goes into a section prompt.
const maxFindingsChars = 8000

// AgentFinding is one completed agent's contribution to synthesis.
type AgentFinding struct {
	Name     string
	Category model.AgentCategory
	Findings string
}

// JobContext carries everything a section prompt embeds about the job.
type JobContext struct {
	StudyType model.StudyType
	Query     string
	Regions   []string
	Timeframe string
	Citations []model.Citation
	Findings  []AgentFinding
}

// sectionSystemPrompt builds the system prompt for one section.
func sectionSystemPrompt(tpl model.SectionTemplate, job JobContext) string {
	var b strings.Builder
	b.WriteString("You are writing one section of a procurement research report.\n\n")
	fmt.Fprintf(&b, "Study type: %s\n", job.StudyType)
	if len(job.Regions) > 0 {
		fmt.Fprintf(&b, "Regions: %s\n", strings.Join(job.Regions, ", "))
	}
	if job.Timeframe != "" {
		fmt.Fprintf(&b, "Timeframe: %s\n", job.Timeframe)
	}
	fmt.Fprintf(&b, "\nSection: %s\n", tpl.Title)
	if tpl.Description != "" {
		fmt.Fprintf(&b, "Scope: %s\n", tpl.Description)
	}
	for _, hint := range tpl.PromptHints {
		fmt.Fprintf(&b, "- %s\n", hint)
	}
	fmt.Fprintf(&b, "\nCite at least %d distinct sources.\n", tpl.MinCitations)
	b.WriteString(citationInstructions(job.Citations))
	b.WriteString(`
Formatting rules:
- Markdown body text only. No headings of any kind.
- Do not repeat the section title.
- Place citation markers like [B1] or [W3] directly after the fact they support.
`)
	return b.String()
}

// citationInstructions lists the available sources with their assigned ids.
func citationInstructions(citations []model.Citation) string {
	if len(citations) == 0 {
		return "\nNo sources are available; write cautiously and avoid fabricating citations.\n"
	}
	var b strings.Builder
	b.WriteString("\nAvailable sources (cite ONLY these, using the exact bracketed id):\n")
	for _, c := range citations {
		line := c.Source.Name
		if c.Source.URL != "" {
			line += " - " + c.Source.URL
		}
		fmt.Fprintf(&b, "[%s] %s\n", c.ID, line)
	}
	return b.String()
}

// sectionUserPrompt carries the consolidated research findings.
func sectionUserPrompt(job JobContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Original request: %s\n\nResearch findings by agent:\n", job.Query)
	for _, f := range job.Findings {
		fmt.Fprintf(&b, "\n### %s (%s)\n%s\n", f.Name, f.Category, f.Findings)
		if b.Len() > maxFindingsChars {
			break
		}
	}
	out := b.String()
	if len(out) > maxFindingsChars {
		out = out[:maxFindingsChars]
	}
	return out
}

// regenerationHints appends the deficit feedback for a retry.
func regenerationHints(tpl model.SectionTemplate, observed int) []string {
	return append(tpl.PromptHints,
		fmt.Sprintf("IMPORTANT: cite at least %d distinct sources with bracketed ids", tpl.MinCitations),
		fmt.Sprintf("Your previous draft cited only %d source(s); that is %d short", observed, tpl.MinCitations-observed),
	)
}
