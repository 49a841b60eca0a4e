package agents

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/procureiq/deepresearch/internal/llm"
	"github.com/procureiq/deepresearch/internal/model"
)

// Researcher executes one agent's sub-query, producing prose findings plus
// the sources behind them.
type Researcher interface {
	Research(ctx context.Context, agent model.ResearchAgent) (findings string, sources []model.Source, err error)
}

// LLMResearcher runs sub-queries against the search-grounded chat model and
// parses the mandated SOURCES block out of the response.
type LLMResearcher struct {
	reasoner llm.Reasoner
}

// NewLLMResearcher creates a researcher over the chat provider.
func NewLLMResearcher(reasoner llm.Reasoner) *LLMResearcher {
	return &LLMResearcher{reasoner: reasoner}
}

const researcherSystemPrompt = `You are a procurement research agent with web search. Research the query and respond with:
1. Focused prose findings (3-6 paragraphs). Concrete facts, figures, named companies.
2. A final block starting with the exact line "SOURCES:" listing every source you used, one per line, formatted as:
- <source name> | <url> | <web or internal>
Use "internal" only for proprietary procurement intelligence; everything found online is "web".`

// Research runs the agent's sub-query.
func (r *LLMResearcher) Research(ctx context.Context, agent model.ResearchAgent) (string, []model.Source, error) {
	resp, err := r.reasoner.Complete(ctx, llm.ChatRequest{
		Model: llm.ModelChat,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: researcherSystemPrompt},
			{Role: llm.RoleUser, Content: fmt.Sprintf("Research focus: %s\n\nQuery: %s", agent.Category, agent.SubQuery)},
		},
		Temperature: 0.5,
	})
	if err != nil {
		return "", nil, fmt.Errorf("agent %s research: %w", agent.ID, err)
	}
	findings, sources := splitFindings(resp.Content)
	return findings, sources, nil
}

var sourceLine = regexp.MustCompile(`^[-*]\s*(.+)$`)

// splitFindings separates the prose findings from the trailing SOURCES block.
func splitFindings(content string) (string, []model.Source) {
	idx := strings.LastIndex(content, "SOURCES:")
	if idx < 0 {
		return strings.TrimSpace(content), nil
	}
	findings := strings.TrimSpace(content[:idx])
	var sources []model.Source
	for _, line := range strings.Split(content[idx+len("SOURCES:"):], "\n") {
		m := sourceLine.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		if src, ok := parseSourceLine(m[1]); ok {
			sources = append(sources, src)
		}
	}
	return findings, sources
}

// parseSourceLine parses "name | url | kind", tolerating missing fields.
func parseSourceLine(line string) (model.Source, bool) {
	parts := strings.Split(line, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if parts[0] == "" {
		return model.Source{}, false
	}
	src := model.Source{Type: model.SourceWeb, Name: parts[0]}
	if len(parts) > 1 && looksLikeURL(parts[1]) {
		src.URL = parts[1]
	}
	if len(parts) > 2 {
		switch strings.ToLower(parts[2]) {
		case "internal":
			src.Type = model.SourceInternal
		case "beroe":
			src.Type = model.SourceBeroe
		}
	}
	if src.URL == "" && src.Type == model.SourceWeb && len(parts) == 1 {
		// A bare name with no URL is not attributable as a web source.
		return model.Source{}, false
	}
	return src, true
}

func looksLikeURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
