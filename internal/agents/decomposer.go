// Package agents decomposes a confirmed query into parallel research agents,
// executes them under bounded concurrency, and consolidates their sources
// into the job's citation pool.
package agents

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/procureiq/deepresearch/internal/llm"
	"github.com/procureiq/deepresearch/internal/model"
)

// Decomposition is the plan-stage output: the de-duplicated agent set plus
// free-form topic tags used downstream for slot filtering.
type Decomposition struct {
	Agents   []model.ResearchAgent
	Tags     []string
	RawCount int // sub-query count before de-duplication
}

// Decomposer produces research agents from an intake-enriched query via one
// schema-JSON call, with a deterministic fallback when the provider fails.
type Decomposer struct {
	schema *llm.SchemaClient
	logger *zap.Logger
}

// NewDecomposer creates a decomposer. logger may be nil.
func NewDecomposer(schema *llm.SchemaClient, logger *zap.Logger) *Decomposer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Decomposer{schema: schema, logger: logger.Named("decomposer")}
}

var decompositionSchema = llm.Object(map[string]*llm.Schema{
	"agents": llm.Array(llm.Object(map[string]*llm.Schema{
		"name":     llm.Str("short agent display name"),
		"query":    llm.Str("focused research sub-query"),
		"category": llm.Enum("research category", categoryNames()...),
	}, "name", "query", "category")),
	"tags": llm.Array(llm.Str("topic tag")),
}, "agents")

func categoryNames() []string {
	names := make([]string, len(model.AgentCategories))
	for i, c := range model.AgentCategories {
		names[i] = string(c)
	}
	return names
}

type decompositionPayload struct {
	Agents []struct {
		Name     string `json:"name"`
		Query    string `json:"query"`
		Category string `json:"category"`
	} `json:"agents"`
	Tags []string `json:"tags"`
}

// Decompose produces the agent plan for a query. It never fails: when the
// schema provider returns nothing usable, a study-type-biased fallback plan
// is used instead.
func (d *Decomposer) Decompose(ctx context.Context, query model.Query, studyType model.StudyType) Decomposition {
	var payload decompositionPayload
	ok := d.schema.ExtractInto(ctx, llm.ExtractRequest{
		Prompt:      decompositionPrompt(query, studyType),
		Schema:      decompositionSchema,
		Temperature: 0.4,
	}, &payload)
	if !ok || len(payload.Agents) == 0 {
		d.logger.Warn("decomposition fell back to deterministic plan",
			zap.String("study_type", string(studyType)))
		payload = fallbackDecomposition(query, studyType)
	}

	raw := len(payload.Agents)
	seen := make(map[string]bool, raw)
	var out []model.ResearchAgent
	for _, a := range payload.Agents {
		category := model.ParseAgentCategory(a.Category)
		key := normalizeSubQuery(a.Query) + "|" + string(category)
		if a.Query == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, model.ResearchAgent{
			ID:       fmt.Sprintf("agent-%d", len(out)+1),
			Name:     a.Name,
			SubQuery: a.Query,
			Category: category,
			Status:   model.AgentQueued,
		})
	}

	return Decomposition{Agents: out, Tags: dedupeTags(payload.Tags), RawCount: raw}
}

func decompositionPrompt(query model.Query, studyType model.StudyType) string {
	var b strings.Builder
	b.WriteString("Decompose the following procurement research request into 3-6 focused research agents.\n")
	b.WriteString("Each agent gets one self-contained sub-query covering a distinct angle; avoid overlap.\n")
	b.WriteString("Also return 3-8 short topic tags describing the request.\n\n")
	fmt.Fprintf(&b, "Study type: %s\n", studyType)
	fmt.Fprintf(&b, "Request: %s\n", query.Text)
	if regions := query.Intake.Regions(); len(regions) > 0 {
		fmt.Fprintf(&b, "Regions in scope: %s\n", strings.Join(regions, ", "))
	}
	if tf := query.Intake.Timeframe(); tf != "" {
		fmt.Fprintf(&b, "Timeframe: %s\n", tf)
	}
	if obj := query.Intake.First(model.IntakeObjectives); obj != "" {
		fmt.Fprintf(&b, "Objectives: %s\n", obj)
	}
	return b.String()
}

// fallbackDecomposition builds a deterministic agent plan when the schema
// provider is unavailable.
func fallbackDecomposition(query model.Query, studyType model.StudyType) decompositionPayload {
	type seed struct {
		name, suffix string
		category     model.AgentCategory
	}
	base := []seed{
		{"Market Dynamics", "market size, growth and demand drivers", model.CategoryMarketDynamics},
		{"Supplier Landscape", "major suppliers, capacity and regional footprint", model.CategorySupplierLandscape},
		{"Pricing Trends", "price history, current levels and outlook", model.CategoryPricingTrends},
		{"Risk Factors", "supply, regulatory and geopolitical risks", model.CategoryRiskFactors},
	}
	switch studyType {
	case model.StudyCostModel:
		base[0] = seed{"Cost Structure", "cost breakdown and major input cost drivers", model.CategoryPricingTrends}
	case model.StudySupplierAssessment:
		base[3] = seed{"Supplier Financials", "financial health and stability of key suppliers", model.CategorySupplierLandscape}
	case model.StudyRiskAssessment:
		base[0] = seed{"Disruption Scenarios", "recent disruptions and exposure scenarios", model.CategoryRiskFactors}
	}

	var payload decompositionPayload
	for _, s := range base {
		payload.Agents = append(payload.Agents, struct {
			Name     string `json:"name"`
			Query    string `json:"query"`
			Category string `json:"category"`
		}{
			Name:     s.name,
			Query:    fmt.Sprintf("%s: %s", query.Text, s.suffix),
			Category: string(s.category),
		})
	}
	payload.Tags = []string{string(studyType)}
	return payload
}

// normalizeSubQuery canonicalises a sub-query for de-duplication.
func normalizeSubQuery(q string) string {
	fields := strings.Fields(strings.ToLower(q))
	for i, f := range fields {
		fields[i] = strings.Trim(f, ".,;:!?\"'()")
	}
	return strings.Join(fields, " ")
}

func dedupeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	var out []string
	for _, t := range tags {
		key := strings.ToLower(strings.TrimSpace(t))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, strings.TrimSpace(t))
	}
	return out
}
