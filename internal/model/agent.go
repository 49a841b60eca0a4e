package model

import "time"

// AgentStatus is the lifecycle state of a research agent.
type AgentStatus string

const (
	AgentQueued   AgentStatus = "queued"
	AgentRunning  AgentStatus = "running"
	AgentComplete AgentStatus = "complete"
	AgentError    AgentStatus = "error"
)

// AgentCategory is the closed set of research agent categories produced by
// query decomposition.
type AgentCategory string

const (
	CategoryMarketDynamics          AgentCategory = "market_dynamics"
	CategorySupplierLandscape       AgentCategory = "supplier_landscape"
	CategoryPricingTrends           AgentCategory = "pricing_trends"
	CategoryRiskFactors             AgentCategory = "risk_factors"
	CategoryRegulatory              AgentCategory = "regulatory"
	CategoryCompetitiveIntelligence AgentCategory = "competitive_intelligence"
	CategoryTechnologyTrends        AgentCategory = "technology_trends"
	CategoryGeneral                 AgentCategory = "general"
)

// AgentCategories lists the closed category set.
var AgentCategories = []AgentCategory{
	CategoryMarketDynamics,
	CategorySupplierLandscape,
	CategoryPricingTrends,
	CategoryRiskFactors,
	CategoryRegulatory,
	CategoryCompetitiveIntelligence,
	CategoryTechnologyTrends,
	CategoryGeneral,
}

// ParseAgentCategory maps free-form model output onto the closed set,
// defaulting to general.
func ParseAgentCategory(raw string) AgentCategory {
	c := AgentCategory(raw)
	for _, known := range AgentCategories {
		if c == known {
			return c
		}
	}
	return CategoryGeneral
}

// ResearchAgent is a single sub-query plus its execution state and result.
type ResearchAgent struct {
	ID                string        `json:"id"`
	Name              string        `json:"name"`
	SubQuery          string        `json:"sub_query"`
	Category          AgentCategory `json:"category"`
	Status            AgentStatus   `json:"status"`
	RawSourceCount    int           `json:"raw_source_count"`
	UniqueSourceCount int           `json:"unique_source_count"`
	Findings          string        `json:"findings,omitempty"`
	Sources           []Source      `json:"sources,omitempty"`
	Error             string        `json:"error,omitempty"`
	StartedAt         *time.Time    `json:"started_at,omitempty"`
	CompletedAt       *time.Time    `json:"completed_at,omitempty"`
}
