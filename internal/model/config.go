package model

import "time"

// Config is the complete runtime configuration. Values resolve in the usual
// hierarchy: flags > environment (DEEPRESEARCH_*) > config file > defaults.
type Config struct {
	Reasoner  ReasonerConfig         `yaml:"reasoner"`
	Schema    SchemaConfig           `yaml:"schema"`
	Pipeline  PipelineConfig         `yaml:"pipeline"`
	Cache     CacheConfig            `yaml:"cache"`
	Estimates map[StudyType]Estimate `yaml:"estimates"`
	Output    OutputConfig           `yaml:"output"`
}

// ReasonerConfig configures the reasoner/chat provider (OpenAI-compatible).
type ReasonerConfig struct {
	BaseURL       string  `yaml:"base_url"`
	APIKey        string  `yaml:"api_key"`
	ReasonerModel string  `yaml:"reasoner_model"`
	ChatModel     string  `yaml:"chat_model"`
	MaxTokens     int     `yaml:"max_tokens"`
	RateRPS       float64 `yaml:"rate_rps"`
	RateBurst     int     `yaml:"rate_burst"`
}

// SchemaConfig configures the schema-enforcing JSON provider.
type SchemaConfig struct {
	BaseURL   string  `yaml:"base_url"`
	APIKey    string  `yaml:"api_key"`
	Model     string  `yaml:"model"`
	MaxTokens int     `yaml:"max_tokens"`
	RateRPS   float64 `yaml:"rate_rps"`
	RateBurst int     `yaml:"rate_burst"`
}

// PipelineConfig holds concurrency caps, deadlines, and budgets.
type PipelineConfig struct {
	AgentConcurrency      int           `yaml:"agent_concurrency"`
	SectionConcurrency    int           `yaml:"section_concurrency"`
	ExtractionConcurrency int           `yaml:"extraction_concurrency"`
	RegenerationBudget    int           `yaml:"regeneration_budget"`
	QuickReasonTimeout    time.Duration `yaml:"quick_reason_timeout"`
	ExtractionTimeout     time.Duration `yaml:"extraction_timeout"`
	SectionTimeout        time.Duration `yaml:"section_timeout"`
	SynthesisCeiling      time.Duration `yaml:"synthesis_ceiling"`
	RequireInternal       bool          `yaml:"require_internal"`
}

// CacheConfig controls the schema-response memory cache.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	TTL     time.Duration `yaml:"ttl"`
}

// Estimate is the advertised cost of a deep research run. Policy, not core:
// the numbers live in configuration.
type Estimate struct {
	Credits int `yaml:"credits"`
	Minutes int `yaml:"minutes"`
}

// OutputConfig controls CLI output behaviour.
type OutputConfig struct {
	Verbose bool `yaml:"verbose"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Reasoner: ReasonerConfig{
			ReasonerModel: "deepseek-reasoner",
			ChatModel:     "deepseek-chat",
			MaxTokens:     4000,
			RateRPS:       5,
			RateBurst:     10,
		},
		Schema: SchemaConfig{
			Model:     "gemini-2.0-flash",
			MaxTokens: 4000,
			RateRPS:   5,
			RateBurst: 10,
		},
		Pipeline: PipelineConfig{
			AgentConcurrency:      3,
			SectionConcurrency:    2,
			ExtractionConcurrency: 3,
			RegenerationBudget:    2,
			QuickReasonTimeout:    30 * time.Second,
			ExtractionTimeout:     45 * time.Second,
			SectionTimeout:        30 * time.Second,
			SynthesisCeiling:      120 * time.Second,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     15 * time.Minute,
		},
		Estimates: map[StudyType]Estimate{
			StudyMarketAnalysis:     {Credits: 45, Minutes: 12},
			StudySourcingStudy:      {Credits: 60, Minutes: 15},
			StudyCostModel:          {Credits: 55, Minutes: 14},
			StudySupplierAssessment: {Credits: 50, Minutes: 12},
			StudyRiskAssessment:     {Credits: 50, Minutes: 13},
			StudyCustom:             {Credits: 40, Minutes: 10},
		},
	}
}
