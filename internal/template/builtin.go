package template

import "github.com/procureiq/deepresearch/internal/model"

// execSummary is the leading section every template shares.
func execSummary() model.SectionTemplate {
	return model.SectionTemplate{
		ID:          model.SectionExecutiveSummary,
		Title:       "Executive Summary",
		Description: "The headline findings, framed for a procurement decision maker.",
		PromptHints: []string{
			"Lead with the most decision-relevant finding",
			"Quantify wherever the research allows",
		},
		MinCitations: 2,
		Slots: []model.VisualizationSlot{
			{
				SlotID:        "exec_key_metrics",
				Type:          model.VisualMetric,
				Title:         "Key Indicators",
				Placement:     model.PlaceBeforeProse,
				MinDataPoints: 2,
			},
		},
	}
}

// references is the synthetic trailing section; it is never synthesised.
func references() model.SectionTemplate {
	return model.SectionTemplate{
		ID:    model.SectionReferences,
		Title: "References",
	}
}

func builtinTemplates() []model.ReportTemplate {
	return []model.ReportTemplate{
		marketAnalysisTemplate(),
		sourcingStudyTemplate(),
		costModelTemplate(),
		supplierAssessmentTemplate(),
		riskAssessmentTemplate(),
		customTemplate(),
	}
}

func marketAnalysisTemplate() model.ReportTemplate {
	return model.ReportTemplate{
		ID:        "market_analysis_v1",
		Name:      "Market Analysis",
		StudyType: model.StudyMarketAnalysis,
		Sections: []model.SectionTemplate{
			execSummary(),
			{
				ID:          "market_overview",
				Title:       "Market Overview",
				Description: "Market size, growth trajectory, and structural drivers.",
				PromptHints: []string{
					"Include market size estimates with currency and year",
					"Name the demand drivers explicitly",
				},
				MinCitations: 4,
				Slots: []model.VisualizationSlot{
					{
						SlotID:            "market_size_trend",
						Type:              model.VisualLine,
						Title:             "Market Size Trend",
						Description:       "Market value over time",
						Placement:         model.PlaceAfterProse,
						MinDataPoints:     3,
						Tags:              []string{"market", "size", "growth"},
						StructuredAdapter: "market_size_series",
					},
					{
						SlotID:        "regional_split",
						Type:          model.VisualPie,
						Title:         "Regional Demand Split",
						Placement:     model.PlaceAfterProse,
						MinDataPoints: 2,
						Tags:          []string{"region", "demand", "share"},
					},
				},
			},
			{
				ID:          "pricing_dynamics",
				Title:       "Pricing Dynamics",
				Description: "Price history, current levels, and forward outlook.",
				PromptHints: []string{
					"Separate spot movements from contract trends",
				},
				MinCitations: 4,
				Slots: []model.VisualizationSlot{
					{
						SlotID:            "price_trend",
						Type:              model.VisualLine,
						Title:             "Price Trend",
						Placement:         model.PlaceBeforeProse,
						MinDataPoints:     3,
						Tags:              []string{"price", "cost", "index"},
						StructuredAdapter: "price_history",
						Trend:             model.TrendDownGood,
					},
					{
						SlotID:        "cost_drivers",
						Type:          model.VisualTable,
						Title:         "Cost Driver Summary",
						Placement:     model.PlaceAfterProse,
						MinDataPoints: 2,
						Tags:          []string{"cost", "driver", "input"},
					},
				},
			},
			{
				ID:          "supply_landscape",
				Title:       "Supply Landscape",
				Description: "Supplier base structure, capacity, and concentration.",
				MinCitations: 3,
				Slots: []model.VisualizationSlot{
					{
						SlotID:            "supplier_share",
						Type:              model.VisualBar,
						Title:             "Supplier Market Share",
						Placement:         model.PlaceAfterProse,
						MinDataPoints:     2,
						Tags:              []string{"supplier", "share", "capacity"},
						StructuredAdapter: "supplier_share",
					},
				},
			},
			{
				ID:           "demand_outlook",
				Title:        "Demand Outlook",
				Description:  "Forward demand signals and scenario considerations.",
				MinCitations: 3,
			},
			{
				ID:           "recommendations",
				Title:        "Recommendations",
				Description:  "Actionable guidance derived from the findings.",
				PromptHints:  []string{"Keep each recommendation tied to a cited finding"},
				MinCitations: 2,
			},
			references(),
		},
	}
}

func sourcingStudyTemplate() model.ReportTemplate {
	return model.ReportTemplate{
		ID:        "sourcing_study_v1",
		Name:      "Sourcing Study",
		StudyType: model.StudySourcingStudy,
		Sections: []model.SectionTemplate{
			execSummary(),
			{
				ID:           "category_profile",
				Title:        "Category Profile",
				Description:  "Category definition, spend characteristics, and specification landscape.",
				MinCitations: 3,
			},
			{
				ID:          "supplier_landscape",
				Title:       "Supplier Landscape",
				Description: "Qualified supplier universe by region and capability.",
				MinCitations: 4,
				Slots: []model.VisualizationSlot{
					{
						SlotID:            "supplier_comparison",
						Type:              model.VisualTable,
						Title:             "Supplier Comparison",
						Placement:         model.PlaceAfterProse,
						MinDataPoints:     2,
						Tags:              []string{"supplier", "capability", "region"},
						StructuredAdapter: "supplier_table",
					},
					{
						SlotID:        "regional_capacity",
						Type:          model.VisualBar,
						Title:         "Regional Capacity",
						Placement:     model.PlaceAfterProse,
						MinDataPoints: 2,
						Tags:          []string{"region", "capacity"},
					},
				},
			},
			{
				ID:          "sourcing_options",
				Title:       "Sourcing Options",
				Description: "Sourcing models, trade-offs, and switching considerations.",
				PromptHints: []string{
					"Contrast single-source, dual-source, and regional strategies",
				},
				MinCitations: 3,
			},
			{
				ID:          "cost_and_price",
				Title:       "Cost and Price Considerations",
				Description: "Price benchmarks and negotiation levers.",
				MinCitations: 3,
				Slots: []model.VisualizationSlot{
					{
						SlotID:            "price_benchmark",
						Type:              model.VisualLine,
						Title:             "Price Benchmark",
						Placement:        model.PlaceAfterProse,
						MinDataPoints:     3,
						Tags:              []string{"price", "benchmark"},
						StructuredAdapter: "price_history",
					},
				},
			},
			{
				ID:           "recommendations",
				Title:        "Sourcing Recommendations",
				Description:  "Recommended sourcing strategy with rationale.",
				MinCitations: 2,
			},
			references(),
		},
	}
}

func costModelTemplate() model.ReportTemplate {
	return model.ReportTemplate{
		ID:        "cost_model_v1",
		Name:      "Cost Model",
		StudyType: model.StudyCostModel,
		Sections: []model.SectionTemplate{
			execSummary(),
			{
				ID:          "cost_structure",
				Title:       "Cost Structure",
				Description: "Should-cost breakdown by input, conversion, and logistics.",
				PromptHints: []string{
					"Express cost elements as a share of total where possible",
				},
				MinCitations: 4,
				Slots: []model.VisualizationSlot{
					{
						SlotID:            "cost_breakdown",
						Type:              model.VisualPie,
						Title:             "Cost Breakdown",
						Placement:         model.PlaceBeforeProse,
						MinDataPoints:     2,
						Tags:              []string{"cost", "breakdown", "share"},
						StructuredAdapter: "cost_breakdown",
					},
				},
			},
			{
				ID:          "input_drivers",
				Title:       "Input Cost Drivers",
				Description: "Raw material and energy indices driving the model.",
				MinCitations: 3,
				Slots: []model.VisualizationSlot{
					{
						SlotID:            "input_indices",
						Type:              model.VisualLine,
						Title:             "Input Cost Indices",
						Placement:         model.PlaceAfterProse,
						MinDataPoints:     3,
						Tags:              []string{"input", "index", "raw material", "energy"},
						StructuredAdapter: "price_history",
					},
				},
			},
			{
				ID:           "regional_comparison",
				Title:        "Regional Cost Comparison",
				Description:  "Landed cost comparison across supply regions.",
				MinCitations: 3,
				Slots: []model.VisualizationSlot{
					{
						SlotID:        "regional_costs",
						Type:          model.VisualBar,
						Title:         "Landed Cost by Region",
						Placement:     model.PlaceAfterProse,
						MinDataPoints: 2,
						Tags:          []string{"region", "landed", "cost"},
					},
				},
			},
			{
				ID:           "negotiation_levers",
				Title:        "Negotiation Levers",
				Description:  "Where the model shows negotiable headroom.",
				MinCitations: 2,
			},
			references(),
		},
	}
}

func supplierAssessmentTemplate() model.ReportTemplate {
	return model.ReportTemplate{
		ID:        "supplier_assessment_v1",
		Name:      "Supplier Assessment",
		StudyType: model.StudySupplierAssessment,
		Sections: []model.SectionTemplate{
			execSummary(),
			{
				ID:           "supplier_profiles",
				Title:        "Supplier Profiles",
				Description:  "Capability, scale, and footprint of each assessed supplier.",
				MinCitations: 4,
				Slots: []model.VisualizationSlot{
					{
						SlotID:            "assessment_scorecard",
						Type:              model.VisualTable,
						Title:             "Assessment Scorecard",
						Placement:         model.PlaceAfterProse,
						MinDataPoints:     2,
						Tags:              []string{"supplier", "score", "capability"},
						StructuredAdapter: "supplier_table",
					},
				},
			},
			{
				ID:           "financial_health",
				Title:        "Financial Health",
				Description:  "Financial stability signals for the assessed suppliers.",
				MinCitations: 3,
				Slots: []model.VisualizationSlot{
					{
						SlotID:        "financial_metrics",
						Type:          model.VisualMetric,
						Title:         "Financial Indicators",
						Placement:     model.PlaceAfterProse,
						MinDataPoints: 2,
						Tags:          []string{"revenue", "margin", "financial"},
					},
				},
			},
			{
				ID:           "capability_gaps",
				Title:        "Capability Gaps and Risks",
				Description:  "Where the assessed suppliers fall short of requirements.",
				MinCitations: 2,
			},
			{
				ID:           "recommendations",
				Title:        "Assessment Recommendations",
				Description:  "Qualification and development recommendations.",
				MinCitations: 2,
			},
			references(),
		},
	}
}

func riskAssessmentTemplate() model.ReportTemplate {
	return model.ReportTemplate{
		ID:        "risk_assessment_v1",
		Name:      "Risk Assessment",
		StudyType: model.StudyRiskAssessment,
		Sections: []model.SectionTemplate{
			execSummary(),
			{
				ID:           "risk_landscape",
				Title:        "Risk Landscape",
				Description:  "Supply, price, regulatory, and geopolitical exposure.",
				MinCitations: 4,
				Slots: []model.VisualizationSlot{
					{
						SlotID:            "risk_matrix",
						Type:              model.VisualTable,
						Title:             "Risk Matrix",
						Placement:         model.PlaceAfterProse,
						MinDataPoints:     2,
						Tags:              []string{"risk", "exposure", "likelihood"},
						StructuredAdapter: "risk_matrix",
					},
				},
			},
			{
				ID:           "supply_concentration",
				Title:        "Supply Concentration",
				Description:  "Geographic and supplier concentration of supply.",
				MinCitations: 3,
				Slots: []model.VisualizationSlot{
					{
						SlotID:        "concentration_split",
						Type:          model.VisualPie,
						Title:         "Supply Concentration",
						Placement:     model.PlaceAfterProse,
						MinDataPoints: 2,
						Tags:          []string{"concentration", "region", "share"},
					},
				},
			},
			{
				ID:           "scenario_outlook",
				Title:        "Scenario Outlook",
				Description:  "Plausible disruption scenarios and their impact.",
				MinCitations: 3,
			},
			{
				ID:           "mitigations",
				Title:        "Mitigation Actions",
				Description:  "Concrete mitigations ranked by effort and impact.",
				MinCitations: 2,
			},
			references(),
		},
	}
}

func customTemplate() model.ReportTemplate {
	return model.ReportTemplate{
		ID:        "custom_v1",
		Name:      "Custom Research",
		StudyType: model.StudyCustom,
		Sections: []model.SectionTemplate{
			execSummary(),
			{
				ID:           "findings",
				Title:        "Key Findings",
				Description:  "The main findings of the research, organised by theme.",
				MinCitations: 4,
				Slots: []model.VisualizationSlot{
					{
						SlotID:        "findings_metrics",
						Type:          model.VisualMetric,
						Title:         "Headline Figures",
						Placement:     model.PlaceAfterProse,
						MinDataPoints: 2,
					},
				},
			},
			{
				ID:           "analysis",
				Title:        "Analysis",
				Description:  "Interpretation of the findings in the user's context.",
				MinCitations: 3,
			},
			{
				ID:           "recommendations",
				Title:        "Recommendations",
				Description:  "Next steps supported by the research.",
				MinCitations: 2,
			},
			references(),
		},
	}
}
