package intent

import (
	"reflect"
	"testing"

	"github.com/procureiq/deepresearch/internal/model"
)

func testScorer() *Scorer {
	return NewScorer(map[model.StudyType]model.Estimate{
		model.StudySourcingStudy:  {Credits: 50, Minutes: 12},
		model.StudyMarketAnalysis: {Credits: 40, Minutes: 10},
	})
}

func TestScorer_ComprehensiveSourcingQuery(t *testing.T) {
	scorer := testScorer()
	result := scorer.Score("Please prepare a comprehensive sourcing study for carbon steel across North America over the next 5-year outlook", nil)

	if result.Score < TriggerThreshold {
		t.Errorf("Expected score >= %.2f, got %.2f", TriggerThreshold, result.Score)
	}
	if !result.ShouldTrigger {
		t.Error("Expected should_trigger = true")
	}
	if result.ShouldSuggest {
		t.Error("Expected should_suggest = false when triggering")
	}
	if result.StudyType != model.StudySourcingStudy {
		t.Errorf("Expected study type sourcing_study, got %s", result.StudyType)
	}
	if result.EstimatedCredits != 50 {
		t.Errorf("Expected 50 estimated credits, got %d", result.EstimatedCredits)
	}
}

func TestScorer_ShortQueryScoresZero(t *testing.T) {
	scorer := testScorer()
	result := scorer.Score("hi", nil)

	if result.Score != 0 {
		t.Errorf("Expected score 0 for short query, got %.2f", result.Score)
	}
	if result.ShouldTrigger {
		t.Error("Expected should_trigger = false")
	}
}

func TestScorer_ShortQueryCountsRunes(t *testing.T) {
	scorer := testScorer()
	// 14 runes but 42 bytes: still below the minimum length.
	result := scorer.Score("欧州鋼材価格市場調査分析詳細", nil)

	if result.Score != 0 {
		t.Errorf("Expected score 0 for 14-rune query, got %.2f", result.Score)
	}
	if result.Reason != "query too short for deep research" {
		t.Errorf("Expected short-query reason, got %q", result.Reason)
	}
}

func TestScorer_NegativeSignalSuppresses(t *testing.T) {
	scorer := testScorer()
	result := scorer.Score("Show me my recent reports", nil)

	if result.Score >= SuggestThreshold {
		t.Errorf("Expected score < %.2f, got %.2f", SuggestThreshold, result.Score)
	}
	negative := false
	for _, sig := range result.Signals {
		if sig.Class == SignalNegative {
			negative = true
		}
	}
	if !negative {
		t.Error("Expected a negative signal to match")
	}
}

func TestScorer_EmptyQueryReason(t *testing.T) {
	scorer := testScorer()
	result := scorer.Score("", nil)

	if result.Score != 0 {
		t.Errorf("Expected score 0, got %.2f", result.Score)
	}
	if result.Reason != "invalid input" {
		t.Errorf("Expected reason 'invalid input', got %q", result.Reason)
	}
}

func TestScorer_ScoreClampedToUnitInterval(t *testing.T) {
	scorer := testScorer()
	result := scorer.Score("comprehensive deep research market analysis sourcing study supplier assessment cost breakdown price trends risk assessment regulatory landscape competitive intelligence across Europe Asia and the Americas over the coming five years", nil)

	if result.Score > 1.0 {
		t.Errorf("Expected score clamped to 1.0, got %.2f", result.Score)
	}
}

func TestScorer_HighSignalsOrderedFirst(t *testing.T) {
	scorer := testScorer()
	result := scorer.Score("comprehensive market analysis of lithium carbonate price trends and supplier landscape in APAC", nil)

	sawOther := false
	for _, sig := range result.Signals {
		if sig.Class != SignalHigh {
			sawOther = true
		} else if sawOther {
			t.Fatalf("HIGH signal %q reported after a lower-class signal", sig.Label)
		}
	}
}

func TestScorer_ContextBoosts(t *testing.T) {
	scorer := testScorer()
	query := "analyze steel pricing trends for our procurement team"

	plain := scorer.Score(query, nil)
	boosted := scorer.Score(query, &ChatContext{
		FollowUpCount:           3,
		HasComplexityIndicators: true,
		TopicsDiscussed:         []string{"steel", "logistics"},
	})

	if boosted.Score <= plain.Score {
		t.Errorf("Expected context to raise score: plain %.2f, boosted %.2f", plain.Score, boosted.Score)
	}
}

func TestScorer_Pure(t *testing.T) {
	scorer := testScorer()
	query := "comprehensive sourcing study for packaging materials in Mexico"

	a := scorer.Score(query, nil)
	b := scorer.Score(query, nil)

	if a.Score != b.Score {
		t.Errorf("Expected identical scores, got %.2f and %.2f", a.Score, b.Score)
	}
	if !reflect.DeepEqual(a.Signals, b.Signals) {
		t.Error("Expected identical matched signals for identical input")
	}
}

func TestInferStudyType(t *testing.T) {
	cases := []struct {
		query string
		want  model.StudyType
	}{
		{"sourcing study for carbon steel suppliers", model.StudySourcingStudy},
		{"cost breakdown for injection molded parts", model.StudyCostModel},
		{"supplier assessment for contract manufacturers", model.StudySupplierAssessment},
		{"supply chain risk assessment for semiconductors", model.StudyRiskAssessment},
		{"tell me about the aluminum market", model.StudyMarketAnalysis},
	}
	for _, tc := range cases {
		if got := InferStudyType(tc.query); got != tc.want {
			t.Errorf("InferStudyType(%q) = %s, want %s", tc.query, got, tc.want)
		}
	}
}
