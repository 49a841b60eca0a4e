package intent

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/procureiq/deepresearch/internal/model"
)

// ChatContext carries conversation history signals that bias the score.
type ChatContext struct {
	MessageCount            int
	FollowUpCount           int
	TopicsDiscussed         []string
	HasComplexityIndicators bool
	PreviousQueries         []string
}

// SignalClass groups matched signals by weight band.
type SignalClass string

const (
	SignalHigh     SignalClass = "high"
	SignalMedium   SignalClass = "medium"
	SignalNegative SignalClass = "negative"
	SignalLength   SignalClass = "length"
	SignalContext  SignalClass = "context"
)

// Signal is one matched scoring pattern with its transparent weight.
type Signal struct {
	Class  SignalClass `json:"class"`
	Label  string      `json:"label"`
	Weight float64     `json:"weight"`
}

// Result is the scorer output for one query.
type Result struct {
	Score             float64         `json:"score"`
	Signals           []Signal        `json:"matched_signals,omitempty"`
	StudyType         model.StudyType `json:"inferred_study_type"`
	Reason            string          `json:"reason"`
	ShouldTrigger     bool            `json:"should_trigger"`
	ShouldSuggest     bool            `json:"should_suggest"`
	EstimatedCredits  int             `json:"estimated_credits"`
	EstimatedMinutes  int             `json:"estimated_minutes"`
}

// Trigger and suggestion thresholds.
const (
	TriggerThreshold = 0.75
	SuggestThreshold = 0.45
)

// minQueryLength short-circuits trivially short queries.
const minQueryLength = 15

type pattern struct {
	re     *regexp.Regexp
	label  string
	weight float64
}

func mustPattern(expr, label string, weight float64) pattern {
	return pattern{re: regexp.MustCompile(`(?i)` + expr), label: label, weight: weight}
}

// highPatterns are strong deep-research indicators (weights 0.25-0.35).
var highPatterns = []pattern{
	mustPattern(`deep\s+research`, "explicit deep research request", 0.35),
	mustPattern(`sourcing\s+(study|strategy)`, "sourcing study request", 0.35),
	mustPattern(`comprehensive\s+\w+|comprehensive\b`, "comprehensive scope", 0.30),
	mustPattern(`(cost|price)\s+(model|breakdown|build.?up)`, "cost model request", 0.30),
	mustPattern(`supplier\s+(assessment|evaluation|scorecard)`, "supplier assessment request", 0.30),
	mustPattern(`risk\s+(assessment|analysis|exposure)`, "risk assessment request", 0.30),
	mustPattern(`market\s+(analysis|study|intelligence)`, "market analysis request", 0.28),
	mustPattern(`(in.?depth|end.?to.?end|full)\s+(analysis|study|report|review)`, "in-depth analysis request", 0.28),
	mustPattern(`(prepare|produce|generate|build)\s+(a|an|the)?\s*(report|study|analysis)`, "report preparation request", 0.25),
}

// mediumPatterns are softer indicators (weights 0.12-0.20).
var mediumPatterns = []pattern{
	mustPattern(`(5|five|3|three|10|ten).?year\s+(outlook|forecast|horizon)|outlook`, "multi-year outlook", 0.15),
	mustPattern(`forecast|projection`, "forward-looking forecast", 0.15),
	mustPattern(`(supplier|vendor|market)\s+landscape`, "landscape mapping", 0.18),
	mustPattern(`compare\s+(suppliers|vendors|regions|options)`, "comparative scope", 0.16),
	mustPattern(`across\s+(regions|geographies|markets|north america|europe|asia|apac|latam)`, "multi-region scope", 0.15),
	mustPattern(`(price|pricing|cost)\s+trend`, "pricing trend interest", 0.15),
	mustPattern(`total\s+cost\s+of\s+ownership|tco`, "total cost of ownership", 0.18),
	mustPattern(`benchmark`, "benchmarking interest", 0.14),
	mustPattern(`(negotiation|category)\s+strategy`, "strategy development", 0.16),
	mustPattern(`(regulatory|compliance|tariff|geopolitical)`, "regulatory dimension", 0.12),
}

// negativePatterns pull the score down for navigational or social queries.
var negativePatterns = []pattern{
	mustPattern(`^\s*(hi|hello|hey|thanks|thank you)\b`, "greeting", -0.50),
	mustPattern(`show\s+me\s+my\b`, "navigation request", -0.40),
	mustPattern(`(recent|my|previous)\s+(reports?|conversations?|searches)`, "history lookup", -0.30),
	mustPattern(`^\s*(open|go\s+to|navigate)\b`, "navigation verb", -0.40),
	mustPattern(`^\s*what\s+is\b`, "simple definition question", -0.10),
	mustPattern(`^\s*(who|when|where)\s`, "simple factual question", -0.10),
}

// Scorer classifies queries for deep research eligibility. It is pure: the
// same input always yields the same score and matched signals.
type Scorer struct {
	estimates map[model.StudyType]model.Estimate
}

// NewScorer creates a scorer; estimates may be nil, in which case credit and
// time estimates are zero.
func NewScorer(estimates map[model.StudyType]model.Estimate) *Scorer {
	return &Scorer{estimates: estimates}
}

// Score evaluates a query against the signal tables. It never fails: invalid
// input yields score 0 with reason "invalid input".
func (s *Scorer) Score(query string, chat *ChatContext) Result {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return Result{StudyType: model.StudyMarketAnalysis, Reason: "invalid input"}
	}
	if utf8.RuneCountInString(trimmed) < minQueryLength {
		return Result{StudyType: InferStudyType(trimmed), Reason: "query too short for deep research"}
	}

	var (
		score   float64
		signals []Signal
	)
	for _, p := range highPatterns {
		if p.re.MatchString(trimmed) {
			score += p.weight
			signals = append(signals, Signal{Class: SignalHigh, Label: p.label, Weight: p.weight})
		}
	}
	for _, p := range mediumPatterns {
		if p.re.MatchString(trimmed) {
			score += p.weight
			signals = append(signals, Signal{Class: SignalMedium, Label: p.label, Weight: p.weight})
		}
	}
	for _, p := range negativePatterns {
		if p.re.MatchString(trimmed) {
			score += p.weight
			signals = append(signals, Signal{Class: SignalNegative, Label: p.label, Weight: p.weight})
		}
	}

	// Length bonuses.
	words := len(strings.Fields(trimmed))
	switch {
	case words > 20:
		score += 0.10
		signals = append(signals, Signal{Class: SignalLength, Label: "long query", Weight: 0.10})
	case words > 15:
		score += 0.05
		signals = append(signals, Signal{Class: SignalLength, Label: "detailed query", Weight: 0.05})
	}

	// Conversation context boosts.
	if chat != nil {
		switch {
		case chat.FollowUpCount >= 3:
			score += 0.15
			signals = append(signals, Signal{Class: SignalContext, Label: "sustained follow-up thread", Weight: 0.15})
		case chat.FollowUpCount >= 2:
			score += 0.08
			signals = append(signals, Signal{Class: SignalContext, Label: "follow-up thread", Weight: 0.08})
		}
		if chat.HasComplexityIndicators {
			score += 0.10
			signals = append(signals, Signal{Class: SignalContext, Label: "complexity indicators in history", Weight: 0.10})
		}
		if len(distinct(chat.TopicsDiscussed)) >= 2 {
			score += 0.05
			signals = append(signals, Signal{Class: SignalContext, Label: "multiple topics discussed", Weight: 0.05})
		}
	}

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}

	orderSignals(signals)
	studyType := InferStudyType(trimmed)

	res := Result{
		Score:         score,
		Signals:       signals,
		StudyType:     studyType,
		Reason:        buildReason(signals),
		ShouldTrigger: score >= TriggerThreshold,
		ShouldSuggest: score >= SuggestThreshold && score < TriggerThreshold,
	}
	if est, ok := s.estimates[studyType]; ok {
		res.EstimatedCredits = est.Credits
		res.EstimatedMinutes = est.Minutes
	}
	return res
}

// orderSignals sorts HIGH signals first, then by descending weight, keeping
// the match order stable within equal weights.
func orderSignals(signals []Signal) {
	sort.SliceStable(signals, func(i, j int) bool {
		hi, hj := signals[i].Class == SignalHigh, signals[j].Class == SignalHigh
		if hi != hj {
			return hi
		}
		return signals[i].Weight > signals[j].Weight
	})
}

// buildReason prefers the top HIGH signal, then summarises the two strongest
// MEDIUM signals, then any context boost, else "standard query".
func buildReason(signals []Signal) string {
	var mediums []Signal
	for _, sig := range signals {
		switch sig.Class {
		case SignalHigh:
			return sig.Label
		case SignalMedium:
			mediums = append(mediums, sig)
		}
	}
	if len(mediums) >= 2 {
		return fmt.Sprintf("%s and %s", mediums[0].Label, mediums[1].Label)
	}
	if len(mediums) == 1 {
		return mediums[0].Label
	}
	for _, sig := range signals {
		if sig.Class == SignalContext {
			return sig.Label
		}
	}
	return "standard query"
}

func distinct(items []string) []string {
	seen := make(map[string]bool, len(items))
	var out []string
	for _, it := range items {
		key := strings.ToLower(strings.TrimSpace(it))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, it)
	}
	return out
}
