package intent

import (
	"regexp"
	"strings"

	"github.com/procureiq/deepresearch/internal/model"
)

// knownRegions are scanned in the query for prefilling the regions question.
var knownRegions = []string{
	"North America", "Europe", "Asia Pacific", "Latin America",
	"Middle East", "Africa", "Global",
}

var regionAliases = map[string]string{
	"apac":  "Asia Pacific",
	"emea":  "Europe",
	"latam": "Latin America",
	"usa":   "North America",
	"us":    "North America",
}

var timeframePattern = regexp.MustCompile(`(?i)(\d+|one|two|three|five|ten).?year|20\d\d\s*[-–]\s*20\d\d|next\s+\w+\s+years?`)

// BuildClarifyingQuestions produces the intake question set for a study
// type, prefilling answers that are already evident in the query.
func BuildClarifyingQuestions(query string, studyType model.StudyType) []model.ClarifyingQuestion {
	questions := []model.ClarifyingQuestion{
		{
			ID:       model.IntakeCategory,
			Prompt:   "Which category or commodity should the study cover?",
			Kind:     model.InputCategoryPicker,
			Required: true,
		},
		{
			ID:      model.IntakeRegions,
			Prompt:  "Which regions are in scope?",
			Kind:    model.InputMultiSelect,
			Options: knownRegions,
			Default: "Global",
		},
		{
			ID:      model.IntakeTimeframe,
			Prompt:  "What timeframe should the analysis cover?",
			Kind:    model.InputSelect,
			Options: []string{"Current state", "1-year outlook", "3-year outlook", "5-year outlook"},
			Default: "3-year outlook",
		},
	}

	switch studyType {
	case model.StudySourcingStudy, model.StudyCostModel:
		questions = append(questions, model.ClarifyingQuestion{
			ID:     model.IntakeVolume,
			Prompt: "What is your approximate annual spend or volume?",
			Kind:   model.InputNumber,
		})
	case model.StudyRiskAssessment:
		questions = append(questions, model.ClarifyingQuestion{
			ID:      model.IntakeTimeframe + "_window",
			Prompt:  "Which exposure window should the risk view cover?",
			Kind:    model.InputDateRange,
			Default: "",
		})
	}

	questions = append(questions, model.ClarifyingQuestion{
		ID:     model.IntakeObjectives,
		Prompt: "Any specific objectives or decisions this study should support?",
		Kind:   model.InputText,
	})

	// Prefill from the query where the answer is already evident.
	for i := range questions {
		switch questions[i].ID {
		case model.IntakeRegions:
			if regions := regionsInQuery(query); len(regions) > 0 {
				questions[i].Default = strings.Join(regions, ", ")
				questions[i].PrefilledFrom = "query"
			}
		case model.IntakeTimeframe:
			if tf := timeframePattern.FindString(query); tf != "" {
				questions[i].Default = tf
				questions[i].PrefilledFrom = "query"
			}
		}
	}
	return questions
}

// DefaultAnswers resolves every question to its default, used when the host
// starts a job with skipIntake.
func DefaultAnswers(questions []model.ClarifyingQuestion) model.IntakeAnswers {
	answers := make(model.IntakeAnswers, len(questions))
	for _, q := range questions {
		if q.Default != "" {
			answers.Set(q.ID, q.Default)
		}
	}
	return answers
}

func regionsInQuery(query string) []string {
	lower := strings.ToLower(query)
	seen := make(map[string]bool)
	var out []string
	add := func(region string) {
		if !seen[region] {
			seen[region] = true
			out = append(out, region)
		}
	}
	for _, region := range knownRegions {
		if strings.Contains(lower, strings.ToLower(region)) {
			add(region)
		}
	}
	for alias, region := range regionAliases {
		if containsWord(lower, alias) {
			add(region)
		}
	}
	return out
}

func containsWord(text, word string) bool {
	idx := strings.Index(text, word)
	for idx >= 0 {
		before := idx == 0 || !isWordByte(text[idx-1])
		afterIdx := idx + len(word)
		after := afterIdx >= len(text) || !isWordByte(text[afterIdx])
		if before && after {
			return true
		}
		next := strings.Index(text[idx+1:], word)
		if next < 0 {
			return false
		}
		idx += 1 + next
	}
	return false
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}
