package intent

import (
	"regexp"

	"github.com/procureiq/deepresearch/internal/model"
)

// studyTypeRule maps a query pattern onto a study type. Rules are checked in
// priority order; the first match wins.
type studyTypeRule struct {
	re        *regexp.Regexp
	studyType model.StudyType
}

var studyTypeRules = []studyTypeRule{
	{regexp.MustCompile(`(?i)sourcing\s+(study|strategy|options|decision)|make.?or.?buy|supplier\s+selection`), model.StudySourcingStudy},
	{regexp.MustCompile(`(?i)(cost|price)\s+(model|breakdown|structure|driver|build.?up)|should.?cost|total\s+cost\s+of\s+ownership|\btco\b`), model.StudyCostModel},
	{regexp.MustCompile(`(?i)(supplier|vendor)\s+(assessment|evaluation|audit|scorecard|capabilit)`), model.StudySupplierAssessment},
	{regexp.MustCompile(`(?i)risk\s+(assessment|analysis|exposure)|supply\s+(chain\s+)?risk|disruption|geopolitical`), model.StudyRiskAssessment},
	{regexp.MustCompile(`(?i)market\s+(analysis|overview|study|landscape|intelligence)|industry\s+(analysis|overview)`), model.StudyMarketAnalysis},
}

// InferStudyType infers a study type from the query text. Default is
// market_analysis when no rule matches.
func InferStudyType(query string) model.StudyType {
	for _, rule := range studyTypeRules {
		if rule.re.MatchString(query) {
			return rule.studyType
		}
	}
	return model.StudyMarketAnalysis
}
