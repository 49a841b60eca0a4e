// Package report turns synthesised sections into the final deliverable:
// a validated title, citation map, references, table of contents, and
// quality metrics.
package report

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/procureiq/deepresearch/internal/llm"
	"github.com/procureiq/deepresearch/internal/model"
)

// maxSignalChars bounds the prose scanned for title signals.
const maxSignalChars = 5000

const (
	minTitleWords = 5
	maxTitleWords = 18
	maxJaccard    = 0.7
)

// TitleSignals are concrete facts mined from the report body that anchor
// the generated title in real content.
type TitleSignals struct {
	Subject     string
	Region      string
	Timeframe   string
	NumericFact string
	Trend       string
	StudyType   model.StudyType
}

// TitleResult is the title block of the final report.
type TitleResult struct {
	Title      string `json:"title"`
	Subtitle   string `json:"subtitle"`
	KeyFinding string `json:"keyFinding"`
}

var (
	dollarFact  = regexp.MustCompile(`(?i)\$\s?\d[\d,]*(?:\.\d+)?\s*(?:trillion|billion|million|bn|mn|[bmk])?\b[^.\n]{0,60}`)
	percentFact = regexp.MustCompile(`(?i)\b\d+(?:\.\d+)?\s?%[^.\n]{0,60}`)

	trendPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:prices?|costs?|rates?)\s+(?:are\s+|have\s+been\s+)?(?:rising|falling|increasing|decreasing|declining|climbing|stabili[sz]ing|volatile)\b`),
		regexp.MustCompile(`(?i)\bsupply\s+(?:shortage|surplus|constraints?|disruptions?|tightening|glut)\b`),
		regexp.MustCompile(`(?i)\bdemand\s+(?:growth|is\s+growing|surging|softening|weakening|recovering|outpacing)\b`),
		regexp.MustCompile(`(?i)\bmarket\s+(?:consolidation|expansion|growth|contraction|fragmentation|recovery)\b`),
	}

	// queryFiller strips request framing so the subject is the commodity
	// or category itself, not the ask around it.
	queryFiller = regexp.MustCompile(`(?i)^(?:please\s+)?(?:do\s+|run\s+|create\s+|give\s+me\s+|i\s+need\s+)?(?:a\s+|an\s+|the\s+)?(?:deep\s+)?(?:research|analy[sz]e|analysis(?:\s+of)?|study(?:\s+of)?|report(?:\s+on)?|investigate|evaluate|assess)\s+(?:on\s+|of\s+|into\s+|about\s+)?`)

	titleSlop = []string{
		"comprehensive analysis",
		"in-depth report",
		"report on",
		"analysis of",
		"a study",
	}
)

// ExtractTitleSignals mines the executive summary and first two sections
// for facts worth putting in a title.
func ExtractTitleSignals(query string, studyType model.StudyType, regions []string, timeframe string, sections []model.SectionResult) TitleSignals {
	sig := TitleSignals{
		Subject:   subjectFromQuery(query),
		Timeframe: timeframe,
		StudyType: studyType,
	}
	if len(regions) > 0 {
		sig.Region = regions[0]
	}

	prose := signalProse(sections)
	if m := dollarFact.FindString(prose); m != "" {
		sig.NumericFact = strings.TrimSpace(m)
	} else if m := percentFact.FindString(prose); m != "" {
		sig.NumericFact = strings.TrimSpace(m)
	}
	for _, p := range trendPatterns {
		if m := p.FindString(prose); m != "" {
			sig.Trend = strings.TrimSpace(m)
			break
		}
	}
	return sig
}

// signalProse concatenates the executive summary and the first two other
// sections, capped at maxSignalChars.
func signalProse(sections []model.SectionResult) string {
	var parts []string
	others := 0
	for _, s := range sections {
		if s.ID == model.SectionExecutiveSummary {
			parts = append([]string{s.Content}, parts...)
			continue
		}
		if others < 2 {
			parts = append(parts, s.Content)
			others++
		}
	}
	prose := strings.Join(parts, "\n")
	if len(prose) > maxSignalChars {
		prose = prose[:maxSignalChars]
	}
	return prose
}

func subjectFromQuery(query string) string {
	s := strings.TrimSpace(queryFiller.ReplaceAllString(strings.TrimSpace(query), ""))
	words := strings.Fields(s)
	if len(words) > 6 {
		words = words[:6]
	}
	return strings.Join(words, " ")
}

// ValidateTitle applies the acceptance rules for a generated title:
// sensible length, not a restatement of the query, no stock phrasing.
func ValidateTitle(title, query string) bool {
	words := strings.Fields(title)
	if len(words) < minTitleWords || len(words) > maxTitleWords {
		return false
	}
	if jaccard(title, query) > maxJaccard {
		return false
	}
	lower := strings.ToLower(title)
	for _, slop := range titleSlop {
		if strings.Contains(lower, slop) {
			return false
		}
	}
	return true
}

func jaccard(a, b string) float64 {
	sa := tokenSet(a)
	sb := tokenSet(b)
	if len(sa) == 0 || len(sb) == 0 {
		return 0
	}
	inter := 0
	for t := range sa {
		if sb[t] {
			inter++
		}
	}
	union := len(sa) + len(sb) - inter
	return float64(inter) / float64(union)
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, f := range strings.Fields(strings.ToLower(s)) {
		f = strings.Trim(f, ".,;:!?()[]\"'")
		if f != "" {
			set[f] = true
		}
	}
	return set
}

// Titler generates the report title block with a schema attempt, a chat
// retry, and a deterministic signal-based fallback.
type Titler struct {
	schema        *llm.SchemaClient
	reasoner      llm.Reasoner
	schemaTimeout time.Duration
	chatTimeout   time.Duration
	logger        *zap.Logger
}

// NewTitler creates a titler bounded by the pipeline's per-call deadlines.
// schema and logger may be nil.
func NewTitler(schema *llm.SchemaClient, reasoner llm.Reasoner, cfg model.PipelineConfig, logger *zap.Logger) *Titler {
	if logger == nil {
		logger = zap.NewNop()
	}
	schemaTimeout := cfg.ExtractionTimeout
	if schemaTimeout <= 0 {
		schemaTimeout = 45 * time.Second
	}
	chatTimeout := cfg.QuickReasonTimeout
	if chatTimeout <= 0 {
		chatTimeout = 30 * time.Second
	}
	return &Titler{
		schema:        schema,
		reasoner:      reasoner,
		schemaTimeout: schemaTimeout,
		chatTimeout:   chatTimeout,
		logger:        logger.Named("title"),
	}
}

var titleFormats = map[model.StudyType]string{
	model.StudyMarketAnalysis:     "<Commodity/Category> Market <Geography>: <headline fact or trend>",
	model.StudySourcingStudy:      "Sourcing <Commodity/Category> in <Geography>: <supplier or cost angle>",
	model.StudyCostModel:          "<Commodity/Category> Cost Structure: <dominant driver or number>",
	model.StudySupplierAssessment: "<Commodity/Category> Supplier Landscape <Geography>: <differentiator>",
	model.StudyRiskAssessment:     "<Commodity/Category> Supply Risk <Geography>: <headline risk>",
	model.StudyCustom:             "<Subject>: <headline fact or trend>",
}

var titleSchema = llm.Object(map[string]*llm.Schema{
	"title":      llm.Str("report title, specific and factual"),
	"subtitle":   llm.Str("one-line subtitle"),
	"keyFinding": llm.Str("single most important finding, one sentence"),
}, "title")

// Generate produces the title block. It never fails: when both model
// attempts are rejected it falls back to a deterministic title.
func (t *Titler) Generate(ctx context.Context, query string, sig TitleSignals, templateName string) TitleResult {
	if t.schema != nil {
		var res TitleResult
		callCtx, cancel := context.WithTimeout(ctx, t.schemaTimeout)
		ok := t.schema.ExtractInto(callCtx, llm.ExtractRequest{
			Prompt:      t.prompt(query, sig),
			Schema:      titleSchema,
			Temperature: 0.6,
		}, &res)
		cancel()
		if ok && ValidateTitle(res.Title, query) {
			return res
		}
		if ok {
			t.logger.Debug("schema title rejected", zap.String("title", res.Title))
		}
	}

	if title := t.chatAttempt(ctx, query, sig); title != "" {
		return TitleResult{Title: title}
	}

	return TitleResult{Title: FallbackTitle(sig, templateName)}
}

func (t *Titler) prompt(query string, sig TitleSignals) string {
	var b strings.Builder
	b.WriteString("Write a title block for a procurement research report.\n")
	fmt.Fprintf(&b, "Study type: %s\nUser query: %s\n", sig.StudyType, query)
	if sig.Region != "" {
		fmt.Fprintf(&b, "Region: %s\n", sig.Region)
	}
	if sig.Timeframe != "" {
		fmt.Fprintf(&b, "Timeframe: %s\n", sig.Timeframe)
	}
	if sig.NumericFact != "" {
		fmt.Fprintf(&b, "Key fact from the report: %s\n", sig.NumericFact)
	}
	if sig.Trend != "" {
		fmt.Fprintf(&b, "Key trend from the report: %s\n", sig.Trend)
	}
	if format, ok := titleFormats[sig.StudyType]; ok {
		fmt.Fprintf(&b, "Preferred title shape: %s\n", format)
	}
	fmt.Fprintf(&b, "Rules: %d-%d words, lead with the subject, include a concrete fact or trend, never phrases like \"Comprehensive Analysis\" or \"Report on\".\n",
		minTitleWords, maxTitleWords)
	return b.String()
}

func (t *Titler) chatAttempt(ctx context.Context, query string, sig TitleSignals) string {
	if t.reasoner == nil {
		return ""
	}
	callCtx, cancel := context.WithTimeout(ctx, t.chatTimeout)
	defer cancel()
	resp, err := t.reasoner.Complete(callCtx, llm.ChatRequest{
		Model: llm.ModelChat,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "You write report titles. Respond with the title only, no quotes, no preamble."},
			{Role: llm.RoleUser, Content: t.prompt(query, sig)},
		},
		MaxTokens:   100,
		Temperature: 0.6,
	})
	if err != nil {
		t.logger.Debug("chat title attempt failed", zap.Error(err))
		return ""
	}
	title := strings.TrimSpace(strings.Trim(strings.TrimSpace(resp.Content), `"`))
	if i := strings.IndexByte(title, '\n'); i >= 0 {
		title = strings.TrimSpace(title[:i])
	}
	if !ValidateTitle(title, query) {
		return ""
	}
	return title
}

// FallbackTitle builds a deterministic title from the mined signals.
func FallbackTitle(sig TitleSignals, templateName string) string {
	subject := titleCase(sig.Subject)
	if subject == "" {
		subject = "Procurement Research"
	}
	fact := sig.NumericFact
	if fact == "" {
		fact = sig.Trend
	}
	if fact != "" {
		if sig.Region != "" {
			return fmt.Sprintf("%s %s — %s", subject, sig.Region, fact)
		}
		return fmt.Sprintf("%s — %s", subject, fact)
	}
	return fmt.Sprintf("%s — %s", subject, templateName)
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if len(w) > 3 || i == 0 {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
