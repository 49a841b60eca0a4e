// Package synth drafts report sections from consolidated agent findings,
// enforcing citation quality under a hard regeneration budget.
package synth

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/procureiq/deepresearch/internal/llm"
	"github.com/procureiq/deepresearch/internal/model"
)

// TimeoutPlaceholder replaces section content when synthesis times out. The
// job continues; only the section degrades.
const TimeoutPlaceholder = "*This section is being generated. The analysis is taking longer than expected — please check back shortly or regenerate the report.*"

// minFallbackContent is the shortest section usable as an exec-summary
// fallback, and the shortest content worth a metric retry downstream.
const minFallbackContent = 100

// Synthesizer drafts sections with the chat model.
type Synthesizer struct {
	reasoner       llm.Reasoner
	concurrency    int
	sectionTimeout time.Duration
	logger         *zap.Logger

	// OnSection, when set, is called as each top-level section finishes.
	OnSection func(sectionID string)
}

// NewSynthesizer creates a synthesiser. logger may be nil.
func NewSynthesizer(reasoner llm.Reasoner, cfg model.PipelineConfig, logger *zap.Logger) *Synthesizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	concurrency := cfg.SectionConcurrency
	if concurrency <= 0 {
		concurrency = 2
	}
	timeout := cfg.SectionTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Synthesizer{
		reasoner:       reasoner,
		concurrency:    concurrency,
		sectionTimeout: timeout,
		logger:         logger.Named("synth"),
	}
}

// SynthesizeSections drafts every top-level template section except the
// synthetic references section. Top-level sections run with bounded
// concurrency; children run sequentially after their parent.
func (s *Synthesizer) SynthesizeSections(ctx context.Context, tpl model.ReportTemplate, job JobContext, budget *RegenBudget) ([]model.SectionResult, error) {
	var tops []model.SectionTemplate
	for _, sec := range tpl.Sections {
		if sec.ID == model.SectionReferences {
			continue
		}
		tops = append(tops, sec)
	}

	results := make([]model.SectionResult, len(tops))
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i := range tops {
		i := i
		g.Go(func() error {
			sec := s.synthesizeTree(ctx, tops[i], job, budget, 1)
			results[i] = sec
			if s.OnSection != nil {
				s.OnSection(sec.ID)
			}
			return nil
		})
	}
	_ = g.Wait()

	// A ceiling deadline degrades sections to placeholders; only outright
	// cancellation fails the whole synthesis.
	if err := ctx.Err(); errors.Is(err, context.Canceled) {
		return nil, err
	}

	applyExecSummaryFallback(results)
	return results, nil
}

// synthesizeTree drafts a section and then its children, depth-first.
func (s *Synthesizer) synthesizeTree(ctx context.Context, tpl model.SectionTemplate, job JobContext, budget *RegenBudget, level int) model.SectionResult {
	sec := s.synthesizeOne(ctx, tpl, job, budget, level)
	for _, child := range tpl.Children {
		sec.Children = append(sec.Children, s.synthesizeTree(ctx, child, job, budget, level+1))
	}
	return sec
}

func (s *Synthesizer) synthesizeOne(ctx context.Context, tpl model.SectionTemplate, job JobContext, budget *RegenBudget, level int) model.SectionResult {
	sec := s.draft(ctx, tpl, job, tpl.PromptHints, level)

	if needsRegeneration(tpl, len(sec.CitationIDs)) && budget.TryTake() {
		s.logger.Info("regenerating under-cited section",
			zap.String("section", tpl.ID),
			zap.Int("citations", len(sec.CitationIDs)),
			zap.Int("min_citations", tpl.MinCitations))
		retry := s.draft(ctx, tpl, job, regenerationHints(tpl, len(sec.CitationIDs)), level)
		if len(retry.CitationIDs) > len(sec.CitationIDs) {
			sec = retry
		}
	}
	return sec
}

// draft performs one synthesis call and post-processes the result.
func (s *Synthesizer) draft(ctx context.Context, tpl model.SectionTemplate, job JobContext, hints []string, level int) model.SectionResult {
	promptTpl := tpl
	promptTpl.PromptHints = hints

	callCtx, cancel := context.WithTimeout(ctx, s.sectionTimeout)
	defer cancel()

	resp, err := s.reasoner.Complete(callCtx, llm.ChatRequest{
		Model: llm.ModelChat,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: sectionSystemPrompt(promptTpl, job)},
			{Role: llm.RoleUser, Content: sectionUserPrompt(job)},
		},
		Temperature: 0.6,
	})

	sec := model.SectionResult{
		ID:    tpl.ID,
		Title: tpl.Title, // template title is the source of truth
		Level: level,
	}
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.logger.Warn("section synthesis degraded to placeholder",
				zap.String("section", tpl.ID), zap.Error(err))
		}
		sec.Content = TimeoutPlaceholder
		return sec
	}

	sec.Content = CleanContent(resp.Content)
	sec.CitationIDs = ExtractCitationIDs(sec.Content)
	return sec
}

var (
	headingWrapper  = regexp.MustCompile(`(?s)^\s*HEADING:.*?CONTENT:\s*`)
	leadingHeadings = regexp.MustCompile(`^#{1,4}\s+[^\n]*\n+`)
	citationMarker  = regexp.MustCompile(`\[([BW]?\d+)\]`)
)

// CleanContent strips a HEADING/CONTENT wrapper and any leading markdown
// headings the model emitted despite instructions.
func CleanContent(content string) string {
	content = strings.TrimSpace(content)
	content = headingWrapper.ReplaceAllString(content, "")
	for leadingHeadings.MatchString(content) {
		content = leadingHeadings.ReplaceAllString(content, "")
	}
	return strings.TrimSpace(content)
}

// ExtractCitationIDs extracts citation ids in first-appearance order,
// de-duplicated. Bare numeric markers like [3] keep their numeric id for
// positional resolution at assembly.
func ExtractCitationIDs(content string) []string {
	matches := citationMarker.FindAllStringSubmatch(content, -1)
	seen := make(map[string]bool, len(matches))
	var out []string
	for _, m := range matches {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	return out
}

// applyExecSummaryFallback replaces an empty or degraded executive summary
// with the opening of the first substantial section.
func applyExecSummaryFallback(sections []model.SectionResult) {
	for i := range sections {
		if sections[i].ID != model.SectionExecutiveSummary {
			continue
		}
		content := strings.TrimSpace(sections[i].Content)
		if content != "" && content != TimeoutPlaceholder {
			return
		}
		for _, other := range sections {
			if other.ID == model.SectionExecutiveSummary {
				continue
			}
			if len(other.Content) >= minFallbackContent && other.Content != TimeoutPlaceholder {
				fallback := other.Content
				if len(fallback) > 1000 {
					fallback = fallback[:1000]
				}
				sections[i].Content = fallback
				sections[i].CitationIDs = ExtractCitationIDs(fallback)
				return
			}
		}
		return
	}
}
