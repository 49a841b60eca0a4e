package visual

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/procureiq/deepresearch/internal/llm"
	"github.com/procureiq/deepresearch/internal/model"
)

// minRetryContent is the shortest section prose worth a metric retry.
const minRetryContent = 100

// maxPromptContent bounds the section prose sent for extraction.
const maxPromptContent = 6000

// Job carries the job-level inputs visual extraction needs.
type Job struct {
	Query     string
	Regions   []string
	Timeframe string
	Records   []StructuredRecord
}

// Extractor resolves visualization slots section by section.
type Extractor struct {
	schema      *llm.SchemaClient
	adapters    *AdapterRegistry
	concurrency int
	timeout     time.Duration
	logger      *zap.Logger
}

// NewExtractor creates an extractor. adapters and logger may be nil.
func NewExtractor(schema *llm.SchemaClient, adapters *AdapterRegistry, cfg model.PipelineConfig, logger *zap.Logger) *Extractor {
	if adapters == nil {
		adapters = NewAdapterRegistry()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	concurrency := cfg.ExtractionConcurrency
	if concurrency <= 0 {
		concurrency = 3
	}
	timeout := cfg.ExtractionTimeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &Extractor{
		schema:      schema,
		adapters:    adapters,
		concurrency: concurrency,
		timeout:     timeout,
		logger:      logger.Named("visual"),
	}
}

// ExtractAll fills visuals for every section with declared slots, then
// de-duplicates visuals globally in section order (first section wins).
func (e *Extractor) ExtractAll(ctx context.Context, sections []model.SectionResult, tpl model.ReportTemplate, job Job) []model.SectionResult {
	templates := indexTemplates(tpl.Sections)

	out := make([]model.SectionResult, len(sections))
	copy(out, sections)

	// Flatten to pointers so children are extracted too.
	var flat []*model.SectionResult
	var walk func(secs []model.SectionResult, into *[]*model.SectionResult)
	walk = func(secs []model.SectionResult, into *[]*model.SectionResult) {
		for i := range secs {
			*into = append(*into, &secs[i])
			walk(secs[i].Children, into)
		}
	}
	walk(out, &flat)

	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for _, sec := range flat {
		sec := sec
		secTpl, ok := templates[sec.ID]
		if !ok || len(secTpl.Slots) == 0 {
			continue
		}
		g.Go(func() error {
			sec.Visuals = e.extractSection(ctx, *sec, secTpl, job)
			return nil
		})
	}
	_ = g.Wait()

	dedupeVisuals(out)
	return out
}

func indexTemplates(sections []model.SectionTemplate) map[string]model.SectionTemplate {
	m := make(map[string]model.SectionTemplate)
	var walk func([]model.SectionTemplate)
	walk = func(secs []model.SectionTemplate) {
		for _, s := range secs {
			m[s.ID] = s
			walk(s.Children)
		}
	}
	walk(sections)
	return m
}

// extractSection runs the tiered resolution for one section.
func (e *Extractor) extractSection(ctx context.Context, sec model.SectionResult, secTpl model.SectionTemplate, job Job) []model.Visual {
	slots := FilterByTags(secTpl.Slots, job.Query, sec.Title)
	if len(slots) == 0 {
		return nil
	}

	var visuals []model.Visual
	var unfilled []model.VisualizationSlot
	for _, slot := range slots {
		if v := e.tier1(slot, sec, job); v != nil {
			visuals = append(visuals, *v)
		} else {
			unfilled = append(unfilled, slot)
		}
	}

	tier3 := e.tier3(ctx, sec, unfilled, job)
	visuals = append(visuals, tier3...)

	// Metric retry: the section declared slots but LLM extraction produced
	// nothing, and there is enough prose to mine for takeaways.
	if len(tier3) == 0 && len(unfilled) > 0 && len(sec.Content) >= minRetryContent {
		if v := e.metricRetry(ctx, sec); v != nil {
			visuals = append(visuals, *v)
		}
	}
	return visuals
}

// tier1 resolves a slot through its declared structured adapter, if any.
// The first record the adapter accepts wins.
func (e *Extractor) tier1(slot model.VisualizationSlot, sec model.SectionResult, job Job) *model.Visual {
	if slot.StructuredAdapter == "" || len(job.Records) == 0 {
		return nil
	}
	adapter, ok := e.adapters.Get(slot.StructuredAdapter)
	if !ok {
		return nil
	}
	for _, record := range job.Records {
		v := adapter(record, sec.ID)
		if v == nil {
			continue
		}
		v.SlotID = slot.SlotID
		if len(v.SourceIDs) == 0 {
			v.SourceIDs = citationOnly(sec.CitationIDs)
		}
		if slot.Placement != "" {
			v.Placement = slot.Placement
		}
		if slot.Trend != "" {
			v.Trend = slot.Trend
		}
		if v.Confidence == "" {
			v.Confidence = model.ConfidenceHigh
		}
		applyScope(v, job)
		if !record.ExactMatch {
			v.Confidence = model.ConfidenceMedium
			v.Footnote = appendNote(v.Footnote, "Based on closely related category data, not an exact match.")
		}
		if !Validate(*v) || !MeetsMinDataPoints(*v, slot) {
			continue
		}
		return v
	}
	return nil
}

// applyScope appends the intake region and timeframe to the title and
// footnote so the chart reads unambiguously out of context.
func applyScope(v *model.Visual, job Job) {
	var scope []string
	if len(job.Regions) > 0 {
		scope = append(scope, strings.Join(job.Regions, ", "))
	}
	if job.Timeframe != "" {
		scope = append(scope, job.Timeframe)
	}
	if len(scope) == 0 {
		return
	}
	joined := strings.Join(scope, ", ")
	if !strings.Contains(v.Title, joined) {
		v.Title = fmt.Sprintf("%s (%s)", v.Title, joined)
	}
	v.Footnote = appendNote(v.Footnote, "Scope: "+joined)
}

func appendNote(existing, note string) string {
	if existing == "" {
		return note
	}
	return existing + " " + note
}

// citationOnly keeps only well-formed B/W ids out of a section's markers.
func citationOnly(ids []string) []string {
	var out []string
	for _, id := range ids {
		if model.CitationClass(id) != 0 {
			out = append(out, id)
		}
	}
	return out
}

var confidenceEnum = llm.Enum("extraction confidence", "high", "medium", "low")

func tier3Schema(slots []model.VisualizationSlot) *llm.Schema {
	types := make([]string, 0, len(slots))
	seen := map[string]bool{}
	for _, s := range slots {
		if !seen[string(s.Type)] {
			seen[string(s.Type)] = true
			types = append(types, string(s.Type))
		}
	}
	return llm.Object(map[string]*llm.Schema{
		"slots": llm.Array(llm.Object(map[string]*llm.Schema{
			"slot_id":    llm.Str("id of the slot being answered"),
			"filled":     llm.Bool("whether data was found for this slot"),
			"type":       llm.Enum("visual type", types...),
			"title":      llm.Str("chart title"),
			"confidence": confidenceEnum,
			"data":       {Type: "object", Description: "type-specific chart payload"},
		}, "slot_id", "filled")),
	}, "slots")
}

type tier3Payload struct {
	Slots []struct {
		SlotID     string         `json:"slot_id"`
		Filled     bool           `json:"filled"`
		Type       string         `json:"type"`
		Title      string         `json:"title"`
		Confidence string         `json:"confidence"`
		Data       map[string]any `json:"data"`
	} `json:"slots"`
}

// tier3 issues one schema extraction call for the section's unfilled slots.
func (e *Extractor) tier3(ctx context.Context, sec model.SectionResult, slots []model.VisualizationSlot, job Job) []model.Visual {
	density := NumericDensity(sec.Content)
	slots = FilterByDensity(slots, density)
	if len(slots) == 0 {
		return nil
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var payload tier3Payload
	ok := e.schema.ExtractInto(callCtx, llm.ExtractRequest{
		Prompt:      tier3Prompt(sec, slots),
		Schema:      tier3Schema(slots),
		Temperature: 0.2,
	}, &payload)
	if !ok {
		return nil
	}

	bySlot := make(map[string]model.VisualizationSlot, len(slots))
	for _, s := range slots {
		bySlot[s.SlotID] = s
	}

	var accepted []model.Visual
	for _, got := range payload.Slots {
		slot, ok := bySlot[got.SlotID]
		if !ok || !got.Filled || len(got.Data) == 0 {
			continue
		}
		if got.Type != "" && got.Type != string(slot.Type) {
			continue
		}
		v := CoerceVisual(slot, got.Title, got.Data)
		if v == nil {
			continue
		}
		v.SourceIDs = citationOnly(sec.CitationIDs)
		v.Confidence = parseConfidence(got.Confidence)
		if !Validate(*v) || !MeetsMinDataPoints(*v, slot) {
			e.logger.Debug("rejected extracted visual",
				zap.String("section", sec.ID), zap.String("slot", slot.SlotID))
			continue
		}
		accepted = append(accepted, *v)
	}
	return accepted
}

func parseConfidence(raw string) model.Confidence {
	switch model.Confidence(raw) {
	case model.ConfidenceHigh, model.ConfidenceMedium, model.ConfidenceLow:
		return model.Confidence(raw)
	}
	return model.ConfidenceMedium
}

func tier3Prompt(sec model.SectionResult, slots []model.VisualizationSlot) string {
	var b strings.Builder
	b.WriteString("Extract chart data from the report section below. Use ONLY numbers present in the text; never invent values.\n")
	b.WriteString("For each slot, set filled=false when the text does not contain enough data.\n\nSlots:\n")
	for _, s := range slots {
		fmt.Fprintf(&b, "- slot_id=%s type=%s title=%q", s.SlotID, s.Type, s.Title)
		if s.Description != "" {
			fmt.Fprintf(&b, " (%s)", s.Description)
		}
		fmt.Fprintf(&b, " min_data_points=%d\n", s.MinDataPoints)
	}
	b.WriteString(payloadShapes)
	content := sec.Content
	if len(content) > maxPromptContent {
		content = content[:maxPromptContent]
	}
	fmt.Fprintf(&b, "\nSection %q:\n%s\n", sec.Title, content)
	return b.String()
}

const payloadShapes = `
Data payload shapes by type:
- line:  {"series":[{"name":"...","points":[{"x":"...","y":0}]}]}
- bar:   {"categories":["..."],"series":[{"name":"...","values":[0]}]}
- pie:   {"slices":[{"label":"...","value":0}]}
- table: {"headers":["..."],"rows":[["..."]]}
- metric:{"metrics":[{"label":"...","value":"...","delta":"..."}]}
`

// metricRetry asks once for headline takeaway metrics when regular
// extraction produced nothing for a section that wanted visuals.
func (e *Extractor) metricRetry(ctx context.Context, sec model.SectionResult) *model.Visual {
	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var payload struct {
		Metrics []struct {
			Label string `json:"label"`
			Value string `json:"value"`
			Delta string `json:"delta"`
		} `json:"metrics"`
	}
	content := sec.Content
	if len(content) > maxPromptContent {
		content = content[:maxPromptContent]
	}
	ok := e.schema.ExtractInto(callCtx, llm.ExtractRequest{
		Prompt: fmt.Sprintf(
			"Extract 3-4 key takeaway metrics from this report section. Each metric needs a short label and a concrete value taken from the text.\n\nSection %q:\n%s",
			sec.Title, content),
		Schema: llm.Object(map[string]*llm.Schema{
			"metrics": llm.Array(llm.Object(map[string]*llm.Schema{
				"label": llm.Str("short metric label"),
				"value": llm.Str("metric value as written in the text"),
				"delta": llm.Str("change indicator, if any"),
			}, "label", "value")),
		}, "metrics"),
		Temperature: 0.2,
	}, &payload)
	if !ok || len(payload.Metrics) < 2 {
		return nil
	}

	group := &model.MetricGroupData{}
	for _, m := range payload.Metrics {
		group.Metrics = append(group.Metrics, model.Metric{Label: m.Label, Value: m.Value, Delta: m.Delta})
	}
	v := model.Visual{
		Type:       model.VisualMetric,
		Title:      "Key Takeaways — " + sec.Title,
		Placement:  model.PlaceAfterProse,
		SourceIDs:  citationOnly(sec.CitationIDs),
		Confidence: model.ConfidenceMedium,
		Metrics:    group,
	}
	if !Validate(v) || len(group.Metrics) < 2 {
		return nil
	}
	return &v
}

// dedupeVisuals removes visuals whose (type, title, data) hash has been seen
// earlier in section order.
func dedupeVisuals(sections []model.SectionResult) {
	seen := make(map[string]bool)
	var walk func(secs []model.SectionResult)
	walk = func(secs []model.SectionResult) {
		for i := range secs {
			var kept []model.Visual
			for _, v := range secs[i].Visuals {
				key := v.DedupKey()
				if seen[key] {
					continue
				}
				seen[key] = true
				kept = append(kept, v)
			}
			secs[i].Visuals = kept
			walk(secs[i].Children)
		}
	}
	walk(sections)
}
