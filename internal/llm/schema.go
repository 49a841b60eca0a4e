package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/procureiq/deepresearch/internal/cache"
	"github.com/procureiq/deepresearch/internal/model"
)

// providerSchema is the rate-limiter key for the schema-JSON provider.
const providerSchema = "schema"

// Schema is a provider-neutral structural description of the JSON the model
// must return: types, required fields, nesting.
type Schema struct {
	Type        string             `json:"type"` // object, array, string, number, integer, boolean
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
}

// Convenience constructors for the common shapes.

func Object(props map[string]*Schema, required ...string) *Schema {
	return &Schema{Type: "object", Properties: props, Required: required}
}

func Array(items *Schema) *Schema { return &Schema{Type: "array", Items: items} }

func Str(desc string) *Schema { return &Schema{Type: "string", Description: desc} }

func Num(desc string) *Schema { return &Schema{Type: "number", Description: desc} }

func Bool(desc string) *Schema { return &Schema{Type: "boolean", Description: desc} }

func Enum(desc string, values ...string) *Schema {
	return &Schema{Type: "string", Description: desc, Enum: values}
}

// ExtractRequest is the input to the schema-JSON provider.
type ExtractRequest struct {
	Prompt      string
	Schema      *Schema
	MaxTokens   int
	Temperature float32
}

// SchemaClient calls a schema-enforcing JSON provider (Gemini-style
// generateContent with a response schema). Any failure - missing key,
// non-2xx, timeout, unrepairable JSON - yields nil rather than an error.
type SchemaClient struct {
	apiKey     string
	baseURL    string
	modelID    string
	maxTokens  int
	httpClient *http.Client
	limiter    *Limiter
	cache      cache.Cache
	logger     *zap.Logger
}

// NewSchemaClient creates a schema-JSON client. responses may be nil to
// disable caching; logger may be nil.
func NewSchemaClient(cfg model.SchemaConfig, limiter *Limiter, responses cache.Cache, logger *zap.Logger) *SchemaClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}
	return &SchemaClient{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		modelID:    cfg.Model,
		maxTokens:  cfg.MaxTokens,
		httpClient: &http.Client{},
		limiter:    limiter,
		cache:      responses,
		logger:     logger.Named("schema"),
	}
}

// Gemini API structures.

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig geminiGenConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenConfig struct {
	ResponseMIMEType string         `json:"responseMimeType"`
	ResponseSchema   map[string]any `json:"responseSchema,omitempty"`
	MaxOutputTokens  int            `json:"maxOutputTokens,omitempty"`
	Temperature      float32        `json:"temperature"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Extract calls the provider and returns the parsed object conforming to the
// schema, or nil on any failure.
func (c *SchemaClient) Extract(ctx context.Context, req ExtractRequest) map[string]any {
	if c.apiKey == "" {
		c.logger.Debug("schema provider disabled: no api key")
		return nil
	}

	key := c.cacheKey(req)
	if c.cache != nil {
		if raw, ok := c.cache.Get(key); ok {
			if obj := ParseOrRepair(string(raw)); obj != nil {
				return obj
			}
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, providerSchema); err != nil {
			return nil
		}
	}

	text, err := c.call(ctx, req)
	if err != nil {
		c.logger.Warn("schema extraction failed", zap.Error(err))
		return nil
	}

	obj := ParseOrRepair(text)
	if obj == nil {
		c.logger.Warn("schema response unparseable after repair",
			zap.Int("response_len", len(text)))
		return nil
	}
	if c.cache != nil {
		_ = c.cache.Set(key, []byte(text), 0) // 0: cache default TTL
	}
	return obj
}

// ExtractInto extracts and unmarshals into a typed destination. Reports
// false on any failure; dst may be partially written when decoding fails,
// so callers should discard it unless true is returned.
func (c *SchemaClient) ExtractInto(ctx context.Context, req ExtractRequest, dst any) bool {
	obj := c.Extract(ctx, req)
	if obj == nil {
		return false
	}
	raw, err := json.Marshal(obj)
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}

func (c *SchemaClient) call(ctx context.Context, req ExtractRequest) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}
	body := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: req.Prompt}}}},
		GenerationConfig: geminiGenConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   renderSchema(req.Schema),
			MaxOutputTokens:  maxTokens,
			Temperature:      req.Temperature,
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.modelID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("http: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("provider status %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	var parsed geminiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyResponse
	}

	var text strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	return text.String(), nil
}

func (c *SchemaClient) cacheKey(req ExtractRequest) string {
	var schema []byte
	if req.Schema != nil {
		schema, _ = json.Marshal(req.Schema)
	}
	return cache.Key(c.modelID + "\x00" + req.Prompt + "\x00" + string(schema))
}

// renderSchema converts the neutral schema into the provider's responseSchema
// shape (uppercase type names).
func renderSchema(s *Schema) map[string]any {
	if s == nil {
		return nil
	}
	out := map[string]any{"type": strings.ToUpper(s.Type)}
	if s.Description != "" {
		out["description"] = s.Description
	}
	if len(s.Properties) > 0 {
		props := make(map[string]any, len(s.Properties))
		for name, prop := range s.Properties {
			props[name] = renderSchema(prop)
		}
		out["properties"] = props
	}
	if s.Items != nil {
		out["items"] = renderSchema(s.Items)
	}
	if len(s.Required) > 0 {
		out["required"] = s.Required
	}
	if len(s.Enum) > 0 {
		out["enum"] = s.Enum
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
