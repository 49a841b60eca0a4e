package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/procureiq/deepresearch/internal/cache"
	"github.com/procureiq/deepresearch/internal/model"
)

func schemaTestServer(t *testing.T, calls *atomic.Int32, reply string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Header.Get("x-goog-api-key") == "" {
			t.Error("Expected x-goog-api-key header")
		}
		var req geminiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Bad request body: %v", err)
		}
		if req.GenerationConfig.ResponseMIMEType != "application/json" {
			t.Errorf("Expected JSON mime type, got %q", req.GenerationConfig.ResponseMIMEType)
		}
		resp := map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": reply}}}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestSchemaClient_Extract(t *testing.T) {
	var calls atomic.Int32
	server := schemaTestServer(t, &calls, `{"answer": 42}`)
	defer server.Close()

	client := NewSchemaClient(model.SchemaConfig{
		BaseURL: server.URL,
		APIKey:  "test-key",
		Model:   "test-model",
	}, nil, nil, nil)

	obj := client.Extract(context.Background(), ExtractRequest{
		Prompt: "answer please",
		Schema: Object(map[string]*Schema{"answer": Num("the answer")}, "answer"),
	})
	if obj == nil {
		t.Fatal("Expected parsed object, got nil")
	}
	if obj["answer"].(float64) != 42 {
		t.Errorf("Expected answer 42, got %v", obj["answer"])
	}
}

func TestSchemaClient_RepairsTrailingComma(t *testing.T) {
	var calls atomic.Int32
	server := schemaTestServer(t, &calls, `{"a":1,}`)
	defer server.Close()

	client := NewSchemaClient(model.SchemaConfig{
		BaseURL: server.URL, APIKey: "test-key", Model: "m",
	}, nil, nil, nil)

	obj := client.Extract(context.Background(), ExtractRequest{Prompt: "p"})
	if obj == nil {
		t.Fatal("Expected repaired object, got nil")
	}
	if obj["a"].(float64) != 1 {
		t.Errorf("Expected a=1, got %v", obj["a"])
	}
}

func TestSchemaClient_NoKeyReturnsNil(t *testing.T) {
	client := NewSchemaClient(model.SchemaConfig{Model: "m"}, nil, nil, nil)
	if obj := client.Extract(context.Background(), ExtractRequest{Prompt: "p"}); obj != nil {
		t.Errorf("Expected nil without an API key, got %v", obj)
	}
}

func TestSchemaClient_NonOKReturnsNil(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewSchemaClient(model.SchemaConfig{
		BaseURL: server.URL, APIKey: "k", Model: "m",
	}, nil, nil, nil)

	if obj := client.Extract(context.Background(), ExtractRequest{Prompt: "p"}); obj != nil {
		t.Errorf("Expected nil on provider error, got %v", obj)
	}
}

func TestSchemaClient_CachesResponses(t *testing.T) {
	var calls atomic.Int32
	server := schemaTestServer(t, &calls, `{"v": "cached"}`)
	defer server.Close()

	responses := cache.NewMemoryCache(time.Minute, time.Minute)
	client := NewSchemaClient(model.SchemaConfig{
		BaseURL: server.URL, APIKey: "k", Model: "m",
	}, nil, responses, nil)

	req := ExtractRequest{Prompt: "same prompt"}
	if obj := client.Extract(context.Background(), req); obj == nil {
		t.Fatal("First extract failed")
	}
	if obj := client.Extract(context.Background(), req); obj == nil {
		t.Fatal("Second extract failed")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("Expected 1 provider call with cache, got %d", got)
	}
}

func TestSchemaClient_ExtractInto(t *testing.T) {
	var calls atomic.Int32
	server := schemaTestServer(t, &calls, `{"name": "lithium", "count": 3}`)
	defer server.Close()

	client := NewSchemaClient(model.SchemaConfig{
		BaseURL: server.URL, APIKey: "k", Model: "m",
	}, nil, nil, nil)

	var dst struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	if !client.ExtractInto(context.Background(), ExtractRequest{Prompt: "p"}, &dst) {
		t.Fatal("Expected ExtractInto to succeed")
	}
	if dst.Name != "lithium" || dst.Count != 3 {
		t.Errorf("Unexpected destination: %+v", dst)
	}
}

func TestRenderSchema(t *testing.T) {
	s := Object(map[string]*Schema{
		"tags": Array(Str("tag")),
		"kind": Enum("kind", "a", "b"),
	}, "tags")

	out := renderSchema(s)
	if out["type"] != "OBJECT" {
		t.Errorf("Expected OBJECT type, got %v", out["type"])
	}
	props := out["properties"].(map[string]any)
	tags := props["tags"].(map[string]any)
	if tags["type"] != "ARRAY" {
		t.Errorf("Expected ARRAY type for tags, got %v", tags["type"])
	}
	kind := props["kind"].(map[string]any)
	if enum := kind["enum"].([]string); len(enum) != 2 {
		t.Errorf("Expected 2 enum values, got %v", kind["enum"])
	}
}
