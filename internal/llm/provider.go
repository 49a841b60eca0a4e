package llm

import (
	"context"
	"errors"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a chat conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ModelKind selects between the reasoning model and the cheaper chat model.
type ModelKind string

const (
	ModelReasoner ModelKind = "reasoner"
	ModelChat     ModelKind = "chat"
)

// ChatRequest is the input to the reasoner/chat provider.
type ChatRequest struct {
	Messages    []Message
	Model       ModelKind
	MaxTokens   int
	Temperature float32
}

// Usage tracks token consumption for a call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatResponse is the reasoner/chat provider output.
type ChatResponse struct {
	Content   string
	Reasoning string // reasoning trace, if the model emits one
	Usage     *Usage
}

// StreamDelta is one streaming increment.
type StreamDelta struct {
	Content   string
	Reasoning string
}

// Reasoner is the free-form prose provider. Calls honour the caller's
// context deadline; nothing inside the transport retries.
type Reasoner interface {
	// Complete performs a blocking chat completion.
	Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// Stream performs a streaming completion, invoking fn for every delta
	// until end-of-stream. A non-nil error from fn aborts the stream.
	Stream(ctx context.Context, req ChatRequest, fn func(StreamDelta) error) error
}

// ErrNoAPIKey is returned by constructors when the provider key is missing.
var ErrNoAPIKey = errors.New("llm: api key not configured")

// ErrEmptyResponse is returned when the provider answers with no choices.
var ErrEmptyResponse = errors.New("llm: empty response from provider")
