package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/procureiq/deepresearch/internal/model"
)

// providerReasoner is the rate-limiter key for the reasoner/chat provider.
const providerReasoner = "reasoner"

// ReasonerClient implements Reasoner over any OpenAI-compatible endpoint
// (DeepSeek-style reasoner + chat model pair).
type ReasonerClient struct {
	client        *openai.Client
	reasonerModel string
	chatModel     string
	maxTokens     int
	limiter       *Limiter
}

// NewReasonerClient creates a reasoner/chat client from configuration.
func NewReasonerClient(cfg model.ReasonerConfig, limiter *Limiter) (*ReasonerClient, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &ReasonerClient{
		client:        openai.NewClientWithConfig(clientConfig),
		reasonerModel: cfg.ReasonerModel,
		chatModel:     cfg.ChatModel,
		maxTokens:     cfg.MaxTokens,
		limiter:       limiter,
	}, nil
}

func (c *ReasonerClient) modelFor(kind ModelKind) string {
	if kind == ModelReasoner {
		return c.reasonerModel
	}
	return c.chatModel
}

func (c *ReasonerClient) buildRequest(req ChatRequest, stream bool) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content}
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}
	return openai.ChatCompletionRequest{
		Model:       c.modelFor(req.Model),
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
		Stream:      stream,
	}
}

// Complete performs a blocking chat completion.
func (c *ReasonerClient) Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, providerReasoner); err != nil {
			return nil, err
		}
	}
	resp, err := c.client.CreateChatCompletion(ctx, c.buildRequest(req, false))
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}
	choice := resp.Choices[0].Message
	return &ChatResponse{
		Content:   strings.TrimSpace(choice.Content),
		Reasoning: choice.ReasoningContent,
		Usage: &Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// Stream performs a streaming completion, delivering content and reasoning
// deltas until end-of-stream.
func (c *ReasonerClient) Stream(ctx context.Context, req ChatRequest, fn func(StreamDelta) error) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, providerReasoner); err != nil {
			return err
		}
	}
	stream, err := c.client.CreateChatCompletionStream(ctx, c.buildRequest(req, true))
	if err != nil {
		return fmt.Errorf("chat stream: %w", err)
	}
	defer stream.Close()

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("chat stream recv: %w", err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta
		if delta.Content == "" && delta.ReasoningContent == "" {
			continue
		}
		if err := fn(StreamDelta{Content: delta.Content, Reasoning: delta.ReasoningContent}); err != nil {
			return err
		}
	}
}
