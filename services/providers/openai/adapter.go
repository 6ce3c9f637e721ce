// Package openai adapts any OpenAI-compatible chat completion endpoint
// (DeepSeek, Groq, OpenAI itself) to the relay Provider contract.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/packages/param"

	"github.com/upb/persona-relay/services/providers"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
)

// Config holds the settings of one OpenAI-compatible backend
type Config struct {
	// Name is the provider slot this adapter serves (e.g. "deepseek")
	Name    string
	APIKey  string
	BaseURL string
	Headers map[string]string
	// HTTPClient overrides the SDK default client (tests)
	HTTPClient option.HTTPClient
}

// Adapter implements the Provider interface for OpenAI-compatible APIs
type Adapter struct {
	name   string
	client openai.Client
}

// NewAdapter creates a new adapter. No request is sent until the first completion.
func NewAdapter(cfg Config) (*Adapter, error) {
	if cfg.Name == "" {
		return nil, errors.New("provider name is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s: api key is required", cfg.Name)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		// Each provider is tried at most once per message; the dispatcher moves on instead.
		option.WithMaxRetries(0),
	}
	for k, v := range cfg.Headers {
		opts = append(opts, option.WithHeader(k, v))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &Adapter{
		name:   cfg.Name,
		client: openai.NewClient(opts...),
	}, nil
}

// Name returns the provider name
func (a *Adapter) Name() string {
	return a.name
}

// ChatCompletion performs a chat completion request
func (a *Adapter) ChatCompletion(ctx context.Context, req *providers.ChatRequest) (*providers.ChatResponse, error) {
	startTime := time.Now()

	resp, err := a.client.Chat.Completions.New(ctx, a.buildParams(req))
	if err != nil {
		return nil, a.toProviderErr(err)
	}
	if len(resp.Choices) == 0 {
		return nil, providers.NewProviderError(a.name, "EMPTY_RESPONSE", "response carried no choices", 0, nil)
	}

	return a.convertToUnifiedResponse(resp, time.Since(startTime)), nil
}

// buildParams converts unified request to OpenAI format
func (a *Adapter) buildParams(req *providers.ChatRequest) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model:    req.Model,
		Messages: make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)),
	}

	for _, msg := range req.Messages {
		switch msg.Role {
		case providers.RoleSystem:
			params.Messages = append(params.Messages, openai.SystemMessage(msg.Content))
		case providers.RoleAssistant:
			params.Messages = append(params.Messages, openai.AssistantMessage(msg.Content))
		default:
			params.Messages = append(params.Messages, openai.UserMessage(msg.Content))
		}
	}

	if req.MaxTokens > 0 {
		params.MaxTokens = param.NewOpt(int64(req.MaxTokens))
	}
	if req.Temperature > 0 {
		params.Temperature = param.NewOpt(req.Temperature)
	}

	return params
}

// convertToUnifiedResponse converts OpenAI response to unified format
func (a *Adapter) convertToUnifiedResponse(resp *openai.ChatCompletion, latency time.Duration) *providers.ChatResponse {
	out := &providers.ChatResponse{
		ID:       resp.ID,
		Model:    resp.Model,
		Provider: a.name,
		Choices:  make([]providers.Choice, len(resp.Choices)),
		Usage: providers.Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
		Latency: latency,
	}

	for i, choice := range resp.Choices {
		out.Choices[i] = providers.Choice{
			Index: int(choice.Index),
			Message: providers.Message{
				Role:    providers.RoleAssistant,
				Content: choice.Message.Content,
			},
			FinishReason: string(choice.FinishReason),
		}
	}

	return out
}

// toProviderErr keeps the HTTP status of API errors so failures can be classified by code
func (a *Adapter) toProviderErr(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		message := apiErr.Message
		if message == "" && apiErr.Response != nil && apiErr.Response.Body != nil {
			// Some OpenAI-compatible providers return bodies the SDK cannot parse
			data, _ := io.ReadAll(apiErr.Response.Body)
			message = string(data)
		}
		if message == "" {
			message = fmt.Sprintf("request failed with status %d", apiErr.StatusCode)
		}
		return providers.NewProviderError(a.name, apiErr.Code, message, apiErr.StatusCode, err)
	}
	return providers.NewProviderError(a.name, "HTTP_ERROR", "HTTP request failed", 0, err)
}
