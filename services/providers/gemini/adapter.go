// Package gemini adapts the Google Gemini API to the relay Provider contract.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/upb/persona-relay/services/providers"
)

const (
	defaultBaseURL    = "https://generativelanguage.googleapis.com/"
	defaultAPIVersion = "v1beta"
)

// Config holds Gemini provider settings
type Config struct {
	Name       string
	APIKey     string
	BaseURL    string
	APIVersion string
	// HTTPClient overrides the SDK default client (tests)
	HTTPClient *http.Client
}

// Adapter implements the Provider interface for Gemini
type Adapter struct {
	name   string
	client *genai.Client
}

// NewAdapter creates a Gemini client. The API key is only checked by the
// remote service on the first request.
func NewAdapter(cfg Config) (*Adapter, error) {
	if cfg.Name == "" {
		cfg.Name = "gemini"
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s: api key is required", cfg.Name)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = defaultAPIVersion
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    cfg.BaseURL,
			APIVersion: cfg.APIVersion,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create client: %w", cfg.Name, err)
	}

	return &Adapter{name: cfg.Name, client: client}, nil
}

// Name returns the provider name
func (a *Adapter) Name() string {
	return a.name
}

// ChatCompletion performs a generateContent call
func (a *Adapter) ChatCompletion(ctx context.Context, req *providers.ChatRequest) (*providers.ChatResponse, error) {
	startTime := time.Now()

	contents, config := a.buildRequest(req)
	resp, err := a.client.Models.GenerateContent(ctx, req.Model, contents, config)
	if err != nil {
		return nil, a.toProviderErr(err)
	}

	// Blocked prompts come back with no candidates
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, providers.NewProviderError(a.name, "EMPTY_RESPONSE", "response carried no candidates", 0, nil)
	}

	return a.convertToUnifiedResponse(resp, req.Model, time.Since(startTime)), nil
}

// buildRequest splits system messages into the system instruction and maps the rest to contents
func (a *Adapter) buildRequest(req *providers.ChatRequest) ([]*genai.Content, *genai.GenerateContentConfig) {
	config := &genai.GenerateContentConfig{}
	var system []string
	contents := make([]*genai.Content, 0, len(req.Messages))

	for _, msg := range req.Messages {
		switch msg.Role {
		case providers.RoleSystem:
			system = append(system, msg.Content)
		case providers.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}

	if len(system) > 0 {
		config.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n"), genai.RoleUser)
	}
	if req.Temperature > 0 {
		config.Temperature = genai.Ptr(float32(req.Temperature))
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}

	return contents, config
}

func (a *Adapter) convertToUnifiedResponse(resp *genai.GenerateContentResponse, model string, latency time.Duration) *providers.ChatResponse {
	out := &providers.ChatResponse{
		ID:       resp.ResponseID,
		Model:    model,
		Provider: a.name,
		Choices:  make([]providers.Choice, 0, len(resp.Candidates)),
		Latency:  latency,
	}
	if resp.ModelVersion != "" {
		out.Model = resp.ModelVersion
	}
	if resp.UsageMetadata != nil {
		out.Usage = providers.Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}

	for i, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		var text strings.Builder
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			text.WriteString(part.Text)
		}
		out.Choices = append(out.Choices, providers.Choice{
			Index:        i,
			Message:      providers.Message{Role: providers.RoleAssistant, Content: text.String()},
			FinishReason: strings.ToLower(string(candidate.FinishReason)),
		})
	}

	return out
}

// toProviderErr keeps the API status code so failures can be classified by code
func (a *Adapter) toProviderErr(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		message := apiErr.Message
		if message == "" {
			message = fmt.Sprintf("request failed with status %d", apiErr.Code)
		}
		return providers.NewProviderError(a.name, apiErr.Status, message, apiErr.Code, err)
	}
	return providers.NewProviderError(a.name, "HTTP_ERROR", "HTTP request failed", 0, err)
}
