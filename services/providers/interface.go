package providers

import (
	"context"
	"time"
)

// Provider represents one remote LLM completion backend
type Provider interface {
	// Name returns the provider slot name (e.g., "gemini", "deepseek", "groq")
	Name() string

	// ChatCompletion performs a chat completion request
	ChatCompletion(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
}

// Message roles understood by every adapter
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatRequest represents a unified chat completion request
type ChatRequest struct {
	// Model identifier (e.g., "gemini-2.0-flash", "deepseek-chat")
	Model string `json:"model"`

	// Messages in the conversation. System messages carry persona instructions.
	Messages []Message `json:"messages"`

	// MaxTokens limits the response length; zero leaves it to the provider
	MaxTokens int `json:"max_tokens,omitempty"`

	// Temperature controls randomness (0.0 to 2.0)
	Temperature float64 `json:"temperature,omitempty"`
}

// Message represents a single message in a conversation
type Message struct {
	// Role can be "system", "user", or "assistant"
	Role string `json:"role"`

	// Content is the message text
	Content string `json:"content"`
}

// ChatResponse represents a unified chat completion response
type ChatResponse struct {
	ID       string        `json:"id"`
	Model    string        `json:"model"`
	Provider string        `json:"provider"`
	Choices  []Choice      `json:"choices"`
	Usage    Usage         `json:"usage"`
	Latency  time.Duration `json:"latency"`
}

// Choice represents a completion choice
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// Usage represents token usage statistics
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Text returns the content of the first choice, or "" when there is none
func (r *ChatResponse) Text() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

// SystemAndUser returns the two-message conversation every relay request sends
func SystemAndUser(instructions, message string) []Message {
	msgs := make([]Message, 0, 2)
	if instructions != "" {
		msgs = append(msgs, Message{Role: RoleSystem, Content: instructions})
	}
	return append(msgs, Message{Role: RoleUser, Content: message})
}

// ProviderError represents an error from a provider
type ProviderError struct {
	// Provider that generated the error
	Provider string

	// Code is the error code
	Code string

	// Message is the error message
	Message string

	// StatusCode is the HTTP status code (zero when the request never got a response)
	StatusCode int

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	if e.Cause != nil && e.Cause.Error() != e.Message {
		return e.Provider + ": " + e.Message + ": " + e.Cause.Error()
	}
	return e.Provider + ": " + e.Message
}

// Unwrap implements error unwrapping
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// NewProviderError creates a new provider error
func NewProviderError(provider, code, message string, statusCode int, cause error) *ProviderError {
	return &ProviderError{
		Provider:   provider,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Cause:      cause,
	}
}
