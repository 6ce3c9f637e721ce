package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upb/persona-relay/services/providers"
)

const completionBody = `{
	"id": "chatcmpl-123",
	"object": "chat.completion",
	"created": 1700000000,
	"model": "deepseek-chat",
	"choices": [{
		"index": 0,
		"message": {"role": "assistant", "content": "¿Qué miras, baka?"},
		"finish_reason": "stop"
	}],
	"usage": {"prompt_tokens": 12, "completion_tokens": 6, "total_tokens": 18}
}`

func newTestAdapter(t *testing.T, handler http.HandlerFunc) *Adapter {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	adapter, err := NewAdapter(Config{
		Name:    "deepseek",
		APIKey:  "test-key",
		BaseURL: server.URL + "/v1",
	})
	require.NoError(t, err)
	return adapter
}

func TestNewAdapter(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"valid", Config{Name: "groq", APIKey: "k", BaseURL: "https://api.groq.com/openai/v1"}, false},
		{"default base url", Config{Name: "openai", APIKey: "k"}, false},
		{"missing name", Config{APIKey: "k"}, true},
		{"missing key", Config{Name: "groq"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter, err := NewAdapter(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.config.Name, adapter.Name())
		})
	}
}

func TestAdapter_ChatCompletion(t *testing.T) {
	var got map[string]any
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionBody))
	})

	resp, err := adapter.ChatCompletion(context.Background(), &providers.ChatRequest{
		Model:       "deepseek-chat",
		Messages:    providers.SystemAndUser("Eres Asuka.", "hola"),
		Temperature: 0.7,
		MaxTokens:   128,
	})
	require.NoError(t, err)

	assert.Equal(t, "¿Qué miras, baka?", resp.Text())
	assert.Equal(t, "deepseek", resp.Provider)
	assert.Equal(t, "chatcmpl-123", resp.ID)
	assert.Equal(t, 18, resp.Usage.TotalTokens)
	assert.Equal(t, "stop", resp.Choices[0].FinishReason)

	assert.Equal(t, "deepseek-chat", got["model"])
	assert.Equal(t, 0.7, got["temperature"])
	assert.Equal(t, float64(128), got["max_tokens"])
	messages, ok := got["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Equal(t, "user", messages[1].(map[string]any)["role"])
	assert.Equal(t, "hola", messages[1].(map[string]any)["content"])
}

func TestAdapter_ChatCompletion_ErrorStatus(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantInText string
	}{
		{
			name:       "unauthorized",
			status:     http.StatusUnauthorized,
			body:       `{"error":{"message":"Authentication Fails (no such user)","type":"authentication_error","code":"invalid_api_key"}}`,
			wantStatus: 401,
			wantInText: "Authentication Fails",
		},
		{
			name:       "overloaded",
			status:     http.StatusServiceUnavailable,
			body:       `{"error":{"message":"Server overloaded, please retry shortly","type":"server_error"}}`,
			wantStatus: 503,
			wantInText: "overloaded",
		},
		{
			name:       "rate limited",
			status:     http.StatusTooManyRequests,
			body:       `{"error":{"message":"Rate limit reached","type":"tokens"}}`,
			wantStatus: 429,
			wantInText: "Rate limit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := adapter.ChatCompletion(context.Background(), &providers.ChatRequest{
				Model:    "deepseek-chat",
				Messages: providers.SystemAndUser("", "hola"),
			})
			require.Error(t, err)

			var provErr *providers.ProviderError
			require.True(t, errors.As(err, &provErr))
			assert.Equal(t, "deepseek", provErr.Provider)
			assert.Equal(t, tt.wantStatus, provErr.StatusCode)
			assert.Contains(t, provErr.Error(), tt.wantInText)
			assert.Equal(t, int32(1), calls.Load(), "SDK retries must be disabled")
		})
	}
}

func TestAdapter_ChatCompletion_NoChoices(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[]}`))
	})

	_, err := adapter.ChatCompletion(context.Background(), &providers.ChatRequest{
		Model:    "m",
		Messages: providers.SystemAndUser("", "hola"),
	})

	var provErr *providers.ProviderError
	require.True(t, errors.As(err, &provErr))
	assert.Equal(t, "EMPTY_RESPONSE", provErr.Code)
}

func TestAdapter_ChatCompletion_ContextDeadline(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := adapter.ChatCompletion(ctx, &providers.ChatRequest{
		Model:    "deepseek-chat",
		Messages: providers.SystemAndUser("", "hola"),
	})
	require.Error(t, err)

	var provErr *providers.ProviderError
	require.True(t, errors.As(err, &provErr))
	assert.Equal(t, 0, provErr.StatusCode)
	assert.Equal(t, context.DeadlineExceeded, ctx.Err())
}
