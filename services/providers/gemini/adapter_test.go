package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upb/persona-relay/services/providers"
)

const generateBody = `{
	"candidates": [{
		"content": {"role": "model", "parts": [{"text": "¡Hmpf! "}, {"text": "Hola, baka."}]},
		"finishReason": "STOP",
		"index": 0
	}],
	"usageMetadata": {"promptTokenCount": 20, "candidatesTokenCount": 5, "totalTokenCount": 25},
	"modelVersion": "gemini-2.0-flash-001",
	"responseId": "resp-1"
}`

func newTestAdapter(t *testing.T, handler http.HandlerFunc) *Adapter {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	adapter, err := NewAdapter(Config{
		Name:    "gemini",
		APIKey:  "test-key",
		BaseURL: server.URL + "/",
	})
	require.NoError(t, err)
	return adapter
}

func TestNewAdapter(t *testing.T) {
	adapter, err := NewAdapter(Config{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "gemini", adapter.Name())

	_, err = NewAdapter(Config{Name: "gemini"})
	assert.Error(t, err)
}

func TestAdapter_ChatCompletion(t *testing.T) {
	var body map[string]any
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.True(t, strings.HasSuffix(r.URL.Path, "/models/gemini-2.0-flash:generateContent"), r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(generateBody))
	})

	resp, err := adapter.ChatCompletion(context.Background(), &providers.ChatRequest{
		Model:       "gemini-2.0-flash",
		Messages:    providers.SystemAndUser("Eres Asuka.", "hola"),
		Temperature: 0.7,
	})
	require.NoError(t, err)

	assert.Equal(t, "¡Hmpf! Hola, baka.", resp.Text())
	assert.Equal(t, "gemini", resp.Provider)
	assert.Equal(t, "gemini-2.0-flash-001", resp.Model)
	assert.Equal(t, "resp-1", resp.ID)
	assert.Equal(t, 25, resp.Usage.TotalTokens)
	assert.Equal(t, "stop", resp.Choices[0].FinishReason)

	assert.Contains(t, body, "systemInstruction")
	contents, ok := body["contents"].([]any)
	require.True(t, ok)
	require.Len(t, contents, 1, "system text must not be sent as a content turn")
	parts := contents[0].(map[string]any)["parts"].([]any)
	assert.Equal(t, "hola", parts[0].(map[string]any)["text"])
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
			name:       "overloaded",
			status:     http.StatusServiceUnavailable,
			body:       `{"error":{"code":503,"message":"The model is overloaded. Please try again later.","status":"UNAVAILABLE"}}`,
			wantStatus: 503,
			wantInText: "overloaded",
		},
		{
			name:       "bad key",
			status:     http.StatusBadRequest,
			body:       `{"error":{"code":400,"message":"API key not valid. Please pass a valid API key.","status":"INVALID_ARGUMENT"}}`,
			wantStatus: 400,
			wantInText: "API key not valid",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := adapter.ChatCompletion(context.Background(), &providers.ChatRequest{
				Model:    "gemini-2.0-flash",
				Messages: providers.SystemAndUser("", "hola"),
			})
			require.Error(t, err)

			var provErr *providers.ProviderError
			require.True(t, errors.As(err, &provErr))
			assert.Equal(t, "gemini", provErr.Provider)
			assert.Equal(t, tt.wantStatus, provErr.StatusCode)
			assert.Contains(t, provErr.Error(), tt.wantInText)
		})
	}
}

func TestAdapter_ChatCompletion_NoCandidates(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"promptFeedback":{"blockReason":"SAFETY"}}`))
	})

	_, err := adapter.ChatCompletion(context.Background(), &providers.ChatRequest{
		Model:    "gemini-2.0-flash",
		Messages: providers.SystemAndUser("", "algo"),
	})

	var provErr *providers.ProviderError
	require.True(t, errors.As(err, &provErr))
	assert.Equal(t, "EMPTY_RESPONSE", provErr.Code)
}

func TestAdapter_BuildRequest(t *testing.T) {
	adapter := &Adapter{name: "gemini"}

	contents, config := adapter.buildRequest(&providers.ChatRequest{
		Messages: []providers.Message{
			{Role: providers.RoleSystem, Content: "uno"},
			{Role: providers.RoleSystem, Content: "dos"},
			{Role: providers.RoleUser, Content: "hola"},
			{Role: providers.RoleAssistant, Content: "¿qué?"},
		},
		Temperature: 0.5,
		MaxTokens:   64,
	})

	require.Len(t, contents, 2)
	assert.Equal(t, "user", contents[0].Role)
	assert.Equal(t, "model", contents[1].Role)
	require.NotNil(t, config.SystemInstruction)
	assert.Equal(t, "uno\ndos", config.SystemInstruction.Parts[0].Text)
	require.NotNil(t, config.Temperature)
	assert.InDelta(t, 0.5, *config.Temperature, 1e-6)
	assert.Equal(t, int32(64), config.MaxOutputTokens)
}
