package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/DaX-523/notes-ai-1811/internal/errors"
)

func TestGroqProvider_Complete(t *testing.T) {
	// Arrange
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","created":1,"model":"llama3-70b-8192",
			"choices":[{"index":0,"message":{"role":"assistant","content":"Short."},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()
	provider := NewGroqProvider(GroqConfig{APIKey: "test-key", BaseURL: server.URL})

	// Act
	text, err := provider.Complete(context.Background(), SummaryRequest("hello"))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "Short.", text)
	assert.Equal(t, DefaultGroqModel, body["model"])
	messages := body["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Equal(t, SystemPrompt, messages[0].(map[string]any)["content"])
}

func TestGroqProvider_Complete_ServerErrorIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
	}))
	defer server.Close()
	provider := NewGroqProvider(GroqConfig{APIKey: "test-key", BaseURL: server.URL})

	_, err := provider.Complete(context.Background(), SummaryRequest("hello"))

	assert.True(t, apperrors.IsSummarization(err))
	assert.True(t, apperrors.IsRetryable(err))
}

func TestGroqProvider_MissingKey(t *testing.T) {
	provider := NewGroqProvider(GroqConfig{})

	_, err := provider.Complete(context.Background(), SummaryRequest("hello"))

	assert.False(t, provider.IsAvailable())
	assert.True(t, apperrors.IsSummarization(err))
}
