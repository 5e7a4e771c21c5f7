package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-studykit-be/pkg/llm"
)

func TestOllamaProvider_Generate(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"model":"llama3","message":{"role":"assistant","content":"{\"needs_title\":\"Yes\"}"},"done":true}`))
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "llama3")
	out, err := p.Generate(context.Background(), "classify", llm.WithJSONFormat(), llm.WithMaxTokens(64))
	require.NoError(t, err)

	assert.Equal(t, `{"needs_title":"Yes"}`, out)
	assert.Equal(t, "json", got.Format)
	assert.Equal(t, "llama3", got.Model)
	assert.False(t, got.Stream)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, 64, got.Options.NumPredict)
}

func TestOllamaProvider_Chat_MapsModelRole(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"ok"},"done":true}`))
	}))
	defer srv.Close()

	_, err := NewOllamaProvider(srv.URL, "llama3").Chat(context.Background(), []llm.Message{
		{Role: "system", Content: "be brief"},
		{Role: "model", Content: "earlier answer"},
	}, llm.WithModel("qwen2.5"))
	require.NoError(t, err)

	assert.Equal(t, "qwen2.5", got.Model)
	assert.Empty(t, got.Format)
	assert.Equal(t, "assistant", got.Messages[1].Role)
}

func TestOllamaProvider_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewOllamaProvider(srv.URL, "llama3").Generate(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")

	var se *llm.StatusError
	require.ErrorAs(t, err, &se)
	assert.True(t, se.Retryable())
}

func TestOllamaProvider_EmptyMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":""},"done":true}`))
	}))
	defer srv.Close()

	_, err := NewOllamaProvider(srv.URL, "llama3").Generate(context.Background(), "x")
	assert.ErrorIs(t, err, llm.ErrEmptyResponse)
}
