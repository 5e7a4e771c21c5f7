// Package ollama talks to a local Ollama server through its /api/chat endpoint.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"ai-studykit-be/pkg/llm"
)

const (
	defaultTemperature = 0.7
	requestTimeout     = 120 * time.Second
)

type OllamaProvider struct {
	BaseURL   string
	ModelName string
	Client    *http.Client
}

var _ llm.LLMProvider = &OllamaProvider{}

func NewOllamaProvider(baseURL, modelName string) *OllamaProvider {
	return &OllamaProvider{
		BaseURL:   baseURL,
		ModelName: modelName,
		Client:    &http.Client{Timeout: requestTimeout},
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []llm.Message `json:"messages"`
	Stream   bool          `json:"stream"`
	Format   string        `json:"format,omitempty"`
	Options  *modelOptions `json:"options,omitempty"`
}

type modelOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type chatResponse struct {
	Model   string      `json:"model"`
	Message llm.Message `json:"message"`
	Done    bool        `json:"done"`
	Error   string      `json:"error,omitempty"`
}

func (o *OllamaProvider) buildRequest(history []llm.Message, opts llm.Options) chatRequest {
	messages := make([]llm.Message, len(history))
	for i, msg := range history {
		// Ollama only knows user/assistant/system.
		if msg.Role == "model" {
			msg.Role = "assistant"
		}
		messages[i] = msg
	}

	req := chatRequest{
		Model:    o.ModelName,
		Messages: messages,
		Options: &modelOptions{
			Temperature: opts.Temperature,
			NumPredict:  opts.MaxTokens,
		},
	}
	if opts.Model != "" {
		req.Model = opts.Model
	}
	if opts.JSON {
		req.Format = "json"
	}
	return req
}

func (o *OllamaProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	options := llm.Apply(llm.Options{Temperature: defaultTemperature}, opts...)

	payload, err := json.Marshal(o.buildRequest(history, options))
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.BaseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", llm.NewStatusError("ollama", resp.StatusCode, body)
	}

	var out chatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("ollama: %s", out.Error)
	}
	if out.Message.Content == "" {
		return "", fmt.Errorf("ollama: %w", llm.ErrEmptyResponse)
	}

	return out.Message.Content, nil
}

func (o *OllamaProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return o.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, opts...)
}
