package factory

import (
	"fmt"

	"ai-studykit-be/pkg/llm"
	"ai-studykit-be/pkg/llm/huggingface"
	"ai-studykit-be/pkg/llm/ollama"
)

func NewLLMProvider(providerType, modelName, baseURL, apiKey string) (llm.LLMProvider, error) {
	switch providerType {
	case "ollama":
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, modelName), nil
	case "huggingface":
		if apiKey == "" {
			return nil, fmt.Errorf("huggingface provider requires an api key")
		}
		return huggingface.NewHuggingFaceProvider(apiKey, baseURL, modelName), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}
