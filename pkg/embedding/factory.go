package embedding

import "fmt"

// NewProvider builds one of the HTTP-backed providers by name. Jina lives in
// its own package and is wired by the caller to avoid an import cycle.
func NewProvider(name, apiKey, baseURL, model string) (EmbeddingProvider, error) {
	switch name {
	case "ollama":
		return NewOllamaProvider(baseURL, model), nil
	case "gemini", "":
		p := NewGeminiProvider(apiKey)
		if model != "" {
			p.Model = model
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", name)
	}
}
