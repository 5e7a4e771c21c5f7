package embedding

import (
	"context"
	"errors"
)

// Task types understood by providers that distinguish between stored
// documents and search queries. Providers that do not care ignore them.
const (
	TaskRetrievalDocument  = "RETRIEVAL_DOCUMENT"
	TaskRetrievalQuery     = "RETRIEVAL_QUERY"
	TaskSemanticSimilarity = "SEMANTIC_SIMILARITY"
)

// ErrEmbeddingService tags every failure to obtain a vector from the
// underlying service.
var ErrEmbeddingService = errors.New("embedding service error")

// EmbeddingProvider defines the interface for generating text embeddings
type EmbeddingProvider interface {
	Generate(ctx context.Context, text string, taskType string) (*EmbeddingResponse, error)
}

type EmbeddingResponseEmbedding struct {
	Values []float32 `json:"values"`
}

type EmbeddingResponse struct {
	Embedding EmbeddingResponseEmbedding `json:"embedding"`
}
