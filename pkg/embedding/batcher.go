package embedding

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

const defaultBatchConcurrency = 8

// Batcher embeds many texts concurrently while keeping the output aligned
// with the input: result[i] is always the vector for texts[i].
type Batcher struct {
	provider    EmbeddingProvider
	taskType    string
	concurrency int
}

func NewBatcher(provider EmbeddingProvider, taskType string, concurrency int) *Batcher {
	if concurrency <= 0 {
		concurrency = defaultBatchConcurrency
	}
	return &Batcher{
		provider:    provider,
		taskType:    taskType,
		concurrency: concurrency,
	}
}

// EmbedAll requests one vector per text. The batch is all-or-nothing: the first
// failing request cancels the rest and the error is wrapped in ErrEmbeddingService.
func (b *Batcher) EmbedAll(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	if len(texts) == 0 {
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	for i, text := range texts {
		g.Go(func() error {
			res, err := b.provider.Generate(gctx, text, b.taskType)
			if err != nil {
				return fmt.Errorf("%w: text %d: %w", ErrEmbeddingService, i, err)
			}
			if res == nil || len(res.Embedding.Values) == 0 {
				return fmt.Errorf("%w: text %d: empty vector", ErrEmbeddingService, i)
			}
			results[i] = res.Embedding.Values
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	dim := len(results[0])
	for i, v := range results {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: text %d has %d dimensions, want %d", ErrEmbeddingService, i, len(v), dim)
		}
	}

	return results, nil
}

// Embed is a single-text convenience used for search queries.
func (b *Batcher) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := b.EmbedAll(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}
