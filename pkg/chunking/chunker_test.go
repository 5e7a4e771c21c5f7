package chunking

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-studykit-be/pkg/utils"
)

func TestChunk_TopicShiftEndToEnd(t *testing.T) {
	sentences := utils.SplitSentences("AI is powerful. It learns from data. Cats are unrelated to AI.")
	require.Len(t, sentences, 3)

	embeddings := [][]float32{
		{1, 0},
		{0.95, 0.05}, // close to sentence 1
		{0, 1},       // unrelated
	}

	chunks, err := ChunkSentences(sentences, embeddings, Options{MinSize: 1, MaxSize: 3, OverlapSize: 1})
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	assert.Equal(t, []string{"AI is powerful."}, chunks[0].Sentences)
	assert.Equal(t, []string{"AI is powerful.", "It learns from data."}, chunks[1].Sentences)
	assert.Equal(t, []string{"It learns from data.", "Cats are unrelated to AI."}, chunks[2].Sentences)

	assert.Equal(t, 0, chunks[0].OverlapSize)
	assert.Equal(t, 1, chunks[2].OverlapSize)
	assert.Equal(t, "It learns from data. Cats are unrelated to AI.", chunks[2].Text())
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
	}
}

func TestChunk_FewerSentencesThanMin(t *testing.T) {
	chunks, err := ChunkSentences(
		[]string{"One.", "Two."},
		[][]float32{{1, 0}, {1, 0}},
		Options{MinSize: 5, MaxSize: 8, OverlapSize: 1},
	)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, []string{"One.", "Two."}, chunks[0].Sentences)
}

func TestChunk_UndefinedSimilarityLeavesTarget(t *testing.T) {
	// all-zero vectors: similarity is undefined, so the target stays at MinSize
	sentences := []string{"a.", "b.", "c.", "d.", "e.", "f."}
	embeddings := make([][]float32, len(sentences))
	for i := range embeddings {
		embeddings[i] = []float32{0, 0}
	}

	chunks, err := ChunkSentences(sentences, embeddings, Options{MinSize: 2, MaxSize: 4})
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	for _, c := range chunks {
		assert.Len(t, c.Sentences, 2)
		assert.Equal(t, 2, c.TargetSize)
	}
}

func TestChunk_HighSimilarityCapsAtMax(t *testing.T) {
	sentences := make([]string, 20)
	embeddings := make([][]float32, 20)
	for i := range sentences {
		sentences[i] = fmt.Sprintf("s%d.", i)
		embeddings[i] = []float32{1, 1}
	}

	chunks, err := ChunkSentences(sentences, embeddings, Options{MinSize: 2, MaxSize: 3})
	require.NoError(t, err)
	for _, c := range chunks {
		assert.LessOrEqual(t, c.TargetSize, 3)
		assert.LessOrEqual(t, len(c.Sentences), 3)
	}
}

func TestChunk_LowSimilarityFloorsAtMin(t *testing.T) {
	sentences := make([]string, 12)
	embeddings := make([][]float32, 12)
	for i := range sentences {
		sentences[i] = fmt.Sprintf("s%d.", i)
		if i%2 == 0 {
			embeddings[i] = []float32{1, 0}
		} else {
			embeddings[i] = []float32{0, 1}
		}
	}

	chunks, err := ChunkSentences(sentences, embeddings, Options{MinSize: 3, MaxSize: 6})
	require.NoError(t, err)
	for _, c := range chunks {
		assert.Equal(t, 3, c.TargetSize)
	}
	assert.Len(t, chunks, 4)
}

func TestChunk_OverlapNotSmallerThanMin(t *testing.T) {
	sentences := []string{"a.", "b.", "c.", "d.", "e."}
	embeddings := [][]float32{{1, 0}, {0, 1}, {1, 0}, {0, 1}, {1, 0}}

	var chunks []Chunk
	require.NotPanics(t, func() {
		var err error
		chunks, err = ChunkSentences(sentences, embeddings, Options{MinSize: 1, MaxSize: 2, OverlapSize: 3})
		require.NoError(t, err)
	})
	require.NotEmpty(t, chunks)
	assert.Equal(t, []string{"a."}, chunks[0].Sentences)
	// the overlap is bounded by what the previous chunk actually holds
	assert.Equal(t, []string{"a.", "b."}, chunks[1].Sentences)
	assert.Equal(t, []string{"a.", "b.", "c."}, chunks[2].Sentences)
	assert.Equal(t, []string{"a.", "b.", "c.", "d."}, chunks[3].Sentences)
}

func TestChunk_Errors(t *testing.T) {
	_, err := ChunkSentences([]string{"a."}, nil, Options{MinSize: 1, MaxSize: 2})
	assert.ErrorIs(t, err, ErrLengthMismatch)

	for _, opts := range []Options{
		{MinSize: 0, MaxSize: 2},
		{MinSize: 3, MaxSize: 2},
		{MinSize: 1, MaxSize: 2, OverlapSize: -1},
	} {
		_, err := NewChunker(opts)
		assert.ErrorIs(t, err, ErrInvalidOptions, "%+v", opts)
	}
}

func TestChunk_Empty(t *testing.T) {
	chunks, err := ChunkSentences(nil, nil, Options{MinSize: 1, MaxSize: 2})
	require.NoError(t, err)
	assert.NotNil(t, chunks)
	assert.Empty(t, chunks)
}

func TestNewChunker_DefaultThreshold(t *testing.T) {
	c, err := NewChunker(Options{MinSize: 1, MaxSize: 1})
	require.NoError(t, err)
	assert.Equal(t, DefaultThreshold, c.Options().Threshold)
}

func TestChunk_Properties(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 7))

	for run := 0; run < 200; run++ {
		n := rng.IntN(40)
		minSize := 1 + rng.IntN(4)
		maxSize := minSize + rng.IntN(4)
		overlap := rng.IntN(minSize + 1)

		sentences := make([]string, n)
		embeddings := make([][]float32, n)
		for i := range sentences {
			sentences[i] = fmt.Sprintf("sentence %d.", i)
			embeddings[i] = []float32{rng.Float32(), rng.Float32(), rng.Float32() - 0.5}
		}

		opts := Options{MinSize: minSize, MaxSize: maxSize, OverlapSize: overlap}
		chunks, err := ChunkSentences(sentences, embeddings, opts)
		require.NoError(t, err)

		var rebuilt []string
		for i, c := range chunks {
			assert.LessOrEqual(t, len(c.Sentences), maxSize+overlap, "run %d chunk %d", run, i)
			assert.GreaterOrEqual(t, c.TargetSize, minSize)
			assert.LessOrEqual(t, c.TargetSize, maxSize)

			body := c.Sentences[c.OverlapSize:]
			if i < len(chunks)-1 {
				assert.GreaterOrEqual(t, len(body), minSize, "run %d chunk %d", run, i)
			}
			if i > 0 && overlap > 0 {
				prev := chunks[i-1].Sentences
				want := tail(prev, overlap)
				assert.Equal(t, want, c.Sentences[:c.OverlapSize], "run %d chunk %d", run, i)
			}
			if i == 0 || overlap == 0 {
				assert.Zero(t, c.OverlapSize)
			}
			rebuilt = append(rebuilt, body...)
		}

		if n == 0 {
			assert.Empty(t, rebuilt)
		} else {
			assert.Equal(t, sentences, rebuilt, "run %d", run)
		}
	}
}
