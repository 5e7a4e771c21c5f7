// Package chunking groups sentences into overlapping chunks whose size follows
// the semantic continuity of consecutive sentences.
package chunking

import (
	"errors"
	"fmt"
	"strings"

	"ai-studykit-be/pkg/vector"
)

// DefaultThreshold is the cosine similarity above which two consecutive
// sentences are considered part of the same topic.
const DefaultThreshold = 0.7

var (
	ErrInvalidOptions = errors.New("chunking: invalid options")
	ErrLengthMismatch = errors.New("chunking: sentences and embeddings differ in length")
)

type Options struct {
	MinSize     int
	MaxSize     int
	OverlapSize int
	// Threshold defaults to DefaultThreshold when zero.
	Threshold float64
}

// Chunk is one emitted group of sentences. The first OverlapSize sentences
// repeat the tail of the previous chunk.
type Chunk struct {
	Index       int
	Sentences   []string
	TargetSize  int
	OverlapSize int
}

func (c Chunk) Text() string {
	return strings.Join(c.Sentences, " ")
}

type Chunker struct {
	opts Options
}

func NewChunker(opts Options) (*Chunker, error) {
	if opts.MinSize < 1 {
		return nil, fmt.Errorf("%w: min size must be at least 1, got %d", ErrInvalidOptions, opts.MinSize)
	}
	if opts.MaxSize < opts.MinSize {
		return nil, fmt.Errorf("%w: max size %d is below min size %d", ErrInvalidOptions, opts.MaxSize, opts.MinSize)
	}
	if opts.OverlapSize < 0 {
		return nil, fmt.Errorf("%w: negative overlap %d", ErrInvalidOptions, opts.OverlapSize)
	}
	if opts.Threshold == 0 {
		opts.Threshold = DefaultThreshold
	}
	return &Chunker{opts: opts}, nil
}

func (c *Chunker) Options() Options {
	return c.opts
}

// Chunk walks the sentences once. After each sentence (other than the first)
// the running target size grows by one when the sentence is similar to its
// predecessor and shrinks by one otherwise, staying within [MinSize, MaxSize].
// Whenever the in-progress chunk holds target sentences it is closed and
// emitted behind the overlap carried from the previous chunk; any excess stays
// in progress. Leftover sentences at the end form a final, possibly undersized, chunk.
func (c *Chunker) Chunk(sentences []string, embeddings [][]float32) ([]Chunk, error) {
	if len(sentences) != len(embeddings) {
		return nil, fmt.Errorf("%w: %d sentences, %d embeddings", ErrLengthMismatch, len(sentences), len(embeddings))
	}

	chunks := make([]Chunk, 0)
	target := c.opts.MinSize
	var current, overlap []string

	emit := func(body []string) {
		members := make([]string, 0, len(overlap)+len(body))
		members = append(members, overlap...)
		members = append(members, body...)
		chunks = append(chunks, Chunk{
			Index:       len(chunks),
			Sentences:   members,
			TargetSize:  target,
			OverlapSize: len(overlap),
		})
		overlap = tail(members, c.opts.OverlapSize)
	}

	for i, sentence := range sentences {
		current = append(current, sentence)

		if i > 0 {
			if sim, ok := vector.CosineSimilarity(embeddings[i], embeddings[i-1]); ok {
				target = c.adjust(target, sim)
			}
		}

		for len(current) >= target {
			emit(current[:target])
			current = append([]string(nil), current[target:]...)
		}
	}

	if len(current) > 0 {
		emit(current)
	}

	return chunks, nil
}

func (c *Chunker) adjust(target int, sim float64) int {
	if sim > c.opts.Threshold {
		return min(target+1, c.opts.MaxSize)
	}
	return max(target-1, c.opts.MinSize)
}

func tail(s []string, n int) []string {
	if n <= 0 {
		return nil
	}
	if n > len(s) {
		n = len(s)
	}
	return append([]string(nil), s[len(s)-n:]...)
}

// ChunkSentences is a convenience wrapper around NewChunker(opts).Chunk.
func ChunkSentences(sentences []string, embeddings [][]float32, opts Options) ([]Chunk, error) {
	c, err := NewChunker(opts)
	if err != nil {
		return nil, err
	}
	return c.Chunk(sentences, embeddings)
}
