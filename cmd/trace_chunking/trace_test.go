package main

import (
	"testing"

	"ai-studykit-be/internal/config"
	"ai-studykit-be/pkg/chunking"

	"github.com/stretchr/testify/assert"
)

func TestChunkingOptionsOverrides(t *testing.T) {
	base := config.ChunkingConfig{MinSize: 3, MaxSize: 8, OverlapSize: 1, Threshold: 0.7}

	assert.Equal(t, chunking.Options{MinSize: 3, MaxSize: 8, OverlapSize: 1, Threshold: 0.7}, chunkingOptions(base))

	flagMin, flagMax, flagOverlap, flagThreshold = 2, 5, 0, 0.9
	t.Cleanup(func() { flagMin, flagMax, flagOverlap, flagThreshold = 0, 0, -1, 0 })
	assert.Equal(t, chunking.Options{MinSize: 2, MaxSize: 5, OverlapSize: 0, Threshold: 0.9}, chunkingOptions(base))
}

func TestRenderChunks(t *testing.T) {
	out := renderChunks([]chunking.Chunk{
		{Index: 0, Sentences: []string{"Cells divide.", "Mitosis has phases."}, TargetSize: 2},
		{Index: 1, Sentences: []string{"Mitosis has phases.", "Cats purr."}, TargetSize: 1, OverlapSize: 1},
	})

	assert.Contains(t, out, "Cells divide. Mitosis has phases.")
	assert.Contains(t, out, "Mitosis has phases. Cats purr.")
	assert.Contains(t, out, "4")
	assert.Equal(t, "abc...", preview("abcdef", 3))
}
