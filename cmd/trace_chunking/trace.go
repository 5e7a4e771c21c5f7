package main

import (
	"fmt"
	"strconv"

	"ai-studykit-be/internal/config"
	"ai-studykit-be/pkg/chunking"
	"ai-studykit-be/pkg/document"
	"ai-studykit-be/pkg/embedding"
	"ai-studykit-be/pkg/embedding/jina"
	"ai-studykit-be/pkg/utils"
	"ai-studykit-be/pkg/vector"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

var (
	flagMin       int
	flagMax       int
	flagOverlap   int
	flagThreshold float64
	flagPages     int
	flagVerbose   bool
)

func init() {
	f := rootCmd.Flags()
	f.IntVar(&flagMin, "min", 0, "minimum chunk size in sentences")
	f.IntVar(&flagMax, "max", 0, "maximum chunk size in sentences")
	f.IntVar(&flagOverlap, "overlap", -1, "sentences repeated from the previous chunk")
	f.Float64Var(&flagThreshold, "threshold", 0, "cosine similarity that grows the target size")
	f.IntVar(&flagPages, "pages", 0, "PDF pages to read (0 = all)")
	f.BoolVarP(&flagVerbose, "verbose", "v", false, "print every sentence with its similarity")
}

func runTrace(cmd *cobra.Command, args []string) error {
	raw, err := document.ReadText(args[0], flagPages)
	if err != nil {
		return err
	}

	cfg := config.Load()
	opts := chunkingOptions(cfg.Chunking)
	chunker, err := chunking.NewChunker(opts)
	if err != nil {
		return err
	}

	provider, err := newProvider(cfg)
	if err != nil {
		return fmt.Errorf("create embedding provider: %w", err)
	}
	batcher := embedding.NewBatcher(provider, embedding.TaskSemanticSimilarity, cfg.Ai.EmbeddingWorkers)

	header := color.New(color.FgCyan, color.Bold)
	sentences := utils.SplitSentences(raw)
	header.Printf("--- %d SENTENCES ---\n", len(sentences))
	if len(sentences) == 0 {
		return nil
	}

	embeddings, err := batcher.EmbedAll(cmd.Context(), sentences)
	if err != nil {
		return err
	}

	if flagVerbose {
		printSentences(sentences, embeddings, chunker.Options().Threshold)
	}

	chunks, err := chunker.Chunk(sentences, embeddings)
	if err != nil {
		return err
	}

	header.Printf("--- %d CHUNKS (min=%d max=%d overlap=%d threshold=%.2f) ---\n",
		len(chunks), opts.MinSize, opts.MaxSize, opts.OverlapSize, chunker.Options().Threshold)
	fmt.Println(renderChunks(chunks))
	return nil
}

// chunkingOptions applies command line overrides on top of the environment.
func chunkingOptions(c config.ChunkingConfig) chunking.Options {
	opts := chunking.Options{
		MinSize:     c.MinSize,
		MaxSize:     c.MaxSize,
		OverlapSize: c.OverlapSize,
		Threshold:   c.Threshold,
	}
	if flagMin > 0 {
		opts.MinSize = flagMin
	}
	if flagMax > 0 {
		opts.MaxSize = flagMax
	}
	if flagOverlap >= 0 {
		opts.OverlapSize = flagOverlap
	}
	if flagThreshold > 0 {
		opts.Threshold = flagThreshold
	}
	return opts
}

func newProvider(cfg *config.Config) (embedding.EmbeddingProvider, error) {
	switch cfg.Ai.EmbeddingProvider {
	case "jina":
		return jina.NewJinaProvider(cfg.Keys.Jina), nil
	case "ollama":
		return embedding.NewProvider("ollama", "", cfg.Ai.OllamaBaseURL, cfg.Ai.OllamaModel)
	default:
		return embedding.NewProvider(cfg.Ai.EmbeddingProvider, cfg.Keys.GoogleGemini, "", "")
	}
}

func printSentences(sentences []string, embeddings [][]float32, threshold float64) {
	similar := color.New(color.FgGreen)
	shift := color.New(color.FgYellow)
	faint := color.New(color.Faint)

	for i, s := range sentences {
		if i == 0 {
			faint.Printf("[%3d]        %s\n", i, preview(s, 80))
			continue
		}
		sim, _ := vector.CosineSimilarity(embeddings[i-1], embeddings[i])
		c := shift
		if sim > threshold {
			c = similar
		}
		c.Printf("[%3d] %.4f ", i, sim)
		fmt.Println(preview(s, 80))
	}
}

func renderChunks(chunks []chunking.Chunk) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"#", "Sentences", "Target", "Overlap", "Preview"})
	for _, c := range chunks {
		tw.AppendRow(table.Row{
			c.Index,
			len(c.Sentences),
			c.TargetSize,
			c.OverlapSize,
			preview(c.Text(), 60),
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})
	tw.AppendFooter(table.Row{"", strconv.Itoa(totalSentences(chunks)), "", "", ""})
	return tw.Render()
}

func totalSentences(chunks []chunking.Chunk) int {
	n := 0
	for _, c := range chunks {
		n += len(c.Sentences)
	}
	return n
}

func preview(s string, l int) string {
	r := []rune(s)
	if len(r) > l {
		return string(r[:l]) + "..."
	}
	return s
}
