// Package flashcard generates a set of flashcards per content chunk and
// optionally illustrates individual cards.
package flashcard

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"ai-studykit-be/internal/constant"
	"ai-studykit-be/pkg/ai/artifact"
	"ai-studykit-be/pkg/imagesearch"
	"ai-studykit-be/pkg/llm"
	"ai-studykit-be/pkg/workflow"
)

const (
	GraphName = "flashcards"

	NodeGenerateFlashcards = "generate-flashcards"
	NodeDecideImages       = "decide-images"
	NodeFetchImages        = "fetch-images"

	toolImageSearch = "image_search"
	toolNone        = "none"

	defaultDecisionConcurrency = 4
)

// ImageRequest asks for a picture for Cards[Index].
type ImageRequest struct {
	Index int    `json:"index"`
	Query string `json:"query"`
}

type State struct {
	artifact.Params
	Cards         []artifact.Flashcard `json:"cards,omitempty"`
	ImageRequests []ImageRequest       `json:"image_requests,omitempty"`
	// Decided is set once decide-images ran, even when no card wanted an image.
	Decided bool `json:"decided,omitempty"`
}

type Patch struct {
	Cards         []artifact.Flashcard
	ImageRequests []ImageRequest
	Decided       bool
}

// Merge replaces Cards and ImageRequests wholesale when the patch sets them.
func Merge(s State, p Patch) State {
	if p.Cards != nil {
		s.Cards = p.Cards
	}
	if p.ImageRequests != nil {
		s.ImageRequests = p.ImageRequests
	}
	if p.Decided {
		s.Decided = true
	}
	return s
}

type toolCall struct {
	Tool  string `json:"tool" validate:"required,oneof=image_search none"`
	Query string `json:"query" validate:"required_if=Tool image_search"`
}

type Option func(*Generator)

func WithCheckpointStore(store workflow.CheckpointStore[State]) Option {
	return func(g *Generator) {
		g.store = store
	}
}

// WithDecisionConcurrency bounds parallel per-card image decisions.
func WithDecisionConcurrency(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.concurrency = n
		}
	}
}

type Generator struct {
	llm         llm.LLMProvider
	images      imagesearch.Searcher
	store       workflow.CheckpointStore[State]
	concurrency int
	graph       *workflow.Graph[State, Patch]
}

func NewGenerator(provider llm.LLMProvider, images imagesearch.Searcher, opts ...Option) (*Generator, error) {
	g := &Generator{
		llm:         provider,
		images:      images,
		concurrency: defaultDecisionConcurrency,
	}
	for _, opt := range opts {
		opt(g)
	}

	b := workflow.NewBuilder[State, Patch](GraphName, Merge).
		AddNode(NodeGenerateFlashcards, g.generateFlashcards).
		AddNode(NodeDecideImages, g.decideImages).
		AddNode(NodeFetchImages, g.fetchImages).
		SetEntry(NodeGenerateFlashcards).
		AddEdge(NodeGenerateFlashcards, NodeDecideImages).
		AddConditionalEdge(NodeDecideImages, routeAfterDecisions, NodeFetchImages, workflow.End).
		AddEdge(NodeFetchImages, workflow.End)
	if g.store != nil {
		b.WithCheckpointStore(g.store)
	}

	graph, err := b.Compile()
	if err != nil {
		return nil, err
	}
	g.graph = graph
	return g, nil
}

// Generate returns a validated set of at least artifact.MinFlashcards cards.
// params.PriorArtifacts should hold the fronts of cards generated earlier.
func (g *Generator) Generate(ctx context.Context, threadID string, params artifact.Params) (*artifact.FlashcardSet, error) {
	out, err := g.graph.RunOrResume(ctx, threadID, State{Params: params})
	if err != nil {
		return nil, err
	}
	set := artifact.FlashcardSet{Cards: out.Cards}
	if err := artifact.Validate(artifact.KindFlashcards, set); err != nil {
		return nil, err
	}
	return &set, nil
}

func (g *Generator) generateFlashcards(ctx context.Context, s State) (Patch, error) {
	prior := "(none)"
	if len(s.PriorArtifacts) > 0 {
		prior = "- " + strings.Join(s.PriorArtifacts, "\n- ")
	}
	plan := s.Plan
	if plan == "" {
		plan = "(none)"
	}

	prompt := fmt.Sprintf(constant.FlashcardGenerationPromptV1, s.Profile(), plan, prior, s.Content)
	raw, err := g.llm.Generate(ctx, prompt, llm.WithJSONFormat(), llm.WithMaxTokens(2048))
	if err != nil {
		return Patch{}, err
	}

	var set artifact.FlashcardSet
	if err := artifact.Decode(artifact.KindFlashcards, raw, &set); err != nil {
		return Patch{}, err
	}
	return Patch{Cards: set.Cards}, nil
}

func (g *Generator) decideImages(ctx context.Context, s State) (Patch, error) {
	if len(s.Cards) == 0 {
		return Patch{}, workflow.MissingField("cards")
	}
	requests := make([]ImageRequest, 0)
	if g.images == nil {
		return Patch{ImageRequests: requests, Decided: true}, nil
	}

	decisions := make([]toolCall, len(s.Cards))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.concurrency)
	for i, card := range s.Cards {
		eg.Go(func() error {
			prompt := fmt.Sprintf(constant.FlashcardImageDecisionPromptV1, card.Front, card.Back)
			raw, err := g.llm.Generate(egCtx, prompt, llm.WithJSONFormat(), llm.WithTemperature(0.1))
			if err != nil {
				return err
			}
			return artifact.Decode(artifact.KindFlashcards, raw, &decisions[i])
		})
	}
	if err := eg.Wait(); err != nil {
		return Patch{}, err
	}

	for i, d := range decisions {
		if d.Tool != toolImageSearch {
			continue
		}
		if q := imagesearch.TrimQuery(d.Query); q != "" {
			requests = append(requests, ImageRequest{Index: i, Query: q})
		}
	}
	return Patch{ImageRequests: requests, Decided: true}, nil
}

func routeAfterDecisions(_ context.Context, s State) (string, error) {
	if !s.Decided {
		return "", workflow.MissingField("decided")
	}
	if len(s.ImageRequests) > 0 {
		return NodeFetchImages, nil
	}
	return workflow.End, nil
}

func (g *Generator) fetchImages(ctx context.Context, s State) (Patch, error) {
	cards := slices.Clone(s.Cards)
	for _, req := range s.ImageRequests {
		if req.Index < 0 || req.Index >= len(cards) {
			return Patch{}, fmt.Errorf("%w: image request for card %d of %d", workflow.ErrWorkflowState, req.Index, len(cards))
		}
		url, found, err := g.images.Search(ctx, req.Query)
		if err != nil {
			return Patch{}, fmt.Errorf("image search for card %d: %w", req.Index, err)
		}
		if found {
			cards[req.Index].Image = url
		}
	}
	return Patch{Cards: cards}, nil
}
