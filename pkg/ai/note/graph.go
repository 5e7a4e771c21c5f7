// Package note generates one study note block per content chunk:
// decide-enrichment -> [generate-title -> [generate-image]] -> generate-paragraph -> collect.
package note

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"

	"ai-studykit-be/internal/constant"
	"ai-studykit-be/pkg/ai/artifact"
	"ai-studykit-be/pkg/imagesearch"
	"ai-studykit-be/pkg/llm"
	"ai-studykit-be/pkg/workflow"
)

const (
	GraphName = "note"

	NodeDecideEnrichment  = "decide-enrichment"
	NodeGenerateTitle     = "generate-title"
	NodeGenerateImage     = "generate-image"
	NodeGenerateParagraph = "generate-paragraph"
	NodeCollect           = "collect"

	decisionYes = "Yes"
	decisionNo  = "No"
)

type State struct {
	artifact.Params
	NeedsTitle string              `json:"needs_title,omitempty"`
	Title      string              `json:"title,omitempty"`
	ImageQuery string              `json:"image_query,omitempty"`
	ImageURL   string              `json:"image_url,omitempty"`
	Paragraph  string              `json:"paragraph,omitempty"`
	Output     *artifact.NoteBlock `json:"output,omitempty"`
}

// Patch is what a node changes. Nil fields are left untouched.
type Patch struct {
	NeedsTitle *string
	Title      *string
	ImageQuery *string
	ImageURL   *string
	Paragraph  *string
	Output     *artifact.NoteBlock
}

func Merge(s State, p Patch) State {
	if p.NeedsTitle != nil {
		s.NeedsTitle = *p.NeedsTitle
	}
	if p.Title != nil {
		s.Title = *p.Title
	}
	if p.ImageQuery != nil {
		s.ImageQuery = *p.ImageQuery
	}
	if p.ImageURL != nil {
		s.ImageURL = *p.ImageURL
	}
	if p.Paragraph != nil {
		s.Paragraph = *p.Paragraph
	}
	if p.Output != nil {
		s.Output = p.Output
	}
	return s
}

type enrichmentDecision struct {
	NeedsTitle string `json:"needs_title" validate:"required,oneof=Yes No"`
}

type titleSuggestion struct {
	Title      string `json:"title" validate:"required"`
	ImageQuery string `json:"image_query"`
}

type Option func(*Generator)

func WithCheckpointStore(store workflow.CheckpointStore[State]) Option {
	return func(g *Generator) {
		g.store = store
	}
}

func WithMaxSteps(n int) Option {
	return func(g *Generator) {
		g.maxSteps = n
	}
}

type Generator struct {
	llm      llm.LLMProvider
	images   imagesearch.Searcher
	md       goldmark.Markdown
	store    workflow.CheckpointStore[State]
	maxSteps int
	graph    *workflow.Graph[State, Patch]
}

// NewGenerator compiles the note graph. images may be nil, in which case no
// image block is ever produced.
func NewGenerator(provider llm.LLMProvider, images imagesearch.Searcher, opts ...Option) (*Generator, error) {
	g := &Generator{
		llm:    provider,
		images: images,
		md:     goldmark.New(),
	}
	for _, opt := range opts {
		opt(g)
	}

	b := workflow.NewBuilder[State, Patch](GraphName, Merge).
		AddNode(NodeDecideEnrichment, g.decideEnrichment).
		AddNode(NodeGenerateTitle, g.generateTitle).
		AddNode(NodeGenerateImage, g.generateImage).
		AddNode(NodeGenerateParagraph, g.generateParagraph).
		AddNode(NodeCollect, g.collect).
		SetEntry(NodeDecideEnrichment).
		AddConditionalEdge(NodeDecideEnrichment, g.routeAfterDecision, NodeGenerateTitle, NodeGenerateParagraph).
		AddConditionalEdge(NodeGenerateTitle, g.routeAfterTitle, NodeGenerateImage, NodeGenerateParagraph).
		AddEdge(NodeGenerateImage, NodeGenerateParagraph).
		AddEdge(NodeGenerateParagraph, NodeCollect).
		AddEdge(NodeCollect, workflow.End).
		WithMaxSteps(g.maxSteps)
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

// Generate runs (or resumes) the graph for one chunk.
func (g *Generator) Generate(ctx context.Context, threadID string, params artifact.Params) (*artifact.NoteBlock, error) {
	out, err := g.graph.RunOrResume(ctx, threadID, State{Params: params})
	if err != nil {
		return nil, err
	}
	if out.Output == nil {
		return nil, workflow.MissingField("output")
	}
	return out.Output, nil
}

func (g *Generator) decideEnrichment(ctx context.Context, s State) (Patch, error) {
	prompt := fmt.Sprintf(constant.NoteEnrichmentDecisionPromptV1, s.Profile(), s.Content)
	raw, err := g.llm.Generate(ctx, prompt, llm.WithJSONFormat(), llm.WithTemperature(0.1))
	if err != nil {
		return Patch{}, err
	}

	var d enrichmentDecision
	if err := artifact.Decode(artifact.KindNote, raw, &d); err != nil {
		return Patch{}, err
	}
	return Patch{NeedsTitle: &d.NeedsTitle}, nil
}

func (g *Generator) routeAfterDecision(_ context.Context, s State) (string, error) {
	switch s.NeedsTitle {
	case decisionYes:
		return NodeGenerateTitle, nil
	case decisionNo:
		return NodeGenerateParagraph, nil
	case "":
		return "", workflow.MissingField("needs_title")
	default:
		return "", fmt.Errorf("%w: needs_title=%q", workflow.ErrWorkflowState, s.NeedsTitle)
	}
}

func (g *Generator) generateTitle(ctx context.Context, s State) (Patch, error) {
	prompt := fmt.Sprintf(constant.NoteTitlePromptV1, s.Profile(), s.Content)
	raw, err := g.llm.Generate(ctx, prompt, llm.WithJSONFormat())
	if err != nil {
		return Patch{}, err
	}

	var t titleSuggestion
	if err := artifact.Decode(artifact.KindNote, raw, &t); err != nil {
		return Patch{}, err
	}
	title := strings.TrimSpace(t.Title)
	query := imagesearch.TrimQuery(t.ImageQuery)
	return Patch{Title: &title, ImageQuery: &query}, nil
}

func (g *Generator) routeAfterTitle(_ context.Context, s State) (string, error) {
	if g.images != nil && s.ImageQuery != "" {
		return NodeGenerateImage, nil
	}
	return NodeGenerateParagraph, nil
}

func (g *Generator) generateImage(ctx context.Context, s State) (Patch, error) {
	if s.ImageQuery == "" {
		return Patch{}, workflow.MissingField("image_query")
	}
	url, found, err := g.images.Search(ctx, s.ImageQuery)
	if err != nil {
		return Patch{}, fmt.Errorf("image search: %w", err)
	}
	if !found {
		return Patch{}, nil
	}
	return Patch{ImageURL: &url}, nil
}

func (g *Generator) generateParagraph(ctx context.Context, s State) (Patch, error) {
	plan := s.Plan
	if plan == "" {
		plan = "(none)"
	}
	prompt := fmt.Sprintf(constant.NoteParagraphPromptV1, s.Profile(), s.Title, plan, s.Content)
	raw, err := g.llm.Generate(ctx, prompt)
	if err != nil {
		return Patch{}, err
	}

	paragraph := stripMarkdownFence(raw)
	if paragraph == "" {
		return Patch{}, artifact.Invalid(artifact.KindNote, "paragraph is empty")
	}
	return Patch{Paragraph: &paragraph}, nil
}

func (g *Generator) collect(_ context.Context, s State) (Patch, error) {
	if s.Paragraph == "" {
		return Patch{}, workflow.MissingField("paragraph")
	}

	blocks := make([]artifact.Block, 0, 3)
	if s.ImageURL != "" {
		blocks = append(blocks, artifact.Block{
			Type:    artifact.BlockImage,
			Content: fmt.Sprintf(`<img src="%s" alt="%s">`, html.EscapeString(s.ImageURL), html.EscapeString(s.Title)),
			Source:  s.ImageURL,
		})
	}
	if s.Title != "" {
		header := "## " + s.Title
		rendered, err := g.render(header)
		if err != nil {
			return Patch{}, err
		}
		blocks = append(blocks, artifact.Block{Type: artifact.BlockHeader, Content: rendered, Source: header})
	}
	rendered, err := g.render(s.Paragraph)
	if err != nil {
		return Patch{}, err
	}
	blocks = append(blocks, artifact.Block{Type: artifact.BlockParagraph, Content: rendered, Source: s.Paragraph})

	out := artifact.NoteBlock{Blocks: blocks}
	if err := artifact.Validate(artifact.KindNote, out); err != nil {
		return Patch{}, err
	}
	return Patch{Output: &out}, nil
}

func (g *Generator) render(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := g.md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func stripMarkdownFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:] // drop the language tag line
	} else {
		s = ""
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
