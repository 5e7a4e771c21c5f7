// Package quiz generates one quiz question per content chunk. A planning step
// picks the question format and a conditional edge dispatches to the writer
// for that format.
package quiz

import (
	"context"
	"fmt"

	"ai-studykit-be/internal/constant"
	"ai-studykit-be/pkg/ai/artifact"
	"ai-studykit-be/pkg/llm"
	"ai-studykit-be/pkg/workflow"
)

const (
	GraphName = "quiz"

	NodePlanQuiz       = "plan-quiz"
	NodeShortAnswer    = "short-answer"
	NodeMultipleChoice = "multiple-choice"
	NodeTrueFalse      = "true-false"
)

var ErrUnroutedQuizType = fmt.Errorf("quiz: unrouted quiz type: %w", workflow.ErrUnroutedBranch)

type State struct {
	artifact.Params
	Preferred    artifact.QuizType      `json:"preferred,omitempty"`
	QuizType     artifact.QuizType      `json:"quiz_type,omitempty"`
	QuestionPlan string                 `json:"question_plan,omitempty"`
	Output       *artifact.QuizQuestion `json:"output,omitempty"`
}

type Patch struct {
	QuizType     *artifact.QuizType
	QuestionPlan *string
	Output       *artifact.QuizQuestion
}

func Merge(s State, p Patch) State {
	if p.QuizType != nil {
		s.QuizType = *p.QuizType
	}
	if p.QuestionPlan != nil {
		s.QuestionPlan = *p.QuestionPlan
	}
	if p.Output != nil {
		s.Output = p.Output
	}
	return s
}

// quizPlan checks presence only; the router owns the set of known types.
type quizPlan struct {
	QuizType artifact.QuizType `json:"quiz_type" validate:"required"`
	Plan     string            `json:"plan" validate:"required"`
}

type Option func(*Generator)

func WithCheckpointStore(store workflow.CheckpointStore[State]) Option {
	return func(g *Generator) {
		g.store = store
	}
}

type Generator struct {
	llm   llm.LLMProvider
	store workflow.CheckpointStore[State]
	graph *workflow.Graph[State, Patch]
}

func NewGenerator(provider llm.LLMProvider, opts ...Option) (*Generator, error) {
	g := &Generator{llm: provider}
	for _, opt := range opts {
		opt(g)
	}

	b := workflow.NewBuilder[State, Patch](GraphName, Merge).
		AddNode(NodePlanQuiz, g.planQuiz).
		AddNode(NodeShortAnswer, g.writer(artifact.QuizShortAnswer, constant.QuizShortAnswerPromptV1)).
		AddNode(NodeMultipleChoice, g.writer(artifact.QuizMultipleChoice, constant.QuizMultipleChoicePromptV1)).
		AddNode(NodeTrueFalse, g.writer(artifact.QuizTrueFalse, constant.QuizTrueFalsePromptV1)).
		SetEntry(NodePlanQuiz).
		AddConditionalEdge(NodePlanQuiz, routeByType, NodeShortAnswer, NodeMultipleChoice, NodeTrueFalse).
		AddEdge(NodeShortAnswer, workflow.End).
		AddEdge(NodeMultipleChoice, workflow.End).
		AddEdge(NodeTrueFalse, workflow.End)
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

// Generate produces one validated question. A non-empty preferred type
// overrides the format chosen by the planner.
func (g *Generator) Generate(ctx context.Context, threadID string, params artifact.Params, preferred artifact.QuizType) (*artifact.QuizQuestion, error) {
	out, err := g.graph.RunOrResume(ctx, threadID, State{Params: params, Preferred: preferred})
	if err != nil {
		return nil, err
	}
	if out.Output == nil {
		return nil, workflow.MissingField("output")
	}
	return out.Output, nil
}

func (g *Generator) planQuiz(ctx context.Context, s State) (Patch, error) {
	hint := ""
	if s.Preferred != "" {
		hint = fmt.Sprintf("The instructor asked for %s questions.", s.Preferred)
	}
	prompt := fmt.Sprintf(constant.QuizPlanPromptV1, s.Profile(), hint, s.Content)
	raw, err := g.llm.Generate(ctx, prompt, llm.WithJSONFormat(), llm.WithTemperature(0.2))
	if err != nil {
		return Patch{}, err
	}

	var plan quizPlan
	if err := artifact.Decode(artifact.KindQuiz, raw, &plan); err != nil {
		return Patch{}, err
	}
	quizType := plan.QuizType
	if s.Preferred != "" {
		quizType = s.Preferred
	}
	return Patch{QuizType: &quizType, QuestionPlan: &plan.Plan}, nil
}

func routeByType(_ context.Context, s State) (string, error) {
	switch s.QuizType {
	case artifact.QuizShortAnswer:
		return NodeShortAnswer, nil
	case artifact.QuizMultipleChoice:
		return NodeMultipleChoice, nil
	case artifact.QuizTrueFalse:
		return NodeTrueFalse, nil
	case "":
		return "", workflow.MissingField("quiz_type")
	default:
		return "", fmt.Errorf("%w: %q", ErrUnroutedQuizType, s.QuizType)
	}
}

func (g *Generator) writer(quizType artifact.QuizType, template string) workflow.NodeFunc[State, Patch] {
	return func(ctx context.Context, s State) (Patch, error) {
		prompt := fmt.Sprintf(template, s.Profile(), s.QuestionPlan, s.Content)
		raw, err := g.llm.Generate(ctx, prompt, llm.WithJSONFormat())
		if err != nil {
			return Patch{}, err
		}

		var q artifact.QuizQuestion
		if err := llm.DecodeJSON(raw, &q); err != nil {
			return Patch{}, artifact.Invalid(artifact.KindQuiz, "malformed JSON: "+err.Error())
		}
		// the branch, not the model, decides the type
		q.Type = quizType
		if err := artifact.Validate(artifact.KindQuiz, q); err != nil {
			return Patch{}, err
		}
		return Patch{Output: &q}, nil
	}
}
