package quiz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-studykit-be/pkg/ai/artifact"
	"ai-studykit-be/pkg/llm/llmtest"
	"ai-studykit-be/pkg/workflow"
)

var params = artifact.Params{
	Content:    "AI is powerful. It learns from data. Cats are unrelated to AI.",
	StudyLevel: artifact.LevelHighSchool,
}

func TestGenerate_AllBranchesWired(t *testing.T) {
	tests := []struct {
		quizType string
		task     string
		response string
		check    func(t *testing.T, q *artifact.QuizQuestion)
	}{
		{
			quizType: "short_answer",
			task:     "Task: QUIZ_SHORT_ANSWER",
			response: `{"question":"What does AI learn from?","answer":"Data","explanation":"Stated in sentence two."}`,
			check: func(t *testing.T, q *artifact.QuizQuestion) {
				assert.Equal(t, "Data", q.Answer)
			},
		},
		{
			quizType: "multiple_choice",
			task:     "Task: QUIZ_MULTIPLE_CHOICE",
			response: `{"question":"AI learns from?","options":["cats","data","rocks","air"],"answer_index":1}`,
			check: func(t *testing.T, q *artifact.QuizQuestion) {
				require.NotNil(t, q.AnswerIndex)
				assert.Equal(t, 1, *q.AnswerIndex)
				assert.Len(t, q.Options, 4)
			},
		},
		{
			quizType: "true_false",
			task:     "Task: QUIZ_TRUE_FALSE",
			response: `{"question":"Cats are a kind of AI.","answer_bool":false}`,
			check: func(t *testing.T, q *artifact.QuizQuestion) {
				require.NotNil(t, q.AnswerBool)
				assert.False(t, *q.AnswerBool)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.quizType, func(t *testing.T) {
			model := llmtest.New(
				llmtest.Rule{Contains: "Task: QUIZ_PLAN", Response: `{"quiz_type":"` + tt.quizType + `","plan":"test the data dependency"}`},
				llmtest.Rule{Contains: tt.task, Response: tt.response},
			)
			g, err := NewGenerator(model)
			require.NoError(t, err)

			q, err := g.Generate(context.Background(), "job:"+tt.quizType, params, "")
			require.NoError(t, err)
			assert.Equal(t, artifact.QuizType(tt.quizType), q.Type)
			tt.check(t, q)
			assert.Equal(t, 1, model.Count(tt.task))
		})
	}
}

func TestGenerate_UnroutedQuizType(t *testing.T) {
	model := llmtest.New(
		llmtest.Rule{Contains: "Task: QUIZ_PLAN", Response: `{"quiz_type":"essay","plan":"discuss"}`},
	)
	g, err := NewGenerator(model)
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), "job:essay", params, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnroutedQuizType)
	assert.ErrorIs(t, err, workflow.ErrUnroutedBranch)
}

func TestGenerate_PreferredTypeWins(t *testing.T) {
	model := llmtest.New(
		llmtest.Rule{Contains: "Task: QUIZ_PLAN", Response: `{"quiz_type":"short_answer","plan":"check recall"}`},
		llmtest.Rule{Contains: "Task: QUIZ_TRUE_FALSE", Response: `{"question":"AI learns from data.","answer_bool":true}`},
	)
	g, err := NewGenerator(model)
	require.NoError(t, err)

	q, err := g.Generate(context.Background(), "job:pref", params, artifact.QuizTrueFalse)
	require.NoError(t, err)
	assert.Equal(t, artifact.QuizTrueFalse, q.Type)
	assert.Zero(t, model.Count("Task: QUIZ_SHORT_ANSWER"))
	assert.Contains(t, model.Prompts()[0], "asked for true_false")
}

func TestGenerate_InvalidQuestionRejected(t *testing.T) {
	model := llmtest.New(
		llmtest.Rule{Contains: "Task: QUIZ_PLAN", Response: `{"quiz_type":"multiple_choice","plan":"p"}`},
		llmtest.Rule{Contains: "Task: QUIZ_MULTIPLE_CHOICE", Response: `{"question":"Pick","options":["a","b"],"answer_index":0}`},
	)
	g, err := NewGenerator(model)
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), "job:bad", params, "")
	var vErr *artifact.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, artifact.KindQuiz, vErr.Kind)
}

func TestGenerate_PlanMissingFields(t *testing.T) {
	model := llmtest.New(
		llmtest.Rule{Contains: "Task: QUIZ_PLAN", Response: `{"plan":"p"}`},
	)
	g, err := NewGenerator(model)
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), "job:noplan", params, "")
	assert.ErrorIs(t, err, artifact.ErrArtifactValidation)
}

func TestRouteByType_Missing(t *testing.T) {
	_, err := routeByType(context.Background(), State{})
	assert.ErrorIs(t, err, workflow.ErrWorkflowState)
}
