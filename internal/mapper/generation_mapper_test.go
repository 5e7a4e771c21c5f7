package mapper

import (
	"testing"
	"time"

	"ai-studykit-be/internal/entity"
	"ai-studykit-be/pkg/ai/artifact"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobMappingKeepsParamsAndEmbedding(t *testing.T) {
	m := NewGenerationMapper()
	job := &entity.GenerationJob{
		Id:       uuid.New(),
		ModuleId: uuid.New(),
		Kind:     artifact.KindQuiz,
		Status:   entity.JobQueued,
		Content:  "Cells divide.",
		Params: entity.GenerationParams{
			StudyLevel: artifact.LevelUndergraduate,
			QuizType:   artifact.QuizTrueFalse,
		},
		DocumentEmbedding: []float32{0.6, 0.8},
		CreatedAt:         time.Now(),
	}

	mdl, err := m.JobToModel(job)
	require.NoError(t, err)
	assert.Equal(t, "quiz", mdl.Kind)
	assert.JSONEq(t, `{"study_level":"undergraduate","quiz_type":"true_false"}`, string(mdl.Params))
	assert.False(t, mdl.DeletedAt.Valid)

	back, err := m.JobToEntity(mdl)
	require.NoError(t, err)
	assert.Equal(t, job.Params, back.Params)
	assert.Equal(t, job.DocumentEmbedding, back.DocumentEmbedding)
	assert.Nil(t, back.UpdatedAt)
}

func TestJobWithoutEmbeddingMapsToNullColumn(t *testing.T) {
	mdl, err := NewGenerationMapper().JobToModel(&entity.GenerationJob{Id: uuid.New(), Kind: artifact.KindNote})
	require.NoError(t, err)
	assert.Nil(t, mdl.DocumentEmbedding)
}

func TestArtifactMappingStoresSelectedVariant(t *testing.T) {
	m := NewGenerationMapper()
	answer := true
	a := &entity.GeneratedArtifact{
		Id:         uuid.New(),
		JobId:      uuid.New(),
		ChunkIndex: 2,
		Artifact: artifact.NewQuiz(artifact.QuizQuestion{
			Type:       artifact.QuizTrueFalse,
			Question:   "Mitochondria produce ATP.",
			AnswerBool: &answer,
		}),
		EmbeddingValue: []float32{1, 0},
	}

	mdl, err := m.ArtifactToModel(a)
	require.NoError(t, err)
	assert.Equal(t, "quiz", mdl.Kind)
	assert.JSONEq(t, `{"type":"true_false","question":"Mitochondria produce ATP.","answer_bool":true}`, string(mdl.Payload))

	back, err := m.ArtifactToEntity(mdl)
	require.NoError(t, err)
	require.NotNil(t, back.Artifact.Quiz)
	assert.Equal(t, a.Artifact.Quiz.Question, back.Artifact.Quiz.Question)
	assert.True(t, *back.Artifact.Quiz.AnswerBool)
	assert.Equal(t, 2, back.ChunkIndex)
}

func TestArtifactWithUnknownKindIsRejected(t *testing.T) {
	_, err := NewGenerationMapper().ArtifactToModel(&entity.GeneratedArtifact{Artifact: artifact.Artifact{Kind: "poem"}})
	assert.Error(t, err)
}
