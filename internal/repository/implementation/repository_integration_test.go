package implementation

import (
	"context"
	"os"
	"testing"

	"ai-studykit-be/internal/entity"
	"ai-studykit-be/internal/model"
	"ai-studykit-be/internal/repository/specification"
	"ai-studykit-be/pkg/ai/artifact"
	"ai-studykit-be/pkg/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testDimensions = 768

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	_ = godotenv.Load("../../../.env")
	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("DB_CONNECTION_STRING not set")
	}

	db, err := database.NewGormDBFromDSN(dsn, database.PoolOptions{MaxOpenConns: 2, Quiet: true})
	require.NoError(t, err)
	require.NoError(t, db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error)
	require.NoError(t, db.AutoMigrate(&model.GenerationJob{}, &model.GeneratedArtifact{}))
	return db
}

func axis(i int) []float32 {
	v := make([]float32, testDimensions)
	v[i] = 1
	return v
}

func quizArtifact(question string) artifact.Artifact {
	return artifact.NewQuiz(artifact.QuizQuestion{
		Type:     artifact.QuizShortAnswer,
		Question: question,
		Answer:   "mitosis",
	})
}

func TestGenerationRepositories(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	jobs := NewGenerationJobRepository(db)
	artifacts := NewGeneratedArtifactRepository(db)

	moduleId := uuid.New()
	job := &entity.GenerationJob{
		Id:       uuid.New(),
		ModuleId: moduleId,
		Kind:     artifact.KindQuiz,
		Status:   entity.JobQueued,
		Content:  "Cells divide.",
		Params:   entity.GenerationParams{QuizType: artifact.QuizShortAnswer},
	}
	require.NoError(t, jobs.Create(ctx, job))
	t.Cleanup(func() {
		db.Unscoped().Where("job_id = ?", job.Id).Delete(&model.GeneratedArtifact{})
		db.Unscoped().Where("id = ?", job.Id).Delete(&model.GenerationJob{})
	})

	t.Run("upsert keeps one row per chunk", func(t *testing.T) {
		first := &entity.GeneratedArtifact{JobId: job.Id, ModuleId: moduleId, ChunkIndex: 0,
			Artifact: quizArtifact("What divides?"), Document: "What divides?", EmbeddingValue: axis(0)}
		require.NoError(t, artifacts.Upsert(ctx, first))

		retry := &entity.GeneratedArtifact{JobId: job.Id, ModuleId: moduleId, ChunkIndex: 0,
			Artifact: quizArtifact("What splits?"), Document: "What splits?", EmbeddingValue: axis(0)}
		require.NoError(t, artifacts.Upsert(ctx, retry))
		assert.Equal(t, first.Id, retry.Id)

		second := &entity.GeneratedArtifact{JobId: job.Id, ModuleId: moduleId, ChunkIndex: 1,
			Artifact: quizArtifact("Name a phase."), Document: "Name a phase.", EmbeddingValue: axis(1)}
		require.NoError(t, artifacts.Upsert(ctx, second))

		n, err := artifacts.Count(ctx, specification.ByJobID{JobID: job.Id})
		require.NoError(t, err)
		assert.EqualValues(t, 2, n)

		stored, err := artifacts.FindAll(ctx, specification.ByJobID{JobID: job.Id}, specification.ChunkOrder{})
		require.NoError(t, err)
		require.Len(t, stored, 2)
		assert.Equal(t, "What splits?", stored[0].Artifact.Quiz.Question)
	})

	t.Run("similar artifacts rank first", func(t *testing.T) {
		scored, err := artifacts.SearchSimilar(ctx, axis(1), moduleId, 2)
		require.NoError(t, err)
		require.Len(t, scored, 2)
		assert.Equal(t, 1, scored[0].Artifact.ChunkIndex)
		assert.InDelta(t, 1.0, scored[0].Similarity, 1e-6)
		assert.InDelta(t, 0.0, scored[1].Similarity, 1e-6)
	})

	t.Run("status and listing", func(t *testing.T) {
		require.NoError(t, jobs.UpdateStatus(ctx, job.Id, entity.JobFailed, "queue closed"))

		listed, err := jobs.FindAll(ctx,
			specification.ByModuleID{ModuleID: moduleId},
			specification.ByStatus{Statuses: []string{string(entity.JobFailed)}},
			specification.Newest{},
			specification.Pagination{Limit: 10},
		)
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.Equal(t, "queue closed", listed[0].ErrorMessage)
		assert.Equal(t, artifact.QuizShortAnswer, listed[0].Params.QuizType)
	})
}
