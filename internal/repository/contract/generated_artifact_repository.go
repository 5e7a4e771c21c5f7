package contract

import (
	"context"

	"ai-studykit-be/internal/entity"
	"ai-studykit-be/internal/repository/specification"

	"github.com/google/uuid"
)

// ScoredArtifact wraps GeneratedArtifact with its similarity score
type ScoredArtifact struct {
	Artifact   *entity.GeneratedArtifact
	Similarity float64 // 1.0 = identical direction
}

type GeneratedArtifactRepository interface {
	// Upsert inserts or replaces the artifact stored for (job, chunk index).
	Upsert(ctx context.Context, a *entity.GeneratedArtifact) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.GeneratedArtifact, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	DeleteByJobId(ctx context.Context, jobId uuid.UUID) error
	SearchSimilar(ctx context.Context, embedding []float32, moduleId uuid.UUID, limit int) ([]*ScoredArtifact, error)
}
