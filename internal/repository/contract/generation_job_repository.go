package contract

import (
	"context"

	"ai-studykit-be/internal/entity"
	"ai-studykit-be/internal/repository/specification"

	"github.com/google/uuid"
)

type GenerationJobRepository interface {
	Create(ctx context.Context, job *entity.GenerationJob) error
	Update(ctx context.Context, job *entity.GenerationJob) error
	// UpdateStatus changes only the status columns so concurrent writers of
	// other fields are not overwritten.
	UpdateStatus(ctx context.Context, id uuid.UUID, status entity.JobStatus, errorMessage string) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.GenerationJob, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.GenerationJob, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
