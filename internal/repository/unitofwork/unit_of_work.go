package unitofwork

import (
	"context"

	"ai-studykit-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	GenerationJobRepository() contract.GenerationJobRepository
	GeneratedArtifactRepository() contract.GeneratedArtifactRepository
}
