package implementation

import (
	"context"

	"ai-studykit-be/internal/entity"
	"ai-studykit-be/internal/mapper"
	"ai-studykit-be/internal/model"
	"ai-studykit-be/internal/repository/contract"
	"ai-studykit-be/internal/repository/specification"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultSearchLimit = 5

type GeneratedArtifactRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.GenerationMapper
}

func NewGeneratedArtifactRepository(db *gorm.DB) contract.GeneratedArtifactRepository {
	return &GeneratedArtifactRepositoryImpl{
		db:     db,
		mapper: mapper.NewGenerationMapper(),
	}
}

func (r *GeneratedArtifactRepositoryImpl) Upsert(ctx context.Context, a *entity.GeneratedArtifact) error {
	if a.Id == uuid.Nil {
		a.Id = uuid.New()
	}
	m, err := r.mapper.ArtifactToModel(a)
	if err != nil {
		return err
	}

	// A retried chunk replaces whatever an earlier attempt stored.
	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "job_id"}, {Name: "chunk_index"}},
		DoUpdates: clause.AssignmentColumns([]string{"kind", "payload", "document", "embedding_value", "updated_at"}),
	}).Create(m).Error
	if err != nil {
		return err
	}

	// On conflict the stored row keeps its original id.
	var stored model.GeneratedArtifact
	if err := r.db.WithContext(ctx).
		Where("job_id = ? AND chunk_index = ?", m.JobId, m.ChunkIndex).
		First(&stored).Error; err != nil {
		return err
	}

	saved, err := r.mapper.ArtifactToEntity(&stored)
	if err != nil {
		return err
	}
	*a = *saved
	return nil
}

func (r *GeneratedArtifactRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.GeneratedArtifact, error) {
	var models []*model.GeneratedArtifact
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.GeneratedArtifact, len(models))
	for i, m := range models {
		e, err := r.mapper.ArtifactToEntity(m)
		if err != nil {
			return nil, err
		}
		entities[i] = e
	}
	return entities, nil
}

func (r *GeneratedArtifactRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.GeneratedArtifact{}).Count(&count).Error
	return count, err
}

func (r *GeneratedArtifactRepositoryImpl) DeleteByJobId(ctx context.Context, jobId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("job_id = ?", jobId).Delete(&model.GeneratedArtifact{}).Error
}

// SearchSimilar ranks a module's artifacts by cosine similarity to embedding.
// pgvector's <=> is cosine distance, so similarity is 1 - distance.
func (r *GeneratedArtifactRepositoryImpl) SearchSimilar(ctx context.Context, embedding []float32, moduleId uuid.UUID, limit int) ([]*contract.ScoredArtifact, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	type result struct {
		model.GeneratedArtifact
		Similarity float64
	}
	var results []result

	queryVector := pgvector.NewVector(embedding)

	err := r.db.WithContext(ctx).
		Table("generated_artifacts").
		Select("generated_artifacts.*, 1 - (embedding_value <=> ?) as similarity", queryVector).
		Where("module_id = ?", moduleId).
		Where("deleted_at IS NULL").
		Order(gorm.Expr("embedding_value <=> ?", queryVector)).
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	scored := make([]*contract.ScoredArtifact, len(results))
	for i, res := range results {
		e, err := r.mapper.ArtifactToEntity(&res.GeneratedArtifact)
		if err != nil {
			return nil, err
		}
		scored[i] = &contract.ScoredArtifact{Artifact: e, Similarity: res.Similarity}
	}
	return scored, nil
}
