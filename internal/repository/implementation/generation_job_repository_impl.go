package implementation

import (
	"context"
	"errors"

	"ai-studykit-be/internal/entity"
	"ai-studykit-be/internal/mapper"
	"ai-studykit-be/internal/model"
	"ai-studykit-be/internal/repository/contract"
	"ai-studykit-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type GenerationJobRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.GenerationMapper
}

func NewGenerationJobRepository(db *gorm.DB) contract.GenerationJobRepository {
	return &GenerationJobRepositoryImpl{
		db:     db,
		mapper: mapper.NewGenerationMapper(),
	}
}

func applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *GenerationJobRepositoryImpl) Create(ctx context.Context, job *entity.GenerationJob) error {
	m, err := r.mapper.JobToModel(job)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	saved, err := r.mapper.JobToEntity(m)
	if err != nil {
		return err
	}
	*job = *saved
	return nil
}

func (r *GenerationJobRepositoryImpl) Update(ctx context.Context, job *entity.GenerationJob) error {
	m, err := r.mapper.JobToModel(job)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Omit("Artifacts").Save(m).Error; err != nil {
		return err
	}
	saved, err := r.mapper.JobToEntity(m)
	if err != nil {
		return err
	}
	*job = *saved
	return nil
}

func (r *GenerationJobRepositoryImpl) UpdateStatus(ctx context.Context, id uuid.UUID, status entity.JobStatus, errorMessage string) error {
	return r.db.WithContext(ctx).
		Model(&model.GenerationJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        string(status),
			"error_message": errorMessage,
		}).Error
}

func (r *GenerationJobRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.GenerationJob, error) {
	var m model.GenerationJob
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.JobToEntity(&m)
}

func (r *GenerationJobRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.GenerationJob, error) {
	var models []*model.GenerationJob
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.GenerationJob, len(models))
	for i, m := range models {
		e, err := r.mapper.JobToEntity(m)
		if err != nil {
			return nil, err
		}
		entities[i] = e
	}
	return entities, nil
}

func (r *GenerationJobRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.GenerationJob{}).Error
}
