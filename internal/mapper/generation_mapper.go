package mapper

import (
	"encoding/json"
	"fmt"
	"time"

	"ai-studykit-be/internal/entity"
	"ai-studykit-be/internal/model"
	"ai-studykit-be/pkg/ai/artifact"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type GenerationMapper struct{}

func NewGenerationMapper() *GenerationMapper {
	return &GenerationMapper{}
}

func toDeletedAt(deletedAt *time.Time, isDeleted bool) gorm.DeletedAt {
	if deletedAt != nil {
		return gorm.DeletedAt{Time: *deletedAt, Valid: true}
	}
	if isDeleted {
		return gorm.DeletedAt{Time: time.Now(), Valid: true}
	}
	return gorm.DeletedAt{}
}

func fromDeletedAt(d gorm.DeletedAt) *time.Time {
	if !d.Valid {
		return nil
	}
	t := d.Time
	return &t
}

func fromUpdatedAt(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func (m *GenerationMapper) JobToEntity(j *model.GenerationJob) (*entity.GenerationJob, error) {
	if j == nil {
		return nil, nil
	}

	var params entity.GenerationParams
	if len(j.Params) > 0 {
		if err := json.Unmarshal(j.Params, &params); err != nil {
			return nil, fmt.Errorf("decode params of job %s: %w", j.Id, err)
		}
	}

	var docEmbedding []float32
	if j.DocumentEmbedding != nil {
		docEmbedding = j.DocumentEmbedding.Slice()
	}

	return &entity.GenerationJob{
		Id:                j.Id,
		ModuleId:          j.ModuleId,
		Kind:              artifact.Kind(j.Kind),
		Status:            entity.JobStatus(j.Status),
		Content:           j.Content,
		Params:            params,
		DocumentEmbedding: docEmbedding,
		ChunkCount:        j.ChunkCount,
		FailedChunks:      j.FailedChunks,
		ErrorMessage:      j.ErrorMessage,
		StartedAt:         j.StartedAt,
		FinishedAt:        j.FinishedAt,
		CreatedAt:         j.CreatedAt,
		UpdatedAt:         fromUpdatedAt(j.UpdatedAt),
		DeletedAt:         fromDeletedAt(j.DeletedAt),
		IsDeleted:         j.DeletedAt.Valid,
	}, nil
}

func (m *GenerationMapper) JobToModel(j *entity.GenerationJob) (*model.GenerationJob, error) {
	if j == nil {
		return nil, nil
	}

	params, err := json.Marshal(j.Params)
	if err != nil {
		return nil, fmt.Errorf("encode params of job %s: %w", j.Id, err)
	}

	var docEmbedding *pgvector.Vector
	if len(j.DocumentEmbedding) > 0 {
		v := pgvector.NewVector(j.DocumentEmbedding)
		docEmbedding = &v
	}

	var updatedAt time.Time
	if j.UpdatedAt != nil {
		updatedAt = *j.UpdatedAt
	}

	return &model.GenerationJob{
		Id:                j.Id,
		ModuleId:          j.ModuleId,
		Kind:              string(j.Kind),
		Status:            string(j.Status),
		Content:           j.Content,
		Params:            datatypes.JSON(params),
		DocumentEmbedding: docEmbedding,
		ChunkCount:        j.ChunkCount,
		FailedChunks:      j.FailedChunks,
		ErrorMessage:      j.ErrorMessage,
		StartedAt:         j.StartedAt,
		FinishedAt:        j.FinishedAt,
		CreatedAt:         j.CreatedAt,
		UpdatedAt:         updatedAt,
		DeletedAt:         toDeletedAt(j.DeletedAt, j.IsDeleted),
	}, nil
}

func (m *GenerationMapper) ArtifactToEntity(a *model.GeneratedArtifact) (*entity.GeneratedArtifact, error) {
	if a == nil {
		return nil, nil
	}

	kind := artifact.Kind(a.Kind)
	decoded := artifact.Artifact{Kind: kind}
	var err error
	switch kind {
	case artifact.KindNote:
		decoded.Note = &artifact.NoteBlock{}
		err = json.Unmarshal(a.Payload, decoded.Note)
	case artifact.KindFlashcards:
		decoded.Flashcards = &artifact.FlashcardSet{}
		err = json.Unmarshal(a.Payload, decoded.Flashcards)
	case artifact.KindQuiz:
		decoded.Quiz = &artifact.QuizQuestion{}
		err = json.Unmarshal(a.Payload, decoded.Quiz)
	default:
		err = fmt.Errorf("unknown kind %q", a.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("decode artifact %s: %w", a.Id, err)
	}

	return &entity.GeneratedArtifact{
		Id:             a.Id,
		JobId:          a.JobId,
		ModuleId:       a.ModuleId,
		ChunkIndex:     a.ChunkIndex,
		Artifact:       decoded,
		Document:       a.Document,
		EmbeddingValue: a.EmbeddingValue.Slice(),
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      fromUpdatedAt(a.UpdatedAt),
		DeletedAt:      fromDeletedAt(a.DeletedAt),
		IsDeleted:      a.DeletedAt.Valid,
	}, nil
}

// ArtifactToModel stores only the variant selected by Kind.
func (m *GenerationMapper) ArtifactToModel(a *entity.GeneratedArtifact) (*model.GeneratedArtifact, error) {
	if a == nil {
		return nil, nil
	}

	var variant any
	switch a.Artifact.Kind {
	case artifact.KindNote:
		variant = a.Artifact.Note
	case artifact.KindFlashcards:
		variant = a.Artifact.Flashcards
	case artifact.KindQuiz:
		variant = a.Artifact.Quiz
	default:
		return nil, fmt.Errorf("encode artifact %s: unknown kind %q", a.Id, a.Artifact.Kind)
	}
	payload, err := json.Marshal(variant)
	if err != nil {
		return nil, fmt.Errorf("encode artifact %s: %w", a.Id, err)
	}

	var updatedAt time.Time
	if a.UpdatedAt != nil {
		updatedAt = *a.UpdatedAt
	}

	return &model.GeneratedArtifact{
		Id:             a.Id,
		JobId:          a.JobId,
		ModuleId:       a.ModuleId,
		ChunkIndex:     a.ChunkIndex,
		Kind:           string(a.Artifact.Kind),
		Payload:        datatypes.JSON(payload),
		Document:       a.Document,
		EmbeddingValue: pgvector.NewVector(a.EmbeddingValue),
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      updatedAt,
		DeletedAt:      toDeletedAt(a.DeletedAt, a.IsDeleted),
	}, nil
}
