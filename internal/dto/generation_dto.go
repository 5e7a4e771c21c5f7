package dto

import (
	"time"

	"ai-studykit-be/pkg/ai/artifact"

	"github.com/google/uuid"
)

type CreateGenerationJobRequest struct {
	ModuleId        uuid.UUID `json:"module_id" validate:"required"`
	Kind            string    `json:"kind" validate:"required,oneof=note flashcards quiz"`
	Content         string    `json:"content" validate:"required,min=1"`
	LearningStyle   string    `json:"learning_style" validate:"omitempty,oneof=visual auditory reading kinesthetic"`
	StudyLevel      string    `json:"study_level" validate:"omitempty,oneof=high_school undergraduate graduate professional"`
	Course          string    `json:"course" validate:"max=200"`
	NoteTakingStyle string    `json:"note_taking_style" validate:"max=200"`
	Plan            string    `json:"plan" validate:"max=2000"`
	QuizType        string    `json:"quiz_type" validate:"omitempty,oneof=short_answer multiple_choice true_false"`
}

type GenerationJobResponse struct {
	Id        uuid.UUID `json:"id"`
	ModuleId  uuid.UUID `json:"module_id"`
	Kind      string    `json:"kind"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type ListGenerationJobsRequest struct {
	ModuleId uuid.UUID `validate:"required"`
	Status   string    `validate:"omitempty,oneof=queued running completed partial failed"`
	Limit    int       `validate:"min=1,max=100"`
	Offset   int       `validate:"min=0"`
}

type GenerationJobSummaryResponse struct {
	Id           uuid.UUID  `json:"id"`
	Kind         string     `json:"kind"`
	Status       string     `json:"status"`
	ChunkCount   int        `json:"chunk_count"`
	FailedChunks int        `json:"failed_chunks"`
	CreatedAt    time.Time  `json:"created_at"`
	FinishedAt   *time.Time `json:"finished_at"`
}

type GeneratedArtifactResponse struct {
	Id         uuid.UUID         `json:"id"`
	ChunkIndex int               `json:"chunk_index"`
	Artifact   artifact.Artifact `json:"artifact"`
}

type ShowGenerationJobResponse struct {
	Id           uuid.UUID                    `json:"id"`
	ModuleId     uuid.UUID                    `json:"module_id"`
	Kind         string                       `json:"kind"`
	Status       string                       `json:"status"`
	ChunkCount   int                          `json:"chunk_count"`
	FailedChunks int                          `json:"failed_chunks"`
	ErrorMessage string                       `json:"error_message,omitempty"`
	Artifacts    []*GeneratedArtifactResponse `json:"artifacts"`
	CreatedAt    time.Time                    `json:"created_at"`
	FinishedAt   *time.Time                   `json:"finished_at"`
}

type RelatedArtifactResponse struct {
	Id         uuid.UUID `json:"id"`
	JobId      uuid.UUID `json:"job_id"`
	ChunkIndex int       `json:"chunk_index"`
	Kind       string    `json:"kind"`
	Document   string    `json:"document"`
	Similarity float64   `json:"similarity"`
}

// PublishGenerationMessage is the queue payload asking a worker to run a job.
type PublishGenerationMessage struct {
	JobId uuid.UUID `json:"job_id"`
}
