package entity

import (
	"time"

	"ai-studykit-be/pkg/ai/artifact"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	// JobPartial means some chunks were excluded after exhausting retries.
	JobPartial JobStatus = "partial"
	JobFailed  JobStatus = "failed"
)

// Terminal reports whether a job needs no further processing.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobPartial || s == JobFailed
}

// GenerationParams is what a caller submitted alongside the content.
type GenerationParams struct {
	LearningStyle   artifact.LearningStyle `json:"learning_style,omitempty"`
	StudyLevel      artifact.StudyLevel    `json:"study_level,omitempty"`
	Course          string                 `json:"course,omitempty"`
	NoteTakingStyle string                 `json:"note_taking_style,omitempty"`
	Plan            string                 `json:"plan,omitempty"`
	QuizType        artifact.QuizType      `json:"quiz_type,omitempty"`
}

// ForChunk builds graph parameters for one chunk of content.
func (p GenerationParams) ForChunk(chunk string, prior []string) artifact.Params {
	return artifact.Params{
		Content:         chunk,
		LearningStyle:   p.LearningStyle,
		StudyLevel:      p.StudyLevel,
		Course:          p.Course,
		NoteTakingStyle: p.NoteTakingStyle,
		Plan:            p.Plan,
		PriorArtifacts:  prior,
	}
}

type GenerationJob struct {
	Id                uuid.UUID
	ModuleId          uuid.UUID
	Kind              artifact.Kind
	Status            JobStatus
	Content           string
	Params            GenerationParams
	DocumentEmbedding []float32
	ChunkCount        int
	FailedChunks      int
	ErrorMessage      string
	StartedAt         *time.Time
	FinishedAt        *time.Time
	CreatedAt         time.Time
	UpdatedAt         *time.Time
	DeletedAt         *time.Time
	IsDeleted         bool
}

type GeneratedArtifact struct {
	Id             uuid.UUID
	JobId          uuid.UUID
	ModuleId       uuid.UUID
	ChunkIndex     int
	Artifact       artifact.Artifact
	Document       string
	EmbeddingValue []float32
	CreatedAt      time.Time
	UpdatedAt      *time.Time
	DeletedAt      *time.Time
	IsDeleted      bool
}
