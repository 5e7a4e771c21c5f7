package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type GeneratedArtifact struct {
	Id         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	JobId      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_artifact_job_chunk"`
	ModuleId   uuid.UUID `gorm:"type:uuid;not null;index"`
	ChunkIndex int       `gorm:"not null;uniqueIndex:idx_artifact_job_chunk"`
	Kind       string    `gorm:"type:varchar(32);not null"`
	// Payload is the artifact JSON (note blocks, flashcard set or quiz question).
	Payload        datatypes.JSON  `gorm:"type:jsonb;not null"`
	Document       string          `gorm:"type:text"`
	EmbeddingValue pgvector.Vector `gorm:"type:vector(768)"`
	CreatedAt      time.Time       `gorm:"autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime"`
	DeletedAt      gorm.DeletedAt  `gorm:"index"`
}

func (GeneratedArtifact) TableName() string {
	return "generated_artifacts"
}
