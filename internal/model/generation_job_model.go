package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type GenerationJob struct {
	Id       uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ModuleId uuid.UUID `gorm:"type:uuid;not null;index"`
	Kind     string    `gorm:"type:varchar(32);not null"`
	Status   string    `gorm:"type:varchar(32);not null;index"`
	Content  string    `gorm:"type:text;not null"`
	// Params holds the learner profile and quiz preference as submitted.
	Params            datatypes.JSON   `gorm:"type:jsonb"`
	DocumentEmbedding *pgvector.Vector `gorm:"type:vector(768)"`
	ChunkCount        int              `gorm:"default:0"`
	FailedChunks      int              `gorm:"default:0"`
	ErrorMessage      string           `gorm:"type:text"`
	StartedAt         *time.Time
	FinishedAt        *time.Time
	CreatedAt         time.Time      `gorm:"autoCreateTime"`
	UpdatedAt         time.Time      `gorm:"autoUpdateTime"`
	DeletedAt         gorm.DeletedAt `gorm:"index"`

	Artifacts []GeneratedArtifact `gorm:"foreignKey:JobId"`
}

func (GenerationJob) TableName() string {
	return "generation_jobs"
}
