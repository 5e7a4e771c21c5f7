package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByJobID struct {
	JobID uuid.UUID
}

func (s ByJobID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("job_id = ?", s.JobID)
}

type ByModuleID struct {
	ModuleID uuid.UUID
}

func (s ByModuleID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("module_id = ?", s.ModuleID)
}

type ByStatus struct {
	Statuses []string
}

func (s ByStatus) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("status IN ?", s.Statuses)
}

// ChunkOrder sorts artifacts back into document order.
type ChunkOrder struct{}

func (s ChunkOrder) Apply(db *gorm.DB) *gorm.DB {
	return db.Order("chunk_index ASC")
}
