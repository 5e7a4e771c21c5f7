package specification

import (
	"ai-studykit-be/internal/repository/scope"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ByID filters by ID
type ByID struct {
	ID uuid.UUID
}

func (s ByID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("id = ?", s.ID)
}

// Newest orders rows by creation time, latest first.
type Newest struct{}

func (s Newest) Apply(db *gorm.DB) *gorm.DB {
	return db.Scopes(scope.OrderByCreatedDesc)
}

// Pagination
type Pagination struct {
	Limit  int
	Offset int
}

func (s Pagination) Apply(db *gorm.DB) *gorm.DB {
	return db.Limit(s.Limit).Offset(s.Offset)
}
