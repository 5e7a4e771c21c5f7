package unitofwork

import (
	"context"
	"errors"

	"ai-studykit-be/internal/repository/contract"
	"ai-studykit-be/internal/repository/implementation"

	"gorm.io/gorm"
)

var (
	ErrTransactionActive = errors.New("unit of work: transaction already started")
	ErrNoTransaction     = errors.New("unit of work: no active transaction")
)

// UnitOfWorkImpl hands out repositories bound to the open transaction, or to
// the plain connection outside Begin/Commit.
type UnitOfWorkImpl struct {
	db *gorm.DB
	tx *gorm.DB
}

func NewUnitOfWork(db *gorm.DB) UnitOfWork {
	return &UnitOfWorkImpl{db: db}
}

func (u *UnitOfWorkImpl) conn() *gorm.DB {
	if u.tx != nil {
		return u.tx
	}
	return u.db
}

func (u *UnitOfWorkImpl) Begin(ctx context.Context) error {
	if u.tx != nil {
		return ErrTransactionActive
	}
	tx := u.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	u.tx = tx
	return nil
}

func (u *UnitOfWorkImpl) Commit() error {
	return u.finish((*gorm.DB).Commit)
}

// Rollback after a successful Commit returns ErrNoTransaction, so it is
// safe to defer.
func (u *UnitOfWorkImpl) Rollback() error {
	return u.finish((*gorm.DB).Rollback)
}

func (u *UnitOfWorkImpl) finish(end func(*gorm.DB) *gorm.DB) error {
	if u.tx == nil {
		return ErrNoTransaction
	}
	tx := u.tx
	u.tx = nil
	return end(tx).Error
}

func (u *UnitOfWorkImpl) GenerationJobRepository() contract.GenerationJobRepository {
	return implementation.NewGenerationJobRepository(u.conn())
}

func (u *UnitOfWorkImpl) GeneratedArtifactRepository() contract.GeneratedArtifactRepository {
	return implementation.NewGeneratedArtifactRepository(u.conn())
}
