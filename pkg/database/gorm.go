package database

import (
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// PoolOptions sizes the underlying sql.DB pool. Zero values keep the defaults.
type PoolOptions struct {
	MaxIdleConns int
	MaxOpenConns int
	MaxLifetime  time.Duration
	// Quiet logs only slow queries and errors.
	Quiet bool
}

func newLogger(quiet bool) logger.Interface {
	level := logger.Info
	if quiet {
		level = logger.Warn
	}
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      true, // embeddings are too large to log
			Colorful:                  !quiet,
		},
	)
}

func configureConnectionPool(db *gorm.DB, opts PoolOptions) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	if opts.MaxIdleConns <= 0 {
		opts.MaxIdleConns = 10
	}
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = 100
	}
	if opts.MaxLifetime <= 0 {
		opts.MaxLifetime = time.Hour
	}

	sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(opts.MaxLifetime)
	return nil
}

func NewGormDBFromDSN(dsn string, opts PoolOptions) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: newLogger(opts.Quiet),
	})
	if err != nil {
		return nil, err
	}

	if err := configureConnectionPool(db, opts); err != nil {
		return nil, err
	}

	return db, nil
}
