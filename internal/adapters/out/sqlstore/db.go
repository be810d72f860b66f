// Package sqlstore implements the repository ports with gorm on SQLite.
package sqlstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ltuffery/Octopus/internal/domain"
)

// Open opens (or creates) the database at path and migrates the schema.
func Open(path string) (*gorm.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&siteModel{}, &cronJobModel{}, &executionModel{}, &webhookModel{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Store groups the repositories sharing one database.
type Store struct {
	Sites      *SiteRepository
	CronJobs   *CronJobRepository
	Executions *ExecutionRepository
	Webhooks   *WebhookRepository
	db         *gorm.DB
}

// New creates the repositories on db.
func New(db *gorm.DB) *Store {
	return &Store{
		Sites:      &SiteRepository{db: db},
		CronJobs:   &CronJobRepository{db: db},
		Executions: &ExecutionRepository{db: db},
		Webhooks:   &WebhookRepository{db: db},
		db:         db,
	}
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func notFound(op, id string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Errorf(domain.KindNotFound, op, "%s not found", id)
	}
	return fmt.Errorf("%s %s: %w", op, id, err)
}

func deleted(op, id string, rows int, err error) error {
	if err != nil {
		return fmt.Errorf("%s %s: %w", op, id, err)
	}
	if rows == 0 {
		return domain.Errorf(domain.KindNotFound, op, "%s not found", id)
	}
	return nil
}
