// Package store keeps an append-only history of recorded snapshots in
// SQLite through GORM. It is optional: the CSV file stays the primary
// time series.
package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/glebarez/sqlite"
	"github.com/vesaa/sysadvisor/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// MaxRecent caps Recent.
const MaxRecent = 500

// Store is the history table.
type Store struct {
	db *gorm.DB
}

// Open opens (or creates) the database at path and runs AutoMigrate.
// ":memory:" is accepted for tests.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.AutoMigrate(&models.SnapshotRecord{}); err != nil {
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}

	slog.Debug("history store opened", "path", path)
	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Append inserts one row for r.
func (s *Store) Append(ctx context.Context, r *models.AnalysisResult) (*models.SnapshotRecord, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	rec := models.NewSnapshotRecord(r)
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, fmt.Errorf("saving snapshot: %w", err)
	}
	return rec, nil
}

// Recent returns up to limit rows, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]models.SnapshotRecord, error) {
	if limit <= 0 || limit > MaxRecent {
		limit = MaxRecent
	}
	var recs []models.SnapshotRecord
	err := s.db.WithContext(ctx).
		Order("collected_at desc").
		Order("id desc").
		Limit(limit).
		Find(&recs).Error
	return recs, err
}
