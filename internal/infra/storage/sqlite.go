package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"grid_go/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// SQLiteCounterStore persists counters in a pure-Go SQLite database.
type SQLiteCounterStore struct {
	db *gorm.DB
}

// NewSQLiteCounterStore opens (or creates) the database at dbPath.
func NewSQLiteCounterStore(dbPath string) (*SQLiteCounterStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&domain.CounterRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteCounterStore{db: db}, nil
}

// ReadCount returns 0 when the row does not exist.
func (s *SQLiteCounterStore) ReadCount(ctx context.Context, key string) (int64, error) {
	var rec domain.CounterRecord
	err := s.db.WithContext(ctx).Where(&domain.CounterRecord{Key: key}).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil // Not found is not an error
	}
	if err != nil {
		return 0, err
	}
	if rec.Value < 0 {
		return 0, fmt.Errorf("%w: %s=%d", domain.ErrCorruptCounter, key, rec.Value)
	}
	return rec.Value, nil
}

// WriteCount upserts the counter row.
func (s *SQLiteCounterStore) WriteCount(ctx context.Context, key string, value int64) error {
	if err := checkWrite(key, value); err != nil {
		return err
	}
	rec := domain.CounterRecord{Key: key, Value: value, UpdatedAt: time.Now()}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&rec).Error
}

// All returns every counter row, ordered by key.
func (s *SQLiteCounterStore) All(ctx context.Context) ([]domain.CounterRecord, error) {
	var recs []domain.CounterRecord
	err := s.db.WithContext(ctx).Order("key").Find(&recs).Error
	return recs, err
}

// Close closes the underlying connection pool.
func (s *SQLiteCounterStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
