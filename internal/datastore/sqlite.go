// Package datastore is the local SQLite store the ETL appends tenant metrics to.
package datastore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tphakala/rqm-etl/internal/errors"
	"github.com/tphakala/rqm-etl/internal/logger"
	"github.com/tphakala/rqm-etl/internal/model"
)

// DefaultPath is the store file used when no path is configured.
const DefaultPath = "rqmData.db"

const (
	busyTimeoutMs      = 5000
	slowQueryThreshold = 500 * time.Millisecond
)

// Store appends decoded records to the local SQLite file. It is safe for
// concurrent use; writes are serialized on a single connection.
type Store struct {
	db     *gorm.DB
	path   string
	mu     sync.Mutex
	logger logger.Logger
}

// Open opens (creating if needed) the SQLite file at path. The parent
// directory is created when missing.
func Open(ctx context.Context, path string, log logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	log = log.Module("datastore")

	if path == "" {
		path = DefaultPath
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, dbError(err, errors.CategoryConfiguration, "create_directory", "path", path)
		}
	}

	dsn := fmt.Sprintf("%s?_busy_timeout=%d&_journal_mode=WAL", path, busyTimeoutMs)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.NewGormLoggerAdapter(log, slowQueryThreshold),
	})
	if err != nil {
		return nil, dbError(err, errors.CategoryConnection, "open", "path", path)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, dbError(err, errors.CategoryConnection, "open", "path", path)
	}
	// A single writer connection removes SQLITE_BUSY between our own goroutines.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, dbError(err, errors.CategoryConnection, "ping", "path", path)
	}

	log.Debug("local store opened", logger.String("path", path))
	return &Store{db: db, path: path, logger: log}, nil
}

// Path returns the file the store writes to.
func (s *Store) Path() string {
	return s.path
}

// AppendBias inserts one bias row tagged with date.
func (s *Store) AppendBias(ctx context.Context, date model.ProcessingDate, rec *model.BiasRecord) error {
	row := newBiasRow(date, rec)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return writeError(err, BiasTable)
	}
	return nil
}

// AppendDetectionRate inserts one detection-rate row tagged with date.
// Nil percentages are stored as NULL.
func (s *Store) AppendDetectionRate(ctx context.Context, date model.ProcessingDate, rec *model.DetectionRateRecord) error {
	row := newDetectionRateRow(date, rec)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return writeError(err, DetectionRateTable)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return dbError(err, errors.CategoryGeneric, "close")
	}
	return sqlDB.Close()
}
