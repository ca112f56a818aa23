package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/lucasrcosta20/IA-Cadastro/internal/domain"
)

// cacheRow is one persisted cache entry
type cacheRow struct {
	Fingerprint    string    `gorm:"primaryKey;size:64"`
	Description    string    `gorm:"not null"`
	StoredAt       time.Time `gorm:"index;not null"`
	GenerationTime int64     // nanoseconds
	ModelUsed      string
}

func (cacheRow) TableName() string {
	return "cache_entries"
}

// SQLiteStore persists the cache in a SQLite database
type SQLiteStore struct {
	db   *gorm.DB
	path string
}

// NewSQLiteStore opens (or creates) the database at path
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("%w: create directory for %s: %v", domain.ErrCacheStore, path, err)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite database at %s: %v", domain.ErrCacheStore, path, err)
	}

	if err := db.AutoMigrate(&cacheRow{}); err != nil {
		if sqlDB, closeErr := db.DB(); closeErr == nil {
			_ = sqlDB.Close()
		}
		return nil, fmt.Errorf("%w: migrate cache schema: %v", domain.ErrCacheStore, err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// Load reads every persisted entry
func (s *SQLiteStore) Load(ctx context.Context) (map[string]domain.CacheEntry, error) {
	var rows []cacheRow
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%w: load entries: %v", domain.ErrCacheStore, err)
	}

	entries := make(map[string]domain.CacheEntry, len(rows))
	for _, row := range rows {
		entries[row.Fingerprint] = domain.CacheEntry{
			Description:    row.Description,
			StoredAt:       row.StoredAt,
			GenerationTime: time.Duration(row.GenerationTime),
			ModelUsed:      row.ModelUsed,
		}
	}
	return entries, nil
}

// Save replaces the table contents with entries in one transaction
func (s *SQLiteStore) Save(ctx context.Context, entries map[string]domain.CacheEntry) error {
	rows := make([]cacheRow, 0, len(entries))
	for key, e := range entries {
		rows = append(rows, cacheRow{
			Fingerprint:    key,
			Description:    e.Description,
			StoredAt:       e.StoredAt,
			GenerationTime: int64(e.GenerationTime),
			ModelUsed:      e.ModelUsed,
		})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&cacheRow{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, 200).Error
	})
	if err != nil {
		return fmt.Errorf("%w: save entries: %v", domain.ErrCacheStore, err)
	}
	return nil
}

// Remove deletes every persisted entry
func (s *SQLiteStore) Remove(ctx context.Context) error {
	err := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&cacheRow{}).Error
	if err != nil {
		return fmt.Errorf("%w: remove entries: %v", domain.ErrCacheStore, err)
	}
	return nil
}

// Info reports the database file size
func (s *SQLiteStore) Info() domain.StoreInfo {
	info := domain.StoreInfo{Kind: StoreSQLite, Location: s.path}
	if st, err := os.Stat(s.path); err == nil {
		info.Exists = true
		info.SizeBytes = st.Size()
	}
	return info
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying DB instance: %w", err)
	}
	return sqlDB.Close()
}
