package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/lucasrcosta20/IA-Cadastro/internal/domain"
)

const fileStoreVersion = 1

type fileSnapshot struct {
	Version int                          `json:"version"`
	Entries map[string]domain.CacheEntry `json:"entries"`
}

// FileStore persists the cache as a single JSON document
type FileStore struct {
	path string
}

// NewFileStore creates a file store at path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the snapshot. A missing file is an empty cache.
func (s *FileStore) Load(ctx context.Context) (map[string]domain.CacheEntry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]domain.CacheEntry{}, nil
		}
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrCacheStore, s.path, err)
	}

	var snap fileSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", domain.ErrCacheStore, s.path, err)
	}
	if snap.Version != fileStoreVersion {
		return nil, fmt.Errorf("%w: %s has unsupported version %d", domain.ErrCacheStore, s.path, snap.Version)
	}
	if snap.Entries == nil {
		snap.Entries = map[string]domain.CacheEntry{}
	}

	return snap.Entries, nil
}

// Save overwrites the snapshot atomically (temp file + rename)
func (s *FileStore) Save(ctx context.Context, entries map[string]domain.CacheEntry) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("%w: create %s: %v", domain.ErrCacheStore, dir, err)
	}

	data, err := json.Marshal(fileSnapshot{Version: fileStoreVersion, Entries: entries})
	if err != nil {
		return fmt.Errorf("%w: encode: %v", domain.ErrCacheStore, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %v", domain.ErrCacheStore, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: write %s: %v", domain.ErrCacheStore, tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: close %s: %v", domain.ErrCacheStore, tmpName, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: rename to %s: %v", domain.ErrCacheStore, s.path, err)
	}

	return nil
}

// Remove deletes the snapshot file
func (s *FileStore) Remove(ctx context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: remove %s: %v", domain.ErrCacheStore, s.path, err)
	}
	return nil
}

// Info reports whether the snapshot exists and its size
func (s *FileStore) Info() domain.StoreInfo {
	info := domain.StoreInfo{Kind: StoreFile, Location: s.path}
	if st, err := os.Stat(s.path); err == nil {
		info.Exists = true
		info.SizeBytes = st.Size()
	}
	return info
}

// Close is a no-op for file stores
func (s *FileStore) Close() error {
	return nil
}
