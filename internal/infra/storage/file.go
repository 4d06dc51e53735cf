package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

var keySanitizer = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// FileCounterStore keeps one plain-text file per counter, holding the count as decimal text.
type FileCounterStore struct {
	dir string
}

// NewFileCounterStore creates the directory if needed.
func NewFileCounterStore(dir string) (*FileCounterStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create counter directory: %w", err)
	}
	return &FileCounterStore{dir: dir}, nil
}

func (s *FileCounterStore) path(key string) string {
	return filepath.Join(s.dir, keySanitizer.ReplaceAllString(key, "_")+".txt")
}

// ReadCount returns 0 for a missing file and ErrCorruptCounter for unparsable content.
func (s *FileCounterStore) ReadCount(ctx context.Context, key string) (int64, error) {
	b, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}
	return parseCount(key, b)
}

// WriteCount replaces the file atomically via a temp file and rename.
func (s *FileCounterStore) WriteCount(ctx context.Context, key string, value int64) error {
	if err := checkWrite(key, value); err != nil {
		return err
	}

	path := s.path(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, formatCount(value), 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Close is a no-op; files are not held open.
func (s *FileCounterStore) Close() error {
	return nil
}
