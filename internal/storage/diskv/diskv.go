// Package diskv implements storage.KeyValue with one file per key on disk.
package diskv

import (
	"context"
	"fmt"

	"github.com/peterbourgon/diskv/v3"

	"github.com/sakif/moodmap/internal/apperror"
	"github.com/sakif/moodmap/internal/storage"
)

var _ storage.KeyValue = (*Store)(nil)

// Store keeps every key as a flat file under BasePath.
type Store struct {
	d        *diskv.Diskv
	basePath string
}

// New returns a Store rooted at basePath. The directory is created on the
// first write.
func New(basePath string) *Store {
	return &Store{
		d: diskv.New(diskv.Options{
			BasePath:     basePath,
			Transform:    func(string) []string { return []string{} },
			CacheSizeMax: 1024 * 1024, // 1MB
		}),
		basePath: basePath,
	}
}

// BasePath is the directory holding the key files.
func (s *Store) BasePath() string {
	return s.basePath
}

func (s *Store) GetItem(_ context.Context, key string) ([]byte, error) {
	if !s.d.Has(key) {
		return nil, apperror.NotFound("key", key)
	}
	val, err := s.d.Read(key)
	if err != nil {
		return nil, fmt.Errorf("diskv: reading %s: %w", key, err)
	}
	return val, nil
}

func (s *Store) SetItem(_ context.Context, key string, value []byte) error {
	if err := s.d.Write(key, value); err != nil {
		return fmt.Errorf("diskv: writing %s: %w", key, err)
	}
	return nil
}

func (s *Store) RemoveItem(_ context.Context, key string) error {
	if !s.d.Has(key) {
		return nil
	}
	if err := s.d.Erase(key); err != nil {
		return fmt.Errorf("diskv: erasing %s: %w", key, err)
	}
	return nil
}

// Close is a no-op; diskv holds no open handles between calls.
func (s *Store) Close() error {
	return nil
}
