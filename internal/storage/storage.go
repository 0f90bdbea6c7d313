// Package storage persists the journal as a single JSON array kept under one
// key of a key-value backend, the same way a browser keeps it in local storage.
//
// Backends live in sub-packages (sqlite, diskv, redis, postgres) and only need
// to implement KeyValue. EntryStore adds the list encoding on top.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/moodmap/internal/apperror"
	"github.com/sakif/moodmap/internal/model"
)

// DefaultKey is the key the entry list is stored under.
const DefaultKey = "emotions"

// KeyValue is a local-storage style string-keyed byte store.
//
// GetItem returns an apperror.ErrNotFound error when the key is absent.
// RemoveItem on an absent key is not an error.
type KeyValue interface {
	GetItem(ctx context.Context, key string) ([]byte, error)
	SetItem(ctx context.Context, key string, value []byte) error
	RemoveItem(ctx context.Context, key string) error
	Close() error
}

// EntryStore reads and writes the whole entry list under one key.
type EntryStore struct {
	kv     KeyValue
	key    string
	logger *slog.Logger
}

// NewEntryStore wraps kv. An empty key means DefaultKey.
func NewEntryStore(kv KeyValue, key string, logger *slog.Logger) *EntryStore {
	if key == "" {
		key = DefaultKey
	}
	return &EntryStore{kv: kv, key: key, logger: logger}
}

// Key returns the key the list is stored under.
func (s *EntryStore) Key() string {
	return s.key
}

// Load returns the persisted entries in stored order.
//
// A missing key or a value that does not decode as an entry list yields an
// empty list and no error. Only backend failures are returned.
func (s *EntryStore) Load(ctx context.Context) ([]model.Entry, error) {
	data, err := s.kv.GetItem(ctx, s.key)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("storage: loading %s: %w", s.key, err)
	}

	var entries []model.Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		s.logger.Warn("discarding unreadable entry list",
			slog.String("key", s.key),
			slog.String("error", err.Error()),
		)
		return nil, nil
	}
	return entries, nil
}

// Save replaces the persisted list with entries.
func (s *EntryStore) Save(ctx context.Context, entries []model.Entry) error {
	if entries == nil {
		entries = []model.Entry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("storage: encoding entries: %w", err)
	}
	if err := s.kv.SetItem(ctx, s.key, data); err != nil {
		return fmt.Errorf("storage: saving %s: %w", s.key, err)
	}
	return nil
}

// Clear removes the persisted list.
func (s *EntryStore) Clear(ctx context.Context) error {
	if err := s.kv.RemoveItem(ctx, s.key); err != nil {
		return fmt.Errorf("storage: clearing %s: %w", s.key, err)
	}
	return nil
}

// Close closes the underlying backend.
func (s *EntryStore) Close() error {
	return s.kv.Close()
}
