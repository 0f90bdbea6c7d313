package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sakif/moodmap/internal/apperror"
	"github.com/sakif/moodmap/internal/storage"
)

// compile-time check that *DB implements storage.KeyValue
var _ storage.KeyValue = (*DB)(nil)

// GetItem returns the value stored under key.
//
// sql.ErrNoRows is translated into the app's NotFound error so EntryStore
// can tell "nothing saved yet" apart from a broken database.
func (db *DB) GetItem(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := db.conn.QueryRowContext(ctx,
		`SELECT value FROM kv WHERE key = ?`,
		key,
	).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("key", key)
		}
		return nil, fmt.Errorf("sqlite: getting %s: %w", key, err)
	}
	return value, nil
}

// SetItem inserts or replaces the value under key.
func (db *DB) SetItem(ctx context.Context, key string, value []byte) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key,
		value,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: setting %s: %w", key, err)
	}
	return nil
}

// RemoveItem deletes key. Deleting a missing key succeeds, matching
// localStorage.removeItem.
func (db *DB) RemoveItem(ctx context.Context, key string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("sqlite: removing %s: %w", key, err)
	}
	return nil
}
