// Package backends opens the key-value backend named in the configuration.
// It is the only package that knows about every storage implementation.
package backends

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sakif/moodmap/internal/config"
	"github.com/sakif/moodmap/internal/storage"
	"github.com/sakif/moodmap/internal/storage/diskv"
	"github.com/sakif/moodmap/internal/storage/postgres"
	"github.com/sakif/moodmap/internal/storage/redis"
	sqliteStore "github.com/sakif/moodmap/internal/storage/sqlite"
)

// Open returns the configured backend.
func Open(ctx context.Context, cfg config.Storage) (storage.KeyValue, error) {
	switch cfg.Backend {
	case config.BackendSQLite, "":
		if cfg.Path != sqliteStore.MemoryPath {
			if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
		db, err := sqliteStore.New(cfg.Path)
		if err != nil {
			return nil, err
		}
		return db, nil
	case config.BackendDiskv:
		return diskv.New(cfg.Path), nil
	case config.BackendRedis:
		rs, err := redis.New(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, err
		}
		return rs, nil
	case config.BackendPostgres:
		ps, err := postgres.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return ps, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// OpenEntryStore opens the backend and wraps it in an EntryStore.
func OpenEntryStore(ctx context.Context, cfg config.Storage, logger *slog.Logger) (*storage.EntryStore, error) {
	kv, err := Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening %s storage: %w", cfg.Backend, err)
	}
	logger.Debug("storage opened",
		slog.String("backend", cfg.Backend),
		slog.String("key", cfg.Key),
	)
	return storage.NewEntryStore(kv, cfg.Key, logger), nil
}
