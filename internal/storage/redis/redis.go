// Package redis implements storage.KeyValue on a Redis server.
package redis

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/sakif/moodmap/internal/apperror"
	"github.com/sakif/moodmap/internal/storage"
)

var _ storage.KeyValue = (*Store)(nil)

// Store keeps values as plain Redis strings with no expiry.
type Store struct {
	client *goredis.Client
}

// New connects to addr and verifies the connection with PING.
func New(ctx context.Context, addr string) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: pinging %s: %w", addr, err)
	}
	return &Store{client: client}, nil
}

func (s *Store) GetItem(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, apperror.NotFound("key", key)
		}
		return nil, fmt.Errorf("redis: getting %s: %w", key, err)
	}
	return val, nil
}

func (s *Store) SetItem(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis: setting %s: %w", key, err)
	}
	return nil
}

func (s *Store) RemoveItem(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis: deleting %s: %w", key, err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}
