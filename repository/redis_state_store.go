package repository

import (
	"context"
	"errors"
	"fmt"

	"toolx/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const defaultMaxUpdateRetries = 10

// RedisStateStore shares guard state between service instances. Update uses WATCH/MULTI so
// a read-modify-write is retried when another instance touched the same key.
type RedisStateStore struct {
	client     redis.UniversalClient
	prefix     string
	maxRetries int
	logger     *logger.Logger
}

// NewRedisStateStore creates a Redis-backed state store. Keys are namespaced under prefix.
func NewRedisStateStore(client redis.UniversalClient, prefix string, logger *logger.Logger) *RedisStateStore {
	return &RedisStateStore{
		client:     client,
		prefix:     prefix,
		maxRetries: defaultMaxUpdateRetries,
		logger:     logger,
	}
}

func (s *RedisStateStore) key(key string) string {
	return s.prefix + key
}

// Get returns the value stored at key.
func (s *RedisStateStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return data, true, nil
}

// Update runs fn inside an optimistic transaction on key.
func (s *RedisStateStore) Update(ctx context.Context, key string, fn UpdateFunc) error {
	fullKey := s.key(key)

	txf := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, fullKey).Bytes()
		if errors.Is(err, redis.Nil) {
			current = nil
		} else if err != nil {
			return err
		}

		m, err := fn(current)
		if err != nil || m == nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if m.Delete {
				pipe.Del(ctx, fullKey)
				return nil
			}
			pipe.Set(ctx, fullKey, m.Value, m.TTL)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < s.maxRetries; attempt++ {
		err := s.client.Watch(ctx, txf, fullKey)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			s.logger.Debugw("State update conflict, retrying", "key", key, "attempt", attempt+1)
			continue
		}
		return fmt.Errorf("failed to update %s: %w", key, err)
	}

	return fmt.Errorf("%w: %s", ErrConflict, key)
}

// Delete removes key.
func (s *RedisStateStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}
