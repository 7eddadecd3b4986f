package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"pharmaflow-tutor/pkg"
)

const (
	sessionKeyPrefix = "session:"
	defaultTTL       = 12 * time.Hour
)

// RedisStore implements Store using Redis with optimistic locking via
// WATCH/MULTI/EXEC.  Keys expire after the TTL and are refreshed on read.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) key(id string) string { return sessionKeyPrefix + id }

// Create implements Store.
func (s *RedisStore) Create(ctx context.Context, data *pkg.Session) error {
	data.UpdatedAt = time.Now()
	data.Version = 1

	val, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(data.ID), val, s.ttl).Err()
}

// Get implements Store.  Returns nil when the session is not found and
// refreshes the TTL on every read.
func (s *RedisStore) Get(ctx context.Context, id string) (*pkg.Session, error) {
	val, err := s.client.Get(ctx, s.key(id)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var data pkg.Session
	if err := json.Unmarshal([]byte(val), &data); err != nil {
		return nil, err
	}

	_ = s.client.Expire(ctx, s.key(id), s.ttl).Err()
	return &data, nil
}

// Update implements Store.
func (s *RedisStore) Update(ctx context.Context, data *pkg.Session) error {
	key := s.key(data.ID)

	return s.client.Watch(ctx, func(tx *redis.Tx) error {
		val, err := tx.Get(ctx, key).Result()
		if err == redis.Nil {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		var stored pkg.Session
		if err := json.Unmarshal([]byte(val), &stored); err != nil {
			return err
		}
		if stored.Version != data.Version {
			return ErrVersionConflict
		}

		data.Version++
		data.UpdatedAt = time.Now()

		newVal, err := json.Marshal(data)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, newVal, s.ttl)
			return nil
		})
		return err
	}, key)
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, s.key(id)).Err()
}

// Close implements Store.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
