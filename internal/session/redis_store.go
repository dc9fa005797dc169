package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stemsi/student-registry/internal/config"
	"github.com/stemsi/student-registry/internal/model"
)

// RedisStore keeps sessions as JSON values whose key TTL is the idle timeout.
// Every Touch pushes the expiry forward.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (r *RedisStore) Create(ctx context.Context, s *model.Session) error {
	if s.ID == "" {
		return fmt.Errorf("session: missing id")
	}
	return r.put(ctx, s)
}

func (r *RedisStore) Get(ctx context.Context, id string) (*model.Session, error) {
	val, err := r.client.Get(ctx, config.CacheKey.SessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session: get: %w", err)
	}

	var s model.Session
	if err := json.Unmarshal(val, &s); err != nil {
		return nil, fmt.Errorf("session: unmarshal: %w", err)
	}
	return &s, nil
}

// Touch rewrites the session only while its key still exists, so a Delete
// racing with it is never undone.
func (r *RedisStore) Touch(ctx context.Context, id string, at time.Time) error {
	s, err := r.Get(ctx, id)
	if err != nil || s == nil {
		return err
	}
	s.LastSeen = at

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("session: marshal: %w", err)
	}
	if err := r.client.SetXX(ctx, config.CacheKey.SessionKey(id), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("session: touch: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, config.CacheKey.SessionKey(id)).Err(); err != nil {
		return fmt.Errorf("session: delete: %w", err)
	}
	return nil
}

func (r *RedisStore) put(ctx context.Context, s *model.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("session: marshal: %w", err)
	}
	if err := r.client.Set(ctx, config.CacheKey.SessionKey(s.ID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("session: set: %w", err)
	}
	return nil
}
