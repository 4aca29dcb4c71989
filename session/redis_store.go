package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps sessions in Redis, for multi-node deployments where the
// session must survive a server restart.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "hashfleet"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(id string) string {
	return fmt.Sprintf("%s:sess:%s", s.prefix, id)
}

func (s *RedisStore) Create(ctx context.Context, data Data, ttl time.Duration) (string, error) {
	id, err := newSessionID()
	if err != nil {
		return "", err
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to marshal session data: %w", err)
	}

	if err := s.client.Set(ctx, s.key(id), payload, ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}
	return id, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Data, error) {
	payload, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch session: %w", err)
	}

	var data Data
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session data: %w", err)
	}
	return &data, nil
}

func (s *RedisStore) Update(ctx context.Context, id string, fn func(*Data) error) error {
	data, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := fn(data); err != nil {
		return err
	}

	ttl, err := s.client.TTL(ctx, s.key(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to read session ttl: %w", err)
	}
	if ttl <= 0 {
		return ErrSessionNotFound
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal session data: %w", err)
	}
	if err := s.client.Set(ctx, s.key(id), payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

func (s *RedisStore) Touch(ctx context.Context, id string, ttl time.Duration) error {
	ok, err := s.client.Expire(ctx, s.key(id), ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	if !ok {
		return ErrSessionNotFound
	}
	return nil
}

func (s *RedisStore) Rotate(ctx context.Context, id string) (string, error) {
	data, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}

	ttl, err := s.client.TTL(ctx, s.key(id)).Result()
	if err != nil {
		return "", fmt.Errorf("failed to read session ttl: %w", err)
	}
	if ttl <= 0 {
		return "", ErrSessionNotFound
	}

	newID, err := newSessionID()
	if err != nil {
		return "", err
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to marshal session data: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(newID), payload, ttl)
	pipe.Del(ctx, s.key(id))
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("failed to rotate session: %w", err)
	}
	return newID, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
