package session

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// MemoryStore keeps sessions in a TTL cache. Suitable for single-node
// deployments and tests.
type MemoryStore struct {
	cache *ttlcache.Cache[string, Data]
}

func NewMemoryStore() *MemoryStore {
	cache := ttlcache.New[string, Data](
		ttlcache.WithDisableTouchOnHit[string, Data](),
	)
	go cache.Start()
	return &MemoryStore{cache: cache}
}

// Close stops the expiry janitor.
func (s *MemoryStore) Close() {
	s.cache.Stop()
}

func (s *MemoryStore) Create(_ context.Context, data Data, ttl time.Duration) (string, error) {
	id, err := newSessionID()
	if err != nil {
		return "", err
	}
	s.cache.Set(id, data, ttl)
	return id, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Data, error) {
	item := s.cache.Get(id)
	if item == nil {
		return nil, ErrSessionNotFound
	}
	data := item.Value()
	return &data, nil
}

func (s *MemoryStore) Update(_ context.Context, id string, fn func(*Data) error) error {
	item := s.cache.Get(id)
	if item == nil {
		return ErrSessionNotFound
	}
	data := item.Value()
	if err := fn(&data); err != nil {
		return err
	}
	s.cache.Set(id, data, time.Until(item.ExpiresAt()))
	return nil
}

func (s *MemoryStore) Touch(_ context.Context, id string, ttl time.Duration) error {
	item := s.cache.Get(id)
	if item == nil {
		return ErrSessionNotFound
	}
	s.cache.Set(id, item.Value(), ttl)
	return nil
}

func (s *MemoryStore) Rotate(_ context.Context, id string) (string, error) {
	item := s.cache.Get(id)
	if item == nil {
		return "", ErrSessionNotFound
	}

	newID, err := newSessionID()
	if err != nil {
		return "", err
	}
	s.cache.Set(newID, item.Value(), time.Until(item.ExpiresAt()))
	s.cache.Delete(id)
	return newID, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.cache.Delete(id)
	return nil
}
