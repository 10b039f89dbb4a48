package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sandeepkv93/user-center/internal/repository"
)

const userQueryNamespace = "users.query"

// QueryCacheStore holds serialized paged query results grouped by namespace.
// A namespace is dropped as a whole when the underlying rows change.
type QueryCacheStore interface {
	Get(ctx context.Context, namespace, key string) ([]byte, bool, error)
	Set(ctx context.Context, namespace, key string, value []byte, ttl time.Duration) error
	InvalidateNamespace(ctx context.Context, namespace string) error
}

type memoryCacheEntry struct {
	payload   []byte
	expiresAt time.Time
}

// InMemoryQueryCacheStore is process-local; other instances keep serving
// their own entries until the TTL runs out.
type InMemoryQueryCacheStore struct {
	mu    sync.RWMutex
	store map[string]map[string]memoryCacheEntry
	now   func() time.Time
}

func NewInMemoryQueryCacheStore() *InMemoryQueryCacheStore {
	return &InMemoryQueryCacheStore{
		store: make(map[string]map[string]memoryCacheEntry),
		now:   time.Now,
	}
}

func (s *InMemoryQueryCacheStore) Get(_ context.Context, namespace, key string) ([]byte, bool, error) {
	now := s.now()
	s.mu.RLock()
	entry, ok := s.store[namespace][key]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if now.After(entry.expiresAt) {
		s.mu.Lock()
		if ns, ok := s.store[namespace]; ok {
			delete(ns, key)
			if len(ns) == 0 {
				delete(s.store, namespace)
			}
		}
		s.mu.Unlock()
		return nil, false, nil
	}
	return append([]byte(nil), entry.payload...), true, nil
}

func (s *InMemoryQueryCacheStore) Set(_ context.Context, namespace, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ns, ok := s.store[namespace]
	if !ok {
		ns = make(map[string]memoryCacheEntry)
		s.store[namespace] = ns
	}
	ns[key] = memoryCacheEntry{
		payload:   append([]byte(nil), value...),
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

func (s *InMemoryQueryCacheStore) InvalidateNamespace(_ context.Context, namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.store, namespace)
	return nil
}

func userQueryCacheKey(q repository.UserQuery) string {
	return fmt.Sprintf("page=%d&size=%d&q=%s&status=%s&role=%d&by=%s&order=%s",
		q.Page, q.PageSize, q.Search, q.Status, q.RoleID, q.OrderBy, q.Order)
}
