package service

import (
	"context"
	"sync"
	"time"
)

// Cache namespaces, one per ban match criterion.
const (
	CacheNamespaceAccount  = "account"
	CacheNamespaceAddress  = "address"
	CacheNamespaceHardware = "hardware"
)

// BanCacheStore caches "this key is not banned" verdicts so the connection
// path can skip the store on the hot path. Issuing a ban invalidates the
// namespaces it touches, making a fresh ban visible immediately.
type BanCacheStore interface {
	Get(ctx context.Context, namespace, key string) (bool, error)
	Set(ctx context.Context, namespace, key string, ttl time.Duration) error
	InvalidateNamespace(ctx context.Context, namespace string) error
}

type NoopBanCacheStore struct{}

func NewNoopBanCacheStore() *NoopBanCacheStore { return &NoopBanCacheStore{} }

func (s *NoopBanCacheStore) Get(context.Context, string, string) (bool, error) { return false, nil }

func (s *NoopBanCacheStore) Set(context.Context, string, string, time.Duration) error { return nil }

func (s *NoopBanCacheStore) InvalidateNamespace(context.Context, string) error { return nil }

type InMemoryBanCacheStore struct {
	mu    sync.RWMutex
	store map[string]map[string]time.Time
}

func NewInMemoryBanCacheStore() *InMemoryBanCacheStore {
	return &InMemoryBanCacheStore{store: make(map[string]map[string]time.Time)}
}

func (s *InMemoryBanCacheStore) Get(_ context.Context, namespace, key string) (bool, error) {
	now := time.Now().UTC()
	s.mu.RLock()
	ns, ok := s.store[namespace]
	if !ok {
		s.mu.RUnlock()
		return false, nil
	}
	expiresAt, ok := ns[key]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if now.After(expiresAt) {
		s.mu.Lock()
		if ns2, ok2 := s.store[namespace]; ok2 {
			delete(ns2, key)
			if len(ns2) == 0 {
				delete(s.store, namespace)
			}
		}
		s.mu.Unlock()
		return false, nil
	}
	return true, nil
}

func (s *InMemoryBanCacheStore) Set(_ context.Context, namespace, key string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ns, ok := s.store[namespace]
	if !ok {
		ns = make(map[string]time.Time)
		s.store[namespace] = ns
	}
	ns[key] = time.Now().UTC().Add(ttl)
	return nil
}

func (s *InMemoryBanCacheStore) InvalidateNamespace(_ context.Context, namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.store, namespace)
	return nil
}
