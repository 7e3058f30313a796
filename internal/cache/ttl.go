package cache

import (
	"sync"
	"time"
)

type entry struct {
	value     any
	expiresAt time.Time
}

// Store is a small in-process map with per-entry expiry. A zero ttl keeps
// the entry until it is deleted.
type Store struct {
	mu    sync.Mutex
	items map[string]entry
	now   func() time.Time
}

func NewStore() *Store {
	return &Store{items: map[string]entry{}, now: time.Now}
}

func (s *Store) Get(key string) (any, bool) {
	if s == nil {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[key]
	if !ok {
		return nil, false
	}
	if !item.expiresAt.IsZero() && s.now().After(item.expiresAt) {
		delete(s.items, key)
		return nil, false
	}
	return item.value, true
}

func (s *Store) Set(key string, value any, ttl time.Duration) {
	if s == nil || key == "" {
		return
	}
	expiry := time.Time{}
	if ttl > 0 {
		expiry = s.now().Add(ttl)
	}
	s.mu.Lock()
	s.items[key] = entry{value: value, expiresAt: expiry}
	s.mu.Unlock()
}

func (s *Store) Delete(key string) {
	if s == nil || key == "" {
		return
	}
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
}

// Remember returns the cached value for key or stores the result of load.
// Errors are not cached. The bool reports a cache hit.
func (s *Store) Remember(key string, ttl time.Duration, load func() (any, error)) (any, bool, error) {
	if value, ok := s.Get(key); ok {
		return value, true, nil
	}
	value, err := load()
	if err != nil {
		return nil, false, err
	}
	s.Set(key, value, ttl)
	return value, false, nil
}
