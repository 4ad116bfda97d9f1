package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStore keeps entries in a map. It has no size bound: entries leave
// only when read after expiry, on Delete, or during Sweep.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]entry
	opts    Options
}

func NewMemoryStore(opts Options) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]entry),
		opts:    opts.withDefaults(),
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	k := s.opts.Namespace + key

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[k]
	if !ok {
		return nil, false, nil
	}
	if !s.opts.Clock().Before(e.expiresAt) {
		delete(s.entries, k)
		return nil, false, nil
	}
	return e.value, true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.opts.DefaultTTL
	}
	buf := make([]byte, len(value))
	copy(buf, value)

	s.mu.Lock()
	s.entries[s.opts.Namespace+key] = entry{value: buf, expiresAt: s.opts.Clock().Add(ttl)}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	for _, key := range keys {
		delete(s.entries, s.opts.Namespace+key)
	}
	s.mu.Unlock()
	return nil
}

// Sweep drops every expired entry and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	now := s.opts.Clock()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for k, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, k)
			removed++
		}
	}
	return removed
}

// Len reports the number of stored entries, live or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
