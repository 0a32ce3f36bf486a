package counter

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a process-local Store. It mirrors the Redis driver's
// semantics closely enough to swap in for single-process deployments and
// tests; it provides no cross-process coordination by definition.
type MemoryStore struct {
	mu      sync.Mutex
	counts  map[string]*memCounter
	windows map[string][]time.Time

	// Now is injectable for deterministic TTL tests.
	Now func() time.Time
}

type memCounter struct {
	value     int64
	expiresAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		counts:  make(map[string]*memCounter),
		windows: make(map[string][]time.Time),
		Now:     time.Now,
	}
}

func (s *MemoryStore) IncrementWithTTL(_ context.Context, key string, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.Now()
	c, ok := s.counts[key]
	if !ok || now.After(c.expiresAt) {
		c = &memCounter{}
		s.counts[key] = c
	}
	c.value++
	c.expiresAt = now.Add(ttl)
	return c.value, nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counts[key]
	if !ok || s.Now().After(c.expiresAt) {
		return 0, nil
	}
	return c.value, nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.counts, key)
	delete(s.windows, key)
	return nil
}

func (s *MemoryStore) SlideWindow(_ context.Context, key string, now time.Time, window time.Duration) (WindowStat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-window)
	kept := s.windows[key][:0]
	for _, at := range s.windows[key] {
		if !at.Before(cutoff) {
			kept = append(kept, at)
		}
	}
	kept = append(kept, now)
	s.windows[key] = kept

	stat := WindowStat{Count: int64(len(kept))}
	if len(kept) > 1 {
		stat.Oldest = kept[0]
	}
	return stat, nil
}
