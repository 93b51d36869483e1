package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// MemoryStore keeps window counters in a mutex-guarded map. Counters reset
// lazily on first access after expiry; a small fraction of writes triggers
// a full sweep of expired entries, so the memory bound is approximate
// rather than a hard cap.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	now     func() time.Time
	sweepN  int
}

type memoryEntry struct {
	count   int
	resetAt time.Time
}

// NewMemoryStore constructs an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
		sweepN:  128,
	}
}

// Observe increments the counter for the current window.
func (s *MemoryStore) Observe(_ context.Context, key string, window time.Duration, max int) (int, time.Time, error) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok || !now.Before(entry.resetAt) {
		entry = &memoryEntry{count: 0, resetAt: now.Add(window)}
		s.entries[key] = entry
	}
	if entry.count <= max {
		entry.count++
	}
	if s.sweepN > 0 && rand.Intn(s.sweepN) == 0 {
		s.sweepLocked(now)
	}
	return entry.count, entry.resetAt, nil
}

// Peek returns the counter state without incrementing.
func (s *MemoryStore) Peek(_ context.Context, key string) (int, time.Time, error) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok || !now.Before(entry.resetAt) {
		return 0, time.Time{}, nil
	}
	return entry.count, entry.resetAt, nil
}

// Reset removes the entry for a key.
func (s *MemoryStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Sweep removes all expired entries.
func (s *MemoryStore) Sweep() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(now)
}

func (s *MemoryStore) sweepLocked(now time.Time) int {
	removed := 0
	for key, entry := range s.entries {
		if !now.Before(entry.resetAt) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// SetNow overrides the clock. Test hook.
func (s *MemoryStore) SetNow(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

var _ Store = (*MemoryStore)(nil)
