package store

import (
	"context"
	"sync"
	"time"
)

// MemoryStore provides an in-memory implementation for development/testing.
// It honors the same replace semantics and expiry stamping as the Postgres
// backend, including dropping records whose TTL has lapsed on read.
type MemoryStore struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	records map[Key]Record
}

// NewMemoryStore constructs a store stamping expiry now+ttl.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:     ttl,
		now:     time.Now,
		records: make(map[Key]Record),
	}
}

// WithClock overrides the time source, for tests.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

// Upsert replaces any record under the same composite key.
func (s *MemoryStore) Upsert(_ context.Context, record Record) error {
	now := s.now().UTC()
	record.UpdatedAt = now
	record.ExpireAt = now.Add(s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[KeyOf(record)] = record
	return nil
}

// Get returns the live record under key, if any. Expired records behave as
// absent, matching what the external reaper would have removed.
func (s *MemoryStore) Get(key Key) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[key]
	if !ok || !rec.ExpireAt.After(s.now().UTC()) {
		return Record{}, false
	}
	return rec, true
}

// Len counts live records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	now := s.now().UTC()
	for _, rec := range s.records {
		if rec.ExpireAt.After(now) {
			n++
		}
	}
	return n
}

// Close implements Store.
func (s *MemoryStore) Close() {}
