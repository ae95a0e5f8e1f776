package lock

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory implementation of Store for testing and
// single-instance deployments.
type MemoryStore struct {
	ttl time.Duration

	mu      sync.RWMutex
	records map[string]Record
}

// NewMemoryStore creates an in-memory lock store with the given TTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:     ttl,
		records: make(map[string]Record),
	}
}

// Get implements Store.Get.
func (s *MemoryStore) Get(ctx context.Context, resourceID string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[resourceID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// ConditionalPut implements Store.ConditionalPut. The check and the
// write happen under one mutex hold, which is this store's equivalent
// of a backend compare-and-set.
func (s *MemoryStore) ConditionalPut(ctx context.Context, rec Record, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.records[rec.ResourceID]; ok {
		if !cur.Expired(now, s.ttl) && cur.OwnerID != rec.OwnerID {
			return false, nil
		}
	}

	s.records[rec.ResourceID] = rec
	return true, nil
}

// ConditionalDelete implements Store.ConditionalDelete.
func (s *MemoryStore) ConditionalDelete(ctx context.Context, resourceID, ownerID string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.records[resourceID]
	if !ok {
		return false, nil
	}
	if !cur.Expired(now, s.ttl) && cur.OwnerID != ownerID {
		return false, nil
	}

	delete(s.records, resourceID)
	return true, nil
}

// ScanExpired implements Store.ScanExpired.
func (s *MemoryStore) ScanExpired(ctx context.Context, now time.Time) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var expired []string
	for id, rec := range s.records {
		if rec.Expired(now, s.ttl) {
			expired = append(expired, id)
		}
	}
	return expired, nil
}

// Len returns the number of physical records in the store (for testing).
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
