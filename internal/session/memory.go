package session

import (
	"context"
	"time"

	"github.com/boddenberg/pay-selfservice-go/internal/infra/cache"
)

// MemoryStore keeps sealed records in process memory. Records are lost on
// restart; use it for development and tests.
type MemoryStore struct {
	records *cache.InMemory[[]byte]
}

// NewMemoryStore creates a store that sweeps expired records every interval.
func NewMemoryStore(sweepInterval time.Duration) *MemoryStore {
	return &MemoryStore{records: cache.New[[]byte](sweepInterval)}
}

// Get retrieves a record. Returns false if not found or expired.
func (s *MemoryStore) Get(_ context.Context, id string) ([]byte, bool, error) {
	data, ok := s.records.Get(id)
	return data, ok, nil
}

// Set stores a record for ttl.
func (s *MemoryStore) Set(_ context.Context, id string, data []byte, ttl time.Duration) error {
	s.records.Set(id, data, ttl)
	return nil
}

// Delete removes a record.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.records.Delete(id)
	return nil
}

// Len returns the number of records held, expired or not.
func (s *MemoryStore) Len() int {
	return s.records.Len()
}

// Close stops the sweeper.
func (s *MemoryStore) Close() {
	s.records.Close()
}
