package storage

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store implementation. It's useful for testing
// and single-process host applications.
type MemoryStore struct {
	records map[string]Record
	mu      sync.RWMutex
}

// NewMemoryStore creates an empty in-memory decision store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func recordKey(featureKey, userID string) string {
	return featureKey + ":" + userID
}

// Get returns the stored decision for the pair, or ErrNotFound.
func (m *MemoryStore) Get(ctx context.Context, featureKey, userID string) (*Record, error) {
	m.mu.RLock()
	record, exists := m.records[recordKey(featureKey, userID)]
	m.mu.RUnlock()

	if !exists {
		return nil, ErrNotFound
	}
	// Return a copy to prevent external modification.
	return &record, nil
}

// Set validates and stores the record, overwriting any previous decision for
// the same pair.
func (m *MemoryStore) Set(ctx context.Context, record *Record) error {
	if err := record.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	m.records[recordKey(record.FeatureKey, record.UserID)] = *record
	m.mu.Unlock()
	return nil
}
