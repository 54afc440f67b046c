package storage

import (
	"context"
	"errors"
	"slices"
	"sync"
)

// MemorySnapshotStore keeps snapshots in process memory.
// Used when the S3 archive is disabled and in tests.
type MemorySnapshotStore struct {
	mu        sync.RWMutex
	snapshots map[string][]byte
}

// NewMemorySnapshotStore creates an empty store
func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{snapshots: make(map[string][]byte)}
}

// PutSnapshot stores a copy of body under key
func (s *MemorySnapshotStore) PutSnapshot(_ context.Context, key string, body []byte) error {
	if key == "" {
		return errors.New("snapshot key is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[key] = slices.Clone(body)
	return nil
}

// GetSnapshot returns the snapshot stored under key
func (s *MemorySnapshotStore) GetSnapshot(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	body, ok := s.snapshots[key]
	if !ok {
		return nil, ErrSnapshotNotFound
	}
	return slices.Clone(body), nil
}

// Keys returns the stored keys in sorted order
func (s *MemorySnapshotStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.snapshots))
	for k := range s.snapshots {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
