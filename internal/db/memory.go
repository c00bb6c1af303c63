package db

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-process KeyValueStore with an optional size quota,
// mirroring the limits of browser local storage.
type MemoryStore struct {
	mu    sync.RWMutex
	data  map[string]string
	size  int
	quota int
}

// NewMemoryStore creates an empty store. A quota of zero or less disables the limit.
func NewMemoryStore(quotaBytes int) *MemoryStore {
	return &MemoryStore{
		data:  make(map[string]string),
		quota: quotaBytes,
	}
}

// Get returns the value stored under key.
func (s *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok, nil
}

// Set stores value under key, failing with ErrQuotaExceeded when the quota would be passed.
func (s *MemoryStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	newSize := s.size + len(key) + len(value)
	if old, ok := s.data[key]; ok {
		newSize -= len(key) + len(old)
	}
	if s.quota > 0 && newSize > s.quota {
		return fmt.Errorf("set %q (%d bytes): %w", key, len(value), ErrQuotaExceeded)
	}
	s.data[key] = value
	s.size = newSize
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.data[key]; ok {
		s.size -= len(key) + len(old)
		delete(s.data, key)
	}
	return nil
}

// Keys lists keys starting with prefix in lexical order.
func (s *MemoryStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Size returns the number of bytes currently held.
func (s *MemoryStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}
