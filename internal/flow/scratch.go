// Package flow keeps per-user scratch data accumulated across the steps of a
// multi-stage conversation. The durable stage token lives on the user row;
// this store only holds the in-progress answers until the final step drains
// them.
package flow

import "sync"

// Scratch is a concurrency-safe per-user key/value store.
type Scratch struct {
	mu   sync.RWMutex
	data map[int64]map[string]any
}

// NewScratch constructs an empty scratch store.
func NewScratch() *Scratch {
	return &Scratch{data: make(map[int64]map[string]any)}
}

// Set stores a value for the user.
func (s *Scratch) Set(userID int64, key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket, ok := s.data[userID]
	if !ok {
		bucket = make(map[string]any)
		s.data[userID] = bucket
	}
	bucket[key] = value
}

// Get retrieves a value for the user.
func (s *Scratch) Get(userID int64, key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bucket, ok := s.data[userID]
	if !ok {
		return nil, false
	}
	v, ok := bucket[key]
	return v, ok
}

// GetString retrieves a value and asserts it as string.
func (s *Scratch) GetString(userID int64, key string) (string, bool) {
	v, ok := s.Get(userID, key)
	if !ok {
		return "", false
	}
	str, ok := v.(string)
	return str, ok
}

// Clear removes all scratch data of a user. Called when a flow finishes or
// is abandoned.
func (s *Scratch) Clear(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, userID)
}
