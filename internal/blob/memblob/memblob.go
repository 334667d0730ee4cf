// Package memblob provides an in-memory implementation of blob.Resolver.
// Suitable for dev/testing.
package memblob

import (
	"context"
	"sync"
)

// Store maps blob references to URLs in memory.
type Store struct {
	mu   sync.RWMutex
	urls map[string]string
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{urls: make(map[string]string)}
}

// Put registers a reference with its URL.
func (s *Store) Put(ref, url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.urls[ref] = url
}

// Delete removes a reference.
func (s *Store) Delete(ref string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.urls, ref)
}

// ResolveURL returns the URL registered for ref, if any.
func (s *Store) ResolveURL(_ context.Context, ref string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	url, ok := s.urls[ref]
	return url, ok, nil
}
