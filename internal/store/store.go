// Package store provides the in-memory key/value data served by the test
// server, together with the log of every request path it was asked for.
package store

import (
	"strings"
	"sync"

	"go.uber.org/atomic"
)

var _ Store = (*MemoryStore)(nil)

// Store holds string values by key and records accesses.
type Store interface {
	// Replace swaps the whole data set for a copy of data.
	Replace(data map[string]string)
	// Set stores value under key. An empty value removes the key.
	Set(key, value string)
	// Lookup returns the value for key, ok=false when it is absent or empty.
	Lookup(key string) (value string, ok bool)
	// Record appends a request path to the access log.
	Record(path string)
	// AccessLogs returns a copy of the access log, oldest first.
	AccessLogs() []string
	// ResetAccessLogs empties the access log.
	ResetAccessLogs()
	// Snapshot returns a copy of the current data.
	Snapshot() map[string]string
}

// MemoryStore is a thread-safe Store.
type MemoryStore struct {
	mu       sync.RWMutex      // protects fields below
	data     map[string]string // key without leading slash -> value
	accesses []string          // request paths, in arrival order
	requests atomic.Int64      // total recorded requests, survives resets
}

// NewStore creates a store seeded with a copy of data, which may be nil.
func NewStore(data map[string]string) *MemoryStore {
	s := &MemoryStore{}
	s.Replace(data)
	return s
}

// Replace swaps the whole data set.
func (s *MemoryStore) Replace(data map[string]string) {
	cp := make(map[string]string, len(data))
	for k, v := range data {
		cp[normalize(k)] = v
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = cp
}

// Set stores a single value.
func (s *MemoryStore) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if value == "" {
		delete(s.data, normalize(key))
		return
	}
	s.data[normalize(key)] = value
}

// Lookup returns the value for key. Empty values count as missing, the same
// way the server answers 404 for them.
func (s *MemoryStore) Lookup(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v := s.data[normalize(key)]
	return v, v != ""
}

// Record appends path to the access log.
func (s *MemoryStore) Record(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.accesses = append(s.accesses, path)
	s.requests.Inc()
}

// AccessLogs returns a copy of the access log.
func (s *MemoryStore) AccessLogs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]string{}, s.accesses...)
}

// ResetAccessLogs empties the access log.
func (s *MemoryStore) ResetAccessLogs() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.accesses = nil
}

// Requests returns how many requests were recorded since creation.
func (s *MemoryStore) Requests() int64 {
	return s.requests.Load()
}

// Snapshot returns a copy of the current data.
func (s *MemoryStore) Snapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp := make(map[string]string, len(s.data))
	for k, v := range s.data {
		cp[k] = v
	}
	return cp
}

// normalize drops the leading slash so "/a/b" and "a/b" name the same key.
func normalize(key string) string {
	return strings.TrimPrefix(key, "/")
}
