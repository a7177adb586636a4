// Package history records the searches made through the HTTP front end.
package history

import (
	"context"
	"sync"
	"time"
)

type Entry struct {
	Query string    `json:"query"`
	Key   string    `json:"key"`
	Exact bool      `json:"exact"`
	Hits  int       `json:"hits"`
	At    time.Time `json:"at"`
}

// Store keeps search history, newest first on read.
type Store interface {
	Add(ctx context.Context, e Entry) error
	Recent(ctx context.Context, n int) ([]Entry, error)
	Clear(ctx context.Context) error
}

// MemoryStore keeps the last size entries in a ring.
type MemoryStore struct {
	mu      sync.Mutex
	entries []Entry
	next    int
	full    bool
}

func NewMemoryStore(size int) *MemoryStore {
	if size < 1 {
		size = 1
	}
	return &MemoryStore{entries: make([]Entry, size)}
}

func (s *MemoryStore) Add(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[s.next] = e
	s.next = (s.next + 1) % len(s.entries)
	if s.next == 0 {
		s.full = true
	}
	return nil
}

// Recent returns up to n entries, newest first. n < 1 returns everything kept.
func (s *MemoryStore) Recent(_ context.Context, n int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	size := s.next
	if s.full {
		size = len(s.entries)
	}
	if n < 1 || n > size {
		n = size
	}
	out := make([]Entry, 0, n)
	for i := 1; i <= n; i++ {
		idx := (s.next - i + len(s.entries)) % len(s.entries)
		out = append(out, s.entries[idx])
	}
	return out, nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.entries)
	s.next = 0
	s.full = false
	return nil
}
