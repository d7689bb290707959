package store

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process ClientActivityStore for single-instance
// deployments.
type MemoryStore struct {
	mu      sync.Mutex
	clients map[string][]time.Time
}

// NewMemory creates an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{clients: make(map[string][]time.Time)}
}

func (s *MemoryStore) Record(_ context.Context, clientID string, ts time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clients[clientID] = append(s.clients[clientID], ts)
	return nil
}

func (s *MemoryStore) CountSince(_ context.Context, clientID string, since time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, ts := range s.clients[clientID] {
		if ts.After(since) {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Admit(_ context.Context, clientID string, ts time.Time, windows []Window) (Admission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stamps := s.clients[clientID]
	counts := make([]int, len(windows))
	for i, w := range windows {
		for _, seen := range stamps {
			if seen.After(w.Since) {
				counts[i]++
			}
		}
	}

	a := decide(windows, counts)
	if a.Admitted() {
		s.clients[clientID] = append(stamps, ts)
	}
	return a, nil
}

func (s *MemoryStore) Purge(_ context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, stamps := range s.clients {
		kept := stamps[:0]
		for _, ts := range stamps {
			if ts.Before(before) {
				removed++
				continue
			}
			kept = append(kept, ts)
		}
		if len(kept) == 0 {
			delete(s.clients, id)
			continue
		}
		s.clients[id] = kept
	}
	return removed, nil
}

// Clients returns the number of tracked clients.
func (s *MemoryStore) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *MemoryStore) Close() error { return nil }
