package unread

import (
	"sync"
)

// MemoryStore keeps unread counters in process memory. Counters do not
// survive a restart; the history fetch path makes missed messages visible
// regardless.
type MemoryStore struct {
	mu     sync.Mutex
	counts map[int]map[int]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		counts: make(map[int]map[int]int),
	}
}

func (s *MemoryStore) Incr(viewerId, partnerId int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	viewer, ok := s.counts[viewerId]
	if !ok {
		viewer = make(map[int]int)
		s.counts[viewerId] = viewer
	}
	viewer[partnerId]++

	return nil
}

func (s *MemoryStore) Clear(viewerId, partnerId int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if viewer, ok := s.counts[viewerId]; ok {
		delete(viewer, partnerId)
	}

	return nil
}

func (s *MemoryStore) Counts(viewerId int) (map[int]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[int]int, len(s.counts[viewerId]))
	for partnerId, n := range s.counts[viewerId] {
		counts[partnerId] = n
	}

	return counts, nil
}
