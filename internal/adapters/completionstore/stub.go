package completionstore

import (
	"context"
	"maps"
	"sync"
)

// Stub keeps the snapshot in memory, for tests
type Stub struct {
	mutex  sync.Mutex
	counts map[string]int
	saves  int

	LoadErr error
	SaveErr error
}

// NewStub returns an in-memory store for tests, seeded with a copy of initial
func NewStub(initial map[string]int) *Stub {
	if initial == nil {
		initial = map[string]int{}
	}
	return &Stub{
		counts: maps.Clone(initial),
	}
}

func (s *Stub) Load(ctx context.Context) (map[string]int, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.LoadErr != nil {
		return nil, s.LoadErr
	}
	return maps.Clone(s.counts), nil
}

func (s *Stub) Save(ctx context.Context, counts map[string]int) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.counts = maps.Clone(counts)
	s.saves++
	return nil
}

// Saves returns the number of successful saves
func (s *Stub) Saves() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.saves
}

func (s *Stub) Counts() map[string]int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return maps.Clone(s.counts)
}
