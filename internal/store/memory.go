// internal/store/memory.go
package store

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store used by tests and single-node
// runs. Notifications fire synchronously under no lock, after the
// write that triggered them, in write order per key.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
	sets    map[string]map[string]struct{}

	nextSub   int
	listeners map[string]map[int]func()
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:   make(map[string]Record),
		sets:      make(map[string]map[string]struct{}),
		listeners: make(map[string]map[int]func()),
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok {
		return nil, nil
	}
	out := make(Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out, nil
}

func (s *MemoryStore) Merge(_ context.Context, key string, fields Record) error {
	if len(fields) == 0 {
		return nil
	}
	s.mu.Lock()
	rec, ok := s.records[key]
	if !ok {
		rec = make(Record)
		s.records[key] = rec
	}
	for k, v := range fields {
		rec[k] = v
	}
	fns := s.listenersFor(key)
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
	return nil
}

func (s *MemoryStore) SetAdd(_ context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	s.mu.Lock()
	set, ok := s.sets[key]
	if !ok {
		set = make(map[string]struct{})
		s.sets[key] = set
	}
	for _, m := range members {
		set[m] = struct{}{}
	}
	fns := s.listenersFor(key)
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
	return nil
}

func (s *MemoryStore) SetMembers(_ context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.sets[key]
	members := make([]string, 0, len(set))
	for m := range set {
		members = append(members, m)
	}
	return members, nil
}

func (s *MemoryStore) Subscribe(_ context.Context, key string, notify func()) (CancelFunc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	if s.listeners[key] == nil {
		s.listeners[key] = make(map[int]func())
	}
	s.listeners[key][id] = notify

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners[key], id)
	}, nil
}

// listenersFor copies the current listener set; called under s.mu.
func (s *MemoryStore) listenersFor(key string) []func() {
	fns := make([]func(), 0, len(s.listeners[key]))
	for _, fn := range s.listeners[key] {
		fns = append(fns, fn)
	}
	return fns
}
