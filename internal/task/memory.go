package task

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps tasks in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	tasks map[string]Task
	now   func() time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tasks: make(map[string]Task), now: time.Now}
}

func (s *MemoryStore) Create(_ context.Context) (Task, error) {
	t := newTask(s.now())
	s.mu.Lock()
	s.tasks[t.ID] = t
	s.mu.Unlock()
	return t, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return Task{}, ErrNotFound
	}
	return t, nil
}

func (s *MemoryStore) Update(_ context.Context, id string, fn Mutation) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return Task{}, ErrNotFound
	}
	if err := fn(&t); err != nil {
		return Task{}, err
	}
	t.UpdatedAt = s.now()
	s.tasks[id] = t
	return t, nil
}
