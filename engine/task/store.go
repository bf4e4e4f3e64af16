// Package task tracks analysis runs through their lifecycle and drives
// the fetch, score and aggregate phases of each one.
package task

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/PulsewireAI/pulsewire-mvp/engine/domain"
)

// Store is the in-memory task registry. Reads return snapshot copies
// that may lag the run goroutine but never move backwards; writes go
// through the lifecycle methods.
type Store struct {
	mu    sync.RWMutex
	tasks map[string]*domain.Task
}

func NewStore() *Store {
	return &Store{tasks: make(map[string]*domain.Task)}
}

// Create registers a new pending task for query and returns its snapshot.
func (s *Store) Create(query string) domain.Task {
	t := &domain.Task{
		ID:        uuid.NewString(),
		Query:     query,
		Status:    domain.StatusPending,
		Message:   "Analysis queued",
		CreatedAt: time.Now().UTC(),
	}
	s.mu.Lock()
	s.tasks[t.ID] = t
	snap := *t
	s.mu.Unlock()
	return snap
}

// Get returns a snapshot of the task or domain.ErrTaskNotFound.
func (s *Store) Get(id string) (domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return domain.Task{}, domain.ErrTaskNotFound
	}
	return *t, nil
}

// List returns snapshots of all tracked tasks, most recent first.
func (s *Store) List() []domain.Task {
	s.mu.RLock()
	out := make([]domain.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, *t)
	}
	s.mu.RUnlock()
	slices.SortFunc(out, func(a, b domain.Task) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out
}

// Delete drops a task from the registry. Unknown ids are ignored.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	delete(s.tasks, id)
	s.mu.Unlock()
}

func (s *Store) startProcessing(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok || t.Status.Terminal() {
		return
	}
	now := time.Now().UTC()
	t.Status = domain.StatusProcessing
	t.StartedAt = &now
	t.Progress = 10
	t.Message = "Fetching Reddit data..."
}

// setProgress moves the bar forward. Progress never decreases and tops
// out at 100; the message always updates.
func (s *Store) setProgress(id string, progress int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok || t.Status.Terminal() {
		return
	}
	if progress > 100 {
		progress = 100
	}
	if progress > t.Progress {
		t.Progress = progress
	}
	t.Message = message
}

// complete marks the task finished. It reports false if the task was
// already terminal or unknown.
func (s *Store) complete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok || t.Status.Terminal() {
		return false
	}
	now := time.Now().UTC()
	t.Status = domain.StatusCompleted
	t.Progress = 100
	t.Message = "Analysis completed successfully"
	t.CompletedAt = &now
	return true
}

// fail marks the task failed with err. It reports false if the task was
// already terminal or unknown.
func (s *Store) fail(id string, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok || t.Status.Terminal() {
		return false
	}
	now := time.Now().UTC()
	t.Status = domain.StatusFailed
	t.Message = "Analysis failed: " + err.Error()
	t.Error = err.Error()
	t.CompletedAt = &now
	return true
}
