package store

import (
	"context"
	"sync"

	"github.com/gurkanbulca/taskflow/internal/models"
)

// MemoryStore is an in-process TaskStore with the same conditional-write
// semantics as the SQL store.
type MemoryStore struct {
	mu    sync.RWMutex
	tasks map[string]models.Task
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tasks: make(map[string]models.Task),
	}
}

func (s *MemoryStore) Put(ctx context.Context, task models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[task.ID]; ok {
		return ErrAlreadyExists
	}
	s.tasks[task.ID] = cloneTask(task)
	return nil
}

func (s *MemoryStore) ConditionalUpdate(ctx context.Context, id string, expectedStatus models.Status, update TaskUpdate) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	if current.Status != expectedStatus {
		return nil, ErrPreconditionFailed
	}

	current.Status = update.Status
	current.WarningsSent = append(models.WarningSet(nil), update.WarningsSent...)
	current.UpdatedAt = update.UpdatedAt
	s.tasks[id] = current

	updated := cloneTask(current)
	return &updated, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneTask(task)
	return &out, nil
}

func (s *MemoryStore) Scan(ctx context.Context, filter ScanFilter) ([]models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Task
	for _, task := range s.tasks {
		if len(filter.Statuses) > 0 && !statusIn(task.Status, filter.Statuses) {
			continue
		}
		out = append(out, cloneTask(task))
	}
	return out, nil
}

func (s *MemoryStore) QueryByAssignee(ctx context.Context, assignee string) ([]models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Task
	for _, task := range s.tasks {
		if task.Assignee == assignee {
			out = append(out, cloneTask(task))
		}
	}
	return out, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	delete(s.tasks, id)
	out := cloneTask(task)
	return &out, nil
}

func statusIn(status models.Status, statuses []models.Status) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

func cloneTask(task models.Task) models.Task {
	task.WarningsSent = append(models.WarningSet(nil), task.WarningsSent...)
	return task
}
