package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/gurkanbulca/taskflow/internal/bus"
	"github.com/gurkanbulca/taskflow/internal/models"
	"github.com/gurkanbulca/taskflow/internal/store"
)

// LifecycleEngine owns the task entity: it validates requests, enforces the
// status state machine and emits a lifecycle event for every committed
// mutation. It holds no task state between calls; every mutation goes through
// the store so concurrent engines coordinate via conditional writes only.
type LifecycleEngine struct {
	store store.TaskStore
	bus   bus.EventBus

	now   func() time.Time
	newID func() string
}

// NewLifecycleEngine creates an engine over the given store and bus.
func NewLifecycleEngine(taskStore store.TaskStore, eventBus bus.EventBus) *LifecycleEngine {
	return &LifecycleEngine{
		store: taskStore,
		bus:   eventBus,
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
}

// CreateTask validates the request, persists a new PENDING task and emits
// TASK_ASSIGNED. An id collision is retried once with a fresh id before
// surfacing ErrConflict.
func (e *LifecycleEngine) CreateTask(ctx context.Context, title, description, assignee string, deadline time.Time) (*models.Task, error) {
	var missing []string
	if title == "" {
		missing = append(missing, "title")
	}
	if description == "" {
		missing = append(missing, "description")
	}
	if assignee == "" {
		missing = append(missing, "assignee")
	}
	if deadline.IsZero() {
		missing = append(missing, "deadline")
	}
	if len(missing) > 0 {
		return nil, &ValidationError{Fields: missing}
	}

	now := e.now().UTC()
	task := models.Task{
		Title:        title,
		Description:  description,
		Assignee:     assignee,
		Deadline:     deadline.UTC(),
		Status:       models.StatusPending,
		WarningsSent: models.WarningSet{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// Two attempts: an id collision is astronomically unlikely, but a single
	// regeneration keeps it from ever reaching the caller.
	for attempt := 0; attempt < 2; attempt++ {
		task.ID = e.newID()
		err := e.store.Put(ctx, task)
		if err == nil {
			e.publish(ctx, models.NewLifecycleEvent(models.EventTaskAssigned, task))
			return &task, nil
		}
		if !errors.Is(err, store.ErrAlreadyExists) {
			return nil, fmt.Errorf("persist task: %w", err)
		}
	}
	return nil, ErrConflict
}

// UpdateTaskStatus transitions a task along the state machine and emits
// TASK_UPDATED. The write is conditional on the status read at the start of
// the call; a lost race surfaces as ErrConcurrentModification and the caller
// may re-read and retry.
func (e *LifecycleEngine) UpdateTaskStatus(ctx context.Context, id string, newStatus models.Status) (*models.Task, error) {
	if !newStatus.Valid() {
		return nil, &ValidationError{Fields: []string{"status"}}
	}

	current, err := e.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read task %s: %w", id, err)
	}

	if !models.CanTransition(current.Status, newStatus) {
		return nil, &InvalidTransitionError{From: current.Status, To: newStatus}
	}

	updated, err := e.store.ConditionalUpdate(ctx, id, current.Status, store.TaskUpdate{
		Status:       newStatus,
		WarningsSent: current.WarningsSent,
		UpdatedAt:    e.now().UTC(),
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrPreconditionFailed):
			return nil, ErrConcurrentModification
		case errors.Is(err, store.ErrNotFound):
			return nil, ErrNotFound
		default:
			return nil, fmt.Errorf("update task %s: %w", id, err)
		}
	}

	e.publish(ctx, models.NewLifecycleEvent(models.EventTaskUpdated, *updated))
	return updated, nil
}

// ListTasks returns every task for admins and only the requester's own tasks
// otherwise. This is a read-side filter; the role must be authenticated
// upstream. Results carry no ordering guarantee.
func (e *LifecycleEngine) ListTasks(ctx context.Context, role models.Role, requesterID string) ([]models.Task, error) {
	if role == models.RoleAdmin {
		tasks, err := e.store.Scan(ctx, store.ScanFilter{})
		if err != nil {
			return nil, fmt.Errorf("scan tasks: %w", err)
		}
		return tasks, nil
	}

	tasks, err := e.store.QueryByAssignee(ctx, requesterID)
	if err != nil {
		return nil, fmt.Errorf("query tasks for %s: %w", requesterID, err)
	}
	return tasks, nil
}

// DeleteTask removes a task and returns its last state. Access gating is the
// caller's responsibility.
func (e *LifecycleEngine) DeleteTask(ctx context.Context, id string) (*models.Task, error) {
	task, err := e.store.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("delete task %s: %w", id, err)
	}
	return task, nil
}

// publish sends an event best-effort. The mutation has already committed, so a
// publish failure is logged and never surfaced to the caller.
func (e *LifecycleEngine) publish(ctx context.Context, event models.LifecycleEvent) {
	if err := e.bus.Publish(ctx, event); err != nil {
		log.Printf("lifecycle: publish %s for task %s failed: %v", event.Type, event.Task.ID, err)
	}
}
