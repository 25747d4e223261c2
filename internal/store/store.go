// Package store owns durable task state. The SQL implementation is the
// production path; the memory implementation backs tests and development.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/gurkanbulca/taskflow/internal/models"
)

var (
	// ErrNotFound - no task with the requested id.
	ErrNotFound = errors.New("task not found")
	// ErrAlreadyExists - a task with the same id is already stored.
	ErrAlreadyExists = errors.New("task already exists")
	// ErrPreconditionFailed - a conditional update observed a different status
	// than the caller expected.
	ErrPreconditionFailed = errors.New("task status precondition failed")
)

// ScanFilter narrows a Scan. An empty status list matches every task.
type ScanFilter struct {
	Statuses []models.Status
}

// TaskUpdate carries the full replacement values for a task's mutable fields.
// Callers have just read the task, so they pass complete values rather than
// deltas; the update applies only if the stored status still matches the
// caller's expectation.
type TaskUpdate struct {
	Status       models.Status
	WarningsSent models.WarningSet
	UpdatedAt    time.Time
}

// TaskStore is the durable source of truth for tasks. Implementations must be
// safe for concurrent use; conditional updates are the only coordination
// mechanism between concurrent writers.
type TaskStore interface {
	// Put inserts a new task, failing with ErrAlreadyExists on id collision.
	Put(ctx context.Context, task models.Task) error

	// ConditionalUpdate applies update iff the stored status equals
	// expectedStatus, returning the task as written. Fails with ErrNotFound or
	// ErrPreconditionFailed.
	ConditionalUpdate(ctx context.Context, id string, expectedStatus models.Status, update TaskUpdate) (*models.Task, error)

	// Get returns the task or ErrNotFound.
	Get(ctx context.Context, id string) (*models.Task, error)

	// Scan returns tasks matching the filter, in no particular order.
	Scan(ctx context.Context, filter ScanFilter) ([]models.Task, error)

	// QueryByAssignee returns the tasks assigned to one party, unordered.
	QueryByAssignee(ctx context.Context, assignee string) ([]models.Task, error)

	// Delete removes the task and returns its last stored state, or ErrNotFound.
	Delete(ctx context.Context, id string) (*models.Task, error)
}
