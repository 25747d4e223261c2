package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/gurkanbulca/taskflow/internal/models"
)

// Schema is the tasks table DDL. cmd/migrate applies it; tests apply it
// against an in-memory sqlite database.
const Schema = `
CREATE TABLE IF NOT EXISTS tasks (
    id            TEXT PRIMARY KEY,
    title         TEXT NOT NULL,
    description   TEXT NOT NULL,
    assignee      TEXT NOT NULL,
    deadline      TIMESTAMP NOT NULL,
    status        TEXT NOT NULL,
    warnings_sent TEXT NOT NULL DEFAULT '[]',
    created_at    TIMESTAMP NOT NULL,
    updated_at    TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tasks_assignee ON tasks (assignee);
CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks (status);
`

// SQLStore implements TaskStore on a sqlx database handle. Queries are written
// with ? placeholders and rebound, so the same store runs on postgres (lib/pq)
// and sqlite (tests).
type SQLStore struct {
	db *sqlx.DB
}

// NewSQLStore wraps an open sqlx handle.
func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Migrate applies the tasks schema.
func (s *SQLStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply tasks schema: %w", err)
	}
	return nil
}

func (s *SQLStore) Put(ctx context.Context, task models.Task) error {
	query := s.db.Rebind(`
		INSERT INTO tasks (id, title, description, assignee, deadline, status, warnings_sent, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err := s.db.ExecContext(ctx, query,
		task.ID, task.Title, task.Description, task.Assignee, task.Deadline,
		task.Status, task.WarningsSent, task.CreatedAt, task.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (s *SQLStore) ConditionalUpdate(ctx context.Context, id string, expectedStatus models.Status, update TaskUpdate) (*models.Task, error) {
	query := s.db.Rebind(`
		UPDATE tasks
		SET status = ?, warnings_sent = ?, updated_at = ?
		WHERE id = ? AND status = ?`)

	res, err := s.db.ExecContext(ctx, query,
		update.Status, update.WarningsSent, update.UpdatedAt, id, expectedStatus)
	if err != nil {
		return nil, fmt.Errorf("update task %s: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update task %s: rows affected: %w", id, err)
	}
	if affected == 0 {
		// Distinguish a missing task from a lost optimistic-concurrency race.
		if _, err := s.Get(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrPreconditionFailed
	}

	return s.Get(ctx, id)
}

func (s *SQLStore) Get(ctx context.Context, id string) (*models.Task, error) {
	var task models.Task
	query := s.db.Rebind(`SELECT * FROM tasks WHERE id = ?`)
	if err := s.db.GetContext(ctx, &task, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	return &task, nil
}

func (s *SQLStore) Scan(ctx context.Context, filter ScanFilter) ([]models.Task, error) {
	query := `SELECT * FROM tasks`
	args := []interface{}{}

	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			placeholders[i] = "?"
			args = append(args, status)
		}
		query += " WHERE status IN (" + strings.Join(placeholders, ", ") + ")"
	}

	var tasks []models.Task
	if err := s.db.SelectContext(ctx, &tasks, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("scan tasks: %w", err)
	}
	return tasks, nil
}

func (s *SQLStore) QueryByAssignee(ctx context.Context, assignee string) ([]models.Task, error) {
	var tasks []models.Task
	query := s.db.Rebind(`SELECT * FROM tasks WHERE assignee = ?`)
	if err := s.db.SelectContext(ctx, &tasks, query, assignee); err != nil {
		return nil, fmt.Errorf("query tasks by assignee %s: %w", assignee, err)
	}
	return tasks, nil
}

func (s *SQLStore) Delete(ctx context.Context, id string) (*models.Task, error) {
	task, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	query := s.db.Rebind(`DELETE FROM tasks WHERE id = ?`)
	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("delete task %s: %w", id, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return nil, ErrNotFound
	}
	return task, nil
}

// isUniqueViolation recognizes a primary-key collision for both supported
// drivers. lib/pq exposes a typed error; sqlite is matched on its constraint
// message so the production store never links the cgo driver.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code.Name() == "unique_violation"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
