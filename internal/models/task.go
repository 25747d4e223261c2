package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
)

// transitions holds the allowed status edges. Anything absent here is
// rejected, including a no-op transition to the current status.
var transitions = map[Status][]Status{
	StatusPending:    {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
}

// ParseStatus converts a raw string to a Status.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusInProgress, StatusCompleted, StatusCancelled:
		return Status(s), nil
	default:
		return "", fmt.Errorf("unknown task status: %q", s)
	}
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	_, err := ParseStatus(string(s))
	return err == nil
}

// Terminal reports whether a task in this status accepts no further
// transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransition reports whether from → to is an allowed status edge.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Role identifies the caller's read scope for listing tasks. Roles are
// authenticated upstream; the core only filters on them.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
)

// WarningSet records the deadline-warning thresholds already emitted for a
// task, so repeated scanner sweeps never emit the same threshold twice. It is
// stored as a JSON array so the same column works under postgres and sqlite.
type WarningSet []string

// Contains reports whether the threshold id is already recorded.
func (w WarningSet) Contains(threshold string) bool {
	for _, t := range w {
		if t == threshold {
			return true
		}
	}
	return false
}

// With returns a copy of the set with the threshold id added.
func (w WarningSet) With(threshold string) WarningSet {
	if w.Contains(threshold) {
		return w
	}
	out := make(WarningSet, 0, len(w)+1)
	out = append(out, w...)
	return append(out, threshold)
}

// Value implements driver.Valuer.
func (w WarningSet) Value() (driver.Value, error) {
	if w == nil {
		w = WarningSet{}
	}
	b, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("marshal warning set: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (w *WarningSet) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*w = WarningSet{}
		return nil
	case []byte:
		return json.Unmarshal(v, w)
	case string:
		return json.Unmarshal([]byte(v), w)
	default:
		return fmt.Errorf("unsupported warning set source type %T", src)
	}
}

// Task is a unit of assignable work with a lifecycle status and a deadline.
// The store is the sole source of truth for task state; instances passed
// between services are snapshots.
type Task struct {
	ID           string     `db:"id" json:"id"`
	Title        string     `db:"title" json:"title"`
	Description  string     `db:"description" json:"description"`
	Assignee     string     `db:"assignee" json:"assignee"`
	Deadline     time.Time  `db:"deadline" json:"deadline"`
	Status       Status     `db:"status" json:"status"`
	WarningsSent WarningSet `db:"warnings_sent" json:"warnings_sent"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}
