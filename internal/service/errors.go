package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gurkanbulca/taskflow/internal/models"
)

var (
	// ErrNotFound - the referenced task does not exist. Terminal for the call.
	ErrNotFound = errors.New("task not found")

	// ErrConcurrentModification - a conditional write lost an optimistic
	// concurrency race. The whole read-modify-write is safe to retry.
	ErrConcurrentModification = errors.New("task was modified concurrently")

	// ErrConflict - the generated task id collided twice in a row.
	ErrConflict = errors.New("task id conflict")
)

// ValidationError reports the missing or malformed fields of a request. The
// client must fix the request; it is never retried automatically.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid request: missing or invalid fields: %s", strings.Join(e.Fields, ", "))
}

// InvalidTransitionError reports a status change that is not an edge of the
// task state machine.
type InvalidTransitionError struct {
	From models.Status
	To   models.Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
}
